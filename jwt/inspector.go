package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// VerifyMethod selects how Inspect treats the token signature.
type VerifyMethod string

const (
	// VerifyNone decodes claims without checking the signature. Session tokens
	// are issued by the remote API, so clients usually hold no key.
	VerifyNone VerifyMethod = ""
	// VerifyHS256 checks an HMAC-SHA256 signature against a shared secret.
	VerifyHS256 VerifyMethod = "hs256"
	// VerifyEd25519 checks an EdDSA signature against a public key.
	VerifyEd25519 VerifyMethod = "ed25519"
)

// ParseVerifyMethod maps a config string to a VerifyMethod. Both "" and
// "none" select VerifyNone.
func ParseVerifyMethod(s string) (VerifyMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return VerifyNone, nil
	case string(VerifyHS256):
		return VerifyHS256, nil
	case string(VerifyEd25519):
		return VerifyEd25519, nil
	default:
		return VerifyNone, fmt.Errorf("unsupported verify method %q", s)
	}
}

var (
	// ErrNotJWT is returned for opaque tokens that are not JWTs. Opaque tokens
	// are still valid session tokens; they just carry no readable claims.
	ErrNotJWT = errors.New("token is not a jwt")
	// ErrSignatureInvalid is returned when verification is configured and fails.
	ErrSignatureInvalid = errors.New("token signature invalid")
	// ErrClaimMismatch is returned when issuer or audience do not match.
	ErrClaimMismatch = errors.New("token claim mismatch")
)

// Config controls token inspection.
type Config struct {
	Method   VerifyMethod
	Key      []byte // HS256 secret, or Ed25519 public key (raw or PEM)
	Issuer   string
	Audience string
}

// Claims is the readable part of a session token.
type Claims struct {
	Subject   string
	Issuer    string
	Audience  []string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Verified  bool
}

// HasExpiry reports whether the token carried an exp claim.
func (c *Claims) HasExpiry() bool {
	return c != nil && !c.ExpiresAt.IsZero()
}

// Expired reports whether the token's exp lies before now minus skew.
// Tokens without exp never expire.
func (c *Claims) Expired(now time.Time, skew time.Duration) bool {
	if !c.HasExpiry() {
		return false
	}
	return now.Add(-skew).After(c.ExpiresAt)
}

// Inspector decodes session tokens.
type Inspector struct {
	config Config
	key    interface{}
}

// NewInspector validates cfg and returns an Inspector.
func NewInspector(cfg Config) (*Inspector, error) {
	cfg.Issuer = strings.TrimSpace(cfg.Issuer)
	cfg.Audience = strings.TrimSpace(cfg.Audience)

	in := &Inspector{config: cfg}
	switch cfg.Method {
	case VerifyNone:
	case VerifyHS256:
		if len(cfg.Key) == 0 {
			return nil, errors.New("hs256 requires key")
		}
		in.key = cfg.Key
	case VerifyEd25519:
		pub, err := parseEdPublicKey(cfg.Key)
		if err != nil {
			return nil, err
		}
		in.key = pub
	default:
		return nil, errors.New("unsupported verify method")
	}
	return in, nil
}

// Verifies reports whether Inspect checks signatures.
func (in *Inspector) Verifies() bool {
	return in != nil && in.config.Method != VerifyNone
}

// Inspect decodes tokenStr. Expiry is reported, not enforced; callers decide
// what an expired token means with Claims.Expired.
func (in *Inspector) Inspect(tokenStr string) (*Claims, error) {
	if strings.Count(tokenStr, ".") != 2 {
		return nil, ErrNotJWT
	}

	var registered jwt.RegisteredClaims
	verified := false

	if in.Verifies() {
		parser := jwt.NewParser(
			jwt.WithValidMethods([]string{in.method().Alg()}),
			jwt.WithoutClaimsValidation(),
		)
		token, err := parser.ParseWithClaims(tokenStr, &registered, func(t *jwt.Token) (interface{}, error) {
			if t.Method.Alg() != in.method().Alg() {
				return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
			}
			return in.key, nil
		})
		if err != nil {
			if errors.Is(err, jwt.ErrTokenMalformed) {
				return nil, ErrNotJWT
			}
			return nil, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
		}
		if !token.Valid {
			return nil, ErrSignatureInvalid
		}
		verified = true
	} else {
		if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, &registered); err != nil {
			return nil, ErrNotJWT
		}
	}

	if in.config.Issuer != "" && registered.Issuer != in.config.Issuer {
		return nil, fmt.Errorf("%w: issuer", ErrClaimMismatch)
	}
	if in.config.Audience != "" && !containsString(registered.Audience, in.config.Audience) {
		return nil, fmt.Errorf("%w: audience", ErrClaimMismatch)
	}

	claims := &Claims{
		Subject:  registered.Subject,
		Issuer:   registered.Issuer,
		Audience: append([]string(nil), registered.Audience...),
		Verified: verified,
	}
	if registered.IssuedAt != nil {
		claims.IssuedAt = registered.IssuedAt.Time
	}
	if registered.ExpiresAt != nil {
		claims.ExpiresAt = registered.ExpiresAt.Time
	}
	return claims, nil
}

func (in *Inspector) method() jwt.SigningMethod {
	switch in.config.Method {
	case VerifyHS256:
		return jwt.SigningMethodHS256
	default:
		return jwt.SigningMethodEdDSA
	}
}

func containsString(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
