package goSession

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/tokenstore"
)

// Config describes the config operation and its observable behavior.
//
// Config instances are intended to be configured during initialization and
// then treated as immutable. Build clones the value it receives.
type Config struct {
	API     APIConfig
	Session SessionConfig
	Token   TokenConfig
	Storage StorageConfig
	Events  EventsConfig
	Metrics MetricsConfig
}

/*
====================================
API CONFIG
====================================
*/

// APIConfig locates the votes API.
type APIConfig struct {
	BaseURL           string
	Path              string // default "/api/user-votes-and-ratings"
	Timeout           time.Duration
	UserAgent         string
	MaxBodyBytes      int64
	MaxErrorBodyBytes int64
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls login and status semantics.
type SessionConfig struct {
	// RollbackLoginOnFetchFailure removes the token and clears the logged-in
	// flag when the fetch that follows a login fails. The cached snapshot is
	// kept.
	RollbackLoginOnFetchFailure bool
	// DiscardExpiredTokens makes CheckLoginStatus remove a stored JWT whose
	// exp claim is in the past.
	DiscardExpiredTokens bool
	ClockSkew            time.Duration
	// CoalesceFetches shares one in-flight request among concurrent fetches
	// for the same token.
	CoalesceFetches bool
}

// TokenConfig controls how stored tokens are inspected. Tokens are opaque to
// the API; inspection only serves TokenInfo and the expiry policy.
type TokenConfig struct {
	VerifyMethod string // "none" (default), "hs256" or "ed25519"
	VerifyKey    []byte
	Issuer       string
	Audience     string
}

// StorageConfig names the durable key and the Redis layout used when the
// store is built from a Redis client.
type StorageConfig struct {
	Key         string
	RedisPrefix string
	RedisTTL    time.Duration
}

// EventsConfig controls the async event dispatcher.
type EventsConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles counters and the fetch latency histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the baseline configuration. API.BaseURL is left empty
// and must be set before Build.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		API: APIConfig{
			Path:              "/api/user-votes-and-ratings",
			Timeout:           0,
			UserAgent:         "goSession",
			MaxBodyBytes:      8 << 20,
			MaxErrorBodyBytes: 4 << 10,
		},
		Session: SessionConfig{
			RollbackLoginOnFetchFailure: false,
			DiscardExpiredTokens:        false,
			ClockSkew:                   30 * time.Second,
			CoalesceFetches:             true,
		},
		Token: TokenConfig{
			VerifyMethod: "none",
		},
		Storage: StorageConfig{
			Key:         tokenstore.DefaultKey,
			RedisPrefix: "gosession",
		},
		Events: EventsConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

// StrictConfig returns a preset where a login only sticks if its fetch
// succeeds, expired tokens are dropped on status checks and requests time out.
func StrictConfig(baseURL string) Config {
	cfg := defaultConfig()
	cfg.API.BaseURL = baseURL
	cfg.API.Timeout = 10 * time.Second
	cfg.Session.RollbackLoginOnFetchFailure = true
	cfg.Session.DiscardExpiredTokens = true
	return cfg
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.VerifyKey = cloneBytes(cfg.Token.VerifyKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate returns the first violated constraint. It does not mutate c.
func (c *Config) Validate() error {
	// API
	base := strings.TrimSpace(c.API.BaseURL)
	if base == "" {
		return errors.New("API BaseURL must be set")
	}
	u, err := url.Parse(base)
	if err != nil {
		return fmt.Errorf("API BaseURL is invalid: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("API BaseURL scheme must be http or https")
	}
	if u.Host == "" {
		return errors.New("API BaseURL must include a host")
	}
	if c.API.Path != "" && !strings.HasPrefix(c.API.Path, "/") {
		return errors.New("API Path must start with '/'")
	}
	if c.API.Timeout < 0 {
		return errors.New("API Timeout must be >= 0")
	}
	if c.API.MaxBodyBytes < 0 {
		return errors.New("API MaxBodyBytes must be >= 0")
	}
	if c.API.MaxErrorBodyBytes < 0 {
		return errors.New("API MaxErrorBodyBytes must be >= 0")
	}

	// Session
	if c.Session.ClockSkew < 0 {
		return errors.New("Session ClockSkew must be >= 0")
	}
	if c.Session.ClockSkew > 5*time.Minute {
		return errors.New("Session ClockSkew must be <= 5m")
	}

	// Token
	method, err := jwt.ParseVerifyMethod(c.Token.VerifyMethod)
	if err != nil {
		return errors.New("Token VerifyMethod must be 'none', 'hs256' or 'ed25519'")
	}
	if method == jwt.VerifyNone && len(c.Token.VerifyKey) > 0 {
		return errors.New("Token VerifyKey set without a VerifyMethod")
	}
	if method != jwt.VerifyNone && len(c.Token.VerifyKey) == 0 {
		return errors.New("Token VerifyMethod requires VerifyKey")
	}
	if c.Token.Issuer != "" && strings.TrimSpace(c.Token.Issuer) == "" {
		return errors.New("Token Issuer must not be blank")
	}
	if c.Token.Audience != "" && strings.TrimSpace(c.Token.Audience) == "" {
		return errors.New("Token Audience must not be blank")
	}

	// Storage
	if strings.TrimSpace(c.Storage.Key) == "" {
		return errors.New("Storage Key must be set")
	}
	if strings.ContainsAny(c.Storage.Key, " \t\r\n/\\") {
		return errors.New("Storage Key must not contain whitespace or path separators")
	}
	if c.Storage.RedisTTL < 0 {
		return errors.New("Storage RedisTTL must be >= 0")
	}

	// Events
	if c.Events.Enabled && c.Events.BufferSize <= 0 {
		return errors.New("Events BufferSize must be > 0 when Events are enabled")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}

/*
====================================
LINT
====================================
*/

// LintWarning is a configuration choice that is valid but probably not what
// a production deployment wants.
type LintWarning struct {
	Code    string
	Message string
}

// LintWarnings is the result of Config.Lint.
type LintWarnings []LintWarning

// Codes returns the warning codes in order.
func (ws LintWarnings) Codes() []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Code)
	}
	return out
}

// Lint reports questionable settings. It never fails and does not replace
// Validate.
func (c *Config) Lint() LintWarnings {
	var ws LintWarnings

	if u, err := url.Parse(strings.TrimSpace(c.API.BaseURL)); err == nil && u.Scheme == "http" && !isLoopbackHost(u.Hostname()) {
		ws = append(ws, LintWarning{
			Code:    "api_base_insecure",
			Message: "bearer tokens are sent over plain http to a non-loopback host",
		})
	}
	if c.API.Timeout == 0 {
		ws = append(ws, LintWarning{
			Code:    "api_timeout_unset",
			Message: "requests rely solely on the caller's context for cancellation",
		})
	}
	if method, _ := jwt.ParseVerifyMethod(c.Token.VerifyMethod); c.Session.DiscardExpiredTokens && method == jwt.VerifyNone {
		ws = append(ws, LintWarning{
			Code:    "expiry_from_unverified_claims",
			Message: "expired tokens are detected from claims that are not signature checked",
		})
	}
	if c.Events.Enabled && !c.Events.DropIfFull {
		ws = append(ws, LintWarning{
			Code:    "events_block_operations",
			Message: "a slow event sink will block session operations",
		})
	}

	return ws
}

func isLoopbackHost(h string) bool {
	return h == "localhost" || h == "127.0.0.1" || h == "::1"
}
