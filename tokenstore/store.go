package tokenstore

import (
	"context"
	"errors"
	"strings"
)

// DefaultKey is the fixed storage key the session token lives under.
const DefaultKey = "jwt"

// ErrNotFound is returned by Get when no token is stored.
var ErrNotFound = errors.New("token not found")

// ErrBackendUnavailable wraps failures of the underlying storage backend.
var ErrBackendUnavailable = errors.New("token storage unavailable")

// ErrEmptyToken is returned by Set when asked to persist an empty token.
var ErrEmptyToken = errors.New("empty token")

// Store is durable single-key storage for the session bearer token.
//
// Implementations must be safe for concurrent use. Get returns ErrNotFound
// when no token is present; Remove on an absent token is not an error.
type Store interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, token string) error
	Remove(ctx context.Context) error
}

// Has reports whether s currently holds a token. Backend errors other than
// ErrNotFound are returned as-is.
func Has(ctx context.Context, s Store) (bool, error) {
	_, err := s.Get(ctx)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return false, err
}

func normalizeKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return DefaultKey
	}
	return key
}
