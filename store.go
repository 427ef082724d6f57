package goSession

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	internalevents "github.com/MrEthical07/goSession/internal/events"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/internal/remote"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/tokenstore"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Store is the session state machine. It holds the logged-in flag and the
// cached votes snapshot, and keeps them consistent with the durable token.
//
// A Store is built once with [Builder.Build] and shared by reference. All
// methods are safe for concurrent use. State is only mutated by Login,
// Logout, CheckLoginStatus and FetchUserVotesAndRatings.
type Store struct {
	config    Config
	logger    *zap.Logger
	tokens    tokenstore.Store
	client    *remote.Client
	inspector *jwt.Inspector
	events    *internalevents.Dispatcher
	metrics   *Metrics
	flows     flows.Service
	inflight  singleflight.Group
	now       func() time.Time

	// transitionMu serializes durable-storage writes with the flag changes
	// they imply. It is never held across an API request.
	transitionMu sync.Mutex

	mu    sync.RWMutex
	state State

	closed atomic.Bool
}

// Login describes the login operation and its observable behavior.
//
// Login rejects an empty token with ErrInvalidCredential and leaves state
// untouched. Otherwise it persists the token, sets the
// logged-in flag and fetches the votes snapshot. A failed fetch is returned
// but the login stays in place, unless
// Config.Session.RollbackLoginOnFetchFailure is set.
func (s *Store) Login(ctx context.Context, token string) error {
	if err := s.ready(); err != nil {
		return err
	}
	err := s.flows.Login(ctx, token)
	s.logOutcome(ctx, "login", err)
	return err
}

// Logout describes the logout operation and its observable behavior.
//
// Logout removes the durable token, clears the logged-in flag and resets the
// snapshot to four empty categories as one transition. The in-memory reset
// always happens; the only error Logout returns is a wrapped ErrStorage when
// the token could not be removed. No request is made.
func (s *Store) Logout(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	err := s.flows.Logout(ctx)
	s.logOutcome(ctx, "logout", err)
	return err
}

// CheckLoginStatus describes the checkloginstatus operation and its observable behavior.
//
// CheckLoginStatus reads the durable token. Without one it clears the
// logged-in flag and leaves the snapshot alone. With one it sets the flag and
// runs exactly one fetch, whose error is returned.
func (s *Store) CheckLoginStatus(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	err := s.flows.CheckStatus(ctx)
	s.logOutcome(ctx, "status_check", err)
	return err
}

// FetchUserVotesAndRatings describes the fetchuservotesandratings operation and its observable behavior.
//
// It fails with ErrUnauthenticated when no token is stored. On success the
// snapshot is replaced wholesale and a copy is returned. Failures are
// *NetworkError or *APIError and leave state untouched. A result overtaken by
// a login or logout is dropped with ErrSessionSuperseded.
func (s *Store) FetchUserVotesAndRatings(ctx context.Context) (Snapshot, error) {
	if err := s.ready(); err != nil {
		return Snapshot{}, err
	}
	snap, err := s.flows.Fetch(ctx)
	s.logOutcome(ctx, "fetch", err)
	return snap, err
}

// IsLoggedIn reports the current logged-in flag.
func (s *Store) IsLoggedIn() bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.LoggedIn
}

// Snapshot returns a deep copy of the cached votes and ratings.
func (s *Store) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}.Normalize()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Snapshot.Clone()
}

// State returns a consistent copy of flag, snapshot and generation.
func (s *Store) State() State {
	if s == nil {
		return State{Snapshot: Snapshot{}.Normalize()}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.state
	out.Snapshot = s.state.Snapshot.Clone()
	return out
}

// TokenInfo describes the tokeninfo operation and its observable behavior.
//
// TokenInfo reads the stored token and decodes its claims for display. An
// absent token yields Present=false and no error. Opaque (non-JWT) tokens
// yield Present=true, JWT=false. Claims are only signature checked when
// Config.Token names a verification method.
func (s *Store) TokenInfo(ctx context.Context) (TokenInfo, error) {
	if err := s.ready(); err != nil {
		return TokenInfo{}, err
	}
	token, err := s.tokens.Get(ctx)
	if errors.Is(err, tokenstore.ErrNotFound) {
		return TokenInfo{}, nil
	}
	if err != nil {
		s.metricInc(MetricStorageFailure)
		return TokenInfo{}, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	info := TokenInfo{Present: true}
	claims, err := s.inspector.Inspect(token)
	if errors.Is(err, jwt.ErrNotJWT) {
		return info, nil
	}
	if err != nil {
		info.JWT = true
		return info, err
	}
	info.JWT = true
	info.Verified = claims.Verified
	info.Subject = claims.Subject
	info.Issuer = claims.Issuer
	info.IssuedAt = claims.IssuedAt
	info.ExpiresAt = claims.ExpiresAt
	info.Expired = claims.Expired(s.clock(), s.config.Session.ClockSkew)
	return info, nil
}

// Endpoint returns the absolute URL the store fetches from.
func (s *Store) Endpoint() string {
	if s == nil || s.client == nil {
		return ""
	}
	return s.client.Endpoint()
}

// Close describes the close operation and its observable behavior.
//
// Close drains pending events into the sink. Operations after Close return
// ErrStoreNotReady. Close is idempotent and does not touch the durable token.
func (s *Store) Close() {
	if s == nil {
		return
	}
	if s.closed.Swap(true) {
		return
	}
	s.events.Close()
}

// EventsDropped returns how many events were discarded because the
// dispatcher buffer was full.
func (s *Store) EventsDropped() uint64 {
	if s == nil {
		return 0
	}
	return s.events.Dropped()
}

// MetricsSnapshot returns a copy of all counters.
func (s *Store) MetricsSnapshot() MetricsSnapshot {
	if s == nil || s.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return s.metrics.Snapshot()
}

func (s *Store) ready() error {
	if s == nil || s.tokens == nil || s.client == nil || !s.flows.Initialized() || s.closed.Load() {
		return ErrStoreNotReady
	}
	return nil
}

func (s *Store) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

func (s *Store) metricInc(id MetricID) {
	if s == nil || s.metrics == nil {
		return
	}
	s.metrics.Inc(id)
}

func (s *Store) logOutcome(ctx context.Context, op string, err error) {
	fields := []zap.Field{zap.String("op", op), zap.Bool("logged_in", s.IsLoggedIn())}
	if caller := callerFromContext(ctx); caller != "" {
		fields = append(fields, zap.String("caller", caller))
	}
	if err != nil {
		s.logger.Info("session operation failed", append(fields, zap.Error(err))...)
		return
	}
	s.logger.Debug("session operation completed", fields...)
}
