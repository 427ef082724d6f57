package goSession

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/internal/remote"
	"github.com/MrEthical07/goSession/votes"
)

func (s *Store) flowDeps() flows.Deps {
	warn := func(msg string, kv ...any) {
		s.logger.Sugar().Warnw(msg, kv...)
	}
	metricInc := func(id int) {
		s.metricInc(MetricID(id))
	}

	fetch := flows.FetchDeps{
		Generation:     s.generation,
		LoadToken:      s.tokens.Get,
		Request:        s.request,
		Commit:         s.commitSnapshot,
		MapFetchError:  mapFetchError,
		ObserveLatency: s.observeLatency,
		MetricInc:      metricInc,
		EmitEvent:      s.emitEvent,
		Warn:           warn,
		Metrics: flows.FetchMetrics{
			Success:         int(MetricFetchSuccess),
			Unauthenticated: int(MetricFetchUnauthenticated),
			NetworkError:    int(MetricFetchNetworkError),
			APIError:        int(MetricFetchAPIError),
			Superseded:      int(MetricFetchSuperseded),
			StorageFailure:  int(MetricStorageFailure),
		},
		EventName: EventFetch,
		Errors: flows.FetchErrors{
			NotReady:        ErrStoreNotReady,
			Unauthenticated: ErrUnauthenticated,
			Storage:         ErrStorage,
			Superseded:      ErrSessionSuperseded,
		},
	}
	runFetch := func(ctx context.Context) (votes.Snapshot, error) {
		return flows.RunFetch(ctx, fetch)
	}

	status := flows.StatusDeps{
		Transition:  s.transition,
		LoadToken:   s.tokens.Get,
		RemoveToken: s.tokens.Remove,
		SetLoggedIn: s.setLoggedIn,
		Fetch:       runFetch,
		MetricInc:   metricInc,
		EmitEvent:   s.emitEvent,
		Warn:        warn,
		Metrics: flows.StatusMetrics{
			LoggedIn:       int(MetricStatusLoggedIn),
			LoggedOut:      int(MetricStatusLoggedOut),
			ExpiredToken:   int(MetricStatusExpiredToken),
			StorageFailure: int(MetricStorageFailure),
		},
		EventName: EventStatusCheck,
		Errors: flows.StatusErrors{
			NotReady: ErrStoreNotReady,
			Storage:  ErrStorage,
		},
	}
	if s.config.Session.DiscardExpiredTokens {
		status.TokenExpired = s.tokenExpired
	}

	return flows.Deps{
		Fetch:  fetch,
		Status: status,
		Login: flows.LoginDeps{
			RollbackOnFetchFailure: s.config.Session.RollbackLoginOnFetchFailure,
			Transition:             s.transition,
			SaveToken:              s.tokens.Set,
			MarkLoggedIn:           s.markLoggedIn,
			Rollback:               s.rollbackLogin,
			Fetch:                  runFetch,
			MetricInc:              metricInc,
			EmitEvent:              s.emitEvent,
			Warn:                   warn,
			Metrics: flows.LoginMetrics{
				Success:           int(MetricLoginSuccess),
				Failure:           int(MetricLoginFailure),
				InvalidCredential: int(MetricLoginInvalidCredential),
				StorageFailure:    int(MetricStorageFailure),
				RolledBack:        int(MetricLoginRolledBack),
			},
			EventName: EventLogin,
			Errors: flows.LoginErrors{
				NotReady:          ErrStoreNotReady,
				InvalidCredential: ErrInvalidCredential,
				Storage:           ErrStorage,
			},
		},
		Logout: flows.LogoutDeps{
			Transition:  s.transition,
			RemoveToken: s.tokens.Remove,
			Reset:       s.reset,
			MetricInc:   metricInc,
			EmitEvent:   s.emitEvent,
			Warn:        warn,
			Metrics: flows.LogoutMetrics{
				Logout:         int(MetricLogout),
				StorageFailure: int(MetricStorageFailure),
			},
			EventName: EventLogout,
			Errors: flows.LogoutErrors{
				NotReady: ErrStoreNotReady,
				Storage:  ErrStorage,
			},
		},
	}
}

func (s *Store) transition(_ context.Context, fn func() error) error {
	s.transitionMu.Lock()
	defer s.transitionMu.Unlock()
	return fn()
}

func (s *Store) generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Generation
}

func (s *Store) markLoggedIn() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LoggedIn = true
	s.state.Generation++
	s.state.UpdatedAt = s.clock()
	return s.state.Generation
}

func (s *Store) setLoggedIn(v bool) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.LoggedIn != v {
		s.state.LoggedIn = v
		s.state.Generation++
		s.state.UpdatedAt = s.clock()
	}
	return s.state.Generation
}

func (s *Store) reset() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LoggedIn = false
	s.state.Snapshot = votes.Empty()
	s.state.Generation++
	s.state.UpdatedAt = s.clock()
	return s.state.Generation
}

// rollbackLogin undoes the login that produced generation: the token is
// removed and the flag cleared. The snapshot is left as it was, since the
// failed fetch never replaced it. A later transition wins; in that case
// nothing is undone.
func (s *Store) rollbackLogin(ctx context.Context, generation uint64) (bool, error) {
	var undone bool
	err := s.transition(ctx, func() error {
		if s.generation() != generation {
			return nil
		}
		removeErr := s.tokens.Remove(ctx)
		s.setLoggedIn(false)
		undone = true
		return removeErr
	})
	return undone, err
}

func (s *Store) commitSnapshot(generation uint64, snap votes.Snapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Generation != generation {
		return false
	}
	s.state.Snapshot = snap.Clone()
	s.state.UpdatedAt = s.clock()
	return true
}

// request issues the API call. Concurrent calls for the same token share one
// round trip when CoalesceFetches is set. The shared request is detached from
// every caller's cancellation and bounded only by Config.API.Timeout; each
// caller stops waiting when its own context is done.
func (s *Store) request(ctx context.Context, token string) (remote.Result, error) {
	if !s.config.Session.CoalesceFetches {
		return s.client.FetchVotesAndRatings(ctx, token)
	}
	if err := ctx.Err(); err != nil {
		return remote.Result{}, &remote.TransportError{Err: err}
	}
	ch := s.inflight.DoChan(token, func() (interface{}, error) {
		shared := context.WithoutCancel(ctx)
		if timeout := s.config.API.Timeout; timeout > 0 {
			var cancel context.CancelFunc
			shared, cancel = context.WithTimeout(shared, timeout)
			defer cancel()
		}
		return s.client.FetchVotesAndRatings(shared, token)
	})

	select {
	case <-ctx.Done():
		return remote.Result{}, &remote.TransportError{Err: ctx.Err()}
	case r := <-ch:
		if r.Err != nil {
			return remote.Result{}, r.Err
		}
		res := r.Val.(remote.Result)
		if r.Shared {
			res.Snapshot = res.Snapshot.Clone()
		}
		return res, nil
	}
}

func (s *Store) observeLatency(d time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.Observe(MetricFetchLatency, d)
}

func (s *Store) tokenExpired(token string) bool {
	claims, err := s.inspector.Inspect(token)
	if err != nil {
		return false
	}
	return claims.Expired(s.clock(), s.config.Session.ClockSkew)
}

func mapFetchError(err error) error {
	var se *remote.StatusError
	if errors.As(err, &se) {
		return &APIError{
			StatusCode: se.StatusCode,
			Body:       se.Body,
			RequestID:  se.RequestID,
			Cause:      se.DecodeErr,
		}
	}
	var te *remote.TransportError
	if errors.As(err, &te) {
		return &NetworkError{RequestID: te.RequestID, Err: te.Err}
	}
	return &NetworkError{Err: err}
}
