package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/goSession/internal/remote"
	"github.com/MrEthical07/goSession/votes"
)

// Deps groups flow dependency sets. The root Store builds this once and
// delegates each operation to the matching flow implementation.
type Deps struct {
	Login  LoginDeps
	Logout LogoutDeps
	Status StatusDeps
	Fetch  FetchDeps
}

// Transition runs fn while no other state transition can interleave.
type Transition func(ctx context.Context, fn func() error) error

// EmitEvent publishes one session event. meta is evaluated lazily so
// disabled sinks cost nothing.
type EmitEvent func(ctx context.Context, eventType string, success bool, requestID string, err error, meta func() map[string]string)

// FetchMetrics carries metric IDs used by the fetch flow.
type FetchMetrics struct {
	Success         int
	Unauthenticated int
	NetworkError    int
	APIError        int
	Superseded      int
	StorageFailure  int
}

// FetchErrors carries host-level sentinel errors used by the fetch flow.
type FetchErrors struct {
	NotReady        error
	Unauthenticated error
	Storage         error
	Superseded      error
}

// FetchDeps captures fetch flow dependencies.
type FetchDeps struct {
	Generation     func() uint64
	LoadToken      func(context.Context) (string, error)
	Request        func(context.Context, string) (remote.Result, error)
	Commit         func(generation uint64, snap votes.Snapshot) bool
	MapFetchError  func(error) error
	ObserveLatency func(time.Duration)

	MetricInc func(int)
	EmitEvent EmitEvent
	Warn      func(string, ...any)

	Metrics   FetchMetrics
	EventName string
	Errors    FetchErrors
}

// LoginMetrics carries metric IDs used by the login flow.
type LoginMetrics struct {
	Success           int
	Failure           int
	InvalidCredential int
	StorageFailure    int
	RolledBack        int
}

// LoginErrors carries host-level sentinel errors used by the login flow.
type LoginErrors struct {
	NotReady          error
	InvalidCredential error
	Storage           error
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	RollbackOnFetchFailure bool

	Transition Transition
	SaveToken  func(context.Context, string) error
	// MarkLoggedIn flips the in-memory flag and returns the new generation.
	MarkLoggedIn func() uint64
	// Rollback undoes a login when generation is still current. It reports
	// whether anything was undone.
	Rollback func(ctx context.Context, generation uint64) (bool, error)
	Fetch    func(context.Context) (votes.Snapshot, error)

	MetricInc func(int)
	EmitEvent EmitEvent
	Warn      func(string, ...any)

	Metrics   LoginMetrics
	EventName string
	Errors    LoginErrors
}

// LogoutMetrics carries metric IDs used by the logout flow.
type LogoutMetrics struct {
	Logout         int
	StorageFailure int
}

// LogoutErrors carries host-level sentinel errors used by the logout flow.
type LogoutErrors struct {
	NotReady error
	Storage  error
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	Transition  Transition
	RemoveToken func(context.Context) error
	Reset       func() uint64

	MetricInc func(int)
	EmitEvent EmitEvent
	Warn      func(string, ...any)

	Metrics   LogoutMetrics
	EventName string
	Errors    LogoutErrors
}

// StatusMetrics carries metric IDs used by the status flow.
type StatusMetrics struct {
	LoggedIn       int
	LoggedOut      int
	ExpiredToken   int
	StorageFailure int
}

// StatusErrors carries host-level sentinel errors used by the status flow.
type StatusErrors struct {
	NotReady error
	Storage  error
}

// StatusDeps captures check-login-status flow dependencies.
type StatusDeps struct {
	Transition  Transition
	LoadToken   func(context.Context) (string, error)
	RemoveToken func(context.Context) error
	// TokenExpired is nil unless expired tokens should be discarded.
	TokenExpired func(string) bool
	SetLoggedIn  func(bool) uint64
	Fetch        func(context.Context) (votes.Snapshot, error)

	MetricInc func(int)
	EmitEvent EmitEvent
	Warn      func(string, ...any)

	Metrics   StatusMetrics
	EventName string
	Errors    StatusErrors
}

func noopMetric(int) {}

func noopEmit(context.Context, string, bool, string, error, func() map[string]string) {}

func noopWarn(string, ...any) {}
