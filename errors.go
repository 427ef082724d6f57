package goSession

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredential is returned by Login when the token is empty.
	ErrInvalidCredential = errors.New("invalid credential: token required")
	// ErrUnauthenticated is returned when a fetch is attempted with no durable
	// token present.
	ErrUnauthenticated = errors.New("unauthenticated: no session token")
	// ErrNetwork matches every *NetworkError.
	ErrNetwork = errors.New("network error")
	// ErrAPI matches every *APIError.
	ErrAPI = errors.New("api error")
	// ErrStorage wraps failures of the durable token store.
	ErrStorage = errors.New("token storage failure")
	// ErrSessionSuperseded is returned by a fetch whose result was discarded
	// because a login or logout happened while it was in flight.
	ErrSessionSuperseded = errors.New("session changed while request was in flight")
	// ErrStoreNotReady is returned by operations on a zero or closed Store.
	ErrStoreNotReady = errors.New("session store not initialized")
)

// APIError reports that the votes API answered with a status the store could
// not use. Body holds at most Config.API.MaxErrorBodyBytes of the response.
//
// A 2xx response whose body could not be decoded is also reported as an
// APIError, with Cause describing the decode failure.
type APIError struct {
	StatusCode int
	Body       []byte
	RequestID  string
	Cause      error
}

func (e *APIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("api error: status %d: %v", e.StatusCode, e.Cause)
	}
	if len(e.Body) > 0 {
		return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("api error: status %d", e.StatusCode)
}

// Is makes errors.Is(err, ErrAPI) true for any *APIError.
func (e *APIError) Is(target error) bool {
	return target == ErrAPI
}

func (e *APIError) Unwrap() error {
	return e.Cause
}

// NetworkError reports that no response was received from the votes API.
type NetworkError struct {
	RequestID string
	Err       error
}

func (e *NetworkError) Error() string {
	return "network error: " + e.Err.Error()
}

// Is makes errors.Is(err, ErrNetwork) true for any *NetworkError.
func (e *NetworkError) Is(target error) bool {
	return target == ErrNetwork
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
