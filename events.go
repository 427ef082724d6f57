package goSession

import (
	"context"
	"errors"
	"io"
	"time"

	internalevents "github.com/MrEthical07/goSession/internal/events"
)

// Event is one session lifecycle record. Token values are never included.
type Event = internalevents.Event

// EventSink receives events from the async dispatcher.
type EventSink = internalevents.Sink

// NoOpSink drops every event.
type NoOpSink = internalevents.NoOpSink

// ChannelSink delivers events on a buffered channel.
type ChannelSink = internalevents.ChannelSink

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink = internalevents.JSONWriterSink

// NewChannelSink returns a ChannelSink with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	return internalevents.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a sink writing JSON lines to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalevents.NewJSONWriterSink(w)
}

const (
	// EventLogin is emitted once per Login call.
	EventLogin = "login"
	// EventLogout is emitted once per Logout call.
	EventLogout = "logout"
	// EventStatusCheck is emitted once per CheckLoginStatus call.
	EventStatusCheck = "status_check"
	// EventFetch is emitted once per fetch, including the fetch run by Login
	// and CheckLoginStatus.
	EventFetch = "fetch"
)

// EventErrorCode is the stable error classification carried in Event.Error.
type EventErrorCode string

const (
	eventErrInvalidCredential EventErrorCode = "invalid_credential"
	eventErrUnauthenticated   EventErrorCode = "unauthenticated"
	eventErrNetwork           EventErrorCode = "network_error"
	eventErrAPI               EventErrorCode = "api_error"
	eventErrStorage           EventErrorCode = "storage_failure"
	eventErrSuperseded        EventErrorCode = "superseded"
	eventErrNotReady          EventErrorCode = "not_ready"
	eventErrInternal          EventErrorCode = "internal_error"
)

func (s *Store) emitEvent(
	ctx context.Context,
	eventType string,
	success bool,
	requestID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if s == nil || s.events == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}
	if caller := callerFromContext(ctx); caller != "" {
		if metadata == nil {
			metadata = map[string]string{}
		}
		metadata["caller"] = caller
	}
	if ip := clientIPFromContext(ctx); ip != "" {
		if metadata == nil {
			metadata = map[string]string{}
		}
		metadata["client_ip"] = ip
	}

	s.mu.RLock()
	loggedIn, generation := s.state.LoggedIn, s.state.Generation
	s.mu.RUnlock()

	event := Event{
		Timestamp:  time.Now().UTC(),
		EventType:  eventType,
		RequestID:  requestID,
		LoggedIn:   loggedIn,
		Generation: generation,
		Success:    success,
		Metadata:   metadata,
	}
	if code := eventErrorCode(err); code != "" {
		event.Error = string(code)
	}

	s.events.Emit(ctx, event)
}

func eventErrorCode(err error) EventErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredential):
		return eventErrInvalidCredential
	case errors.Is(err, ErrUnauthenticated):
		return eventErrUnauthenticated
	case errors.Is(err, ErrNetwork):
		return eventErrNetwork
	case errors.Is(err, ErrAPI):
		return eventErrAPI
	case errors.Is(err, ErrStorage):
		return eventErrStorage
	case errors.Is(err, ErrSessionSuperseded):
		return eventErrSuperseded
	case errors.Is(err, ErrStoreNotReady):
		return eventErrNotReady
	default:
		return eventErrInternal
	}
}
