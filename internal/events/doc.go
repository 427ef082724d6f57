// Package events implements async dispatching of session lifecycle events.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, no-op).
//   - [Dispatcher]: buffered async relay that either drops or blocks when full.
//   - [Event]: timestamp, type, request id, outcome and metadata.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. Which events to emit is
// decided by the session Store and the flow functions.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on session logic.
//   - Import goSession or any sibling internal package.
//   - Carry token values in events.
package events
