// Package internal holds helpers that are private to goSession.
//
// # Sub-packages
//
//   - events: async event dispatch (Dispatcher and Sink implementations)
//   - flows: login, logout, status and fetch orchestration over injected deps
//   - remote: the votes API client
//
// # What this package must NOT do
//
//   - Export types that appear in the public goSession API.
//   - Be imported by any package outside the goSession module.
package internal
