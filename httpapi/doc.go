// Package httpapi exposes a session Store to local UI consumers over HTTP.
//
// # Routes
//
//   - GET  /session          current flag and votes snapshot
//   - GET  /session/votes    snapshot only; 401 while logged out
//   - POST /session/login    token from a JSON body or a Bearer header
//   - POST /session/logout
//   - POST /session/check    re-reads the durable token
//   - POST /session/refresh  re-fetches the snapshot
//
// Errors are JSON envelopes carrying a stable kind and the session state
// after the failed operation.
//
// # Architecture boundaries
//
// This package translates HTTP into Store calls. Session decisions belong to
// the Store.
//
// # What this package must NOT do
//
//   - Touch the token store directly.
//   - Echo the session token in any response.
package httpapi
