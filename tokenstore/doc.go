// Package tokenstore provides durable single-key storage for the session bearer token.
//
// Every backend keeps exactly one token under a fixed key (default "jwt") and exposes
// the same three operations: Get, Set, Remove. The stored token is the single source
// of truth for whether a login was previously established.
//
// # Backends
//
//   - [Memory]: process-local, for tests and ephemeral sessions.
//   - [File]: JSON document in a user directory, atomic replace, optional fsnotify watch.
//   - [Redis]: one Redis string per key, optional TTL.
//   - [SQL]: one row in session_tokens, sqlite or postgres dialect.
//
// # Architecture boundaries
//
// This package stores the token and nothing else. It does NOT decode JWTs, track the
// logged-in flag, or talk to the remote API; those belong to the session Store.
//
// # What this package must NOT do
//
//   - Import goSession (no upward imports).
//   - Register database drivers; callers import the driver they use.
//   - Log or print token values.
package tokenstore
