// Package goSession provides a client-side session store: a logged-in flag and
// a cached snapshot of the user's votes and ratings, kept consistent with a
// bearer token persisted in durable key-value storage under the key "jwt".
//
// The package is designed to be shared by reference: [Store] methods are safe
// to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// goSession is the public surface. It exposes [Store], [Builder], [Config],
// and value types (State, Snapshot, MetricsSnapshot, TokenInfo). Flow
// orchestration, the API client and event dispatch live under internal/ and
// are never exported. Durable storage backends live in the tokenstore package.
//
// # What this package must NOT do
//
//   - Retry or back off on failed requests.
//   - Merge snapshots. A successful fetch replaces the snapshot wholesale.
//   - Log, emit or export the token value.
//   - Import any sub-package that re-imports goSession (no import cycles).
//
// # Login semantics
//
// Login is two-phase: the token is persisted and the flag set before the
// snapshot is fetched. A failed fetch is returned to the caller while the
// login stays in place. Set Config.Session.RollbackLoginOnFetchFailure to make
// Login all-or-nothing.
package goSession
