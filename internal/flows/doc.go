// Package flows contains pure-function orchestrators for every Store operation.
//
// Each flow function (RunLogin, RunLogout, RunCheckStatus, RunFetch) accepts a
// typed dependency struct and returns results without side-effects beyond
// those dependencies. The Store stays thin and every branch can be unit
// tested with plain function fakes.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the token store, the remote API client,
// the event dispatcher and metrics. They do NOT own any of these resources.
// Ownership stays with the Store, which also owns the in-memory session state
// and the lock behind [Transition].
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goSession (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency callbacks.
//   - Log or emit token values.
package flows
