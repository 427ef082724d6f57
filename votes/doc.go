// Package votes defines the vote and rating snapshot cached by the session store.
//
// Records are opaque JSON values: the remote API decides their shape, and the
// session layer only stores, copies and re-encodes them. A [Snapshot] groups
// records into four categories (result/warning votes, result/warning ratings)
// and is always replaced wholesale.
//
// # What this package must NOT do
//
//   - Perform I/O or know about tokens.
//   - Merge snapshots; replacement is the caller's only operation.
package votes
