// Package ledger is an in-memory execution target for an Account: native
// balances, per-address call handlers and a journal that supports nested
// snapshots.
//
// It stands in for a chain in tests, the simulator and the HTTP example.
// A handler error reverts every balance change made during that call, and
// RevertToSnapshot undoes everything after a snapshot, which is how batch
// execution stays all-or-nothing.
package ledger
