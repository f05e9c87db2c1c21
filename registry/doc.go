// Package registry persists the three authorization tables of a smart
// account: the owner record, the session-key registry and the guardian set.
//
// Every table is namespaced by the account address, so one backend can hold
// any number of accounts without their registries overlapping.
//
// # Architecture boundaries
//
// Mutations are guarded compare-and-set operations: each write re-checks the
// acting owner (or guardian) inside the same atomic unit that applies it. A
// caller that lost a race observes ErrOwnerMismatch or ErrNotGuardian instead
// of silently overwriting newer state. Three backends are provided:
//
//   - MemoryStore: process-local maps behind a mutex.
//   - RedisStore: go-redis with Lua scripts, one script per mutation.
//   - SQLStore: bun over database/sql, one transaction per mutation.
//
// # What this package must NOT do
//
//   - Decide who is authorized. Role checks belong to the Account; the store
//     only enforces that the role observed by the Account still holds.
//   - Sweep expired session keys. Expiry is evaluated by readers.
//   - Let the guardian counter drift from the number of members.
package registry
