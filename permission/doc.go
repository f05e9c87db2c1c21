// Package permission maps account capabilities to bits of a 64-bit mask and
// composes them into roles.
//
// An Account asks the RoleManager which roles grant a capability and then
// checks whether the caller holds one of them. Role membership itself (is the
// caller the owner, a guardian, the EntryPoint) is resolved by the Account.
//
// # Architecture boundaries
//
// This package is a pure in-memory data structure with no I/O. Registries and
// role managers are frozen after construction and read concurrently.
//
// # What this package must NOT do
//
//   - Access stores or the network.
//   - Import goAccount.
//   - Change bit assignments after Freeze.
package permission
