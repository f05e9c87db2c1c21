// Package goAccount implements the authorization module of an ERC-4337 smart
// account: owner control, expiring session keys, 1-of-N guardian recovery,
// EIP-191 signature validation and the EntryPoint-facing validateUserOp and
// execute entry points.
//
// An [Account] is created through [Builder.Build] and is safe to call from
// multiple goroutines. Administrative operations take the caller address
// explicitly, the way a contract sees msg.sender, and check it against the
// account's roles before touching state.
//
// # Architecture boundaries
//
// goAccount is the public surface. It exposes [Account], [Builder], [Config]
// and value types (Verdict, SessionKeyInfo, MetricsSnapshot). Persistence
// lives in the registry package, signature recovery in signer, wire encoding
// in aa and capability tables in permission. Audit dispatch lives under
// internal/ and is never exported.
//
// # What this package must NOT do
//
//   - Return an error from signature validation for a signature that simply
//     does not match. A mismatch is a normal negative verdict.
//   - Rewrite the revert payload of a failed call.
//   - Leave partial state behind when an administrative call or a batch fails.
//   - Import any sub-package that re-imports goAccount (no import cycles).
//
// # Performance contract
//
// ValidateSignature is the hot path: one signature recovery and at most two
// store reads. Administrative calls perform one guarded store mutation each.
package goAccount
