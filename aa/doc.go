// Package aa holds the ERC-4337 wire types an account exchanges with its
// EntryPoint: the UserOperation record, its canonical hash, the packed
// validationData word returned from validateUserOp and revert payloads.
//
// # Architecture boundaries
//
// This package is pure encoding. It does NOT recover signatures, read account
// state or decide whether an operation is authorized; those responsibilities
// belong to the Account in the root package.
//
// # What this package must NOT do
//
//   - Import goAccount or any store implementation.
//   - Change the bit layout of validationData. It is pinned by the EntryPoint
//     contract (aggregator | validUntil<<160 | validAfter<<208).
package aa
