// Package grant issues and parses signed off-chain session grants.
//
// A grant is a JWT asserting that a session key is registered on an account.
// Its expiry never exceeds the session key's on-chain expiry. A grant is only
// a bearer hint: consumers must re-check the key against the account registry,
// which the Account does in VerifySessionGrant, so revocation takes effect
// before the grant expires.
//
// Supported signing methods are Ed25519 (default) and HS256.
//
// # Architecture boundaries
//
// This package signs and verifies tokens. It does NOT read account state.
//
// # What this package must NOT do
//
//   - Import goAccount or any store.
//   - Accept algorithms other than the configured one.
package grant
