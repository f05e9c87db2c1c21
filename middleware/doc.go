// Package middleware exposes HTTP middleware that admits requests carrying a
// signed session grant issued by an Account.
//
// # Guards
//
//   - [Guard]: selects the check from a [Mode].
//   - [RequireGrantOnly]: signature, lifetime and account binding, no registry read.
//   - [RequireLiveGrant]: as above plus a registry check that the session key is live.
//
// Each guard reads the Authorization header, delegates to the account, and
// injects the verified claims into the request context.
//
// # What this package must NOT do
//
//   - Parse or create grants directly (delegates to the account).
//   - Access the registry store itself.
package middleware
