// Package security derives an account security posture report from
// configuration and registry state.
//
// # What this package must NOT do
//
//   - Perform I/O. Callers gather the inputs.
//   - Import goAccount.
package security
