// Package internal holds implementation packages that are private to goAccount.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - security: account posture report rules
//
// # What this package must NOT do
//
//   - Export types that appear in the public goAccount API, except through
//     type aliases declared in the root package.
//   - Be imported by any package outside the goAccount module.
package internal
