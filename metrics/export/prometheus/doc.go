// Package prometheus renders account metrics in Prometheus text exposition
// format.
//
// [NewExporter] accepts any number of accounts and exposes an [http.Handler].
// Series are named goaccount_*_total plus the goaccount_validate_latency_seconds
// histogram, and each sample is labelled with the account address.
//
// # What this package must NOT do
//
//   - Register metrics in a global registry. Callers mount the Handler.
//   - Mutate account state.
package prometheus
