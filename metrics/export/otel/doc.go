// Package otel publishes account counters and histograms through an
// OpenTelemetry Meter.
//
// [NewExporter] registers an Int64ObservableCounter per counter and an
// Int64ObservableGauge per histogram bucket. A single callback reads every
// account's MetricsSnapshot on each collection cycle and tags observations
// with the account address.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate account state.
package otel
