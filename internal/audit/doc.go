// Package audit implements async event dispatching for account administration.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full or block-if-full semantics.
//   - [Event]: structured record with id, timestamp, type, account, subject, actor and metadata.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which
// events to emit; the Account does.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import goAccount or any sibling internal package.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package audit
