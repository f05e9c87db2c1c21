package goAccount

import (
	"io"

	"github.com/MrEthical07/goAccount/internal/audit"
	"github.com/ethereum/go-ethereum/log"
)

// AuditEvent is one administrative audit record. Successful administration
// events are the account's observable event log.
type AuditEvent = audit.Event

// AuditSink receives audit events from the dispatcher goroutine.
type AuditSink = audit.Sink

// NoOpSink drops audit events.
type NoOpSink = audit.NoOpSink

// ChannelSink writes audit events into a buffered channel.
type ChannelSink = audit.ChannelSink

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink = audit.JSONWriterSink

// LogSink writes audit events as structured log records.
type LogSink = audit.LogSink

// MultiSink fans each audit event out to several sinks.
type MultiSink = audit.MultiSink

// NewChannelSink returns a ChannelSink with the given buffer size.
func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a sink writing newline-delimited JSON to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

// NewLogSink returns a sink logging each event to logger (log.Root() if nil).
func NewLogSink(logger log.Logger) *LogSink {
	return audit.NewLogSink(logger)
}
