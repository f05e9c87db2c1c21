package audit

import (
	"context"
	"encoding/json"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
)

// Event is one account administration record. Account, Subject and Actor are
// checksummed hex addresses; Error is a stable code, never a raw message.
type Event struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	Account   string            `json:"account"`
	Subject   string            `json:"subject,omitempty"`
	Actor     string            `json:"actor,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Sink receives events from the dispatcher goroutine.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink drops events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink forwards events into a buffered channel. Emit blocks while the
// channel is full.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{events: make(chan Event, buffer)}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{writer: w}
}

func (s *JSONWriterSink) Emit(_ context.Context, event Event) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.writer.Write(data)
}

// LogSink writes events as structured log records. Rejected operations log
// at warn level.
type LogSink struct {
	logger log.Logger
}

// NewLogSink returns a LogSink writing to logger, or to log.Root() when nil.
func NewLogSink(logger log.Logger) *LogSink {
	if logger == nil {
		logger = log.Root()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Emit(_ context.Context, event Event) {
	ctx := []interface{}{"type", event.EventType, "account", event.Account}
	if event.Subject != "" {
		ctx = append(ctx, "subject", event.Subject)
	}
	if event.Actor != "" {
		ctx = append(ctx, "actor", event.Actor)
	}
	if event.RequestID != "" {
		ctx = append(ctx, "reqid", event.RequestID)
	}
	keys := make([]string, 0, len(event.Metadata))
	for k := range event.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ctx = append(ctx, k, event.Metadata[k])
	}

	if event.Success {
		s.logger.Info("Account audit", ctx...)
		return
	}
	s.logger.Warn("Account audit rejected", append(ctx, "err", event.Error)...)
}

// MultiSink fans each event out to every sink in order.
type MultiSink []Sink

func (m MultiSink) Emit(ctx context.Context, event Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(ctx, event)
		}
	}
}
