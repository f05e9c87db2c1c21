package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
	// Logger receives sink panics. Defaults to log.Root().
	Logger log.Logger
}

// Dispatcher relays events to a sink from a single goroutine, so sinks see
// events in emission order.
type Dispatcher struct {
	cfg       Config
	sink      Sink
	logger    log.Logger
	queue     chan Event
	stop      chan struct{}
	drained   chan struct{}
	dropped   atomic.Uint64
	failed    atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewDispatcher returns nil when cfg is disabled. A nil *Dispatcher accepts
// every call as a no-op.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Root()
	}

	d := &Dispatcher{
		cfg:     cfg,
		sink:    sink,
		logger:  logger,
		queue:   make(chan Event, cfg.BufferSize),
		stop:    make(chan struct{}),
		drained: make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer close(d.drained)

	for {
		select {
		case event := <-d.queue:
			d.deliver(event)
		case <-d.stop:
			for len(d.queue) > 0 {
				d.deliver(<-d.queue)
			}
			return
		}
	}
}

// deliver isolates the loop from a panicking sink; the event counts as failed.
func (d *Dispatcher) deliver(event Event) {
	defer func() {
		if r := recover(); r != nil {
			d.failed.Add(1)
			d.logger.Error("Audit sink panicked", "event", event.EventType, "id", event.ID, "panic", r)
		}
	}()
	d.sink.Emit(context.Background(), event)
}

// Emit stamps missing ID and Timestamp fields and queues the event. With
// DropIfFull a full queue drops the event; otherwise Emit waits for space,
// ctx cancellation or Close.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	if d.cfg.DropIfFull {
		select {
		case d.queue <- event:
		case <-d.stop:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.dropped.Add(1)
	case <-d.stop:
	}
}

// Close stops accepting events and waits until queued events are delivered.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.stop)
		<-d.drained
	})
}

// Dropped counts events never queued.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Failed counts events whose sink panicked.
func (d *Dispatcher) Failed() uint64 {
	if d == nil {
		return 0
	}
	return d.failed.Load()
}
