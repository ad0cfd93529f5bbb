package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// DropReason says why an event never reached the sink.
type DropReason string

const (
	// DropBufferFull is reported when DropIfFull is set and the queue is full.
	DropBufferFull DropReason = "buffer_full"
	// DropCanceled is reported when a blocking Emit gives up on its context.
	DropCanceled DropReason = "canceled"
	// DropClosed is reported for events emitted after Close.
	DropClosed DropReason = "closed"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull makes Emit non-blocking. Otherwise Emit waits for queue space
	// until its context ends.
	DropIfFull bool
	// OnDrop runs for every discarded event.
	OnDrop func(Event, DropReason)
}

// Dispatcher forwards audit events to a sink from a single goroutine, in
// emit order. Every event is either delivered or counted as dropped.
type Dispatcher struct {
	cfg     Config
	sink    Sink
	queue   chan Event
	stopped chan struct{}

	// mu orders sends against Close so no send races the channel close.
	mu     sync.RWMutex
	closed bool

	dropped   atomic.Uint64
	closeOnce sync.Once
}

// NewDispatcher starts a dispatcher. It returns nil when cfg.Enabled is false;
// a nil *Dispatcher accepts and discards events.
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

	d := &Dispatcher{
		cfg:     cfg,
		sink:    sink,
		queue:   make(chan Event, cfg.BufferSize),
		stopped: make(chan struct{}),
	}
	go d.deliver()
	return d
}

// deliver ends once Close has closed the queue and everything queued before
// it has reached the sink.
func (d *Dispatcher) deliver() {
	defer close(d.stopped)
	for ev := range d.queue {
		d.sink.Emit(context.Background(), ev)
	}
}

// Emit queues event. Events with a zero Timestamp are stamped here.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(event, DropClosed)
		return
	}
	if d.cfg.DropIfFull {
		select {
		case d.queue <- event:
		default:
			d.drop(event, DropBufferFull)
		}
		return
	}
	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.drop(event, DropCanceled)
	}
}

func (d *Dispatcher) drop(event Event, reason DropReason) {
	d.dropped.Add(1)
	if d.cfg.OnDrop != nil {
		d.cfg.OnDrop(event, reason)
	}
}

// Close stops accepting events and waits until queued events are delivered.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()
		<-d.stopped
	})
}

// Dropped returns how many events never reached the sink.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
