package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull makes Emit non-blocking; events that do not fit are counted
	// and passed to OnDrop.
	DropIfFull bool
	OnDrop     func(Event)
}

// Dispatcher forwards events to a sink from a single background goroutine.
// A nil *Dispatcher is valid and discards everything.
type Dispatcher struct {
	cfg     Config
	sink    Sink
	queue   chan Event
	stop    chan struct{}
	wg      sync.WaitGroup
	dropped atomic.Uint64
	closed  atomic.Bool
	once    sync.Once
}

// NewDispatcher returns nil when cfg is disabled.
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
		cfg:   cfg,
		sink:  sink,
		queue: make(chan Event, cfg.BufferSize),
		stop:  make(chan struct{}),
	}

	d.wg.Add(1)
	go d.loop()

	return d
}

func (d *Dispatcher) loop() {
	defer d.wg.Done()

	ctx := context.Background()
	for {
		select {
		case event := <-d.queue:
			d.sink.Emit(ctx, event)
		case <-d.stop:
			d.drain(ctx)
			return
		}
	}
}

func (d *Dispatcher) drain(ctx context.Context) {
	for {
		select {
		case event := <-d.queue:
			d.sink.Emit(ctx, event)
		default:
			return
		}
	}
}

// Enabled reports whether Emit delivers anything.
func (d *Dispatcher) Enabled() bool {
	return d != nil && !d.closed.Load()
}

// Emit queues event. It blocks on a full queue unless DropIfFull is set, in
// which case the event is dropped.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if !d.Enabled() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.cfg.DropIfFull {
		select {
		case d.queue <- event:
		case <-d.stop:
		default:
			d.dropped.Add(1)
			if d.cfg.OnDrop != nil {
				d.cfg.OnDrop(event)
			}
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
	case <-d.stop:
	}
}

// Close delivers queued events and stops the dispatcher. Later Emits are
// ignored.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.once.Do(func() {
		d.closed.Store(true)
		close(d.stop)
		d.wg.Wait()
	})
}

// Dropped counts events discarded because the queue was full.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
