package telemetry

import (
	"context"
	"sync"

	"github.com/wolfman30/flymebot/pkg/logging"
)

// DropCounter is told about events dropped because the buffer was full.
type DropCounter interface {
	ObserveTelemetryDropped()
}

// Async decouples Track from a slow sink with a bounded buffer. When the
// buffer is full the event is dropped.
type Async struct {
	next    Sink
	queue   chan asyncEvent
	logger  *logging.Logger
	dropped DropCounter

	wg        sync.WaitGroup
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

type asyncEvent struct {
	ctx context.Context
	evt Event
}

// AsyncOption configures an Async sink.
type AsyncOption func(*Async)

// WithDropCounter reports dropped events.
func WithDropCounter(c DropCounter) AsyncOption {
	return func(a *Async) {
		a.dropped = c
	}
}

// NewAsync starts a single delivery goroutine in front of next.
func NewAsync(next Sink, buffer int, logger *logging.Logger, opts ...AsyncOption) *Async {
	if buffer <= 0 {
		buffer = 256
	}
	if logger == nil {
		logger = logging.Default()
	}
	a := &Async{
		next:   next,
		queue:  make(chan asyncEvent, buffer),
		logger: logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.wg.Add(1)
	go a.loop()
	return a
}

func (a *Async) Track(ctx context.Context, evt Event) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return
	}
	select {
	case a.queue <- asyncEvent{ctx: context.WithoutCancel(ctx), evt: stamp(evt)}:
	default:
		a.logger.Warn("telemetry: buffer full, dropping event", "event", evt.Name)
		if a.dropped != nil {
			a.dropped.ObserveTelemetryDropped()
		}
	}
}

// Close stops accepting events and waits for the buffer to drain or ctx to
// expire.
func (a *Async) Close(ctx context.Context) error {
	a.closeOnce.Do(func() {
		a.mu.Lock()
		a.closed = true
		close(a.queue)
		a.mu.Unlock()
	})
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Async) loop() {
	defer a.wg.Done()
	for item := range a.queue {
		a.deliver(item)
	}
}

func (a *Async) deliver(item asyncEvent) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("telemetry: sink panicked", "event", item.evt.Name, "panic", r)
		}
	}()
	if a.next != nil {
		a.next.Track(item.ctx, item.evt)
	}
}
