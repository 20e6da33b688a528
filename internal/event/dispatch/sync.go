package dispatch

import (
	"context"
	"runtime/debug"
	"sync/atomic"
	"time"
)

// SyncDispatcher calls handlers in the caller's goroutine and keeps counters.
type SyncDispatcher struct {
	onPanic PanicHandler

	dispatched  atomic.Uint64
	failed      atomic.Uint64
	panicked    atomic.Uint64
	totalTimeNs atomic.Int64
}

// SyncOption configures a SyncDispatcher.
type SyncOption func(*SyncDispatcher)

// WithPanicHandler sets the function told about recovered panics.
func WithPanicHandler(h PanicHandler) SyncOption {
	return func(d *SyncDispatcher) {
		d.onPanic = h
	}
}

// NewSyncDispatcher creates a synchronous dispatcher.
func NewSyncDispatcher(opts ...SyncOption) *SyncDispatcher {
	d := &SyncDispatcher{}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch calls handler with event, recovering a panic into the Result.
func (d *SyncDispatcher) Dispatch(ctx context.Context, event any, handler Handler) (result Result) {
	d.dispatched.Add(1)
	start := time.Now()

	defer func() {
		result.Duration = time.Since(start)
		d.totalTimeNs.Add(result.Duration.Nanoseconds())

		if v := recover(); v != nil {
			result.Error = nil
			result.Panicked = true
			result.PanicValue = v
			result.PanicStack = debug.Stack()
			d.panicked.Add(1)
			d.notify(event, handler, v, result.PanicStack)
			return
		}
		if result.Error != nil {
			d.failed.Add(1)
		}
	}()

	result.Error = handler.Handle(ctx, event)
	return result
}

// notify calls the panic handler. A panicking panic handler must not take the
// publisher down with it.
func (d *SyncDispatcher) notify(event any, handler Handler, v any, stack []byte) {
	if d.onPanic == nil {
		return
	}
	defer func() { _ = recover() }()
	d.onPanic(event, handler, v, stack)
}

// Stats is a snapshot of the dispatcher counters.
type Stats struct {
	Dispatched  uint64
	Failed      uint64
	Panicked    uint64
	AvgDuration time.Duration
}

// Stats returns the counters. They are read without a lock and may be
// slightly inconsistent under concurrent dispatch.
func (d *SyncDispatcher) Stats() Stats {
	n := d.dispatched.Load()
	var avg time.Duration
	if n > 0 {
		avg = time.Duration(d.totalTimeNs.Load() / int64(n))
	}
	return Stats{
		Dispatched:  n,
		Failed:      d.failed.Load(),
		Panicked:    d.panicked.Load(),
		AvgDuration: avg,
	}
}
