package event

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dshills/pitwall/internal/event/dispatch"
)

// Bus is the process-wide synchronous event dispatcher.
type Bus struct {
	registry   *Registry
	dispatcher *dispatch.SyncDispatcher
	logger     *slog.Logger

	eventsEmitted atomic.Uint64
	eventsDropped atomic.Uint64
}

// NewBus creates a new event bus with the given options.
func NewBus(opts ...BusOption) *Bus {
	config := defaultBusConfig()
	for _, opt := range opts {
		opt(&config)
	}

	b := &Bus{
		registry: NewRegistry(),
		logger:   config.logger.With("component", "event"),
	}
	b.dispatcher = dispatch.NewSyncDispatcher(dispatch.WithPanicHandler(b.logPanic))
	return b
}

// On registers handler for channel and returns its subscription id.
func (b *Bus) On(channel Channel, handler Handler) (SubscriptionID, error) {
	if channel == "" {
		return "", ErrInvalidChannel
	}
	if handler == nil {
		return "", ErrNilHandler
	}
	return b.registry.add(channel, handler, false).id, nil
}

// OnFunc is On for a plain function.
func (b *Bus) OnFunc(channel Channel, fn func(ctx context.Context, evt Event) error) (SubscriptionID, error) {
	if fn == nil {
		return "", ErrNilHandler
	}
	return b.On(channel, HandlerFunc(fn))
}

// Once registers a handler that is removed before its first delivery runs.
func (b *Bus) Once(channel Channel, handler Handler) (SubscriptionID, error) {
	if channel == "" {
		return "", ErrInvalidChannel
	}
	if handler == nil {
		return "", ErrNilHandler
	}
	return b.registry.add(channel, handler, true).id, nil
}

// Off removes a subscription. It reports whether one was removed.
func (b *Bus) Off(id SubscriptionID) bool {
	return b.registry.remove(id)
}

// Emit delivers payload to every handler on channel, synchronously and in
// registration order. Handler failures are logged and do not stop delivery.
// ctx is passed to handlers but does not stop delivery once Emit is called.
func (b *Bus) Emit(ctx context.Context, channel Channel, payload any, meta ...map[string]any) Report {
	subs := b.registry.snapshot(channel)
	if len(subs) == 0 {
		b.eventsDropped.Add(1)
		return Report{}
	}
	b.eventsEmitted.Add(1)

	evt := Event{
		Channel:   channel,
		Payload:   payload,
		Timestamp: time.Now(),
	}
	if len(meta) > 0 {
		evt.Meta = mergeMeta(meta)
	}

	var report Report
	for _, sub := range subs {
		if sub.cancelled.Load() {
			continue
		}
		if sub.once {
			// Remove first so a re-entrant Emit cannot deliver twice.
			if !b.registry.remove(sub.id) {
				continue
			}
		}

		result := b.dispatcher.Dispatch(ctx, evt, adapter{sub: sub})
		report.Handlers++
		if !result.Failed() {
			continue
		}
		report.Failed++
		if result.Error != nil {
			err := &HandlerError{SubscriptionID: sub.id, Channel: channel, Err: result.Error}
			b.logger.Warn("event handler failed", "channel", channel, "subscription", sub.id, "error", err)
		}
	}
	return report
}

// HandlerCount returns the number of handlers on channel.
func (b *Bus) HandlerCount(channel Channel) int {
	return b.registry.Count(channel)
}

// Channels returns the channels that currently have handlers.
func (b *Bus) Channels() []Channel {
	return b.registry.Channels()
}

// Clear removes every subscription.
func (b *Bus) Clear() {
	b.registry.clear()
}

// Stats contains bus statistics.
type Stats struct {
	EventsEmitted   uint64
	EventsDropped   uint64
	HandlerRuns     uint64
	HandlerErrors   uint64
	HandlerPanics   uint64
	AvgDeliveryTime time.Duration
}

// Stats returns a snapshot of the bus counters.
func (b *Bus) Stats() Stats {
	d := b.dispatcher.Stats()
	return Stats{
		EventsEmitted:   b.eventsEmitted.Load(),
		EventsDropped:   b.eventsDropped.Load(),
		HandlerRuns:     d.Dispatched,
		HandlerErrors:   d.Failed,
		HandlerPanics:   d.Panicked,
		AvgDeliveryTime: d.AvgDuration,
	}
}

func (b *Bus) logPanic(evt any, h dispatch.Handler, value any, stack []byte) {
	e, _ := evt.(Event)
	err := &PanicError{Channel: e.Channel, Value: value, Stack: string(stack)}
	if a, ok := h.(adapter); ok {
		err.SubscriptionID = a.sub.id
	}
	b.logger.Error("event handler panicked", "channel", e.Channel, "subscription", err.SubscriptionID, "error", err)
}

// adapter bridges a subscription's Handler to dispatch.Handler.
type adapter struct {
	sub *subscription
}

func (a adapter) Handle(ctx context.Context, evt any) error {
	return a.sub.handler.Handle(ctx, evt.(Event))
}

func mergeMeta(meta []map[string]any) map[string]any {
	if len(meta) == 1 {
		return meta[0]
	}
	merged := make(map[string]any)
	for _, m := range meta {
		for k, v := range m {
			merged[k] = v
		}
	}
	return merged
}
