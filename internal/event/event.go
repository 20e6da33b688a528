package event

import (
	"context"
	"time"
)

// Channel names a stream of events on the bus.
type Channel string

// Channels used by the runtime core.
const (
	ChannelStateChanged      Channel = "state.changed"
	ChannelStateBatchChanged Channel = "state.batch_changed"
	ChannelRouteChange       Channel = "routeChange"
)

// String returns the channel name.
func (c Channel) String() string { return string(c) }

// Event is what handlers receive.
type Event struct {
	Channel   Channel
	Payload   any
	Meta      map[string]any
	Timestamp time.Time
}

// Handler processes events delivered by the bus.
type Handler interface {
	Handle(ctx context.Context, evt Event) error
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, evt Event) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, evt Event) error {
	return f(ctx, evt)
}

// Emitter is the publishing side of the bus. The store and router depend on
// this rather than on *Bus.
type Emitter interface {
	Emit(ctx context.Context, channel Channel, payload any, meta ...map[string]any) Report
}

// Report summarises one Emit call.
type Report struct {
	// Handlers is the number of handlers that were invoked.
	Handlers int
	// Failed is the number of handlers that returned an error or panicked.
	Failed int
}
