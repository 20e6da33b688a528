// Package event provides the synchronous event bus shared by the runtime.
//
// The bus is a named-channel publish/subscribe dispatcher. Channels are plain
// strings with no wildcard matching; each channel keeps one handler list in
// registration order.
//
// Channels published by the runtime core:
//
//	state.changed        - a single-path store commit
//	state.batch_changed  - a batch store commit
//	routeChange          - a navigation completed
//
// # Delivery
//
// Emit runs every handler for the channel in the caller's goroutine, in
// registration order. A handler that returns an error or panics is logged and
// isolated; the remaining handlers still run. Emitting on a channel nobody
// listens to is a no-op.
//
// Handlers may call On, Off or Emit re-entrantly. The handler list is
// snapshotted before delivery and removed subscriptions are skipped.
//
// # Usage
//
//	bus := event.NewBus(event.WithLogger(logger))
//	id, _ := bus.On(event.ChannelRouteChange, event.HandlerFunc(func(ctx context.Context, evt event.Event) error {
//	    change := evt.Payload.(router.RouteChange)
//	    ...
//	    return nil
//	}))
//	defer bus.Off(id)
package event
