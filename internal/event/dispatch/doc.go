// Package dispatch runs bus handlers one at a time in the caller's goroutine.
//
// A handler that returns an error or panics is isolated: the failure is
// captured in a Result and the caller moves on to the next handler. Delivery
// is synchronous and does not consult the context; handlers that care about
// cancellation check it themselves.
package dispatch
