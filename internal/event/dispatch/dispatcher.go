package dispatch

import (
	"context"
	"time"
)

// Handler is the shape of a bus handler. It mirrors event.Handler with an
// untyped event so this package does not import its parent.
type Handler interface {
	Handle(ctx context.Context, event any) error
}

// Result is the outcome of one handler call.
type Result struct {
	// Error is what the handler returned. It is nil after a panic.
	Error error

	Panicked   bool
	PanicValue any
	PanicStack []byte

	Duration time.Duration
}

// Failed reports whether the handler returned an error or panicked.
func (r Result) Failed() bool {
	return r.Panicked || r.Error != nil
}

// PanicHandler observes a recovered panic. It gets the event, the handler that
// panicked, the panic value and the stack.
type PanicHandler func(event any, handler Handler, value any, stack []byte)
