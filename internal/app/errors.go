package app

import (
	"errors"
	"fmt"
)

// Runtime errors.
var (
	// ErrAlreadyRunning indicates Start was called twice.
	ErrAlreadyRunning = errors.New("runtime already running")

	// ErrNotRunning indicates an operation that needs a started runtime.
	ErrNotRunning = errors.New("runtime not running")
)

// InitError reports a component that could not be built.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("init %s: %v", e.Component, e.Err)
}

func (e *InitError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
