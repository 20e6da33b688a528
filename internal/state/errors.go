package state

import "errors"

var (
	// ErrInvalidPath is returned for malformed dot paths.
	ErrInvalidPath = errors.New("invalid state path")

	// ErrNilObserver is returned when subscribing a nil observer.
	ErrNilObserver = errors.New("observer cannot be nil")
)
