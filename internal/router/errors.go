package router

import (
	"errors"
	"fmt"
)

// Sentinel errors for the router.
var (
	// ErrRouteNotFound is reported when no route matches a path or name.
	ErrRouteNotFound = errors.New("route not found")

	// ErrMissingParam is reported by BuildURL when a pattern parameter has no value.
	ErrMissingParam = errors.New("missing route parameter")

	// ErrInvalidRoute is returned when a route descriptor fails validation.
	ErrInvalidRoute = errors.New("invalid route")

	// ErrDuplicateRoute is returned when a route name is registered twice.
	ErrDuplicateRoute = errors.New("duplicate route")

	// ErrRouterStarted is returned when routes are registered after Start.
	ErrRouterStarted = errors.New("router already started")

	// ErrViewNotRegistered is returned by the view registry for unknown view ids.
	ErrViewNotRegistered = errors.New("view not registered")

	// ErrTooManyRedirects stops redirect chains between hooks.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrNavigationPanic wraps a panic recovered inside the pipeline.
	ErrNavigationPanic = errors.New("navigation panicked")
)

// NavigationError describes a failure in one pipeline step.
type NavigationError struct {
	Op   string // pipeline step, e.g. "load", "render", "init"
	Path string // requested path
	Err  error
}

// Error implements error.
func (e *NavigationError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("navigate %s: %s: %v", e.Path, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *NavigationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
