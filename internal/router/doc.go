// Package router maps URL paths to views and runs the navigation pipeline.
//
// # Routes
//
// A route pattern is a slash-delimited template. A segment starting with ':'
// is a named parameter and matches any single path segment; every other
// segment must match literally. Segment counts must be equal, so
// "/drivers/:driverId" matches "/drivers/42" but neither "/drivers" nor
// "/drivers/42/laps". A route without parameters that equals the path wins
// over any dynamic route; otherwise the first dynamic route in registration
// order wins.
//
// # Pipeline
//
// Navigate runs, in order:
//
//	parse       split path and query string (last value wins)
//	match       find the route; no match redirects to the not-found route
//	before      BeforeEach hooks, in registration order
//	middleware  router middleware, in registration order
//	commit      push or replace the history entry, set the title and the current route
//	render      load the view, render it into the target, call Init
//	after       AfterEach hooks
//	broadcast   emit routeChange on the bus
//
// A hook returning Cancel aborts the navigation with nothing changed. A hook
// returning Redirect restarts the pipeline for another path. A panic in any
// step triggers one fallback navigation to the error route; a failure inside
// that fallback renders the inline error view and stops.
//
// # Overlapping navigations
//
// Each Navigate call takes a generation token. A call that has not committed
// yet gives up as soon as a newer call starts and returns Superseded without
// touching history, title, current route or the render target. Once a call
// commits it owns the render target until a newer call commits, so a newer
// call that is cancelled or redirected away does not leave the committed
// route half rendered. The router leaves the Navigating state when the last
// call in flight returns.
package router
