// Package app wires the pitwall runtime: one event bus, one state store and
// one router, built from a config.Config and owned by whoever calls New.
// There are no package-level instances; components that need the runtime are
// handed the *Runtime or the piece of it they use.
//
// New also installs the built-in navigation hooks:
//
//	auth-guard    redirects routes marked requires_auth to the login route
//	              unless auth.isAuthenticated is true
//	route-mirror  writes router.current, router.params and router.query
//	              into the store in one batch
//	page-view     logs every completed navigation
//
// and mirrors the router's loading indicator into ui.loading. Start binds the
// DefaultBindings backend collections into the store; Stop ends them.
package app
