package router

// NavigationContext is the working record of one navigation attempt. The
// current route is the context of the last successful navigation.
type NavigationContext struct {
	Pathname string
	Search   string
	Route    *Route
	Params   Params
	Query    Query
	FullPath string
}

// Name returns the matched route's name, or "" when there is none.
func (c *NavigationContext) Name() string {
	if c == nil || c.Route == nil {
		return ""
	}
	return c.Route.Name
}

// Status is the outcome of a Navigate call.
type Status int

const (
	// StatusCompleted means the route was committed and rendered.
	StatusCompleted Status = iota
	// StatusCancelled means a hook, middleware or the caller's context stopped it.
	StatusCancelled
	// StatusRedirected means a hook redirected and the redirect target completed.
	StatusRedirected
	// StatusNotFound means no route matched and the not-found route was shown.
	StatusNotFound
	// StatusSuperseded means a newer navigation started before this one finished.
	StatusSuperseded
	// StatusFailed means loading or rendering failed and the inline error view is shown.
	StatusFailed
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	case StatusRedirected:
		return "redirected"
	case StatusNotFound:
		return "not_found"
	case StatusSuperseded:
		return "superseded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result reports what a Navigate call did.
type Result struct {
	Status Status
	// Route is the context the navigation ended on, if it got that far.
	Route *NavigationContext
	// Requested is the path Navigate was called with.
	Requested string
	// Err explains StatusFailed and StatusCancelled by context; nil otherwise.
	Err error
}

// OK reports whether the navigation landed on a route.
func (r Result) OK() bool {
	switch r.Status {
	case StatusCompleted, StatusRedirected, StatusNotFound:
		return true
	default:
		return false
	}
}

// State is the router's lifecycle state.
type State int32

const (
	// StateIdle means no navigation is in flight and none has settled.
	StateIdle State = iota
	// StateNavigating means a pipeline is running.
	StateNavigating
	// StateSettled means the current route reflects the last navigation.
	StateSettled
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateNavigating:
		return "navigating"
	case StateSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// RouteChange is the payload of the routeChange bus event.
type RouteChange struct {
	Route         *NavigationContext
	PreviousRoute *NavigationContext
}
