package router

import (
	"fmt"
	"sync"
)

// Table holds registered routes. Lookups are safe for concurrent use.
type Table struct {
	mu      sync.RWMutex
	routes  []*Route
	static  map[string]*Route
	dynamic []*Route
	byName  map[string]*Route
	frozen  bool
}

// NewTable creates an empty route table.
func NewTable() *Table {
	return &Table{
		static: make(map[string]*Route),
		byName: make(map[string]*Route),
	}
}

// Register validates and adds a route. The descriptor is copied.
func (t *Table) Register(route Route) error {
	r := route.clone()
	if err := r.compile(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.frozen {
		return ErrRouterStarted
	}
	if r.Name != "" {
		if _, dup := t.byName[r.Name]; dup {
			return fmt.Errorf("%w: name %q", ErrDuplicateRoute, r.Name)
		}
		t.byName[r.Name] = r
	}

	t.routes = append(t.routes, r)
	if r.IsDynamic() {
		t.dynamic = append(t.dynamic, r)
	} else if _, exists := t.static[r.Pattern]; !exists {
		t.static[r.Pattern] = r
	}
	return nil
}

// Match finds the route for a pathname. A static route equal to the path is
// preferred; otherwise the first dynamic route in registration order wins.
func (t *Table) Match(pathname string) (*Route, Params, bool) {
	norm := normalizePath(pathname)

	t.mu.RLock()
	defer t.mu.RUnlock()

	if r, ok := t.static[norm]; ok {
		return r, Params{}, true
	}

	segments := splitSegments(norm)
	for _, r := range t.dynamic {
		if params, ok := r.match(segments); ok {
			return r, params, true
		}
	}
	return nil, nil, false
}

// ByName returns the route registered under name.
func (t *Table) ByName(name string) (*Route, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.byName[name]
	return r, ok
}

// Routes returns the routes in registration order.
func (t *Table) Routes() []*Route {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*Route, len(t.routes))
	copy(out, t.routes)
	return out
}

// Len returns the number of registered routes.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.routes)
}

func (t *Table) freeze() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frozen = true
}
