package router

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Component renders a view for a matched route.
type Component interface {
	Render(ctx context.Context, params Params, query Query) (string, error)
}

// Initializer is implemented by components that need a post-mount step.
type Initializer interface {
	Init(ctx context.Context, params Params, query Query) error
}

// ComponentFunc adapts a function to Component.
type ComponentFunc func(ctx context.Context, params Params, query Query) (string, error)

// Render implements Component.
func (f ComponentFunc) Render(ctx context.Context, params Params, query Query) (string, error) {
	return f(ctx, params, query)
}

// ComponentLoader resolves a view id to a component.
type ComponentLoader interface {
	Load(ctx context.Context, viewID string) (Component, error)
}

// Factory builds a component. It is called at most once per view id while the
// result is cached.
type Factory func(ctx context.Context) (Component, error)

// ViewRegistry is a ComponentLoader over registered factories. Concurrent
// loads of the same view share one factory call; successful results are
// cached.
type ViewRegistry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	cache     map[string]Component
	group     singleflight.Group
}

// NewViewRegistry creates an empty registry.
func NewViewRegistry() *ViewRegistry {
	return &ViewRegistry{
		factories: make(map[string]Factory),
		cache:     make(map[string]Component),
	}
}

// Register adds or replaces the factory for viewID and drops any cached
// instance.
func (v *ViewRegistry) Register(viewID string, f Factory) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.factories[viewID] = f
	delete(v.cache, viewID)
}

// RegisterComponent registers a ready instance.
func (v *ViewRegistry) RegisterComponent(viewID string, c Component) {
	v.Register(viewID, func(context.Context) (Component, error) { return c, nil })
}

// Has reports whether viewID has a factory.
func (v *ViewRegistry) Has(viewID string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.factories[viewID]
	return ok
}

// IDs returns the registered view ids, sorted.
func (v *ViewRegistry) IDs() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	ids := make([]string, 0, len(v.factories))
	for id := range v.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Evict drops the cached instance for viewID.
func (v *ViewRegistry) Evict(viewID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.cache, viewID)
}

// Load implements ComponentLoader.
func (v *ViewRegistry) Load(ctx context.Context, viewID string) (Component, error) {
	v.mu.RLock()
	if c, ok := v.cache[viewID]; ok {
		v.mu.RUnlock()
		return c, nil
	}
	factory, ok := v.factories[viewID]
	v.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrViewNotRegistered, viewID)
	}

	res, err, _ := v.group.Do(viewID, func() (any, error) {
		c, err := factory(ctx)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, fmt.Errorf("view %s: factory returned nil", viewID)
		}
		v.mu.Lock()
		v.cache[viewID] = c
		v.mu.Unlock()
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(Component), nil
}
