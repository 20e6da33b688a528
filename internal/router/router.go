package router

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/pitwall/internal/event"
)

// Router matches paths to routes and runs the navigation pipeline.
type Router struct {
	cfg       Config
	table     *Table
	hooks     hookManager
	loader    ComponentLoader
	target    RenderTarget
	history   HistoryProvider
	emitter   event.Emitter
	logger    *slog.Logger
	errorView ErrorView

	// gen is the token of the most recent Navigate call.
	gen   atomic.Uint64
	state atomic.Int32

	mu      sync.Mutex
	current *NavigationContext
	// committed is the token of the navigation that owns current and the
	// render target.
	committed uint64
	inflight  int
	started   bool
	stopPop   func()

	// paintMu orders writes to the render target.
	paintMu sync.Mutex
}

// New creates a router. Without options it renders into a BufferTarget, keeps
// history in a MemoryHistory and loads views from an empty ViewRegistry.
func New(opts ...Option) *Router {
	r := &Router{
		table:     NewTable(),
		logger:    slog.Default(),
		errorView: DefaultErrorView,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.cfg = r.cfg.withDefaults()
	r.logger = r.logger.With("component", "router")
	if r.loader == nil {
		r.loader = NewViewRegistry()
	}
	if r.target == nil {
		r.target = NewBufferTarget()
	}
	if r.history == nil {
		r.history = NewMemoryHistory("/")
	}
	return r
}

// Register adds a route. Routes cannot be added after Start.
func (r *Router) Register(route Route) error {
	if err := r.table.Register(route); err != nil {
		return err
	}
	r.logger.Debug("route registered", "pattern", route.Pattern, "view", route.ViewID, "name", route.Name)
	return nil
}

// Routes returns the registered routes in registration order.
func (r *Router) Routes() []*Route { return r.table.Routes() }

// Config returns the effective configuration.
func (r *Router) Config() Config { return r.cfg }

// BeforeEach registers a hook run before every commit. Registering an
// existing name replaces that hook in place.
func (r *Router) BeforeEach(name string, h Hook) { r.hooks.addBefore(name, h) }

// Use registers a router middleware. It runs after the before-hooks with the
// same contract.
func (r *Router) Use(name string, h Hook) { r.hooks.addMiddleware(name, h) }

// AfterEach registers a hook run after every rendered navigation.
func (r *Router) AfterEach(name string, h AfterHook) { r.hooks.addAfter(name, h) }

// RemoveHook removes hooks registered under name from every phase.
func (r *Router) RemoveHook(name string) bool { return r.hooks.remove(name) }

// HookNames returns hook names per phase in run order.
func (r *Router) HookNames() (before, middleware, after []string) { return r.hooks.names() }

// Start freezes the route table, follows history traversal and navigates to
// the history's current location in replace mode.
func (r *Router) Start(ctx context.Context) (Result, error) {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return Result{}, ErrRouterStarted
	}
	r.started = true
	r.table.freeze()
	r.stopPop = r.history.OnPop(func(path string) {
		r.Navigate(context.Background(), path, Replace())
	})
	r.mu.Unlock()

	r.logger.Info("router started", "routes", r.table.Len())
	return r.Navigate(ctx, r.history.Location(), Replace()), nil
}

// Stop detaches from history. Navigations in flight that have not committed
// yet are superseded; one that already committed finishes rendering.
func (r *Router) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopPop != nil {
		r.stopPop()
		r.stopPop = nil
	}
	r.gen.Add(1)
}

// Current returns the current route, or nil before the first commit.
func (r *Router) Current() *NavigationContext {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// State returns the lifecycle state.
func (r *Router) State() State { return State(r.state.Load()) }

// Resolve matches path without navigating.
func (r *Router) Resolve(path string) (*NavigationContext, bool) {
	pathname, search := SplitPath(path)
	route, params, ok := r.table.Match(pathname)
	if !ok {
		return nil, false
	}
	return &NavigationContext{
		Pathname: pathname,
		Search:   search,
		Route:    route,
		Params:   params,
		Query:    ParseQuery(search),
		FullPath: pathname + search,
	}, true
}

// Back moves one history entry back when the provider supports it.
func (r *Router) Back() bool { return r.traverse(-1) }

// Forward moves one history entry forward when the provider supports it.
func (r *Router) Forward() bool { return r.traverse(1) }

func (r *Router) traverse(delta int) bool {
	t, ok := r.history.(Traverser)
	if !ok {
		return false
	}
	return t.Go(delta)
}

// Navigate runs the pipeline for path. A call started later supersedes one
// still in flight: an earlier call that has not committed returns
// StatusSuperseded without touching history, title, current route or the
// render target. An earlier call that has committed keeps rendering until a
// later call commits too.
func (r *Router) Navigate(ctx context.Context, path string, opts ...NavigateOption) Result {
	var nc navigateConfig
	for _, opt := range opts {
		opt(&nc)
	}

	r.mu.Lock()
	token := r.gen.Add(1)
	r.inflight++
	r.state.Store(int32(StateNavigating))
	r.mu.Unlock()
	start := time.Now()

	ctx, span := startNavigateSpan(ctx, path, nc.replace)
	res := r.run(ctx, token, path, nc)
	res.Requested = path
	endNavigateSpan(span, res)
	recordNavigation(ctx, time.Since(start), res.Status)

	r.settle(res)
	r.logger.Debug("navigation finished", "path", path, "status", res.Status.String(), "duration", time.Since(start))
	return res
}

// settle leaves the Navigating state once the last call in flight returns.
func (r *Router) settle(res Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inflight--
	if r.inflight > 0 {
		return
	}
	switch {
	case res.Status == StatusCancelled, r.current == nil:
		r.state.Store(int32(StateIdle))
	default:
		r.state.Store(int32(StateSettled))
	}
}

// run follows redirects until a navigation settles.
func (r *Router) run(ctx context.Context, token uint64, path string, nc navigateConfig) Result {
	status := StatusCompleted
	redirects := 0

	for {
		res, next, panicErr := r.attempt(ctx, token, path, nc)

		if panicErr != nil {
			return r.recoverPanic(ctx, token, path, nc, panicErr)
		}

		switch next.kind {
		case redirectNone:
			if res.Status == StatusCompleted && status != StatusCompleted {
				res.Status = status
			}
			return res
		case redirectNotFound:
			r.logger.Warn("route not found", "path", path, "redirect", r.cfg.NotFoundPath)
			status = StatusNotFound
			nc.notFound = true
		case redirectHook:
			redirects++
			if redirects > r.cfg.MaxRedirects {
				err := &NavigationError{Op: "redirect", Path: path, Err: ErrTooManyRedirects}
				r.logger.Error("redirect limit reached", "path", path, "limit", r.cfg.MaxRedirects)
				return Result{Status: StatusCancelled, Err: err}
			}
			if status == StatusCompleted {
				status = StatusRedirected
			}
		}
		path = next.path
	}
}

// recoverPanic makes the single fallback navigation to the error route. A
// panic during that fallback renders the inline error view instead.
func (r *Router) recoverPanic(ctx context.Context, token uint64, path string, nc navigateConfig, panicErr error) Result {
	err := &NavigationError{Op: "pipeline", Path: path, Err: panicErr}
	if nc.fallback || r.cfg.ErrorPath == "" {
		return r.fail(token, nil, err)
	}

	r.logger.Error("navigation panicked, falling back to error route", "path", path, "error", panicErr, "error_route", r.cfg.ErrorPath)
	res := r.run(ctx, token, r.cfg.ErrorPath, navigateConfig{replace: true, fallback: true})
	if res.Status == StatusSuperseded {
		// A newer call is in flight but has not committed, so this call still
		// owns the target it may have left half rendered.
		return r.fail(token, nil, err)
	}
	res.Status = StatusFailed
	res.Err = err
	return res
}

type redirectKind int

const (
	redirectNone redirectKind = iota
	redirectNotFound
	redirectHook
)

type redirect struct {
	kind redirectKind
	path string
}

// attempt runs the pipeline once for path. It returns a redirect when the
// pipeline must restart elsewhere, and a non-nil error when a step panicked.
func (r *Router) attempt(ctx context.Context, token uint64, path string, nc navigateConfig) (res Result, next redirect, panicErr error) {
	defer func() {
		if v := recover(); v != nil {
			r.logger.Error("navigation step panicked", "path", path, "panic", v, "stack", string(debug.Stack()))
			panicErr = fmt.Errorf("%w: %v", ErrNavigationPanic, v)
		}
	}()

	if r.superseded(token) {
		return Result{Status: StatusSuperseded}, redirect{}, nil
	}

	// Parse and match.
	pathname, search := SplitPath(path)
	query := ParseQuery(search)
	route, params, ok := r.table.Match(pathname)
	if !ok {
		if nc.fallback || nc.notFound || pathname == r.cfg.NotFoundPath {
			err := &NavigationError{Op: "match", Path: path, Err: ErrRouteNotFound}
			return r.fail(token, nil, err), redirect{}, nil
		}
		return Result{}, redirect{kind: redirectNotFound, path: r.cfg.NotFoundPath}, nil
	}

	to := &NavigationContext{
		Pathname: pathname,
		Search:   search,
		Route:    route,
		Params:   params,
		Query:    query,
		FullPath: pathname + search,
	}
	from := r.Current()

	// Guards. The fallback navigation skips them so a guard cannot block it.
	if !nc.fallback {
		for _, phase := range [][]namedHook{r.hooks.beforeHooks(), r.hooks.middlewares()} {
			for _, h := range phase {
				v := h.fn(ctx, to, from)
				if r.superseded(token) {
					return Result{Status: StatusSuperseded, Route: to}, redirect{}, nil
				}
				switch v.Kind {
				case VerdictCancel:
					r.logger.Debug("navigation cancelled", "path", path, "hook", h.name)
					return Result{Status: StatusCancelled, Route: from}, redirect{}, nil
				case VerdictRedirect:
					r.logger.Debug("navigation redirected", "path", path, "hook", h.name, "to", v.Path)
					return Result{}, redirect{kind: redirectHook, path: v.Path}, nil
				}
			}
			if err := ctx.Err(); err != nil {
				return Result{Status: StatusCancelled, Route: from, Err: err}, redirect{}, nil
			}
		}
	}

	// Commit.
	if !r.commit(token, to, nc) {
		return Result{Status: StatusSuperseded, Route: to}, redirect{}, nil
	}

	// Render.
	if res, ok := r.render(ctx, token, to, path); !ok {
		return res, redirect{}, nil
	}

	for _, h := range r.hooks.afterHooks() {
		h.fn(ctx, to, from)
	}

	if r.emitter != nil {
		r.emitter.Emit(context.WithoutCancel(ctx), event.ChannelRouteChange, RouteChange{Route: to, PreviousRoute: from})
	}
	return Result{Status: StatusCompleted, Route: to}, redirect{}, nil
}

// commit records the navigation in history and makes to current, unless a
// newer navigation has started.
func (r *Router) commit(token uint64, to *NavigationContext, nc navigateConfig) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gen.Load() != token {
		return false
	}

	title := to.Route.titleFor()
	if title == "" {
		title = r.cfg.DefaultTitle
	}
	title += r.cfg.TitleSuffix

	entry := HistoryEntry{Path: to.FullPath, Title: title, State: nc.state}
	if nc.replace {
		r.history.Replace(entry)
	} else {
		r.history.Push(entry)
	}
	r.target.SetTitle(title)
	r.current = to
	r.committed = token
	return true
}

// render loads the view and places it in the target. On failure it shows the
// inline error view and reports false. It stops once a newer navigation has
// committed, leaving the target to that navigation.
func (r *Router) render(ctx context.Context, token uint64, to *NavigationContext, path string) (Result, bool) {
	if !r.paint(token, func() { r.target.SetLoading(true) }) {
		return Result{Status: StatusSuperseded, Route: to}, false
	}

	comp, err := r.loader.Load(ctx, to.Route.ViewID)
	if err != nil {
		return r.fail(token, to, &NavigationError{Op: "load", Path: path, Err: err}), false
	}

	out, err := comp.Render(ctx, to.Params, to.Query)
	if err != nil {
		return r.fail(token, to, &NavigationError{Op: "render", Path: path, Err: err}), false
	}

	var mountErr error
	if !r.paint(token, func() { mountErr = r.target.Replace(out) }) {
		return Result{Status: StatusSuperseded, Route: to}, false
	}
	if mountErr != nil {
		return r.fail(token, to, &NavigationError{Op: "mount", Path: path, Err: mountErr}), false
	}
	if in, ok := comp.(Initializer); ok {
		if err := in.Init(ctx, to.Params, to.Query); err != nil {
			return r.fail(token, to, &NavigationError{Op: "init", Path: path, Err: err}), false
		}
	}

	if !r.paint(token, func() {
		r.target.Highlight(to)
		r.target.SetLoading(false)
	}) {
		return Result{Status: StatusSuperseded, Route: to}, false
	}
	return Result{}, true
}

// fail shows the inline error view for err.
func (r *Router) fail(token uint64, to *NavigationContext, err error) Result {
	painted := r.paint(token, func() {
		if rerr := r.target.Replace(r.errorView(err)); rerr != nil {
			r.logger.Error("inline error view failed", "error", rerr)
		}
		r.target.SetLoading(false)
	})
	if !painted {
		return Result{Status: StatusSuperseded, Route: to}
	}
	r.logger.Error("navigation failed", "error", err)
	return Result{Status: StatusFailed, Route: to, Err: err}
}

// paint runs fn against the render target if token still owns it and reports
// whether it ran. A call owns the target while its commit is the latest one,
// or before committing while no newer call has started.
func (r *Router) paint(token uint64, fn func()) bool {
	r.paintMu.Lock()
	defer r.paintMu.Unlock()

	r.mu.Lock()
	owns := r.committed == token || r.gen.Load() == token
	r.mu.Unlock()
	if !owns {
		return false
	}
	fn()
	return true
}

// superseded reports whether a newer call has started. It only guards steps
// before commit.
func (r *Router) superseded(token uint64) bool {
	return r.gen.Load() != token
}
