package app

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dshills/pitwall/internal/backend"
	"github.com/dshills/pitwall/internal/config"
	"github.com/dshills/pitwall/internal/event"
	"github.com/dshills/pitwall/internal/router"
	"github.com/dshills/pitwall/internal/state"
)

// Runtime is the application context: one bus, one store, one router.
type Runtime struct {
	Config  *config.Config
	Logger  *slog.Logger
	Level   *slog.LevelVar
	Bus     *event.Bus
	Store   *state.Store
	Router  *router.Router
	Views   *router.ViewRegistry
	History router.HistoryProvider
	Target  router.RenderTarget
	Backend backend.Service
	Metrics *prometheus.Registry

	running atomic.Bool
	// closeLog releases a file log output opened by New.
	closeLog func() error

	mu      sync.Mutex
	watcher *config.Watcher
	unbind  context.CancelFunc
}

// Binding mirrors a backend collection into a state path.
type Binding struct {
	Collection string
	Path       string
}

// DefaultBindings are the collections Start mirrors into the store.
var DefaultBindings = []Binding{
	{Collection: "championships", Path: "championships"},
	{Collection: "races", Path: "races"},
	{Collection: "drivers", Path: "drivers"},
	{Collection: "posts", Path: "feed.posts"},
	{Collection: "notifications", Path: "notifications.items"},
}

// Options configures New. Zero fields fall back to values derived from the
// configuration.
type Options struct {
	Logger       *slog.Logger
	Level        *slog.LevelVar
	History      router.HistoryProvider
	Target       router.RenderTarget
	Backend      backend.Service
	InitialState state.Tree
}

// Option mutates Options.
type Option func(*Options)

// WithLogger uses logger and level instead of building them from the config.
// level may be nil.
func WithLogger(logger *slog.Logger, level *slog.LevelVar) Option {
	return func(o *Options) {
		o.Logger = logger
		o.Level = level
	}
}

// WithHistory sets the session history.
func WithHistory(h router.HistoryProvider) Option {
	return func(o *Options) { o.History = h }
}

// WithTarget sets the render target.
func WithTarget(t router.RenderTarget) Option {
	return func(o *Options) { o.Target = t }
}

// WithBackend sets the data service. The default is an empty backend.Memory.
func WithBackend(svc backend.Service) Option {
	return func(o *Options) { o.Backend = svc }
}

// WithInitialState replaces DefaultState.
func WithInitialState(tree state.Tree) Option {
	return func(o *Options) { o.InitialState = tree }
}

// New builds a runtime from cfg. A nil cfg uses config.Default.
func New(cfg *config.Config, opts ...Option) (*Runtime, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	var o Options
	for _, opt := range opts {
		opt(&o)
	}

	rt := &Runtime{
		Config:  cfg,
		Views:   router.NewViewRegistry(),
		Metrics: prometheus.NewRegistry(),
	}

	rt.Logger, rt.Level = o.Logger, o.Level
	if rt.Logger == nil {
		out, closeLog, err := OpenLogOutput(cfg.Log.Output)
		if err != nil {
			return nil, &InitError{Component: "logger", Err: err}
		}
		rt.closeLog = closeLog
		rt.Logger, rt.Level = NewLogger(LoggerConfig{
			Level:  ParseLogLevel(cfg.Log.Level),
			Format: cfg.Log.Format,
			Output: out,
		})
	}
	if rt.Level == nil {
		rt.Level = new(slog.LevelVar)
	}

	rt.Bus = event.NewBus(event.WithLogger(rt.Logger))
	if err := registerBusMetrics(rt.Metrics, rt.Bus); err != nil {
		return nil, &InitError{Component: "metrics", Err: err}
	}

	initial := o.InitialState
	if initial == nil {
		initial = DefaultState()
	}
	rt.Store = state.New(
		state.WithInitialState(initial),
		state.WithEmitter(rt.Bus),
		state.WithLogger(rt.Logger),
		state.WithHistoryLimit(cfg.Store.HistoryLimit),
		state.WithMaxNotifyDepth(cfg.Store.MaxNotifyDepth),
		state.WithRegisterer(rt.Metrics),
	)

	rt.Backend = o.Backend
	if rt.Backend == nil {
		rt.Backend = backend.NewMemory(backend.WithLogger(rt.Logger))
	}

	rt.History = o.History
	if rt.History == nil {
		rt.History = router.NewMemoryHistory("/")
	}
	target := o.Target
	if target == nil {
		target = router.NewBufferTarget()
	}
	rt.Target = loadingTarget{RenderTarget: target, store: rt.Store}

	rt.Router = router.New(
		router.WithConfig(router.Config{
			NotFoundPath: cfg.Router.NotFoundPath,
			ErrorPath:    cfg.Router.ErrorPath,
			TitleSuffix:  cfg.Router.TitleSuffix,
			DefaultTitle: cfg.Router.DefaultTitle,
			MaxRedirects: cfg.Router.MaxRedirects,
			Origin:       cfg.App.Origin,
		}),
		router.WithLoader(rt.Views),
		router.WithTarget(rt.Target),
		router.WithHistory(rt.History),
		router.WithEmitter(rt.Bus),
		router.WithLogger(rt.Logger),
	)
	for _, rc := range cfg.Routes {
		route := router.Route{
			Pattern:      rc.Pattern,
			ViewID:       rc.View,
			Name:         rc.Name,
			Title:        rc.Title,
			RequiresAuth: rc.RequiresAuth,
			Layout:       rc.Layout,
		}
		if err := rt.Router.Register(route); err != nil {
			return nil, &InitError{Component: "router", Err: err}
		}
	}

	rt.installHooks()
	rt.Logger.Debug("runtime built", "routes", len(cfg.Routes), "history_limit", cfg.Store.HistoryLimit)
	return rt, nil
}

// Start mirrors the DefaultBindings collections into the store and navigates
// to the history's current location.
func (rt *Runtime) Start(ctx context.Context) (router.Result, error) {
	if !rt.running.CompareAndSwap(false, true) {
		return router.Result{}, ErrAlreadyRunning
	}
	if err := rt.bind(); err != nil {
		rt.running.Store(false)
		return router.Result{}, &InitError{Component: "backend", Err: err}
	}
	res, err := rt.Router.Start(ctx)
	if err != nil {
		rt.stopBindings()
		rt.running.Store(false)
		return res, err
	}
	rt.Logger.Info("runtime started", "route", res.Status.String(), "path", rt.History.Location())
	return res, nil
}

// Stop stops any config watcher, detaches the router, ends the backend
// bindings and closes a file log output. The runtime cannot be started again.
func (rt *Runtime) Stop() error {
	rt.mu.Lock()
	w := rt.watcher
	rt.watcher = nil
	rt.mu.Unlock()

	var err error
	if w != nil {
		err = w.Close()
	}
	if !rt.running.CompareAndSwap(true, false) {
		return ErrNotRunning
	}
	rt.Router.Stop()
	rt.stopBindings()
	rt.Logger.Info("runtime stopped")

	if rt.closeLog != nil {
		if cerr := rt.closeLog(); cerr != nil && err == nil {
			err = cerr
		}
		rt.closeLog = nil
	}
	return err
}

func (rt *Runtime) bind() error {
	ctx, cancel := context.WithCancel(context.Background())
	for _, b := range DefaultBindings {
		if _, err := backend.Bind(ctx, rt.Backend, rt.Store, b.Collection, b.Path); err != nil {
			cancel()
			return err
		}
	}
	rt.mu.Lock()
	rt.unbind = cancel
	rt.mu.Unlock()
	rt.Logger.Debug("backend bound", "collections", len(DefaultBindings))
	return nil
}

// stopBindings cancels the context every binding watches.
func (rt *Runtime) stopBindings() {
	rt.mu.Lock()
	cancel := rt.unbind
	rt.unbind = nil
	rt.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Running reports whether Start has been called without Stop.
func (rt *Runtime) Running() bool { return rt.running.Load() }

// Navigate is shorthand for Router.Navigate.
func (rt *Runtime) Navigate(ctx context.Context, path string, opts ...router.NavigateOption) router.Result {
	return rt.Router.Navigate(ctx, path, opts...)
}

// Login records an authenticated user in one batch.
func (rt *Runtime) Login(user map[string]any) bool {
	return rt.Store.BatchUpdate(map[string]any{
		"auth.user":            user,
		"auth.isAuthenticated": true,
	}, state.WithSource("auth"))
}

// Logout resets the store, keeping ui preferences, and replaces the current
// entry with the login route.
func (rt *Runtime) Logout(ctx context.Context) router.Result {
	next := DefaultState()
	if ui, ok := rt.Store.Get("ui"); ok {
		next["ui"] = ui
	}
	rt.Store.Reset(next, state.WithSource("logout"))
	return rt.Router.Navigate(ctx, rt.Config.Router.LoginPath, router.Replace())
}

// WatchConfig follows path and applies the log level of every valid reload.
func (rt *Runtime) WatchConfig(path string) error {
	w, err := config.Watch(path, func(cfg *config.Config, err error) {
		if err != nil {
			rt.Logger.Warn("ignoring invalid config", "error", err)
			return
		}
		level := ParseLogLevel(cfg.Log.Level)
		if level != rt.Level.Level() {
			rt.Level.Set(level)
			rt.Logger.Info("log level changed", "level", level.String())
		}
	}, config.WithWatchLogger(rt.Logger))
	if err != nil {
		return err
	}

	rt.mu.Lock()
	old := rt.watcher
	rt.watcher = w
	rt.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	return nil
}
