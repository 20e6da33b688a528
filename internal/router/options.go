package router

import (
	"log/slog"

	"github.com/dshills/pitwall/internal/event"
)

// Defaults for Config.
const (
	DefaultNotFoundPath = "/404"
	DefaultMaxRedirects = 5
)

// Config holds router settings.
type Config struct {
	// NotFoundPath is where unmatched paths are redirected.
	NotFoundPath string
	// ErrorPath is the route used once when the pipeline panics. Empty
	// renders the inline error view instead.
	ErrorPath string
	// TitleSuffix is appended to route titles, e.g. " | Pitwall".
	TitleSuffix string
	// DefaultTitle is used for routes without a title.
	DefaultTitle string
	MaxRedirects int
	// Origin is the app's scheme and host, used to tell internal links
	// from external ones.
	Origin string
}

func (c Config) withDefaults() Config {
	if c.NotFoundPath == "" {
		c.NotFoundPath = DefaultNotFoundPath
	}
	c.NotFoundPath = normalizePath(c.NotFoundPath)
	if c.ErrorPath != "" {
		c.ErrorPath = normalizePath(c.ErrorPath)
	}
	if c.MaxRedirects <= 0 {
		c.MaxRedirects = DefaultMaxRedirects
	}
	return c
}

// Option configures a Router.
type Option func(*Router)

// WithConfig sets the router configuration.
func WithConfig(cfg Config) Option {
	return func(r *Router) {
		r.cfg = cfg
	}
}

// WithLoader sets the component loader.
func WithLoader(l ComponentLoader) Option {
	return func(r *Router) {
		r.loader = l
	}
}

// WithTarget sets the render target.
func WithTarget(t RenderTarget) Option {
	return func(r *Router) {
		r.target = t
	}
}

// WithHistory sets the session history provider.
func WithHistory(h HistoryProvider) Option {
	return func(r *Router) {
		r.history = h
	}
}

// WithEmitter sets the bus that receives routeChange events.
func WithEmitter(e event.Emitter) Option {
	return func(r *Router) {
		r.emitter = e
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithErrorView sets the inline error renderer.
func WithErrorView(v ErrorView) Option {
	return func(r *Router) {
		if v != nil {
			r.errorView = v
		}
	}
}

// NavigateOption configures one Navigate call.
type NavigateOption func(*navigateConfig)

type navigateConfig struct {
	replace  bool
	state    map[string]any
	fallback bool
	notFound bool
}

// Replace commits the navigation by replacing the current history entry.
func Replace() NavigateOption {
	return func(c *navigateConfig) {
		c.replace = true
	}
}

// WithState attaches state to the history entry.
func WithState(state map[string]any) NavigateOption {
	return func(c *navigateConfig) {
		c.state = state
	}
}
