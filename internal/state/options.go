package state

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dshills/pitwall/internal/event"
)

// DefaultMaxNotifyDepth bounds writes issued from inside observers.
const DefaultMaxNotifyDepth = 16

type storeConfig struct {
	initial        Tree
	emitter        event.Emitter
	logger         *slog.Logger
	historyLimit   int
	maxNotifyDepth int
	registerer     prometheus.Registerer
}

// Option configures a Store.
type Option func(*storeConfig)

// WithInitialState sets the tree the store starts from and Reset returns to.
func WithInitialState(tree Tree) Option {
	return func(c *storeConfig) {
		c.initial = tree
	}
}

// WithEmitter sets the bus that receives state.changed broadcasts.
func WithEmitter(e event.Emitter) Option {
	return func(c *storeConfig) {
		c.emitter = e
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *storeConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHistoryLimit sets the history capacity.
func WithHistoryLimit(n int) Option {
	return func(c *storeConfig) {
		if n > 0 {
			c.historyLimit = n
		}
	}
}

// WithMaxNotifyDepth sets how deeply observer-triggered writes may nest.
func WithMaxNotifyDepth(n int) Option {
	return func(c *storeConfig) {
		if n > 0 {
			c.maxNotifyDepth = n
		}
	}
}

// WithRegisterer registers the store metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *storeConfig) {
		c.registerer = reg
	}
}

type setConfig struct {
	silent bool
	source string
}

// SetOption configures a single SetState or BatchUpdate call.
type SetOption func(*setConfig)

// Silent commits without notifying observers. History and the bus broadcast
// still happen.
func Silent() SetOption {
	return func(c *setConfig) {
		c.silent = true
	}
}

// WithSource tags the bus broadcast with the origin of the write.
func WithSource(source string) SetOption {
	return func(c *setConfig) {
		c.source = source
	}
}
