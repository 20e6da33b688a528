package event

import "log/slog"

type busConfig struct {
	logger *slog.Logger
}

func defaultBusConfig() busConfig {
	return busConfig{
		logger: slog.Default(),
	}
}

// BusOption configures a Bus.
type BusOption func(*busConfig)

// WithLogger sets the logger used to report failing handlers.
func WithLogger(logger *slog.Logger) BusOption {
	return func(c *busConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}
