package app

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dshills/pitwall/internal/event"
)

// registerBusMetrics exposes the bus counters as gauges.
func registerBusMetrics(reg prometheus.Registerer, bus *event.Bus) error {
	gauges := []struct {
		name, help string
		value      func(event.Stats) float64
	}{
		{"events_emitted", "Events emitted on the bus.", func(s event.Stats) float64 { return float64(s.EventsEmitted) }},
		{"handler_runs", "Bus handler invocations.", func(s event.Stats) float64 { return float64(s.HandlerRuns) }},
		{"handler_errors", "Bus handlers that returned an error.", func(s event.Stats) float64 { return float64(s.HandlerErrors) }},
		{"handler_panics", "Bus handlers that panicked.", func(s event.Stats) float64 { return float64(s.HandlerPanics) }},
	}
	for _, g := range gauges {
		value := g.value
		collector := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "pitwall",
			Subsystem: "bus",
			Name:      g.name,
			Help:      g.help,
		}, func() float64 { return value(bus.Stats()) })
		if err := reg.Register(collector); err != nil {
			return err
		}
	}
	return nil
}
