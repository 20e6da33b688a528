package state

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type storeMetrics struct {
	commits          *prometheus.CounterVec
	observerFailures prometheus.Counter
	historySize      prometheus.Gauge
	subscriptions    prometheus.Gauge
}

// newStoreMetrics builds the store collectors. A nil registerer leaves them
// unregistered.
func newStoreMetrics(reg prometheus.Registerer) *storeMetrics {
	factory := promauto.With(reg)
	return &storeMetrics{
		commits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pitwall",
			Subsystem: "store",
			Name:      "commits_total",
			Help:      "State commits by kind and result",
		}, []string{"kind", "result"}),
		observerFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "pitwall",
			Subsystem: "store",
			Name:      "observer_failures_total",
			Help:      "Observers that panicked during notification",
		}),
		historySize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "pitwall",
			Subsystem: "store",
			Name:      "history_entries",
			Help:      "Entries currently held in the mutation history",
		}),
		subscriptions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "pitwall",
			Subsystem: "store",
			Name:      "subscriptions",
			Help:      "Registered observers",
		}),
	}
}

func (m *storeMetrics) accepted(kind MutationKind) {
	m.commits.WithLabelValues(kind.String(), "accepted").Inc()
}

func (m *storeMetrics) rejected(kind MutationKind) {
	m.commits.WithLabelValues(kind.String(), "rejected").Inc()
}
