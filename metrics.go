package treeset

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	prom "github.com/prometheus/client_golang/prometheus"
)

// Metrics counts what the manager sees. The zero-cost default discards
// everything; NewPrometheusMetrics registers real counters.
type Metrics struct {
	Inserts     metrics.Counter
	Contains    metrics.Counter
	Removes     metrics.Counter
	Collections metrics.Counter
	Snapshots   metrics.Counter
	Buffered    metrics.Counter
}

// NewMetrics returns Metrics that discard all observations.
func NewMetrics() *Metrics {
	return &Metrics{
		Inserts:     discard.NewCounter(),
		Contains:    discard.NewCounter(),
		Removes:     discard.NewCounter(),
		Collections: discard.NewCounter(),
		Snapshots:   discard.NewCounter(),
		Buffered:    discard.NewCounter(),
	}
}

// NewPrometheusMetrics returns Metrics backed by prometheus counters
// registered under the given namespace.
func NewPrometheusMetrics(namespace string) *Metrics {
	counter := func(name, help string) metrics.Counter {
		return prometheus.NewCounterFrom(prom.CounterOpts{
			Namespace: namespace,
			Subsystem: "treeset",
			Name:      name,
			Help:      help,
		}, nil)
	}
	return &Metrics{
		Inserts:     counter("inserts_total", "Number of insert requests"),
		Contains:    counter("contains_total", "Number of contains requests"),
		Removes:     counter("removes_total", "Number of remove requests"),
		Collections: counter("collections_total", "Number of compaction cycles"),
		Snapshots:   counter("snapshots_total", "Number of snapshot cycles"),
		Buffered:    counter("buffered_total", "Requests buffered while collecting"),
	}
}
