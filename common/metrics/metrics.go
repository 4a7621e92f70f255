// Package metrics holds the prometheus collectors of the process.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sgawallet"

// Registry is served on /metrics.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	ConnectAttempts = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "connect",
		Name:      "attempts_total",
		Help:      "Wallet connection attempts by outcome.",
	}, []string{"family", "provider", "outcome"})

	ActiveConnections = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "connect",
		Name:      "active",
		Help:      "Connections in the active set.",
	}, []string{"family"})

	AggregationPasses = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "assets",
		Name:      "passes_total",
		Help:      "Completed aggregation passes.",
	})

	PassDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "assets",
		Name:      "pass_duration_seconds",
		Help:      "Wall time of one aggregation pass.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	QueryFailures = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "assets",
		Name:      "query_failures_total",
		Help:      "Skipped balance queries.",
	}, []string{"family"})

	PriceFailures = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "assets",
		Name:      "price_failures_total",
		Help:      "Price lookups that fell back to a zero valuation.",
	}, []string{"family"})

	DiscardedResults = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "assets",
		Name:      "discarded_results_total",
		Help:      "Results dropped because their connection was removed mid-pass.",
	})

	Records = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "assets",
		Name:      "records",
		Help:      "Asset records in the latest snapshot.",
	}, []string{"family"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}
