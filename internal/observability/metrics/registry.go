// Package metrics provides centralized Prometheus metrics for the application.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Briefing run metrics track end-to-end invocation outcomes
var (
	// BriefingRunsTotal counts briefing runs by category and outcome.
	// Status is "success", "degraded", or "failure".
	BriefingRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "briefing_runs_total",
			Help: "Total number of briefing runs",
		},
		[]string{"category", "status"},
	)

	// BriefingRunDuration measures end-to-end run duration in seconds
	BriefingRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "briefing_run_duration_seconds",
			Help:    "Briefing run duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
		[]string{"category"},
	)
)

// Provider metrics track fallback chain behavior
var (
	// ProviderAttemptsTotal counts provider fetch attempts by outcome.
	// Outcome is "success", "failed", or "unavailable".
	ProviderAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "briefing_provider_attempts_total",
			Help: "Total number of provider fetch attempts",
		},
		[]string{"category", "provider", "outcome"},
	)

	// ChainExhaustedTotal counts invocations where every provider in a
	// category's chain failed and a placeholder was delivered
	ChainExhaustedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "briefing_chain_exhausted_total",
			Help: "Total number of fully exhausted provider chains",
		},
		[]string{"category"},
	)
)

// Delivery metrics track the messaging sink
var (
	// DeliveriesTotal counts delivery attempts by outcome
	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "briefing_deliveries_total",
			Help: "Total number of briefing deliveries",
		},
		[]string{"sink", "status"},
	)

	// DeliveryDuration measures delivery duration in seconds
	DeliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "briefing_delivery_duration_seconds",
			Help:    "Briefing delivery duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"sink"},
	)
)

// State metrics track the remote document store
var (
	// StateFlushesTotal counts state document flushes by outcome
	StateFlushesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "briefing_state_flushes_total",
			Help: "Total number of state document flushes",
		},
		[]string{"backend", "status"},
	)

	// DedupSuppressedTotal counts items suppressed by deduplication
	DedupSuppressedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "briefing_dedup_suppressed_total",
			Help: "Total number of items suppressed as already seen",
		},
		[]string{"category"},
	)
)
