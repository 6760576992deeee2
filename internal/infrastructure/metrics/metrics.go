// Package metrics registers the Prometheus instruments for velvet-server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "velvet"

var (
	// HTTPRequestsTotal counts handled HTTP requests by method, path and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests processed.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// ExchangesTotal counts completed message exchanges by outcome.
	ExchangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exchanges_total",
			Help:      "Total number of message exchanges by outcome.",
		},
		[]string{"outcome"},
	)

	// GenerationDuration observes end-to-end generation latency, including
	// fallback responses.
	GenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Latency of generation backend calls in seconds.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	// GenerationFallbacksTotal counts responses served by the deterministic
	// fallback instead of the model backend.
	GenerationFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_fallbacks_total",
			Help:      "Total number of fallback responses served.",
		},
	)

	// GroundingEmptyTotal counts exchanges where grounding was requested but
	// assembly produced nothing.
	GroundingEmptyTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grounding_empty_total",
			Help:      "Total number of requested grounding assemblies that degraded to empty.",
		},
	)

	// ReconciliationsNeededTotal counts exchanges whose assistant reply was
	// generated but could not be persisted.
	ReconciliationsNeededTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliations_needed_total",
			Help:      "Total number of exchanges left with an unpersisted assistant reply.",
		},
	)
)
