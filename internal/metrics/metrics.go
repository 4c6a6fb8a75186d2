package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatrelay_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatrelay_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.005, .01, .05, .1, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)

	// Upstream metrics
	UpstreamOutcomes = []string{"ok", "rate_limited", "server_error", "timeout", "failed"}

	UpstreamAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatrelay_upstream_attempts_total",
			Help: "Upstream completion attempts by outcome",
		},
		[]string{"outcome"}, // one of UpstreamOutcomes
	)

	UpstreamRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatrelay_upstream_retries_total",
			Help: "Upstream retries scheduled by reason",
		},
		[]string{"reason"},
	)

	UpstreamLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chatrelay_upstream_latency_seconds",
			Help:    "Latency of a single upstream attempt",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 20},
		},
	)

	Tokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatrelay_tokens_total",
			Help: "Tokens reported by the upstream service",
		},
		[]string{"direction"}, // "input" or "output"
	)

	// Business metrics
	MessagesStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatrelay_messages_stored_total",
			Help: "Messages appended to history",
		},
		[]string{"role"},
	)

	MessagesTruncated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatrelay_messages_truncated_total",
			Help: "Messages deleted by edit-and-regenerate",
		},
	)
)
