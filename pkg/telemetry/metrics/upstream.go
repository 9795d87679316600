package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// UpstreamMetrics tracks traffic to the origin.
//
// Metrics:
//   - iptvrelay_upstream_responses_total: final upstream responses by status class
//   - iptvrelay_upstream_errors_total: upstream failures by kind
//   - iptvrelay_stall_reconnects_total: reconnects after an upstream stall
//   - iptvrelay_passthrough_requests_total: non-streaming requests by status class
//   - iptvrelay_passthrough_duration_seconds: non-streaming request duration
type UpstreamMetrics struct {
	responses           *prometheus.CounterVec
	errors              *prometheus.CounterVec
	stallReconnects     prometheus.Counter
	passthrough         *prometheus.CounterVec
	passthroughDuration prometheus.Histogram
}

// NewUpstreamMetrics creates and registers upstream metrics with the provided registry.
func NewUpstreamMetrics(namespace string, registry *prometheus.Registry) *UpstreamMetrics {
	um := &UpstreamMetrics{
		responses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_responses_total",
				Help:      "Final upstream responses by status class",
			},
			[]string{"class"},
		),

		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_errors_total",
				Help:      "Upstream failures by kind",
			},
			[]string{"kind"},
		),

		stallReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stall_reconnects_total",
				Help:      "Upstream reconnects triggered by a stalled body",
			},
		),

		passthrough: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "passthrough_requests_total",
				Help:      "Requests relayed without admission control, by status class",
			},
			[]string{"class"},
		),

		passthroughDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "passthrough_duration_seconds",
				Help:      "Duration of passthrough requests in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 15},
			},
		),
	}

	registry.MustRegister(
		um.responses,
		um.errors,
		um.stallReconnects,
		um.passthrough,
		um.passthroughDuration,
	)

	return um
}
