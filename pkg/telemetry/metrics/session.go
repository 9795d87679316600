package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// SessionMetrics tracks streaming sessions.
//
// Metrics:
//   - iptvrelay_sessions_active: sessions currently streaming, by class
//   - iptvrelay_sessions_total: finished sessions by class and outcome
//   - iptvrelay_session_duration_seconds: session lifetime histogram
//   - iptvrelay_relayed_bytes_total: bytes written to clients
//   - iptvrelay_redirect_hops: redirect hops per session
type SessionMetrics struct {
	namespace string

	active       *prometheus.GaugeVec
	total        *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	bytes        *prometheus.CounterVec
	redirectHops prometheus.Histogram
}

// NewSessionMetrics creates and registers session metrics with the provided registry.
func NewSessionMetrics(namespace string, durationBuckets []float64, registry *prometheus.Registry) *SessionMetrics {
	sm := &SessionMetrics{
		namespace: namespace,

		active: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sessions_active",
				Help:      "Number of streaming sessions in progress",
			},
			[]string{"class"},
		),

		total: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_total",
				Help:      "Total number of finished streaming sessions",
			},
			[]string{"class", "outcome"},
		),

		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "session_duration_seconds",
				Help:      "Duration of streaming sessions in seconds",
				Buckets:   durationBuckets,
			},
			[]string{"class"},
		),

		bytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "relayed_bytes_total",
				Help:      "Total bytes written to clients",
			},
			[]string{"class"},
		),

		redirectHops: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "redirect_hops",
				Help:      "Upstream redirect hops followed per session",
				Buckets:   []float64{0, 1, 2, 3, 4, 5},
			},
		),
	}

	registry.MustRegister(
		sm.active,
		sm.total,
		sm.duration,
		sm.bytes,
		sm.redirectHops,
	)

	return sm
}
