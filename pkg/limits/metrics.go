package limits

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus metrics for admission control.
// Identity is deliberately not a label: the identity space is unbounded.
type Metrics struct {
	// Admission decisions by result (admitted, global, identity)
	admissions *prometheus.CounterVec

	// Releases, including ignored unmatched ones
	releases *prometheus.CounterVec

	// Current occupancy
	activeStreams    prometheus.Gauge
	activeIdentities prometheus.Gauge
}

// NewMetrics creates admission metrics registered with reg.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		admissions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "admission",
				Name:      "decisions_total",
				Help:      "Total number of admission decisions by result",
			},
			[]string{"result"},
		),

		releases: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "admission",
				Name:      "releases_total",
				Help:      "Total number of slot releases",
			},
			[]string{"matched"},
		),

		activeStreams: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "admission",
				Name:      "active_streams",
				Help:      "Current number of admitted streams",
			},
		),

		activeIdentities: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "admission",
				Name:      "active_identities",
				Help:      "Current number of identities holding at least one slot",
			},
		),
	}
}

// recordDecision records an admission decision and the resulting occupancy.
func (m *Metrics) recordDecision(reason Reason, active, identities int) {
	if m == nil {
		return
	}
	result := "admitted"
	if reason != ReasonNone {
		result = string(reason)
	}
	m.admissions.WithLabelValues(result).Inc()
	m.activeStreams.Set(float64(active))
	m.activeIdentities.Set(float64(identities))
}

// recordRelease records a release and the resulting occupancy.
func (m *Metrics) recordRelease(matched bool, active, identities int) {
	if m == nil {
		return
	}
	label := "true"
	if !matched {
		label = "false"
	}
	m.releases.WithLabelValues(label).Inc()
	m.activeStreams.Set(float64(active))
	m.activeIdentities.Set(float64(identities))
}
