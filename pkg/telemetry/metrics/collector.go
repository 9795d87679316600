package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/iptvrelay/pkg/config"
)

// Collector owns the relay's Prometheus registry and records session,
// upstream and passthrough metrics. Admission decisions are recorded by the
// limits package on the same registry.
//
// When metrics are disabled every Record method is a no-op, but the registry
// still exists so other packages can register against it unconditionally.
type Collector struct {
	config   *config.MetricsConfig
	enabled  bool
	registry *prometheus.Registry

	sessionMetrics  *SessionMetrics
	upstreamMetrics *UpstreamMetrics
}

// NewCollector creates a metrics collector. If registry is nil a new
// registry is created.
//
// Example:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = config.DefaultMetricsNamespace
	}
	buckets := cfg.SessionDurationBuckets
	if len(buckets) == 0 {
		buckets = config.DefaultSessionDurationBuckets
	}

	return &Collector{
		config:          cfg,
		enabled:         cfg.Enabled == nil || *cfg.Enabled,
		registry:        registry,
		sessionMetrics:  NewSessionMetrics(namespace, buckets, registry),
		upstreamMetrics: NewUpstreamMetrics(namespace, registry),
	}
}

// Registry returns the Prometheus registry backing the collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Enabled reports whether metrics are recorded.
func (c *Collector) Enabled() bool {
	return c.enabled
}

// SessionOpened records an admitted streaming session.
func (c *Collector) SessionOpened(video bool) {
	if !c.enabled {
		return
	}
	c.sessionMetrics.active.WithLabelValues(trafficClass(video)).Inc()
}

// SessionClosed records a finished streaming session.
//
// Parameters:
//   - video: whether the session served a playlist or segment
//   - outcome: terminal outcome (e.g. "completed", "client_gone")
//   - duration: session lifetime
//   - redirects: redirect hops followed while resolving
//   - reconnects: stall reconnects performed
func (c *Collector) SessionClosed(video bool, outcome string, duration time.Duration, redirects, reconnects int) {
	if !c.enabled {
		return
	}
	class := trafficClass(video)
	c.sessionMetrics.active.WithLabelValues(class).Dec()
	c.sessionMetrics.total.WithLabelValues(class, outcome).Inc()
	c.sessionMetrics.duration.WithLabelValues(class).Observe(duration.Seconds())
	c.sessionMetrics.redirectHops.Observe(float64(redirects))
	if reconnects > 0 {
		c.upstreamMetrics.stallReconnects.Add(float64(reconnects))
	}
}

// RecordBytes records n bytes relayed to clients.
func (c *Collector) RecordBytes(video bool, n int) {
	if !c.enabled || n <= 0 {
		return
	}
	c.sessionMetrics.bytes.WithLabelValues(trafficClass(video)).Add(float64(n))
}

// RecordUpstreamStatus records the final upstream status of a request.
func (c *Collector) RecordUpstreamStatus(status int) {
	if !c.enabled || status <= 0 {
		return
	}
	c.upstreamMetrics.responses.WithLabelValues(StatusClass(status)).Inc()
}

// RecordUpstreamError records an upstream failure by kind
// (e.g. "upstream", "timeout", "redirect", "stall").
func (c *Collector) RecordUpstreamError(kind string) {
	if !c.enabled {
		return
	}
	c.upstreamMetrics.errors.WithLabelValues(kind).Inc()
}

// RecordPassthrough records a request relayed outside admission control.
func (c *Collector) RecordPassthrough(status int, duration time.Duration) {
	if !c.enabled {
		return
	}
	c.upstreamMetrics.passthrough.WithLabelValues(StatusClass(status)).Inc()
	c.upstreamMetrics.passthroughDuration.Observe(duration.Seconds())
}

// RegisterBandwidth exposes the aggregate bandwidth estimate as a gauge
// sampled on every scrape.
func (c *Collector) RegisterBandwidth(fn func() float64) {
	c.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: c.sessionMetrics.namespace,
			Name:      "bandwidth_bytes_per_second",
			Help:      "Smoothed aggregate relay bandwidth",
		},
		fn,
	))
}

func trafficClass(video bool) string {
	if video {
		return "video"
	}
	return "other"
}

// StatusClass maps a status code to its class label ("2xx", "3xx", ...).
// Zero maps to "none".
func StatusClass(status int) string {
	if status < 100 || status > 599 {
		return "none"
	}
	return strconv.Itoa(status/100) + "xx"
}
