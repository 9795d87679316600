package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"mercator-hq/iptvrelay/pkg/config"
)

func testConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Namespace:              "test",
		SessionDurationBuckets: []float64{1, 10, 100},
	}
}

func TestCollector_SessionLifecycle(t *testing.T) {
	c := NewCollector(testConfig(), prometheus.NewRegistry())

	c.SessionOpened(true)
	c.SessionOpened(true)
	c.SessionOpened(false)

	if got := testutil.ToFloat64(c.sessionMetrics.active.WithLabelValues("video")); got != 2 {
		t.Errorf("active video = %v, want 2", got)
	}

	c.RecordBytes(true, 1000)
	c.RecordBytes(true, 0)
	c.SessionClosed(true, "completed", 3*time.Second, 2, 1)

	if got := testutil.ToFloat64(c.sessionMetrics.active.WithLabelValues("video")); got != 1 {
		t.Errorf("active video = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.sessionMetrics.total.WithLabelValues("video", "completed")); got != 1 {
		t.Errorf("sessions_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.sessionMetrics.bytes.WithLabelValues("video")); got != 1000 {
		t.Errorf("relayed bytes = %v, want 1000", got)
	}
	if got := testutil.ToFloat64(c.upstreamMetrics.stallReconnects); got != 1 {
		t.Errorf("stall reconnects = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(c.sessionMetrics.redirectHops); got != 1 {
		t.Errorf("redirect hop series = %d", got)
	}
}

func TestCollector_Upstream(t *testing.T) {
	c := NewCollector(testConfig(), nil)

	c.RecordUpstreamStatus(200)
	c.RecordUpstreamStatus(206)
	c.RecordUpstreamStatus(404)
	c.RecordUpstreamStatus(0)
	c.RecordUpstreamError("timeout")
	c.RecordPassthrough(302, 20*time.Millisecond)

	if got := testutil.ToFloat64(c.upstreamMetrics.responses.WithLabelValues("2xx")); got != 2 {
		t.Errorf("2xx = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.upstreamMetrics.responses.WithLabelValues("4xx")); got != 1 {
		t.Errorf("4xx = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.upstreamMetrics.errors.WithLabelValues("timeout")); got != 1 {
		t.Errorf("timeout errors = %v", got)
	}
	if got := testutil.ToFloat64(c.upstreamMetrics.passthrough.WithLabelValues("3xx")); got != 1 {
		t.Errorf("passthrough 3xx = %v", got)
	}
}

func TestCollector_Disabled(t *testing.T) {
	cfg := testConfig()
	off := false
	cfg.Enabled = &off
	c := NewCollector(cfg, nil)

	c.SessionOpened(true)
	c.RecordUpstreamStatus(200)

	if c.Enabled() {
		t.Error("Enabled() = true")
	}
	if got := testutil.ToFloat64(c.sessionMetrics.active.WithLabelValues("video")); got != 0 {
		t.Errorf("disabled collector recorded %v", got)
	}
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector(testConfig(), nil)
	c.RegisterBandwidth(func() float64 { return 1234 })
	c.SessionOpened(true)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics/prometheus", nil))

	body := rec.Body.String()
	for _, want := range []string{
		`test_sessions_active{class="video"} 1`,
		`test_bandwidth_bytes_per_second 1234`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestStatusClass(t *testing.T) {
	tests := map[int]string{200: "2xx", 302: "3xx", 503: "5xx", 0: "none", 700: "none"}
	for status, want := range tests {
		if got := StatusClass(status); got != want {
			t.Errorf("StatusClass(%d) = %s, want %s", status, got, want)
		}
	}
}
