package metrics

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// scrapeTimeout bounds one collection. The bandwidth gauge reads the session
// registry under its lock, so a scrape must never hang on it.
const scrapeTimeout = 10 * time.Second

// Handler returns the Prometheus exposition handler for the collector's
// registry, mounted at telemetry.metrics.path (default "/metrics/prometheus";
// "/metrics" serves the JSON stats snapshot).
//
// Scrapes are counted in promhttp_metric_handler_requests_total on the same
// registry. Collection errors are logged and the remaining metrics are
// still served.
func (c *Collector) Handler() http.Handler {
	opts := promhttp.HandlerOpts{
		EnableOpenMetrics:   true,
		Timeout:             scrapeTimeout,
		MaxRequestsInFlight: 4,
		ErrorHandling:       promhttp.ContinueOnError,
		ErrorLog:            slog.NewLogLogger(slog.Default().Handler(), slog.LevelWarn),
	}
	return promhttp.InstrumentMetricHandler(c.registry, promhttp.HandlerFor(c.registry, opts))
}
