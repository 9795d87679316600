package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"mercator-hq/iptvrelay/pkg/proxy"
	"mercator-hq/iptvrelay/pkg/telemetry/metrics"
)

// PassthroughHandler forwards requests outside the live prefix, such as
// /player_api.php or /movie/..., without admission or redirect following.
type PassthroughHandler struct {
	relay   *proxy.Relay
	metrics *metrics.Collector
	logger  *slog.Logger
}

// NewPassthroughHandler creates a passthrough handler.
func NewPassthroughHandler(relay *proxy.Relay, collector *metrics.Collector, logger *slog.Logger) *PassthroughHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PassthroughHandler{relay: relay, metrics: collector, logger: logger}
}

// ServeHTTP implements http.Handler.
func (h *PassthroughHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	res := h.relay.Forward(w, r, nil)
	h.metrics.RecordPassthrough(res.Status, time.Since(start))

	if res.Err != nil {
		h.logger.DebugContext(r.Context(), "passthrough ended with error",
			"outcome", string(res.Outcome),
			"status", res.Status,
			"error", res.Err,
		)
	}
	if res.ShouldAbort() {
		panic(http.ErrAbortHandler)
	}
}
