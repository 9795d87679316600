package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"mercator-hq/iptvrelay/pkg/config"
	"mercator-hq/iptvrelay/pkg/journal"
	"mercator-hq/iptvrelay/pkg/proxy"
	"mercator-hq/iptvrelay/pkg/proxy/middleware"
	"mercator-hq/iptvrelay/pkg/session"
	"mercator-hq/iptvrelay/pkg/telemetry/logging"
	"mercator-hq/iptvrelay/pkg/telemetry/metrics"
	"mercator-hq/iptvrelay/pkg/telemetry/tracing"
)

// StreamDeps are the collaborators of a StreamHandler. Relay, Registry and
// Metrics are required.
type StreamDeps struct {
	Relay    *proxy.Relay
	Registry *session.Registry
	Metrics  *metrics.Collector
	Tracer   *tracing.Tracer
	Recorder Recorder
	Logger   *slog.Logger

	// LivePrefix is the path prefix identities are parsed from.
	LivePrefix string
}

// StreamHandler serves admitted live streams. It must sit behind
// middleware.AdmissionMiddleware, which reserves the slot this handler
// releases when the stream ends.
//
// Every request opens a registry session, relays through Relay.Stream and
// closes the session exactly once, whatever the outcome. A response that
// was committed but did not end cleanly is aborted so the client sees a
// truncated transfer instead of a silently short body.
type StreamHandler struct {
	deps StreamDeps
}

// NewStreamHandler creates a live stream handler.
func NewStreamHandler(deps StreamDeps) *StreamHandler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Tracer == nil {
		deps.Tracer, _ = tracing.New(&config.TracingConfig{}, "")
	}
	if deps.LivePrefix == "" {
		deps.LivePrefix = config.DefaultLivePrefix
	}
	return &StreamHandler{deps: deps}
}

// ServeHTTP implements http.Handler.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, _ := proxy.ExtractIdentity(r.URL.Path, h.deps.LivePrefix)
	video := proxy.IsVideoPath(r.URL.Path)
	maskedPath := proxy.MaskCredential(r.URL.Path, h.deps.LivePrefix)
	requestID := logging.GetRequestID(ctx)

	sess := h.deps.Registry.Open(session.OpenParams{
		RequestID:  requestID,
		Identity:   id.User,
		RemoteAddr: r.RemoteAddr,
		Path:       maskedPath,
		Video:      video,
	})
	h.deps.Metrics.SessionOpened(video)

	ctx = logging.WithSession(ctx, sess.ID)
	ctx, span := h.deps.Tracer.Start(ctx, "relay.stream", trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()
	tracing.SetSessionAttributes(span, requestID, sess.ID, id.User, r.Method, maskedPath, video)

	r = r.WithContext(ctx)
	res := h.deps.Relay.Stream(w, r, &sessionObserver{Session: sess, metrics: h.deps.Metrics})
	h.finish(r, sess, span, res)

	if res.ShouldAbort() {
		panic(http.ErrAbortHandler)
	}
}

// finish closes the session, releases the admission slot and emits the
// session's metrics, span attributes and journal record.
func (h *StreamHandler) finish(r *http.Request, sess *session.Session, span trace.Span, res proxy.Result) {
	ctx := r.Context()
	summary := h.deps.Registry.Close(sess, res.Outcome)
	middleware.GetSlot(ctx).Release()

	h.deps.Metrics.SessionClosed(summary.Video, string(summary.Outcome), summary.Duration, summary.Redirects, summary.Reconnects)
	h.deps.Metrics.RecordUpstreamStatus(summary.UpstreamStatus)
	if kind := upstreamErrorKind(res.Err); kind != "" {
		h.deps.Metrics.RecordUpstreamError(kind)
	}

	tracing.SetResultAttributes(span, res.Status, summary.Redirects, summary.Reconnects, summary.Bytes, string(summary.Outcome))
	if summary.Outcome.IsError() {
		tracing.SetError(span, res.Err)
	}

	level := slog.LevelInfo
	if summary.Outcome.IsError() {
		level = slog.LevelWarn
	}
	attrs := []any{
		"outcome", string(summary.Outcome),
		"status", res.Status,
		"upstream_status", summary.UpstreamStatus,
		"bytes", summary.Bytes,
		"redirects", summary.Redirects,
		"reconnects", summary.Reconnects,
		"duration_ms", summary.Duration.Milliseconds(),
	}
	if res.Err != nil {
		attrs = append(attrs, "error", res.Err)
	}
	h.deps.Logger.Log(ctx, level, "stream closed", attrs...)

	if h.deps.Recorder != nil {
		if err := h.deps.Recorder.Record(journal.FromSummary(summary, r.Method, res.Status, res.Err)); err != nil {
			h.deps.Logger.DebugContext(ctx, "journal record dropped", "error", err)
		}
	}
}

// upstreamErrorKind returns the metric label for an origin-side failure,
// or "" when err is nil or the client is at fault.
func upstreamErrorKind(err error) string {
	if err == nil {
		return ""
	}
	var re *proxy.RelayError
	if !errors.As(err, &re) {
		return string(proxy.KindUpstream)
	}
	if re.Kind == proxy.KindClient || re.Kind == proxy.KindExpired {
		return ""
	}
	return string(re.Kind)
}

// sessionObserver feeds relay progress into the session and the byte
// counter.
type sessionObserver struct {
	*session.Session
	metrics *metrics.Collector
}

func (o *sessionObserver) AddBytes(n int) {
	o.Session.AddBytes(n)
	o.metrics.RecordBytes(o.Video, n)
}
