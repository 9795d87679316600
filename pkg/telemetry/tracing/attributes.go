package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for relay spans. Standard keys follow OpenTelemetry
// semantic conventions; relay specific keys use the "relay.*" namespace.
const (
	AttrHTTPMethod     = "http.method"
	AttrHTTPTarget     = "http.target"
	AttrHTTPStatusCode = "http.status_code"

	AttrRequestID  = "relay.request_id"
	AttrSessionID  = "relay.session_id"
	AttrIdentity   = "relay.identity"
	AttrVideo      = "relay.video"
	AttrRedirects  = "relay.redirects"
	AttrReconnects = "relay.reconnects"
	AttrBytes      = "relay.bytes"
	AttrOutcome    = "relay.outcome"
	AttrRejected   = "relay.admission.rejected"

	AttrErrorMessage = "error.message"
)

// SetSessionAttributes records the identity of a relay session on span.
// target must already have its credential masked.
func SetSessionAttributes(span trace.Span, requestID string, sessionID uint64, identity, method, target string, video bool) {
	span.SetAttributes(
		attribute.String(AttrRequestID, requestID),
		attribute.Int64(AttrSessionID, int64(sessionID)),
		attribute.String(AttrIdentity, identity),
		attribute.String(AttrHTTPMethod, method),
		attribute.String(AttrHTTPTarget, target),
		attribute.Bool(AttrVideo, video),
	)
}

// SetResultAttributes records how a relay session ended.
func SetResultAttributes(span trace.Span, status, redirects, reconnects int, bytes int64, outcome string) {
	attrs := []attribute.KeyValue{
		attribute.Int(AttrRedirects, redirects),
		attribute.Int(AttrReconnects, reconnects),
		attribute.Int64(AttrBytes, bytes),
		attribute.String(AttrOutcome, outcome),
	}
	if status > 0 {
		attrs = append(attrs, attribute.Int(AttrHTTPStatusCode, status))
	}
	span.SetAttributes(attrs...)
}
