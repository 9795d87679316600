// Package tracing provides OpenTelemetry tracing for relay sessions.
//
// Each admitted stream gets one "relay.session" span. Redirect hops and stall
// reconnects are recorded as span events on it, and the final status,
// redirect count, reconnect count, byte count and outcome are set as
// attributes when the session closes.
//
// Spans are exported over OTLP gRPC. Inbound W3C traceparent headers are
// honored through ParentBased sampling:
//
//	telemetry:
//	  tracing:
//	    enabled: true
//	    sampler: ratio
//	    sample_ratio: 0.1
//	    endpoint: localhost:4317
//	    otlp:
//	      insecure: true
//
// When tracing is disabled a noop tracer is used and no exporter is created.
package tracing
