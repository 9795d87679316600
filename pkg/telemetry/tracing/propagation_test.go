package tracing

import (
	"context"
	"net/http"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func setPropagator(p propagation.TextMapPropagator) {
	otel.SetTextMapPropagator(p)
}

func TestExtractInjectRoundTrip(t *testing.T) {
	prev := Propagator()
	defer setPropagator(prev)
	setPropagator(propagation.TraceContext{})

	in := http.Header{}
	in.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	ctx := Extract(context.Background(), in)

	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() || !sc.IsSampled() {
		t.Fatalf("extracted span context invalid: %+v", sc)
	}

	out := http.Header{}
	Inject(ctx, out)
	if got := out.Get("traceparent"); got != in.Get("traceparent") {
		t.Errorf("traceparent = %q, want %q", got, in.Get("traceparent"))
	}
}
