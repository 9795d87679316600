package logging

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// Context keys for common log fields.
type contextKey string

const (
	// RequestIDKey is the context key for request IDs.
	RequestIDKey contextKey = "request_id"

	// IdentityKey is the context key for the streaming identity.
	IdentityKey contextKey = "identity"

	// SessionKey is the context key for session identifiers.
	SessionKey contextKey = "session_id"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithIdentity adds the streaming identity to the context.
func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}

// GetIdentity retrieves the streaming identity from the context.
func GetIdentity(ctx context.Context) string {
	if identity, ok := ctx.Value(IdentityKey).(string); ok {
		return identity
	}
	return ""
}

// WithSession adds a session ID to the context.
func WithSession(ctx context.Context, id uint64) context.Context {
	return context.WithValue(ctx, SessionKey, id)
}

// GetSession retrieves the session ID from the context. Zero means none.
func GetSession(ctx context.Context) uint64 {
	if id, ok := ctx.Value(SessionKey).(uint64); ok {
		return id
	}
	return 0
}

// extractContextFields extracts common fields from context for logging,
// including the trace and span of an active OpenTelemetry span.
func extractContextFields(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}
	var fields []any

	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, "request_id", requestID)
	}
	if identity := GetIdentity(ctx); identity != "" {
		fields = append(fields, "identity", identity)
	}
	if id := GetSession(ctx); id != 0 {
		fields = append(fields, "session_id", id)
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			"trace_id", sc.TraceID().String(),
			"span_id", sc.SpanID().String(),
		)
	}

	return fields
}
