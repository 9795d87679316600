// Package middleware provides the HTTP middleware around the relay handlers.
//
// The chain is applied outermost first:
//
//	handler = Recovery(RequestID(tracing.HTTPMiddleware(Logging(handler))))
//
// and live streams additionally pass through admission:
//
//	live = Admission(streamHandler)
//
// # Request ID
//
// RequestIDMiddleware reuses a client X-Request-ID or generates a UUID v4,
// stores it in the context for the logging handler and echoes it back.
//
// # Logging
//
// LoggingMiddleware logs one line per request. Stream credentials are masked
// in the logged path:
//
//	/live/alice/***/1.ts
//
// # Recovery
//
// RecoveryMiddleware converts handler panics into a 500 JSON error when
// nothing has been written yet. http.ErrAbortHandler is re-panicked so the
// server drops the connection of a stream that failed mid-body.
//
// # Admission
//
// AdmissionMiddleware reserves a slot on the limits.Controller for every
// request that carries an identity; anonymous live paths pass through
// without one. Rejections
// answer 429 (per identity) or the configured 429/503 (global) with a JSON
// body and these headers:
//
//	Retry-After: 5
//	X-RateLimit-Limit: 1
//	X-RateLimit-Remaining: 0
//	X-RateLimit-Scope: identity
package middleware
