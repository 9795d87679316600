package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"mercator-hq/iptvrelay/pkg/proxy"
)

// LoggingMiddleware logs every request with method, credential-masked path,
// status, bytes written and latency. The request ID comes from the context
// through the logging handler, so RequestIDMiddleware must run first.
//
// Log format (JSON):
//
//	{
//	  "time": "2026-10-19T10:30:00Z",
//	  "level": "INFO",
//	  "msg": "request completed",
//	  "request_id": "6f1c...",
//	  "method": "GET",
//	  "path": "/live/alice/***/1.ts",
//	  "status": 200,
//	  "bytes": 1880000,
//	  "latency_ms": 40250
//	}
func LoggingMiddleware(logger *slog.Logger, livePrefix string) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			startTime := time.Now()
			ctx := context.WithValue(r.Context(), StartTimeKey, startTime)
			path := proxy.MaskCredential(r.URL.Path, livePrefix)

			rw := newResponseWriter(w)

			logger.DebugContext(ctx, "request started",
				"method", r.Method,
				"path", path,
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)

			defer func() {
				level := slog.LevelInfo
				switch {
				case rw.statusCode >= 500:
					level = slog.LevelError
				case rw.statusCode >= 400:
					level = slog.LevelWarn
				}
				logger.Log(ctx, level, "request completed",
					"method", r.Method,
					"path", path,
					"status", rw.statusCode,
					"bytes", rw.bytes,
					"latency_ms", time.Since(startTime).Milliseconds(),
					"remote_addr", r.RemoteAddr,
				)
			}()

			next.ServeHTTP(rw, r.WithContext(ctx))
		})
	}
}
