package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"mercator-hq/iptvrelay/pkg/proxy"
	"mercator-hq/iptvrelay/pkg/proxy/types"
)

// RecoveryMiddleware recovers from panics in handlers. Before the response
// is committed it answers 500 with a JSON error body; after that the
// connection is aborted. http.ErrAbortHandler is passed through untouched,
// it is how the relay cuts a stream that failed mid-body.
func RecoveryMiddleware(logger *slog.Logger, livePrefix string) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := newResponseWriter(w)
			defer func() {
				err := recover()
				if err == nil {
					return
				}
				if err == http.ErrAbortHandler {
					panic(err)
				}

				logger.ErrorContext(r.Context(), "panic in handler",
					"error", err,
					"method", r.Method,
					"path", proxy.MaskCredential(r.URL.Path, livePrefix),
					"stack", string(debug.Stack()),
				)

				if rw.written {
					panic(http.ErrAbortHandler)
				}
				_ = proxy.WriteErrorResponse(rw, types.NewServerError(
					"An internal error occurred. Please try again later.",
				))
			}()

			next.ServeHTTP(rw, r)
		})
	}
}
