package middleware

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"mercator-hq/iptvrelay/pkg/limits"
	"mercator-hq/iptvrelay/pkg/proxy"
	"mercator-hq/iptvrelay/pkg/proxy/types"
	"mercator-hq/iptvrelay/pkg/telemetry/logging"
)

// Rate limit response headers.
const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitScope     = "X-RateLimit-Scope"
	HeaderRetryAfter         = "Retry-After"
)

// AdmissionConfig configures AdmissionMiddleware.
type AdmissionConfig struct {
	// LivePrefix is the path prefix identities are parsed from.
	LivePrefix string

	// RetryAfter is the hint sent with rejections. Rounded up to whole seconds.
	RetryAfter time.Duration

	// RejectStatus is 429 or 503. Defaults to 429.
	RejectStatus int

	Logger *slog.Logger
}

// AdmissionMiddleware reserves a stream slot before the request reaches the
// relay. Rejected requests get a JSON error with Retry-After and never reach
// the upstream. Admitted requests carry their slot in the context; the slot
// is released when the handler returns at the latest, and handlers may
// release it earlier because Slot.Release is idempotent.
//
// A path without a parseable identity is anonymous. It is forwarded without
// a slot and counts against neither cap.
func AdmissionMiddleware(ctrl *limits.Controller, cfg AdmissionConfig) func(http.Handler) http.Handler {
	status := cfg.RejectStatus
	if status != http.StatusServiceUnavailable {
		status = http.StatusTooManyRequests
	}
	retryAfter := int(math.Ceil(cfg.RetryAfter.Seconds()))
	if retryAfter < 1 {
		retryAfter = 1
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := proxy.ExtractIdentity(r.URL.Path, cfg.LivePrefix)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			slot, reason := ctrl.TryAcquire(id.User)
			if slot == nil {
				reject(w, r, ctrl, id.User, reason, status, retryAfter, logger)
				return
			}
			defer slot.Release()

			ctx := context.WithValue(r.Context(), SlotKey, slot)
			ctx = logging.WithIdentity(ctx, id.User)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func reject(w http.ResponseWriter, r *http.Request, ctrl *limits.Controller, identity string, reason limits.Reason, status, retryAfter int, logger *slog.Logger) {
	global, perIdentity := ctrl.Limits()

	h := w.Header()
	h.Set(HeaderRetryAfter, strconv.Itoa(retryAfter))
	h.Set(HeaderRateLimitScope, string(reason))

	var errResp *types.ErrorResponse
	if reason == limits.ReasonIdentity {
		h.Set(HeaderRateLimitLimit, strconv.Itoa(perIdentity))
		h.Set(HeaderRateLimitRemaining, "0")
		errResp = types.NewRateLimitError("stream limit reached for this account", retryAfter)
	} else {
		h.Set(HeaderRateLimitLimit, strconv.Itoa(global))
		h.Set(HeaderRateLimitRemaining, "0")
		errResp = types.NewCapacityError("relay is at stream capacity", status, retryAfter)
	}

	logger.WarnContext(r.Context(), "stream rejected",
		"identity", identity,
		"reason", string(reason),
		"active", ctrl.Active(),
		"identity_active", ctrl.ActiveFor(identity),
	)

	status = statusFor(reason, status)
	_ = proxy.WriteJSONResponse(w, status, errResp)
}

// statusFor returns the rejection status. Per-identity rejections are always
// 429; global saturation uses the configured status.
func statusFor(reason limits.Reason, configured int) int {
	if reason == limits.ReasonIdentity {
		return http.StatusTooManyRequests
	}
	return configured
}
