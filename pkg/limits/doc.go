// Package limits implements admission control for live streams.
//
// A Controller holds two hard caps: a global number of concurrent streams
// and a number of concurrent streams per identity. Admission never waits;
// callers reject refused requests with a retry hint.
//
// # Usage
//
//	ctrl := limits.NewController(cfg.Limits.MaxStreams, cfg.Limits.MaxStreamsPerIdentity,
//	    limits.WithMetrics(limits.NewMetrics(registry, "iptvrelay")))
//
//	slot, reason := ctrl.TryAcquire(identity)
//	if slot == nil {
//	    // 429 with Retry-After; reason is "global" or "identity"
//	    return
//	}
//	defer slot.Release()
//
// Slot.Release is idempotent, so it can be attached to every exit path of a
// session without risking a double decrement.
//
// Identities are keyed on the user path segment alone. A client that varies
// the user segment is counted as a new identity and only the global cap
// applies to it.
package limits
