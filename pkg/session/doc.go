// Package session tracks live relay sessions and process-wide traffic
// counters: total sessions, errors, bytes, an EWMA bandwidth estimate and a
// bounded ring of completed-session latencies for percentile estimates.
package session
