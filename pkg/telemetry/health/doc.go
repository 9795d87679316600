// Package health provides the relay's probe endpoints.
//
//   - liveness (default /healthz): 200 "ok" in plain text while the process runs
//   - readiness (default /readyz): runs registered checks, 200 or 503 with JSON
//   - /version: build information
//
// Readiness checks are registered by name:
//
//	checker := health.New(2 * time.Second)
//	checker.RegisterCheck("journal", store.Ping)
//	checker.RegisterCheck("upstream", health.DialCheck("origin.example:80"))
//
// Checks run concurrently, each bounded by the checker timeout. Liveness
// never runs checks.
package health
