// Package server provides the HTTP server of the IPTV relay.
//
// This package ties the relay components together: it builds them from
// configuration, routes requests to the right handler and manages the
// listener lifecycle including graceful shutdown.
//
// # Basic Usage
//
//	cfg := config.GetConfig()
//
//	components, err := server.NewComponents(cfg, logger)
//	if err != nil {
//	    return err
//	}
//	components.WithJournal(store, rec)
//
//	srv := server.NewServer(cfg, components, server.BuildInfo{Version: Version})
//	if err := srv.Start(ctx); err != nil {
//	    return err
//	}
//
// # Routes
//
//	/healthz              liveness, plain "ok"
//	/readyz               readiness checks (upstream dial, journal ping)
//	/version              build information
//	/metrics              aggregate session snapshot (JSON)
//	/metrics/prometheus   Prometheus exposition
//	/sessions             most recent active sessions (JSON)
//	/sessions/feed        websocket session feed
//	/live/...             admitted streams, redirects resolved internally
//	everything else       passthrough to the origin
//
// All paths except the live prefix and "/" are configurable and matched
// exactly.
//
// # Middleware Chain
//
// Outermost first:
//
//  1. Recovery: converts panics to 500 before any byte, aborts otherwise
//  2. Request ID: reuses or generates X-Request-ID
//  3. Tracing: extracts W3C trace context
//  4. Logging: one line per request, credentials masked
//
// Admission wraps only the live prefix route.
//
// # Shutdown
//
// Shutdown stops accepting connections, cancels the base context of every
// in-flight request so long-lived streams and feeds end promptly, then
// waits for handlers to return within proxy.shutdown_timeout.
//
// # Server Timeouts
//
// The server sets ReadHeaderTimeout and IdleTimeout but no read or write
// timeout: streams run for hours and are bounded by the relay's own idle,
// stall and session duration limits instead.
package server
