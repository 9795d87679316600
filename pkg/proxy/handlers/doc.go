// Package handlers provides the HTTP handlers mounted by the relay server.
//
// # Handler Types
//
// Relay handlers:
//   - StreamHandler: admitted /live/ streams. Opens a registry session,
//     relays through proxy.Relay.Stream and closes the session exactly once.
//   - PassthroughHandler: every other path. Plain forwarding through
//     proxy.Relay.Forward, no admission, redirects passed to the client.
//
// Diagnostic handlers:
//   - StatsHandler: aggregate snapshot (default /metrics)
//   - SessionsHandler: most recent active sessions (default /sessions)
//   - FeedHandler: websocket pushing both every feed interval
//     (default /sessions/feed)
//
// Liveness and readiness probes live in pkg/telemetry/health.
//
// # Stream Lifecycle
//
// For each admitted stream the handler:
//
//  1. Opens a session with the masked path and client address
//  2. Starts a "relay.stream" span carrying the session attributes
//  3. Relays; the session observes bytes, hops and reconnects
//  4. Closes the session, then releases the admission slot
//  5. Records metrics, span result and a journal record
//  6. Aborts the connection if the response was committed but failed
//
// # Error Handling
//
// Relay failures before the first byte reach the client as a plain-text
// "Proxy error" (502, or 504 for header timeouts). Diagnostic handlers
// answer with JSON:
//
//	{
//	  "error": {
//	    "message": "method not allowed",
//	    "type": "method_not_allowed"
//	  }
//	}
//
// # Live Feed
//
// Each feed message is a JSON object:
//
//	{"type":"snapshot","time":"...","stats":{...},"sessions":[...]}
//
// The feed is push only; inbound frames are read and discarded.
package handlers
