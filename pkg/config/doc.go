// Package config provides configuration management for the IPTV relay.
//
// Configuration is assembled once at startup and is immutable afterwards.
// Values are applied in the following order (later overrides earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from an optional YAML file
//  3. A .env file in the working directory (never overrides the real environment)
//  4. Environment variable overrides
//  5. Validation (fails fast if invalid)
//
// # Environment Variable Overrides
//
// Structured variables follow the convention IPTVRELAY_SECTION_FIELD:
//
//   - IPTVRELAY_UPSTREAM_TARGET overrides upstream.target
//   - IPTVRELAY_LIMITS_MAX_STREAMS_PER_IDENTITY overrides limits.max_streams_per_identity
//   - IPTVRELAY_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// The flat names used by existing deployments are also accepted: TARGET,
// PORT, MAX_STREAMS, MAX_STREAMS_PER_USER, CLIENT_IDLE_TIMEOUT_MS,
// UPSTREAM_STALL_MS, UPSTREAM_STALL_MAX, MAX_SESSION_MS and MAX_REDIRECTS.
//
// # Example Configuration
//
//	upstream:
//	  target: "http://origin.example:8080"
//
//	limits:
//	  max_streams: 200
//	  max_streams_per_identity: 1
//
//	relay:
//	  max_redirects: 5
//	  client_idle_timeout: 8s
//	  upstream_stall_timeout: 10s
//	  upstream_stall_max: 2
//	  max_session_duration: 4h
//
//	journal:
//	  enabled: true
//	  backend: sqlite
//	  sqlite:
//	    path: data/sessions.db
package config
