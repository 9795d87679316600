// iptvrelay is a streaming reverse proxy for IPTV origins.
//
// It sits between IPTV clients and a single origin, providing:
//   - Redirect resolution hidden from clients (anti-hotlink chains)
//   - Per-account and global concurrent stream limits
//   - Upstream stall detection with bounded reconnects
//   - Live session diagnostics, Prometheus metrics and tracing
//   - An optional journal of closed sessions (SQLite or Redis)
//
// Usage:
//
//	# Start the relay in front of an origin
//	iptvrelay run --target http://origin.example:8080
//
//	# Start with a configuration file
//	iptvrelay run --config /etc/iptvrelay/config.yaml
//
//	# Check configuration and print effective values
//	iptvrelay validate --config config.yaml
//
//	# Inspect the session journal
//	iptvrelay sessions list --identity alice --since 24h
//	iptvrelay sessions export --format csv --file sessions.csv
//	iptvrelay sessions prune --days 7
package main

func main() {
	Execute()
}
