// Package journal records one entry per closed relay session.
//
// The journal is the durable counterpart of the in-memory session registry:
// when a stream ends, the handler builds a Record from the session summary
// and hands it to the asynchronous recorder, which writes it to the
// configured Storage backend without blocking the stream.
//
// # Backends
//
//   - memory: process-local, for tests and ephemeral deployments
//   - sqlite: database/sql with either modernc.org/sqlite ("sqlite", pure Go)
//     or github.com/mattn/go-sqlite3 ("sqlite3", cgo), WAL mode
//   - redis: a capped list of JSON records plus a hash of counters
//
// # Subpackages
//
//   - storage: backends and the config-driven factory
//   - recorder: non-blocking async writer
//   - retention: age and count based pruning, cron scheduler
//   - export: CSV and JSON exporters used by "iptvrelay sessions export"
//
// # Configuration
//
//	journal:
//	  enabled: true
//	  backend: sqlite
//	  sqlite:
//	    path: data/sessions.db
//	    driver: sqlite
//	  retention:
//	    days: 30
//	    schedule: "0 3 * * *"
package journal
