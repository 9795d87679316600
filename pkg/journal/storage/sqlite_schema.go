package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema creates the session journal tables. Times are stored as Unix
// nanoseconds so both drivers read them back identically.
const Schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    request_id TEXT NOT NULL,
    session_id INTEGER NOT NULL,

    identity TEXT,
    client_address TEXT,
    method TEXT NOT NULL,
    path TEXT NOT NULL,
    video BOOLEAN NOT NULL,

    start_time INTEGER NOT NULL,
    end_time INTEGER NOT NULL,
    duration_ms INTEGER NOT NULL,

    bytes INTEGER NOT NULL,
    status INTEGER,
    upstream_status INTEGER,
    redirects INTEGER,
    reconnects INTEGER,
    outcome TEXT NOT NULL,
    error TEXT
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_start_time ON sessions(start_time);
CREATE INDEX IF NOT EXISTS idx_sessions_identity ON sessions(identity);
CREATE INDEX IF NOT EXISTS idx_sessions_outcome ON sessions(outcome);
`

// InsertSchemaVersion records the schema version once.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

const sessionColumns = `id, request_id, session_id,
    identity, client_address, method, path, video,
    start_time, end_time, duration_ms,
    bytes, status, upstream_status, redirects, reconnects, outcome, error`
