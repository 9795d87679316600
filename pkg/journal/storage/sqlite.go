package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"mercator-hq/iptvrelay/pkg/journal"
)

// SQLite driver names registered by the imported drivers.
const (
	DriverModernc = "sqlite"  // modernc.org/sqlite, pure Go
	DriverMattn   = "sqlite3" // github.com/mattn/go-sqlite3, cgo
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path, or ":memory:".
	Path string

	// Driver is DriverModernc or DriverMattn.
	// Default: DriverModernc
	Driver string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 4
	MaxOpenConns int

	// WALMode enables Write-Ahead Logging.
	// Default: true
	WALMode bool

	// BusyTimeout is how long a writer waits on a locked database.
	// Default: 5s
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/sessions.db",
		Driver:       DriverModernc,
		MaxOpenConns: 4,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements journal.Storage on SQLite through either driver.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage opens the database, applies pragmas and creates the
// schema.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if config.Driver == "" {
		config.Driver = DriverModernc
	}
	if config.Driver != DriverModernc && config.Driver != DriverMattn {
		return nil, journal.NewStorageError("sqlite", "open", fmt.Errorf("unknown driver %q", config.Driver))
	}
	if config.MaxOpenConns <= 0 {
		config.MaxOpenConns = 4
	}

	logger := slog.Default().With("component", "journal.storage.sqlite")

	db, err := sql.Open(config.Driver, config.Path)
	if err != nil {
		return nil, journal.NewStorageError("sqlite", "open", err)
	}
	// An in-memory database exists per connection.
	if config.Path == ":memory:" {
		config.MaxOpenConns = 1
	}
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxOpenConns)

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: logger,
	}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite journal initialized",
		"path", config.Path,
		"driver", config.Driver,
		"wal_mode", config.WALMode,
	)
	return s, nil
}

// initialize applies pragmas, creates the schema and checks its version.
func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode && s.config.Path != ":memory:" {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return journal.NewStorageError("sqlite", "enable_wal", err)
		}
	}

	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())); err != nil {
		return journal.NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return journal.NewStorageError("sqlite", "create_schema", err)
	}
	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return journal.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	if err := s.db.QueryRow(GetSchemaVersion).Scan(&version); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return journal.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return journal.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}
	return nil
}

// Store persists one record.
func (s *SQLiteStorage) Store(ctx context.Context, r *journal.Record) error {
	query := `INSERT INTO sessions (` + sessionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var errorVal any
	if r.Error != "" {
		errorVal = r.Error
	}

	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.RequestID, int64(r.SessionID),
		r.Identity, r.ClientAddress, r.Method, r.Path, r.Video,
		r.StartTime.UnixNano(), r.EndTime.UnixNano(), r.Duration.Milliseconds(),
		r.Bytes, r.Status, r.UpstreamStatus, r.Redirects, r.Reconnects, r.Outcome, errorVal,
	)
	if err != nil {
		return journal.NewStorageError("sqlite", "store", err)
	}
	return nil
}

// Query retrieves records matching q.
func (s *SQLiteStorage) Query(ctx context.Context, q *journal.Query) ([]*journal.Record, error) {
	if q == nil {
		q = &journal.Query{}
	}
	where, args := buildWhereClause(q)

	sqlQuery := "SELECT " + sessionColumns + " FROM sessions" + where
	order := "DESC"
	if strings.EqualFold(q.SortOrder, "asc") {
		order = "ASC"
	}
	sqlQuery += " ORDER BY start_time " + order

	limit := journal.DefaultQueryLimit
	if q.Limit > 0 {
		limit = q.Limit
	}
	sqlQuery += " LIMIT ? OFFSET ?"
	args = append(args, limit, q.Offset)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, journal.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	records := []*journal.Record{}
	for rows.Next() {
		record, err := scanRow(rows)
		if err != nil {
			return nil, journal.NewStorageError("sqlite", "scan", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, journal.NewStorageError("sqlite", "query", err)
	}
	return records, nil
}

// Count returns the number of records matching q.
func (s *SQLiteStorage) Count(ctx context.Context, q *journal.Query) (int64, error) {
	where, args := buildWhereClause(q)

	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sessions"+where, args...).Scan(&count); err != nil {
		return 0, journal.NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// Delete removes records that started before the given time.
func (s *SQLiteStorage) Delete(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE start_time < ?", before.UnixNano())
	if err != nil {
		return 0, journal.NewStorageError("sqlite", "delete", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, journal.NewStorageError("sqlite", "delete", err)
	}
	return n, nil
}

// Prune keeps the newest keep records.
func (s *SQLiteStorage) Prune(ctx context.Context, keep int64) (int64, error) {
	if keep < 0 {
		return 0, nil
	}
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM sessions WHERE id NOT IN (
			SELECT id FROM sessions ORDER BY start_time DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, journal.NewStorageError("sqlite", "prune", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, journal.NewStorageError("sqlite", "prune", err)
	}
	return n, nil
}

// Ping checks the database connection.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return journal.NewStorageError("sqlite", "ping", err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return journal.NewStorageError("sqlite", "close", err)
	}
	s.logger.Info("SQLite journal closed")
	return nil
}

// buildWhereClause returns " WHERE ..." (or "") and its arguments.
func buildWhereClause(q *journal.Query) (string, []any) {
	if q == nil {
		return "", nil
	}
	var conditions []string
	var args []any

	if q.Identity != "" {
		conditions = append(conditions, "identity = ?")
		args = append(args, q.Identity)
	}
	if q.Outcome != "" {
		conditions = append(conditions, "outcome = ?")
		args = append(args, q.Outcome)
	}
	if q.Since != nil {
		conditions = append(conditions, "start_time >= ?")
		args = append(args, q.Since.UnixNano())
	}
	if q.Until != nil {
		conditions = append(conditions, "start_time <= ?")
		args = append(args, q.Until.UnixNano())
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// scanRow scans one sessions row.
func scanRow(rows *sql.Rows) (*journal.Record, error) {
	var r journal.Record
	var sessionID, start, end, durationMS int64
	var identity, client, errorVal sql.NullString
	var status, upstreamStatus, redirects, reconnects sql.NullInt64

	err := rows.Scan(
		&r.ID, &r.RequestID, &sessionID,
		&identity, &client, &r.Method, &r.Path, &r.Video,
		&start, &end, &durationMS,
		&r.Bytes, &status, &upstreamStatus, &redirects, &reconnects, &r.Outcome, &errorVal,
	)
	if err != nil {
		return nil, err
	}

	r.SessionID = uint64(sessionID)
	r.Identity = identity.String
	r.ClientAddress = client.String
	r.StartTime = time.Unix(0, start).UTC()
	r.EndTime = time.Unix(0, end).UTC()
	r.Duration = time.Duration(durationMS) * time.Millisecond
	r.Status = int(status.Int64)
	r.UpstreamStatus = int(upstreamStatus.Int64)
	r.Redirects = int(redirects.Int64)
	r.Reconnects = int(reconnects.Int64)
	r.Error = errorVal.String
	return &r, nil
}
