package journal

import (
	"context"
	"io"
	"time"
)

// Record is the journal entry written when a relay session closes.
type Record struct {
	ID        string `json:"id"`         // UUID v4
	RequestID string `json:"request_id"` // X-Request-ID of the stream request
	SessionID uint64 `json:"session_id"` // Registry session id

	Identity      string `json:"identity,omitempty"` // User segment of the stream path
	ClientAddress string `json:"client_address"`     // Masked when configured
	Method        string `json:"method"`
	Path          string `json:"path"` // Credential segment masked
	Video         bool   `json:"video"`

	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`

	Bytes          int64  `json:"bytes"`
	Status         int    `json:"status"`          // Status sent to the client, 0 if none
	UpstreamStatus int    `json:"upstream_status"` // Last status seen from the origin
	Redirects      int    `json:"redirects"`
	Reconnects     int    `json:"reconnects"`
	Outcome        string `json:"outcome"`
	Error          string `json:"error,omitempty"`
}

// Query selects journal records. Zero fields do not filter.
type Query struct {
	Identity string     `json:"identity,omitempty"`
	Outcome  string     `json:"outcome,omitempty"`
	Since    *time.Time `json:"since,omitempty"` // Inclusive, on StartTime
	Until    *time.Time `json:"until,omitempty"` // Inclusive, on StartTime

	// Limit caps the result size. Default: 100
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`

	// SortOrder on StartTime: "asc" or "desc". Default: "desc"
	SortOrder string `json:"sort_order,omitempty"`
}

// DefaultQueryLimit applies when Query.Limit is zero.
const DefaultQueryLimit = 100

// Storage is a journal backend. Implementations must be safe for
// concurrent use.
type Storage interface {
	// Store persists one record.
	Store(ctx context.Context, record *Record) error

	// Query returns records matching q, newest first unless q asks otherwise.
	Query(ctx context.Context, q *Query) ([]*Record, error)

	// Count returns the number of records matching q, ignoring pagination.
	Count(ctx context.Context, q *Query) (int64, error)

	// Delete removes records that started before the given time.
	Delete(ctx context.Context, before time.Time) (int64, error)

	// Prune keeps only the newest keep records.
	Prune(ctx context.Context, keep int64) (int64, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// Exporter writes records in an interchange format.
type Exporter interface {
	Export(ctx context.Context, records []*Record, w io.Writer) error
}
