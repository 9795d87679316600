package export

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"mercator-hq/iptvrelay/pkg/journal"
)

// CSVExporter exports journal records as CSV.
type CSVExporter struct {
	// IncludeHeader writes a header row with column names.
	IncludeHeader bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{IncludeHeader: includeHeader}
}

var csvHeader = []string{
	"id", "request_id", "session_id", "identity", "client_address",
	"method", "path", "video", "start_time", "end_time", "duration_ms",
	"bytes", "status", "upstream_status", "redirects", "reconnects",
	"outcome", "error",
}

// Export writes records to w, one row each.
func (e *CSVExporter) Export(ctx context.Context, records []*journal.Record, w io.Writer) error {
	writer := csv.NewWriter(w)

	if e.IncludeHeader {
		if err := writer.Write(csvHeader); err != nil {
			return journal.NewExportError("csv", len(records), err)
		}
	}
	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return journal.NewExportError("csv", len(records), err)
		}
		if err := writer.Write(recordToRow(r)); err != nil {
			return journal.NewExportError("csv", len(records), err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return journal.NewExportError("csv", len(records), err)
	}
	return nil
}

func recordToRow(r *journal.Record) []string {
	return []string{
		r.ID,
		r.RequestID,
		strconv.FormatUint(r.SessionID, 10),
		r.Identity,
		r.ClientAddress,
		r.Method,
		r.Path,
		strconv.FormatBool(r.Video),
		r.StartTime.UTC().Format(time.RFC3339Nano),
		r.EndTime.UTC().Format(time.RFC3339Nano),
		strconv.FormatInt(r.Duration.Milliseconds(), 10),
		strconv.FormatInt(r.Bytes, 10),
		strconv.Itoa(r.Status),
		strconv.Itoa(r.UpstreamStatus),
		strconv.Itoa(r.Redirects),
		strconv.Itoa(r.Reconnects),
		r.Outcome,
		r.Error,
	}
}
