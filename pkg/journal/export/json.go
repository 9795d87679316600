package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"mercator-hq/iptvrelay/pkg/journal"
)

// JSONExporter exports journal records as a JSON array.
type JSONExporter struct {
	// Pretty enables indentation.
	Pretty bool
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{Pretty: pretty}
}

// Export writes records to w. An empty set is written as [].
func (e *JSONExporter) Export(ctx context.Context, records []*journal.Record, w io.Writer) error {
	if records == nil {
		records = []*journal.Record{}
	}
	enc := json.NewEncoder(w)
	if e.Pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(records); err != nil {
		return journal.NewExportError("json", len(records), err)
	}
	return nil
}

// New returns the exporter for format, "csv" or "json".
func New(format string) (journal.Exporter, error) {
	switch format {
	case "csv":
		return NewCSVExporter(true), nil
	case "json", "":
		return NewJSONExporter(true), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q (valid: csv, json)", format)
	}
}
