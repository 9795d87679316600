package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"mercator-hq/iptvrelay/pkg/journal"
)

func records() []*journal.Record {
	start := time.Date(2026, 10, 19, 20, 0, 0, 0, time.UTC)
	return []*journal.Record{{
		ID:        "r1",
		SessionID: 3,
		Identity:  "alice",
		Method:    "GET",
		Path:      "/live/alice/***/1.ts",
		Video:     true,
		StartTime: start,
		EndTime:   start.Add(90 * time.Second),
		Duration:  90 * time.Second,
		Bytes:     4096,
		Status:    200,
		Redirects: 2,
		Outcome:   "completed",
		Error:     "a, quoted \"value\"",
	}}
}

func TestCSVExport(t *testing.T) {
	var buf bytes.Buffer
	if err := NewCSVExporter(true).Export(context.Background(), records(), &buf); err != nil {
		t.Fatal(err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want header + 1", len(rows))
	}
	if len(rows[0]) != len(csvHeader) || len(rows[1]) != len(csvHeader) {
		t.Fatalf("column count mismatch: %d/%d", len(rows[0]), len(rows[1]))
	}
	row := map[string]string{}
	for i, col := range rows[0] {
		row[col] = rows[1][i]
	}
	if row["duration_ms"] != "90000" || row["identity"] != "alice" || row["video"] != "true" {
		t.Errorf("row = %v", row)
	}
	if row["error"] != "a, quoted \"value\"" {
		t.Errorf("error column = %q", row["error"])
	}
}

func TestJSONExport(t *testing.T) {
	var buf bytes.Buffer
	if err := NewJSONExporter(false).Export(context.Background(), nil, &buf); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(buf.String()); got != "[]" {
		t.Errorf("empty export = %q, want []", got)
	}

	buf.Reset()
	if err := NewJSONExporter(true).Export(context.Background(), records(), &buf); err != nil {
		t.Fatal(err)
	}
	var decoded []journal.Record
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded) != 1 || decoded[0].Identity != "alice" || decoded[0].Bytes != 4096 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestNew(t *testing.T) {
	for _, format := range []string{"csv", "json", ""} {
		if _, err := New(format); err != nil {
			t.Errorf("New(%q) error = %v", format, err)
		}
	}
	if _, err := New("xml"); err == nil {
		t.Error("New(xml) succeeded")
	}
}

func TestExportCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewCSVExporter(false).Export(ctx, records(), &bytes.Buffer{}); err == nil {
		t.Error("Export with canceled context succeeded")
	}
}
