package cli

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
)

func sampleTable() *Table {
	return &Table{
		Headers: []string{"ID", "IDENTITY", "BYTES"},
		Rows: [][]string{
			{"1", "alice", "1024"},
			{"2", "bob, jr", "0"},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"JSON", FormatJSON, false},
		{"csv", FormatCSV, false},
		{"junit", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTextFormatter(t *testing.T) {
	out, err := (&TextFormatter{}).Format("relay stopped")
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if string(out) != "relay stopped\n" {
		t.Errorf("Format() = %q", out)
	}
}

func TestTextFormatterTable(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := (&TextFormatter{}).FormatTo(buf, sampleTable()); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), buf.String())
	}
	col := strings.Index(lines[0], "IDENTITY")
	if col <= 0 || strings.Index(lines[1], "alice") != col {
		t.Errorf("columns are not aligned:\n%s", buf.String())
	}
}

func TestJSONFormatterTable(t *testing.T) {
	t.Run("rows keyed by header", func(t *testing.T) {
		out, err := (&JSONFormatter{}).Format(sampleTable())
		if err != nil {
			t.Fatalf("Format() error = %v", err)
		}
		var rows []map[string]string
		if err := json.Unmarshal(out, &rows); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(rows) != 2 || rows[1]["IDENTITY"] != "bob, jr" {
			t.Errorf("rows = %v", rows)
		}
	})

	t.Run("structured data wins", func(t *testing.T) {
		table := sampleTable()
		table.Data = map[string]int{"count": 2}
		buf := &bytes.Buffer{}
		if err := (&JSONFormatter{Indent: true}).FormatTo(buf, table); err != nil {
			t.Fatalf("FormatTo() error = %v", err)
		}
		var got map[string]int
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if got["count"] != 2 {
			t.Errorf("got %v", got)
		}
	})
}

func TestCSVFormatter(t *testing.T) {
	out, err := (&CSVFormatter{}).Format(sampleTable())
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	if len(records) != 3 || records[2][1] != "bob, jr" {
		t.Errorf("records = %v", records)
	}

	if _, err := (&CSVFormatter{}).Format("not a table"); err == nil {
		t.Error("Format() should reject non-tabular data")
	}
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		format OutputFormat
		want   string
	}{
		{FormatText, "*cli.TextFormatter"},
		{FormatJSON, "*cli.JSONFormatter"},
		{FormatCSV, "*cli.CSVFormatter"},
		{"unknown", "*cli.TextFormatter"},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			if got := fmt.Sprintf("%T", NewFormatter(tt.format)); got != tt.want {
				t.Errorf("NewFormatter(%q) type = %v, want %v", tt.format, got, tt.want)
			}
		})
	}
}
