package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mercator-hq/iptvrelay/pkg/config"
	"mercator-hq/iptvrelay/pkg/journal"
	"mercator-hq/iptvrelay/pkg/journal/storage"
)

// execute runs the root command with args and returns what it printed.
// Flag variables are reset first since cobra keeps them between runs.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cfgFile, logLevel = "", ""
	validateFlags.quiet = false
	listFlags.queryFlags = queryFlags{}
	listFlags.limit, listFlags.offset, listFlags.output = 50, 0, "text"
	exportFlags.queryFlags = queryFlags{}
	exportFlags.format, exportFlags.file = "csv", ""
	pruneFlags.days, pruneFlags.maxRecords = 0, 0

	for _, key := range []string{"TARGET", "IPTVRELAY_UPSTREAM_TARGET", "IPTVRELAY_JOURNAL_BACKEND"} {
		t.Setenv(key, "")
	}

	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// journalFixture writes a config file pointing at a fresh SQLite journal
// and stores records in it.
func journalFixture(t *testing.T, records ...*journal.Record) string {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sessions.db")
	cfgPath := writeFile(t, dir, "config.yaml", fmt.Sprintf(`
upstream:
  target: "http://origin.example"
journal:
  enabled: true
  backend: sqlite
  sqlite:
    path: %q
  retention:
    days: 30
`, dbPath))

	cfg := &config.Config{}
	cfg.Journal.Backend = storage.BackendSQLite
	cfg.Journal.SQLite.Path = dbPath
	config.ApplyDefaults(cfg)

	ctx := context.Background()
	store, err := storage.New(ctx, &cfg.Journal)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer store.Close()
	for _, r := range records {
		if err := store.Store(ctx, r); err != nil {
			t.Fatalf("store: %v", err)
		}
	}
	return cfgPath
}

func record(id, identity, outcome string, age time.Duration) *journal.Record {
	start := time.Now().Add(-age).Truncate(time.Millisecond)
	return &journal.Record{
		ID:        id,
		SessionID: uint64(len(id)),
		Identity:  identity,
		Method:    "GET",
		Path:      "/live/" + identity + "/****/1.ts",
		Video:     true,
		StartTime: start,
		EndTime:   start.Add(time.Minute),
		Duration:  time.Minute,
		Bytes:     4096,
		Status:    200,
		Outcome:   outcome,
	}
}
