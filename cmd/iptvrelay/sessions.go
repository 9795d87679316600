package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/iptvrelay/pkg/cli"
	"mercator-hq/iptvrelay/pkg/config"
	"mercator-hq/iptvrelay/pkg/journal"
	"mercator-hq/iptvrelay/pkg/journal/export"
	"mercator-hq/iptvrelay/pkg/journal/retention"
	"mercator-hq/iptvrelay/pkg/journal/storage"
)

// exportBatchSize is the page size used when reading the journal for export.
const exportBatchSize = 500

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Query the session journal",
	Long: `Query, export and prune the journal of closed relay sessions.

The journal backend is taken from the journal section of the configuration.
The memory backend only lives inside a running relay and cannot be queried
from here.`,
}

// queryFlags are the filters shared by list and export.
type queryFlags struct {
	identity string
	outcome  string
	since    string
	until    string
}

func (f *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.identity, "identity", "", "filter by account (user path segment)")
	cmd.Flags().StringVar(&f.outcome, "outcome", "", "filter by outcome (completed, client_gone, upstream_error, ...)")
	cmd.Flags().StringVar(&f.since, "since", "", "start time: RFC 3339, YYYY-MM-DD or a duration ago (24h)")
	cmd.Flags().StringVar(&f.until, "until", "", "end time: RFC 3339, YYYY-MM-DD or a duration ago")
}

func (f *queryFlags) query(now time.Time) (*journal.Query, error) {
	q := &journal.Query{
		Identity: f.identity,
		Outcome:  f.outcome,
	}
	var err error
	if q.Since, err = parseTimeFlag(f.since, now); err != nil {
		return nil, cli.NewConfigError("--since", err.Error())
	}
	if q.Until, err = parseTimeFlag(f.until, now); err != nil {
		return nil, cli.NewConfigError("--until", err.Error())
	}
	if q.Since != nil && q.Until != nil && q.Until.Before(*q.Since) {
		return nil, cli.NewConfigError("--until", "must not be before --since")
	}
	return q, nil
}

var (
	listFlags struct {
		queryFlags
		limit  int
		offset int
		output string
	}

	exportFlags struct {
		queryFlags
		format string
		file   string
	}

	pruneFlags struct {
		days       int
		maxRecords int64
	}
)

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded sessions, newest first",
	Example: `  iptvrelay sessions list --since 24h
  iptvrelay sessions list --identity alice --outcome upstream_error -o json`,
	RunE: runSessionsList,
}

var sessionsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export recorded sessions as CSV or JSON",
	Example: `  iptvrelay sessions export --format csv --file sessions.csv
  iptvrelay sessions export --since 2026-01-01 --until 2026-01-31 --format json`,
	RunE: runSessionsExport,
}

var sessionsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Apply journal retention once",
	Long: `Delete journal records older than the retention period and trim the
journal to the configured maximum size. Flags override journal.retention.`,
	Example: `  iptvrelay sessions prune
  iptvrelay sessions prune --days 7 --max-records 100000`,
	RunE: runSessionsPrune,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd, sessionsExportCmd, sessionsPruneCmd)

	listFlags.register(sessionsListCmd)
	sessionsListCmd.Flags().IntVar(&listFlags.limit, "limit", 50, "maximum number of sessions")
	sessionsListCmd.Flags().IntVar(&listFlags.offset, "offset", 0, "number of sessions to skip")
	sessionsListCmd.Flags().StringVarP(&listFlags.output, "output", "o", "text", "output format (text, json, csv)")

	exportFlags.register(sessionsExportCmd)
	sessionsExportCmd.Flags().StringVarP(&exportFlags.format, "format", "f", "csv", "export format (csv, json)")
	sessionsExportCmd.Flags().StringVar(&exportFlags.file, "file", "", "output file (stdout when empty)")

	sessionsPruneCmd.Flags().IntVar(&pruneFlags.days, "days", 0, "retention in days (0 uses the configured value)")
	sessionsPruneCmd.Flags().Int64Var(&pruneFlags.maxRecords, "max-records", 0, "keep at most this many records (0 uses the configured value)")
}

// openStore loads configuration and opens the configured journal backend.
func openStore(ctx context.Context) (*config.Config, journal.Storage, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if cfg.Journal.Backend == storage.BackendMemory {
		return nil, nil, cli.NewConfigError("journal.backend", "the memory backend cannot be queried outside the relay")
	}
	store, err := storage.New(ctx, &cfg.Journal)
	if err != nil {
		return nil, nil, err
	}
	return cfg, store, nil
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(listFlags.output)
	if err != nil {
		return cli.NewConfigError("--output", err.Error())
	}
	q, err := listFlags.query(time.Now())
	if err != nil {
		return err
	}
	q.Limit = listFlags.limit
	q.Offset = listFlags.offset

	ctx := cmd.Context()
	_, store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.Query(ctx, q)
	if err != nil {
		return cli.NewCommandError("sessions list", err)
	}

	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), recordTable(records))
}

func recordTable(records []*journal.Record) *cli.Table {
	table := &cli.Table{
		Headers: []string{"STARTED", "SESSION", "IDENTITY", "PATH", "DURATION", "BYTES", "STATUS", "REDIRECTS", "RECONNECTS", "OUTCOME"},
		Rows:    make([][]string, 0, len(records)),
		Data:    records,
	}
	for _, r := range records {
		identity := r.Identity
		if identity == "" {
			identity = "-"
		}
		table.Rows = append(table.Rows, []string{
			r.StartTime.Local().Format(time.DateTime),
			strconv.FormatUint(r.SessionID, 10),
			identity,
			r.Path,
			r.Duration.Round(time.Millisecond).String(),
			strconv.FormatInt(r.Bytes, 10),
			strconv.Itoa(r.Status),
			strconv.Itoa(r.Redirects),
			strconv.Itoa(r.Reconnects),
			r.Outcome,
		})
	}
	return table
}

func runSessionsExport(cmd *cobra.Command, args []string) error {
	exporter, err := export.New(exportFlags.format)
	if err != nil {
		return cli.NewConfigError("--format", err.Error())
	}
	q, err := exportFlags.query(time.Now())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	_, store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	out := cmd.OutOrStdout()
	var progress cli.ProgressReporter
	if exportFlags.file != "" {
		f, err := os.Create(exportFlags.file)
		if err != nil {
			return cli.NewCommandError("sessions export", err)
		}
		defer f.Close()
		out = f
		progress = cli.NewProgressReporter(cmd.ErrOrStderr(), "Exporting")
	}

	records, err := readAll(ctx, store, q, progress)
	if err != nil {
		return cli.NewCommandError("sessions export", err)
	}
	if err := exporter.Export(ctx, records, out); err != nil {
		return cli.NewCommandError("sessions export", err)
	}

	if exportFlags.file != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Exported %d sessions to %s\n", len(records), exportFlags.file)
	}
	return nil
}

// readAll pages through every record matching q, oldest first.
func readAll(ctx context.Context, store journal.Storage, q *journal.Query, progress cli.ProgressReporter) ([]*journal.Record, error) {
	total, err := store.Count(ctx, q)
	if err != nil {
		return nil, err
	}
	if progress != nil {
		progress.Start(total)
	}

	page := *q
	page.SortOrder = "asc"
	page.Limit = exportBatchSize

	records := make([]*journal.Record, 0, total)
	for {
		batch, err := store.Query(ctx, &page)
		if err != nil {
			if progress != nil {
				progress.Error(err)
			}
			return nil, err
		}
		records = append(records, batch...)
		if progress != nil {
			progress.Update(int64(len(records)))
		}
		if len(batch) < page.Limit {
			break
		}
		page.Offset += len(batch)
	}

	if progress != nil {
		progress.Finish()
	}
	return records, nil
}

func runSessionsPrune(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	rc := retentionConfig(cfg)
	if pruneFlags.days > 0 {
		rc.RetentionDays = pruneFlags.days
	}
	if pruneFlags.maxRecords > 0 {
		rc.MaxRecords = pruneFlags.maxRecords
	}
	if rc.RetentionDays <= 0 && rc.MaxRecords <= 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Retention disabled, nothing to prune")
		return nil
	}

	deleted, err := retention.NewPruner(store, rc).Prune(ctx)
	if err != nil {
		return cli.NewCommandError("sessions prune", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Pruned %d sessions\n", deleted)
	return nil
}

// parseTimeFlag accepts RFC 3339, a date, or a duration meaning that long
// before now. An empty value means no bound.
func parseTimeFlag(s string, now time.Time) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, s, time.Local); err == nil {
		return &t, nil
	}
	if d, err := time.ParseDuration(s); err == nil && d >= 0 {
		t := now.Add(-d)
		return &t, nil
	}
	return nil, fmt.Errorf("invalid time %q", s)
}
