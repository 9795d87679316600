package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/iptvrelay/pkg/cli"
	"mercator-hq/iptvrelay/pkg/config"
	"mercator-hq/iptvrelay/pkg/journal"
	"mercator-hq/iptvrelay/pkg/journal/recorder"
	"mercator-hq/iptvrelay/pkg/journal/retention"
	"mercator-hq/iptvrelay/pkg/journal/storage"
	"mercator-hq/iptvrelay/pkg/server"
	"mercator-hq/iptvrelay/pkg/telemetry/logging"
	"mercator-hq/iptvrelay/pkg/telemetry/tracing"
)

var runFlags struct {
	listenAddress string
	target        string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the relay",
	Long: `Start the relay with the specified configuration.

The relay listens on the configured address, admits /live/ streams against
the configured limits and forwards everything else to the origin.

Examples:
  # Start in front of an origin using defaults
  iptvrelay run --target http://origin.example:8080

  # Start with a config file
  iptvrelay run --config /etc/iptvrelay/config.yaml

  # Override listen address
  iptvrelay run --listen 0.0.0.0:8080

  # Validate config without starting the relay
  iptvrelay run --dry-run`,
	RunE: runRelay,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVarP(&runFlags.target, "target", "t", "", "override upstream origin URL")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the relay")
}

func runOverrides(cfg *config.Config) {
	globalOverrides(cfg)
	if runFlags.listenAddress != "" {
		cfg.Proxy.ListenAddress = runFlags.listenAddress
	}
	if runFlags.target != "" {
		cfg.Upstream.Target = runFlags.target
	}
}

func runRelay(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if err := config.Initialize(cfgFile, runOverrides); err != nil {
		return cli.WrapConfigError(err)
	}
	cfg := config.MustGetConfig()

	logger, err := logging.New(logging.ConfigFrom(cfg))
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger.Slog())

	if runFlags.dryRun {
		fmt.Fprintln(out, "✓ Configuration valid")
		return nil
	}

	printBanner(out, cfg)

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	tracer, err := tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		return cli.NewConfigError("telemetry.tracing", err.Error())
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			slog.Warn("tracer shutdown failed", "error", err)
		}
	}()

	components, err := server.NewComponents(cfg, logger.Slog())
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	components.Tracer = tracer

	if cfg.Journal.Enabled {
		store, rec, err := openJournal(ctx, cfg)
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		defer store.Close()
		defer rec.Close()

		components.WithJournal(store, rec)
		fmt.Fprintf(out, "✓ Session journal initialized (%s)\n", cfg.Journal.Backend)
	}

	srv := server.NewServer(cfg, components, server.BuildInfo{
		Version:   Version,
		Commit:    GitCommit,
		BuildTime: BuildDate,
	})

	ln, err := net.Listen("tcp", cfg.Proxy.ListenAddress)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	addr := ln.Addr().String()
	tel := cfg.Telemetry
	fmt.Fprintln(out)
	fmt.Fprintf(out, "✓ Relay listening on %s\n", addr)
	fmt.Fprintf(out, "✓ Streams:  http://%s%s\n", addr, cfg.Relay.LivePrefix)
	fmt.Fprintf(out, "✓ Health:   http://%s%s\n", addr, tel.Health.ReadinessPath)
	fmt.Fprintf(out, "✓ Stats:    http://%s%s\n", addr, tel.Diagnostics.StatsPath)
	if cfg.MetricsEnabled() {
		fmt.Fprintf(out, "✓ Metrics:  http://%s%s\n", addr, tel.Metrics.Path)
	}
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	if err := srv.Serve(ctx, ln); err != nil {
		return cli.NewCommandError("run", err)
	}

	fmt.Fprintln(out, "✓ Relay stopped")
	return nil
}

// openJournal opens the configured backend, starts the recorder and, when a
// schedule is configured, the retention scheduler. The scheduler stops with
// ctx; the caller closes the recorder before the store.
func openJournal(ctx context.Context, cfg *config.Config) (journal.Storage, *recorder.Recorder, error) {
	jc := cfg.Journal
	slog.Info("initializing session journal", "backend", jc.Backend)

	store, err := storage.New(ctx, &jc)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open journal: %w", err)
	}

	rec := recorder.NewRecorder(store, &recorder.Config{
		AsyncBuffer:  jc.Recorder.AsyncBuffer,
		WriteTimeout: jc.Recorder.WriteTimeout,
	})

	if jc.Retention.Schedule != "" {
		pruner := retention.NewPruner(store, retentionConfig(cfg))
		scheduler := retention.NewScheduler(pruner)
		if err := scheduler.Start(ctx); err != nil {
			slog.Warn("failed to start retention scheduler", "error", err)
		} else if next := scheduler.NextRun(); next != nil {
			slog.Debug("journal retention scheduler started", "next_run", next)
		}
	}

	return store, rec, nil
}

func retentionConfig(cfg *config.Config) *retention.Config {
	return &retention.Config{
		RetentionDays: cfg.Journal.Retention.Days,
		PruneSchedule: cfg.Journal.Retention.Schedule,
		MaxRecords:    cfg.Journal.Retention.MaxRecords,
	}
}

func printBanner(out io.Writer, cfg *config.Config) {
	fmt.Fprintf(out, "iptvrelay v%s\n", Version)
	if cfgFile != "" {
		fmt.Fprintf(out, "Loading configuration from: %s\n", cfgFile)
	}
	fmt.Fprintln(out, "✓ Configuration loaded")
	fmt.Fprintf(out, "✓ Origin: %s\n", redactedTarget(cfg.Upstream.Target))

	slog.Debug("limits configured",
		"max_streams", cfg.Limits.MaxStreams,
		"max_streams_per_identity", cfg.Limits.MaxStreamsPerIdentity,
		"max_redirects", cfg.Relay.MaxRedirects,
	)
}
