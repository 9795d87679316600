package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/iptvrelay/pkg/cli"
	"mercator-hq/iptvrelay/pkg/config"
)

var (
	// Global flags
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "iptvrelay",
	Short: "IPTV streaming reverse proxy",
	Long: `iptvrelay relays IPTV streams from a single origin to clients.

It follows origin redirects internally so clients never see them, enforces
global and per-account stream limits, reconnects stalled upstream transfers
and exposes live session telemetry.

Configuration comes from an optional YAML file, IPTVRELAY_* environment
variables (a .env file in the working directory is read first) and flags.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the command's exit code.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults and environment only when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
}

// loadConfig loads configuration for commands that do not start the relay.
// Unlike run it does not install the process-wide configuration.
func loadConfig(overrides ...func(*config.Config)) (*config.Config, error) {
	overrides = append([]func(*config.Config){globalOverrides}, overrides...)
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile, overrides...)
	if err != nil {
		return nil, cli.WrapConfigError(err)
	}
	return cfg, nil
}

func globalOverrides(cfg *config.Config) {
	if logLevel != "" {
		cfg.Telemetry.Logging.Level = logLevel
	}
}
