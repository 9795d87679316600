package main

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"mercator-hq/iptvrelay/pkg/cli"
	"mercator-hq/iptvrelay/pkg/config"
)

var validateFlags struct {
	quiet bool
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long: `Load configuration from the config file, environment and .env, apply
defaults and validate it. Every invalid field is reported. On success the
effective configuration is printed with secrets masked.

Examples:
  # Validate a config file
  iptvrelay validate --config config.yaml

  # Validate environment-only configuration (TARGET, MAX_STREAMS, ...)
  TARGET=http://origin.example iptvrelay validate --quiet`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVarP(&validateFlags.quiet, "quiet", "q", false, "do not print the effective configuration")
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig()
	if err != nil {
		var verr config.ValidationError
		if errors.As(err, &verr) {
			fmt.Fprintf(out, "✗ Configuration invalid (%d errors)\n", len(verr.Errors))
			for _, fe := range verr.Errors {
				fmt.Fprintf(out, "  - %s: %s\n", fe.Field, fe.Message)
			}
		}
		return err
	}

	fmt.Fprintln(out, "✓ Configuration valid")
	if validateFlags.quiet {
		return nil
	}

	data, err := yaml.Marshal(maskSecrets(cfg))
	if err != nil {
		return cli.NewCommandError("validate", err)
	}
	fmt.Fprintln(out)
	_, err = out.Write(data)
	return err
}

// maskSecrets returns a copy of cfg that is safe to print.
func maskSecrets(cfg *config.Config) *config.Config {
	masked := *cfg
	masked.Upstream.Target = redactedTarget(cfg.Upstream.Target)
	if masked.Journal.Redis.Password != "" {
		masked.Journal.Redis.Password = "****"
	}
	return &masked
}

func redactedTarget(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	return u.Redacted()
}
