package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of structured environment overrides.
const EnvPrefix = "IPTVRELAY_"

// LoadConfig loads configuration from a YAML file at the specified path.
// An empty path loads defaults only. It applies default values, validates
// the configuration, and returns any errors. Environment variables are not
// consulted; use LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from an optional YAML file
// and applies environment variable overrides. A .env file in the working
// directory is read first and never overrides variables already set.
//
// The loading sequence is:
// 1. Load .env into the process environment
// 2. Load YAML from file (if path is not empty)
// 3. Apply environment variable overrides
// 4. Apply overrides (command-line flags)
// 5. Apply default values
// 6. Validate final configuration
func LoadConfigWithEnvOverrides(path string, overrides ...func(*Config)) (*Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}

	cfg, err := load(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	for _, override := range overrides {
		override(cfg)
	}
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// LoadDotEnv loads the given env files. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load env file %q: %w", p, err)
		}
	}
	return nil
}

func load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	ApplyDefaults(&cfg)
	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Structured names use the format IPTVRELAY_SECTION_FIELD. The flat names of
// the original deployment (TARGET, PORT, MAX_STREAMS, ...) are honoured too
// and lose to the structured form when both are set.
func applyEnvOverrides(cfg *Config) {
	applyLegacyEnv(cfg)

	// Proxy overrides
	envString(EnvPrefix+"PROXY_LISTEN_ADDRESS", &cfg.Proxy.ListenAddress)
	envDuration(EnvPrefix+"PROXY_READ_HEADER_TIMEOUT", &cfg.Proxy.ReadHeaderTimeout)
	envDuration(EnvPrefix+"PROXY_IDLE_TIMEOUT", &cfg.Proxy.IdleTimeout)
	envDuration(EnvPrefix+"PROXY_SHUTDOWN_TIMEOUT", &cfg.Proxy.ShutdownTimeout)

	// Upstream overrides
	envString(EnvPrefix+"UPSTREAM_TARGET", &cfg.Upstream.Target)
	if val := os.Getenv(EnvPrefix + "UPSTREAM_INSECURE_SKIP_VERIFY"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Upstream.InsecureSkipVerify = boolPtr(b)
		}
	}
	envDuration(EnvPrefix+"UPSTREAM_DIAL_TIMEOUT", &cfg.Upstream.DialTimeout)
	envDuration(EnvPrefix+"UPSTREAM_VIDEO_HEADER_TIMEOUT", &cfg.Upstream.VideoHeaderTimeout)
	envDuration(EnvPrefix+"UPSTREAM_API_HEADER_TIMEOUT", &cfg.Upstream.APIHeaderTimeout)

	// Limits overrides
	envInt(EnvPrefix+"LIMITS_MAX_STREAMS", &cfg.Limits.MaxStreams)
	envInt(EnvPrefix+"LIMITS_MAX_STREAMS_PER_IDENTITY", &cfg.Limits.MaxStreamsPerIdentity)
	envDuration(EnvPrefix+"LIMITS_RETRY_AFTER", &cfg.Limits.RetryAfter)
	envInt(EnvPrefix+"LIMITS_REJECT_STATUS", &cfg.Limits.RejectStatus)

	// Relay overrides
	envInt(EnvPrefix+"RELAY_MAX_REDIRECTS", &cfg.Relay.MaxRedirects)
	envDuration(EnvPrefix+"RELAY_CLIENT_IDLE_TIMEOUT", &cfg.Relay.ClientIdleTimeout)
	envDuration(EnvPrefix+"RELAY_UPSTREAM_STALL_TIMEOUT", &cfg.Relay.UpstreamStallTimeout)
	envInt(EnvPrefix+"RELAY_UPSTREAM_STALL_MAX", &cfg.Relay.UpstreamStallMax)
	envDuration(EnvPrefix+"RELAY_MAX_SESSION_DURATION", &cfg.Relay.MaxSessionDuration)

	// Journal overrides
	if val := os.Getenv(EnvPrefix + "JOURNAL_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Journal.Enabled = b
		}
	}
	envString(EnvPrefix+"JOURNAL_BACKEND", &cfg.Journal.Backend)
	envString(EnvPrefix+"JOURNAL_SQLITE_PATH", &cfg.Journal.SQLite.Path)
	envString(EnvPrefix+"JOURNAL_SQLITE_DRIVER", &cfg.Journal.SQLite.Driver)
	envString(EnvPrefix+"JOURNAL_REDIS_ADDR", &cfg.Journal.Redis.Addr)
	envString(EnvPrefix+"JOURNAL_REDIS_PASSWORD", &cfg.Journal.Redis.Password)
	envInt(EnvPrefix+"JOURNAL_RETENTION_DAYS", &cfg.Journal.Retention.Days)

	// Telemetry overrides
	envString(EnvPrefix+"TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString(EnvPrefix+"TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	if val := os.Getenv(EnvPrefix + "TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = boolPtr(b)
		}
	}
	if val := os.Getenv(EnvPrefix + "TELEMETRY_TRACING_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Tracing.Enabled = b
		}
	}
	envString(EnvPrefix+"TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	if val := os.Getenv(EnvPrefix + "TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}
}

// applyLegacyEnv maps the flat variable names used by earlier deployments.
func applyLegacyEnv(cfg *Config) {
	envString("TARGET", &cfg.Upstream.Target)
	if val := os.Getenv("PORT"); val != "" {
		if _, err := strconv.Atoi(val); err == nil {
			cfg.Proxy.ListenAddress = ":" + val
		}
	}
	envInt("MAX_STREAMS", &cfg.Limits.MaxStreams)
	envInt("MAX_STREAMS_PER_USER", &cfg.Limits.MaxStreamsPerIdentity)
	envMillis("CLIENT_IDLE_TIMEOUT_MS", &cfg.Relay.ClientIdleTimeout)
	envMillis("UPSTREAM_STALL_MS", &cfg.Relay.UpstreamStallTimeout)
	envInt("UPSTREAM_STALL_MAX", &cfg.Relay.UpstreamStallMax)
	envMillis("MAX_SESSION_MS", &cfg.Relay.MaxSessionDuration)
	envInt("MAX_REDIRECTS", &cfg.Relay.MaxRedirects)
}

func envString(key string, dst *string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

func envMillis(key string, dst *time.Duration) {
	if val := os.Getenv(key); val != "" {
		if ms, err := strconv.ParseInt(val, 10, 64); err == nil {
			*dst = time.Duration(ms) * time.Millisecond
		}
	}
}
