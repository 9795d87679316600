package config

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "upstream.target").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateProxy(&cfg.Proxy)...)
	errs = append(errs, validateUpstream(&cfg.Upstream)...)
	errs = append(errs, validateLimits(&cfg.Limits)...)
	errs = append(errs, validateRelay(&cfg.Relay)...)
	errs = append(errs, validateSessions(&cfg.Sessions)...)
	errs = append(errs, validateJournal(&cfg.Journal)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func validateProxy(cfg *ProxyConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "proxy.listen_address",
			Message: "listen address is required",
		})
	}
	if cfg.ReadHeaderTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "proxy.read_header_timeout",
			Message: "read header timeout must be positive",
		})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "proxy.idle_timeout",
			Message: "idle timeout must be positive",
		})
	}
	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "proxy.max_header_bytes",
			Message: "max header bytes must be non-negative",
		})
	}

	return errs
}

func validateUpstream(cfg *UpstreamConfig) []FieldError {
	var errs []FieldError

	if cfg.Target == "" {
		errs = append(errs, FieldError{
			Field:   "upstream.target",
			Message: "upstream target is required",
		})
	} else {
		u, err := url.Parse(cfg.Target)
		switch {
		case err != nil:
			errs = append(errs, FieldError{
				Field:   "upstream.target",
				Message: fmt.Sprintf("invalid URL: %v", err),
			})
		case u.Scheme != "http" && u.Scheme != "https":
			errs = append(errs, FieldError{
				Field:   "upstream.target",
				Message: fmt.Sprintf("unsupported scheme %q: must be 'http' or 'https'", u.Scheme),
			})
		case u.Host == "":
			errs = append(errs, FieldError{
				Field:   "upstream.target",
				Message: "target must include a host",
			})
		}
	}

	if cfg.DialTimeout < 0 {
		errs = append(errs, FieldError{Field: "upstream.dial_timeout", Message: "dial timeout must be positive"})
	}
	if cfg.VideoHeaderTimeout < 0 {
		errs = append(errs, FieldError{Field: "upstream.video_header_timeout", Message: "header timeout must be positive"})
	}
	if cfg.APIHeaderTimeout < 0 {
		errs = append(errs, FieldError{Field: "upstream.api_header_timeout", Message: "header timeout must be positive"})
	}

	return errs
}

func validateLimits(cfg *LimitsConfig) []FieldError {
	var errs []FieldError

	if cfg.MaxStreams < 0 {
		errs = append(errs, FieldError{
			Field:   "limits.max_streams",
			Message: "max streams must be non-negative",
		})
	}
	if cfg.MaxStreamsPerIdentity < 0 {
		errs = append(errs, FieldError{
			Field:   "limits.max_streams_per_identity",
			Message: "max streams per identity must be non-negative",
		})
	}
	if cfg.MaxStreams > 0 && cfg.MaxStreamsPerIdentity > cfg.MaxStreams {
		errs = append(errs, FieldError{
			Field:   "limits.max_streams_per_identity",
			Message: fmt.Sprintf("per-identity cap (%d) exceeds global cap (%d)", cfg.MaxStreamsPerIdentity, cfg.MaxStreams),
		})
	}
	if cfg.RetryAfter < 0 {
		errs = append(errs, FieldError{
			Field:   "limits.retry_after",
			Message: "retry after must be positive",
		})
	}
	if cfg.RejectStatus != http.StatusTooManyRequests && cfg.RejectStatus != http.StatusServiceUnavailable {
		errs = append(errs, FieldError{
			Field:   "limits.reject_status",
			Message: fmt.Sprintf("invalid reject status %d: must be 429 or 503", cfg.RejectStatus),
		})
	}

	return errs
}

func validateRelay(cfg *RelayConfig) []FieldError {
	var errs []FieldError

	if !strings.HasPrefix(cfg.LivePrefix, "/") || !strings.HasSuffix(cfg.LivePrefix, "/") {
		errs = append(errs, FieldError{
			Field:   "relay.live_prefix",
			Message: "live prefix must start and end with /",
		})
	}
	if cfg.MaxRedirects < 0 || cfg.MaxRedirects > 20 {
		errs = append(errs, FieldError{
			Field:   "relay.max_redirects",
			Message: "max redirects must be between 0 and 20",
		})
	}
	if cfg.ClientIdleTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "relay.client_idle_timeout",
			Message: "client idle timeout must be positive",
		})
	}
	if cfg.APIIdleTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "relay.api_idle_timeout",
			Message: "api idle timeout must be positive",
		})
	}
	if cfg.MaxSessionDuration < time.Second {
		errs = append(errs, FieldError{
			Field:   "relay.max_session_duration",
			Message: "max session duration must be at least 1s",
		})
	}
	if cfg.BufferSize < 512 || cfg.BufferSize > 4*1024*1024 {
		errs = append(errs, FieldError{
			Field:   "relay.buffer_size",
			Message: "buffer size must be between 512 bytes and 4MiB",
		})
	}

	return errs
}

func validateSessions(cfg *SessionsConfig) []FieldError {
	var errs []FieldError

	if cfg.MaxListed < 0 {
		errs = append(errs, FieldError{Field: "sessions.max_listed", Message: "max listed must be non-negative"})
	}
	if cfg.LatencySamples < 1 {
		errs = append(errs, FieldError{Field: "sessions.latency_samples", Message: "latency samples must be at least 1"})
	}
	if cfg.BandwidthWindow < time.Second {
		errs = append(errs, FieldError{Field: "sessions.bandwidth_window", Message: "bandwidth window must be at least 1s"})
	}

	return errs
}

func validateJournal(cfg *JournalConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory":
	case "sqlite":
		if cfg.Enabled && cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{
				Field:   "journal.sqlite.path",
				Message: "sqlite path is required",
			})
		}
		if cfg.SQLite.Driver != "sqlite" && cfg.SQLite.Driver != "sqlite3" {
			errs = append(errs, FieldError{
				Field:   "journal.sqlite.driver",
				Message: fmt.Sprintf("invalid driver %q: must be 'sqlite' or 'sqlite3'", cfg.SQLite.Driver),
			})
		}
	case "redis":
		if cfg.Enabled && cfg.Redis.Addr == "" {
			errs = append(errs, FieldError{
				Field:   "journal.redis.addr",
				Message: "redis address is required",
			})
		}
		if cfg.Redis.MaxEntries < 0 {
			errs = append(errs, FieldError{
				Field:   "journal.redis.max_entries",
				Message: "max entries must be non-negative",
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "journal.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'memory', 'sqlite', or 'redis'", cfg.Backend),
		})
	}

	if cfg.Recorder.AsyncBuffer < 0 {
		errs = append(errs, FieldError{
			Field:   "journal.recorder.async_buffer",
			Message: "async buffer must be non-negative",
		})
	}
	if cfg.Retention.MaxRecords < 0 {
		errs = append(errs, FieldError{
			Field:   "journal.retention.max_records",
			Message: "max records must be non-negative",
		})
	}
	if cfg.Enabled && cfg.Retention.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Retention.Schedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "journal.retention.schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}

	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "tracing endpoint is required when tracing is enabled",
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1.0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}

	// Every served path must be absolute and unique.
	paths := []struct {
		field string
		value string
	}{
		{"telemetry.metrics.path", cfg.Metrics.Path},
		{"telemetry.health.liveness_path", cfg.Health.LivenessPath},
		{"telemetry.health.readiness_path", cfg.Health.ReadinessPath},
		{"telemetry.diagnostics.stats_path", cfg.Diagnostics.StatsPath},
		{"telemetry.diagnostics.sessions_path", cfg.Diagnostics.SessionsPath},
		{"telemetry.diagnostics.feed_path", cfg.Diagnostics.FeedPath},
	}
	seen := make(map[string]string, len(paths))
	for _, p := range paths {
		if !strings.HasPrefix(p.value, "/") {
			errs = append(errs, FieldError{Field: p.field, Message: "path must start with /"})
			continue
		}
		if other, dup := seen[p.value]; dup {
			errs = append(errs, FieldError{Field: p.field, Message: fmt.Sprintf("path %q already used by %s", p.value, other)})
			continue
		}
		seen[p.value] = p.field
	}

	if cfg.Health.CheckTimeout < 0 || cfg.Health.CheckTimeout > 60*time.Second {
		errs = append(errs, FieldError{
			Field:   "telemetry.health.check_timeout",
			Message: "check timeout must be between 0 and 60s",
		})
	}
	if cfg.Diagnostics.FeedInterval < 100*time.Millisecond {
		errs = append(errs, FieldError{
			Field:   "telemetry.diagnostics.feed_interval",
			Message: "feed interval must be at least 100ms",
		})
	}

	return errs
}
