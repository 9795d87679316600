package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv blanks every variable the loader consults so the host
// environment cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TARGET", "PORT", "MAX_STREAMS", "MAX_STREAMS_PER_USER",
		"CLIENT_IDLE_TIMEOUT_MS", "UPSTREAM_STALL_MS", "UPSTREAM_STALL_MAX",
		"MAX_SESSION_MS", "MAX_REDIRECTS",
	} {
		t.Setenv(key, "")
	}
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, EnvPrefix) {
			t.Setenv(strings.SplitN(env, "=", 2)[0], "")
		}
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig_ValidFile(t *testing.T) {
	path := writeConfig(t, `
proxy:
  listen_address: "0.0.0.0:8080"

upstream:
  target: "http://origin.example:8000"
  video_header_timeout: "7s"

limits:
  max_streams: 10
  max_streams_per_identity: 1

relay:
  max_redirects: 3
  upstream_stall_max: 4
  max_session_duration: "2h"

telemetry:
  logging:
    level: "debug"
    format: "text"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Proxy.ListenAddress != "0.0.0.0:8080" {
		t.Errorf("expected listen address %q, got %q", "0.0.0.0:8080", cfg.Proxy.ListenAddress)
	}
	if cfg.Upstream.Target != "http://origin.example:8000" {
		t.Errorf("expected target, got %q", cfg.Upstream.Target)
	}
	if cfg.Upstream.VideoHeaderTimeout != 7*time.Second {
		t.Errorf("expected video header timeout 7s, got %v", cfg.Upstream.VideoHeaderTimeout)
	}
	if cfg.Limits.MaxStreams != 10 || cfg.Limits.MaxStreamsPerIdentity != 1 {
		t.Errorf("unexpected limits: %+v", cfg.Limits)
	}
	if cfg.Relay.MaxRedirects != 3 {
		t.Errorf("expected max redirects 3, got %d", cfg.Relay.MaxRedirects)
	}
	if cfg.Relay.MaxSessionDuration != 2*time.Hour {
		t.Errorf("expected max session duration 2h, got %v", cfg.Relay.MaxSessionDuration)
	}
	// Unset fields fall back to defaults.
	if cfg.Relay.ClientIdleTimeout != DefaultClientIdleTimeout {
		t.Errorf("expected default client idle timeout, got %v", cfg.Relay.ClientIdleTimeout)
	}
	if cfg.Telemetry.Logging.Format != "text" {
		t.Errorf("expected logging format %q, got %q", "text", cfg.Telemetry.Logging.Format)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "failed to read configuration file") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "upstream: [unclosed")

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "failed to parse configuration file") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadConfig_ValidationFailure(t *testing.T) {
	path := writeConfig(t, `
limits:
  max_streams: -1
`)

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected validation error")
	}

	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}

	fields := map[string]bool{}
	for _, fe := range verr.Errors {
		fields[fe.Field] = true
	}
	for _, want := range []string{"upstream.target", "limits.max_streams"} {
		if !fields[want] {
			t.Errorf("expected error for %s, got %v", want, verr.Errors)
		}
	}
}

func TestLoadConfigWithEnvOverrides_Structured(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
upstream:
  target: "http://file.example"
limits:
  max_streams: 10
`)

	t.Setenv("IPTVRELAY_UPSTREAM_TARGET", "https://env.example")
	t.Setenv("IPTVRELAY_LIMITS_MAX_STREAMS", "3")
	t.Setenv("IPTVRELAY_RELAY_UPSTREAM_STALL_TIMEOUT", "4s")
	t.Setenv("IPTVRELAY_TELEMETRY_METRICS_ENABLED", "false")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Upstream.Target != "https://env.example" {
		t.Errorf("expected env target, got %q", cfg.Upstream.Target)
	}
	if cfg.Limits.MaxStreams != 3 {
		t.Errorf("expected max streams 3, got %d", cfg.Limits.MaxStreams)
	}
	if cfg.Relay.UpstreamStallTimeout != 4*time.Second {
		t.Errorf("expected stall timeout 4s, got %v", cfg.Relay.UpstreamStallTimeout)
	}
	if cfg.MetricsEnabled() {
		t.Error("expected metrics to be disabled")
	}
}

func TestLoadConfigWithEnvOverrides_LegacyNames(t *testing.T) {
	clearEnv(t)

	t.Setenv("TARGET", "http://legacy.example")
	t.Setenv("PORT", "9000")
	t.Setenv("MAX_STREAMS_PER_USER", "1")
	t.Setenv("CLIENT_IDLE_TIMEOUT_MS", "2500")
	t.Setenv("UPSTREAM_STALL_MAX", "5")
	t.Setenv("MAX_SESSION_MS", "60000")

	cfg, err := LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Upstream.Target != "http://legacy.example" {
		t.Errorf("expected legacy target, got %q", cfg.Upstream.Target)
	}
	if cfg.Proxy.ListenAddress != ":9000" {
		t.Errorf("expected :9000, got %q", cfg.Proxy.ListenAddress)
	}
	if cfg.Limits.MaxStreamsPerIdentity != 1 {
		t.Errorf("expected per identity cap 1, got %d", cfg.Limits.MaxStreamsPerIdentity)
	}
	if cfg.Relay.ClientIdleTimeout != 2500*time.Millisecond {
		t.Errorf("expected 2.5s idle timeout, got %v", cfg.Relay.ClientIdleTimeout)
	}
	if cfg.Relay.UpstreamStallMax != 5 {
		t.Errorf("expected stall max 5, got %d", cfg.Relay.UpstreamStallMax)
	}
	if cfg.Relay.MaxSessionDuration != time.Minute {
		t.Errorf("expected 1m session ceiling, got %v", cfg.Relay.MaxSessionDuration)
	}
}

func TestLoadConfigWithEnvOverrides_StructuredBeatsLegacy(t *testing.T) {
	clearEnv(t)

	t.Setenv("TARGET", "http://legacy.example")
	t.Setenv("IPTVRELAY_UPSTREAM_TARGET", "http://structured.example")

	cfg, err := LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Upstream.Target != "http://structured.example" {
		t.Errorf("expected structured target to win, got %q", cfg.Upstream.Target)
	}
}

func TestLoadConfigWithEnvOverrides_OverridesWin(t *testing.T) {
	clearEnv(t)

	t.Setenv("IPTVRELAY_UPSTREAM_TARGET", "http://env.example")

	cfg, err := LoadConfigWithEnvOverrides("", func(c *Config) {
		c.Upstream.Target = "http://flag.example"
		c.Proxy.ListenAddress = "127.0.0.1:9999"
	})
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Upstream.Target != "http://flag.example" {
		t.Errorf("expected override target, got %q", cfg.Upstream.Target)
	}
	if cfg.Proxy.ListenAddress != "127.0.0.1:9999" {
		t.Errorf("expected override listen address, got %q", cfg.Proxy.ListenAddress)
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("IPTVRELAY_TEST_DOTENV=from-file\n"), 0644); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}
	t.Setenv("IPTVRELAY_TEST_DOTENV", "")
	os.Unsetenv("IPTVRELAY_TEST_DOTENV")

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), envPath); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("IPTVRELAY_TEST_DOTENV"); got != "from-file" {
		t.Errorf("expected value from .env, got %q", got)
	}
}
