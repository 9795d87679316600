package config

import "time"

// Config is the root configuration structure for the IPTV relay.
// It is loaded once at startup and never mutated afterwards.
type Config struct {
	// Proxy contains listener settings for the inbound HTTP server.
	Proxy ProxyConfig `yaml:"proxy"`

	// Upstream describes the single origin every request is forwarded to.
	Upstream UpstreamConfig `yaml:"upstream"`

	// Limits contains the admission caps for streaming requests.
	Limits LimitsConfig `yaml:"limits"`

	// Relay contains redirect, stall and session duration settings.
	Relay RelayConfig `yaml:"relay"`

	// Sessions controls the in-memory session registry.
	Sessions SessionsConfig `yaml:"sessions"`

	// Journal controls persistence of completed session records.
	Journal JournalConfig `yaml:"journal"`

	// Telemetry contains logging, metrics, tracing and diagnostic endpoints.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ProxyConfig contains configuration for the inbound HTTP server.
type ProxyConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: ":10000"
	ListenAddress string `yaml:"listen_address"`

	// ReadHeaderTimeout bounds the time allowed to read request headers.
	// Default: 12s
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`

	// IdleTimeout is how long an idle client keep-alive connection is kept.
	// Default: 5s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 15s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits the size of request headers.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`
}

// UpstreamConfig describes the origin server.
type UpstreamConfig struct {
	// Target is the base URL of the origin, e.g. "http://origin.example:8080".
	// Required.
	Target string `yaml:"target"`

	// InsecureSkipVerify disables TLS certificate verification for https targets.
	// Default: true
	InsecureSkipVerify *bool `yaml:"insecure_skip_verify"`

	// DialTimeout bounds TCP connection establishment.
	// Default: 5s
	DialTimeout time.Duration `yaml:"dial_timeout"`

	// VideoHeaderTimeout bounds the wait for response headers on .ts/.m3u8 requests.
	// Default: 10s
	VideoHeaderTimeout time.Duration `yaml:"video_header_timeout"`

	// APIHeaderTimeout bounds the wait for response headers on all other requests.
	// Default: 15s
	APIHeaderTimeout time.Duration `yaml:"api_header_timeout"`

	// MaxIdleConns is the idle pool size of the keep-alive transport.
	// Default: 200
	MaxIdleConns int `yaml:"max_idle_conns"`
}

// LimitsConfig contains admission caps.
type LimitsConfig struct {
	// MaxStreams is the global cap on concurrent live streams. 0 disables it.
	// Default: 0
	MaxStreams int `yaml:"max_streams"`

	// MaxStreamsPerIdentity caps concurrent live streams per identity. 0 disables it.
	// Default: 0
	MaxStreamsPerIdentity int `yaml:"max_streams_per_identity"`

	// RetryAfter is the hint sent with rejections.
	// Default: 5s
	RetryAfter time.Duration `yaml:"retry_after"`

	// RejectStatus is the HTTP status for rejections, 429 or 503.
	// Default: 429
	RejectStatus int `yaml:"reject_status"`
}

// RelayConfig contains redirect and watchdog settings.
type RelayConfig struct {
	// LivePrefix is the path prefix of admission-controlled streaming requests.
	// Default: "/live/"
	LivePrefix string `yaml:"live_prefix"`

	// MaxRedirects is the hop budget for upstream redirects.
	// Default: 5
	MaxRedirects int `yaml:"max_redirects"`

	// ClientIdleTimeout terminates a video session whose client stops draining.
	// Default: 8s
	ClientIdleTimeout time.Duration `yaml:"client_idle_timeout"`

	// APIIdleTimeout is the client idle timeout for non-video resources.
	// Default: 15s
	APIIdleTimeout time.Duration `yaml:"api_idle_timeout"`

	// UpstreamStallTimeout triggers a reconnect when no upstream data arrives.
	// A negative value disables stall reconnects.
	// Default: 10s
	UpstreamStallTimeout time.Duration `yaml:"upstream_stall_timeout"`

	// UpstreamStallMax is the reconnect budget per session.
	// A negative value terminates on the first stall.
	// Default: 2
	UpstreamStallMax int `yaml:"upstream_stall_max"`

	// MaxSessionDuration is a hard ceiling on the life of one session.
	// Default: 4h
	MaxSessionDuration time.Duration `yaml:"max_session_duration"`

	// BufferSize is the size of the relay copy buffer in bytes.
	// Default: 32768
	BufferSize int `yaml:"buffer_size"`
}

// SessionsConfig controls the in-memory session registry.
type SessionsConfig struct {
	// MaskClientAddress hides the host part of client addresses in snapshots.
	// Default: true
	MaskClientAddress *bool `yaml:"mask_client_address"`

	// MaxListed is the number of sessions returned by the sessions endpoint.
	// Default: 50
	MaxListed int `yaml:"max_listed"`

	// LatencySamples bounds the rolling latency sample ring.
	// Default: 1000
	LatencySamples int `yaml:"latency_samples"`

	// BandwidthWindow is the decay window of the EWMA bandwidth estimate.
	// Default: 60s
	BandwidthWindow time.Duration `yaml:"bandwidth_window"`
}

// JournalConfig controls the session journal.
type JournalConfig struct {
	// Enabled turns on recording of completed sessions.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Backend selects the storage backend.
	// Options: "memory", "sqlite", "redis"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite backend settings.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Redis contains Redis backend settings.
	Redis RedisConfig `yaml:"redis"`

	// Recorder contains async recorder settings.
	Recorder RecorderConfig `yaml:"recorder"`

	// Retention contains pruning settings.
	Retention RetentionConfig `yaml:"retention"`
}

// SQLiteConfig contains SQLite backend settings.
type SQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/sessions.db"
	Path string `yaml:"path"`

	// Driver selects the database/sql driver.
	// Options: "sqlite" (pure Go), "sqlite3" (cgo)
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// BusyTimeout is the SQLite busy timeout.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RedisConfig contains Redis backend settings.
type RedisConfig struct {
	// Addr is the Redis server address.
	// Default: "localhost:6379"
	Addr string `yaml:"addr"`

	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`

	// Key is the prefix for all keys written by the journal.
	// Default: "iptvrelay:sessions"
	Key string `yaml:"key"`

	// MaxEntries caps the record list length.
	// Default: 10000
	MaxEntries int64 `yaml:"max_entries"`
}

// RecorderConfig contains async recorder settings.
type RecorderConfig struct {
	// AsyncBuffer is the capacity of the record queue.
	// Default: 1000
	AsyncBuffer int `yaml:"async_buffer"`

	// WriteTimeout bounds one storage write.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// RetentionConfig contains journal pruning settings.
type RetentionConfig struct {
	// Days is the age after which records are pruned. A negative value keeps records forever.
	// Default: 30
	Days int `yaml:"days"`

	// Schedule is a standard cron expression for pruning runs.
	// Default: "0 3 * * *"
	Schedule string `yaml:"schedule"`

	// MaxRecords keeps at most this many records. 0 disables the count limit.
	// Default: 0
	MaxRecords int64 `yaml:"max_records"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains probe endpoint configuration.
	Health HealthConfig `yaml:"health"`

	// Diagnostics contains the JSON stats and sessions endpoints.
	Diagnostics DiagnosticsConfig `yaml:"diagnostics"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactAddresses masks IP addresses in log attributes.
	// Default: false
	RedactAddresses bool `yaml:"redact_addresses"`
}

// MetricsConfig contains Prometheus configuration.
type MetricsConfig struct {
	// Enabled controls whether the Prometheus endpoint is served.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus endpoint.
	// Default: "/metrics/prometheus"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "iptvrelay"
	Namespace string `yaml:"namespace"`

	// SessionDurationBuckets defines histogram buckets for session duration (seconds).
	// Default: [1, 5, 30, 60, 300, 900, 3600, 14400]
	SessionDurationBuckets []float64 `yaml:"session_duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint, e.g. "localhost:4317".
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "iptvrelay"
	ServiceName string `yaml:"service_name"`

	// OTLP contains OTLP exporter specific configuration.
	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter configuration.
type OTLPConfig struct {
	// Insecure disables TLS for the OTLP connection.
	Insecure bool `yaml:"insecure"`

	// Timeout is the timeout for OTLP exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// HealthConfig contains probe endpoint configuration.
type HealthConfig struct {
	// LivenessPath always answers 200 "ok".
	// Default: "/healthz"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath runs the registered checks.
	// Default: "/readyz"
	ReadinessPath string `yaml:"readiness_path"`

	// CheckTimeout bounds each readiness check.
	// Default: 2s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}

// DiagnosticsConfig contains the JSON diagnostic endpoints.
type DiagnosticsConfig struct {
	// StatsPath returns the aggregate snapshot.
	// Default: "/metrics"
	StatsPath string `yaml:"stats_path"`

	// SessionsPath returns the most recent active sessions.
	// Default: "/sessions"
	SessionsPath string `yaml:"sessions_path"`

	// FeedPath upgrades to a websocket that pushes snapshots.
	// Default: "/sessions/feed"
	FeedPath string `yaml:"feed_path"`

	// FeedInterval is the push period of the live feed.
	// Default: 2s
	FeedInterval time.Duration `yaml:"feed_interval"`
}

// MetricsEnabled reports whether the Prometheus endpoint is on.
func (c *Config) MetricsEnabled() bool {
	return c.Telemetry.Metrics.Enabled == nil || *c.Telemetry.Metrics.Enabled
}

// MaskClientAddress reports whether snapshots hide client addresses.
func (c *Config) MaskClientAddress() bool {
	return c.Sessions.MaskClientAddress == nil || *c.Sessions.MaskClientAddress
}

// InsecureSkipVerify reports whether upstream TLS verification is disabled.
func (c *Config) InsecureSkipVerify() bool {
	return c.Upstream.InsecureSkipVerify == nil || *c.Upstream.InsecureSkipVerify
}
