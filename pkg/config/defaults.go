package config

import "time"

// Default values for configuration fields.
const (
	// Proxy defaults
	DefaultListenAddress     = ":10000"
	DefaultReadHeaderTimeout = 12 * time.Second
	DefaultIdleTimeout       = 5 * time.Second
	DefaultShutdownTimeout   = 15 * time.Second
	DefaultMaxHeaderBytes    = 1048576 // 1MB

	// Upstream defaults
	DefaultDialTimeout        = 5 * time.Second
	DefaultVideoHeaderTimeout = 10 * time.Second
	DefaultAPIHeaderTimeout   = 15 * time.Second
	DefaultMaxIdleConns       = 200

	// Limits defaults
	DefaultRetryAfter   = 5 * time.Second
	DefaultRejectStatus = 429

	// Relay defaults
	DefaultLivePrefix           = "/live/"
	DefaultMaxRedirects         = 5
	DefaultClientIdleTimeout    = 8 * time.Second
	DefaultAPIIdleTimeout       = 15 * time.Second
	DefaultUpstreamStallTimeout = 10 * time.Second
	DefaultUpstreamStallMax     = 2
	DefaultMaxSessionDuration   = 4 * time.Hour
	DefaultBufferSize           = 32 * 1024

	// Sessions defaults
	DefaultMaxListed       = 50
	DefaultLatencySamples  = 1000
	DefaultBandwidthWindow = 60 * time.Second

	// Journal defaults
	DefaultJournalBackend       = "sqlite"
	DefaultJournalSQLitePath    = "data/sessions.db"
	DefaultJournalSQLiteDriver  = "sqlite"
	DefaultJournalBusyTimeout   = 5 * time.Second
	DefaultJournalRedisAddr     = "localhost:6379"
	DefaultJournalRedisKey      = "iptvrelay:sessions"
	DefaultJournalRedisMax      = int64(10000)
	DefaultJournalAsyncBuffer   = 1000
	DefaultJournalWriteTimeout  = 5 * time.Second
	DefaultJournalRetentionDays = 30
	DefaultJournalRetentionCron = "0 3 * * *"

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "json"
	DefaultMetricsPath        = "/metrics/prometheus"
	DefaultMetricsNamespace   = "iptvrelay"
	DefaultTracingSampler     = "ratio"
	DefaultTracingSampleRatio = 0.1
	DefaultTracingServiceName = "iptvrelay"
	DefaultOTLPTimeout        = 10 * time.Second
	DefaultLivenessPath       = "/healthz"
	DefaultReadinessPath      = "/readyz"
	DefaultCheckTimeout       = 2 * time.Second
	DefaultStatsPath          = "/metrics"
	DefaultSessionsPath       = "/sessions"
	DefaultFeedPath           = "/sessions/feed"
	DefaultFeedInterval       = 2 * time.Second
)

// DefaultSessionDurationBuckets are the histogram buckets for session duration in seconds.
var DefaultSessionDurationBuckets = []float64{1, 5, 30, 60, 300, 900, 3600, 14400}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Proxy defaults
	if cfg.Proxy.ListenAddress == "" {
		cfg.Proxy.ListenAddress = DefaultListenAddress
	}
	if cfg.Proxy.ReadHeaderTimeout == 0 {
		cfg.Proxy.ReadHeaderTimeout = DefaultReadHeaderTimeout
	}
	if cfg.Proxy.IdleTimeout == 0 {
		cfg.Proxy.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Proxy.ShutdownTimeout == 0 {
		cfg.Proxy.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Proxy.MaxHeaderBytes == 0 {
		cfg.Proxy.MaxHeaderBytes = DefaultMaxHeaderBytes
	}

	// Upstream defaults
	if cfg.Upstream.InsecureSkipVerify == nil {
		cfg.Upstream.InsecureSkipVerify = boolPtr(true)
	}
	if cfg.Upstream.DialTimeout == 0 {
		cfg.Upstream.DialTimeout = DefaultDialTimeout
	}
	if cfg.Upstream.VideoHeaderTimeout == 0 {
		cfg.Upstream.VideoHeaderTimeout = DefaultVideoHeaderTimeout
	}
	if cfg.Upstream.APIHeaderTimeout == 0 {
		cfg.Upstream.APIHeaderTimeout = DefaultAPIHeaderTimeout
	}
	if cfg.Upstream.MaxIdleConns == 0 {
		cfg.Upstream.MaxIdleConns = DefaultMaxIdleConns
	}

	// Limits defaults
	if cfg.Limits.RetryAfter == 0 {
		cfg.Limits.RetryAfter = DefaultRetryAfter
	}
	if cfg.Limits.RejectStatus == 0 {
		cfg.Limits.RejectStatus = DefaultRejectStatus
	}

	// Relay defaults
	if cfg.Relay.LivePrefix == "" {
		cfg.Relay.LivePrefix = DefaultLivePrefix
	}
	if cfg.Relay.MaxRedirects == 0 {
		cfg.Relay.MaxRedirects = DefaultMaxRedirects
	}
	if cfg.Relay.ClientIdleTimeout == 0 {
		cfg.Relay.ClientIdleTimeout = DefaultClientIdleTimeout
	}
	if cfg.Relay.APIIdleTimeout == 0 {
		cfg.Relay.APIIdleTimeout = DefaultAPIIdleTimeout
	}
	if cfg.Relay.UpstreamStallTimeout == 0 {
		cfg.Relay.UpstreamStallTimeout = DefaultUpstreamStallTimeout
	}
	if cfg.Relay.UpstreamStallMax == 0 {
		cfg.Relay.UpstreamStallMax = DefaultUpstreamStallMax
	}
	if cfg.Relay.MaxSessionDuration == 0 {
		cfg.Relay.MaxSessionDuration = DefaultMaxSessionDuration
	}
	if cfg.Relay.BufferSize == 0 {
		cfg.Relay.BufferSize = DefaultBufferSize
	}

	// Sessions defaults
	if cfg.Sessions.MaskClientAddress == nil {
		cfg.Sessions.MaskClientAddress = boolPtr(true)
	}
	if cfg.Sessions.MaxListed == 0 {
		cfg.Sessions.MaxListed = DefaultMaxListed
	}
	if cfg.Sessions.LatencySamples == 0 {
		cfg.Sessions.LatencySamples = DefaultLatencySamples
	}
	if cfg.Sessions.BandwidthWindow == 0 {
		cfg.Sessions.BandwidthWindow = DefaultBandwidthWindow
	}

	applyJournalDefaults(&cfg.Journal)
	applyTelemetryDefaults(&cfg.Telemetry)
}

func applyJournalDefaults(cfg *JournalConfig) {
	if cfg.Backend == "" {
		cfg.Backend = DefaultJournalBackend
	}
	if cfg.SQLite.Path == "" {
		cfg.SQLite.Path = DefaultJournalSQLitePath
	}
	if cfg.SQLite.Driver == "" {
		cfg.SQLite.Driver = DefaultJournalSQLiteDriver
	}
	if cfg.SQLite.BusyTimeout == 0 {
		cfg.SQLite.BusyTimeout = DefaultJournalBusyTimeout
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultJournalRedisAddr
	}
	if cfg.Redis.Key == "" {
		cfg.Redis.Key = DefaultJournalRedisKey
	}
	if cfg.Redis.MaxEntries == 0 {
		cfg.Redis.MaxEntries = DefaultJournalRedisMax
	}
	if cfg.Recorder.AsyncBuffer == 0 {
		cfg.Recorder.AsyncBuffer = DefaultJournalAsyncBuffer
	}
	if cfg.Recorder.WriteTimeout == 0 {
		cfg.Recorder.WriteTimeout = DefaultJournalWriteTimeout
	}
	if cfg.Retention.Days == 0 {
		cfg.Retention.Days = DefaultJournalRetentionDays
	}
	if cfg.Retention.Schedule == "" {
		cfg.Retention.Schedule = DefaultJournalRetentionCron
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Metrics.Enabled == nil {
		cfg.Metrics.Enabled = boolPtr(true)
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if len(cfg.Metrics.SessionDurationBuckets) == 0 {
		cfg.Metrics.SessionDurationBuckets = append([]float64(nil), DefaultSessionDurationBuckets...)
	}
	if cfg.Tracing.Sampler == "" {
		cfg.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Tracing.SampleRatio == 0 {
		cfg.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = DefaultTracingServiceName
	}
	if cfg.Tracing.OTLP.Timeout == 0 {
		cfg.Tracing.OTLP.Timeout = DefaultOTLPTimeout
	}
	if cfg.Health.LivenessPath == "" {
		cfg.Health.LivenessPath = DefaultLivenessPath
	}
	if cfg.Health.ReadinessPath == "" {
		cfg.Health.ReadinessPath = DefaultReadinessPath
	}
	if cfg.Health.CheckTimeout == 0 {
		cfg.Health.CheckTimeout = DefaultCheckTimeout
	}
	if cfg.Diagnostics.StatsPath == "" {
		cfg.Diagnostics.StatsPath = DefaultStatsPath
	}
	if cfg.Diagnostics.SessionsPath == "" {
		cfg.Diagnostics.SessionsPath = DefaultSessionsPath
	}
	if cfg.Diagnostics.FeedPath == "" {
		cfg.Diagnostics.FeedPath = DefaultFeedPath
	}
	if cfg.Diagnostics.FeedInterval == 0 {
		cfg.Diagnostics.FeedInterval = DefaultFeedInterval
	}
}

func boolPtr(b bool) *bool {
	return &b
}
