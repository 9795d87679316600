package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"

	"mercator-hq/iptvrelay/pkg/config"
	"mercator-hq/iptvrelay/pkg/journal"
	"mercator-hq/iptvrelay/pkg/limits"
	"mercator-hq/iptvrelay/pkg/proxy"
	"mercator-hq/iptvrelay/pkg/proxy/handlers"
	"mercator-hq/iptvrelay/pkg/session"
	"mercator-hq/iptvrelay/pkg/telemetry/health"
	"mercator-hq/iptvrelay/pkg/telemetry/metrics"
	"mercator-hq/iptvrelay/pkg/telemetry/tracing"
)

// Components are the long-lived collaborators the server routes to.
// Tracer, Recorder and Journal are optional.
type Components struct {
	Relay      *proxy.Relay
	Transports *proxy.Transports
	Admission  *limits.Controller
	Registry   *session.Registry
	Metrics    *metrics.Collector
	Health     *health.Checker
	Tracer     *tracing.Tracer
	Recorder   handlers.Recorder
	Logger     *slog.Logger
}

// NewComponents builds the relay, admission controller, session registry,
// metrics and readiness checks from cfg.
func NewComponents(cfg *config.Config, logger *slog.Logger) (*Components, error) {
	if logger == nil {
		logger = slog.Default()
	}
	target, err := url.Parse(cfg.Upstream.Target)
	if err != nil || target.Host == "" {
		return nil, fmt.Errorf("invalid upstream target %q", cfg.Upstream.Target)
	}

	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
	namespace := cfg.Telemetry.Metrics.Namespace
	if namespace == "" {
		namespace = config.DefaultMetricsNamespace
	}

	registry := session.NewRegistry(session.Options{
		MaskClientAddress: cfg.MaskClientAddress(),
		LatencySamples:    cfg.Sessions.LatencySamples,
		BandwidthWindow:   cfg.Sessions.BandwidthWindow,
	})
	if collector.Enabled() {
		collector.RegisterBandwidth(registry.Bandwidth)
	}

	var admissionOpts []limits.Option
	if collector.Enabled() {
		admissionOpts = append(admissionOpts, limits.WithMetrics(limits.NewMetrics(collector.Registry(), namespace)))
	}

	opts := proxy.OptionsFromConfig(cfg)
	opts.Logger = logger.With("component", "relay")
	transports := proxy.NewTransports(cfg)

	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
	checker.RegisterCheck("upstream", health.DialCheck(hostPort(target)))

	return &Components{
		Relay:      proxy.NewRelay(target, transports, opts),
		Transports: transports,
		Admission:  limits.NewController(cfg.Limits.MaxStreams, cfg.Limits.MaxStreamsPerIdentity, admissionOpts...),
		Registry:   registry,
		Metrics:    collector,
		Health:     checker,
		Logger:     logger,
	}, nil
}

// WithJournal registers store as a readiness check and rec as the sink for
// closed sessions.
func (c *Components) WithJournal(store journal.Storage, rec handlers.Recorder) {
	c.Recorder = rec
	if store != nil {
		c.Health.RegisterCheck("journal", func(ctx context.Context) error {
			return store.Ping(ctx)
		})
	}
}

// hostPort returns the dialable address of u, adding the scheme's default
// port when none is given.
func hostPort(u *url.URL) string {
	if u.Port() != "" {
		return u.Host
	}
	port := "80"
	if u.Scheme == "https" {
		port = "443"
	}
	return net.JoinHostPort(u.Hostname(), port)
}
