package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"

	"mercator-hq/iptvrelay/pkg/config"
	"mercator-hq/iptvrelay/pkg/proxy/handlers"
	"mercator-hq/iptvrelay/pkg/proxy/middleware"
	"mercator-hq/iptvrelay/pkg/telemetry/health"
	"mercator-hq/iptvrelay/pkg/telemetry/tracing"
)

// BuildInfo identifies the running binary on the version endpoint.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// Server is the relay's HTTP server.
type Server struct {
	config     *config.Config
	components *Components
	build      BuildInfo
	logger     *slog.Logger

	httpServer   *http.Server
	baseCtx      context.Context
	cancelBase   context.CancelFunc
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer creates a server. cfg must be validated.
func NewServer(cfg *config.Config, components *Components, build BuildInfo) *Server {
	logger := components.Logger
	if logger == nil {
		logger = slog.Default()
	}
	baseCtx, cancel := context.WithCancel(context.Background())
	return &Server{
		config:     cfg,
		components: components,
		build:      build,
		logger:     logger,
		baseCtx:    baseCtx,
		cancelBase: cancel,
	}
}

// Start listens on the configured address and serves until ctx is done or
// the server fails.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Proxy.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Proxy.ListenAddress, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done or the server fails. It shuts down
// gracefully before returning.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		ln.Close()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true

	p := s.config.Proxy
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: p.ReadHeaderTimeout,
		IdleTimeout:       p.IdleTimeout,
		MaxHeaderBytes:    p.MaxHeaderBytes,
		BaseContext: func(net.Listener) context.Context {
			return s.baseCtx
		},
		ErrorLog: slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
	// Streams and feed connections outlive any reasonable drain period;
	// their contexts end when shutdown begins.
	s.httpServer.RegisterOnShutdown(s.cancelBase)
	srv := s.httpServer
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting relay server",
			"address", ln.Addr().String(),
			"target", s.components.Relay.Target().Redacted(),
		)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err, ok := <-errChan:
		if ok {
			s.markStopped()
			return err
		}
		return nil
	}
}

// Shutdown gracefully shuts down the server within the configured
// shutdown timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.RLock()
		srv, running := s.httpServer, s.isRunning
		s.mu.RUnlock()
		if !running {
			return
		}

		timeout := s.config.Proxy.ShutdownTimeout
		s.logger.Info("initiating graceful shutdown", "timeout", timeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}
		s.cancelBase()
		if s.components.Transports != nil {
			s.components.Transports.CloseIdleConnections()
		}

		s.markStopped()
		s.logger.Info("relay server stopped")
	})

	return shutdownErr
}

func (s *Server) markStopped() {
	s.mu.Lock()
	s.isRunning = false
	s.mu.Unlock()
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the routed handler with the middleware chain applied.
//
// Diagnostic and probe paths are matched exactly and take precedence over
// passthrough. Everything under the live prefix goes through admission;
// every other path is passed through to the origin.
func (s *Server) Handler() http.Handler {
	cfg := s.config
	c := s.components
	tel := cfg.Telemetry
	livePrefix := cfg.Relay.LivePrefix

	mux := http.NewServeMux()

	mux.Handle(exact(tel.Health.LivenessPath), health.LivenessHandler())
	mux.Handle(exact(tel.Health.ReadinessPath), c.Health.ReadinessHandler())
	mux.Handle("/version", health.VersionHandler(s.build.Version, s.build.Commit, s.build.BuildTime))

	if cfg.MetricsEnabled() {
		mux.Handle(exact(tel.Metrics.Path), c.Metrics.Handler())
	}
	mux.Handle(exact(tel.Diagnostics.StatsPath), handlers.NewStatsHandler(c.Registry, c.Admission))
	mux.Handle(exact(tel.Diagnostics.SessionsPath), handlers.NewSessionsHandler(c.Registry, cfg.Sessions.MaxListed))
	mux.Handle(exact(tel.Diagnostics.FeedPath), handlers.NewFeedHandler(c.Registry, tel.Diagnostics.FeedInterval, cfg.Sessions.MaxListed, c.Logger))

	stream := handlers.NewStreamHandler(handlers.StreamDeps{
		Relay:      c.Relay,
		Registry:   c.Registry,
		Metrics:    c.Metrics,
		Tracer:     c.Tracer,
		Recorder:   c.Recorder,
		Logger:     c.Logger,
		LivePrefix: livePrefix,
	})
	mux.Handle(livePrefix, middleware.AdmissionMiddleware(c.Admission, middleware.AdmissionConfig{
		LivePrefix:   livePrefix,
		RetryAfter:   cfg.Limits.RetryAfter,
		RejectStatus: cfg.Limits.RejectStatus,
		Logger:       c.Logger,
	})(stream))
	mux.Handle("/", handlers.NewPassthroughHandler(c.Relay, c.Metrics, c.Logger))

	var handler http.Handler = mux
	handler = middleware.LoggingMiddleware(c.Logger, livePrefix)(handler)
	handler = tracing.HTTPMiddleware(handler)
	handler = middleware.RequestIDMiddleware(handler)
	handler = middleware.RecoveryMiddleware(c.Logger, livePrefix)(handler)
	return handler
}

// exact turns a configured path into a pattern that matches only that path.
func exact(path string) string {
	if strings.HasSuffix(path, "/") {
		return path + "{$}"
	}
	return path
}
