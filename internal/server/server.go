// Package server provides the HTTP surface for versync: document
// reconciliation, registry lookups, health and metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/agentstation/versync"
	"github.com/agentstation/versync/internal/server/middleware"
	"github.com/agentstation/versync/pkg/constants"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	client    versync.Client
	config    Config
	logger    *zerolog.Logger
	gatherer  prometheus.Gatherer
	limiter   *middleware.RateLimiter
	startTime time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithGatherer sets the source served on /metrics.
// Default: prometheus.DefaultGatherer.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// New creates a new server instance with the given configuration.
func New(client versync.Client, cfg Config, opts ...Option) (*Server, error) {
	if client == nil {
		return nil, errors.New("server: nil client")
	}
	if cfg.AuthEnabled && cfg.APIKey == "" {
		return nil, errors.New("server: auth enabled without an API key")
	}
	nop := zerolog.Nop()
	s := &Server{
		client:    client,
		config:    cfg,
		logger:    &nop,
		gatherer:  prometheus.DefaultGatherer,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if cfg.RateLimit > 0 {
		s.limiter = middleware.NewRateLimiter(cfg.RateLimit, s.logger)
	}
	s.logger.Debug().
		Str("prefix", cfg.PathPrefix).
		Bool("auth", cfg.AuthEnabled).
		Bool("cors", cfg.CORSEnabled).
		Int("rate_limit", cfg.RateLimit).
		Msg("Server instance created")
	return s, nil
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
}

// Handler returns the configured http.Handler with middleware chain applied.
func (s *Server) Handler() http.Handler {
	return s.setupRouter()
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
// within constants.ShutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr(),
		Handler:           s.Handler(),
		ReadTimeout:       s.config.ReadTimeout,
		ReadHeaderTimeout: constants.ReadHeaderTimeout,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       s.config.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", srv.Addr).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("server failed: %w", err)
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		s.stop()
		return err
	case <-ctx.Done():
		s.logger.Info().Msg("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()
	defer s.stop()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info().Msg("Server stopped gracefully")
	return nil
}

// StartTime returns the server start time for uptime calculations.
func (s *Server) StartTime() time.Time {
	return s.startTime
}

func (s *Server) stop() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}
