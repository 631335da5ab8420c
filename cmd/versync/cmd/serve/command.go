// Package serve provides the HTTP server command.
package serve

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/agentstation/versync"
	"github.com/agentstation/versync/internal/appcontext"
	"github.com/agentstation/versync/internal/config"
	"github.com/agentstation/versync/internal/metrics"
	"github.com/agentstation/versync/internal/server"
)

// NewCommand creates the serve command using app context.
func NewCommand(app appcontext.Interface) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"server"},
		GroupID: "core",
		Short:   "Start the reconciliation HTTP API",
		Long: `Start an HTTP server exposing reconciliation and registry lookups.

Endpoints:
  POST {prefix}/reconcile   HTML body + ?resource=name=version, or JSON {html, resources}
  GET  {prefix}/lookup      ?repo=en_tn,en_ult[&each=true]
  GET  /health              liveness
  GET  /metrics             Prometheus metrics (--metrics)

Features:
  - Registry answers cached in memory (--cache-ttl)
  - Rate limiting (requests per minute per IP)
  - API key authentication (optional, key from VERSYNC_API_KEY)
  - CORS support for web applications
  - Request logging with request IDs and panic recovery
  - Graceful shutdown with connection draining`,
		Example: `  # Start on default port 8080
  versync serve

  # Start on custom port with authentication
  VERSYNC_API_KEY=secret versync serve --port 3000 --auth

  # Enable CORS for specific origins
  versync serve --cors-origins "https://www.unfoldingword.org"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd, app)
		},
	}

	// Server configuration flags
	cmd.Flags().IntP("port", "p", 8080, "Server port")
	cmd.Flags().String("host", "localhost", "Bind address")

	// CORS flags
	cmd.Flags().Bool("cors", false, "Enable CORS for all origins")
	cmd.Flags().StringSlice("cors-origins", []string{}, "Allowed CORS origins (comma-separated)")

	// Authentication flags
	cmd.Flags().Bool("auth", false, "Enable API key authentication")
	cmd.Flags().String("auth-header", "X-API-Key", "Authentication header name")

	// Performance flags
	cmd.Flags().Int("rate-limit", 100, "Requests per minute per IP (0 to disable)")
	cmd.Flags().Duration("cache-ttl", 5*time.Minute, "How long registry versions are reused (0 to disable)")

	// Timeout flags
	cmd.Flags().Duration("read-timeout", 30*time.Second, "HTTP read timeout")
	cmd.Flags().Duration("write-timeout", 60*time.Second, "HTTP write timeout")
	cmd.Flags().Duration("idle-timeout", 120*time.Second, "HTTP idle timeout")

	// Features flags
	cmd.Flags().Bool("metrics", true, "Enable metrics endpoint")
	cmd.Flags().String("prefix", "/api/v1", "API path prefix")

	return cmd
}

// parseConfig reads flags into a server configuration. HTTP_PORT and
// HTTP_HOST override the flags, for container platforms.
func parseConfig(cmd *cobra.Command, version string) server.Config {
	cfg := server.DefaultConfig()
	cfg.Version = version

	cfg.Port, _ = cmd.Flags().GetInt("port")
	cfg.Host, _ = cmd.Flags().GetString("host")
	cfg.CORSEnabled, _ = cmd.Flags().GetBool("cors")
	cfg.CORSOrigins, _ = cmd.Flags().GetStringSlice("cors-origins")
	cfg.AuthEnabled, _ = cmd.Flags().GetBool("auth")
	cfg.AuthHeader, _ = cmd.Flags().GetString("auth-header")
	cfg.RateLimit, _ = cmd.Flags().GetInt("rate-limit")
	cfg.ReadTimeout, _ = cmd.Flags().GetDuration("read-timeout")
	cfg.WriteTimeout, _ = cmd.Flags().GetDuration("write-timeout")
	cfg.IdleTimeout, _ = cmd.Flags().GetDuration("idle-timeout")
	cfg.MetricsEnabled, _ = cmd.Flags().GetBool("metrics")
	cfg.PathPrefix, _ = cmd.Flags().GetString("prefix")
	cfg.APIKey = config.GetString(config.KeyAPIKey)

	if len(cfg.CORSOrigins) > 0 {
		cfg.CORSEnabled = true
	}
	if envPort := os.Getenv("HTTP_PORT"); envPort != "" {
		if p, err := strconv.Atoi(envPort); err == nil && p > 0 && p < 65536 {
			cfg.Port = p
		}
	}
	if envHost := os.Getenv("HTTP_HOST"); envHost != "" {
		cfg.Host = envHost
	}
	return cfg
}

func runServer(cmd *cobra.Command, app appcontext.Interface) error {
	cfg := parseConfig(cmd, app.Version())
	cacheTTL, _ := cmd.Flags().GetDuration("cache-ttl")
	logger := app.Logger()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	client, err := app.ClientWithOptions(
		versync.WithMetrics(metrics.New(metrics.WithRegisterer(reg))),
		versync.WithCache(cacheTTL),
	)
	if err != nil {
		return err
	}

	srv, err := server.New(client, cfg, server.WithLogger(logger), server.WithGatherer(reg))
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	logger.Info().
		Str("addr", srv.Addr()).
		Str("prefix", cfg.PathPrefix).
		Bool("cors", cfg.CORSEnabled).
		Bool("auth", cfg.AuthEnabled).
		Int("rate_limit", cfg.RateLimit).
		Dur("cache_ttl", cacheTTL).
		Msg("Starting API server")

	return srv.ListenAndServe(cmd.Context())
}
