// Package app provides the application context and dependency management
// for the versync CLI: configuration, logging and the lazily built client.
package app

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/versync"
	"github.com/agentstation/versync/internal/appcontext"
	"github.com/agentstation/versync/pkg/errors"
	"github.com/agentstation/versync/pkg/registry"
)

// App represents the versync application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger

	// Client instance (lazy-initialized, singleton)
	mu     sync.RWMutex
	client versync.Client
}

var _ appcontext.Interface = (*App)(nil)

// New creates a new App instance with the given version information.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	config, err := LoadConfig()
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the configured output format.
func (a *App) OutputFormat() string {
	return a.config.Format
}

// Client returns the versync client, creating it lazily if needed.
// This is thread-safe and ensures only one instance is created.
func (a *App) Client() (versync.Client, error) {
	a.mu.RLock()
	if a.client != nil {
		c := a.client
		a.mu.RUnlock()
		return c, nil
	}
	a.mu.RUnlock()

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client != nil {
		return a.client, nil
	}

	c, err := versync.New(a.clientOptions()...)
	if err != nil {
		return nil, errors.WrapResource("create", "client", "", err)
	}
	a.client = c
	return c, nil
}

// ClientWithOptions returns a new client built from the configuration plus
// opts. Later options win.
func (a *App) ClientWithOptions(opts ...versync.Option) (versync.Client, error) {
	c, err := versync.New(append(a.clientOptions(), opts...)...)
	if err != nil {
		return nil, errors.WrapResource("create", "client", "with custom options", err)
	}
	return c, nil
}

// clientOptions constructs client options from the app configuration.
func (a *App) clientOptions() []versync.Option {
	cfg := a.config
	opts := []versync.Option{versync.WithLogger(a.logger)}

	if cfg.Endpoint != "" {
		opts = append(opts, versync.WithEndpoint(cfg.Endpoint))
	}
	if cfg.Owner != "" {
		opts = append(opts, versync.WithOwner(cfg.Owner))
	}
	if cfg.Origin != "" {
		opts = append(opts, versync.WithOrigin(cfg.Origin))
	}
	if cfg.RegionSelector != "" {
		opts = append(opts, versync.WithRegionSelector(cfg.RegionSelector))
	}
	if cfg.Token != "" {
		opts = append(opts, versync.WithToken(cfg.Token, cfg.AuthScheme))
	}
	if cfg.PacingInterval > 0 || cfg.MaxConcurrent > 0 {
		policy := registry.DefaultPolicy()
		if cfg.PacingInterval > 0 {
			policy.Interval = cfg.PacingInterval
		}
		if cfg.MaxConcurrent > 0 {
			policy.MaxConcurrent = cfg.MaxConcurrent
		}
		opts = append(opts, versync.WithPacing(policy))
	}
	if cfg.CacheTTL > 0 {
		opts = append(opts, versync.WithCache(cfg.CacheTTL))
	}
	return opts
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithClient sets a custom client instance (useful for testing).
func WithClient(c versync.Client) Option {
	return func(a *App) error {
		a.client = c
		return nil
	}
}
