package versync

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/versync/internal/transport"
	"github.com/agentstation/versync/pkg/constants"
	"github.com/agentstation/versync/pkg/reconcile"
	"github.com/agentstation/versync/pkg/registry"
)

// Option is a function that configures a Client
type Option func(*config) error

// Metrics receives both registry and reconciliation events.
type Metrics interface {
	registry.Observer
	reconcile.Recorder
}

// config holds the configuration for a Client
type config struct {
	endpoint       string
	owner          string
	origin         string
	regionSelector string

	token      string
	authScheme string
	httpClient transport.Doer
	pacing     registry.Policy
	cacheTTL   time.Duration

	logger   *zerolog.Logger
	observer registry.Observer
	recorder reconcile.Recorder
	lookuper reconcile.Lookuper

	relativeLinks bool
}

func defaultConfig() *config {
	return &config{
		endpoint:       constants.DefaultCatalogEndpoint,
		owner:          constants.DefaultOwner,
		origin:         constants.DefaultOrigin,
		regionSelector: constants.DefaultRegionSelector,
		pacing:         registry.DefaultPolicy(),
		relativeLinks:  true,
	}
}

func (c *config) apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return err
		}
	}
	return nil
}

// WithEndpoint sets the catalog search URL.
func WithEndpoint(endpoint string) Option {
	return func(c *config) error {
		if endpoint == "" {
			return fmt.Errorf("endpoint must not be empty")
		}
		c.endpoint = endpoint
		return nil
	}
}

// WithOwner scopes registry lookups to one organization.
func WithOwner(owner string) Option {
	return func(c *config) error {
		if strings.TrimSpace(owner) == "" {
			return fmt.Errorf("owner must not be empty")
		}
		c.owner = owner
		return nil
	}
}

// WithOrigin sets the scheme and host prefixed to root-relative links.
func WithOrigin(origin string) Option {
	return func(c *config) error {
		if !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return fmt.Errorf("origin %q must be an http(s) URL", origin)
		}
		c.origin = strings.TrimRight(origin, "/")
		return nil
	}
}

// WithRegionSelector sets the CSS selector identifying resource regions.
func WithRegionSelector(selector string) Option {
	return func(c *config) error {
		if selector == "" {
			return fmt.Errorf("region selector must not be empty")
		}
		c.regionSelector = selector
		return nil
	}
}

// WithToken authenticates registry requests. scheme is one of "token"
// (Gitea default), "bearer", "query" or "none".
func WithToken(token, scheme string) Option {
	return func(c *config) error {
		c.token = token
		c.authScheme = scheme
		return nil
	}
}

// WithHTTPClient replaces the HTTP client used for registry calls.
func WithHTTPClient(doer transport.Doer) Option {
	return func(c *config) error {
		c.httpClient = doer
		return nil
	}
}

// WithPacing sets the policy used by LookupEach.
func WithPacing(policy registry.Policy) Option {
	return func(c *config) error {
		if err := policy.Validate(); err != nil {
			return err
		}
		c.pacing = policy
		return nil
	}
}

// WithCache keeps registry versions for ttl between reconciliations.
func WithCache(ttl time.Duration) Option {
	return func(c *config) error {
		if ttl < 0 {
			return fmt.Errorf("cache ttl must not be negative")
		}
		c.cacheTTL = ttl
		return nil
	}
}

// WithLogger sets the logger used when the context carries none.
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *config) error {
		c.logger = logger
		return nil
	}
}

// WithMetrics reports registry requests and reconciliation events to m.
func WithMetrics(m Metrics) Option {
	return func(c *config) error {
		c.observer = m
		c.recorder = m
		return nil
	}
}

// WithRegistry replaces the registry used by reconciliation. Lookup and
// LookupEach still talk to the configured endpoint.
func WithRegistry(l reconcile.Lookuper) Option {
	return func(c *config) error {
		if l == nil {
			return fmt.Errorf("registry must not be nil")
		}
		c.lookuper = l
		return nil
	}
}

// WithRelativeLinks toggles root-relative link normalization in ReconcileHTML.
func WithRelativeLinks(enabled bool) Option {
	return func(c *config) error {
		c.relativeLinks = enabled
		return nil
	}
}
