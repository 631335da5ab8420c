// Package registry queries the Door43 catalog for the current version of
// each resource.
//
// Lookups never fail from the caller's point of view: transport errors, bad
// statuses and malformed payloads are logged and produce an empty VersionMap,
// which callers read as "keep the versions you already have".
package registry

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/versync/internal/transport"
	"github.com/agentstation/versync/pkg/constants"
	"github.com/agentstation/versync/pkg/errors"
	"github.com/agentstation/versync/pkg/logging"
)

// VersionMap maps a resource name to the version the registry reports for it.
type VersionMap map[string]string

// Has reports whether resource has an entry.
func (m VersionMap) Has(resource string) bool {
	_, ok := m[resource]
	return ok
}

// Get returns the version for resource and whether it is present.
func (m VersionMap) Get(resource string) (string, bool) {
	v, ok := m[resource]
	return v, ok
}

// Names returns the resource names in sorted order.
func (m VersionMap) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Config holds the registry location and request policy.
type Config struct {
	// Endpoint is the catalog search URL.
	Endpoint string
	// Owner scopes every lookup to one organization.
	Owner string
	// Pacing applies to LookupEach only.
	Pacing Policy
}

// DefaultConfig returns the public Door43 catalog configuration.
func DefaultConfig() Config {
	return Config{
		Endpoint: constants.DefaultCatalogEndpoint,
		Owner:    constants.DefaultOwner,
		Pacing:   DefaultPolicy(),
	}
}

// Validate checks that the endpoint is an absolute URL and the owner is set.
func (c Config) Validate() error {
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return errors.NewConfigError("registry", "invalid endpoint", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return errors.NewConfigError("registry", "endpoint must be an absolute URL", nil)
	}
	if strings.TrimSpace(c.Owner) == "" {
		return errors.NewConfigError("registry", "owner is required", nil)
	}
	return c.Pacing.Validate()
}

// Observer receives one call per registry request.
type Observer interface {
	ObserveLookup(mode string, err error, duration time.Duration)
}

// Client talks to the catalog search API.
type Client struct {
	config    Config
	transport *transport.Client
	logger    *zerolog.Logger
	observer  Observer
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTransport replaces the transport client.
func WithTransport(t *transport.Client) ClientOption {
	return func(c *Client) {
		if t != nil {
			c.transport = t
		}
	}
}

// WithLogger sets the logger used when no logger is attached to the context.
func WithLogger(logger *zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithObserver reports every request to o, typically a metrics recorder.
func WithObserver(o Observer) ClientOption {
	return func(c *Client) {
		c.observer = o
	}
}

// NewClient creates a registry client. Empty config fields fall back to
// DefaultConfig.
func NewClient(config Config, opts ...ClientOption) *Client {
	defaults := DefaultConfig()
	if config.Endpoint == "" {
		config.Endpoint = defaults.Endpoint
	}
	if config.Owner == "" {
		config.Owner = defaults.Owner
	}
	if config.Pacing == (Policy{}) {
		config.Pacing = defaults.Pacing
	} else if config.Pacing.MaxConcurrent <= 0 {
		config.Pacing.MaxConcurrent = defaults.Pacing.MaxConcurrent
	}

	c := &Client{
		config:    config,
		transport: transport.New(&transport.NoAuth{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.config
}

// catalogResponse is the subset of the catalog search payload we read.
type catalogResponse struct {
	OK   bool           `json:"ok"`
	Data []catalogEntry `json:"data"`
}

type catalogEntry struct {
	Name            string `json:"name"`
	BranchOrTagName string `json:"branch_or_tag_name"`
}

// Lookup returns the registry versions of resources with one batched request.
// Failures are logged and yield an empty map.
func (c *Client) Lookup(ctx context.Context, resources []string) VersionMap {
	versions, err := c.Fetch(ctx, resources)
	if err != nil {
		c.log(ctx).Error().
			Err(err).
			Strs("resources", resources).
			Msg("Registry lookup failed, keeping current versions")
		return VersionMap{}
	}
	return versions
}

// Fetch is Lookup with the failure surfaced. The map is never nil.
func (c *Client) Fetch(ctx context.Context, resources []string) (VersionMap, error) {
	resources = dedupe(resources)
	if len(resources) == 0 {
		return VersionMap{}, nil
	}

	start := time.Now()
	entries, err := c.search(ctx, strings.Join(resources, ","))
	c.observe("batch", err, time.Since(start))
	if err != nil {
		return VersionMap{}, err
	}

	versions := make(VersionMap, len(entries))
	for _, e := range entries {
		if e.Name == "" || e.BranchOrTagName == "" {
			continue
		}
		versions[e.Name] = e.BranchOrTagName
	}

	logger := c.log(ctx)
	for _, r := range resources {
		if !versions.Has(r) {
			logger.Warn().Str("resource", r).Msg("Resource not found in registry")
		}
	}
	logger.Debug().
		Int("requested", len(resources)).
		Int("found", len(versions)).
		Msg("Registry lookup complete")

	return versions, nil
}

// search runs one catalog query for repo, a single name or a comma-joined list.
func (c *Client) search(ctx context.Context, repo string) ([]catalogEntry, error) {
	u, err := url.Parse(c.config.Endpoint)
	if err != nil {
		return nil, errors.NewConfigError("registry", "invalid endpoint", err)
	}
	query := u.Query()
	query.Set("owner", c.config.Owner)
	query.Set("repo", repo)
	u.RawQuery = query.Encode()

	c.log(ctx).Debug().Str("url", u.String()).Msg("Querying registry")

	resp, err := c.transport.Get(ctx, u.String())
	if err != nil {
		return nil, errors.WrapAPI(constants.RegistryName, 0, err)
	}

	var payload catalogResponse
	if err := transport.DecodeResponse(resp, constants.RegistryName, &payload); err != nil {
		return nil, err
	}
	return payload.Data, nil
}

func (c *Client) observe(mode string, err error, d time.Duration) {
	if c.observer != nil {
		c.observer.ObserveLookup(mode, err, d)
	}
}

func (c *Client) log(ctx context.Context) *zerolog.Logger {
	if c.logger != nil && logging.FromContext(ctx) == logging.Default() {
		return c.logger
	}
	return logging.FromContext(ctx)
}

func dedupe(resources []string) []string {
	seen := make(map[string]bool, len(resources))
	out := make([]string, 0, len(resources))
	for _, r := range resources {
		r = strings.TrimSpace(r)
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}
