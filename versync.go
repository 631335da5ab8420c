// Package versync keeps the resource links on a rendered page pointing at the
// versions published in the Door43 catalog.
//
// A page presents each resource in a region (by default a
// ".wp-block-obb-toggle-block" element) holding download, release or preview
// links plus a "Status:" paragraph. Reconciliation moves every region to a
// caller-supplied baseline version, asks the catalog once for the latest
// versions, and moves the regions whose resource has a newer release.
//
// Example usage:
//
//	vs, err := versync.New(versync.WithOwner("unfoldingWord"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	vs.OnResourceUpdated(func(o reconcile.Outcome) {
//	    log.Printf("%s: %s -> %s", o.Resource, o.Baseline, o.Final)
//	})
//
//	req := reconcile.NewRequest(reconcile.Entry{Resource: "en_tn", Version: "v85"})
//	report, err := vs.ReconcileHTML(ctx, page, os.Stdout, req)
package versync

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/agentstation/versync/internal/cache"
	"github.com/agentstation/versync/internal/transport"
	"github.com/agentstation/versync/pkg/constants"
	"github.com/agentstation/versync/pkg/document/htmldoc"
	"github.com/agentstation/versync/pkg/errors"
	"github.com/agentstation/versync/pkg/logging"
	"github.com/agentstation/versync/pkg/reconcile"
	"github.com/agentstation/versync/pkg/registry"
	"github.com/agentstation/versync/pkg/relative"
)

// Client reconciles documents against the catalog registry.
type Client interface {
	// Reconcile runs both passes over an already parsed document.
	Reconcile(ctx context.Context, doc reconcile.RegionSource, req reconcile.Request) (*reconcile.Result, error)

	// ReconcileHTML parses r, normalizes relative links if enabled, reconciles
	// and renders the page to w. A nil w skips rendering.
	ReconcileHTML(ctx context.Context, r io.Reader, w io.Writer, req reconcile.Request) (*Report, error)

	// Lookup queries the registry directly and surfaces any failure.
	Lookup(ctx context.Context, resources []string) (registry.VersionMap, error)

	// LookupEach queries the registry one resource at a time under the pacing policy.
	LookupEach(ctx context.Context, resources []string) registry.VersionMap

	// OnResourceUpdated registers a callback for resources moved to a registry version
	OnResourceUpdated(ResourceUpdatedHook)

	// OnResourceMissing registers a callback for resources the registry did not list
	OnResourceMissing(ResourceMissingHook)

	// OnChange registers a callback for every element rewrite
	OnChange(ChangeHook)
}

// Report is the outcome of ReconcileHTML.
type Report struct {
	*reconcile.Result `yaml:",inline"`

	// Relative lists root-relative links made absolute before reconciliation.
	Relative []relative.Change `json:"relative,omitempty" yaml:"relative,omitempty"`
}

// client is the internal implementation of the Client interface
type client struct {
	config     *config
	registry   *registry.Client
	reconciler reconcile.Reconciler
	hooks      *hooks
	logger     *zerolog.Logger
}

var _ Client = (*client)(nil)

// New creates a new Client with the given options
func New(opts ...Option) (Client, error) {
	cfg := defaultConfig()
	if err := cfg.apply(opts...); err != nil {
		return nil, fmt.Errorf("applying options: %w", err)
	}

	logger := cfg.logger
	if logger == nil {
		logger = logging.Default()
	}

	regConfig := registry.Config{
		Endpoint: cfg.endpoint,
		Owner:    cfg.owner,
		Pacing:   cfg.pacing,
	}
	if err := regConfig.Validate(); err != nil {
		return nil, err
	}

	var auth transport.Authenticator = &transport.NoAuth{}
	if cfg.token != "" {
		auth = transport.AuthenticatorFor(cfg.authScheme)
	}
	tr := transport.New(auth,
		transport.WithHTTPClient(cfg.httpClient),
		transport.WithSecret(cfg.token),
	)

	regClient := registry.NewClient(regConfig,
		registry.WithTransport(tr),
		registry.WithLogger(logger),
		registry.WithObserver(cfg.observer),
	)

	var lookuper reconcile.Lookuper = regClient
	if cfg.lookuper != nil {
		lookuper = cfg.lookuper
	}
	if cfg.cacheTTL > 0 {
		lookuper = cache.NewLookuper(lookuper, cache.New(cfg.cacheTTL, 2*cfg.cacheTTL))
	}

	rec, err := reconcile.New(
		reconcile.WithRegistry(lookuper),
		reconcile.WithLogger(logger),
		reconcile.WithRecorder(cfg.recorder),
	)
	if err != nil {
		return nil, fmt.Errorf("creating reconciler: %w", err)
	}

	return &client{
		config:     cfg,
		registry:   regClient,
		reconciler: rec,
		hooks:      newHooks(),
		logger:     logger,
	}, nil
}

// Reconcile implements Client.
func (c *client) Reconcile(ctx context.Context, doc reconcile.RegionSource, req reconcile.Request) (*reconcile.Result, error) {
	result, err := c.reconciler.Reconcile(ctx, doc, req)
	if err != nil {
		return nil, err
	}
	c.hooks.trigger(result)
	return result, nil
}

// ReconcileHTML implements Client.
func (c *client) ReconcileHTML(ctx context.Context, r io.Reader, w io.Writer, req reconcile.Request) (*Report, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	doc, err := htmldoc.Parse(limitReader(r), htmldoc.WithRegionSelector(c.config.regionSelector))
	if err != nil {
		return nil, err
	}

	report := &Report{}
	if c.config.relativeLinks {
		report.Relative = relative.Normalize(doc, c.config.origin)
		if n := len(report.Relative); n > 0 {
			c.log(ctx).Debug().Int("links", n).Str("origin", c.config.origin).Msg("Normalized relative links")
		}
	}

	report.Result, err = c.Reconcile(ctx, doc, req)
	if err != nil {
		return nil, err
	}

	if w != nil {
		if err := doc.Render(w); err != nil {
			return report, err
		}
	}
	return report, nil
}

// Lookup implements Client.
func (c *client) Lookup(ctx context.Context, resources []string) (registry.VersionMap, error) {
	return c.registry.Fetch(ctx, resources)
}

// LookupEach implements Client.
func (c *client) LookupEach(ctx context.Context, resources []string) registry.VersionMap {
	return c.registry.LookupEach(ctx, resources)
}

// OnResourceUpdated implements Client.
func (c *client) OnResourceUpdated(fn ResourceUpdatedHook) { c.hooks.OnResourceUpdated(fn) }

// OnResourceMissing implements Client.
func (c *client) OnResourceMissing(fn ResourceMissingHook) { c.hooks.OnResourceMissing(fn) }

// OnChange implements Client.
func (c *client) OnChange(fn ChangeHook) { c.hooks.OnChange(fn) }

func (c *client) log(ctx context.Context) *zerolog.Logger {
	if logger := logging.FromContext(ctx); logger != logging.Default() {
		return logger
	}
	return c.logger
}

// limitReader caps documents at constants.MaxDocumentBytes. Reading past the
// cap fails instead of silently truncating the page.
func limitReader(r io.Reader) io.Reader {
	return &cappedReader{r: io.LimitReader(r, constants.MaxDocumentBytes+1), left: constants.MaxDocumentBytes}
}

type cappedReader struct {
	r    io.Reader
	left int64
}

func (c *cappedReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.left -= int64(n)
	if c.left < 0 {
		return n, errors.NewValidationError("document", constants.MaxDocumentBytes, "document exceeds size limit")
	}
	return n, err
}
