// Package reconcile drives a document to the versions a registry reports.
//
// Reconciliation runs two passes over the requested resources. The baseline
// pass moves every region to the caller's default version. The registry pass
// performs one batched lookup and moves each resource whose registry version
// differs from its default. An empty registry answer skips the second pass,
// and a resource missing from the answer keeps its baseline.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/versync/pkg/document"
	"github.com/agentstation/versync/pkg/locator"
	"github.com/agentstation/versync/pkg/logging"
	"github.com/agentstation/versync/pkg/registry"
	"github.com/agentstation/versync/pkg/rewriter"
)

// RegionSource yields the candidate regions of a document. It is queried
// afresh before every locate step.
type RegionSource interface {
	Regions() []document.Region
}

// Lookuper returns registry versions. It must not fail: unavailable data is
// an empty map.
type Lookuper interface {
	Lookup(ctx context.Context, resources []string) registry.VersionMap
}

// Recorder receives reconciliation events, typically to update metrics.
type Recorder interface {
	RecordChange(pass Pass, kind rewriter.Kind)
	RecordOutcome(status Status)
	ObserveReconcile(duration time.Duration)
}

// Reconciler is the main interface for reconciling a document.
type Reconciler interface {
	// Reconcile rewrites doc in place and reports what it did. The only error
	// is an invalid request, detected before any mutation.
	Reconcile(ctx context.Context, doc RegionSource, req Request) (*Result, error)
}

// reconciler is the default implementation of Reconciler
type reconciler struct {
	registry Lookuper
	logger   *zerolog.Logger
	recorder Recorder
}

// Option configures a Reconciler
type Option func(*reconciler) error

// WithRegistry sets the registry used by the overlay pass.
func WithRegistry(l Lookuper) Option {
	return func(r *reconciler) error {
		if l == nil {
			return fmt.Errorf("registry must not be nil")
		}
		r.registry = l
		return nil
	}
}

// WithLogger sets the logger used when the context carries none.
func WithLogger(logger *zerolog.Logger) Option {
	return func(r *reconciler) error {
		r.logger = logger
		return nil
	}
}

// WithRecorder reports changes and outcomes to rec.
func WithRecorder(rec Recorder) Option {
	return func(r *reconciler) error {
		r.recorder = rec
		return nil
	}
}

// New creates a new Reconciler with options. Without WithRegistry it talks to
// the public Door43 catalog.
func New(opts ...Option) (Reconciler, error) {
	r := &reconciler{}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	if r.registry == nil {
		r.registry = registry.NewClient(registry.DefaultConfig(), registry.WithLogger(r.logger))
	}
	return r, nil
}

// Reconcile implements Reconciler.
func (r *reconciler) Reconcile(ctx context.Context, doc RegionSource, req Request) (*Result, error) {
	logger := r.log(ctx)

	if err := req.Validate(); err != nil {
		logger.Error().Err(err).Msg("Invalid reconciliation request, nothing updated")
		return nil, err
	}

	result := newResult(req)
	defer func() {
		result.Metadata.Duration = time.Since(result.Metadata.StartTime)
		if r.recorder != nil {
			for _, o := range result.Outcomes {
				r.recorder.RecordOutcome(o.Status)
			}
			r.recorder.ObserveReconcile(result.Metadata.Duration)
		}
	}()

	logger.Info().Strs("resources", req.Resources()).Msg("Starting version reconciliation")

	for _, e := range req.entries {
		e := e
		r.guard(ctx, result, e.Resource, func() {
			regions := r.apply(ctx, doc, e.Resource, e.Version, PassBaseline, result)
			result.outcome(e.Resource).Regions = regions
		})
	}

	versions := r.registry.Lookup(ctx, req.Resources())
	if versions == nil {
		versions = registry.VersionMap{}
	}
	result.Registry = versions

	if len(versions) == 0 {
		result.Metadata.RegistrySkipped = true
		logger.Warn().Msg("Registry returned no versions, keeping baseline versions")
		return result, nil
	}

	for _, e := range req.entries {
		e := e
		outcome := result.outcome(e.Resource)
		if outcome.Status == StatusFailed {
			continue
		}

		latest, ok := versions.Get(e.Resource)
		if !ok {
			outcome.Status = StatusMissing
			logger.Warn().
				Str("resource", e.Resource).
				Str("version", e.Version).
				Msg("Resource missing from registry, keeping baseline version")
			continue
		}
		outcome.Registry = latest

		if latest == e.Version {
			outcome.Status = StatusCurrent
			logger.Debug().Str("resource", e.Resource).Str("version", latest).Msg("Already up to date")
			continue
		}

		r.guard(ctx, result, e.Resource, func() {
			logger.Info().
				Str("resource", e.Resource).
				Str("old_version", e.Version).
				Str("new_version", latest).
				Msg("Found version update")
			r.apply(ctx, doc, e.Resource, latest, PassRegistry, result)
			outcome.Final = latest
			outcome.Status = StatusUpdated
		})
	}

	logger.Info().
		Int("changes", len(result.Changes)).
		Msg("Version reconciliation completed")

	return result, nil
}

// apply locates every region of resource and moves it to target. It returns
// the number of regions that reference resource.
func (r *reconciler) apply(ctx context.Context, doc RegionSource, resource, target string, pass Pass, result *Result) int {
	logger := r.log(ctx)
	matches := locator.Locate(resource, doc.Regions())
	if len(matches) == 0 {
		logger.Debug().Str("resource", resource).Str("pass", string(pass)).Msg("No regions reference resource")
		return 0
	}

	for _, m := range matches {
		if m.Version == target {
			continue
		}
		res := rewriter.Rewrite(m.Region, resource, m.Version, target)
		for _, c := range res.Changes {
			logger.Debug().
				Str("resource", resource).
				Str("kind", string(c.Kind)).
				Str("before", c.Before).
				Str("after", c.After).
				Msg("Updated region")
			result.Changes = append(result.Changes, RegionChange{
				Resource: resource,
				Pass:     pass,
				Region:   m.Index,
				Change:   c,
			})
			if r.recorder != nil {
				r.recorder.RecordChange(pass, c.Kind)
			}
		}
	}
	return len(matches)
}

// guard runs fn, turning a panic into a logged error on resource so the
// remaining resources are still processed.
func (r *reconciler) guard(ctx context.Context, result *Result, resource string, fn func()) {
	defer func() {
		if p := recover(); p != nil {
			err := fmt.Errorf("processing %s: %v", resource, p)
			r.log(ctx).Error().Err(err).Str("resource", resource).Msg("Failed to process resource")
			result.Errors = append(result.Errors, err.Error())
			if o := result.outcome(resource); o != nil {
				o.Status = StatusFailed
			}
		}
	}()
	fn()
}

func (r *reconciler) log(ctx context.Context) *zerolog.Logger {
	logger := logging.FromContext(ctx)
	if logger == logging.Default() && r.logger != nil {
		return r.logger
	}
	return logger
}
