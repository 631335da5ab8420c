package registry

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/agentstation/versync/pkg/constants"
	"github.com/agentstation/versync/pkg/errors"
)

// Policy paces per-resource lookups.
type Policy struct {
	// Interval is the minimum gap between two request starts. Zero disables pacing.
	Interval time.Duration
	// MaxConcurrent bounds in-flight requests.
	MaxConcurrent int
}

// DefaultPolicy spaces requests 200ms apart, one at a time.
func DefaultPolicy() Policy {
	return Policy{
		Interval:      constants.DefaultPacingInterval,
		MaxConcurrent: constants.DefaultMaxConcurrent,
	}
}

// Validate rejects negative values.
func (p Policy) Validate() error {
	if p.Interval < 0 {
		return errors.NewValidationError("pacing_interval", p.Interval, "must not be negative")
	}
	if p.MaxConcurrent < 0 {
		return errors.NewValidationError("max_concurrent", p.MaxConcurrent, "must not be negative")
	}
	return nil
}

func (p Policy) limiter() *rate.Limiter {
	if p.Interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(p.Interval), 1)
}

// LookupEach queries the registry once per resource, pacing requests with the
// client's Policy. Each response's first entry is taken as that resource's
// version. Failed or empty lookups are logged and left out of the map.
func (c *Client) LookupEach(ctx context.Context, resources []string) VersionMap {
	resources = dedupe(resources)
	versions := make(VersionMap, len(resources))
	if len(resources) == 0 {
		return versions
	}

	policy := c.config.Pacing
	workers := policy.MaxConcurrent
	if workers <= 0 {
		workers = 1
	}
	limiter := policy.limiter()
	sem := make(chan struct{}, workers)

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	logger := c.log(ctx)

	for _, resource := range resources {
		if err := limiter.Wait(ctx); err != nil {
			logger.Warn().Err(err).Str("resource", resource).Msg("Stopped pacing registry lookups")
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(resource string) {
			defer wg.Done()
			defer func() { <-sem }()

			start := time.Now()
			entries, err := c.search(ctx, resource)
			c.observe("single", err, time.Since(start))

			switch {
			case err != nil:
				logger.Error().Err(err).Str("resource", resource).Msg("Registry lookup failed")
				return
			case len(entries) == 0 || entries[0].BranchOrTagName == "":
				logger.Warn().Str("resource", resource).Msg("No data found in registry")
				return
			}

			mu.Lock()
			versions[resource] = entries[0].BranchOrTagName
			mu.Unlock()
		}(resource)
	}
	wg.Wait()

	return versions
}
