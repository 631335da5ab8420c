package reconcile

import (
	"time"

	"github.com/agentstation/versync/pkg/registry"
	"github.com/agentstation/versync/pkg/rewriter"
)

// Pass identifies which of the two passes made a change.
type Pass string

const (
	// PassBaseline applies the caller's default versions.
	PassBaseline Pass = "baseline"
	// PassRegistry overlays the versions reported by the registry.
	PassRegistry Pass = "registry"
)

// Status is the final disposition of one resource.
type Status string

const (
	// StatusBaseline means the registry returned nothing at all; the baseline stands.
	StatusBaseline Status = "baseline"
	// StatusUpdated means the registry version differed and was applied.
	StatusUpdated Status = "updated"
	// StatusCurrent means the registry agreed with the baseline.
	StatusCurrent Status = "current"
	// StatusMissing means the registry answered but did not list the resource.
	StatusMissing Status = "missing"
	// StatusFailed means processing the resource panicked and was abandoned.
	StatusFailed Status = "failed"
)

// Outcome summarizes one resource.
type Outcome struct {
	Resource string `json:"resource" yaml:"resource"`
	Baseline string `json:"baseline" yaml:"baseline"`
	Registry string `json:"registry,omitempty" yaml:"registry,omitempty"`
	Final    string `json:"final" yaml:"final"`
	Status   Status `json:"status" yaml:"status"`
	Regions  int    `json:"regions" yaml:"regions"`
}

// RegionChange is a rewriter.Change attributed to a resource, pass and region.
type RegionChange struct {
	Resource        string `json:"resource" yaml:"resource"`
	Pass            Pass   `json:"pass" yaml:"pass"`
	Region          int    `json:"region" yaml:"region"`
	rewriter.Change `yaml:",inline"`
}

// Result represents the outcome of a reconciliation.
type Result struct {
	Outcomes []Outcome           `json:"outcomes" yaml:"outcomes"`
	Changes  []RegionChange      `json:"changes" yaml:"changes"`
	Registry registry.VersionMap `json:"registry" yaml:"registry"`
	Errors   []string            `json:"errors,omitempty" yaml:"errors,omitempty"`
	Metadata ResultMetadata      `json:"metadata" yaml:"metadata"`
}

// ResultMetadata contains metadata about the reconciliation process
type ResultMetadata struct {
	StartTime       time.Time     `json:"start_time" yaml:"start_time"`
	Duration        time.Duration `json:"duration" yaml:"duration"`
	RegistrySkipped bool          `json:"registry_skipped" yaml:"registry_skipped"`
}

func newResult(req Request) *Result {
	r := &Result{
		Outcomes: make([]Outcome, 0, req.Len()),
		Metadata: ResultMetadata{StartTime: time.Now()},
	}
	for _, e := range req.entries {
		r.Outcomes = append(r.Outcomes, Outcome{
			Resource: e.Resource,
			Baseline: e.Version,
			Final:    e.Version,
			Status:   StatusBaseline,
		})
	}
	return r
}

// Outcome returns the outcome of resource.
func (r *Result) Outcome(resource string) (Outcome, bool) {
	if o := r.outcome(resource); o != nil {
		return *o, true
	}
	return Outcome{}, false
}

func (r *Result) outcome(resource string) *Outcome {
	for i := range r.Outcomes {
		if r.Outcomes[i].Resource == resource {
			return &r.Outcomes[i]
		}
	}
	return nil
}

// Changed reports whether any element was mutated.
func (r *Result) Changed() bool {
	return len(r.Changes) > 0
}

// ChangesIn returns the changes made during pass.
func (r *Result) ChangesIn(pass Pass) []RegionChange {
	var out []RegionChange
	for _, c := range r.Changes {
		if c.Pass == pass {
			out = append(out, c)
		}
	}
	return out
}

// CountByStatus tallies outcomes by status.
func (r *Result) CountByStatus() map[Status]int {
	counts := make(map[Status]int)
	for _, o := range r.Outcomes {
		counts[o.Status]++
	}
	return counts
}
