package reconcile

import (
	"strings"

	"github.com/agentstation/versync/pkg/errors"
)

// Entry is one resource and the baseline version the caller wants applied.
type Entry struct {
	Resource string `json:"resource" yaml:"resource"`
	Version  string `json:"version" yaml:"version"`
}

// Request maps resource names to baseline versions, keeping insertion order
// so logs and reports follow the caller's listing. The zero value is empty
// and ready to use.
type Request struct {
	entries []Entry
	index   map[string]int
}

// NewRequest builds a request from entries. Later duplicates overwrite the
// version of earlier ones but keep the first position.
func NewRequest(entries ...Entry) Request {
	var r Request
	for _, e := range entries {
		r.Set(e.Resource, e.Version)
	}
	return r
}

// Set adds or updates resource.
func (r *Request) Set(resource, version string) {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	if i, ok := r.index[resource]; ok {
		r.entries[i].Version = version
		return
	}
	r.index[resource] = len(r.entries)
	r.entries = append(r.entries, Entry{Resource: resource, Version: version})
}

// Len returns the number of resources.
func (r Request) Len() int {
	return len(r.entries)
}

// Entries returns a copy of the entries in insertion order.
func (r Request) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Resources returns the resource names in insertion order.
func (r Request) Resources() []string {
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Resource
	}
	return out
}

// Version returns the baseline version of resource.
func (r Request) Version(resource string) (string, bool) {
	i, ok := r.index[resource]
	if !ok {
		return "", false
	}
	return r.entries[i].Version, true
}

// Validate rejects empty requests and entries with a blank name or version.
func (r Request) Validate() error {
	if len(r.entries) == 0 {
		return errors.NewValidationError("request", nil, "at least one resource is required")
	}
	for _, e := range r.entries {
		if strings.TrimSpace(e.Resource) == "" {
			return errors.NewValidationError("resource", e.Resource, "resource name must not be empty")
		}
		if strings.TrimSpace(e.Version) == "" {
			return errors.NewValidationError("version", e.Resource, "baseline version must not be empty")
		}
	}
	return nil
}
