package versync

import (
	"sync"

	"github.com/agentstation/versync/pkg/reconcile"
)

// Hook function types for reconciliation events
type (
	// ResourceUpdatedHook is called when a resource moves to its registry version
	ResourceUpdatedHook func(outcome reconcile.Outcome)

	// ResourceMissingHook is called when the registry answered without the resource
	ResourceMissingHook func(outcome reconcile.Outcome)

	// ChangeHook is called for every rewritten element
	ChangeHook func(change reconcile.RegionChange)
)

// hooks manages event callbacks
type hooks struct {
	mu                sync.RWMutex
	onResourceUpdated []ResourceUpdatedHook
	onResourceMissing []ResourceMissingHook
	onChange          []ChangeHook
}

func newHooks() *hooks {
	return &hooks{}
}

// OnResourceUpdated registers a callback for updated resources
func (h *hooks) OnResourceUpdated(fn ResourceUpdatedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onResourceUpdated = append(h.onResourceUpdated, fn)
}

// OnResourceMissing registers a callback for resources absent from the registry
func (h *hooks) OnResourceMissing(fn ResourceMissingHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onResourceMissing = append(h.onResourceMissing, fn)
}

// OnChange registers a callback for element rewrites
func (h *hooks) OnChange(fn ChangeHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onChange = append(h.onChange, fn)
}

// trigger fires the hooks for a finished reconciliation, changes first
func (h *hooks) trigger(result *reconcile.Result) {
	if result == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, change := range result.Changes {
		for _, hook := range h.onChange {
			hook(change)
		}
	}
	for _, outcome := range result.Outcomes {
		switch outcome.Status {
		case reconcile.StatusUpdated:
			for _, hook := range h.onResourceUpdated {
				hook(outcome)
			}
		case reconcile.StatusMissing:
			for _, hook := range h.onResourceMissing {
				hook(outcome)
			}
		}
	}
}
