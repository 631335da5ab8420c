// Package cache keeps registry versions in memory between reconciliations.
// It uses patrickmn/go-cache for TTL-based expiry.
package cache

import (
	"context"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/agentstation/versync/pkg/reconcile"
	"github.com/agentstation/versync/pkg/registry"
)

// Cache maps resource names to their last known registry version.
type Cache struct {
	store *gocache.Cache
}

// New creates a new cache with the given TTL and cleanup interval.
func New(defaultTTL, cleanupInterval time.Duration) *Cache {
	return &Cache{
		store: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Get returns the cached version of resource.
func (c *Cache) Get(resource string) (string, bool) {
	v, ok := c.store.Get(resource)
	if !ok {
		return "", false
	}
	version, ok := v.(string)
	return version, ok
}

// Set stores the version of resource with the default TTL.
func (c *Cache) Set(resource, version string) {
	c.store.Set(resource, version, gocache.DefaultExpiration)
}

// Delete removes resource.
func (c *Cache) Delete(resource string) {
	c.store.Delete(resource)
}

// Clear removes all items from the cache.
func (c *Cache) Clear() {
	c.store.Flush()
}

// ItemCount returns the number of items in the cache.
func (c *Cache) ItemCount() int {
	return c.store.ItemCount()
}

// Stats returns cache statistics.
type Stats struct {
	ItemCount int    `json:"item_count"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
}

// Lookuper serves registry versions from the cache and forwards misses to
// the next Lookuper in one batch. Only versions the registry actually
// reported are cached, so a failed or partial lookup is retried next time.
type Lookuper struct {
	next  reconcile.Lookuper
	cache *Cache

	hits   atomic.Uint64
	misses atomic.Uint64
}

var _ reconcile.Lookuper = (*Lookuper)(nil)

// NewLookuper wraps next with c.
func NewLookuper(next reconcile.Lookuper, c *Cache) *Lookuper {
	return &Lookuper{next: next, cache: c}
}

// Lookup implements reconcile.Lookuper.
func (l *Lookuper) Lookup(ctx context.Context, resources []string) registry.VersionMap {
	versions := make(registry.VersionMap, len(resources))
	var missing []string
	for _, r := range resources {
		if v, ok := l.cache.Get(r); ok {
			versions[r] = v
			continue
		}
		missing = append(missing, r)
	}
	l.hits.Add(uint64(len(resources) - len(missing)))
	l.misses.Add(uint64(len(missing)))

	if len(missing) == 0 {
		return versions
	}
	for name, version := range l.next.Lookup(ctx, missing) {
		l.cache.Set(name, version)
		versions[name] = version
	}
	return versions
}

// Stats returns hit and miss counters along with the cache size.
func (l *Lookuper) Stats() Stats {
	return Stats{ItemCount: l.cache.ItemCount(), Hits: l.hits.Load(), Misses: l.misses.Load()}
}
