package authz

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
)

const cacheVersionKey = "authz:config:version"

// Cache holds the last-computed effective permission configuration and the
// last-computed custom-role list. It is owned exclusively by the engine; no
// other component reads persisted configuration directly.
//
// The lifecycle is EMPTY -> POPULATED on first read, -> EMPTY on any
// configuration write. There is no TTL; staleness is bounded solely by
// mutation events. A shared Redis version counter, bumped on every mutation
// before the mutating call returns, lets separate processes detect the bump
// and re-fetch from the persisted store. When Redis is unavailable the cache
// degrades to per-process invalidation only and never blocks reads.
//
// Population is generation-checked: a loader captures Generation before it
// reads the persisted store and passes it back to the Store methods, which
// drop the result if an invalidation ran in between. A read racing a write
// can therefore never re-populate the cache with pre-write state after the
// write has been acknowledged.
type Cache struct {
	client *redis.Client

	mu           sync.RWMutex
	generation   uint64
	version      int64
	effective    PermissionMap
	hasEffective bool
	custom       []RoleDefinition
	hasCustom    bool
}

// NewCache constructs a Cache. client may be nil for single-process use.
func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Effective returns the cached effective map, if populated and current.
func (c *Cache) Effective(ctx context.Context) (PermissionMap, bool) {
	c.checkVersion(ctx)
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.hasEffective {
		return nil, false
	}
	return c.effective.Clone(), true
}

// Generation returns the current invalidation generation. Capture it before
// reading the persisted store and pass it to the matching Store method.
func (c *Cache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// StoreEffective populates the effective-map slot. The store is dropped when
// gen predates the current generation: that load raced a mutation and holds
// pre-write state.
func (c *Cache) StoreEffective(gen uint64, m PermissionMap) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return
	}
	c.effective = m.Clone()
	c.hasEffective = true
}

// CustomRoles returns the cached custom-role list, if populated and current.
func (c *Cache) CustomRoles(ctx context.Context) ([]RoleDefinition, bool) {
	c.checkVersion(ctx)
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.hasCustom {
		return nil, false
	}
	out := make([]RoleDefinition, len(c.custom))
	copy(out, c.custom)
	return out, true
}

// StoreCustomRoles populates the custom-role slot, subject to the same
// generation check as StoreEffective.
func (c *Cache) StoreCustomRoles(gen uint64, defs []RoleDefinition) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return
	}
	c.custom = make([]RoleDefinition, len(defs))
	copy(c.custom, defs)
	c.hasCustom = true
}

// Invalidate empties both slots and bumps the shared version counter. It is
// called synchronously by every configuration write before that write
// returns, so any request observing the write's success response re-fetches
// from the persisted store on its next read.
func (c *Cache) Invalidate(ctx context.Context) {
	c.mu.Lock()
	c.generation++
	c.effective = nil
	c.hasEffective = false
	c.custom = nil
	c.hasCustom = false
	c.mu.Unlock()

	if c.client == nil {
		return
	}
	if ver, err := c.client.Incr(ctx, cacheVersionKey).Result(); err == nil {
		c.mu.Lock()
		c.version = ver
		c.mu.Unlock()
	}
}

// checkVersion empties the slots when another process bumped the shared
// counter since our last observation.
func (c *Cache) checkVersion(ctx context.Context) {
	if c.client == nil {
		return
	}
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if err != nil {
		// Missing key or unreachable Redis: fall back to local invalidation.
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if ver != c.version {
		c.version = ver
		c.generation++
		c.effective = nil
		c.hasEffective = false
		c.custom = nil
		c.hasCustom = false
	}
}
