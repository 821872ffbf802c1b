package resolver

import (
	"sync"
	"time"

	"salesgate/internal/tenant/models"
)

type cacheEntry struct {
	tenant    *models.Tenant
	expiresAt time.Time
}

// tenantCache holds positive lookups only. An unknown subdomain is always
// re-read so a newly provisioned tenant is visible on its first request.
type tenantCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
}

func newTenantCache(ttl time.Duration) *tenantCache {
	return &tenantCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
	}
}

func (c *tenantCache) get(subdomain string, now time.Time) (*models.Tenant, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[subdomain]
	if !ok || !now.Before(entry.expiresAt) {
		return nil, false
	}
	return entry.tenant, true
}

func (c *tenantCache) set(subdomain string, tenant *models.Tenant, now time.Time) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[subdomain] = cacheEntry{tenant: tenant, expiresAt: now.Add(c.ttl)}
	c.evictExpiredLocked(now, 10)
}

func (c *tenantCache) invalidate(subdomain string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, subdomain)
}

// evictExpiredLocked removes at most limit expired entries. Caller holds the lock.
func (c *tenantCache) evictExpiredLocked(now time.Time, limit int) {
	evicted := 0
	for key, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, key)
			evicted++
			if evicted >= limit {
				return
			}
		}
	}
}
