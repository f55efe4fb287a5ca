package gateway

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// slugCache memoizes slug → project ID lookups so hot routes skip a
// query per request. Entries expire on a fixed TTL; admin mutations
// invalidate eagerly.
type slugCache struct {
	cache *ttlcache.Cache[string, string]
	ttl   time.Duration
}

func newSlugCache(ttl time.Duration) *slugCache {
	c := ttlcache.New(
		ttlcache.WithTTL[string, string](ttl),
		ttlcache.WithDisableTouchOnHit[string, string](),
	)
	go c.Start()

	return &slugCache{cache: c, ttl: ttl}
}

func (c *slugCache) get(slug string) (string, bool) {
	item := c.cache.Get(slug)
	if item == nil {
		return "", false
	}
	return item.Value(), true
}

func (c *slugCache) set(slug, projectID string) {
	c.cache.Set(slug, projectID, c.ttl)
}

// Invalidate removes a slug from the cache.
func (c *slugCache) Invalidate(slug string) {
	c.cache.Delete(slug)
}
