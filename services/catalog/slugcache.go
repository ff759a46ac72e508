package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"dhub/models"
	"dhub/services/upstream"
	"dhub/utils"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultSlugTTL is how long a fetched slug mapping stays fresh.
const DefaultSlugTTL = 5 * time.Minute

// verifiedPartnersSlug is a marketing slug that is not served by the
// remote API; it maps to a fixed child category of the appliances
// vertical.
const (
	verifiedPartnersSlug  = "verified-partners"
	verifiedPartnersRoute = "appliances/categories/verified-partners"
)

// SlugCache maintains the mapping from externally-defined marketing slugs
// to internal route prefixes. The mapping is refreshed as a whole unit on
// TTL expiry; concurrent refreshes coalesce into a single remote fetch.
type SlugCache struct {
	client *upstream.Client
	ttl    time.Duration
	logger *zap.Logger

	mu        sync.RWMutex
	mapping   map[string]string
	fetchedAt time.Time

	group singleflight.Group
}

// NewSlugCache builds a cache over the given upstream client.
func NewSlugCache(client *upstream.Client, ttl time.Duration, logger *zap.Logger) *SlugCache {
	if ttl <= 0 {
		ttl = DefaultSlugTTL
	}
	return &SlugCache{
		client:  client,
		ttl:     ttl,
		logger:  logger,
		mapping: map[string]string{},
	}
}

// GetDynamicSlugs returns the slug→internal-route mapping, refreshing it
// from the remote API when the TTL has elapsed. The returned map must be
// treated as read-only. On total refresh failure the previous mapping is
// returned; if nothing was ever cached the mapping is empty and callers
// take the no-rewrite path.
func (c *SlugCache) GetDynamicSlugs(ctx context.Context) map[string]string {
	c.mu.RLock()
	fresh := !c.fetchedAt.IsZero() && time.Since(c.fetchedAt) < c.ttl
	current := c.mapping
	c.mu.RUnlock()
	if fresh {
		return current
	}

	v, _, _ := c.group.Do("refresh", func() (interface{}, error) {
		return c.refresh(), nil
	})
	return v.(map[string]string)
}

// refresh fetches all verticals concurrently and merges the results in
// fixed vertical order so the mapping is deterministic. A vertical whose
// fetch fails contributes no entries; the other verticals keep theirs.
// Refreshing is detached from caller contexts so one cancelled request
// cannot abort a refresh other requests are waiting on.
func (c *SlugCache) refresh() map[string]string {
	ctx := context.Background()

	results := make([]map[string]string, len(models.Verticals))
	var wg sync.WaitGroup
	for i, v := range models.Verticals {
		wg.Add(1)
		go func(i int, v models.Vertical) {
			defer wg.Done()
			entries, err := c.fetchVertical(ctx, v)
			if err != nil {
				c.logger.Warn("slug fetch failed for vertical",
					zap.String("vertical", v.InternalPrefix),
					zap.Error(err))
				return
			}
			results[i] = entries
		}(i, v)
	}
	wg.Wait()

	merged := make(map[string]string)
	succeeded := 0
	for _, entries := range results {
		if entries == nil {
			continue
		}
		succeeded++
		for slug, route := range entries {
			merged[slug] = route
		}
	}
	merged[verifiedPartnersSlug] = verifiedPartnersRoute

	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case succeeded == len(models.Verticals):
		utils.SlugRefreshTotal.WithLabelValues("ok").Inc()
	case succeeded > 0:
		utils.SlugRefreshTotal.WithLabelValues("partial").Inc()
	default:
		utils.SlugRefreshTotal.WithLabelValues("failed").Inc()
		// Keep whatever was cached; next request retries the refresh.
		return c.mapping
	}
	c.mapping = merged
	c.fetchedAt = time.Now()
	return c.mapping
}

// fetchVertical retrieves one vertical's slugs and derives its mapping
// entries.
func (c *SlugCache) fetchVertical(ctx context.Context, v models.Vertical) (map[string]string, error) {
	env, err := c.client.GetEnvelope(ctx, fmt.Sprintf("/v2/services/%s/slugs", v.ID))
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, fmt.Errorf("slug lookup rejected: %s", env.Message)
	}
	var slugs models.VerticalSlugs
	if err := env.DecodeData(&slugs); err != nil {
		return nil, err
	}

	entries := make(map[string]string, 5)
	add := func(slug, route string) {
		if slug != "" {
			entries[slug] = route
		}
	}
	add(slugs.Home, v.InternalPrefix)
	add(slugs.Category, v.InternalPrefix+"/categories")
	add(slugs.RecentlyBooked, v.InternalPrefix+"/recent")
	add(slugs.FeaturedServices, v.InternalPrefix+"/featured")
	add(slugs.ServiceCenter, v.InternalPrefix+"/centers")
	return entries, nil
}
