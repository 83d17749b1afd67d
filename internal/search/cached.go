package search

import (
	"context"

	"go.uber.org/zap"

	"github.com/verdictlabs/verdict/internal/cache"
	"github.com/verdictlabs/verdict/internal/metrics"
)

// Cached wraps a Provider with the response cache. The symbol scope is
// carried so a material news event can invalidate everything cached
// for one symbol at once.
type Cached struct {
	inner   Provider
	cache   cache.Cache
	metrics *metrics.Registry
	logger  *zap.Logger
}

// NewCached creates a caching decorator. A nil cache passes straight
// through to the inner provider; metricsReg may be nil.
func NewCached(inner Provider, c cache.Cache, metricsReg *metrics.Registry, logger *zap.Logger) *Cached {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cached{inner: inner, cache: c, metrics: metricsReg, logger: logger}
}

// Name returns the inner provider's name.
func (c *Cached) Name() string {
	return c.inner.Name()
}

// Search consults the cache before delegating to the inner provider.
func (c *Cached) Search(ctx context.Context, query string, depth Depth, maxResults int) ([]Result, error) {
	results, _, err := c.SearchScoped(ctx, query, depth, maxResults, "")
	return results, err
}

// SearchScoped is Search with a symbol scope for cache invalidation.
// The hit flag feeds the lineage tracker.
func (c *Cached) SearchScoped(ctx context.Context, query string, depth Depth, maxResults int, symbol string) ([]Result, bool, error) {
	if c.cache == nil {
		results, err := c.inner.Search(ctx, query, depth, maxResults)
		return results, false, err
	}

	key := cache.Key(query, string(depth), symbol)
	if v, ok := c.cache.Get(ctx, key); ok {
		if results, ok := v.([]Result); ok {
			c.metrics.CacheHit()
			return results, true, nil
		}
	}
	c.metrics.CacheMiss()

	results, err := c.inner.Search(ctx, query, depth, maxResults)
	if err != nil {
		return nil, false, err
	}
	c.cache.SetScoped(ctx, key, results, symbol)
	return results, false, nil
}
