// Package cache provides the content-addressed response cache used by
// specialists to avoid repeating external search/lookup calls.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync/atomic"
	"time"
)

// DefaultTTL matches market-data freshness needs.
const DefaultTTL = 60 * time.Minute

// Cache is the response cache contract. Writers overwrite on key
// collision, never merge.
type Cache interface {
	Get(ctx context.Context, key string) (any, bool)
	Set(ctx context.Context, key string, value any)
	// SetScoped stores value under key, indexed by symbol so a later
	// Invalidate(symbol) can drop it.
	SetScoped(ctx context.Context, key string, value any, symbol string)
	// Invalidate drops every entry scoped to the given symbol.
	Invalidate(ctx context.Context, symbol string)
	Stats() Stats
	ResetStats()
}

// Key derives a deterministic cache key from the normalized query plus
// scoping parameters (symbol, lookback window, ...).
func Key(query string, scope ...string) string {
	parts := make([]string, 0, len(scope)+1)
	parts = append(parts, normalize(query))
	for _, s := range scope {
		parts = append(parts, normalize(s))
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:16])
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Stats reports cache effectiveness.
type Stats struct {
	Hits          int64   `json:"hits"`
	Misses        int64   `json:"misses"`
	HitRate       float64 `json:"hit_rate"`
	EstCostSaved  float64 `json:"estimated_cost_saved"`
	Entries       int     `json:"entries"`
}

// counters are shared by backends. Atomic so concurrent specialists can
// record hits and misses without coordination.
type counters struct {
	hits        atomic.Int64
	misses      atomic.Int64
	costPerCall float64
}

func (c *counters) hit()  { c.hits.Add(1) }
func (c *counters) miss() { c.misses.Add(1) }

func (c *counters) stats(entries int) Stats {
	h := c.hits.Load()
	m := c.misses.Load()
	s := Stats{Hits: h, Misses: m, Entries: entries}
	if h+m > 0 {
		s.HitRate = float64(h) / float64(h+m)
	}
	s.EstCostSaved = float64(h) * c.costPerCall
	return s
}

// reset clears counters without affecting cached data validity.
func (c *counters) reset() {
	c.hits.Store(0)
	c.misses.Store(0)
}
