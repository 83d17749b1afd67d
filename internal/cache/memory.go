package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value    any
	symbol   string
	storedAt time.Time
	expireAt time.Time
}

func (e *entry) expired(now time.Time) bool {
	return now.After(e.expireAt)
}

// Memory is an in-memory TTL cache. Reads take the read lock only;
// expired entries are evicted on read and by a background janitor.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*entry
	// symbol -> keys, for bulk invalidation after a material news event
	bySymbol map[string]map[string]struct{}
	ttl      time.Duration

	counters

	janitorStop chan struct{}
	stopOnce    sync.Once
}

// MemoryOption configures a Memory cache.
type MemoryOption func(*Memory)

// WithTTL overrides the default entry TTL.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(m *Memory) { m.ttl = ttl }
}

// WithCostPerCall sets the estimated cost of one avoided external call,
// used for the estimated_cost_saved statistic.
func WithCostPerCall(cost float64) MemoryOption {
	return func(m *Memory) { m.costPerCall = cost }
}

// NewMemory creates an in-memory response cache.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		entries:     make(map[string]*entry),
		bySymbol:    make(map[string]map[string]struct{}),
		ttl:         DefaultTTL,
		janitorStop: make(chan struct{}),
	}
	m.costPerCall = 0.01
	for _, opt := range opts {
		opt(m)
	}
	go m.janitor()
	return m
}

// Get returns the cached value for key if present and fresh.
func (m *Memory) Get(_ context.Context, key string) (any, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		m.miss()
		return nil, false
	}
	if e.expired(time.Now()) {
		m.mu.Lock()
		m.remove(key)
		m.mu.Unlock()
		m.miss()
		return nil, false
	}
	m.hit()
	return e.value, true
}

// Set stores value under key. Last write wins.
func (m *Memory) Set(ctx context.Context, key string, value any) {
	m.SetScoped(ctx, key, value, "")
}

// SetScoped stores value under key, indexed by symbol for bulk
// invalidation.
func (m *Memory) SetScoped(_ context.Context, key string, value any, symbol string) {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.entries[key]; ok && old.symbol != "" {
		delete(m.bySymbol[old.symbol], key)
	}
	m.entries[key] = &entry{
		value:    value,
		symbol:   symbol,
		storedAt: now,
		expireAt: now.Add(m.ttl),
	}
	if symbol != "" {
		if m.bySymbol[symbol] == nil {
			m.bySymbol[symbol] = make(map[string]struct{})
		}
		m.bySymbol[symbol][key] = struct{}{}
	}
}

// Invalidate drops every entry scoped to symbol.
func (m *Memory) Invalidate(_ context.Context, symbol string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.bySymbol[symbol] {
		delete(m.entries, key)
	}
	delete(m.bySymbol, symbol)
}

// Stats returns current counters.
func (m *Memory) Stats() Stats {
	m.mu.RLock()
	n := len(m.entries)
	m.mu.RUnlock()
	return m.counters.stats(n)
}

// ResetStats clears counters; cached entries stay valid.
func (m *Memory) ResetStats() {
	m.counters.reset()
}

// Close stops the janitor goroutine.
func (m *Memory) Close() {
	m.stopOnce.Do(func() { close(m.janitorStop) })
}

// remove must be called with the write lock held.
func (m *Memory) remove(key string) {
	if e, ok := m.entries[key]; ok {
		if e.symbol != "" {
			delete(m.bySymbol[e.symbol], key)
		}
		delete(m.entries, key)
	}
}

func (m *Memory) janitor() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-m.janitorStop:
			return
		case now := <-ticker.C:
			m.mu.Lock()
			for key, e := range m.entries {
				if e.expired(now) {
					m.remove(key)
				}
			}
			m.mu.Unlock()
		}
	}
}
