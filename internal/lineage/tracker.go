// Package lineage records per-field data provenance for one analysis
// request: which source produced each emitted value, at what reliability
// tier, with what confidence and freshness.
package lineage

import (
	"sync"
	"time"

	"github.com/verdictlabs/verdict/internal/core"
)

// Tier grades the reliability of a data source.
type Tier string

const (
	TierPrimary   Tier = "primary"
	TierSecondary Tier = "secondary"
	TierFallback  Tier = "fallback"
)

// Record describes the provenance of one output field.
type Record struct {
	Field         string        `json:"field"`
	Value         any           `json:"value"`
	Source        string        `json:"source"`
	Tier          Tier          `json:"tier"`
	Confidence    float64       `json:"confidence"`
	DataTimestamp time.Time     `json:"data_timestamp"`
	CacheHit      bool          `json:"cache_hit"`
	Citation      core.Citation `json:"citation,omitempty"`
}

// Summary aggregates lineage for the persisted document.
type Summary struct {
	Fields        int          `json:"fields"`
	ByTier        map[Tier]int `json:"by_tier"`
	CacheHits     int          `json:"cache_hits"`
	OldestData    time.Time    `json:"oldest_data"`
	MinConfidence float64      `json:"min_confidence"`
}

// Tracker holds field -> latest Record for one request lifecycle.
// Specialists record concurrently; the last write for a field wins.
type Tracker struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{records: make(map[string]Record)}
}

// Reset clears all records. The engine calls it before each symbol so
// a summary never carries records from another symbol or an earlier
// request.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = make(map[string]Record)
}

// Record stores or overwrites the provenance of a field.
func (t *Tracker) Record(r Record) {
	if r.DataTimestamp.IsZero() {
		r.DataTimestamp = time.Now()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records[r.Field] = r
}

// Get returns the record for a field, if any.
func (t *Tracker) Get(field string) (Record, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.records[field]
	return r, ok
}

// Snapshot returns a copy of all records.
func (t *Tracker) Snapshot() map[string]Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]Record, len(t.records))
	for k, v := range t.records {
		out[k] = v
	}
	return out
}

// Summarize aggregates the current records.
func (t *Tracker) Summarize() Summary {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := Summary{
		Fields:        len(t.records),
		ByTier:        make(map[Tier]int),
		MinConfidence: 1.0,
	}
	for _, r := range t.records {
		s.ByTier[r.Tier]++
		if r.CacheHit {
			s.CacheHits++
		}
		if s.OldestData.IsZero() || r.DataTimestamp.Before(s.OldestData) {
			s.OldestData = r.DataTimestamp
		}
		if r.Confidence < s.MinConfidence {
			s.MinConfidence = r.Confidence
		}
	}
	if len(t.records) == 0 {
		s.MinConfidence = 0
	}
	return s
}
