// Package tier routes language-model calls to a cheap or a deep model
// tier and tracks spend, so high-volume extraction work never burns the
// expensive tier.
package tier

import (
	"sync/atomic"
)

// Tier identifies a language-model cost tier.
type Tier string

const (
	TierCheap Tier = "cheap"
	TierDeep  Tier = "deep"
)

// TaskKind classifies the work an LLM call performs.
type TaskKind string

const (
	TaskClassification TaskKind = "classification"
	TaskExtraction     TaskKind = "extraction"
	TaskSummarization  TaskKind = "summarization"
	TaskSynthesis      TaskKind = "synthesis"
	TaskEnrichment     TaskKind = "enrichment"
)

// TaskDescriptor describes one LLM call for routing purposes.
type TaskDescriptor struct {
	Kind           TaskKind
	InputSize      int // prompt length in characters
	NeedsReasoning bool
}

// Config tunes routing and cost accounting.
type Config struct {
	// MaxCheapInput is the largest prompt the cheap tier accepts.
	MaxCheapInput int
	// DeepCostPerCall is the assumed cost of one deep-tier call, used
	// to estimate savings.
	DeepCostPerCall float64
}

// DefaultConfig returns default router settings.
func DefaultConfig() Config {
	return Config{
		MaxCheapInput:   12000,
		DeepCostPerCall: 0.09,
	}
}

// Router decides the tier per task and accounts usage. The routing
// decision is a pure function of the descriptor, never of runtime load.
type Router struct {
	cfg Config

	cheapCalls  atomic.Int64
	deepCalls   atomic.Int64
	tokens      atomic.Int64
	costMicro   atomic.Int64 // accumulated cost in millionths, atomics carry no floats
}

// New creates a tier router.
func New(cfg Config) *Router {
	if cfg.MaxCheapInput <= 0 {
		cfg.MaxCheapInput = DefaultConfig().MaxCheapInput
	}
	if cfg.DeepCostPerCall <= 0 {
		cfg.DeepCostPerCall = DefaultConfig().DeepCostPerCall
	}
	return &Router{cfg: cfg}
}

// Route chooses the tier for a task descriptor.
func (r *Router) Route(task TaskDescriptor) Tier {
	if task.NeedsReasoning {
		return TierDeep
	}
	switch task.Kind {
	case TaskSynthesis, TaskEnrichment:
		return TierDeep
	}
	if task.InputSize > r.cfg.MaxCheapInput {
		return TierDeep
	}
	return TierCheap
}

// Record accounts one completed call.
func (r *Router) Record(t Tier, tokens int, cost float64) {
	switch t {
	case TierDeep:
		r.deepCalls.Add(1)
	default:
		r.cheapCalls.Add(1)
	}
	r.tokens.Add(int64(tokens))
	r.costMicro.Add(int64(cost * 1e6))
}

// Stats summarizes routing effectiveness.
type Stats struct {
	CheapCalls   int64   `json:"cheap_calls"`
	DeepCalls    int64   `json:"deep_calls"`
	CheapPct     float64 `json:"cheap_pct"`
	Tokens       int64   `json:"tokens"`
	Cost         float64 `json:"cost"`
	EstCostSaved float64 `json:"estimated_cost_saved"`
}

// Stats returns current counters. Estimated saving compares actual
// spend against routing every call to the deep tier.
func (r *Router) Stats() Stats {
	cheap := r.cheapCalls.Load()
	deep := r.deepCalls.Load()
	cost := float64(r.costMicro.Load()) / 1e6

	s := Stats{
		CheapCalls: cheap,
		DeepCalls:  deep,
		Tokens:     r.tokens.Load(),
		Cost:       cost,
	}
	total := cheap + deep
	if total > 0 {
		s.CheapPct = float64(cheap) / float64(total)
	}
	alwaysDeep := float64(total) * r.cfg.DeepCostPerCall
	if saved := alwaysDeep - cost; saved > 0 {
		s.EstCostSaved = saved
	}
	return s
}

// ResetStats clears counters.
func (r *Router) ResetStats() {
	r.cheapCalls.Store(0)
	r.deepCalls.Store(0)
	r.tokens.Store(0)
	r.costMicro.Store(0)
}
