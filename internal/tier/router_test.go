package tier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouter_Route(t *testing.T) {
	r := New(DefaultConfig())

	tests := []struct {
		name string
		task TaskDescriptor
		want Tier
	}{
		{"classification is cheap", TaskDescriptor{Kind: TaskClassification, InputSize: 500}, TierCheap},
		{"extraction is cheap", TaskDescriptor{Kind: TaskExtraction, InputSize: 2000}, TierCheap},
		{"synthesis is deep", TaskDescriptor{Kind: TaskSynthesis, InputSize: 500}, TierDeep},
		{"enrichment is deep", TaskDescriptor{Kind: TaskEnrichment, InputSize: 500}, TierDeep},
		{"reasoning forces deep", TaskDescriptor{Kind: TaskClassification, NeedsReasoning: true}, TierDeep},
		{"oversized input forces deep", TaskDescriptor{Kind: TaskExtraction, InputSize: 50000}, TierDeep},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Route(tt.task))
		})
	}
}

func TestRouter_RouteIsPure(t *testing.T) {
	r := New(DefaultConfig())
	task := TaskDescriptor{Kind: TaskSummarization, InputSize: 900}

	first := r.Route(task)
	for i := 0; i < 100; i++ {
		r.Record(TierDeep, 1000, 0.09)
		assert.Equal(t, first, r.Route(task), "routing must not depend on recorded load")
	}
}

func TestRouter_Stats(t *testing.T) {
	r := New(Config{MaxCheapInput: 1000, DeepCostPerCall: 0.10})

	r.Record(TierCheap, 100, 0.01)
	r.Record(TierCheap, 100, 0.01)
	r.Record(TierCheap, 100, 0.01)
	r.Record(TierDeep, 1000, 0.10)

	s := r.Stats()
	assert.Equal(t, int64(3), s.CheapCalls)
	assert.Equal(t, int64(1), s.DeepCalls)
	assert.InDelta(t, 0.75, s.CheapPct, 1e-9)
	assert.Equal(t, int64(1300), s.Tokens)
	assert.InDelta(t, 0.13, s.Cost, 1e-6)
	// Always-deep would have cost 4 * 0.10 = 0.40.
	assert.InDelta(t, 0.27, s.EstCostSaved, 1e-6)

	r.ResetStats()
	s = r.Stats()
	assert.Zero(t, s.CheapCalls)
	assert.Zero(t, s.DeepCalls)
	assert.Zero(t, s.Cost)
}
