package specialist

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdictlabs/verdict/internal/core"
	"github.com/verdictlabs/verdict/internal/llm"
	"github.com/verdictlabs/verdict/internal/tier"
)

type scriptedLLM struct {
	content string
	lastReq llm.ChatRequest
}

func (m *scriptedLLM) Name() string { return "scripted" }

func (m *scriptedLLM) Chat(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	m.lastReq = req
	return &llm.ChatResponse{
		Content: m.content,
		Usage:   llm.Usage{InputTokens: 100, OutputTokens: 50},
	}, nil
}

func TestLLMSpecialist_ParsesJSONVerdict(t *testing.T) {
	mock := &scriptedLLM{content: `{"action":"BUY","confidence":0.72,"score":0.4,"summary":"coverage is constructive"}`}
	router := tier.New(tier.DefaultConfig())
	s := NewLLM(core.KindSentiment, mock, router, nil, nil)

	res, err := s.Analyze(context.Background(), Context{
		Symbol: "AAPL",
		Quote:  &core.Quote{Symbol: "AAPL", Price: 250, PrevClose: 248},
	})
	require.NoError(t, err)

	assert.Equal(t, core.KindSentiment, res.Kind)
	assert.Equal(t, core.ActionBuy, res.Action)
	assert.InDelta(t, 0.72, res.Confidence, 1e-9)
	assert.InDelta(t, 0.4, core.NumField(res.Payload, "score", 0), 1e-9)

	// Extraction work goes to the cheap tier.
	assert.Equal(t, tier.TierCheap, mock.lastReq.Tier)
	stats := router.Stats()
	assert.Equal(t, int64(1), stats.CheapCalls)
}

func TestLLMSpecialist_TextFallback(t *testing.T) {
	mock := &scriptedLLM{content: "I would SELL this name given deteriorating coverage."}
	s := NewLLM(core.KindNews, mock, nil, nil, nil)

	res, err := s.Analyze(context.Background(), Context{Symbol: "XOM"})
	require.NoError(t, err)
	assert.Equal(t, core.ActionSell, res.Action)
	assert.Less(t, res.Confidence, 0.5, "text fallback carries low confidence")
}

func TestLLMSpecialist_ConfidenceClamped(t *testing.T) {
	mock := &scriptedLLM{content: `{"action":"BUY","confidence":1.7,"score":3.0,"summary":"overexcited model"}`}
	s := NewLLM(core.KindMacro, mock, nil, nil, nil)

	res, err := s.Analyze(context.Background(), Context{Symbol: "SPY"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Confidence)
	assert.Equal(t, 1.0, core.NumField(res.Payload, "score", 0))
}

func TestParseVerdict_EmptyResponse(t *testing.T) {
	_, err := parseVerdict("")
	assert.Error(t, err)
}

func TestNormalizeAction(t *testing.T) {
	tests := []struct {
		in   string
		want core.Action
	}{
		{"BUY", core.ActionBuy},
		{" strong buy ", core.ActionStrongBuy},
		{"STRONG_SELL", core.ActionStrongSell},
		{"sell", core.ActionSell},
		{"garbage", core.ActionHold},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeAction(tt.in), "input %q", tt.in)
	}
}
