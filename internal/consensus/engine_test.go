package consensus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdictlabs/verdict/internal/config"
	"github.com/verdictlabs/verdict/internal/core"
	"github.com/verdictlabs/verdict/internal/lineage"
	"github.com/verdictlabs/verdict/internal/marketdata"
	"github.com/verdictlabs/verdict/internal/specialist"
)

// scripted is a specialist whose behavior is fully controlled by the
// test: it can fail n times before succeeding, or always fail.
type scripted struct {
	kind      core.SpecialistKind
	result    *core.SpecialistResult
	failTimes int
	err       error
	calls     int
}

func (s *scripted) Kind() core.SpecialistKind { return s.kind }

func (s *scripted) Analyze(ctx context.Context, sc specialist.Context) (*core.SpecialistResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if s.calls <= s.failTimes {
		return nil, errors.New("transient failure")
	}
	r := *s.result
	r.Symbol = sc.Symbol
	r.ProducedAt = time.Now()
	return &r, nil
}

func result(kind core.SpecialistKind, action core.Action, conf float64, payload map[string]any) *core.SpecialistResult {
	return &core.SpecialistResult{Kind: kind, Action: action, Confidence: conf, Payload: payload}
}

func fastConfig() config.ConsensusConfig {
	cfg := config.Defaults().Consensus
	cfg.SpecialistTimeout = 200 * time.Millisecond
	cfg.InitialBackoff = time.Millisecond
	return cfg
}

func marketWith(symbol string, price float64) *marketdata.Static {
	m := marketdata.NewStatic()
	m.SetQuote(core.Quote{Symbol: symbol, Price: price, Source: "static", Time: time.Now()})
	return m
}

func task(symbols ...string) core.AnalysisTask {
	return core.AnalysisTask{ID: "task-1", Symbols: symbols, CreatedAt: time.Now()}
}

func TestRun_QuorumFailure_SingleNonCoreResponder(t *testing.T) {
	reg := specialist.NewRegistry()
	reg.Register(&scripted{kind: core.KindTechnical, err: errors.New("down")})
	reg.Register(&scripted{kind: core.KindFundamental, err: errors.New("down")})
	reg.Register(&scripted{kind: core.KindNews, result: result(core.KindNews, core.ActionBuy, 0.9, nil)})

	e := New(fastConfig(), reg, marketWith("AAPL", 250), nil, nil, nil, nil, nil)

	_, _, err := e.Run(context.Background(), task("AAPL"))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInsufficientQuorum,
		"one responder, and not technical/fundamental, must breach quorum")
}

func TestRun_QuorumMet_TwoIncludingFundamental(t *testing.T) {
	reg := specialist.NewRegistry()
	reg.Register(&scripted{kind: core.KindTechnical, err: errors.New("down")})
	reg.Register(&scripted{kind: core.KindFundamental, result: result(core.KindFundamental, core.ActionBuy, 0.7,
		map[string]any{"fair_value_low": 240.0, "fair_value_high": 290.0})})
	reg.Register(&scripted{kind: core.KindSentiment, result: result(core.KindSentiment, core.ActionBuy, 0.6,
		map[string]any{"score": 0.5})})

	e := New(fastConfig(), reg, marketWith("AAPL", 250), nil, nil, nil, nil, nil)

	recs, _, err := e.Run(context.Background(), task("AAPL"))
	require.NoError(t, err)
	require.Len(t, recs, 1)

	rec := recs[0]
	assert.Equal(t, "AAPL", rec.Symbol)
	assert.True(t, rec.Action.IsBuySide())
	assert.Greater(t, rec.EntryPrice, 0.0)
	assert.Greater(t, rec.TargetPrice, rec.EntryPrice)
	assert.Less(t, rec.StopLoss, rec.EntryPrice)
}

func TestRun_RetryThenSuccess(t *testing.T) {
	tech := &scripted{
		kind:      core.KindTechnical,
		failTimes: 2,
		result: result(core.KindTechnical, core.ActionBuy, 0.8,
			map[string]any{"entry_price": 250.0, "target_price": 280.0, "stop_loss": 235.0}),
	}
	fund := &scripted{kind: core.KindFundamental, result: result(core.KindFundamental, core.ActionBuy, 0.7, nil)}

	reg := specialist.NewRegistry()
	reg.Register(tech)
	reg.Register(fund)

	e := New(fastConfig(), reg, marketWith("AAPL", 250), nil, nil, nil, nil, nil)

	recs, _, err := e.Run(context.Background(), task("AAPL"))
	require.NoError(t, err)
	assert.Equal(t, 3, tech.calls, "two failures then success within the retry budget")
	assert.Equal(t, 250.0, recs[0].EntryPrice, "technical levels survive the retries")
}

func TestRun_ExhaustedRetriesBecomesAbsentNotFatal(t *testing.T) {
	news := &scripted{kind: core.KindNews, err: errors.New("search provider down")}
	tech := &scripted{kind: core.KindTechnical, result: result(core.KindTechnical, core.ActionBuy, 0.8,
		map[string]any{"entry_price": 250.0, "target_price": 280.0, "stop_loss": 235.0})}
	fund := &scripted{kind: core.KindFundamental, result: result(core.KindFundamental, core.ActionHold, 0.5, nil)}

	reg := specialist.NewRegistry()
	reg.Register(news)
	reg.Register(tech)
	reg.Register(fund)

	cfg := fastConfig()
	cfg.MaxRetries = 2
	e := New(cfg, reg, marketWith("AAPL", 250), nil, nil, nil, nil, nil)

	recs, _, err := e.Run(context.Background(), task("AAPL"))
	require.NoError(t, err, "an absent news specialist must not fail the task")
	require.Len(t, recs, 1)
	assert.Equal(t, 3, news.calls, "initial call plus two retries")

	for _, c := range recs[0].Breakdown.Contributions {
		assert.NotEqual(t, core.KindNews, c.Kind, "absent specialist must not appear in the breakdown")
	}
}

func TestRun_BlendRatioInBreakdown(t *testing.T) {
	reg := specialist.NewRegistry()
	reg.Register(&scripted{kind: core.KindTechnical, result: result(core.KindTechnical, core.ActionBuy, 0.8,
		map[string]any{"entry_price": 250.0, "target_price": 280.0, "stop_loss": 235.0})})
	reg.Register(&scripted{kind: core.KindFundamental, result: result(core.KindFundamental, core.ActionBuy, 0.7, nil)})
	reg.Register(&scripted{kind: core.KindSentiment, result: result(core.KindSentiment, core.ActionSell, 0.6,
		map[string]any{"score": -0.4})})

	e := New(fastConfig(), reg, marketWith("AAPL", 250), nil, nil, nil, nil, nil)

	recs, _, err := e.Run(context.Background(), task("AAPL"))
	require.NoError(t, err)

	b := recs[0].Breakdown
	assert.InDelta(t, 0.70, b.BaseWeight, 1e-9)
	assert.InDelta(t, 0.30, b.EnrichmentWeight, 1e-9)
	assert.InDelta(t, b.BaseScore*0.70+b.EnrichmentScore*0.30, b.FinalScore, 1e-9,
		"final score honors the 70/30 blend")
}

func TestRun_NoSymbols(t *testing.T) {
	e := New(fastConfig(), specialist.NewRegistry(), nil, nil, nil, nil, nil, nil)
	_, _, err := e.Run(context.Background(), core.AnalysisTask{ID: "t"})
	assert.ErrorIs(t, err, core.ErrNoSymbols)
}

func TestRun_WritesLineage(t *testing.T) {
	reg := specialist.NewRegistry()
	reg.Register(&scripted{kind: core.KindTechnical, result: result(core.KindTechnical, core.ActionBuy, 0.8,
		map[string]any{"entry_price": 250.0, "target_price": 280.0, "stop_loss": 235.0})})
	reg.Register(&scripted{kind: core.KindFundamental, result: result(core.KindFundamental, core.ActionBuy, 0.7, nil)})

	tracker := lineage.NewTracker()
	e := New(fastConfig(), reg, marketWith("AAPL", 250), nil, nil, tracker, nil, nil)

	_, _, err := e.Run(context.Background(), task("AAPL"))
	require.NoError(t, err)

	for _, field := range []string{"market_price", "entry_price", "target_price", "stop_loss", "action"} {
		_, ok := tracker.Get(field)
		assert.True(t, ok, "lineage record missing for %s", field)
	}

	r, _ := tracker.Get("entry_price")
	assert.Equal(t, "technical", r.Source)
}

func TestRun_LineageIsolatedPerSymbol(t *testing.T) {
	// Quote only for AAPL: its run records a primary-tier market price,
	// while MSFT's degrades to a fallback record at 0.3 confidence. Each
	// symbol's summary must reflect only its own records, not whichever
	// symbol ran last.
	reg := specialist.NewRegistry()
	reg.Register(&scripted{kind: core.KindTechnical, result: result(core.KindTechnical, core.ActionBuy, 0.8,
		map[string]any{"entry_price": 250.0, "target_price": 280.0, "stop_loss": 235.0})})
	reg.Register(&scripted{kind: core.KindFundamental, result: result(core.KindFundamental, core.ActionBuy, 0.7, nil)})

	tracker := lineage.NewTracker()
	e := New(fastConfig(), reg, marketWith("AAPL", 250), nil, nil, tracker, nil, nil)

	_, summaries, err := e.Run(context.Background(), task("AAPL", "MSFT"))
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	aapl := summaries["AAPL"]
	assert.Equal(t, 5, aapl.Fields)
	assert.Zero(t, aapl.ByTier[lineage.TierFallback],
		"AAPL ran first with a live quote; a fallback record here belongs to MSFT")
	assert.Greater(t, aapl.MinConfidence, 0.3)

	msft := summaries["MSFT"]
	assert.Equal(t, 1, msft.ByTier[lineage.TierFallback])
	assert.InDelta(t, 0.3, msft.MinConfidence, 1e-9)

	// A second request starts clean rather than accumulating records.
	_, summaries, err = e.Run(context.Background(), task("AAPL"))
	require.NoError(t, err)
	assert.Equal(t, 5, summaries["AAPL"].Fields)
}

func TestRun_MarketDataFailureDegrades(t *testing.T) {
	// Empty static provider: quote and history both fail. Specialists
	// that need no market data still respond and the task completes.
	reg := specialist.NewRegistry()
	reg.Register(&scripted{kind: core.KindTechnical, result: result(core.KindTechnical, core.ActionBuy, 0.8,
		map[string]any{"entry_price": 250.0, "target_price": 280.0, "stop_loss": 235.0})})
	reg.Register(&scripted{kind: core.KindFundamental, result: result(core.KindFundamental, core.ActionBuy, 0.7, nil)})

	tracker := lineage.NewTracker()
	e := New(fastConfig(), reg, marketdata.NewStatic(), nil, nil, tracker, nil, nil)

	recs, _, err := e.Run(context.Background(), task("AAPL"))
	require.NoError(t, err, "market-data failure must degrade, not abort")
	require.Len(t, recs, 1)

	r, ok := tracker.Get("market_price")
	require.True(t, ok)
	assert.Equal(t, lineage.TierFallback, r.Tier, "failed quote degrades to fallback-tier lineage")
}
