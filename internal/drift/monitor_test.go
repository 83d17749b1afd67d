package drift

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdictlabs/verdict/internal/alert"
	"github.com/verdictlabs/verdict/internal/config"
	"github.com/verdictlabs/verdict/internal/core"
	"github.com/verdictlabs/verdict/internal/marketdata"
)

type captureSink struct {
	mu     sync.Mutex
	alerts []core.DriftAlert
}

func (c *captureSink) Name() string { return "capture" }

func (c *captureSink) Send(a core.DriftAlert) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alerts = append(c.alerts, a)
	return nil
}

func (c *captureSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.alerts)
}

func (c *captureSink) last() core.DriftAlert {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alerts[len(c.alerts)-1]
}

func testMonitor(t *testing.T, sentiment SentimentFn) (*Monitor, *marketdata.Static, *captureSink) {
	t.Helper()
	market := marketdata.NewStatic()
	sink := &captureSink{}
	alerts := alert.NewRegistry()
	require.NoError(t, alerts.Register(sink))
	cfg := config.DriftConfig{
		Enabled:            true,
		CheckInterval:      5 * time.Minute,
		Horizon:            24 * time.Hour,
		SentimentFlipDelta: 0.2,
	}
	return New(cfg, market, sentiment, alerts, nil, nil), market, sink
}

func watchedBuy() *core.ConsensusRecommendation {
	return &core.ConsensusRecommendation{
		TaskID:      "task-1",
		Symbol:      "AAPL",
		Action:      core.ActionBuy,
		EntryPrice:  150,
		TargetPrice: 165,
		StopLoss:    145,
	}
}

func TestCheckAll_UnchangedEmitsNoAlert(t *testing.T) {
	m, market, sink := testMonitor(t, nil)
	market.SetQuote(core.Quote{Symbol: "AAPL", Price: 151})
	m.Watch(watchedBuy(), 0.3)

	m.CheckAll(context.Background())
	m.CheckAll(context.Background())

	assert.Equal(t, 0, sink.count())
	state, ok := m.State("task-1", "AAPL")
	require.True(t, ok)
	assert.Equal(t, StateActive, state)
}

func TestCheckAll_StopBreachDrifts(t *testing.T) {
	m, market, sink := testMonitor(t, nil)
	// Well below the stop: severity scales with the overshoot.
	market.SetQuote(core.Quote{Symbol: "AAPL", Price: 130})
	m.Watch(watchedBuy(), 0)

	m.CheckAll(context.Background())

	require.Equal(t, 1, sink.count())
	a := sink.last()
	assert.Equal(t, "task-1", a.AnalysisID)
	assert.Equal(t, core.SeverityHigh, a.Severity)
	assert.Contains(t, a.Reason, "lower band")

	state, ok := m.State("task-1", "AAPL")
	require.True(t, ok)
	assert.Equal(t, StateDrifted, state)
}

func TestCheckAll_DriftedIsNotRechecked(t *testing.T) {
	m, market, sink := testMonitor(t, nil)
	market.SetQuote(core.Quote{Symbol: "AAPL", Price: 130})
	m.Watch(watchedBuy(), 0)

	m.CheckAll(context.Background())
	m.CheckAll(context.Background())

	assert.Equal(t, 1, sink.count(), "a drifted analysis alerts once")
}

func TestCheckAll_SentimentFlip(t *testing.T) {
	fresh := -0.4
	m, market, sink := testMonitor(t, func(context.Context, string) (float64, error) {
		return fresh, nil
	})
	market.SetQuote(core.Quote{Symbol: "AAPL", Price: 151})
	m.Watch(watchedBuy(), 0.3)

	m.CheckAll(context.Background())

	require.Equal(t, 1, sink.count())
	a := sink.last()
	assert.Contains(t, a.Reason, "sentiment flipped")
	assert.Equal(t, core.SeverityMedium, a.Severity)
}

func TestCheckAll_SmallSentimentWobbleIgnored(t *testing.T) {
	m, market, sink := testMonitor(t, func(context.Context, string) (float64, error) {
		return -0.05, nil
	})
	market.SetQuote(core.Quote{Symbol: "AAPL", Price: 151})
	m.Watch(watchedBuy(), 0.1)

	m.CheckAll(context.Background())

	assert.Equal(t, 0, sink.count(), "sign flip below the delta threshold is noise")
}

func TestCheckAll_FetchFailureLeavesActive(t *testing.T) {
	m, _, sink := testMonitor(t, nil)
	// No quote seeded: every fetch fails.
	m.Watch(watchedBuy(), 0)

	m.CheckAll(context.Background())

	assert.Equal(t, 0, sink.count())
	state, ok := m.State("task-1", "AAPL")
	require.True(t, ok)
	assert.Equal(t, StateActive, state)
}

func TestCheckAll_PastHorizonDropped(t *testing.T) {
	m, market, sink := testMonitor(t, nil)
	m.cfg.Horizon = -time.Minute
	market.SetQuote(core.Quote{Symbol: "AAPL", Price: 130})
	m.Watch(watchedBuy(), 0)

	m.CheckAll(context.Background())

	assert.Equal(t, 0, sink.count(), "stale analyses are dropped, not alerted")
	_, ok := m.State("task-1", "AAPL")
	assert.False(t, ok)
}

func TestStartStop(t *testing.T) {
	m, market, _ := testMonitor(t, nil)
	market.SetQuote(core.Quote{Symbol: "AAPL", Price: 151})

	require.NoError(t, m.Start(context.Background()))
	assert.Error(t, m.Start(context.Background()), "double start is rejected")
	m.Stop()
}
