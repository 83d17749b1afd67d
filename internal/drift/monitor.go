// Package drift re-evaluates completed analyses against fresh market
// data on a fixed cycle and raises alerts when a recommendation's
// assumptions have materially changed.
package drift

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/verdictlabs/verdict/internal/alert"
	"github.com/verdictlabs/verdict/internal/config"
	"github.com/verdictlabs/verdict/internal/core"
	"github.com/verdictlabs/verdict/internal/marketdata"
	"github.com/verdictlabs/verdict/internal/metrics"
)

// State of a monitored analysis.
type State string

const (
	StateActive  State = "ACTIVE"
	StateDrifted State = "DRIFTED"
	StateStale   State = "STALE"
)

// SentimentFn probes a lightweight sentiment score in [-1, 1] for a
// symbol. Optional; a nil probe disables the sentiment check.
type SentimentFn func(ctx context.Context, symbol string) (float64, error)

// watch is one analysis under observation.
type watch struct {
	rec       *core.ConsensusRecommendation
	sentiment float64
	state     State
	expiresAt time.Time
}

// Monitor runs the periodic drift check over watched analyses. One
// background loop per process; cycles never overlap.
type Monitor struct {
	cfg       config.DriftConfig
	market    marketdata.Provider
	sentiment SentimentFn
	alerts    *alert.Registry
	metrics   *metrics.Registry
	logger    *zap.Logger

	cron *cron.Cron

	mu      sync.Mutex
	watches map[string]*watch

	// inFlight guarantees the single-cycle invariant even if a check
	// outlasts the schedule interval.
	inFlight sync.Mutex
}

// New creates a monitor. alerts may be nil when no sink is configured.
func New(cfg config.DriftConfig, market marketdata.Provider, sentiment SentimentFn, alerts *alert.Registry, metricsReg *metrics.Registry, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if alerts == nil {
		alerts = alert.NewRegistry()
	}
	return &Monitor{
		cfg:       cfg,
		market:    market,
		sentiment: sentiment,
		alerts:    alerts,
		metrics:   metricsReg,
		logger:    logger,
		watches:   make(map[string]*watch),
	}
}

// Watch registers a completed analysis for monitoring until the
// configured horizon elapses. sentimentScore is the enrichment score
// recorded at completion time.
func (m *Monitor) Watch(rec *core.ConsensusRecommendation, sentimentScore float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watches[rec.TaskID+"/"+rec.Symbol] = &watch{
		rec:       rec,
		sentiment: sentimentScore,
		state:     StateActive,
		expiresAt: time.Now().Add(m.cfg.Horizon),
	}
}

// State reports the current state of a watched analysis.
func (m *Monitor) State(taskID, symbol string) (State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.watches[taskID+"/"+symbol]
	if !ok {
		return "", false
	}
	return w.state, true
}

// Start schedules the check cycle and begins running it. The loop is
// stopped with Stop; Start after Stop is not supported.
func (m *Monitor) Start(ctx context.Context) error {
	if m.cron != nil {
		return fmt.Errorf("drift monitor already started")
	}
	m.cron = cron.New()
	_, err := m.cron.AddFunc(fmt.Sprintf("@every %s", m.cfg.CheckInterval), func() {
		m.CheckAll(ctx)
	})
	if err != nil {
		return fmt.Errorf("schedule drift check: %w", err)
	}
	m.cron.Start()
	m.logger.Info("drift monitor started", zap.Duration("interval", m.cfg.CheckInterval))
	return nil
}

// Stop halts the schedule and waits for an in-flight cycle to finish.
func (m *Monitor) Stop() {
	if m.cron == nil {
		return
	}
	<-m.cron.Stop().Done()
	m.inFlight.Lock()
	m.inFlight.Unlock()
	m.logger.Info("drift monitor stopped")
}

// CheckAll runs one cycle over every active watch. Safe to call
// directly; concurrent calls coalesce to one running cycle.
func (m *Monitor) CheckAll(ctx context.Context) {
	if !m.inFlight.TryLock() {
		return
	}
	defer m.inFlight.Unlock()

	m.metrics.DriftCheck()
	now := time.Now()

	for _, key := range m.activeKeys() {
		m.mu.Lock()
		w, ok := m.watches[key]
		m.mu.Unlock()
		if !ok {
			continue
		}

		if now.After(w.expiresAt) {
			m.mu.Lock()
			w.state = StateStale
			delete(m.watches, key)
			m.mu.Unlock()
			m.logger.Debug("analysis past horizon, dropped",
				zap.String("symbol", w.rec.Symbol), zap.String("task_id", w.rec.TaskID))
			continue
		}

		// No shared lock is held across the fetches below.
		drifted, severity, reason, err := m.checkOne(ctx, w)
		if err != nil {
			// A failed check is not drift; try again next cycle.
			m.logger.Warn("drift check failed",
				zap.String("symbol", w.rec.Symbol), zap.Error(err))
			continue
		}
		if !drifted {
			continue
		}

		m.mu.Lock()
		w.state = StateDrifted
		m.mu.Unlock()
		m.emit(w, severity, reason)
	}
}

func (m *Monitor) activeKeys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.watches))
	for k, w := range m.watches {
		if w.state == StateActive {
			keys = append(keys, k)
		}
	}
	return keys
}

// checkOne compares fresh price and sentiment against the values
// recorded at completion.
func (m *Monitor) checkOne(ctx context.Context, w *watch) (bool, core.Severity, string, error) {
	quote, err := m.market.Quote(ctx, w.rec.Symbol)
	if err != nil {
		return false, "", "", err
	}

	rec := w.rec
	price := quote.Price

	// Price outside the stop/target band invalidates the setup.
	lo, hi := band(rec)
	if lo > 0 && price < lo {
		return true, priceSeverity(price, lo, rec.EntryPrice),
			fmt.Sprintf("price %.2f breached lower band %.2f", price, lo), nil
	}
	if hi > 0 && price > hi {
		return true, priceSeverity(price, hi, rec.EntryPrice),
			fmt.Sprintf("price %.2f breached upper band %.2f", price, hi), nil
	}

	if m.sentiment != nil {
		fresh, err := m.sentiment(ctx, rec.Symbol)
		if err != nil {
			return false, "", "", err
		}
		delta := fresh - w.sentiment
		if flipped(w.sentiment, fresh) && math.Abs(delta) >= m.cfg.SentimentFlipDelta {
			sev := core.SeverityLow
			if math.Abs(delta) >= 2*m.cfg.SentimentFlipDelta {
				sev = core.SeverityMedium
			}
			return true, sev,
				fmt.Sprintf("sentiment flipped from %.2f to %.2f", w.sentiment, fresh), nil
		}
	}

	return false, "", "", nil
}

func (m *Monitor) emit(w *watch, severity core.Severity, reason string) {
	a := core.DriftAlert{
		ID:          uuid.NewString(),
		AnalysisID:  w.rec.TaskID,
		Symbol:      w.rec.Symbol,
		Severity:    severity,
		Reason:      reason,
		TriggeredAt: time.Now(),
	}
	m.metrics.DriftAlert(string(severity))
	for name, err := range m.alerts.NotifyAll(a) {
		m.logger.Error("alert sink failed", zap.String("sink", name), zap.Error(err))
	}
}

// band returns the [low, high] price band the recommendation assumed.
// For buys that is [stop, target]; mirrored for sells.
func band(rec *core.ConsensusRecommendation) (float64, float64) {
	if rec.Action.IsSellSide() {
		return rec.TargetPrice, rec.StopLoss
	}
	return rec.StopLoss, rec.TargetPrice
}

// priceSeverity grades a band breach by how far past the edge the
// price moved, relative to the entry.
func priceSeverity(price, edge, entry float64) core.Severity {
	if entry <= 0 {
		return core.SeverityMedium
	}
	overshoot := math.Abs(price-edge) / entry
	switch {
	case overshoot >= 0.05:
		return core.SeverityHigh
	case overshoot >= 0.01:
		return core.SeverityMedium
	default:
		return core.SeverityLow
	}
}

func flipped(old, fresh float64) bool {
	return (old > 0 && fresh < 0) || (old < 0 && fresh > 0)
}
