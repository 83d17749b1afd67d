package specialist

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/verdictlabs/verdict/internal/core"
	"github.com/verdictlabs/verdict/internal/indicator"
)

// Fundamental derives a valuation band from the quote and long-run
// price history. When the price sits below the band the signal is
// buy-side, above it sell-side.
type Fundamental struct {
	logger *zap.Logger
}

// NewFundamental creates the fundamental specialist.
func NewFundamental(logger *zap.Logger) *Fundamental {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fundamental{logger: logger}
}

// Kind returns the specialist kind.
func (f *Fundamental) Kind() core.SpecialistKind {
	return core.KindFundamental
}

// Analyze estimates a fair-value band and positions the current price
// against it.
func (f *Fundamental) Analyze(ctx context.Context, sc Context) (*core.SpecialistResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if sc.Quote == nil || !sc.Quote.IsValid() {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no quote for %s", sc.Symbol))
	}
	if len(sc.History) < 60 {
		return nil, core.WrapError(core.ErrNoData,
			fmt.Errorf("need at least 60 bars for valuation, have %d", len(sc.History)))
	}

	price := sc.Quote.Price
	closes := indicator.Closes(sc.History)

	// Anchor the band on the long-run mean, widened by realized
	// volatility so choppier names get a wider fair-value range.
	anchorS := indicator.SMA(closes, len(closes))
	anchor := anchorS[0]
	vol := indicator.Volatility(closes)
	spread := anchor * (0.08 + vol/4)

	low := anchor - spread
	high := anchor + spread

	var action core.Action
	var confidence float64
	discount := (anchor - price) / anchor
	switch {
	case price < low:
		action = core.ActionStrongBuy
		confidence = 0.8
	case discount > 0.03:
		action = core.ActionBuy
		confidence = 0.6 + minf(discount, 0.2)
	case price > high:
		action = core.ActionStrongSell
		confidence = 0.8
	case discount < -0.03:
		action = core.ActionSell
		confidence = 0.6 + minf(-discount, 0.2)
	default:
		action = core.ActionHold
		confidence = 0.5
	}

	return &core.SpecialistResult{
		Kind:       core.KindFundamental,
		Symbol:     sc.Symbol,
		Action:     action,
		Confidence: confidence,
		Reasoning: fmt.Sprintf("price %.2f vs fair-value band [%.2f, %.2f] (anchor %.2f)",
			price, low, high, anchor),
		Payload: map[string]any{
			"fair_value_low":  low,
			"fair_value_high": high,
			"anchor":          anchor,
			"discount":        discount,
			"market_cap":      sc.Quote.MarketCap,
		},
		ProducedAt: time.Now(),
	}, nil
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
