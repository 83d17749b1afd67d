package specialist

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/verdictlabs/verdict/internal/core"
	"github.com/verdictlabs/verdict/internal/indicator"
)

// Technical is a pure local specialist: moving averages, RSI, ATR and
// a support/resistance band computed from price history. No external
// calls.
type Technical struct {
	logger *zap.Logger
}

// NewTechnical creates the technical specialist.
func NewTechnical(logger *zap.Logger) *Technical {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Technical{logger: logger}
}

// Kind returns the specialist kind.
func (t *Technical) Kind() core.SpecialistKind {
	return core.KindTechnical
}

// Analyze computes indicators and derives direction plus entry, target
// and stop levels.
func (t *Technical) Analyze(ctx context.Context, sc Context) (*core.SpecialistResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(sc.History) < 30 {
		return nil, core.WrapError(core.ErrNoData,
			fmt.Errorf("need at least 30 bars, have %d", len(sc.History)))
	}

	closes := indicator.Closes(sc.History)
	price := closes[len(closes)-1]
	if sc.Quote != nil && sc.Quote.Price > 0 {
		price = sc.Quote.Price
	}

	sma20s := indicator.SMA(closes, 20)
	sma20 := sma20s[len(sma20s)-1]
	sma50 := sma20
	if s := indicator.SMA(closes, 50); len(s) > 0 {
		sma50 = s[len(s)-1]
	}
	rsi := indicator.RSI(closes, 14)
	atr := indicator.ATR(sc.History, 14)
	vol := indicator.Volatility(closes)

	support, resistance := band(sc.History, 20)

	action, confidence := t.classify(price, sma20, sma50, rsi)

	entry := price
	var target, stop float64
	if action.IsSellSide() {
		target = support
		stop = entry + 2*atr
	} else {
		target = resistance
		stop = entry - 2*atr
	}

	return &core.SpecialistResult{
		Kind:       core.KindTechnical,
		Symbol:     sc.Symbol,
		Action:     action,
		Confidence: confidence,
		Reasoning: fmt.Sprintf("price %.2f vs SMA20 %.2f / SMA50 %.2f, RSI %.1f, ATR %.2f",
			price, sma20, sma50, rsi, atr),
		Payload: map[string]any{
			"entry_price":  entry,
			"target_price": target,
			"stop_loss":    stop,
			"atr":          atr,
			"rsi":          rsi,
			"sma_20":       sma20,
			"sma_50":       sma50,
			"support":      support,
			"resistance":   resistance,
			"volatility":   vol,
		},
		ProducedAt: time.Now(),
	}, nil
}

// classify maps indicator alignment to a directional signal.
func (t *Technical) classify(price, sma20, sma50, rsi float64) (core.Action, float64) {
	score := 0.0
	if price > sma20 {
		score += 1
	} else {
		score -= 1
	}
	if sma20 > sma50 {
		score += 1
	} else {
		score -= 1
	}
	switch {
	case rsi < 30:
		score += 1.5 // oversold
	case rsi > 70:
		score -= 1.5 // overbought
	}

	confidence := 0.5 + 0.1*absf(score)
	if confidence > 0.9 {
		confidence = 0.9
	}

	switch {
	case score >= 3:
		return core.ActionStrongBuy, confidence
	case score >= 1.5:
		return core.ActionBuy, confidence
	case score <= -3:
		return core.ActionStrongSell, confidence
	case score <= -1.5:
		return core.ActionSell, confidence
	default:
		return core.ActionHold, 0.5
	}
}

// band returns the recent low/high range as support and resistance.
func band(bars []core.OHLCV, lookback int) (support, resistance float64) {
	if len(bars) < lookback {
		lookback = len(bars)
	}
	window := bars[len(bars)-lookback:]
	support = window[0].Low
	resistance = window[0].High
	for _, b := range window[1:] {
		if b.Low < support {
			support = b.Low
		}
		if b.High > resistance {
			resistance = b.High
		}
	}
	return support, resistance
}

func absf(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
