// Package validate enforces numeric and logical invariants on a fused
// recommendation before it can be finalized, auto-correcting the
// malformations that have a known-safe fallback.
package validate

import (
	"fmt"
	"math"

	"github.com/verdictlabs/verdict/internal/core"
)

const (
	// atrMultiple is k in: stop = entry - k * ATR.
	atrMultiple = 2.0
	// atrTolerance is the relative tolerance for the stop-vs-ATR check.
	atrTolerance = 0.05
	// pctStop is the stop distance when no ATR is available.
	pctStop = 0.02
	// unitConfusionRatio flags a stop that is implausibly far from the
	// entry, signaling a price-vs-percentage unit mixup.
	unitConfusionRatio = 10.0
)

// Validator runs the ordered check battery. Pure and deterministic:
// identical inputs always produce identical outcomes, no external
// calls.
type Validator struct{}

// New creates a validator.
func New() *Validator {
	return &Validator{}
}

// Validate checks rec against the invariants, correcting what it
// safely can. Corrections mutate rec in place and are reported in
// CorrectedValues; IsValid is true only when no hard errors remain
// after correction.
func (v *Validator) Validate(rec *core.ConsensusRecommendation, currentPrice, atr float64) core.ValidationOutcome {
	out := core.ValidationOutcome{
		CorrectedValues: make(map[string]float64),
	}

	// Range plausibility first: everything later divides by or
	// compares against these fields.
	if rec.Confidence < 0 || rec.Confidence > 1 {
		out.Errors = append(out.Errors,
			fmt.Sprintf("confidence %.4f outside [0,1]", rec.Confidence))
	}
	if rec.TargetPrice <= 0 {
		out.Errors = append(out.Errors, fmt.Sprintf("target_price must be positive, got %.4f", rec.TargetPrice))
	}
	if rec.EntryPrice <= 0 {
		// Nothing downstream is checkable without an entry.
		out.Errors = append(out.Errors, fmt.Sprintf("entry_price must be positive, got %.4f", rec.EntryPrice))
		return out
	}

	// Stop-loss sanity: a wildly out-of-band stop is a recoverable
	// unit confusion; rebuild it from ATR or the percentage fallback.
	if v.stopImplausible(rec) {
		original := rec.StopLoss
		corrected := fallbackStop(rec.Action, rec.EntryPrice, atr)
		out.Errors = append(out.Errors,
			fmt.Sprintf("stop_loss %.4f implausible against entry %.4f", original, rec.EntryPrice))
		rec.StopLoss = corrected
		out.CorrectedValues["stop_loss"] = corrected
	} else if atr > 0 {
		expected := fallbackStop(rec.Action, rec.EntryPrice, atr)
		if math.Abs(rec.StopLoss-expected) > atrTolerance*rec.EntryPrice {
			out.Warnings = append(out.Warnings,
				fmt.Sprintf("stop_loss %.4f deviates from ATR-derived %.4f", rec.StopLoss, expected))
		}
	}

	// Price ordering.
	switch {
	case rec.Action.IsBuySide():
		if !(rec.StopLoss < rec.EntryPrice && rec.EntryPrice < rec.TargetPrice) {
			out.Errors = append(out.Errors,
				fmt.Sprintf("buy ordering violated: stop %.4f < entry %.4f < target %.4f required",
					rec.StopLoss, rec.EntryPrice, rec.TargetPrice))
		}
	case rec.Action.IsSellSide():
		if !(rec.TargetPrice < rec.EntryPrice && rec.EntryPrice < rec.StopLoss) {
			out.Errors = append(out.Errors,
				fmt.Sprintf("sell ordering violated: target %.4f < entry %.4f < stop %.4f required",
					rec.TargetPrice, rec.EntryPrice, rec.StopLoss))
		}
	}

	// Risk/reward consistency.
	if rec.Action.IsBuySide() || rec.Action.IsSellSide() {
		rr, ok := riskReward(rec)
		if !ok || rr < 0 {
			out.Errors = append(out.Errors, "risk/reward undefined or negative")
		} else if rr < 1 {
			out.Warnings = append(out.Warnings,
				fmt.Sprintf("risk/reward %.2f below 1", rr))
		}
	}

	// Action/target consistency against the live price.
	if currentPrice > 0 {
		if rec.Action.IsBuySide() && rec.TargetPrice <= currentPrice {
			out.Errors = append(out.Errors,
				fmt.Sprintf("buy target %.4f not above current price %.4f", rec.TargetPrice, currentPrice))
		}
		if rec.Action.IsSellSide() && rec.TargetPrice >= currentPrice {
			out.Errors = append(out.Errors,
				fmt.Sprintf("sell target %.4f not below current price %.4f", rec.TargetPrice, currentPrice))
		}
	}

	// Corrections run before the ordering and risk/reward checks, so
	// those already saw the repaired values. The only recorded error a
	// correction repairs is the implausible-stop one itself.
	remaining := len(out.Errors)
	if _, fixed := out.CorrectedValues["stop_loss"]; fixed {
		remaining--
	}
	out.IsValid = remaining == 0
	return out
}

// stopImplausible detects unit confusion: a stop an order of magnitude
// away from the entry, or a sub-dollar stop against a normal-priced
// entry (a percentage written where a price belongs).
func (v *Validator) stopImplausible(rec *core.ConsensusRecommendation) bool {
	if rec.StopLoss <= 0 {
		return true
	}
	if rec.StopLoss >= unitConfusionRatio*rec.EntryPrice {
		return true
	}
	if rec.StopLoss < 1.0 && rec.EntryPrice > 1.0 {
		return true
	}
	return false
}

// fallbackStop rebuilds the stop from ATR when available, else from
// the fixed percentage. Mirrored for sell-side actions.
func fallbackStop(action core.Action, entry, atr float64) float64 {
	if action.IsSellSide() {
		if atr > 0 {
			return entry + atrMultiple*atr
		}
		return entry * (1 + pctStop)
	}
	if atr > 0 {
		return entry - atrMultiple*atr
	}
	return entry * (1 - pctStop)
}

// riskReward computes (target-entry)/(entry-stop) for buys, mirrored
// for sells. ok is false when the denominator is not positive.
func riskReward(rec *core.ConsensusRecommendation) (float64, bool) {
	var reward, risk float64
	if rec.Action.IsSellSide() {
		reward = rec.EntryPrice - rec.TargetPrice
		risk = rec.StopLoss - rec.EntryPrice
	} else {
		reward = rec.TargetPrice - rec.EntryPrice
		risk = rec.EntryPrice - rec.StopLoss
	}
	if risk <= 0 {
		return 0, false
	}
	return reward / risk, true
}
