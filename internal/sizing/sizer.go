// Package sizing computes trade sizes for a validated recommendation
// under several sizing models and picks one to recommend.
package sizing

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/verdictlabs/verdict/internal/config"
	"github.com/verdictlabs/verdict/internal/core"
)

const (
	// Multiplier band for volatility scaling of the risk fraction.
	minVolMultiplier = 0.25
	maxVolMultiplier = 2.0

	// Assumed hit rate when the caller has no estimate of their own.
	defaultWinRate = 0.55
)

// Sizer computes position sizes. All methods floor to whole shares and
// re-assert that capital at risk never exceeds the configured risk
// fraction of the account after flooring.
type Sizer struct {
	cfg    config.SizingConfig
	logger *zap.Logger
}

// Recommendation bundles every method's result with the selected one.
type Recommendation struct {
	Results     []core.PositionSizeResult `json:"results"`
	Recommended core.SizingMethod         `json:"recommended"`
	RiskReward  float64                   `json:"risk_reward"`
}

// New creates a sizer.
func New(cfg config.SizingConfig, logger *zap.Logger) *Sizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sizer{cfg: cfg, logger: logger}
}

// FixedFractional risks cfg.RiskPct of the account on the distance
// between entry and stop.
func (s *Sizer) FixedFractional(accountValue, entry, stop float64) core.PositionSizeResult {
	return s.fixedFractionalAt(accountValue, entry, stop, s.cfg.RiskPct)
}

func (s *Sizer) fixedFractionalAt(accountValue, entry, stop, riskPct float64) core.PositionSizeResult {
	res := core.PositionSizeResult{Method: core.MethodFixedFractional}
	riskPerShare := math.Abs(entry - stop)
	if accountValue <= 0 || entry <= 0 || riskPerShare == 0 {
		res.Reason = "degenerate inputs: stop equals entry or account/entry not positive"
		return res
	}

	riskBudget := accountValue * riskPct
	shares := int(math.Floor(riskBudget / riskPerShare))
	return s.fill(res, shares, accountValue, entry, riskPerShare, riskBudget)
}

// Kelly sizes from the Kelly fraction f = w - (1-w)/r where w is the
// win rate and r the average win/loss ratio, clamped to
// [0, MaxKellyFraction]. The stop still bounds capital at risk.
func (s *Sizer) Kelly(accountValue, entry, stop, winRate, avgWinLoss float64) core.PositionSizeResult {
	res := core.PositionSizeResult{Method: core.MethodKellyCriterion}
	if accountValue <= 0 || entry <= 0 || avgWinLoss <= 0 {
		res.Reason = "degenerate inputs: need positive account, entry and win/loss ratio"
		return res
	}

	fraction := winRate - (1-winRate)/avgWinLoss
	if fraction < 0 {
		fraction = 0
	}
	if fraction > s.cfg.MaxKellyFraction {
		fraction = s.cfg.MaxKellyFraction
	}
	if fraction == 0 {
		res.Reason = "negative edge: kelly fraction clamped to zero"
		return res
	}

	shares := int(math.Floor(fraction * accountValue / entry))
	riskPerShare := math.Abs(entry - stop)
	riskBudget := accountValue * s.cfg.RiskPct
	if riskPerShare > 0 {
		// The Kelly allocation may imply more loss at the stop than
		// the account's risk budget allows; the budget wins.
		if capped := int(math.Floor(riskBudget / riskPerShare)); shares > capped {
			shares = capped
			res.Reason = "kelly allocation capped by risk budget"
		}
	}
	return s.fill(res, shares, accountValue, entry, riskPerShare, riskBudget)
}

// VolatilityAdjusted scales the risk fraction by target/realized
// volatility, clamped to the multiplier band, then applies the
// fixed-fractional logic.
func (s *Sizer) VolatilityAdjusted(accountValue, entry, stop, volatility float64) core.PositionSizeResult {
	res := core.PositionSizeResult{Method: core.MethodVolatilityAdjusted}
	if volatility <= 0 {
		res.Reason = "volatility not positive, cannot scale risk"
		return res
	}

	multiplier := s.cfg.TargetVolatility / volatility
	if multiplier < minVolMultiplier {
		multiplier = minVolMultiplier
	}
	if multiplier > maxVolMultiplier {
		multiplier = maxVolMultiplier
	}
	out := s.fixedFractionalAt(accountValue, entry, stop, s.cfg.RiskPct*multiplier)
	out.Method = core.MethodVolatilityAdjusted
	return out
}

// Recommend runs every method and selects the one with the highest
// risk-adjusted expected value among those within the max position
// cap. The stop must sit on the losing side of entry for the trade
// direction; a stop on the wrong side is infeasible and sizes to zero
// shares. volatility and winRate default when not positive.
func (s *Sizer) Recommend(action core.Action, accountValue, entry, stop, target, volatility, winRate float64) Recommendation {
	if winRate <= 0 || winRate >= 1 {
		winRate = defaultWinRate
	}

	directionalRisk := entry - stop
	side := "buy"
	if action.IsSellSide() {
		directionalRisk = stop - entry
		side = "sell"
	}
	if directionalRisk <= 0 {
		reason := fmt.Sprintf("stop %.2f on the wrong side of entry %.2f for a %s", stop, entry, side)
		s.logger.Warn("sizing infeasible", zap.String("reason", reason))
		return Recommendation{
			Recommended: core.MethodFixedFractional,
			Results: []core.PositionSizeResult{
				{Method: core.MethodFixedFractional, Reason: reason},
				{Method: core.MethodKellyCriterion, Reason: reason},
				{Method: core.MethodVolatilityAdjusted, Reason: reason},
			},
		}
	}

	riskPerShare := directionalRisk
	rewardPerShare := math.Abs(target - entry)
	var rr float64
	if riskPerShare > 0 {
		rr = rewardPerShare / riskPerShare
	}
	avgWinLoss := rr
	if avgWinLoss <= 0 {
		avgWinLoss = 1.5
	}

	results := []core.PositionSizeResult{
		s.FixedFractional(accountValue, entry, stop),
		s.Kelly(accountValue, entry, stop, winRate, avgWinLoss),
		s.VolatilityAdjusted(accountValue, entry, stop, volatility),
	}

	rec := Recommendation{Results: results, RiskReward: rr, Recommended: core.MethodFixedFractional}
	bestEV := math.Inf(-1)
	chosen := false
	for _, r := range results {
		if r.Shares == 0 {
			continue
		}
		if r.PositionPct > s.cfg.MaxPositionPct {
			continue
		}
		// Expected dollar value of the trade at the stop and target.
		ev := float64(r.Shares) * (winRate*rewardPerShare - (1-winRate)*riskPerShare)
		if ev > bestEV {
			bestEV = ev
			rec.Recommended = r.Method
			chosen = true
		}
	}
	if !chosen {
		s.logger.Debug("no sizing method within position cap, defaulting",
			zap.Float64("max_position_pct", s.cfg.MaxPositionPct))
	}
	return rec
}

// fill floors the share count, derives the dependent fields and
// re-asserts the risk budget, trimming shares if flooring still left
// the position over budget.
func (s *Sizer) fill(res core.PositionSizeResult, shares int, accountValue, entry, riskPerShare, riskBudget float64) core.PositionSizeResult {
	if shares < 0 {
		shares = 0
	}
	if riskPerShare > 0 {
		for shares > 0 && float64(shares)*riskPerShare > riskBudget {
			shares--
		}
	}
	res.Shares = shares
	res.PositionValue = float64(shares) * entry
	res.CapitalAtRisk = float64(shares) * riskPerShare
	if accountValue > 0 {
		res.PositionPct = res.PositionValue / accountValue
	}
	if shares == 0 && res.Reason == "" {
		res.Reason = fmt.Sprintf("risk budget %.2f too small for per-share risk %.2f", riskBudget, riskPerShare)
	}
	return res
}
