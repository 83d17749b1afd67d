package consensus

import (
	"fmt"

	"github.com/verdictlabs/verdict/internal/core"
)

// actionScore maps a directional action to a numeric signal in [-1, 1].
func actionScore(a core.Action) float64 {
	switch a {
	case core.ActionStrongBuy:
		return 1.0
	case core.ActionBuy:
		return 0.5
	case core.ActionSell:
		return -0.5
	case core.ActionStrongSell:
		return -1.0
	default:
		return 0
	}
}

// scoreAction thresholds a scalar score into one of five action bands.
func scoreAction(score float64) core.Action {
	switch {
	case score >= 0.6:
		return core.ActionStrongBuy
	case score >= 0.2:
		return core.ActionBuy
	case score <= -0.6:
		return core.ActionStrongSell
	case score <= -0.2:
		return core.ActionSell
	default:
		return core.ActionHold
	}
}

// enrichmentKinds are blended in the second pass rather than the base
// consensus.
var enrichmentKinds = map[core.SpecialistKind]bool{
	core.KindSentiment: true,
	core.KindMacro:     true,
	core.KindNews:      true,
}

// mergeBase computes the confidence- and weight-blended base score from
// the core specialists. Absent specialists simply drop out of both
// sums, which redistributes their weight proportionally among the
// responders.
func (e *Engine) mergeBase(results []*core.SpecialistResult) (score, confidence float64, contribs []core.Contribution) {
	var num, den, confSum, confDen float64
	for _, r := range results {
		if enrichmentKinds[r.Kind] {
			continue
		}
		w := e.weight(r.Kind)
		num += actionScore(r.Action) * r.Confidence * w
		den += r.Confidence * w
		confSum += r.Confidence * w
		confDen += w
	}
	if den == 0 {
		return 0, 0, nil
	}
	score = num / den

	for _, r := range results {
		if enrichmentKinds[r.Kind] {
			continue
		}
		w := e.weight(r.Kind)
		eff := r.Confidence * w / den
		contribs = append(contribs, core.Contribution{
			Kind:            r.Kind,
			Signal:          actionScore(r.Action),
			Confidence:      r.Confidence,
			EffectiveWeight: eff,
			NetAdjustment:   actionScore(r.Action) * eff,
		})
	}
	return score, confSum / confDen, contribs
}

// mergeEnrichment computes the supplementary-context score from the
// sentiment/macro/news specialists, preferring each payload's refined
// score over the coarse action mapping.
func (e *Engine) mergeEnrichment(results []*core.SpecialistResult) (score float64, contribs []core.Contribution, ok bool) {
	var num, den float64
	for _, r := range results {
		if !enrichmentKinds[r.Kind] {
			continue
		}
		w := e.weight(r.Kind)
		s := core.NumField(r.Payload, "score", actionScore(r.Action))
		num += s * r.Confidence * w
		den += r.Confidence * w
	}
	if den == 0 {
		return 0, nil, false
	}
	score = num / den

	for _, r := range results {
		if !enrichmentKinds[r.Kind] {
			continue
		}
		w := e.weight(r.Kind)
		s := core.NumField(r.Payload, "score", actionScore(r.Action))
		eff := r.Confidence * w / den
		contribs = append(contribs, core.Contribution{
			Kind:            r.Kind,
			Signal:          s,
			Confidence:      r.Confidence,
			EffectiveWeight: eff,
			NetAdjustment:   s * eff,
		})
	}
	return score, contribs, true
}

// priceLevels resolves entry/target/stop. The technical specialist owns
// price levels when present; otherwise they are derived from the market
// price and the fundamental specialist's valuation band.
func priceLevels(results []*core.SpecialistResult, quote *core.Quote, action core.Action) (entry, target, stop float64, source string, err error) {
	var technical, fundamental *core.SpecialistResult
	for _, r := range results {
		switch r.Kind {
		case core.KindTechnical:
			technical = r
		case core.KindFundamental:
			fundamental = r
		}
	}

	if technical != nil {
		entry = core.NumField(technical.Payload, "entry_price", 0)
		target = core.NumField(technical.Payload, "target_price", 0)
		stop = core.NumField(technical.Payload, "stop_loss", 0)
		if entry > 0 && target > 0 && stop > 0 {
			return entry, target, stop, string(core.KindTechnical), nil
		}
	}

	if quote == nil || quote.Price <= 0 {
		return 0, 0, 0, "", fmt.Errorf("no market price to derive levels from")
	}
	entry = quote.Price

	low, high := entry*0.90, entry*1.10
	if fundamental != nil {
		low = core.NumField(fundamental.Payload, "fair_value_low", low)
		high = core.NumField(fundamental.Payload, "fair_value_high", high)
	}

	if action.IsSellSide() {
		target = low
		stop = entry * 1.02
	} else {
		target = high
		stop = entry * 0.98
	}
	return entry, target, stop, "derived", nil
}
