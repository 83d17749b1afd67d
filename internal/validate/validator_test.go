package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdictlabs/verdict/internal/core"
)

func buyRec(entry, target, stop float64) *core.ConsensusRecommendation {
	return &core.ConsensusRecommendation{
		Symbol:      "TEST",
		Action:      core.ActionBuy,
		Confidence:  0.7,
		EntryPrice:  entry,
		TargetPrice: target,
		StopLoss:    stop,
	}
}

func TestValidate_CleanBuyPasses(t *testing.T) {
	v := New()
	rec := buyRec(257.0, 280.0, 214.0)

	out := v.Validate(rec, 256.0, 21.5)

	assert.True(t, out.IsValid)
	assert.Empty(t, out.Errors)
	assert.Empty(t, out.CorrectedValues)
}

func TestValidate_ATRStopDeviationWarns(t *testing.T) {
	v := New()
	// Expected stop with ATR 21.5 is 257 - 43 = 214.0; 240 is more
	// than 5% of entry away from that.
	rec := buyRec(257.0, 280.0, 240.0)

	out := v.Validate(rec, 256.0, 21.5)

	assert.True(t, out.IsValid)
	require.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0], "214.0")
}

func TestValidate_UnitConfusedStopCorrected(t *testing.T) {
	v := New()
	// A stop above 10x entry is a price/basis-point mixup.
	rec := buyRec(257.0, 280.0, 2739.0)

	out := v.Validate(rec, 256.0, 21.5)

	assert.True(t, out.IsValid, "correction should repair the recommendation")
	require.Contains(t, out.CorrectedValues, "stop_loss")
	assert.InDelta(t, 214.0, out.CorrectedValues["stop_loss"], 0.1)
	assert.InDelta(t, 214.0, rec.StopLoss, 0.1, "rec mutated in place")
	require.NotEmpty(t, out.Errors, "the mixup is still recorded")
}

func TestValidate_FractionalStopCorrectedWithoutATR(t *testing.T) {
	v := New()
	// 0.05 against a $150 entry is a percentage written as a price.
	// With no ATR the fallback is entry * 0.98.
	rec := buyRec(150.0, 165.0, 0.05)

	out := v.Validate(rec, 151.0, 0)

	require.Contains(t, out.CorrectedValues, "stop_loss")
	assert.InDelta(t, 147.0, out.CorrectedValues["stop_loss"], 1e-9)
	assert.True(t, out.IsValid)
}

func TestValidate_BuyOrderingViolationIsHardError(t *testing.T) {
	v := New()
	// Stop between entry and target: plausible magnitude, broken order.
	rec := buyRec(100.0, 110.0, 105.0)

	out := v.Validate(rec, 100.0, 0)

	assert.False(t, out.IsValid)
	assert.Empty(t, out.CorrectedValues)
	require.NotEmpty(t, out.Errors)
	assert.Contains(t, out.Errors[0], "ordering")
}

func TestValidate_SellOrderingMirrored(t *testing.T) {
	v := New()
	rec := &core.ConsensusRecommendation{
		Symbol:      "TEST",
		Action:      core.ActionSell,
		Confidence:  0.6,
		EntryPrice:  100.0,
		TargetPrice: 90.0,
		StopLoss:    104.0,
	}

	out := v.Validate(rec, 101.0, 2.0)

	assert.True(t, out.IsValid)
	assert.Empty(t, out.Errors)
}

func TestValidate_BuyTargetBelowCurrentPrice(t *testing.T) {
	v := New()
	rec := buyRec(100.0, 103.0, 96.0)

	out := v.Validate(rec, 110.0, 2.0)

	assert.False(t, out.IsValid)
	found := false
	for _, e := range out.Errors {
		if strings.Contains(e, "current price") {
			found = true
		}
	}
	assert.True(t, found, "expected a target-vs-current-price error, got %v", out.Errors)
}

func TestValidate_RiskRewardBelowOneWarns(t *testing.T) {
	v := New()
	// Reward 2, risk 4: rr = 0.5.
	rec := buyRec(100.0, 102.0, 96.0)

	out := v.Validate(rec, 99.0, 2.0)

	assert.True(t, out.IsValid)
	require.NotEmpty(t, out.Warnings)
	assert.Contains(t, out.Warnings[0], "risk/reward")
}

func TestValidate_ConfidenceOutOfRange(t *testing.T) {
	v := New()
	rec := buyRec(100.0, 110.0, 96.0)
	rec.Confidence = 1.4

	out := v.Validate(rec, 99.0, 2.0)

	assert.False(t, out.IsValid)
}

func TestValidate_NonPositiveEntryShortCircuits(t *testing.T) {
	v := New()
	rec := buyRec(0, 110.0, 96.0)

	out := v.Validate(rec, 99.0, 2.0)

	assert.False(t, out.IsValid)
	assert.NotEmpty(t, out.Errors)
}

func TestValidate_Deterministic(t *testing.T) {
	v := New()
	a := buyRec(257.0, 280.0, 2739.0)
	b := buyRec(257.0, 280.0, 2739.0)

	outA := v.Validate(a, 256.0, 21.5)
	outB := v.Validate(b, 256.0, 21.5)

	assert.Equal(t, outA, outB)
	assert.Equal(t, a.StopLoss, b.StopLoss)
}
