package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMA_RollingWindows(t *testing.T) {
	prices := []float64{10, 11, 12, 13, 14, 15}

	sma := SMA(prices, 3)

	require.Len(t, sma, 4)
	assert.Equal(t, []float64{11, 12, 13, 14}, sma)
}

func TestSMA_FullSeriesWindow(t *testing.T) {
	prices := []float64{10, 20, 30}

	sma := SMA(prices, 3)

	require.Len(t, sma, 1)
	assert.InDelta(t, 20, sma[0], 1e-9)
}

func TestSMA_NotEnoughData(t *testing.T) {
	assert.Empty(t, SMA([]float64{10, 11}, 5))
	assert.Empty(t, SMA(nil, 3))
	assert.Empty(t, SMA([]float64{10, 11}, 0))
}
