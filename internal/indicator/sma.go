package indicator

// SMA computes the rolling simple moving average, one value per fully
// covered window: len(prices)-period+1 values. Returns nil when there
// is not enough data.
func SMA(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period {
		return nil
	}

	out := make([]float64, len(prices)-period+1)
	var window float64
	for i, p := range prices {
		window += p
		if i >= period {
			window -= prices[i-period]
		}
		if i >= period-1 {
			out[i-period+1] = window / float64(period)
		}
	}
	return out
}
