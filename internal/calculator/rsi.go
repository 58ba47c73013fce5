package calculator

import "math"

// wilder carries the smoothed averages from one bar to the next.
type wilder struct {
	gain float64
	loss float64
}

func (w wilder) step(gain, loss float64, period int) wilder {
	p := float64(period)
	return wilder{
		gain: (w.gain*(p-1) + gain) / p,
		loss: (w.loss*(p-1) + loss) / p,
	}
}

func (w wilder) rsi() float64 {
	if w.loss == 0 {
		return 100
	}
	rs := w.gain / w.loss
	return 100 - 100/(1+rs)
}

// RSI computes the Wilder-smoothed relative strength index for every bar.
// The first difference is taken as zero, the averages are seeded with a simple
// mean of the first `period` values and then folded forward one bar at a time.
// Values before index period-1 are NaN.
func RSI(series []float64, period int) []float64 {
	out := make([]float64, len(series))
	for i := range out {
		out[i] = math.NaN()
	}
	if period <= 0 || len(series) < period {
		return out
	}

	gains := make([]float64, len(series))
	losses := make([]float64, len(series))
	for i := 1; i < len(series); i++ {
		change := series[i] - series[i-1]
		if change > 0 {
			gains[i] = change
		} else {
			losses[i] = -change
		}
	}

	var acc wilder
	for i := 0; i < period; i++ {
		acc.gain += gains[i]
		acc.loss += losses[i]
	}
	acc.gain /= float64(period)
	acc.loss /= float64(period)
	out[period-1] = acc.rsi()

	for i := period; i < len(series); i++ {
		acc = acc.step(gains[i], losses[i], period)
		out[i] = acc.rsi()
	}
	return out
}
