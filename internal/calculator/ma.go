package calculator

import (
	"math"

	"github.com/markcheno/go-talib"
)

// SMA returns the rolling mean aligned to the input, NaN until `period` values exist.
func SMA(series []float64, period int) []float64 {
	out := make([]float64, len(series))
	if period <= 0 || len(series) < period {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	copy(out, talib.Sma(series, period))
	for i := 0; i < period-1; i++ {
		out[i] = math.NaN()
	}
	return out
}

// EMA is the exponential moving average with alpha = 2/(period+1), seeded by
// the first value without bias adjustment.
func EMA(series []float64, period int) []float64 {
	out := make([]float64, len(series))
	if len(series) == 0 || period <= 0 {
		return out
	}
	alpha := 2.0 / float64(period+1)
	out[0] = series[0]
	for i := 1; i < len(series); i++ {
		out[i] = alpha*series[i] + (1-alpha)*out[i-1]
	}
	return out
}

// MACD returns the MACD line, its signal line and the histogram.
func MACD(series []float64, fast, slow, signal int) (line, sig, hist []float64) {
	emaFast := EMA(series, fast)
	emaSlow := EMA(series, slow)
	line = make([]float64, len(series))
	for i := range series {
		line[i] = emaFast[i] - emaSlow[i]
	}
	sig = EMA(line, signal)
	hist = make([]float64, len(series))
	for i := range series {
		hist[i] = line[i] - sig[i]
	}
	return line, sig, hist
}
