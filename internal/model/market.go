package model

import "time"

// OHLCV represents a single daily session bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// PriceSeries holds the raw bars fetched for one symbol.
type PriceSeries struct {
	Symbol    string
	Bars      []OHLCV
	FetchedAt time.Time
}

// Closes extracts the close column.
func Closes(bars []OHLCV) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Volumes extracts the volume column.
func Volumes(bars []OHLCV) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Volume
	}
	return out
}

// Until returns the prefix of bars whose date is not after t.
// Bars must be sorted ascending.
func Until(bars []OHLCV, t time.Time) []OHLCV {
	n := 0
	for n < len(bars) && !bars[n].Time.After(t) {
		n++
	}
	return bars[:n]
}
