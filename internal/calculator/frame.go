package calculator

import "SwingFilter/internal/model"

// FrameParams holds the indicator periods for a Frame.
type FrameParams struct {
	FastEMA    int
	SlowEMA    int
	RSIPeriod  int
	ATRPeriod  int
	MACDFast   int
	MACDSlow   int
	MACDSignal int
	VolumeAvgN int
}

// DefaultFrameParams are the daily swing settings.
func DefaultFrameParams() FrameParams {
	return FrameParams{
		FastEMA:    13,
		SlowEMA:    34,
		RSIPeriod:  14,
		ATRPeriod:  14,
		MACDFast:   12,
		MACDSlow:   26,
		MACDSignal: 9,
		VolumeAvgN: 20,
	}
}

// MinBars is the shortest history for which every column has a defined last value.
func (p FrameParams) MinBars() int {
	n := p.SlowEMA
	if m := p.MACDSlow + p.MACDSignal; m > n {
		n = m
	}
	if p.ATRPeriod > n {
		n = p.ATRPeriod
	}
	return n
}

// Frame is a bar series with its derived indicator columns. Every value at
// index i depends only on bars[0..i]; warm-up values are NaN.
type Frame struct {
	Bars       []model.OHLCV
	EMAFast    []float64
	EMASlow    []float64
	RSI        []float64
	ATR        []float64
	MACD       []float64
	MACDSignal []float64
	MACDHist   []float64
	AvgVolume  []float64
}

// NewFrame computes all indicator columns for bars.
func NewFrame(bars []model.OHLCV, p FrameParams) *Frame {
	closes := model.Closes(bars)
	line, sig, hist := MACD(closes, p.MACDFast, p.MACDSlow, p.MACDSignal)
	return &Frame{
		Bars:       bars,
		EMAFast:    EMA(closes, p.FastEMA),
		EMASlow:    EMA(closes, p.SlowEMA),
		RSI:        RSI(closes, p.RSIPeriod),
		ATR:        ATR(bars, p.ATRPeriod),
		MACD:       line,
		MACDSignal: sig,
		MACDHist:   hist,
		AvgVolume:  SMA(model.Volumes(bars), p.VolumeAvgN),
	}
}

// Len is the number of bars in the frame.
func (f *Frame) Len() int { return len(f.Bars) }

// Last returns the index of the most recent bar.
func (f *Frame) Last() int { return len(f.Bars) - 1 }

// Upto returns a view of the frame ending at index i (inclusive). Columns are
// causal, so the view equals NewFrame(Bars[:i+1]).
func (f *Frame) Upto(i int) *Frame {
	n := i + 1
	return &Frame{
		Bars:       f.Bars[:n],
		EMAFast:    f.EMAFast[:n],
		EMASlow:    f.EMASlow[:n],
		RSI:        f.RSI[:n],
		ATR:        f.ATR[:n],
		MACD:       f.MACD[:n],
		MACDSignal: f.MACDSignal[:n],
		MACDHist:   f.MACDHist[:n],
		AvgVolume:  f.AvgVolume[:n],
	}
}
