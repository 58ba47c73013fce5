package strategy

import "SwingFilter/internal/calculator"

// FilterMode controls how a risk-off market affects BUY signals.
type FilterMode string

const (
	// FilterTag keeps the BUY and lowers its strength tag.
	FilterTag FilterMode = "TAG"
	// FilterBlock turns the BUY into a WAIT.
	FilterBlock FilterMode = "BLOCK"
)

// Params is the immutable rule set for the signal engine.
type Params struct {
	Frame calculator.FrameParams

	RSIOverbought float64
	RSIWeak       float64
	VolumeStrict  bool
	VolRatioMin   float64

	ATRMultiplier float64
	StopLossPct   float64
	TargetMinPct  float64
	TargetMaxPct  float64
	SwingLookback int

	MTFEnabled        bool
	MTFRequiredForBuy bool
	WeeklyFastEMA     int
	WeeklySlowEMA     int

	MarketEnabled bool
	MarketFastEMA int
	MarketSlowEMA int
	MarketMode    FilterMode
}

// DefaultParams returns the IDX 3-10 day swing settings.
func DefaultParams() Params {
	return Params{
		Frame:             calculator.DefaultFrameParams(),
		RSIOverbought:     75,
		RSIWeak:           40,
		VolumeStrict:      true,
		VolRatioMin:       1.2,
		ATRMultiplier:     1.5,
		StopLossPct:       0.03,
		TargetMinPct:      0.03,
		TargetMaxPct:      0.10,
		SwingLookback:     20,
		MTFEnabled:        true,
		MTFRequiredForBuy: true,
		WeeklyFastEMA:     10,
		WeeklySlowEMA:     30,
		MarketEnabled:     true,
		MarketFastEMA:     13,
		MarketSlowEMA:     50,
		MarketMode:        FilterTag,
	}
}

// ContextEnabled reports whether any weekly or market layering applies.
func (p Params) ContextEnabled() bool {
	return p.MTFEnabled || p.MarketEnabled
}
