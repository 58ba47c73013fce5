package model

import "time"

// Raw daily signal labels.
const (
	SignalBuy       = "BUY"
	SignalUptrend   = "UPTREND (No Cross)"
	SignalDowntrend = "DOWNTREND"
)

// Final tagged BUY variants.
const (
	SignalBuyStrong  = "BUY (STRONG)"
	SignalBuyWeakMkt = "BUY (WEAK-MKT)"
	SignalBuyWeakW   = "BUY (WEAK-W)"
	SignalBuyWeak    = "BUY (WEAK)"
	SignalWaitWeekly = "WAIT (Weekly misaligned)"
	SignalWaitMarket = "WAIT (Market risk-off)"
)

// Trend is the weekly EMA alignment tag.
type Trend string

const (
	TrendUp      Trend = "UP"
	TrendDown    Trend = "DOWN"
	TrendUnknown Trend = "UNKNOWN"
)

// Regime is the market-wide tag derived from the index trend.
type Regime string

const (
	RegimeRiskOn  Regime = "RISK_ON"
	RegimeRiskOff Regime = "RISK_OFF"
	RegimeUnknown Regime = "UNKNOWN"
)

// Strategy is the discrete investment recommendation.
type Strategy string

const (
	StrategyBuyAll      Strategy = "BUY ALL"
	StrategyBuyPartial  Strategy = "BUY PARTIAL"
	StrategyHold        Strategy = "HOLD"
	StrategySellPartial Strategy = "SELL PARTIAL"
	StrategySellAll     Strategy = "SELL ALL"
)

// RiskLevels are the stop-loss and take-profit references for a price.
type RiskLevels struct {
	StopLoss      float64
	TakeProfitMin float64
	TakeProfitMax float64
}

// SupportResistance describes where price sits between nearby levels.
type SupportResistance struct {
	Label             string
	NearestSupport    float64
	NearestResistance float64
	SupportDistPct    float64
	ResistanceDistPct float64
	RiskReward        float64
	// RangePosition is where price sits in the swing range: 0 at the low, 1 at the high.
	RangePosition float64
	Score         int
}

// ScoreFactor is one additive term of the strategy score.
type ScoreFactor struct {
	Name   string
	Points int
	Note   string
}

// WeeklyContext is the weekly EMA alignment of the daily window.
type WeeklyContext struct {
	Trend   Trend
	Aligned bool
}

// MarketContext is the index regime as of the signal date.
type MarketContext struct {
	Regime Regime
	RiskOn bool
}

// Signal is the per-day decision for one ticker. It is built once by the
// strategy package and treated as read-only afterwards.
type Signal struct {
	Ticker        string
	Date          time.Time
	Raw           string
	IsSetup       bool
	Price         float64
	EMAFast       float64
	EMASlow       float64
	RSI           float64
	MACDHist      float64
	VolRatio      float64
	AvgVolume     float64
	PriceVsEMAPct float64

	Risk     RiskLevels
	Levels   SupportResistance
	Patterns []string

	Weekly WeeklyContext
	Market MarketContext

	Final          string
	ContextScore   int
	ContextReasons []string
	Score          int
	Factors        []ScoreFactor
	Strategy       Strategy
}
