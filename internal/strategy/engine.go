package strategy

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"SwingFilter/internal/calculator"
	"SwingFilter/internal/model"
	"SwingFilter/internal/pattern"
)

// ErrInsufficientData is returned when the window is too short for every indicator.
var ErrInsufficientData = errors.New("insufficient data for signal")

// Tiers maps the additive strategy score to a recommendation.
var Tiers = []struct {
	MinScore int
	Strategy model.Strategy
}{
	{5, model.StrategyBuyAll},
	{3, model.StrategyBuyPartial},
	{0, model.StrategyHold},
	{-2, model.StrategySellPartial},
}

// DefaultTier is the recommendation for scores below every tier.
var DefaultTier = model.StrategySellAll

// mapTier maps a total score to a Strategy.
func mapTier(score int) model.Strategy {
	for _, t := range Tiers {
		if score >= t.MinScore {
			return t.Strategy
		}
	}
	return DefaultTier
}

// Daily is the raw per-bar evaluation before weekly and market context.
type Daily struct {
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
	Risk          model.RiskLevels
	Levels        model.SupportResistance
	Patterns      []string
}

// RiskLevelsFor returns the stop-loss and take-profit band for price. A stop
// that is undefined or above price falls back to a fixed percentage; a zero
// ATR leaves the stop at price.
func RiskLevelsFor(price, atr float64, p Params) model.RiskLevels {
	sl := price - atr*p.ATRMultiplier
	if math.IsNaN(sl) || sl > price {
		sl = price * (1 - p.StopLossPct)
	}
	return model.RiskLevels{
		StopLoss:      sl,
		TakeProfitMin: price * (1 + p.TargetMinPct),
		TakeProfitMax: price * (1 + p.TargetMaxPct),
	}
}

// EvaluateDaily classifies the last bar of the frame.
func EvaluateDaily(f *calculator.Frame, p Params) (Daily, error) {
	if f.Len() < p.Frame.MinBars() || f.Len() < 2 {
		return Daily{}, fmt.Errorf("%d bars, need %d: %w", f.Len(), p.Frame.MinBars(), ErrInsufficientData)
	}
	i := f.Last()
	bar := f.Bars[i]

	d := Daily{
		Date:      bar.Time,
		Price:     bar.Close,
		EMAFast:   f.EMAFast[i],
		EMASlow:   f.EMASlow[i],
		RSI:       f.RSI[i],
		MACDHist:  f.MACDHist[i],
		AvgVolume: f.AvgVolume[i],
	}
	if d.AvgVolume > 0 {
		d.VolRatio = bar.Volume / d.AvgVolume
	}
	if d.EMASlow > 0 {
		d.PriceVsEMAPct = (d.Price - d.EMASlow) / d.EMASlow * 100
	}

	crossover := f.EMAFast[i] > f.EMASlow[i] && f.EMAFast[i-1] <= f.EMASlow[i-1]
	switch {
	case crossover:
		d.IsSetup = true
		var reasons []string
		if d.RSI > p.RSIOverbought {
			reasons = append(reasons, "Overbought RSI")
		} else if d.RSI < p.RSIWeak {
			reasons = append(reasons, "Weak RSI")
		}
		if f.MACD[i] < f.MACDSignal[i] {
			reasons = append(reasons, "Bearish MACD")
		}
		if p.VolumeStrict && d.VolRatio < p.VolRatioMin {
			reasons = append(reasons, fmt.Sprintf("Low Vol (%.1fx)", d.VolRatio))
		}
		d.Raw = model.SignalBuy
		if len(reasons) > 0 {
			d.Raw = "WAIT (" + strings.Join(reasons, ", ") + ")"
		}
		d.Risk = RiskLevelsFor(d.Price, f.ATR[i], p)
	case f.EMAFast[i] > f.EMASlow[i]:
		d.Raw = model.SignalUptrend
		d.Risk = RiskLevelsFor(d.Price, f.ATR[i], p)
	default:
		d.Raw = model.SignalDowntrend
	}

	var piv *calculator.Pivots
	if pv, ok := calculator.PivotPoints(f.Bars); ok {
		piv = &pv
	}
	var sw *calculator.Swings
	if s, ok := calculator.SwingLevels(f.Bars, p.SwingLookback); ok {
		sw = &s
	}
	d.Levels = calculator.SupportResistance(d.Price, piv, sw)
	d.Patterns = pattern.Detect(f.Bars).Names()
	return d, nil
}

// NewSignal assembles the final Signal from the daily evaluation and its
// weekly and market context. The returned value is complete; callers must not
// modify it.
func NewSignal(ticker string, d Daily, weekly model.WeeklyContext, market model.MarketContext, p Params) model.Signal {
	if !p.ContextEnabled() {
		weekly = model.WeeklyContext{Trend: model.TrendUnknown, Aligned: true}
	}
	if !p.MarketEnabled {
		market = unknownMarket
	}

	c := combined{final: d.Raw}
	if p.ContextEnabled() {
		c = combine(d.Raw, weekly, market, p)
	}

	factors := []model.ScoreFactor{
		scoreSignal(d.Raw, c.final),
		scoreWeekly(weekly),
		scoreMarket(market),
		scoreRSI(d.RSI),
		scoreVolume(d.VolRatio),
		scoreEMADistance(d.PriceVsEMAPct),
		scoreLevels(d.Levels),
	}
	total := 0
	for _, f := range factors {
		total += f.Points
	}

	return model.Signal{
		Ticker:         ticker,
		Date:           d.Date,
		Raw:            d.Raw,
		IsSetup:        d.IsSetup,
		Price:          d.Price,
		EMAFast:        d.EMAFast,
		EMASlow:        d.EMASlow,
		RSI:            d.RSI,
		MACDHist:       d.MACDHist,
		VolRatio:       d.VolRatio,
		AvgVolume:      d.AvgVolume,
		PriceVsEMAPct:  d.PriceVsEMAPct,
		Risk:           d.Risk,
		Levels:         d.Levels,
		Patterns:       d.Patterns,
		Weekly:         weekly,
		Market:         market,
		Final:          c.final,
		ContextScore:   c.score,
		ContextReasons: c.reasons,
		Score:          total,
		Factors:        factors,
		Strategy:       mapTier(total),
	}
}

// Evaluate runs the full pipeline on a daily window ending at the signal date,
// using a market context already resolved for that date.
func Evaluate(ticker string, bars []model.OHLCV, market model.MarketContext, p Params) (model.Signal, error) {
	d, err := EvaluateDaily(calculator.NewFrame(bars, p.Frame), p)
	if err != nil {
		return model.Signal{}, fmt.Errorf("%s: %w", ticker, err)
	}
	weekly := model.WeeklyContext{Trend: model.TrendUnknown, Aligned: true}
	if p.ContextEnabled() {
		weekly = WeeklyTrend(calculator.ToWeekly(bars), p)
	}
	return NewSignal(ticker, d, weekly, market, p), nil
}

// Analyze evaluates the window with the index bars available as of its last
// date. A nil index yields an UNKNOWN, risk-on market.
func Analyze(ticker string, bars, index []model.OHLCV, p Params) (model.Signal, error) {
	market := unknownMarket
	if len(bars) > 0 && p.MarketEnabled {
		market = MarketRegime(model.Until(index, bars[len(bars)-1].Time), p)
	}
	return Evaluate(ticker, bars, market, p)
}
