package strategy

import (
	"SwingFilter/internal/calculator"
	"SwingFilter/internal/model"
)

// contextBuffer is the extra history required beyond the slow EMA period.
const contextBuffer = 5

// WeeklyTrend compares the weekly fast and slow EMAs on the last weekly candle.
// Short history is UNKNOWN and treated as aligned.
func WeeklyTrend(weekly []model.OHLCV, p Params) model.WeeklyContext {
	if len(weekly) < p.WeeklySlowEMA+contextBuffer {
		return model.WeeklyContext{Trend: model.TrendUnknown, Aligned: true}
	}
	closes := model.Closes(weekly)
	fast := calculator.EMA(closes, p.WeeklyFastEMA)
	slow := calculator.EMA(closes, p.WeeklySlowEMA)
	last := len(closes) - 1
	if fast[last] > slow[last] {
		return model.WeeklyContext{Trend: model.TrendUp, Aligned: true}
	}
	return model.WeeklyContext{Trend: model.TrendDown, Aligned: false}
}

// MarketRegime compares the index fast and slow EMAs on the last index bar.
// Missing or short history is UNKNOWN and treated as risk-on.
func MarketRegime(index []model.OHLCV, p Params) model.MarketContext {
	all := MarketRegimeSeries(index, p)
	if len(all) == 0 {
		return unknownMarket
	}
	return all[len(all)-1]
}

var unknownMarket = model.MarketContext{Regime: model.RegimeUnknown, RiskOn: true}

// MarketRegimeSeries returns, for every index bar i, the regime that
// MarketRegime would report on index[:i+1]. The EMAs are causal so a single
// pass matches the per-prefix computation.
func MarketRegimeSeries(index []model.OHLCV, p Params) []model.MarketContext {
	out := make([]model.MarketContext, len(index))
	closes := model.Closes(index)
	fast := calculator.EMA(closes, p.MarketFastEMA)
	slow := calculator.EMA(closes, p.MarketSlowEMA)
	for i := range index {
		switch {
		case i+1 < p.MarketSlowEMA+contextBuffer:
			out[i] = unknownMarket
		case fast[i] > slow[i]:
			out[i] = model.MarketContext{Regime: model.RegimeRiskOn, RiskOn: true}
		default:
			out[i] = model.MarketContext{Regime: model.RegimeRiskOff, RiskOn: false}
		}
	}
	return out
}

// combined is the outcome of layering context over a raw signal.
type combined struct {
	final   string
	score   int
	reasons []string
}

// combine retags a raw BUY using weekly alignment and market regime.
// Every other raw signal passes through unchanged.
func combine(raw string, weekly model.WeeklyContext, market model.MarketContext, p Params) combined {
	c := combined{final: raw}
	if raw != model.SignalBuy {
		return c
	}

	c.score = 2
	if weekly.Aligned {
		c.score++
	} else {
		c.reasons = append(c.reasons, "Weekly misaligned")
	}
	if market.RiskOn {
		c.score++
	} else {
		c.reasons = append(c.reasons, "Market risk-off")
	}

	switch {
	case p.MTFEnabled && p.MTFRequiredForBuy && !weekly.Aligned:
		c.final = model.SignalWaitWeekly
	case p.MarketEnabled && p.MarketMode == FilterBlock && !market.RiskOn:
		c.final = model.SignalWaitMarket
	case weekly.Aligned && market.RiskOn:
		c.final = model.SignalBuyStrong
	case weekly.Aligned:
		c.final = model.SignalBuyWeakMkt
	case market.RiskOn:
		c.final = model.SignalBuyWeakW
	default:
		c.final = model.SignalBuyWeak
	}
	return c
}
