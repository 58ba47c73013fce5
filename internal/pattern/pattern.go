package pattern

import (
	"math"

	"SwingFilter/internal/model"
)

// ID names a candlestick pattern.
type ID string

const (
	Doji             ID = "Doji"
	Hammer           ID = "Hammer"
	ShootingStar     ID = "Shooting Star"
	BullishEngulfing ID = "Bullish Engulfing"
	BearishEngulfing ID = "Bearish Engulfing"
)

const (
	dojiMaxBody = 0.10
	pinMaxBody  = 0.30
	pinWickMult = 2.0
)

// Result holds the independent pattern flags for the latest bar.
type Result struct {
	Doji             bool
	Hammer           bool
	ShootingStar     bool
	BullishEngulfing bool
	BearishEngulfing bool
}

// Names lists the matched patterns in a fixed order.
func (r Result) Names() []string {
	var out []string
	if r.Doji {
		out = append(out, string(Doji))
	}
	if r.Hammer {
		out = append(out, string(Hammer))
	}
	if r.ShootingStar {
		out = append(out, string(ShootingStar))
	}
	if r.BullishEngulfing {
		out = append(out, string(BullishEngulfing))
	}
	if r.BearishEngulfing {
		out = append(out, string(BearishEngulfing))
	}
	return out
}

type parts struct {
	body, upper, lower, rng float64
}

func split(b model.OHLCV) parts {
	return parts{
		body:  math.Abs(b.Close - b.Open),
		upper: b.High - math.Max(b.Close, b.Open),
		lower: math.Min(b.Close, b.Open) - b.Low,
		rng:   b.High - b.Low,
	}
}

func isDoji(p parts) bool {
	return p.rng > 0 && p.body <= p.rng*dojiMaxBody
}

func isHammer(p parts) bool {
	if p.rng == 0 {
		return false
	}
	return p.body <= p.rng*pinMaxBody && p.lower >= p.body*pinWickMult && p.upper <= p.body
}

func isShootingStar(p parts) bool {
	if p.rng == 0 {
		return false
	}
	return p.body <= p.rng*pinMaxBody && p.upper >= p.body*pinWickMult && p.lower <= p.body
}

func isBullishEngulfing(curr, prev model.OHLCV) bool {
	if !(prev.Close < prev.Open && curr.Close > curr.Open) {
		return false
	}
	return curr.Open <= prev.Close && curr.Close >= prev.Open
}

func isBearishEngulfing(curr, prev model.OHLCV) bool {
	if !(prev.Close > prev.Open && curr.Close < curr.Open) {
		return false
	}
	return curr.Open >= prev.Close && curr.Close <= prev.Open
}

// Detect classifies the last bar of the series. Fewer than two bars yields no patterns.
func Detect(bars []model.OHLCV) Result {
	if len(bars) < 2 {
		return Result{}
	}
	curr := bars[len(bars)-1]
	prev := bars[len(bars)-2]
	p := split(curr)
	return Result{
		Doji:             isDoji(p),
		Hammer:           isHammer(p),
		ShootingStar:     isShootingStar(p),
		BullishEngulfing: isBullishEngulfing(curr, prev),
		BearishEngulfing: isBearishEngulfing(curr, prev),
	}
}
