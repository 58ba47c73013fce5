package calculator

import (
	"time"

	"SwingFilter/internal/model"
)

// Support/resistance labels.
const (
	LabelNearSupport     = "NEAR SUPPORT"
	LabelAboveSupport    = "ABOVE SUPPORT"
	LabelNearResistance  = "NEAR RESISTANCE"
	LabelBelowResistance = "BELOW RESISTANCE"
	LabelNeutral         = "NEUTRAL"
)

// Pivots are classic floor-trader levels from the previous completed bar.
type Pivots struct {
	Pivot float64
	R1    float64
	R2    float64
	S1    float64
	S2    float64
}

// Swings are the extreme high and low over a trailing window.
type Swings struct {
	High     float64
	Low      float64
	HighDate time.Time
	LowDate  time.Time
}

// PivotPoints computes pivots from the bar before the last one.
// ok is false with fewer than two bars.
func PivotPoints(bars []model.OHLCV) (p Pivots, ok bool) {
	if len(bars) < 2 {
		return Pivots{}, false
	}
	prev := bars[len(bars)-2]
	pivot := (prev.High + prev.Low + prev.Close) / 3
	return Pivots{
		Pivot: pivot,
		R1:    2*pivot - prev.Low,
		R2:    pivot + (prev.High - prev.Low),
		S1:    2*pivot - prev.High,
		S2:    pivot - (prev.High - prev.Low),
	}, true
}

// SwingLevels finds the max high and min low over the trailing lookback bars,
// current bar included. Ties resolve to the earliest date. ok is false when
// fewer than lookback bars exist.
func SwingLevels(bars []model.OHLCV, lookback int) (s Swings, ok bool) {
	if lookback <= 0 || len(bars) < lookback {
		return Swings{}, false
	}
	recent := bars[len(bars)-lookback:]
	s.High, s.Low, _ = HighLow(recent, lookback)
	highFound, lowFound := false, false
	for _, b := range recent {
		if !highFound && b.High == s.High {
			s.HighDate = b.Time
			highFound = true
		}
		if !lowFound && b.Low == s.Low {
			s.LowDate = b.Time
			lowFound = true
		}
	}
	return s, true
}

// SupportResistance scores the price against the nearest pivot/swing levels.
// Missing pivots or swings yield a NEUTRAL result with a zero score.
func SupportResistance(price float64, pivots *Pivots, swings *Swings) model.SupportResistance {
	if pivots == nil || swings == nil || price <= 0 {
		return model.SupportResistance{Label: LabelNeutral}
	}

	supports := []float64{pivots.S1, pivots.S2, swings.Low}
	resistances := []float64{pivots.R1, pivots.R2, swings.High}

	support, found := 0.0, false
	for _, s := range supports {
		if s < price && (!found || s > support) {
			support, found = s, true
		}
	}
	if !found {
		support = minOf(supports)
	}

	resistance, found := 0.0, false
	for _, r := range resistances {
		if r > price && (!found || r < resistance) {
			resistance, found = r, true
		}
	}
	if !found {
		resistance = maxOf(resistances)
	}

	supDist := (price - support) / price * 100
	resDist := (resistance - price) / price * 100

	out := model.SupportResistance{
		NearestSupport:    support,
		NearestResistance: resistance,
		SupportDistPct:    supDist,
		ResistanceDistPct: resDist,
	}
	if pos, err := RangePosition(price, swings.High, swings.Low); err == nil {
		out.RangePosition = pos
	}

	switch {
	case supDist < 2:
		out.Score += 2
		out.Label = LabelNearSupport
	case supDist < 5:
		out.Score++
		out.Label = LabelAboveSupport
	case resDist < 2:
		out.Score -= 2
		out.Label = LabelNearResistance
	case resDist < 5:
		out.Score--
		out.Label = LabelBelowResistance
	default:
		out.Label = LabelNeutral
	}

	if supDist > 0 {
		out.RiskReward = resDist / supDist
	}
	if out.RiskReward > 2 {
		out.Score++
	} else if out.RiskReward < 0.5 {
		out.Score--
	}
	return out
}

func minOf(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
