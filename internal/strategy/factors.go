package strategy

import (
	"fmt"
	"strings"

	"SwingFilter/internal/model"
)

// Each score* function returns one additive term of the strategy score.

func scoreSignal(raw, final string) model.ScoreFactor {
	f := model.ScoreFactor{Name: "Signal", Note: final}
	switch {
	case strings.Contains(final, "BUY") && !strings.Contains(final, "WAIT"):
		f.Points = 3
		if strings.Contains(final, "STRONG") {
			f.Points += 2
		} else if strings.Contains(final, "WEAK") {
			f.Points--
		}
	case strings.Contains(raw, "UPTREND"):
		f.Points = 1
	case strings.Contains(raw, "DOWNTREND"):
		f.Points = -2
	}
	return f
}

func scoreWeekly(w model.WeeklyContext) model.ScoreFactor {
	if w.Aligned {
		return model.ScoreFactor{Name: "Weekly", Points: 1, Note: string(w.Trend)}
	}
	return model.ScoreFactor{Name: "Weekly", Points: -1, Note: string(w.Trend)}
}

func scoreMarket(m model.MarketContext) model.ScoreFactor {
	if m.RiskOn {
		return model.ScoreFactor{Name: "Market", Points: 1, Note: string(m.Regime)}
	}
	return model.ScoreFactor{Name: "Market", Points: -1, Note: string(m.Regime)}
}

func scoreRSI(rsi float64) model.ScoreFactor {
	var pts int
	switch {
	case rsi < 30:
		pts = 2
	case rsi < 40:
		pts = 1
	case rsi > 80:
		pts = -2
	case rsi > 70:
		pts = -1
	}
	return model.ScoreFactor{Name: "RSI", Points: pts, Note: fmt.Sprintf("%.1f", rsi)}
}

func scoreVolume(ratio float64) model.ScoreFactor {
	var pts int
	switch {
	case ratio > 1.5:
		pts = 1
	case ratio < 0.5:
		pts = -1
	}
	return model.ScoreFactor{Name: "Volume", Points: pts, Note: fmt.Sprintf("%.1fx", ratio)}
}

func scoreEMADistance(pct float64) model.ScoreFactor {
	var pts int
	switch {
	case pct < -5:
		pts = 1
	case pct > 10:
		pts = -1
	}
	return model.ScoreFactor{Name: "Price vs EMA", Points: pts, Note: fmt.Sprintf("%+.1f%%", pct)}
}

func scoreLevels(sr model.SupportResistance) model.ScoreFactor {
	return model.ScoreFactor{Name: "S/R", Points: sr.Score, Note: sr.Label}
}
