// Package metrics derives performance statistics from a trade log and an
// equity curve. Degenerate inputs return fixed fallback values instead of
// errors: profit factor +Inf or 0, Sharpe 0, recovery factor 0, risk of ruin 0.
package metrics

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"SwingFilter/internal/model"
)

const tradingDays = 252

// Report collects every statistic for one trade log and equity curve.
type Report struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64
	ProfitFactor  float64
	AvgWin        float64
	AvgLoss       float64
	AvgTrade      float64
	TotalPnL      float64
	StdDev        float64
	Sharpe        float64

	AvgDuration     float64
	AvgWinDuration  float64
	AvgLossDuration float64

	Drawdown       DrawdownStats
	TotalReturnPct float64
	FinalEquity    float64
	Monthly        MonthlyStats
	Distribution   Distribution
	Expectancy     float64
	RiskOfRuin     float64
	Holding        HoldingStats
}

// DrawdownStats are peak-tracking statistics over an equity curve.
type DrawdownStats struct {
	Max            float64
	Average        float64
	MaxDuration    int
	RecoveryFactor float64
}

// MonthlyStats summarise month-over-month returns of month-end equity.
type MonthlyStats struct {
	Average        float64
	Best           float64
	Worst          float64
	PositiveMonths int
	TotalMonths    int
}

// Distribution describes the spread of per-trade P&L.
type Distribution struct {
	P10, P25, P50, P75, P90 float64
	Outliers                int
	OutlierPct              float64
	LargestWin              float64
	LargestLoss             float64
	Skewness                float64
	Kurtosis                float64
}

// HoldingStats compares trades against the 3-10 day swing horizon.
type HoldingStats struct {
	TargetPct        float64
	QuickWinRate     float64
	LongWinRate      float64
	QuickTrades      int
	LongTrades       int
	TargetTrades     int
	MinDurationDays  int
	MaxDurationDays  int
	MeanDurationDays float64
}

// Compute builds the full report.
func Compute(trades []model.ClosedTrade, curve []model.EquityPoint, initialCapital float64) Report {
	r := Report{
		TotalTrades:  len(trades),
		WinRate:      WinRate(trades),
		ProfitFactor: ProfitFactor(trades),
		FinalEquity:  initialCapital,
	}

	pnls := PnLs(trades)
	var winDur, lossDur []float64
	var winSum, lossSum float64
	for _, t := range trades {
		switch {
		case t.RealizedPnL > 0:
			r.WinningTrades++
			winSum += t.RealizedPnL
			winDur = append(winDur, float64(t.DurationDays))
		case t.RealizedPnL < 0:
			r.LosingTrades++
			lossSum += t.RealizedPnL
			lossDur = append(lossDur, float64(t.DurationDays))
		}
		r.TotalPnL += t.RealizedPnL
		r.AvgDuration += float64(t.DurationDays)
	}
	if r.WinningTrades > 0 {
		r.AvgWin = winSum / float64(r.WinningTrades)
		r.AvgWinDuration = stat.Mean(winDur, nil)
	}
	if r.LosingTrades > 0 {
		r.AvgLoss = lossSum / float64(r.LosingTrades)
		r.AvgLossDuration = stat.Mean(lossDur, nil)
	}
	if len(trades) > 0 {
		r.AvgTrade = r.TotalPnL / float64(len(trades))
		r.AvgDuration /= float64(len(trades))
	}
	if len(pnls) > 1 {
		r.StdDev = stat.StdDev(pnls, nil)
	}
	r.Sharpe = TradeSharpe(pnls)

	r.Drawdown = Drawdowns(curve)
	if len(curve) > 0 {
		r.FinalEquity = curve[len(curve)-1].Equity
	}
	if initialCapital > 0 {
		r.TotalReturnPct = (r.FinalEquity - initialCapital) / initialCapital * 100
	}
	r.Monthly = Monthly(curve)
	r.Distribution = Distribute(pnls)
	r.Expectancy = Expectancy(trades)
	r.RiskOfRuin = RiskOfRuin(trades, initialCapital)
	r.Holding = Holding(trades)
	return r
}

// PnLs extracts realized P&L in trade order.
func PnLs(trades []model.ClosedTrade) []float64 {
	out := make([]float64, len(trades))
	for i, t := range trades {
		out[i] = t.RealizedPnL
	}
	return out
}

// WinRate is the percentage of trades with positive realized P&L.
func WinRate(trades []model.ClosedTrade) float64 {
	if len(trades) == 0 {
		return 0
	}
	wins := 0
	for _, t := range trades {
		if t.RealizedPnL > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(trades)) * 100
}

// ProfitFactor is gross wins over gross losses: +Inf with wins and no
// losses, 0 with neither.
func ProfitFactor(trades []model.ClosedTrade) float64 {
	var gains, losses float64
	for _, t := range trades {
		if t.RealizedPnL > 0 {
			gains += t.RealizedPnL
		} else if t.RealizedPnL < 0 {
			losses -= t.RealizedPnL
		}
	}
	if losses == 0 {
		if gains > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return gains / losses
}

// TradeSharpe annualises the mean over the sample standard deviation of
// per-trade P&L.
func TradeSharpe(pnls []float64) float64 {
	if len(pnls) < 2 {
		return 0
	}
	mean, std := stat.MeanStdDev(pnls, nil)
	if !(std > 0) {
		return 0
	}
	return mean / std * math.Sqrt(tradingDays)
}

// EquitySharpe annualises the daily percentage returns of the equity curve.
func EquitySharpe(curve []model.EquityPoint) float64 {
	if len(curve) < 2 {
		return 0
	}
	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev == 0 {
			continue
		}
		returns = append(returns, curve[i].Equity/prev-1)
	}
	if len(returns) < 2 {
		return 0
	}
	mean, std := stat.MeanStdDev(returns, nil)
	if !(std > 0) {
		return 0
	}
	return mean / std * math.Sqrt(tradingDays)
}

// Drawdowns tracks the running peak over the curve. Duration is the longest
// run of consecutive points below peak.
func Drawdowns(curve []model.EquityPoint) DrawdownStats {
	var s DrawdownStats
	if len(curve) == 0 {
		return s
	}
	peak := math.Inf(-1)
	run := 0
	var sum float64
	var n int
	for _, pt := range curve {
		if pt.Equity > peak {
			peak = pt.Equity
		}
		dd := 0.0
		if peak > 0 {
			dd = (peak - pt.Equity) / peak * 100
		}
		if dd > 0 {
			run++
			sum += dd
			n++
		} else {
			run = 0
		}
		if run > s.MaxDuration {
			s.MaxDuration = run
		}
		if dd > s.Max {
			s.Max = dd
		}
	}
	if n > 0 {
		s.Average = sum / float64(n)
	}
	if s.Max > 0 {
		s.RecoveryFactor = curve[len(curve)-1].Equity / s.Max
	}
	return s
}

// Monthly compares the last equity of each calendar month with the previous month's.
func Monthly(curve []model.EquityPoint) MonthlyStats {
	var ends []float64
	var last time.Time
	for i, pt := range curve {
		y, m, _ := pt.Time.Date()
		if i > 0 {
			ly, lm, _ := last.Date()
			if ly == y && lm == m {
				ends[len(ends)-1] = pt.Equity
				last = pt.Time
				continue
			}
		}
		ends = append(ends, pt.Equity)
		last = pt.Time
	}

	var s MonthlyStats
	var returns []float64
	for i := 1; i < len(ends); i++ {
		if ends[i-1] == 0 {
			continue
		}
		returns = append(returns, (ends[i]/ends[i-1]-1)*100)
	}
	if len(returns) == 0 {
		return s
	}
	s.TotalMonths = len(returns)
	s.Best, s.Worst = returns[0], returns[0]
	for _, r := range returns {
		if r > 0 {
			s.PositiveMonths++
		}
		s.Best = math.Max(s.Best, r)
		s.Worst = math.Min(s.Worst, r)
	}
	s.Average = stat.Mean(returns, nil)
	return s
}

// Percentile interpolates linearly between the closest ranks of sorted data.
func Percentile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if hi >= len(sorted) {
		hi = len(sorted) - 1
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// Distribute computes percentiles, 1.5xIQR outliers and shape of the P&L series.
func Distribute(pnls []float64) Distribution {
	var d Distribution
	if len(pnls) == 0 {
		return d
	}
	sorted := append([]float64(nil), pnls...)
	sort.Float64s(sorted)

	d.P10 = Percentile(sorted, 0.10)
	d.P25 = Percentile(sorted, 0.25)
	d.P50 = Percentile(sorted, 0.50)
	d.P75 = Percentile(sorted, 0.75)
	d.P90 = Percentile(sorted, 0.90)

	iqr := d.P75 - d.P25
	lo, hi := d.P25-1.5*iqr, d.P75+1.5*iqr
	for _, v := range sorted {
		if v < lo || v > hi {
			d.Outliers++
		}
	}
	d.OutlierPct = float64(d.Outliers) / float64(len(sorted)) * 100
	d.LargestWin = sorted[len(sorted)-1]
	d.LargestLoss = sorted[0]
	if len(sorted) > 2 {
		d.Skewness = stat.Skew(pnls, nil)
	}
	if len(sorted) > 3 {
		d.Kurtosis = stat.ExKurtosis(pnls, nil)
	}
	return d
}

// Expectancy is win_rate*avg_win - (1-win_rate)*avg_loss with avg_loss as a
// positive magnitude. It is 0 unless there is at least one win and one loss.
func Expectancy(trades []model.ClosedTrade) float64 {
	if len(trades) == 0 {
		return 0
	}
	var winSum, lossSum float64
	var wins, losses int
	for _, t := range trades {
		if t.RealizedPnL > 0 {
			winSum += t.RealizedPnL
			wins++
		} else if t.RealizedPnL < 0 {
			lossSum -= t.RealizedPnL
			losses++
		}
	}
	if wins == 0 || losses == 0 {
		return 0
	}
	avgWin := winSum / float64(wins)
	avgLoss := lossSum / float64(losses)
	w := float64(wins) / float64(len(trades))
	return w*avgWin - (1-w)*avgLoss
}

// RiskOfRuin estimates the chance of losing half the capital. It needs at
// least ten trades and one loss, and is only non-zero when the win rate is
// at most one half.
func RiskOfRuin(trades []model.ClosedTrade, initialCapital float64) float64 {
	if len(trades) < 10 {
		return 0
	}
	var lossSum float64
	var wins, losses int
	for _, t := range trades {
		if t.RealizedPnL > 0 {
			wins++
		} else if t.RealizedPnL < 0 {
			lossSum -= t.RealizedPnL
			losses++
		}
	}
	if losses == 0 {
		return 0
	}
	w := float64(wins) / float64(len(trades))
	if w > 0.5 {
		return 0
	}
	if w == 0 {
		return 1
	}
	avgLoss := lossSum / float64(losses)
	n := initialCapital * 0.5 / avgLoss
	return math.Min(math.Pow((1-w)/w, n), 1)
}

// Holding measures how many trades landed in the 3-10 day window and how
// shorter and longer trades fared.
func Holding(trades []model.ClosedTrade) HoldingStats {
	var h HoldingStats
	if len(trades) == 0 {
		return h
	}
	var quickWins, longWins int
	h.MinDurationDays = trades[0].DurationDays
	for _, t := range trades {
		d := t.DurationDays
		h.MeanDurationDays += float64(d)
		if d < h.MinDurationDays {
			h.MinDurationDays = d
		}
		if d > h.MaxDurationDays {
			h.MaxDurationDays = d
		}
		switch {
		case d < 3:
			h.QuickTrades++
			if t.RealizedPnL > 0 {
				quickWins++
			}
		case d > 10:
			h.LongTrades++
			if t.RealizedPnL > 0 {
				longWins++
			}
		default:
			h.TargetTrades++
		}
	}
	n := float64(len(trades))
	h.MeanDurationDays /= n
	h.TargetPct = float64(h.TargetTrades) / n * 100
	if h.QuickTrades > 0 {
		h.QuickWinRate = float64(quickWins) / float64(h.QuickTrades) * 100
	}
	if h.LongTrades > 0 {
		h.LongWinRate = float64(longWins) / float64(h.LongTrades) * 100
	}
	return h
}
