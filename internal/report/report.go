// Package report renders backtest results as plain text and CSV.
package report

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"text/tabwriter"

	"SwingFilter/internal/backtest"
	"SwingFilter/internal/model"
)

// Ratings, best first.
const (
	RatingExcellent = "EXCELLENT"
	RatingGood      = "GOOD"
	RatingFair      = "FAIR"
	RatingPoor      = "POOR"
)

// Assessment grades a strategy on win rate, profit factor and drawdown.
type Assessment struct {
	Rating     string
	Points     int
	Strengths  []string
	Weaknesses []string
}

type band struct {
	min    float64
	points int
	label  string
	strong bool
}

var (
	winRateBands = []band{
		{55, 3, "High Win Rate", true},
		{45, 2, "Good Win Rate", true},
		{35, 1, "Moderate Win Rate", false},
		{math.Inf(-1), 0, "Low Win Rate", false},
	}
	profitFactorBands = []band{
		{2.0, 3, "Excellent Profit Factor", true},
		{1.5, 2, "Good Profit Factor", true},
		{1.2, 1, "Moderate Profit Factor", false},
		{math.Inf(-1), 0, "Poor Profit Factor", false},
	}
	// drawdown bands hold negated limits so lower drawdowns match first
	drawdownBands = []band{
		{-10, 2, "Low Drawdown", true},
		{-20, 1, "Moderate Drawdown", false},
		{math.Inf(-1), 0, "High Drawdown", false},
	}
)

func (a *Assessment) grade(bands []band, v float64) {
	for _, b := range bands {
		if v >= b.min {
			a.Points += b.points
			if b.strong {
				a.Strengths = append(a.Strengths, b.label)
			} else {
				a.Weaknesses = append(a.Weaknesses, b.label)
			}
			return
		}
	}
}

// Assess rates the averages of a run. maxDrawdown is in percent.
func Assess(winRate, profitFactor, maxDrawdown float64) Assessment {
	var a Assessment
	a.grade(winRateBands, winRate)
	a.grade(profitFactorBands, profitFactor)
	a.grade(drawdownBands, -maxDrawdown)

	switch {
	case a.Points >= 7:
		a.Rating = RatingExcellent
	case a.Points >= 5:
		a.Rating = RatingGood
	case a.Points >= 3:
		a.Rating = RatingFair
	default:
		a.Rating = RatingPoor
	}
	if len(a.Strengths) == 0 {
		a.Strengths = []string{"None identified"}
	}
	if len(a.Weaknesses) == 0 {
		a.Weaknesses = []string{"None identified"}
	}
	return a
}

// TopPerformers returns up to n results ordered by win rate, highest first.
func TopPerformers(results []backtest.TickerResult, n int) []backtest.TickerResult {
	out := append([]backtest.TickerResult(nil), results...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].WinRate > out[j].WinRate })
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func formatPF(pf float64) string {
	if math.IsInf(pf, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.2f", pf)
}

// Summary renders the run-level report.
func Summary(agg *backtest.Aggregate) string {
	if agg.Error != "" {
		return fmt.Sprintf("Error: %s\n", agg.Error)
	}
	var b strings.Builder
	b.WriteString("SWING TRADING BACKTEST REPORT\n")
	b.WriteString(strings.Repeat("=", 60) + "\n\n")
	fmt.Fprintf(&b, "Test Period:      %s\n", agg.Period())
	fmt.Fprintf(&b, "Initial Capital:  %s\n", FormatIDR(agg.InitialCapital))
	fmt.Fprintf(&b, "Total Tickers:    %d (%d successful)\n", agg.TotalTickers, agg.SuccessfulTickers)
	if agg.RunID != "" {
		fmt.Fprintf(&b, "Run ID:           %s\n", agg.RunID)
	}

	b.WriteString("\nPERFORMANCE METRICS:\n")
	fmt.Fprintf(&b, "├─ Total Trades:    %d\n", agg.TotalTrades)
	fmt.Fprintf(&b, "├─ Average Return:  %.2f%%\n", agg.AvgReturn)
	fmt.Fprintf(&b, "├─ Win Rate:        %.1f%%\n", agg.AvgWinRate)
	fmt.Fprintf(&b, "├─ Profit Factor:   %.2f\n", agg.AvgProfitFactor)
	fmt.Fprintf(&b, "├─ Max Drawdown:    %.2f%%\n", agg.MaxDrawdown)
	fmt.Fprintf(&b, "└─ Sharpe Ratio:    %.2f\n", agg.AvgSharpe)

	a := Assess(agg.AvgWinRate, agg.AvgProfitFactor, agg.MaxDrawdown)
	b.WriteString("\nSTRATEGY ASSESSMENT:\n")
	fmt.Fprintf(&b, "├─ Overall Rating:        %s\n", a.Rating)
	fmt.Fprintf(&b, "├─ Strengths:             %s\n", strings.Join(a.Strengths, ", "))
	fmt.Fprintf(&b, "└─ Areas for Improvement: %s\n", strings.Join(a.Weaknesses, ", "))

	if top := TopPerformers(agg.Tickers, 5); len(top) > 0 {
		b.WriteString("\nTOP PERFORMERS:\n")
		for _, r := range top {
			fmt.Fprintf(&b, "├─ %-10s Win Rate: %.1f%%, PF: %s, Trades: %d\n",
				r.Ticker, r.WinRate, formatPF(r.ProfitFactor), r.TotalTrades)
		}
	}
	if len(agg.Failures) > 0 {
		b.WriteString("\nSKIPPED:\n")
		for _, f := range agg.Failures {
			fmt.Fprintf(&b, "├─ %-10s %s\n", f.Ticker, f.Err)
		}
	}
	return b.String()
}

// TickerDetail renders the per-ticker breakdown with the last ten trades.
func TickerDetail(r backtest.TickerResult) string {
	if len(r.Trades) == 0 {
		return fmt.Sprintf("No trades found for %s\n", r.Ticker)
	}
	m := r.Metrics
	var b strings.Builder
	fmt.Fprintf(&b, "DETAILED ANALYSIS: %s\n", r.Ticker)
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	b.WriteString("TRADE STATISTICS:\n")
	fmt.Fprintf(&b, "├─ Total Trades:   %d\n", m.TotalTrades)
	fmt.Fprintf(&b, "├─ Winning Trades: %d\n", m.WinningTrades)
	fmt.Fprintf(&b, "├─ Losing Trades:  %d\n", m.LosingTrades)
	fmt.Fprintf(&b, "├─ Win Rate:       %.1f%%\n", m.WinRate)
	fmt.Fprintf(&b, "├─ Profit Factor:  %s\n", formatPF(m.ProfitFactor))
	fmt.Fprintf(&b, "├─ Average Win:    %s\n", FormatIDR(m.AvgWin))
	fmt.Fprintf(&b, "├─ Average Loss:   %s\n", FormatIDR(m.AvgLoss))
	fmt.Fprintf(&b, "└─ Expectancy:     %s\n", FormatIDR(m.Expectancy))

	b.WriteString("\nRISK METRICS:\n")
	fmt.Fprintf(&b, "├─ Total Return:    %.2f%%\n", r.TotalReturnPct)
	fmt.Fprintf(&b, "├─ Max Drawdown:    %.2f%%\n", r.MaxDrawdown)
	fmt.Fprintf(&b, "├─ Sharpe Ratio:    %.2f\n", r.Sharpe)
	fmt.Fprintf(&b, "├─ Recovery Factor: %.2f\n", m.Drawdown.RecoveryFactor)
	fmt.Fprintf(&b, "└─ Risk of Ruin:    %.2f%%\n", m.RiskOfRuin*100)

	h := m.Holding
	b.WriteString("\nSWING TRADING METRICS:\n")
	fmt.Fprintf(&b, "├─ Avg Holding Period:    %.1f days\n", h.MeanDurationDays)
	fmt.Fprintf(&b, "├─ Target Achievement:    %.1f%%\n", h.TargetPct)
	fmt.Fprintf(&b, "├─ Quick Trades Win Rate: %.1f%%\n", h.QuickWinRate)
	fmt.Fprintf(&b, "└─ Long Trades Win Rate:  %.1f%%\n", h.LongWinRate)

	recent := r.Trades
	if len(recent) > 10 {
		recent = recent[len(recent)-10:]
	}
	b.WriteString("\nRECENT TRADES (Last 10):\n")
	b.WriteString(TradeLog(recent))
	return b.String()
}

// TradeLog renders trades as an aligned table.
func TradeLog(trades []model.ClosedTrade) string {
	if len(trades) == 0 {
		return "No trades to display\n"
	}
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Entry\tExit\tEntry Price\tExit Price\tP&L\tP&L%\tReason")
	for _, t := range trades {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.2f%%\t%s\n",
			t.EntryTime.Format("2006-01-02"), t.ExitTime.Format("2006-01-02"),
			FormatPrice(t.EntryPrice), FormatPrice(t.ExitPrice),
			FormatIDR(t.RealizedPnL), t.PnLPct, t.ExitReason)
	}
	w.Flush()
	return b.String()
}
