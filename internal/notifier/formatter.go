package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"SwingFilter/internal/model"
	"SwingFilter/internal/recorder"
	"SwingFilter/internal/report"
	"SwingFilter/internal/scanner"
)

// HelpText lists the bot commands.
const HelpText = "Available commands:\n" +
	"• /scan - run the watchlist scan now\n" +
	"• /scan BBCA BBRI - analyse specific tickers\n" +
	"• /regime - current IHSG market regime\n" +
	"• /runs - recent backtest runs"

func regimeIcon(r model.Regime) string {
	switch r {
	case model.RegimeRiskOn:
		return "🟢"
	case model.RegimeRiskOff:
		return "🔴"
	default:
		return "⚪"
	}
}

// FormatRegime formats the market context line.
func FormatRegime(m model.MarketContext, at time.Time) string {
	return fmt.Sprintf("%s <b>IHSG regime</b> | %s\n%s (risk-on: %v)",
		regimeIcon(m.Regime), at.Format("2006-01-02"), m.Regime, m.RiskOn)
}

// FormatSignal formats one analysed ticker.
func FormatSignal(sig model.Signal) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("<b>%s</b> %s\n", html.EscapeString(sig.Ticker), html.EscapeString(sig.Final)))
	b.WriteString(fmt.Sprintf("  Price: %s | RSI: %.1f | Vol: %.2fx\n", report.FormatPrice(sig.Price), sig.RSI, sig.VolRatio))
	if sig.IsSetup {
		b.WriteString(fmt.Sprintf("  SL: %s | TP: %s - %s\n",
			report.FormatPrice(sig.Risk.StopLoss),
			report.FormatPrice(sig.Risk.TakeProfitMin),
			report.FormatPrice(sig.Risk.TakeProfitMax)))
	}
	if sig.Levels.NearestSupport > 0 {
		b.WriteString(fmt.Sprintf("  S/R: %s / %s (%s)\n",
			report.FormatPrice(sig.Levels.NearestSupport),
			report.FormatPrice(sig.Levels.NearestResistance),
			html.EscapeString(sig.Levels.Label)))
	}
	b.WriteString(fmt.Sprintf("  Weekly: %s | Strategy: <b>%s</b> (%+d)\n", sig.Weekly.Trend, sig.Strategy, sig.Score))
	if len(sig.ContextReasons) > 0 {
		b.WriteString(fmt.Sprintf("  Context: %s\n", html.EscapeString(strings.Join(sig.ContextReasons, ", "))))
	}
	return b.String()
}

// FormatScan formats the daily scan digest.
func FormatScan(res *scanner.Result) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>SwingFilter scan</b> | %s\n", res.ScannedAt.Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("%s Market: %s\n\n", regimeIcon(res.Market.Regime), res.Market.Regime))

	if len(res.Signals) == 0 {
		b.WriteString("No setups found matching the criteria today.\n")
	}
	for _, sig := range res.Signals {
		b.WriteString(FormatSignal(sig))
		b.WriteString("\n")
	}
	b.WriteString(fmt.Sprintf("Scanned %d | setups %d", res.Scanned, len(res.Setups())))
	if len(res.Failures) > 0 {
		b.WriteString(fmt.Sprintf(" | failed %d", len(res.Failures)))
	}
	return b.String()
}

// FormatRuns lists stored backtest runs.
func FormatRuns(runs []recorder.RunRecord) string {
	if len(runs) == 0 {
		return "No backtest runs recorded yet."
	}
	var b strings.Builder
	b.WriteString("🧪 <b>Recent backtests</b>\n\n")
	for _, r := range runs {
		if r.Error != "" {
			b.WriteString(fmt.Sprintf("• %s → %s: %s\n", r.Start, r.End, html.EscapeString(r.Error)))
			continue
		}
		a := report.Assess(r.AvgWinRate, r.AvgProfitFactor, r.MaxDrawdown)
		b.WriteString(fmt.Sprintf("• %s → %s | %d trades | WR %.1f%% | PF %.2f | DD %.1f%% | <b>%s</b>\n",
			r.Start, r.End, r.TotalTrades, r.AvgWinRate, r.AvgProfitFactor, r.MaxDrawdown, a.Rating))
	}
	return b.String()
}
