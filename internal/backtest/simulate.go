package backtest

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"SwingFilter/internal/calculator"
	"SwingFilter/internal/metrics"
	"SwingFilter/internal/model"
	"SwingFilter/internal/portfolio"
	"SwingFilter/internal/strategy"
)

// Sizing selects the position sizing rule used on entry.
type Sizing string

const (
	// SizingRisk risks a fixed share of equity over the stop distance.
	SizingRisk Sizing = "risk"
	// SizingFixed allocates equity x risk x reward multiple.
	SizingFixed Sizing = "fixed"
)

// Options bound one backtest run.
type Options struct {
	Start        time.Time
	End          time.Time
	WarmupDays   int
	MarketTicker string
	Workers      int
	Sizing       Sizing
}

// DefaultOptions returns the standard 2022-2024 run.
func DefaultOptions() Options {
	return Options{
		Start:        time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
		End:          time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		WarmupDays:   400,
		MarketTicker: "^JKSE",
		Workers:      1,
		Sizing:       SizingRisk,
	}
}

var errNoDaysInRange = errors.New("no bars inside the backtest range")

// TickerResult is the outcome of simulating one ticker.
type TickerResult struct {
	Ticker         string
	Trades         []model.ClosedTrade
	EquityCurve    []model.EquityPoint
	Ledger         []model.LedgerEntry
	OpenPositions  []model.Position
	TotalTrades    int
	WinRate        float64
	ProfitFactor   float64
	FinalEquity    float64
	TotalReturnPct float64
	MaxDrawdown    float64
	Sharpe         float64
	AvgDuration    float64
	Summary        portfolio.Summary
	Metrics        metrics.Report
}

// marketAt resolves the regime from the index bars dated on or before day.
func marketAt(index []model.OHLCV, regimes []model.MarketContext, day time.Time) model.MarketContext {
	k := sort.Search(len(index), func(i int) bool { return index[i].Time.After(day) }) - 1
	if k < 0 {
		return model.MarketContext{Regime: model.RegimeUnknown, RiskOn: true}
	}
	return regimes[k]
}

// entryAllowed applies the extra backtest filters on top of a setup.
func entryAllowed(sig model.Signal, sp strategy.Params) bool {
	if sig.RSI > sp.RSIOverbought || sig.RSI < sp.RSIWeak {
		return false
	}
	return sig.VolRatio >= sp.VolRatioMin
}

// Simulate walks bars day by day over [opts.Start, opts.End]. Each day's
// signal sees only bars and index bars dated on or before that day.
func Simulate(ticker string, bars, index []model.OHLCV, sp strategy.Params, pp portfolio.Params, opts Options) (TickerResult, error) {
	frame := calculator.NewFrame(bars, sp.Frame)
	var regimes []model.MarketContext
	if sp.MarketEnabled {
		regimes = strategy.MarketRegimeSeries(index, sp)
	}
	pf := portfolio.New(pp)
	lot := pf.Params().LotSize
	start, end := opts.Start, opts.End
	simulated := 0

	for i := range bars {
		day := bars[i].Time
		if day.Before(start) || day.After(end) {
			continue
		}
		simulated++
		d, err := strategy.EvaluateDaily(frame.Upto(i), sp)
		if errors.Is(err, strategy.ErrInsufficientData) {
			continue
		}
		if err != nil {
			return TickerResult{}, err
		}

		weekly := model.WeeklyContext{Trend: model.TrendUnknown, Aligned: true}
		if sp.ContextEnabled() {
			weekly = strategy.WeeklyTrend(calculator.ToWeekly(bars[:i+1]), sp)
		}
		market := model.MarketContext{Regime: model.RegimeUnknown, RiskOn: true}
		if sp.MarketEnabled {
			market = marketAt(index, regimes, day)
		}
		sig := strategy.NewSignal(ticker, d, weekly, market, sp)
		price := sig.Price

		if sig.IsSetup && !pf.HasPosition(ticker) && entryAllowed(sig, sp) {
			var shares int64
			if opts.Sizing == SizingFixed {
				shares = pf.SizeFixedFraction(price)
			} else {
				shares = pf.SizeRiskBased(price, sig.Risk.StopLoss, sig.AvgVolume)
			}
			if shares >= lot && pf.CanOpen(ticker, float64(shares)*price) {
				if _, err := pf.Open(ticker, shares, price, sig.Risk.StopLoss, sig.Risk.TakeProfitMin, day); err != nil {
					return TickerResult{}, fmt.Errorf("open on %s: %w", day.Format("2006-01-02"), err)
				}
			}
		}

		if reason, ok := pf.CheckExit(ticker, price); ok {
			if _, err := pf.Close(ticker, price, day, reason); err != nil {
				return TickerResult{}, fmt.Errorf("close on %s: %w", day.Format("2006-01-02"), err)
			}
		}

		pf.MarkToMarket(map[string]float64{ticker: price}, day)
	}
	if simulated == 0 {
		return TickerResult{}, errNoDaysInRange
	}

	trades := pf.ClosedTrades()
	curve := pf.EquityCurve()
	r := TickerResult{
		Ticker:        ticker,
		Trades:        trades,
		EquityCurve:   curve,
		Ledger:        pf.Ledger(),
		OpenPositions: pf.Positions(),
		TotalTrades:   len(trades),
		WinRate:       metrics.WinRate(trades),
		ProfitFactor:  metrics.ProfitFactor(trades),
		FinalEquity:   pf.Equity(),
		MaxDrawdown:   pf.MaxDrawdown(),
		Sharpe:        metrics.EquitySharpe(curve),
		Summary:       pf.Summary(),
		Metrics:       metrics.Compute(trades, curve, pp.InitialCash),
	}
	if pp.InitialCash > 0 {
		r.TotalReturnPct = (r.FinalEquity - pp.InitialCash) / pp.InitialCash * 100
	}
	if len(trades) > 0 {
		total := 0
		for _, t := range trades {
			total += t.DurationDays
		}
		r.AvgDuration = float64(total) / float64(len(trades))
	}
	return r, nil
}
