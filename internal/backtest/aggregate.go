package backtest

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// ErrorNoResults is the aggregate error when every ticker failed.
const ErrorNoResults = "No valid backtest results"

// Failure records why a ticker was excluded.
type Failure struct {
	Ticker string
	Err    string
}

// Aggregate is the portfolio-level summary of a run.
type Aggregate struct {
	RunID             string
	Start             time.Time
	End               time.Time
	InitialCapital    float64
	TotalTrades       int
	AvgReturn         float64
	AvgWinRate        float64
	AvgProfitFactor   float64
	MaxDrawdown       float64
	AvgSharpe         float64
	SuccessfulTickers int
	TotalTickers      int
	Tickers           []TickerResult
	Failures          []Failure
	Error             string
}

// Period renders the date range.
func (a *Aggregate) Period() string {
	return a.Start.Format("2006-01-02") + " to " + a.End.Format("2006-01-02")
}

// Ticker returns the result for one ticker.
func (a *Aggregate) Ticker(name string) (TickerResult, bool) {
	for _, r := range a.Tickers {
		if r.Ticker == name {
			return r, true
		}
	}
	return TickerResult{}, false
}

// successWinRate is the win rate (percent) a ticker must beat to count as successful.
const successWinRate = 40

// Summarize folds per-ticker results. Infinite profit factors and NaN Sharpe
// ratios are left out of their averages.
func Summarize(results []TickerResult, opts Options, initialCapital float64) Aggregate {
	a := Aggregate{
		Start:          opts.Start,
		End:            opts.End,
		InitialCapital: initialCapital,
		Tickers:        results,
		TotalTickers:   len(results),
	}
	if len(results) == 0 {
		a.Error = ErrorNoResults
		return a
	}

	var returns, winRates, pfs, sharpes []float64
	for _, r := range results {
		a.TotalTrades += r.TotalTrades
		returns = append(returns, r.TotalReturnPct)
		winRates = append(winRates, r.WinRate)
		if !math.IsInf(r.ProfitFactor, 0) {
			pfs = append(pfs, r.ProfitFactor)
		}
		if !math.IsNaN(r.Sharpe) {
			sharpes = append(sharpes, r.Sharpe)
		}
		if r.MaxDrawdown > a.MaxDrawdown {
			a.MaxDrawdown = r.MaxDrawdown
		}
		if r.WinRate > successWinRate {
			a.SuccessfulTickers++
		}
	}
	a.AvgReturn = stat.Mean(returns, nil)
	a.AvgWinRate = stat.Mean(winRates, nil)
	if len(pfs) > 0 {
		a.AvgProfitFactor = stat.Mean(pfs, nil)
	}
	if len(sharpes) > 0 {
		a.AvgSharpe = stat.Mean(sharpes, nil)
	}
	return a
}
