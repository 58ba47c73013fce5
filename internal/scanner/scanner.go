// Package scanner runs the live signal pipeline over a watchlist: the market
// regime is resolved once, then every ticker is analysed on its own history.
package scanner

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"SwingFilter/internal/collector"
	"SwingFilter/internal/model"
	"SwingFilter/internal/strategy"
)

// DefaultLookback is the history fetched per ticker; weekly EMA30 needs
// well over a year of bars.
const DefaultLookback = 2 * 365 * 24 * time.Hour

// Options controls one scan.
type Options struct {
	MarketTicker string
	// ShowAll keeps every analysed ticker instead of setups only.
	ShowAll bool
}

// Failure records a ticker the scan could not analyse.
type Failure struct {
	Ticker string
	Err    string
}

// Result is the outcome of one scan.
type Result struct {
	ScannedAt time.Time
	Market    model.MarketContext
	Signals   []model.Signal
	Scanned   int
	Failures  []Failure
}

// Setups returns the signals flagged as entry setups.
func (r *Result) Setups() []model.Signal {
	var out []model.Signal
	for _, s := range r.Signals {
		if s.IsSetup {
			out = append(out, s)
		}
	}
	return out
}

// Scanner evaluates tickers as of the current date.
type Scanner struct {
	collector *collector.Collector
	params    strategy.Params
	logger    *zap.Logger
	now       func() time.Time
}

// New creates a Scanner over col.
func New(col *collector.Collector, p strategy.Params, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{collector: col, params: p, logger: logger, now: time.Now}
}

// Now returns the scan clock.
func (s *Scanner) Now() time.Time { return s.now() }

// Params returns the signal rules in use.
func (s *Scanner) Params() strategy.Params { return s.params }

// Regime fetches the index and classifies today's market. A disabled filter
// or a failed fetch yields UNKNOWN, risk-on.
func (s *Scanner) Regime(ctx context.Context, ticker string) model.MarketContext {
	unknown := model.MarketContext{Regime: model.RegimeUnknown, RiskOn: true}
	if !s.params.MarketEnabled || ticker == "" {
		return unknown
	}
	bars, err := s.collector.History(ctx, ticker, s.now())
	if err != nil {
		s.logger.Warn("market data unavailable", zap.String("ticker", ticker), zap.Error(err))
		return unknown
	}
	return strategy.MarketRegime(bars, s.params)
}

// Analyze evaluates a single ticker against an already resolved market context.
func (s *Scanner) Analyze(ctx context.Context, ticker string, market model.MarketContext) (model.Signal, error) {
	bars, err := s.collector.History(ctx, ticker, s.now())
	if err != nil {
		return model.Signal{}, err
	}
	return strategy.Evaluate(ticker, bars, market, s.params)
}

// Scan analyses tickers in order. Failing tickers are logged and skipped;
// only context cancellation aborts the scan.
func (s *Scanner) Scan(ctx context.Context, tickers []string, opts Options) (*Result, error) {
	res := &Result{ScannedAt: s.now(), Market: s.Regime(ctx, opts.MarketTicker)}
	s.logger.Info("scan started",
		zap.Int("tickers", len(tickers)),
		zap.String("market_regime", string(res.Market.Regime)),
	)

	for _, ticker := range tickers {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		sig, err := s.Analyze(ctx, ticker, res.Market)
		if err != nil {
			s.logger.Warn("ticker skipped", zap.String("ticker", ticker), zap.Error(err))
			res.Failures = append(res.Failures, Failure{Ticker: ticker, Err: err.Error()})
			continue
		}
		res.Scanned++
		if sig.IsSetup || opts.ShowAll {
			res.Signals = append(res.Signals, sig)
		}
	}

	s.logger.Info("scan complete",
		zap.Int("scanned", res.Scanned),
		zap.Int("setups", len(res.Setups())),
		zap.Int("failed", len(res.Failures)),
	)
	return res, nil
}
