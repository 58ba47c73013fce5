package backtest

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"SwingFilter/internal/collector"
	"SwingFilter/internal/model"
	"SwingFilter/internal/portfolio"
	"SwingFilter/internal/strategy"
)

// Engine runs the walk-forward simulation across a watchlist.
type Engine struct {
	fetcher  collector.Fetcher
	strategy strategy.Params
	account  portfolio.Params
	opts     Options
	logger   *zap.Logger
}

// NewEngine creates an Engine. Params are copied and not changed during a run.
func NewEngine(fetcher collector.Fetcher, sp strategy.Params, pp portfolio.Params, opts Options, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Sizing == "" {
		opts.Sizing = SizingRisk
	}
	return &Engine{fetcher: fetcher, strategy: sp, account: pp, opts: opts, logger: logger}
}

// Options returns the run bounds.
func (e *Engine) Options() Options { return e.opts }

// Run backtests every ticker. Ticker failures are logged and excluded; the
// returned error is non-nil only when ctx is cancelled.
func (e *Engine) Run(ctx context.Context, tickers []string) (*Aggregate, error) {
	runID := uuid.NewString()
	log := e.logger.With(zap.String("run_id", runID))
	from := e.opts.Start.AddDate(0, 0, -e.opts.WarmupDays)

	var index []model.OHLCV
	if e.strategy.MarketEnabled && e.opts.MarketTicker != "" {
		bars, err := e.fetcher.FetchBars(ctx, e.opts.MarketTicker, from, e.opts.End)
		if err != nil {
			log.Warn("market index unavailable, regime treated as unknown",
				zap.String("ticker", e.opts.MarketTicker), zap.Error(err))
		} else {
			index = bars
		}
	}

	results := make([]*TickerResult, len(tickers))
	failures := make([]error, len(tickers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for i, ticker := range tickers {
		i, ticker := i, ticker
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := e.runTicker(gctx, ticker, from, index)
			if err != nil {
				failures[i] = err
				log.Warn("ticker skipped", zap.String("ticker", ticker), zap.Error(err))
				return nil
			}
			results[i] = &r
			log.Info("ticker done",
				zap.String("ticker", ticker),
				zap.Int("trades", r.TotalTrades),
				zap.Float64("win_rate", r.WinRate),
				zap.Float64("return_pct", r.TotalReturnPct),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var ok []TickerResult
	var failed []Failure
	for i, ticker := range tickers {
		if results[i] != nil {
			ok = append(ok, *results[i])
		} else if failures[i] != nil {
			failed = append(failed, Failure{Ticker: ticker, Err: failures[i].Error()})
		}
	}

	agg := Summarize(ok, e.opts, e.account.InitialCash)
	agg.RunID = runID
	agg.Failures = failed
	if agg.Error != "" {
		log.Error("backtest produced no results", zap.Int("failed", len(failed)))
	}
	return &agg, nil
}

// runTicker fetches and simulates one ticker. Panics become errors.
func (e *Engine) runTicker(ctx context.Context, ticker string, from time.Time, index []model.OHLCV) (r TickerResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			e.logger.Error("panic in ticker simulation",
				zap.String("ticker", ticker),
				zap.Any("panic", p),
				zap.ByteString("stack", debug.Stack()),
			)
			err = fmt.Errorf("%s: panic: %v", ticker, p)
		}
	}()

	bars, err := e.fetcher.FetchBars(ctx, ticker, from, e.opts.End)
	if err != nil {
		return TickerResult{}, fmt.Errorf("fetch: %w", err)
	}
	if len(bars) == 0 {
		return TickerResult{}, fmt.Errorf("%s: %w", ticker, collector.ErrNoData)
	}
	if err := collector.Validate(bars); err != nil {
		return TickerResult{}, err
	}
	return Simulate(ticker, bars, index, e.strategy, e.account, e.opts)
}
