package scheduler

import (
	"context"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"SwingFilter/internal/collector"
	"SwingFilter/internal/notifier"
	"SwingFilter/internal/recorder"
	"SwingFilter/internal/scanner"
)

// Sender delivers a formatted message.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// WatchlistFunc returns the tickers of the scheduled scan.
type WatchlistFunc func() ([]string, error)

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron         *cron.Cron
	Scanner      *scanner.Scanner
	Notifier     Sender
	Recorder     recorder.Recorder
	Watchlist    WatchlistFunc
	MarketTicker string
	Ctx          context.Context

	logger *zap.Logger
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, sc *scanner.Scanner, n Sender, rec recorder.Recorder, wl WatchlistFunc, marketTicker string, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		Cron:         cron.New(cron.WithSeconds()),
		Scanner:      sc,
		Notifier:     n,
		Recorder:     rec,
		Watchlist:    wl,
		MarketTicker: marketTicker,
		Ctx:          ctx,
		logger:       logger,
	}
}

// RegisterAll registers the daily scan and the weekly regime digest.
func (s *Scheduler) RegisterAll(dailyCron, weeklyCron string) error {
	if _, err := s.Cron.AddFunc(dailyCron, s.dailyScan); err != nil {
		return fmt.Errorf("register daily scan: %w", err)
	}
	if _, err := s.Cron.AddFunc(weeklyCron, s.weeklyDigest); err != nil {
		return fmt.Errorf("register weekly digest: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// RunScanNow executes the daily scan immediately (for RUN_ON_START).
func (s *Scheduler) RunScanNow() {
	s.dailyScan()
}

// scan runs and records a scan over tickers.
func (s *Scheduler) scan(ctx context.Context, tickers []string, showAll bool) (*scanner.Result, error) {
	res, err := s.Scanner.Scan(ctx, tickers, scanner.Options{MarketTicker: s.MarketTicker, ShowAll: showAll})
	if err != nil {
		return nil, err
	}
	if _, err := s.Recorder.RecordScan(res); err != nil {
		s.logger.Error("record scan", zap.Error(err))
	}
	return res, nil
}

func (s *Scheduler) dailyScan() {
	s.logger.Info("running daily scan")
	tickers, err := s.Watchlist()
	if err != nil {
		s.logger.Error("load watchlist", zap.Error(err))
		s.trySend(fmt.Sprintf("❌ Watchlist unavailable: %v", err))
		return
	}
	res, err := s.scan(s.Ctx, tickers, false)
	if err != nil {
		s.logger.Error("daily scan", zap.Error(err))
		return
	}
	s.trySend(notifier.FormatScan(res))
}

func (s *Scheduler) weeklyDigest() {
	s.logger.Info("running weekly digest")
	s.trySend(s.regimeDigest(s.Ctx))
}

func (s *Scheduler) regimeDigest(ctx context.Context) string {
	m := s.Scanner.Regime(ctx, s.MarketTicker)
	msg := notifier.FormatRegime(m, s.Scanner.Now())
	runs, err := s.Recorder.ListRuns(3)
	if err != nil {
		s.logger.Error("list runs", zap.Error(err))
		return msg
	}
	if len(runs) > 0 {
		msg += "\n\n" + notifier.FormatRuns(runs)
	}
	return msg
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.HelpText
	}
	switch strings.ToLower(fields[0]) {
	case "/scan":
		tickers, showAll := fields[1:], true
		if len(tickers) == 0 {
			wl, err := s.Watchlist()
			if err != nil {
				return fmt.Sprintf("❌ Watchlist unavailable: %v", err)
			}
			tickers, showAll = wl, false
		} else {
			for i, t := range tickers {
				tickers[i] = collector.NormalizeTicker(t)
			}
		}
		res, err := s.scan(ctx, tickers, showAll)
		if err != nil {
			return fmt.Sprintf("❌ Scan failed: %v", err)
		}
		return notifier.FormatScan(res)
	case "/regime":
		return s.regimeDigest(ctx)
	case "/runs":
		runs, err := s.Recorder.ListRuns(5)
		if err != nil {
			return fmt.Sprintf("❌ %v", err)
		}
		return notifier.FormatRuns(runs)
	default:
		return notifier.HelpText
	}
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.logger.Error("send notification", zap.Error(err))
	}
}
