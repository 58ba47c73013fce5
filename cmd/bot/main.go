package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"SwingFilter/internal/api"
	"SwingFilter/internal/collector"
	"SwingFilter/internal/config"
	"SwingFilter/internal/notifier"
	"SwingFilter/internal/recorder"
	"SwingFilter/internal/scanner"
	"SwingFilter/internal/scheduler"
)

func main() {
	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.ValidateBot(); err != nil {
		log.Fatalf("config validation: %v", err)
	}

	logger, err := cfg.Logger()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()
	logger.Info("SwingFilter bot starting")

	// Init fetcher
	fetcher, err := cfg.Fetcher()
	if err != nil {
		logger.Fatal("init fetcher", zap.Error(err))
	}
	logger.Info("data source", zap.String("name", fetcher.Name()))

	col := collector.NewCollector(fetcher, cfg.HistoryLookback(), logger)
	sc := scanner.New(col, cfg.StrategyParams(), logger)

	// Init Telegram notifier
	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, logger)

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, logger)
		if err != nil {
			logger.Warn("init sqlite recorder failed, using noop", zap.Error(err))
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watchlist := func() ([]string, error) {
		return collector.LoadWatchlist(cfg.Watchlist.Dir, cfg.Watchlist.Default)
	}
	marketTicker := cfg.Strategy.Market.Ticker

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, sc, tn, rec, watchlist, marketTicker, logger)
	if err := sched.RegisterAll(cfg.Schedule.DailyScan, cfg.Schedule.WeeklyDigest); err != nil {
		logger.Fatal("register cron tasks", zap.Error(err))
	}
	sched.Start()
	defer sched.Stop()

	// Start Telegram polling
	go tn.StartPolling(ctx, sched.HandleCommand)
	logger.Info("telegram polling started")

	// Start HTTP API
	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: api.NewServer(sc, rec, api.Options{
			WatchlistDir:     cfg.Watchlist.Dir,
			DefaultWatchlist: cfg.Watchlist.Default,
			MarketTicker:     marketTicker,
		}, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("http api listening", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http api stopped", zap.Error(err))
		}
	}()

	// Optional: run immediately on start
	if cfg.Schedule.RunOnStart {
		logger.Info("run_on_start enabled, executing daily scan now")
		go sched.RunScanNow()
	}

	logger.Info("SwingFilter is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutdown signal received, stopping")
	cancel()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	logger.Info("SwingFilter stopped")
}
