package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"SwingFilter/internal/backtest"
	"SwingFilter/internal/collector"
	"SwingFilter/internal/config"
	"SwingFilter/internal/recorder"
	"SwingFilter/internal/report"
)

func main() {
	var (
		cfgPath    string
		tickersCSV string
		list       string
		start      string
		end        string
		sizing     string
		workers    int
		outCSV     string
		detail     string
		trades     bool
	)

	flag.StringVar(&cfgPath, "config", "configs/config.yaml", "config file")
	flag.StringVar(&tickersCSV, "tickers", "", "comma-separated tickers (overrides -list)")
	flag.StringVar(&list, "list", "", "watchlist name or file (default from config)")
	flag.StringVar(&start, "start", "", "start date (YYYY-MM-DD)")
	flag.StringVar(&end, "end", "", "end date (YYYY-MM-DD)")
	flag.StringVar(&sizing, "sizing", "", "position sizing: risk | fixed")
	flag.IntVar(&workers, "workers", 0, "tickers simulated in parallel")
	flag.StringVar(&outCSV, "csv", "", "optional: write trades to CSV")
	flag.StringVar(&detail, "detail", "", "print the detailed analysis of one ticker")
	flag.BoolVar(&trades, "trades", false, "print the trade log of every ticker")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if start != "" {
		cfg.Backtest.Start = start
	}
	if end != "" {
		cfg.Backtest.End = end
	}
	if sizing != "" {
		cfg.Backtest.Sizing = sizing
	}
	if workers > 0 {
		cfg.Backtest.Workers = workers
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validation: %v", err)
	}
	opts, err := cfg.BacktestOptions()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	logger, err := cfg.Logger()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	var tickers []string
	if tickersCSV != "" {
		for _, t := range strings.Split(tickersCSV, ",") {
			if t = collector.NormalizeTicker(t); t != "" {
				tickers = append(tickers, t)
			}
		}
	} else {
		name := list
		if name == "" {
			name = cfg.Watchlist.Default
		}
		tickers, err = collector.LoadWatchlist(cfg.Watchlist.Dir, name)
		if err != nil {
			logger.Fatal("load watchlist", zap.Error(err))
		}
	}
	if len(tickers) == 0 {
		fmt.Fprintln(os.Stderr, "error: no tickers to backtest")
		os.Exit(1)
	}

	fetcher, err := cfg.Fetcher()
	if err != nil {
		logger.Fatal("init fetcher", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	fmt.Printf("Backtest %s → %s  Tickers=%d  Sizing=%s  Source=%s\n\n",
		opts.Start.Format("2006-01-02"), opts.End.Format("2006-01-02"),
		len(tickers), opts.Sizing, fetcher.Name())

	engine := backtest.NewEngine(fetcher, cfg.StrategyParams(), cfg.PortfolioParams(), opts, logger)
	agg, err := engine.Run(ctx, tickers)
	if err != nil {
		logger.Fatal("backtest aborted", zap.Error(err))
	}

	fmt.Print(report.Summary(agg))

	if detail != "" {
		name := collector.NormalizeTicker(detail)
		if r, ok := agg.Ticker(name); ok {
			fmt.Println()
			fmt.Print(report.TickerDetail(r))
		} else {
			fmt.Printf("\nNo results for %s\n", name)
		}
	}
	if trades {
		for _, r := range agg.Tickers {
			fmt.Printf("\n%s TRADES:\n", r.Ticker)
			fmt.Print(report.TradeLog(r.Trades))
		}
	}

	if outCSV != "" {
		if err := report.ExportTrades(outCSV, agg); err != nil {
			fmt.Println("CSV write error:", err)
		} else {
			fmt.Println("\nWrote trades to:", outCSV)
		}
	}

	if cfg.Database.SQLitePath != "" {
		rec, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, logger)
		if err != nil {
			logger.Warn("init sqlite recorder failed, run not stored", zap.Error(err))
		} else {
			if err := rec.RecordBacktest(agg); err != nil {
				logger.Warn("record backtest", zap.Error(err))
			}
			rec.Close()
		}
	}

	if agg.Error != "" {
		os.Exit(1)
	}
}
