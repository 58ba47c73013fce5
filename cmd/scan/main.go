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
	"text/tabwriter"

	"go.uber.org/zap"

	"SwingFilter/internal/collector"
	"SwingFilter/internal/config"
	"SwingFilter/internal/model"
	"SwingFilter/internal/recorder"
	"SwingFilter/internal/report"
	"SwingFilter/internal/scanner"
)

func main() {
	var (
		cfgPath    string
		tickersCSV string
		list       string
		showLists  bool
		showAll    bool
	)

	flag.StringVar(&cfgPath, "config", "configs/config.yaml", "config file")
	flag.StringVar(&tickersCSV, "tickers", "", "comma-separated tickers (BBCA or BBCA.JK)")
	flag.StringVar(&list, "list", "", "watchlist name or file")
	flag.BoolVar(&showLists, "show-lists", false, "list available watchlists and exit")
	flag.BoolVar(&showAll, "all", false, "show every analysed ticker, not only setups")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validation: %v", err)
	}

	if showLists {
		names, err := collector.ListWatchlists(cfg.Watchlist.Dir)
		if err != nil {
			log.Fatalf("list watchlists: %v", err)
		}
		fmt.Println("Available watchlists:")
		for _, n := range names {
			tickers, err := collector.LoadWatchlist(cfg.Watchlist.Dir, n)
			if err != nil {
				fmt.Printf("  %-15s (unreadable: %v)\n", n, err)
				continue
			}
			fmt.Printf("  %-15s %d tickers\n", n, len(tickers))
		}
		return
	}

	logger, err := cfg.Logger()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	// Explicit tickers or a chosen list show every result.
	var tickers []string
	switch {
	case tickersCSV != "":
		for _, t := range strings.Split(tickersCSV, ",") {
			if t = collector.NormalizeTicker(t); t != "" {
				tickers = append(tickers, t)
			}
		}
		showAll = true
	case list != "":
		showAll = true
		fallthrough
	default:
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
		fmt.Fprintln(os.Stderr, "error: no tickers to scan")
		os.Exit(1)
	}

	fetcher, err := cfg.Fetcher()
	if err != nil {
		logger.Fatal("init fetcher", zap.Error(err))
	}
	sc := scanner.New(collector.NewCollector(fetcher, cfg.HistoryLookback(), logger), cfg.StrategyParams(), logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	res, err := sc.Scan(ctx, tickers, scanner.Options{MarketTicker: cfg.Strategy.Market.Ticker, ShowAll: showAll})
	if err != nil {
		logger.Fatal("scan", zap.Error(err))
	}
	printResult(res)

	if cfg.Database.SQLitePath != "" {
		rec, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, logger)
		if err != nil {
			logger.Warn("init sqlite recorder failed, scan not stored", zap.Error(err))
			return
		}
		defer rec.Close()
		if _, err := rec.RecordScan(res); err != nil {
			logger.Warn("record scan", zap.Error(err))
		}
	}
}

func printResult(res *scanner.Result) {
	fmt.Printf("SwingFilter scan %s | market %s (risk-on: %v)\n\n",
		res.ScannedAt.Format("2006-01-02"), res.Market.Regime, res.Market.RiskOn)

	if len(res.Signals) == 0 {
		fmt.Println("No setups found matching the criteria today.")
	} else {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TICKER\tSIGNAL\tPRICE\tRSI\tVOL\tSL\tTP\tWEEKLY\tSTRATEGY\tSCORE")
		for _, s := range res.Signals {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.1f\t%.2fx\t%s\t%s\t%s\t%s\t%+d\n",
				s.Ticker, s.Final, report.FormatPrice(s.Price), s.RSI, s.VolRatio,
				levelOrDash(s, s.Risk.StopLoss), levelOrDash(s, s.Risk.TakeProfitMin),
				s.Weekly.Trend, s.Strategy, s.Score)
		}
		w.Flush()
	}

	fmt.Printf("\nScanned %d | setups %d | failed %d\n", res.Scanned, len(res.Setups()), len(res.Failures))
	for _, f := range res.Failures {
		fmt.Printf("  %s: %s\n", f.Ticker, f.Err)
	}
}

func levelOrDash(s model.Signal, v float64) string {
	if !s.IsSetup {
		return "-"
	}
	return report.FormatPrice(v)
}
