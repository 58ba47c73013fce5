package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"SwingFilter/internal/backtest"
	"SwingFilter/internal/collector"
	"SwingFilter/internal/portfolio"
	"SwingFilter/internal/strategy"
)

// clearEnv unsets the override variables for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "HTTPS_PROXY", "SQLITE_PATH",
		"WATCHLIST", "BACKTEST_START", "BACKTEST_END", "INITIAL_CAPITAL",
		"CRON_DAILY_SCAN", "HTTP_ADDR", "LOG_LEVEL", "RUN_ON_START",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_DefaultsMatchCore(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "missing.yaml"), filepath.Join(dir, "missing.env"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if got := cfg.StrategyParams(); got != strategy.DefaultParams() {
		t.Errorf("strategy params differ from defaults:\n got %+v\nwant %+v", got, strategy.DefaultParams())
	}
	if got := cfg.PortfolioParams(); got != portfolio.DefaultParams() {
		t.Errorf("portfolio params differ from defaults:\n got %+v\nwant %+v", got, portfolio.DefaultParams())
	}
	opts, err := cfg.BacktestOptions()
	if err != nil {
		t.Fatal(err)
	}
	if opts != backtest.DefaultOptions() {
		t.Errorf("backtest options differ from defaults:\n got %+v\nwant %+v", opts, backtest.DefaultOptions())
	}
	if lc := cfg.LimiterConfig(); lc.MinDelay != 2*time.Second || lc.MaxDelay != 4*time.Second {
		t.Errorf("unexpected limiter delays %v-%v", lc.MinDelay, lc.MaxDelay)
	}
	if got := cfg.LimiterConfig(); got != collector.DefaultLimiterConfig() {
		t.Errorf("limiter config differs from defaults:\n got %+v\nwant %+v", got, collector.DefaultLimiterConfig())
	}
}

func TestLoad_YAMLKeepsUnsetDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
strategy:
  rsi_overbought: 70
  mtf:
    enabled: false
portfolio:
  initial_capital: 50000000
backtest:
  start: "2023-01-01"
  sizing: fixed
`)
	cfg, err := Load(path, filepath.Join(dir, "none.env"))
	if err != nil {
		t.Fatal(err)
	}
	sp := cfg.StrategyParams()
	if sp.RSIOverbought != 70 || sp.MTFEnabled {
		t.Errorf("yaml values not applied: %+v", sp)
	}
	if sp.Frame.SlowEMA != 34 || !sp.MarketEnabled || !sp.MTFRequiredForBuy {
		t.Errorf("unset fields lost their defaults: %+v", sp)
	}
	if cfg.PortfolioParams().InitialCash != 50_000_000 {
		t.Errorf("initial capital not applied")
	}
	opts, err := cfg.BacktestOptions()
	if err != nil {
		t.Fatal(err)
	}
	if opts.Sizing != backtest.SizingFixed || opts.Start.Year() != 2023 || opts.End.Year() != 2024 {
		t.Errorf("unexpected backtest options %+v", opts)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	env := writeFile(t, dir, ".env", "TELEGRAM_BOT_TOKEN=from-dotenv\nTELEGRAM_CHAT_ID=42\n")
	t.Setenv("INITIAL_CAPITAL", "250000000")
	t.Setenv("BACKTEST_START", "2021-06-01")
	t.Setenv("WATCHLIST", "lq45")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SQLITE_PATH", filepath.Join(dir, "x.db"))

	cfg, err := Load(filepath.Join(dir, "missing.yaml"), env)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name, got, want string
	}{
		{"bot token from .env", cfg.Telegram.BotToken, "from-dotenv"},
		{"chat id from .env", cfg.Telegram.ChatID, "42"},
		{"watchlist", cfg.Watchlist.Default, "lq45"},
		{"log level", cfg.Log.Level, "debug"},
		{"backtest start", cfg.Backtest.Start, "2021-06-01"},
		{"sqlite path", cfg.Database.SQLitePath, filepath.Join(dir, "x.db")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
	if cfg.Portfolio.InitialCapital != 250_000_000 {
		t.Errorf("INITIAL_CAPITAL not applied: %v", cfg.Portfolio.InitialCapital)
	}
	if err := cfg.ValidateBot(); err != nil {
		t.Errorf("expected bot config to validate: %v", err)
	}
}

func TestLoad_BadCapital(t *testing.T) {
	clearEnv(t)
	t.Setenv("INITIAL_CAPITAL", "lots")
	dir := t.TempDir()
	if _, err := Load(filepath.Join(dir, "missing.yaml"), filepath.Join(dir, "none.env")); err == nil {
		t.Fatal("expected parse error for INITIAL_CAPITAL")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"ema order", func(c *Config) { c.Strategy.FastEMA = 40 }},
		{"rsi bounds", func(c *Config) { c.Strategy.RSIWeak = 80 }},
		{"stop loss pct", func(c *Config) { c.Strategy.StopLossPct = 1.5 }},
		{"targets", func(c *Config) { c.Strategy.TargetMaxPct = 0.01 }},
		{"market mode", func(c *Config) { c.Strategy.Market.Mode = "SOFT" }},
		{"capital", func(c *Config) { c.Portfolio.InitialCapital = 0 }},
		{"risk per trade", func(c *Config) { c.Portfolio.RiskPerTrade = 2 }},
		{"lot size", func(c *Config) { c.Portfolio.LotSize = 0 }},
		{"date order", func(c *Config) { c.Backtest.End = "2021-01-01" }},
		{"bad date", func(c *Config) { c.Backtest.Start = "01/01/2022" }},
		{"sizing", func(c *Config) { c.Backtest.Sizing = "kelly" }},
		{"workers", func(c *Config) { c.Backtest.Workers = 0 }},
		{"source", func(c *Config) { c.DataSource.Source = "csv" }},
		{"delays", func(c *Config) { c.DataSource.MaxDelaySec = 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			if err := c.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidateBot(t *testing.T) {
	c := Default()
	if err := c.ValidateBot(); err == nil {
		t.Fatal("expected missing token error")
	}
	c.Telegram.BotToken, c.Telegram.ChatID = "t", "1"
	c.Schedule.DailyScan = "not a cron"
	if err := c.ValidateBot(); err == nil {
		t.Fatal("expected cron parse error")
	}
	c.Schedule.DailyScan = "0 30 16 * * 1-5"
	if err := c.ValidateBot(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLogger_Levels(t *testing.T) {
	tests := []struct {
		level string
		ok    bool
	}{
		{"debug", true},
		{"INFO", true},
		{"warn", true},
		{"loud", false},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			c := Default()
			c.Log.Level = tt.level
			logger, err := c.Logger()
			if (err == nil) != tt.ok {
				t.Fatalf("level %q: err = %v", tt.level, err)
			}
			if logger != nil {
				_ = logger.Sync()
			}
		})
	}
}

func TestFetcher_Source(t *testing.T) {
	c := Default()
	c.DataSource.BaseURL = "http://127.0.0.1:9/chart"
	f, err := c.Fetcher()
	if err != nil {
		t.Fatalf("yahoo: %v", err)
	}
	yf, ok := f.(*collector.YahooFetcher)
	if !ok || yf.BaseURL != c.DataSource.BaseURL || yf.Limiter == nil {
		t.Errorf("unexpected yahoo fetcher %+v", f)
	}

	c.DataSource.Source = "mock"
	if f, err = c.Fetcher(); err != nil || f.Name() != "mock" {
		t.Errorf("mock: %v %v", f, err)
	}

	c.DataSource.Source = "csv"
	if _, err := c.Fetcher(); err == nil {
		t.Error("expected unknown source error")
	}
}
