package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"SwingFilter/internal/backtest"
	"SwingFilter/internal/calculator"
	"SwingFilter/internal/collector"
	"SwingFilter/internal/portfolio"
	"SwingFilter/internal/strategy"
)

const dateLayout = "2006-01-02"

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	DataSource struct {
		Source             string  `yaml:"source"` // yahoo or mock
		BaseURL            string  `yaml:"base_url"`
		RateLimit          bool    `yaml:"rate_limit"`
		MinDelaySec        float64 `yaml:"min_delay_sec"`
		MaxDelaySec        float64 `yaml:"max_delay_sec"`
		MaxRetries         int     `yaml:"max_retries"`
		BackoffBase        float64 `yaml:"backoff_base"`
		CircuitThreshold   int     `yaml:"circuit_threshold"`
		CircuitCooldownSec float64 `yaml:"circuit_cooldown_sec"`
		HistoryDays        int     `yaml:"history_days"`
	} `yaml:"data_source"`
	Watchlist struct {
		Dir     string `yaml:"dir"`
		Default string `yaml:"default"`
	} `yaml:"watchlist"`
	Strategy struct {
		FastEMA         int     `yaml:"fast_ema"`
		SlowEMA         int     `yaml:"slow_ema"`
		RSIPeriod       int     `yaml:"rsi_period"`
		ATRPeriod       int     `yaml:"atr_period"`
		MACDFast        int     `yaml:"macd_fast"`
		MACDSlow        int     `yaml:"macd_slow"`
		MACDSignal      int     `yaml:"macd_signal"`
		VolumeAvgPeriod int     `yaml:"volume_avg_period"`
		RSIOverbought   float64 `yaml:"rsi_overbought"`
		RSIWeak         float64 `yaml:"rsi_weak"`
		VolumeStrict    bool    `yaml:"volume_strict"`
		VolRatioMin     float64 `yaml:"vol_ratio_min"`
		ATRMultiplier   float64 `yaml:"atr_multiplier"`
		StopLossPct     float64 `yaml:"stop_loss_pct"`
		TargetMinPct    float64 `yaml:"target_min_pct"`
		TargetMaxPct    float64 `yaml:"target_max_pct"`
		SwingLookback   int     `yaml:"swing_lookback"`
		MTF             struct {
			Enabled        bool `yaml:"enabled"`
			RequiredForBuy bool `yaml:"required_for_buy"`
			FastEMA        int  `yaml:"fast_ema"`
			SlowEMA        int  `yaml:"slow_ema"`
		} `yaml:"mtf"`
		Market struct {
			Enabled bool   `yaml:"enabled"`
			Ticker  string `yaml:"ticker"`
			FastEMA int    `yaml:"fast_ema"`
			SlowEMA int    `yaml:"slow_ema"`
			Mode    string `yaml:"mode"`
		} `yaml:"market"`
	} `yaml:"strategy"`
	Portfolio struct {
		InitialCapital         float64 `yaml:"initial_capital"`
		CommissionRate         float64 `yaml:"commission_rate"`
		RiskPerTrade           float64 `yaml:"risk_per_trade"`
		MaxPositionExposure    float64 `yaml:"max_position_exposure"`
		MaxConcurrent          int     `yaml:"max_concurrent"`
		MaxTotalExposure       float64 `yaml:"max_total_exposure"`
		MaxVolumeParticipation float64 `yaml:"max_volume_participation"`
		LotSize                int64   `yaml:"lot_size"`
		RewardMultiple         float64 `yaml:"reward_multiple"`
	} `yaml:"portfolio"`
	Backtest struct {
		Start      string `yaml:"start"`
		End        string `yaml:"end"`
		WarmupDays int    `yaml:"warmup_days"`
		Workers    int    `yaml:"workers"`
		Sizing     string `yaml:"sizing"`
	} `yaml:"backtest"`
	Schedule struct {
		DailyScan    string `yaml:"daily_scan"`
		WeeklyDigest string `yaml:"weekly_digest"`
		RunOnStart   bool   `yaml:"run_on_start"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Default returns the configuration used when no file sets a field.
func Default() *Config {
	cfg := &Config{}

	sp := strategy.DefaultParams()
	s := &cfg.Strategy
	s.FastEMA, s.SlowEMA = sp.Frame.FastEMA, sp.Frame.SlowEMA
	s.RSIPeriod, s.ATRPeriod = sp.Frame.RSIPeriod, sp.Frame.ATRPeriod
	s.MACDFast, s.MACDSlow, s.MACDSignal = sp.Frame.MACDFast, sp.Frame.MACDSlow, sp.Frame.MACDSignal
	s.VolumeAvgPeriod = sp.Frame.VolumeAvgN
	s.RSIOverbought, s.RSIWeak = sp.RSIOverbought, sp.RSIWeak
	s.VolumeStrict, s.VolRatioMin = sp.VolumeStrict, sp.VolRatioMin
	s.ATRMultiplier, s.StopLossPct = sp.ATRMultiplier, sp.StopLossPct
	s.TargetMinPct, s.TargetMaxPct = sp.TargetMinPct, sp.TargetMaxPct
	s.SwingLookback = sp.SwingLookback
	s.MTF.Enabled, s.MTF.RequiredForBuy = sp.MTFEnabled, sp.MTFRequiredForBuy
	s.MTF.FastEMA, s.MTF.SlowEMA = sp.WeeklyFastEMA, sp.WeeklySlowEMA
	s.Market.Enabled, s.Market.Ticker = sp.MarketEnabled, "^JKSE"
	s.Market.FastEMA, s.Market.SlowEMA = sp.MarketFastEMA, sp.MarketSlowEMA
	s.Market.Mode = string(sp.MarketMode)

	pp := portfolio.DefaultParams()
	p := &cfg.Portfolio
	p.InitialCapital, p.CommissionRate = pp.InitialCash, pp.CommissionRate
	p.RiskPerTrade, p.MaxPositionExposure = pp.RiskPerTrade, pp.MaxPositionExposure
	p.MaxConcurrent, p.MaxTotalExposure = pp.MaxConcurrent, pp.MaxTotalExposure
	p.MaxVolumeParticipation, p.LotSize = pp.MaxVolumeParticipation, pp.LotSize
	p.RewardMultiple = pp.RewardMultiple

	bo := backtest.DefaultOptions()
	cfg.Backtest.Start = bo.Start.Format(dateLayout)
	cfg.Backtest.End = bo.End.Format(dateLayout)
	cfg.Backtest.WarmupDays = bo.WarmupDays
	cfg.Backtest.Workers = bo.Workers
	cfg.Backtest.Sizing = string(bo.Sizing)

	lc := collector.DefaultLimiterConfig()
	ds := &cfg.DataSource
	ds.Source = "yahoo"
	ds.RateLimit = lc.Enabled
	ds.MinDelaySec, ds.MaxDelaySec = lc.MinDelay.Seconds(), lc.MaxDelay.Seconds()
	ds.MaxRetries, ds.BackoffBase = lc.MaxRetries, lc.BackoffBase
	ds.CircuitThreshold = lc.MaxConsecutive429
	ds.CircuitCooldownSec = lc.BreakerCooldown.Seconds()
	ds.HistoryDays = 730

	cfg.Watchlist.Dir = "watchlists"
	cfg.Watchlist.Default = "default"
	cfg.Schedule.DailyScan = "0 30 16 * * 1-5"
	cfg.Schedule.WeeklyDigest = "0 0 8 * * 1"
	cfg.Database.SQLitePath = "data/swingfilter.db"
	cfg.HTTP.Addr = ":8080"
	cfg.Log.Level = "info"
	return cfg
}

// Load reads config from a YAML file on top of Default, then applies
// environment variable overrides. Variables from envFiles (".env" when none
// are given) are loaded first and never replace ones already set. Missing
// files are ignored.
func Load(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("WATCHLIST"); v != "" {
		cfg.Watchlist.Default = v
	}
	if v := os.Getenv("BACKTEST_START"); v != "" {
		cfg.Backtest.Start = v
	}
	if v := os.Getenv("BACKTEST_END"); v != "" {
		cfg.Backtest.End = v
	}
	if v := os.Getenv("INITIAL_CAPITAL"); v != "" {
		capital, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("INITIAL_CAPITAL: %w", err)
		}
		cfg.Portfolio.InitialCapital = capital
	}
	if v := os.Getenv("CRON_DAILY_SCAN"); v != "" {
		cfg.Schedule.DailyScan = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("RUN_ON_START"); v != "" {
		cfg.Schedule.RunOnStart = v == "true"
	}

	return cfg, nil
}

// Validate checks value ranges shared by every binary.
func (c *Config) Validate() error {
	s := c.Strategy
	if s.FastEMA <= 0 || s.SlowEMA <= s.FastEMA {
		return fmt.Errorf("strategy: fast_ema must be positive and below slow_ema")
	}
	if s.RSIPeriod <= 0 || s.ATRPeriod <= 0 || s.VolumeAvgPeriod <= 0 {
		return fmt.Errorf("strategy: indicator periods must be positive")
	}
	if s.MACDFast <= 0 || s.MACDSlow <= s.MACDFast || s.MACDSignal <= 0 {
		return fmt.Errorf("strategy: invalid MACD periods %d/%d/%d", s.MACDFast, s.MACDSlow, s.MACDSignal)
	}
	if s.RSIWeak < 0 || s.RSIOverbought > 100 || s.RSIWeak >= s.RSIOverbought {
		return fmt.Errorf("strategy: rsi_weak must be below rsi_overbought within 0-100")
	}
	if s.StopLossPct <= 0 || s.StopLossPct >= 1 {
		return fmt.Errorf("strategy.stop_loss_pct must be in (0, 1)")
	}
	if s.TargetMinPct <= 0 || s.TargetMaxPct < s.TargetMinPct {
		return fmt.Errorf("strategy: target_min_pct must be positive and not above target_max_pct")
	}
	if s.MTF.Enabled && (s.MTF.FastEMA <= 0 || s.MTF.SlowEMA <= s.MTF.FastEMA) {
		return fmt.Errorf("strategy.mtf: fast_ema must be positive and below slow_ema")
	}
	if s.Market.Enabled && (s.Market.FastEMA <= 0 || s.Market.SlowEMA <= s.Market.FastEMA) {
		return fmt.Errorf("strategy.market: fast_ema must be positive and below slow_ema")
	}
	switch strategy.FilterMode(s.Market.Mode) {
	case strategy.FilterTag, strategy.FilterBlock:
	default:
		return fmt.Errorf("strategy.market.mode must be TAG or BLOCK, got %q", s.Market.Mode)
	}

	p := c.Portfolio
	if p.InitialCapital <= 0 {
		return fmt.Errorf("portfolio.initial_capital must be positive")
	}
	if p.CommissionRate < 0 || p.CommissionRate >= 1 {
		return fmt.Errorf("portfolio.commission_rate must be in [0, 1)")
	}
	for name, v := range map[string]float64{
		"risk_per_trade":           p.RiskPerTrade,
		"max_position_exposure":    p.MaxPositionExposure,
		"max_total_exposure":       p.MaxTotalExposure,
		"max_volume_participation": p.MaxVolumeParticipation,
	} {
		if v <= 0 || v > 1 {
			return fmt.Errorf("portfolio.%s must be in (0, 1]", name)
		}
	}
	if p.MaxConcurrent <= 0 || p.LotSize <= 0 {
		return fmt.Errorf("portfolio: max_concurrent and lot_size must be positive")
	}

	if _, err := c.BacktestOptions(); err != nil {
		return err
	}

	switch c.DataSource.Source {
	case "yahoo", "mock":
	default:
		return fmt.Errorf("data_source.source must be yahoo or mock, got %q", c.DataSource.Source)
	}
	if c.DataSource.MinDelaySec < 0 || c.DataSource.MaxDelaySec < c.DataSource.MinDelaySec {
		return fmt.Errorf("data_source: delays must satisfy 0 <= min_delay_sec <= max_delay_sec")
	}
	return nil
}

// ValidateBot additionally checks the fields the Telegram bot needs.
func (c *Config) ValidateBot() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required")
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	for name, spec := range map[string]string{
		"daily_scan":    c.Schedule.DailyScan,
		"weekly_digest": c.Schedule.WeeklyDigest,
	} {
		if _, err := parser.Parse(spec); err != nil {
			return fmt.Errorf("schedule.%s: %w", name, err)
		}
	}
	return nil
}

// StrategyParams converts the strategy section.
func (c *Config) StrategyParams() strategy.Params {
	s := c.Strategy
	return strategy.Params{
		Frame: calculator.FrameParams{
			FastEMA:    s.FastEMA,
			SlowEMA:    s.SlowEMA,
			RSIPeriod:  s.RSIPeriod,
			ATRPeriod:  s.ATRPeriod,
			MACDFast:   s.MACDFast,
			MACDSlow:   s.MACDSlow,
			MACDSignal: s.MACDSignal,
			VolumeAvgN: s.VolumeAvgPeriod,
		},
		RSIOverbought:     s.RSIOverbought,
		RSIWeak:           s.RSIWeak,
		VolumeStrict:      s.VolumeStrict,
		VolRatioMin:       s.VolRatioMin,
		ATRMultiplier:     s.ATRMultiplier,
		StopLossPct:       s.StopLossPct,
		TargetMinPct:      s.TargetMinPct,
		TargetMaxPct:      s.TargetMaxPct,
		SwingLookback:     s.SwingLookback,
		MTFEnabled:        s.MTF.Enabled,
		MTFRequiredForBuy: s.MTF.RequiredForBuy,
		WeeklyFastEMA:     s.MTF.FastEMA,
		WeeklySlowEMA:     s.MTF.SlowEMA,
		MarketEnabled:     s.Market.Enabled,
		MarketFastEMA:     s.Market.FastEMA,
		MarketSlowEMA:     s.Market.SlowEMA,
		MarketMode:        strategy.FilterMode(s.Market.Mode),
	}
}

// PortfolioParams converts the portfolio section.
func (c *Config) PortfolioParams() portfolio.Params {
	p := c.Portfolio
	return portfolio.Params{
		InitialCash:            p.InitialCapital,
		CommissionRate:         p.CommissionRate,
		RiskPerTrade:           p.RiskPerTrade,
		MaxPositionExposure:    p.MaxPositionExposure,
		MaxConcurrent:          p.MaxConcurrent,
		MaxTotalExposure:       p.MaxTotalExposure,
		MaxVolumeParticipation: p.MaxVolumeParticipation,
		LotSize:                p.LotSize,
		RewardMultiple:         p.RewardMultiple,
	}
}

// BacktestOptions converts the backtest section.
func (c *Config) BacktestOptions() (backtest.Options, error) {
	b := c.Backtest
	start, err := time.Parse(dateLayout, b.Start)
	if err != nil {
		return backtest.Options{}, fmt.Errorf("backtest.start: %w", err)
	}
	end, err := time.Parse(dateLayout, b.End)
	if err != nil {
		return backtest.Options{}, fmt.Errorf("backtest.end: %w", err)
	}
	if !start.Before(end) {
		return backtest.Options{}, fmt.Errorf("backtest: start %s must be before end %s", b.Start, b.End)
	}
	if b.WarmupDays < 0 || b.Workers < 1 {
		return backtest.Options{}, fmt.Errorf("backtest: warmup_days must be >= 0 and workers >= 1")
	}
	sizing := backtest.Sizing(b.Sizing)
	if sizing != backtest.SizingRisk && sizing != backtest.SizingFixed {
		return backtest.Options{}, fmt.Errorf("backtest.sizing must be risk or fixed, got %q", b.Sizing)
	}
	return backtest.Options{
		Start:        start,
		End:          end,
		WarmupDays:   b.WarmupDays,
		MarketTicker: c.Strategy.Market.Ticker,
		Workers:      b.Workers,
		Sizing:       sizing,
	}, nil
}

// LimiterConfig converts the data source pacing settings.
func (c *Config) LimiterConfig() collector.LimiterConfig {
	ds := c.DataSource
	return collector.LimiterConfig{
		Enabled:           ds.RateLimit,
		MinDelay:          time.Duration(ds.MinDelaySec * float64(time.Second)),
		MaxDelay:          time.Duration(ds.MaxDelaySec * float64(time.Second)),
		MaxRetries:        ds.MaxRetries,
		BackoffBase:       ds.BackoffBase,
		MaxConsecutive429: ds.CircuitThreshold,
		BreakerCooldown:   time.Duration(ds.CircuitCooldownSec * float64(time.Second)),
	}
}

// HistoryLookback is the span fetched per ticker by the live scanner.
func (c *Config) HistoryLookback() time.Duration {
	return time.Duration(c.DataSource.HistoryDays) * 24 * time.Hour
}
