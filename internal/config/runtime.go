package config

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"SwingFilter/internal/collector"
)

// Logger builds the zap logger for log.level. debug uses the development
// encoder; every other level uses the production JSON encoder.
func (c *Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(c.Log.Level))
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}
	if level == zapcore.DebugLevel {
		return zap.NewDevelopment()
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// Fetcher builds the configured price source. The Yahoo source is paced by
// a rate limiter when data_source.rate_limit is set.
func (c *Config) Fetcher() (collector.Fetcher, error) {
	switch c.DataSource.Source {
	case "", "yahoo":
		var limiter *collector.RateLimiter
		if c.DataSource.RateLimit {
			limiter = collector.NewRateLimiter(c.LimiterConfig())
		}
		f := collector.NewYahooFetcher(c.Proxy, limiter)
		if c.DataSource.BaseURL != "" {
			f.BaseURL = c.DataSource.BaseURL
		}
		return f, nil
	case "mock":
		return &collector.MockFetcher{Generate: true}, nil
	default:
		return nil, fmt.Errorf("data_source.source must be yahoo or mock, got %q", c.DataSource.Source)
	}
}
