package collector

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"SwingFilter/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
// Symbols without explicit bars get a deterministic generated series.
type MockFetcher struct {
	Price    float64
	Bars     map[string][]model.OHLCV
	Errors   map[string]error
	Generate bool

	mu    sync.Mutex
	calls map[string]int
}

func (m *MockFetcher) Name() string { return "mock" }

// Calls reports how many times symbol was fetched.
func (m *MockFetcher) Calls(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[symbol]
}

func (m *MockFetcher) FetchBars(ctx context.Context, symbol string, start, end time.Time) ([]model.OHLCV, error) {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[symbol]++
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := m.Errors[symbol]; ok {
		return nil, err
	}
	bars, ok := m.Bars[symbol]
	if !ok && m.Generate {
		bars = GenerateBars(symbol, m.Price, start, end)
	}
	bars = clip(bars, start, end)
	if len(bars) == 0 {
		return nil, fmt.Errorf("mock %s: %w", symbol, ErrNoData)
	}
	return bars, nil
}

// GenerateBars builds a weekday random walk seeded by symbol, with swings
// large enough to produce EMA crossovers.
func GenerateBars(symbol string, basePrice float64, start, end time.Time) []model.OHLCV {
	if basePrice <= 0 {
		basePrice = 1000
	}
	var seed int64
	for _, r := range symbol {
		seed = seed*31 + int64(r)
	}
	rng := rand.New(rand.NewSource(seed))

	var bars []model.OHLCV
	p := basePrice
	for d, i := dayOf(start), 0; !d.After(dayOf(end)); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		drift := 0.004 * math.Sin(float64(i)/15)
		p *= 1 + drift + (rng.Float64()-0.5)*0.02
		open := p * (1 + (rng.Float64()-0.5)*0.01)
		bars = append(bars, model.OHLCV{
			Time:   d,
			Open:   open,
			High:   math.Max(open, p) * (1 + rng.Float64()*0.01),
			Low:    math.Min(open, p) * (1 - rng.Float64()*0.01),
			Close:  p,
			Volume: 1_000_000 * (0.5 + rng.Float64()*1.5),
		})
		i++
	}
	return bars
}

// Collector fetches validated history windows for a symbol.
type Collector struct {
	Fetcher  Fetcher
	Lookback time.Duration
	logger   *zap.Logger
}

// NewCollector creates a new Collector. lookback is the calendar span fetched
// before the as-of date.
func NewCollector(fetcher Fetcher, lookback time.Duration, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{Fetcher: fetcher, Lookback: lookback, logger: logger}
}

// History fetches bars from asOf-Lookback through asOf.
func (c *Collector) History(ctx context.Context, symbol string, asOf time.Time) ([]model.OHLCV, error) {
	return c.Range(ctx, symbol, asOf.Add(-c.Lookback), asOf)
}

// Range fetches and validates bars within [start, end].
func (c *Collector) Range(ctx context.Context, symbol string, start, end time.Time) ([]model.OHLCV, error) {
	bars, err := c.Fetcher.FetchBars(ctx, symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("fetch %s: %w", symbol, ErrNoData)
	}
	if err := Validate(bars); err != nil {
		return nil, fmt.Errorf("validate %s: %w", symbol, err)
	}
	c.logger.Debug("fetched bars",
		zap.String("symbol", symbol),
		zap.String("source", c.Fetcher.Name()),
		zap.Int("bars", len(bars)),
	)
	return bars, nil
}
