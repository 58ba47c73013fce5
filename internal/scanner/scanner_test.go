package scanner

import (
	"context"
	"errors"
	"testing"
	"time"

	"SwingFilter/internal/collector"
	"SwingFilter/internal/model"
	"SwingFilter/internal/strategy"
)

func newTestScanner(f collector.Fetcher, p strategy.Params) *Scanner {
	s := New(collector.NewCollector(f, DefaultLookback, nil), p, nil)
	s.now = func() time.Time { return time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC) }
	return s
}

func TestScan_ShowAllAndFailures(t *testing.T) {
	f := &collector.MockFetcher{
		Generate: true,
		Errors:   map[string]error{"BAD.JK": collector.ErrNoData},
	}
	s := newTestScanner(f, strategy.DefaultParams())

	res, err := s.Scan(context.Background(), []string{"BBCA.JK", "BAD.JK", "TLKM.JK"}, Options{MarketTicker: "^JKSE", ShowAll: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Scanned != 2 || len(res.Signals) != 2 {
		t.Fatalf("expected 2 signals, got scanned=%d signals=%d", res.Scanned, len(res.Signals))
	}
	if res.Signals[0].Ticker != "BBCA.JK" || res.Signals[1].Ticker != "TLKM.JK" {
		t.Errorf("unexpected order %s, %s", res.Signals[0].Ticker, res.Signals[1].Ticker)
	}
	if len(res.Failures) != 1 || res.Failures[0].Ticker != "BAD.JK" {
		t.Errorf("expected BAD.JK failure, got %+v", res.Failures)
	}
	if f.Calls("^JKSE") != 1 {
		t.Errorf("expected one index fetch, got %d", f.Calls("^JKSE"))
	}
	if res.Market.Regime == model.RegimeUnknown {
		t.Errorf("expected a resolved regime with generated index data")
	}
	for _, sig := range res.Signals {
		if sig.Market != res.Market {
			t.Errorf("%s: market context %+v differs from scan %+v", sig.Ticker, sig.Market, res.Market)
		}
	}
}

func TestScan_SetupsOnly(t *testing.T) {
	s := newTestScanner(&collector.MockFetcher{Generate: true}, strategy.DefaultParams())
	res, err := s.Scan(context.Background(), []string{"BBCA.JK", "TLKM.JK", "ASII.JK"}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, sig := range res.Signals {
		if !sig.IsSetup {
			t.Errorf("%s: non-setup signal %q kept", sig.Ticker, sig.Final)
		}
	}
	if len(res.Setups()) != len(res.Signals) {
		t.Errorf("setups %d != signals %d", len(res.Setups()), len(res.Signals))
	}
}

func TestRegime_Disabled(t *testing.T) {
	p := strategy.DefaultParams()
	p.MarketEnabled = false
	f := &collector.MockFetcher{Generate: true}
	s := newTestScanner(f, p)

	got := s.Regime(context.Background(), "^JKSE")
	if got.Regime != model.RegimeUnknown || !got.RiskOn {
		t.Errorf("expected UNKNOWN risk-on, got %+v", got)
	}
	if f.Calls("^JKSE") != 0 {
		t.Error("index fetched with filter disabled")
	}
}

func TestScan_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := newTestScanner(&collector.MockFetcher{Generate: true}, strategy.DefaultParams())
	if _, err := s.Scan(ctx, []string{"BBCA.JK"}, Options{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
