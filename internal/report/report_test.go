package report

import (
	"bytes"
	"encoding/csv"
	"math"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"SwingFilter/internal/backtest"
	"SwingFilter/internal/metrics"
	"SwingFilter/internal/model"
)

func TestAssess(t *testing.T) {
	tests := []struct {
		name                string
		winRate, pf, dd     float64
		wantRating          string
		wantPoints          int
		wantStrength, wantW string
	}{
		{"excellent", 60, 2.5, 5, RatingExcellent, 8, "High Win Rate", "None identified"},
		{"good at boundaries", 45, 1.5, 20, RatingGood, 5, "Good Win Rate", "Moderate Drawdown"},
		{"fair", 35, 1.2, 15, RatingFair, 3, "None identified", "Moderate Win Rate"},
		{"poor", 20, 0.8, 30, RatingPoor, 0, "None identified", "Low Win Rate"},
		{"drawdown exactly 10 is low", 0, 0, 10, RatingPoor, 2, "Low Drawdown", "Low Win Rate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Assess(tt.winRate, tt.pf, tt.dd)
			if a.Rating != tt.wantRating || a.Points != tt.wantPoints {
				t.Errorf("got %s/%d, want %s/%d", a.Rating, a.Points, tt.wantRating, tt.wantPoints)
			}
			if a.Strengths[0] != tt.wantStrength {
				t.Errorf("first strength %q, want %q", a.Strengths[0], tt.wantStrength)
			}
			if a.Weaknesses[0] != tt.wantW {
				t.Errorf("first weakness %q, want %q", a.Weaknesses[0], tt.wantW)
			}
		})
	}
}

func TestFormatIDR(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{100_000_000, "100.0M IDR"},
		{2_500_000_000, "2.5B IDR"},
		{-958_000, "-958K IDR"},
		{12_345, "12K IDR"},
		{999, "999 IDR"},
	}
	for _, tt := range tests {
		if got := FormatIDR(tt.in); got != tt.want {
			t.Errorf("FormatIDR(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatRupiah(t *testing.T) {
	if got := FormatRupiah(100_000_000); got != "Rp100.000.000" {
		t.Errorf("got %q", got)
	}
	if got := FormatPrice(9525.4); got != "9.525" {
		t.Errorf("got %q", got)
	}
}

func TestTopPerformers(t *testing.T) {
	in := []backtest.TickerResult{
		{Ticker: "A", WinRate: 40}, {Ticker: "B", WinRate: 70}, {Ticker: "C", WinRate: 55},
		{Ticker: "D", WinRate: 70}, {Ticker: "E", WinRate: 10}, {Ticker: "F", WinRate: 60},
	}
	var got []string
	for _, r := range TopPerformers(in, 5) {
		got = append(got, r.Ticker)
	}
	if want := []string{"B", "D", "F", "C", "A"}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if in[0].Ticker != "A" {
		t.Error("input reordered")
	}
}

func sampleTrades() []model.ClosedTrade {
	entry := time.Date(2023, 5, 2, 0, 0, 0, 0, time.UTC)
	return []model.ClosedTrade{
		{
			Position:  model.Position{Ticker: "BBCA.JK", Shares: 1000, EntryPrice: 8000, EntryTime: entry, Commission: 12_000},
			ExitPrice: 8400, ExitTime: entry.AddDate(0, 0, 6), ExitReason: model.ExitTakeProfit,
			ExitCommission: 12_600, RealizedPnL: 375_400, PnLPct: 4.69, DurationDays: 6,
		},
		{
			Position:  model.Position{Ticker: "BBCA.JK", Shares: 500, EntryPrice: 8500, EntryTime: entry.AddDate(0, 1, 0)},
			ExitPrice: 8200, ExitTime: entry.AddDate(0, 1, 2), ExitReason: model.ExitStopLoss,
			RealizedPnL: -150_000, PnLPct: -3.53, DurationDays: 2,
		},
	}
}

func TestSummary(t *testing.T) {
	agg := &backtest.Aggregate{
		Start:             time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
		End:               time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		InitialCapital:    100_000_000,
		TotalTrades:       2,
		AvgWinRate:        50,
		AvgProfitFactor:   2.5,
		MaxDrawdown:       8,
		TotalTickers:      2,
		SuccessfulTickers: 1,
		Tickers: []backtest.TickerResult{
			{Ticker: "TLKM.JK", WinRate: 0},
			{Ticker: "BBCA.JK", WinRate: 50, ProfitFactor: math.Inf(1), TotalTrades: 2},
		},
		Failures: []backtest.Failure{{Ticker: "GONE.JK", Err: "no data"}},
	}
	out := Summary(agg)
	for _, want := range []string{
		"2022-01-01 to 2024-12-31",
		"100.0M IDR",
		"Overall Rating:        EXCELLENT",
		"BBCA.JK    Win Rate: 50.0%, PF: inf, Trades: 2",
		"GONE.JK",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "BBCA.JK") > strings.Index(out, "TLKM.JK") {
		t.Error("top performers not ordered by win rate")
	}

	if got := Summary(&backtest.Aggregate{Error: backtest.ErrorNoResults}); got != "Error: No valid backtest results\n" {
		t.Errorf("unexpected error summary %q", got)
	}
}

func TestTickerDetail(t *testing.T) {
	if got := TickerDetail(backtest.TickerResult{Ticker: "X.JK"}); got != "No trades found for X.JK\n" {
		t.Errorf("unexpected empty detail %q", got)
	}
	trades := sampleTrades()
	r := backtest.TickerResult{Ticker: "BBCA.JK", Trades: trades, Metrics: metrics.Compute(trades, nil, 100_000_000)}
	out := TickerDetail(r)
	for _, want := range []string{"Winning Trades: 1", "Losing Trades:  1", "TAKE_PROFIT", "STOP_LOSS", "2023-05-08", "8.400"} {
		if !strings.Contains(out, want) {
			t.Errorf("detail missing %q:\n%s", want, out)
		}
	}
}

func TestWriteTradesCSV(t *testing.T) {
	var buf bytes.Buffer
	results := []backtest.TickerResult{{Ticker: "BBCA.JK", Trades: sampleTrades()}, {Ticker: "EMPTY.JK"}}
	if err := WriteTradesCSV(&buf, results); err != nil {
		t.Fatal(err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if !reflect.DeepEqual(rows[0], tradeHeader) {
		t.Errorf("unexpected header %v", rows[0])
	}
	want := []string{"BBCA.JK", "2023-05-02", "2023-05-08", "1000", "8000", "8400", "TAKE_PROFIT", "24600", "375400", "4.69", "6"}
	if !reflect.DeepEqual(rows[1], want) {
		t.Errorf("row 1 = %v, want %v", rows[1], want)
	}

	path := filepath.Join(t.TempDir(), "trades.csv")
	if err := ExportTrades(path, &backtest.Aggregate{Tickers: results}); err != nil {
		t.Fatalf("export: %v", err)
	}
}
