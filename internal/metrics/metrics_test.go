package metrics

import (
	"math"
	"testing"
	"time"

	"SwingFilter/internal/model"
)

func trades(pnls ...float64) []model.ClosedTrade {
	out := make([]model.ClosedTrade, len(pnls))
	for i, p := range pnls {
		out[i] = model.ClosedTrade{RealizedPnL: p, DurationDays: 5}
	}
	return out
}

func curve(start time.Time, equities ...float64) []model.EquityPoint {
	out := make([]model.EquityPoint, len(equities))
	for i, e := range equities {
		out[i] = model.EquityPoint{Time: start.AddDate(0, 0, i), Equity: e}
	}
	return out
}

func TestProfitFactor_EdgeCases(t *testing.T) {
	tests := []struct {
		name string
		in   []model.ClosedTrade
		want float64
	}{
		{"no trades", nil, 0},
		{"all winning", trades(100, 50), math.Inf(1)},
		{"all losing", trades(-100, -50), 0},
		{"break even only", trades(0, 0), 0},
		{"mixed", trades(300, -100, -50), 2},
	}
	for _, tt := range tests {
		if got := ProfitFactor(tt.in); got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}
}

func TestWinRateAndExpectancy(t *testing.T) {
	tr := trades(200, 100, -50, -50)
	if got := WinRate(tr); got != 50 {
		t.Errorf("expected 50%% win rate, got %v", got)
	}

	tests := []struct {
		name string
		pnls []float64
		want float64
	}{
		{"mixed", []float64{200, 100, -50, -50}, 50}, // 0.5*150 - 0.5*50
		{"all wins", []float64{100, 40}, 0},
		{"all losses", []float64{-100, -40}, 0},
		{"wins and breakeven", []float64{100, 0}, 0},
		{"empty", nil, 0},
	}
	for _, tt := range tests {
		if got := Expectancy(trades(tt.pnls...)); got != tt.want {
			t.Errorf("%s: expected expectancy %v, got %v", tt.name, tt.want, got)
		}
	}
}

func TestTradeSharpe(t *testing.T) {
	if got := TradeSharpe([]float64{5}); got != 0 {
		t.Errorf("single trade: expected 0, got %v", got)
	}
	if got := TradeSharpe([]float64{3, 3, 3}); got != 0 {
		t.Errorf("zero dispersion: expected 0, got %v", got)
	}
	// mean 2, sample std 1
	want := 2 * math.Sqrt(252)
	if got := TradeSharpe([]float64{1, 2, 3}); math.Abs(got-want) > 1e-9 {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestEquitySharpe_Flat(t *testing.T) {
	c := curve(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 100, 100, 100)
	if got := EquitySharpe(c); got != 0 {
		t.Errorf("expected 0 for flat curve, got %v", got)
	}
}

func TestDrawdowns(t *testing.T) {
	c := curve(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 100, 110, 99, 88, 110, 121, 115)
	d := Drawdowns(c)
	if math.Abs(d.Max-20) > 1e-9 {
		t.Errorf("expected max drawdown 20, got %v", d.Max)
	}
	if d.MaxDuration != 2 {
		t.Errorf("expected duration 2, got %d", d.MaxDuration)
	}
	if math.Abs(d.RecoveryFactor-115.0/20) > 1e-9 {
		t.Errorf("unexpected recovery factor %v", d.RecoveryFactor)
	}
	if got := Drawdowns(curve(time.Now(), 1, 2, 3)); got.RecoveryFactor != 0 || got.Max != 0 {
		t.Errorf("expected zero drawdown stats, got %+v", got)
	}
}

func TestMonthly(t *testing.T) {
	c := []model.EquityPoint{
		{Time: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), Equity: 90},
		{Time: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), Equity: 100},
		{Time: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), Equity: 110},
		{Time: time.Date(2024, 3, 29, 0, 0, 0, 0, time.UTC), Equity: 99},
	}
	m := Monthly(c)
	if m.TotalMonths != 2 || m.PositiveMonths != 1 {
		t.Fatalf("unexpected month counts %+v", m)
	}
	if math.Abs(m.Best-10) > 1e-9 || math.Abs(m.Worst+10) > 1e-9 {
		t.Errorf("unexpected best/worst %+v", m)
	}
}

func TestDistribute(t *testing.T) {
	d := Distribute([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 100})
	if math.Abs(d.P50-5.5) > 1e-9 || math.Abs(d.P25-3.25) > 1e-9 || math.Abs(d.P90-18.1) > 1e-9 {
		t.Errorf("unexpected percentiles %+v", d)
	}
	if d.Outliers != 1 || d.LargestWin != 100 || d.LargestLoss != 1 {
		t.Errorf("unexpected outliers %+v", d)
	}
}

func TestRiskOfRuin(t *testing.T) {
	if got := RiskOfRuin(trades(-1, -1, 1), 1000); got != 0 {
		t.Errorf("short log: expected 0, got %v", got)
	}
	if got := RiskOfRuin(trades(1, 1, 1, 1, 1, 1, 1, 1, 1, 1), 1000); got != 0 {
		t.Errorf("no losses: expected 0, got %v", got)
	}
	winning := trades(5, 5, 5, 5, 5, 5, -1, -1, -1, -1)
	if got := RiskOfRuin(winning, 1000); got != 0 {
		t.Errorf("win rate above half: expected 0, got %v", got)
	}
	// w=0.4, ratio 1.5, 500/250=2 trades to ruin → capped at 1
	losing := trades(1, 1, 1, 1, -250, -250, -250, -250, -250, -250)
	if got := RiskOfRuin(losing, 1000); got != 1 {
		t.Errorf("expected capped 1, got %v", got)
	}
	// w=0.5 → ratio 1 → 1
	even := trades(1, 1, 1, 1, 1, -10, -10, -10, -10, -10)
	if got := RiskOfRuin(even, 1000); got != 1 {
		t.Errorf("expected 1 at even odds, got %v", got)
	}
}

func TestHolding(t *testing.T) {
	tr := []model.ClosedTrade{
		{RealizedPnL: 10, DurationDays: 1},
		{RealizedPnL: -10, DurationDays: 2},
		{RealizedPnL: 10, DurationDays: 5},
		{RealizedPnL: 10, DurationDays: 14},
	}
	h := Holding(tr)
	if h.TargetPct != 25 || h.QuickWinRate != 50 || h.LongWinRate != 100 {
		t.Errorf("unexpected holding stats %+v", h)
	}
	if h.MinDurationDays != 1 || h.MaxDurationDays != 14 {
		t.Errorf("unexpected duration range %+v", h)
	}
}

func TestCompute_Empty(t *testing.T) {
	r := Compute(nil, nil, 1e8)
	if r.ProfitFactor != 0 || r.Sharpe != 0 || r.FinalEquity != 1e8 || r.TotalReturnPct != 0 {
		t.Errorf("unexpected empty report %+v", r)
	}
}
