package strategy

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"
	"time"

	"SwingFilter/internal/calculator"
	"SwingFilter/internal/model"
)

// crossFrame builds a frame whose last bar is a fresh EMA crossover with the
// given RSI, MACD histogram sign and volume ratio.
func crossFrame(n int, rsi, macdHist, volRatio float64) *calculator.Frame {
	f := &calculator.Frame{}
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		f.Bars = append(f.Bars, model.OHLCV{
			Time: day.AddDate(0, 0, i), Open: 995, High: 1010, Low: 985, Close: 1000, Volume: 1000,
		})
		f.EMAFast = append(f.EMAFast, 990)
		f.EMASlow = append(f.EMASlow, 1000)
		f.RSI = append(f.RSI, 50)
		f.ATR = append(f.ATR, 20)
		f.MACD = append(f.MACD, 5)
		f.MACDSignal = append(f.MACDSignal, 3)
		f.MACDHist = append(f.MACDHist, 2)
		f.AvgVolume = append(f.AvgVolume, 1000)
	}
	last := n - 1
	f.EMAFast[last] = 1005
	f.RSI[last] = rsi
	f.MACDSignal[last] = f.MACD[last] - macdHist
	f.MACDHist[last] = macdHist
	f.Bars[last].Volume = 1000 * volRatio
	return f
}

func TestEvaluateDaily_BuyScenario(t *testing.T) {
	p := DefaultParams()
	d, err := EvaluateDaily(crossFrame(40, 55, 2, 1.5), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Raw != model.SignalBuy || !d.IsSetup {
		t.Fatalf("expected BUY setup, got %q setup=%v", d.Raw, d.IsSetup)
	}
	if d.Risk.StopLoss <= 0 || d.Risk.StopLoss >= d.Price {
		t.Errorf("expected stop-loss below price, got %v", d.Risk.StopLoss)
	}
	if d.Risk.TakeProfitMin <= d.Price || d.Risk.TakeProfitMax <= d.Risk.TakeProfitMin {
		t.Errorf("unexpected take-profit band %+v", d.Risk)
	}
	if math.Abs(d.Risk.StopLoss-970) > 1e-9 {
		t.Errorf("expected SL 970 (1000-20*1.5), got %v", d.Risk.StopLoss)
	}
	if math.Abs(d.VolRatio-1.5) > 1e-9 {
		t.Errorf("expected vol ratio 1.5, got %v", d.VolRatio)
	}
}

func TestEvaluateDaily_OverboughtScenario(t *testing.T) {
	d, err := EvaluateDaily(crossFrame(40, 80, 2, 1.5), DefaultParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(d.Raw, "WAIT (") || !strings.Contains(d.Raw, "Overbought RSI") {
		t.Errorf("expected overbought WAIT, got %q", d.Raw)
	}
	if !d.IsSetup || d.Risk.StopLoss == 0 {
		t.Error("crossover WAIT should still carry reference risk levels")
	}
}

func TestEvaluateDaily_WaitReasonsInOrder(t *testing.T) {
	d, _ := EvaluateDaily(crossFrame(40, 35, -1, 0.8), DefaultParams())
	want := "WAIT (Weak RSI, Bearish MACD, Low Vol (0.8x))"
	if d.Raw != want {
		t.Errorf("expected %q, got %q", want, d.Raw)
	}
}

func TestEvaluateDaily_TrendWithoutCross(t *testing.T) {
	p := DefaultParams()

	up := crossFrame(40, 55, 2, 1.5)
	up.EMAFast[len(up.EMAFast)-2] = 1002
	d, _ := EvaluateDaily(up, p)
	if d.Raw != model.SignalUptrend || d.IsSetup || d.Risk.StopLoss == 0 {
		t.Errorf("expected uptrend with reference levels, got %+v", d)
	}

	down := crossFrame(40, 55, 2, 1.5)
	down.EMAFast[len(down.EMAFast)-1] = 995
	d, _ = EvaluateDaily(down, p)
	if d.Raw != model.SignalDowntrend || d.Risk != (model.RiskLevels{}) {
		t.Errorf("expected downtrend with zeroed levels, got %+v", d)
	}
}

func TestEvaluateDaily_InsufficientData(t *testing.T) {
	_, err := EvaluateDaily(crossFrame(34, 55, 2, 1.5), DefaultParams())
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

func TestRiskLevelsFor_Fallback(t *testing.T) {
	p := DefaultParams()
	if got := RiskLevelsFor(1000, math.NaN(), p); math.Abs(got.StopLoss-970) > 1e-9 {
		t.Errorf("NaN ATR: expected 970, got %v", got.StopLoss)
	}
	if got := RiskLevelsFor(1000, -10, p); math.Abs(got.StopLoss-970) > 1e-9 {
		t.Errorf("negative ATR: expected 970, got %v", got.StopLoss)
	}
	if got := RiskLevelsFor(1000, 0, p); got.StopLoss != 1000 {
		t.Errorf("zero ATR: expected stop at price 1000, got %v", got.StopLoss)
	}
}

func TestMapTier_AllBoundaries(t *testing.T) {
	tests := []struct {
		score int
		want  model.Strategy
	}{
		{9, model.StrategyBuyAll},
		{5, model.StrategyBuyAll},
		{4, model.StrategyBuyPartial},
		{3, model.StrategyBuyPartial},
		{2, model.StrategyHold},
		{0, model.StrategyHold},
		{-1, model.StrategySellPartial},
		{-2, model.StrategySellPartial},
		{-3, model.StrategySellAll},
		{-8, model.StrategySellAll},
	}
	for _, tt := range tests {
		if got := mapTier(tt.score); got != tt.want {
			t.Errorf("score %d: expected %q, got %q", tt.score, tt.want, got)
		}
	}
}

func TestCombine(t *testing.T) {
	on := model.MarketContext{Regime: model.RegimeRiskOn, RiskOn: true}
	off := model.MarketContext{Regime: model.RegimeRiskOff, RiskOn: false}
	up := model.WeeklyContext{Trend: model.TrendUp, Aligned: true}
	down := model.WeeklyContext{Trend: model.TrendDown, Aligned: false}

	tag := DefaultParams()
	loose := DefaultParams()
	loose.MTFRequiredForBuy = false
	block := DefaultParams()
	block.MarketMode = FilterBlock

	tests := []struct {
		name   string
		raw    string
		weekly model.WeeklyContext
		market model.MarketContext
		p      Params
		final  string
		score  int
	}{
		{"strong", model.SignalBuy, up, on, tag, model.SignalBuyStrong, 4},
		{"weak market tagged", model.SignalBuy, up, off, tag, model.SignalBuyWeakMkt, 3},
		{"weak market blocked", model.SignalBuy, up, off, block, model.SignalWaitMarket, 3},
		{"weekly required", model.SignalBuy, down, on, tag, model.SignalWaitWeekly, 3},
		{"weak weekly", model.SignalBuy, down, on, loose, model.SignalBuyWeakW, 3},
		{"weak both", model.SignalBuy, down, off, loose, model.SignalBuyWeak, 2},
		{"uptrend passes through", model.SignalUptrend, down, off, tag, model.SignalUptrend, 0},
	}
	for _, tt := range tests {
		c := combine(tt.raw, tt.weekly, tt.market, tt.p)
		if c.final != tt.final || c.score != tt.score {
			t.Errorf("%s: expected %q/%d, got %q/%d", tt.name, tt.final, tt.score, c.final, c.score)
		}
	}
}

func TestNewSignal_Scoring(t *testing.T) {
	p := DefaultParams()
	d := Daily{
		Raw:           model.SignalBuy,
		IsSetup:       true,
		Price:         1000,
		RSI:           55,
		VolRatio:      1.6,
		PriceVsEMAPct: 2,
		Levels:        model.SupportResistance{Label: calculator.LabelNeutral},
	}
	up := model.WeeklyContext{Trend: model.TrendUp, Aligned: true}
	on := model.MarketContext{Regime: model.RegimeRiskOn, RiskOn: true}

	sig := NewSignal("BBCA.JK", d, up, on, p)
	// STRONG 3+2, weekly +1, market +1, volume +1
	if sig.Final != model.SignalBuyStrong || sig.Score != 8 || sig.Strategy != model.StrategyBuyAll {
		t.Errorf("unexpected signal %q score=%d strategy=%q", sig.Final, sig.Score, sig.Strategy)
	}
	if len(sig.Factors) != 7 {
		t.Errorf("expected 7 factors, got %d", len(sig.Factors))
	}

	d.Raw = model.SignalDowntrend
	d.RSI = 85
	d.VolRatio = 0.4
	off := model.MarketContext{Regime: model.RegimeRiskOff}
	down := model.WeeklyContext{Trend: model.TrendDown}
	sig = NewSignal("BBCA.JK", d, down, off, p)
	// -2 -1 -1 -2 -1
	if sig.Final != model.SignalDowntrend || sig.Score != -7 || sig.Strategy != model.StrategySellAll {
		t.Errorf("unexpected signal %q score=%d strategy=%q", sig.Final, sig.Score, sig.Strategy)
	}
}

func TestNewSignal_ContextDisabled(t *testing.T) {
	p := DefaultParams()
	p.MTFEnabled = false
	p.MarketEnabled = false
	d := Daily{Raw: model.SignalBuy, RSI: 55, VolRatio: 1}
	off := model.MarketContext{Regime: model.RegimeRiskOff}
	sig := NewSignal("TLKM.JK", d, model.WeeklyContext{Trend: model.TrendDown}, off, p)
	if sig.Final != model.SignalBuy || !sig.Weekly.Aligned || !sig.Market.RiskOn || sig.ContextScore != 0 {
		t.Errorf("expected raw BUY with neutral context, got %+v", sig)
	}
}

func TestNewSignal_MarketOnlyKeepsWeekly(t *testing.T) {
	p := DefaultParams()
	p.MTFEnabled = false
	d := Daily{Raw: model.SignalBuy, RSI: 55, VolRatio: 1}
	weekly := model.WeeklyContext{Trend: model.TrendDown, Aligned: false}
	on := model.MarketContext{Regime: model.RegimeRiskOn, RiskOn: true}

	sig := NewSignal("ASII.JK", d, weekly, on, p)
	if sig.Final != model.SignalBuyWeakW {
		t.Errorf("expected %q without the weekly gate, got %q", model.SignalBuyWeakW, sig.Final)
	}
	if sig.Weekly != weekly {
		t.Errorf("weekly context replaced: %+v", sig.Weekly)
	}
	for _, f := range sig.Factors {
		if f.Name == "Weekly" && f.Points != -1 {
			t.Errorf("expected -1 for misaligned weekly, got %d", f.Points)
		}
	}
}

func TestEvaluate_WeeklyComputedForMarketFilter(t *testing.T) {
	p := DefaultParams()
	p.MTFEnabled = false
	bars := waveBars(400, time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC))
	on := model.MarketContext{Regime: model.RegimeRiskOn, RiskOn: true}

	sig, err := Evaluate("BBRI.JK", bars, on, p)
	if err != nil {
		t.Fatal(err)
	}
	if want := WeeklyTrend(calculator.ToWeekly(bars), p); sig.Weekly != want {
		t.Errorf("expected weekly %+v, got %+v", want, sig.Weekly)
	}
}

// waveBars produces a rising series with periodic pullbacks so EMA crossovers recur.
func waveBars(n int, start time.Time) []model.OHLCV {
	var bars []model.OHLCV
	day := start
	for len(bars) < n {
		if day.Weekday() != time.Saturday && day.Weekday() != time.Sunday {
			i := float64(len(bars))
			c := 1000 + i + 120*math.Sin(i/12)
			bars = append(bars, model.OHLCV{
				Time: day, Open: c - 4, High: c + 15, Low: c - 15, Close: c,
				Volume: 2e6 + 1e6*math.Sin(i/3),
			})
		}
		day = day.AddDate(0, 0, 1)
	}
	return bars
}

func TestAnalyze_NoLookAhead(t *testing.T) {
	p := DefaultParams()
	start := time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)
	bars := waveBars(400, start)
	index := waveBars(420, start.AddDate(0, 0, -5))
	full := calculator.NewFrame(bars, p.Frame)

	for _, d := range []int{60, 150, 233, 399} {
		window := bars[:d+1]

		masked, err := EvaluateDaily(full.Upto(d), p)
		if err != nil {
			t.Fatalf("day %d: %v", d, err)
		}
		truncated, err := EvaluateDaily(calculator.NewFrame(window, p.Frame), p)
		if err != nil {
			t.Fatalf("day %d: %v", d, err)
		}
		if !reflect.DeepEqual(masked, truncated) {
			t.Errorf("day %d: masked and truncated daily evaluation differ", d)
		}

		withFuture, _ := Analyze("ASII.JK", window, index, p)
		asOf, _ := Analyze("ASII.JK", window, model.Until(index, window[d].Time), p)
		if !reflect.DeepEqual(withFuture, asOf) {
			t.Errorf("day %d: future index bars leaked into the signal", d)
		}
	}
}

func TestMarketRegimeSeries_MatchesPrefix(t *testing.T) {
	p := DefaultParams()
	index := waveBars(120, time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC))
	series := MarketRegimeSeries(index, p)
	for _, i := range []int{10, 53, 54, 80, 119} {
		if got := MarketRegime(index[:i+1], p); got != series[i] {
			t.Errorf("bar %d: expected %+v, got %+v", i, series[i], got)
		}
	}
	if got := MarketRegime(nil, p); got.Regime != model.RegimeUnknown || !got.RiskOn {
		t.Errorf("expected UNKNOWN risk-on, got %+v", got)
	}
	if series[53].Regime != model.RegimeUnknown || series[54].Regime == model.RegimeUnknown {
		t.Error("expected regime to become defined at 55 bars")
	}
}

func TestWeeklyTrend_ShortHistory(t *testing.T) {
	got := WeeklyTrend(make([]model.OHLCV, 34), DefaultParams())
	if got.Trend != model.TrendUnknown || !got.Aligned {
		t.Errorf("expected UNKNOWN aligned, got %+v", got)
	}
}
