package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"SwingFilter/internal/model"
	"SwingFilter/internal/recorder"
	"SwingFilter/internal/scanner"
)

// fakeTelegram records sendMessage payloads and serves queued getUpdates bodies.
type fakeTelegram struct {
	mu       sync.Mutex
	sent     []map[string]string
	failures int
	updates  string
}

func (f *fakeTelegram) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		switch {
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			if f.failures > 0 {
				f.failures--
				http.Error(w, `{"ok":false}`, http.StatusTooManyRequests)
				return
			}
			var payload map[string]string
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Errorf("decode payload: %v", err)
			}
			f.sent = append(f.sent, payload)
			w.Write([]byte(`{"ok":true}`))
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			w.Write([]byte(f.updates))
		default:
			http.NotFound(w, r)
		}
	})
}

func (f *fakeTelegram) messages() []map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]string(nil), f.sent...)
}

func newTestNotifier(t *testing.T, f *fakeTelegram) *TelegramNotifier {
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	n := NewTelegramNotifier("TOKEN", "42", "", nil)
	n.BaseURL = srv.URL
	n.Backoff = time.Millisecond
	return n
}

func TestSend(t *testing.T) {
	f := &fakeTelegram{}
	n := newTestNotifier(t, f)
	if err := n.Send(context.Background(), "<b>hi</b>"); err != nil {
		t.Fatal(err)
	}
	sent := f.messages()
	if len(sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(sent))
	}
	got := sent[0]
	if got["chat_id"] != "42" || got["text"] != "<b>hi</b>" || got["parse_mode"] != "HTML" {
		t.Errorf("unexpected payload %v", got)
	}
}

func TestSplitMessage(t *testing.T) {
	line := strings.Repeat("a", 2000)
	tests := []struct {
		name string
		text string
		want []int
	}{
		{"short", "hello\nworld", []int{11}},
		{"split at line breaks", line + "\n" + line + "\n" + line, []int{4001, 2000}},
		{"single long line", strings.Repeat("é", 5000), []int{4096, 904}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := splitMessage(tt.text, MaxMessageLen)
			if len(chunks) != len(tt.want) {
				t.Fatalf("expected %d chunks, got %d", len(tt.want), len(chunks))
			}
			for i, c := range chunks {
				if n := len([]rune(c)); n != tt.want[i] {
					t.Errorf("chunk %d: expected %d runes, got %d", i, tt.want[i], n)
				}
			}
		})
	}
}

func TestSend_SplitsLongText(t *testing.T) {
	f := &fakeTelegram{}
	n := newTestNotifier(t, f)
	text := strings.Repeat(strings.Repeat("x", 99)+"\n", 60)
	if err := n.SendWithRetry(context.Background(), text, 1); err != nil {
		t.Fatal(err)
	}
	sent := f.messages()
	if len(sent) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(sent))
	}
	if got := sent[0]["text"] + "\n" + sent[1]["text"] + "\n"; got != text {
		t.Error("chunks do not reassemble the original text")
	}
}

func TestSend_APIRejects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()
	n := NewTelegramNotifier("TOKEN", "42", "", nil)
	n.BaseURL = srv.URL

	err := n.Send(context.Background(), "hi")
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Errorf("expected API description in error, got %v", err)
	}
}

func TestSendWithRetry(t *testing.T) {
	f := &fakeTelegram{failures: 2}
	n := newTestNotifier(t, f)
	if err := n.SendWithRetry(context.Background(), "x", 2); err != nil {
		t.Fatalf("expected success on third attempt: %v", err)
	}

	f.mu.Lock()
	f.failures = 5
	f.mu.Unlock()
	if err := n.SendWithRetry(context.Background(), "x", 1); err == nil {
		t.Fatal("expected exhausted retries")
	}
}

func TestPollOnce(t *testing.T) {
	f := &fakeTelegram{updates: `{"ok":true,"result":[
		{"update_id":7,"message":{"text":" /regime "}},
		{"update_id":8},
		{"update_id":9,"message":{"text":"/quiet"}}
	]}`}
	n := newTestNotifier(t, f)

	var got []string
	handler := func(_ context.Context, cmd string) string {
		got = append(got, cmd)
		if cmd == "/quiet" {
			return ""
		}
		return "reply to " + cmd
	}
	next, err := n.PollOnce(context.Background(), http.DefaultClient, 0, handler)
	if err != nil {
		t.Fatal(err)
	}
	if next != 10 {
		t.Errorf("expected next offset 10, got %d", next)
	}
	if len(got) != 2 || got[0] != "/regime" || got[1] != "/quiet" {
		t.Errorf("unexpected commands %v", got)
	}
	if sent := f.messages(); len(sent) != 1 || sent[0]["text"] != "reply to /regime" {
		t.Errorf("unexpected replies %v", sent)
	}
}

func TestFormatScan(t *testing.T) {
	res := &scanner.Result{
		ScannedAt: time.Date(2024, 6, 14, 16, 30, 0, 0, time.UTC),
		Market:    model.MarketContext{Regime: model.RegimeRiskOff},
		Scanned:   5,
		Signals: []model.Signal{{
			Ticker: "BBRI.JK", Final: model.SignalBuyWeakMkt, IsSetup: true, Price: 4850, RSI: 56.3, VolRatio: 1.45,
			Risk:           model.RiskLevels{StopLoss: 4700, TakeProfitMin: 4995.5, TakeProfitMax: 5335},
			Weekly:         model.WeeklyContext{Trend: model.TrendUp, Aligned: true},
			Strategy:       model.StrategyBuyPartial,
			Score:          3,
			ContextReasons: []string{"Market risk-off"},
		}},
		Failures: []scanner.Failure{{Ticker: "X.JK"}},
	}
	out := FormatScan(res)
	for _, want := range []string{
		"2024-06-14", "🔴 Market: RISK_OFF", "<b>BBRI.JK</b> BUY (WEAK-MKT)",
		"SL: 4.700 | TP: 4.996 - 5.335", "Strategy: <b>BUY PARTIAL</b> (+3)",
		"Context: Market risk-off", "Scanned 5 | setups 1 | failed 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("scan message missing %q:\n%s", want, out)
		}
	}

	empty := FormatScan(&scanner.Result{ScannedAt: res.ScannedAt})
	if !strings.Contains(empty, "No setups found") {
		t.Errorf("expected empty notice:\n%s", empty)
	}
}

func TestFormatRuns(t *testing.T) {
	if got := FormatRuns(nil); got != "No backtest runs recorded yet." {
		t.Errorf("unexpected %q", got)
	}
	out := FormatRuns([]recorder.RunRecord{
		{Start: "2022-01-01", End: "2024-12-31", TotalTrades: 40, AvgWinRate: 56, AvgProfitFactor: 2.1, MaxDrawdown: 7},
		{Start: "2023-01-01", End: "2023-12-31", Error: "No valid backtest results"},
	})
	if !strings.Contains(out, "40 trades") || !strings.Contains(out, "<b>EXCELLENT</b>") {
		t.Errorf("unexpected run line:\n%s", out)
	}
	if !strings.Contains(out, "No valid backtest results") {
		t.Errorf("missing error run:\n%s", out)
	}
}
