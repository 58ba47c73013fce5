package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"SwingFilter/internal/backtest"
)

var tradeHeader = []string{
	"ticker", "entry_time", "exit_time", "shares", "entry_price", "exit_price",
	"exit_reason", "commission", "realized_pnl", "pnl_pct", "duration_days",
}

func formatF(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// WriteTradesCSV writes every closed trade of results, in result order.
func WriteTradesCSV(w io.Writer, results []backtest.TickerResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tradeHeader); err != nil {
		return err
	}
	for _, r := range results {
		for _, t := range r.Trades {
			if err := cw.Write([]string{
				t.Ticker,
				t.EntryTime.Format("2006-01-02"),
				t.ExitTime.Format("2006-01-02"),
				strconv.FormatInt(t.Shares, 10),
				formatF(t.EntryPrice),
				formatF(t.ExitPrice),
				string(t.ExitReason),
				formatF(t.Commission + t.ExitCommission),
				formatF(t.RealizedPnL),
				formatF(t.PnLPct),
				strconv.Itoa(t.DurationDays),
			}); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportTrades writes the trades of agg to path.
func ExportTrades(path string, agg *backtest.Aggregate) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteTradesCSV(f, agg.Tickers); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
