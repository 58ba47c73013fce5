package recorder

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"SwingFilter/internal/backtest"
	"SwingFilter/internal/scanner"
)

const dateLayout = "2006-01-02"

// SQLiteRecorder persists scans and backtest runs to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger *zap.Logger) (*SQLiteRecorder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode lets the HTTP API read while a scan or backtest writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: logger}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("sqlite recorder opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scans (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp     INTEGER NOT NULL,
			market_regime TEXT,
			scanned       INTEGER,
			setups        INTEGER,
			failed        INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scans_ts ON scans(timestamp)`,

		`CREATE TABLE IF NOT EXISTS scan_signals (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			scan_id       INTEGER NOT NULL REFERENCES scans(id),
			ticker        TEXT NOT NULL,
			signal_date   TEXT,
			raw_signal    TEXT,
			final_signal  TEXT,
			is_setup      INTEGER,
			price         REAL,
			rsi           REAL,
			vol_ratio     REAL,
			stop_loss     REAL,
			take_profit   REAL,
			weekly_trend  TEXT,
			market_regime TEXT,
			score         INTEGER,
			strategy      TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_signals_scan ON scan_signals(scan_id)`,

		`CREATE TABLE IF NOT EXISTS backtest_runs (
			run_id             TEXT PRIMARY KEY,
			timestamp          INTEGER NOT NULL,
			start_date         TEXT,
			end_date           TEXT,
			initial_capital    REAL,
			total_trades       INTEGER,
			avg_return         REAL,
			avg_win_rate       REAL,
			avg_profit_factor  REAL,
			max_drawdown       REAL,
			avg_sharpe         REAL,
			successful_tickers INTEGER,
			total_tickers      INTEGER,
			error              TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ts ON backtest_runs(timestamp)`,

		`CREATE TABLE IF NOT EXISTS backtest_tickers (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id        TEXT NOT NULL REFERENCES backtest_runs(run_id),
			ticker        TEXT NOT NULL,
			total_trades  INTEGER,
			win_rate      REAL,
			profit_factor REAL,
			final_equity  REAL,
			total_return  REAL,
			max_drawdown  REAL,
			sharpe        REAL,
			avg_duration  REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bt_tickers_run ON backtest_tickers(run_id)`,

		`CREATE TABLE IF NOT EXISTS backtest_trades (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id        TEXT NOT NULL REFERENCES backtest_runs(run_id),
			ticker        TEXT NOT NULL,
			entry_time    INTEGER,
			exit_time     INTEGER,
			shares        INTEGER,
			entry_price   REAL,
			exit_price    REAL,
			exit_reason   TEXT,
			realized_pnl  REAL,
			pnl_pct       REAL,
			duration_days INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bt_trades_run ON backtest_trades(run_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// finite maps infinite and undefined values to NULL.
func finite(v float64) sql.NullFloat64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func (r *SQLiteRecorder) RecordScan(res *scanner.Result) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	out, err := tx.Exec(`INSERT INTO scans (timestamp, market_regime, scanned, setups, failed)
		VALUES (?,?,?,?,?)`,
		res.ScannedAt.Unix(), string(res.Market.Regime), res.Scanned, len(res.Setups()), len(res.Failures),
	)
	if err != nil {
		return 0, fmt.Errorf("insert scan: %w", err)
	}
	id, err := out.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, s := range res.Signals {
		if _, err := tx.Exec(`INSERT INTO scan_signals
			(scan_id, ticker, signal_date, raw_signal, final_signal, is_setup, price, rsi, vol_ratio,
			 stop_loss, take_profit, weekly_trend, market_regime, score, strategy)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			id, s.Ticker, s.Date.Format(dateLayout), s.Raw, s.Final, s.IsSetup, s.Price,
			finite(s.RSI), finite(s.VolRatio), finite(s.Risk.StopLoss), finite(s.Risk.TakeProfitMin),
			string(s.Weekly.Trend), string(s.Market.Regime), s.Score, string(s.Strategy),
		); err != nil {
			return 0, fmt.Errorf("insert signal %s: %w", s.Ticker, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit scan: %w", err)
	}
	return id, nil
}

func (r *SQLiteRecorder) RecordBacktest(agg *backtest.Aggregate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO backtest_runs
		(run_id, timestamp, start_date, end_date, initial_capital, total_trades, avg_return,
		 avg_win_rate, avg_profit_factor, max_drawdown, avg_sharpe, successful_tickers, total_tickers, error)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		agg.RunID, time.Now().Unix(), agg.Start.Format(dateLayout), agg.End.Format(dateLayout),
		agg.InitialCapital, agg.TotalTrades, agg.AvgReturn, agg.AvgWinRate,
		agg.AvgProfitFactor, agg.MaxDrawdown, agg.AvgSharpe,
		agg.SuccessfulTickers, agg.TotalTickers, agg.Error,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, t := range agg.Tickers {
		if _, err := tx.Exec(`INSERT INTO backtest_tickers
			(run_id, ticker, total_trades, win_rate, profit_factor, final_equity, total_return,
			 max_drawdown, sharpe, avg_duration)
			VALUES (?,?,?,?,?,?,?,?,?,?)`,
			agg.RunID, t.Ticker, t.TotalTrades, t.WinRate, finite(t.ProfitFactor),
			t.FinalEquity, t.TotalReturnPct, t.MaxDrawdown, t.Sharpe, t.AvgDuration,
		); err != nil {
			return fmt.Errorf("insert ticker %s: %w", t.Ticker, err)
		}
		for _, tr := range t.Trades {
			if _, err := tx.Exec(`INSERT INTO backtest_trades
				(run_id, ticker, entry_time, exit_time, shares, entry_price, exit_price,
				 exit_reason, realized_pnl, pnl_pct, duration_days)
				VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
				agg.RunID, tr.Ticker, tr.EntryTime.Unix(), tr.ExitTime.Unix(), tr.Shares,
				tr.EntryPrice, tr.ExitPrice, string(tr.ExitReason), tr.RealizedPnL, tr.PnLPct, tr.DurationDays,
			); err != nil {
				return fmt.Errorf("insert trade %s: %w", tr.Ticker, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	r.logger.Debug("backtest recorded", zap.String("run_id", agg.RunID), zap.Int("tickers", len(agg.Tickers)))
	return nil
}

// LastScan returns the most recent scan and its signals, or nil when none is stored.
func (r *SQLiteRecorder) LastScan() (*ScanRecord, []SignalRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		scan ScanRecord
		ts   int64
	)
	err := r.db.QueryRow(`SELECT id, timestamp, market_regime, scanned, setups, failed
		FROM scans ORDER BY id DESC LIMIT 1`).
		Scan(&scan.ID, &ts, &scan.Regime, &scan.Scanned, &scan.Setups, &scan.Failed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("query last scan: %w", err)
	}
	scan.ScannedAt = time.Unix(ts, 0)

	rows, err := r.db.Query(`SELECT scan_id, ticker, signal_date, raw_signal, final_signal, is_setup,
		price, COALESCE(rsi, 0), COALESCE(vol_ratio, 0), COALESCE(stop_loss, 0), COALESCE(take_profit, 0),
		weekly_trend, market_regime, score, strategy
		FROM scan_signals WHERE scan_id = ? ORDER BY id`, scan.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	var out []SignalRecord
	for rows.Next() {
		var (
			s    SignalRecord
			date string
		)
		if err := rows.Scan(&s.ScanID, &s.Ticker, &date, &s.Raw, &s.Final, &s.IsSetup,
			&s.Price, &s.RSI, &s.VolRatio, &s.StopLoss, &s.TakeProfit,
			&s.WeeklyTrend, &s.MarketRegime, &s.Score, &s.Strategy); err != nil {
			return nil, nil, fmt.Errorf("scan signal row: %w", err)
		}
		s.Date, _ = time.Parse(dateLayout, date)
		out = append(out, s)
	}
	return &scan, out, rows.Err()
}

// ListRuns returns the newest runs first.
func (r *SQLiteRecorder) ListRuns(limit int) ([]RunRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(`SELECT run_id, timestamp, start_date, end_date, initial_capital, total_trades,
		avg_return, avg_win_rate, avg_profit_factor, max_drawdown, avg_sharpe,
		successful_tickers, total_tickers, error
		FROM backtest_runs ORDER BY timestamp DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var (
			run RunRecord
			ts  int64
		)
		if err := rows.Scan(&run.RunID, &ts, &run.Start, &run.End, &run.InitialCapital, &run.TotalTrades,
			&run.AvgReturn, &run.AvgWinRate, &run.AvgProfitFactor, &run.MaxDrawdown, &run.AvgSharpe,
			&run.SuccessfulTickers, &run.TotalTickers, &run.Error); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		run.CreatedAt = time.Unix(ts, 0)
		out = append(out, run)
	}
	return out, rows.Err()
}

// RunTrades returns the trades of a run in entry order.
func (r *SQLiteRecorder) RunTrades(runID string) ([]TradeRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT run_id, ticker, entry_time, exit_time, shares, entry_price, exit_price,
		exit_reason, realized_pnl, pnl_pct, duration_days
		FROM backtest_trades WHERE run_id = ? ORDER BY entry_time, id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var (
			t           TradeRecord
			entry, exit int64
		)
		if err := rows.Scan(&t.RunID, &t.Ticker, &entry, &exit, &t.Shares, &t.EntryPrice, &t.ExitPrice,
			&t.ExitReason, &t.RealizedPnL, &t.PnLPct, &t.DurationDays); err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}
		t.EntryTime, t.ExitTime = time.Unix(entry, 0).UTC(), time.Unix(exit, 0).UTC()
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info("closing sqlite recorder")
	return r.db.Close()
}
