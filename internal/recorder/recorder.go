package recorder

import (
	"time"

	"SwingFilter/internal/backtest"
	"SwingFilter/internal/scanner"
)

// ScanRecord summarises one stored scan.
type ScanRecord struct {
	ID        int64
	ScannedAt time.Time
	Regime    string
	Scanned   int
	Setups    int
	Failed    int
}

// SignalRecord is one stored scan signal.
type SignalRecord struct {
	ScanID       int64
	Ticker       string
	Date         time.Time
	Raw          string
	Final        string
	IsSetup      bool
	Price        float64
	RSI          float64
	VolRatio     float64
	StopLoss     float64
	TakeProfit   float64
	WeeklyTrend  string
	MarketRegime string
	Score        int
	Strategy     string
}

// RunRecord is the stored aggregate of a backtest run.
type RunRecord struct {
	RunID             string
	CreatedAt         time.Time
	Start             string
	End               string
	InitialCapital    float64
	TotalTrades       int
	AvgReturn         float64
	AvgWinRate        float64
	AvgProfitFactor   float64
	MaxDrawdown       float64
	AvgSharpe         float64
	SuccessfulTickers int
	TotalTickers      int
	Error             string
}

// TradeRecord is one stored closed trade of a backtest run.
type TradeRecord struct {
	RunID        string
	Ticker       string
	EntryTime    time.Time
	ExitTime     time.Time
	Shares       int64
	EntryPrice   float64
	ExitPrice    float64
	ExitReason   string
	RealizedPnL  float64
	PnLPct       float64
	DurationDays int
}

// Recorder persists scans and backtest runs for later review.
type Recorder interface {
	RecordScan(res *scanner.Result) (int64, error)
	RecordBacktest(agg *backtest.Aggregate) error
	LastScan() (*ScanRecord, []SignalRecord, error)
	ListRuns(limit int) ([]RunRecord, error)
	RunTrades(runID string) ([]TradeRecord, error)
	Close() error
}
