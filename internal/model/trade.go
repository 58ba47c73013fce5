package model

import "time"

// ExitReason labels why a position was closed.
type ExitReason string

const (
	ExitStopLoss   ExitReason = "STOP_LOSS"
	ExitTakeProfit ExitReason = "TAKE_PROFIT"
	ExitSignal     ExitReason = "SIGNAL"
	ExitManual     ExitReason = "MANUAL"
)

// Position is an open trade held by the portfolio simulator.
type Position struct {
	Ticker        string
	Shares        int64
	EntryPrice    float64
	EntryValue    float64
	EntryTime     time.Time
	StopLoss      float64
	TakeProfit    float64
	Commission    float64
	CurrentPrice  float64
	UnrealizedPnL float64
}

// ClosedTrade is the immutable record of a position after exit.
type ClosedTrade struct {
	Position
	ExitPrice      float64
	ExitValue      float64
	ExitTime       time.Time
	ExitReason     ExitReason
	ExitCommission float64
	RealizedPnL    float64
	PnLPct         float64
	DurationDays   int
}

// LedgerEntry is one BUY or SELL cash movement.
type LedgerEntry struct {
	Action     string
	Ticker     string
	Shares     int64
	Price      float64
	Value      float64
	Commission float64
	PnL        float64
	PnLPct     float64
	Reason     ExitReason
	Time       time.Time
	CashBefore float64
	CashAfter  float64
}

// EquityPoint is one mark-to-market snapshot.
type EquityPoint struct {
	Time      time.Time
	Equity    float64
	Cash      float64
	Positions int
	Drawdown  float64
}
