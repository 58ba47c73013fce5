package recorder

import (
	"SwingFilter/internal/backtest"
	"SwingFilter/internal/scanner"
)

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordScan(_ *scanner.Result) (int64, error)    { return 0, nil }
func (n *NoopRecorder) RecordBacktest(_ *backtest.Aggregate) error     { return nil }
func (n *NoopRecorder) LastScan() (*ScanRecord, []SignalRecord, error) { return nil, nil, nil }
func (n *NoopRecorder) ListRuns(_ int) ([]RunRecord, error)            { return nil, nil }
func (n *NoopRecorder) RunTrades(_ string) ([]TradeRecord, error)      { return nil, nil }
func (n *NoopRecorder) Close() error                                   { return nil }
