package portfolio

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"SwingFilter/internal/model"
)

var (
	ErrPositionExists   = errors.New("position already open")
	ErrNoPosition       = errors.New("no open position")
	ErrInsufficientCash = errors.New("insufficient cash")
	ErrInvalidSize      = errors.New("share count must be a positive multiple of the lot size")
)

// Params are the risk and cost limits for one simulated account.
type Params struct {
	InitialCash            float64
	CommissionRate         float64
	RiskPerTrade           float64
	MaxPositionExposure    float64
	MaxConcurrent          int
	MaxTotalExposure       float64
	MaxVolumeParticipation float64
	LotSize                int64
	RewardMultiple         float64
}

// DefaultParams returns the IDX account settings.
func DefaultParams() Params {
	return Params{
		InitialCash:            100_000_000,
		CommissionRate:         0.0015,
		RiskPerTrade:           0.01,
		MaxPositionExposure:    0.20,
		MaxConcurrent:          5,
		MaxTotalExposure:       0.60,
		MaxVolumeParticipation: 0.05,
		LotSize:                100,
		RewardMultiple:         10,
	}
}

// Portfolio is a single-owner cash and position ledger. Positions are value
// records that only change through Open, Close and MarkToMarket.
type Portfolio struct {
	p         Params
	rate      decimal.Decimal
	cash      decimal.Decimal
	positions map[string]model.Position
	entryComm map[string]decimal.Decimal

	equity      float64
	peak        float64
	drawdown    float64
	maxDrawdown float64

	totalTrades int
	winning     int
	losing      int
	totalPnL    decimal.Decimal
	commission  decimal.Decimal

	ledger []model.LedgerEntry
	closed []model.ClosedTrade
	curve  []model.EquityPoint
}

// New creates a Portfolio funded with p.InitialCash.
func New(p Params) *Portfolio {
	if p.LotSize <= 0 {
		p.LotSize = 100
	}
	return &Portfolio{
		p:         p,
		rate:      decimal.NewFromFloat(p.CommissionRate),
		cash:      decimal.NewFromFloat(p.InitialCash),
		positions: make(map[string]model.Position),
		entryComm: make(map[string]decimal.Decimal),
		equity:    p.InitialCash,
		peak:      p.InitialCash,
	}
}

// Params returns the limits the portfolio was created with.
func (pf *Portfolio) Params() Params { return pf.p }

// Cash returns available cash.
func (pf *Portfolio) Cash() float64 { return pf.cash.InexactFloat64() }

// Equity returns cash plus the marked value of open positions.
func (pf *Portfolio) Equity() float64 { return pf.equity }

// PeakEquity returns the highest equity seen at a mark.
func (pf *Portfolio) PeakEquity() float64 { return pf.peak }

// Drawdown returns the current percentage below peak.
func (pf *Portfolio) Drawdown() float64 { return pf.drawdown }

// MaxDrawdown returns the running maximum drawdown percentage.
func (pf *Portfolio) MaxDrawdown() float64 { return pf.maxDrawdown }

// HasPosition reports whether ticker is held.
func (pf *Portfolio) HasPosition(ticker string) bool {
	_, ok := pf.positions[ticker]
	return ok
}

// Position returns a copy of the open position for ticker.
func (pf *Portfolio) Position(ticker string) (model.Position, bool) {
	pos, ok := pf.positions[ticker]
	return pos, ok
}

// Positions returns copies of all open positions ordered by ticker.
func (pf *Portfolio) Positions() []model.Position {
	out := make([]model.Position, 0, len(pf.positions))
	for _, pos := range pf.positions {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out
}

// Ledger returns the BUY/SELL entries in order.
func (pf *Portfolio) Ledger() []model.LedgerEntry {
	return append([]model.LedgerEntry(nil), pf.ledger...)
}

// ClosedTrades returns completed trades in exit order.
func (pf *Portfolio) ClosedTrades() []model.ClosedTrade {
	return append([]model.ClosedTrade(nil), pf.closed...)
}

// EquityCurve returns the mark-to-market snapshots in order.
func (pf *Portfolio) EquityCurve() []model.EquityPoint {
	return append([]model.EquityPoint(nil), pf.curve...)
}

func (pf *Portfolio) commissionOn(value decimal.Decimal) decimal.Decimal {
	return value.Mul(pf.rate)
}

func notional(shares int64, price float64) decimal.Decimal {
	return decimal.NewFromInt(shares).Mul(decimal.NewFromFloat(price))
}

func (pf *Portfolio) exposure() float64 {
	total := 0.0
	for _, pos := range pf.positions {
		total += pos.EntryValue
	}
	return total
}

// CanOpen checks cash including commission, the concurrent position limit,
// duplicate tickers and total exposure.
func (pf *Portfolio) CanOpen(ticker string, value float64) bool {
	v := decimal.NewFromFloat(value)
	if v.Add(pf.commissionOn(v)).GreaterThan(pf.cash) {
		return false
	}
	if len(pf.positions) >= pf.p.MaxConcurrent {
		return false
	}
	if pf.HasPosition(ticker) {
		return false
	}
	return pf.exposure()+value <= pf.equity*pf.p.MaxTotalExposure
}

// Open buys shares at price and debits value plus commission from cash.
func (pf *Portfolio) Open(ticker string, shares int64, price, stopLoss, takeProfit float64, at time.Time) (model.Position, error) {
	if shares <= 0 || shares%pf.p.LotSize != 0 {
		return model.Position{}, fmt.Errorf("%s %d shares: %w", ticker, shares, ErrInvalidSize)
	}
	if pf.HasPosition(ticker) {
		return model.Position{}, fmt.Errorf("%s: %w", ticker, ErrPositionExists)
	}
	value := notional(shares, price)
	comm := pf.commissionOn(value)
	cost := value.Add(comm)
	if cost.GreaterThan(pf.cash) {
		return model.Position{}, fmt.Errorf("%s needs %s, have %s: %w", ticker, cost.StringFixed(0), pf.cash.StringFixed(0), ErrInsufficientCash)
	}

	before := pf.cash
	pf.cash = pf.cash.Sub(cost)
	pf.commission = pf.commission.Add(comm)
	pf.totalTrades++

	pos := model.Position{
		Ticker:       ticker,
		Shares:       shares,
		EntryPrice:   price,
		EntryValue:   value.InexactFloat64(),
		EntryTime:    at,
		StopLoss:     stopLoss,
		TakeProfit:   takeProfit,
		Commission:   comm.InexactFloat64(),
		CurrentPrice: price,
	}
	pf.positions[ticker] = pos
	pf.entryComm[ticker] = comm

	pf.ledger = append(pf.ledger, model.LedgerEntry{
		Action:     "BUY",
		Ticker:     ticker,
		Shares:     shares,
		Price:      price,
		Value:      pos.EntryValue,
		Commission: pos.Commission,
		Time:       at,
		CashBefore: before.InexactFloat64(),
		CashAfter:  pf.cash.InexactFloat64(),
	})
	pf.refreshEquity()
	return pos, nil
}

// Close sells the whole position at price. Net P&L deducts both legs' commission.
func (pf *Portfolio) Close(ticker string, price float64, at time.Time, reason model.ExitReason) (model.ClosedTrade, error) {
	pos, ok := pf.positions[ticker]
	if !ok {
		return model.ClosedTrade{}, fmt.Errorf("%s: %w", ticker, ErrNoPosition)
	}
	entryValue := notional(pos.Shares, pos.EntryPrice)
	exitValue := notional(pos.Shares, price)
	exitComm := pf.commissionOn(exitValue)
	net := exitValue.Sub(entryValue).Sub(pf.entryComm[ticker]).Sub(exitComm)
	pct := 0.0
	if !entryValue.IsZero() {
		pct = net.Div(entryValue).Mul(decimal.NewFromInt(100)).InexactFloat64()
	}

	before := pf.cash
	pf.cash = pf.cash.Add(exitValue.Sub(exitComm))
	pf.commission = pf.commission.Add(exitComm)
	pf.totalPnL = pf.totalPnL.Add(net)
	if net.IsPositive() {
		pf.winning++
	} else {
		pf.losing++
	}

	pos.CurrentPrice = price
	pos.UnrealizedPnL = 0
	trade := model.ClosedTrade{
		Position:       pos,
		ExitPrice:      price,
		ExitValue:      exitValue.InexactFloat64(),
		ExitTime:       at,
		ExitReason:     reason,
		ExitCommission: exitComm.InexactFloat64(),
		RealizedPnL:    net.InexactFloat64(),
		PnLPct:         pct,
		DurationDays:   int(at.Sub(pos.EntryTime).Hours() / 24),
	}
	pf.closed = append(pf.closed, trade)
	delete(pf.positions, ticker)
	delete(pf.entryComm, ticker)

	pf.ledger = append(pf.ledger, model.LedgerEntry{
		Action:     "SELL",
		Ticker:     ticker,
		Shares:     pos.Shares,
		Price:      price,
		Value:      trade.ExitValue,
		Commission: trade.ExitCommission,
		PnL:        trade.RealizedPnL,
		PnLPct:     pct,
		Reason:     reason,
		Time:       at,
		CashBefore: before.InexactFloat64(),
		CashAfter:  pf.cash.InexactFloat64(),
	})
	pf.refreshEquity()
	return trade, nil
}

// CheckExit reports whether price has hit the position's stop or target.
func (pf *Portfolio) CheckExit(ticker string, price float64) (model.ExitReason, bool) {
	pos, ok := pf.positions[ticker]
	if !ok {
		return "", false
	}
	switch {
	case price <= pos.StopLoss:
		return model.ExitStopLoss, true
	case pos.TakeProfit > 0 && price >= pos.TakeProfit:
		return model.ExitTakeProfit, true
	}
	return "", false
}

// MarkToMarket revalues held tickers present in prices, updates equity and
// drawdown, and appends an equity snapshot.
func (pf *Portfolio) MarkToMarket(prices map[string]float64, at time.Time) model.EquityPoint {
	for ticker, pos := range pf.positions {
		price, ok := prices[ticker]
		if !ok {
			continue
		}
		pos.CurrentPrice = price
		pos.UnrealizedPnL = (price - pos.EntryPrice) * float64(pos.Shares)
		pf.positions[ticker] = pos
	}
	pf.refreshEquity()

	if pf.equity > pf.peak {
		pf.peak = pf.equity
		pf.drawdown = 0
	} else if pf.peak > 0 {
		pf.drawdown = (pf.peak - pf.equity) / pf.peak * 100
		if pf.drawdown > pf.maxDrawdown {
			pf.maxDrawdown = pf.drawdown
		}
	}

	pt := model.EquityPoint{
		Time:      at,
		Equity:    pf.equity,
		Cash:      pf.Cash(),
		Positions: len(pf.positions),
		Drawdown:  pf.drawdown,
	}
	pf.curve = append(pf.curve, pt)
	return pt
}

func (pf *Portfolio) refreshEquity() {
	eq := pf.Cash()
	for _, pos := range pf.positions {
		eq += pos.EntryValue + pos.UnrealizedPnL
	}
	pf.equity = eq
}
