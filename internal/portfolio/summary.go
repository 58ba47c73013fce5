package portfolio

// Summary is a point-in-time view of the account.
type Summary struct {
	InitialCash     float64
	Equity          float64
	TotalReturnPct  float64
	Cash            float64
	OpenPositions   int
	TotalTrades     int
	WinningTrades   int
	LosingTrades    int
	WinRate         float64
	AvgWin          float64
	AvgLoss         float64
	ProfitFactor    float64
	TotalPnL        float64
	CommissionPaid  float64
	MaxDrawdown     float64
	CurrentDrawdown float64
}

// Summary reports counters and closed-trade averages.
func (pf *Portfolio) Summary() Summary {
	s := Summary{
		InitialCash:     pf.p.InitialCash,
		Equity:          pf.equity,
		Cash:            pf.Cash(),
		OpenPositions:   len(pf.positions),
		TotalTrades:     pf.totalTrades,
		WinningTrades:   pf.winning,
		LosingTrades:    pf.losing,
		TotalPnL:        pf.totalPnL.InexactFloat64(),
		CommissionPaid:  pf.commission.InexactFloat64(),
		MaxDrawdown:     pf.maxDrawdown,
		CurrentDrawdown: pf.drawdown,
	}
	if pf.p.InitialCash > 0 {
		s.TotalReturnPct = (pf.equity - pf.p.InitialCash) / pf.p.InitialCash * 100
	}
	if pf.totalTrades > 0 {
		s.WinRate = float64(pf.winning) / float64(pf.totalTrades) * 100
	}

	var sumWin, sumLoss float64
	var nWin, nLoss int
	for _, t := range pf.closed {
		switch {
		case t.RealizedPnL > 0:
			sumWin += t.RealizedPnL
			nWin++
		case t.RealizedPnL < 0:
			sumLoss += t.RealizedPnL
			nLoss++
		}
	}
	if nWin > 0 {
		s.AvgWin = sumWin / float64(nWin)
	}
	if nLoss > 0 {
		s.AvgLoss = sumLoss / float64(nLoss)
	}
	if s.AvgLoss != 0 && pf.losing > 0 {
		pfactor := s.AvgWin * float64(pf.winning) / (s.AvgLoss * float64(pf.losing))
		if pfactor < 0 {
			pfactor = -pfactor
		}
		s.ProfitFactor = pfactor
	}
	return s
}
