package portfolio

import "math"

func (pf *Portfolio) floorLots(shares float64) int64 {
	if shares <= 0 || math.IsNaN(shares) || math.IsInf(shares, 0) {
		return 0
	}
	lot := float64(pf.p.LotSize)
	return int64(math.Floor(shares/lot)) * pf.p.LotSize
}

// affordable reduces shares to what cash covers including commission.
func (pf *Portfolio) affordable(shares int64, price float64) int64 {
	perShare := price * (1 + pf.p.CommissionRate)
	if float64(shares)*perShare <= pf.Cash() {
		return shares
	}
	return pf.floorLots(pf.Cash() / perShare)
}

// SizeRiskBased risks RiskPerTrade of equity over the stop distance. The
// position value is capped by MaxPositionExposure of equity and, when
// avgVolume is positive, by MaxVolumeParticipation of average daily volume.
func (pf *Portfolio) SizeRiskBased(price, stopLoss, avgVolume float64) int64 {
	if price <= 0 {
		return 0
	}
	dist := price - stopLoss
	if dist <= 0 {
		return 0
	}
	value := pf.equity * pf.p.RiskPerTrade / dist * price
	value = math.Min(value, pf.equity*pf.p.MaxPositionExposure)
	if avgVolume > 0 {
		value = math.Min(value, avgVolume*pf.p.MaxVolumeParticipation*price)
	}
	return pf.affordable(pf.floorLots(value/price), price)
}

// SizeFixedFraction allocates equity x RiskPerTrade x RewardMultiple.
func (pf *Portfolio) SizeFixedFraction(price float64) int64 {
	if price <= 0 {
		return 0
	}
	value := pf.equity * pf.p.RiskPerTrade * pf.p.RewardMultiple
	return pf.affordable(pf.floorLots(value/price), price)
}
