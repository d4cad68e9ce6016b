package selector

import "VolSentinel/internal/model"

// ATM returns the listed contract for the given expiry and side whose strike
// is closest to spot, or nil when no contract matches. Ties go to the first
// candidate encountered in input order.
func ATM(instruments []model.Instrument, expiryMs int64, side model.OptionSide, spot float64) *model.Instrument {
	var best *model.Instrument
	bestDist := -1.0
	for i := range instruments {
		ins := &instruments[i]
		if ins.ExpirationMs != expiryMs || ins.Side != side {
			continue
		}
		dist := ins.Strike - spot
		if dist < 0 {
			dist = -dist
		}
		if bestDist < 0 || dist < bestDist {
			best = ins
			bestDist = dist
		}
	}
	return best
}
