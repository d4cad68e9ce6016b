package selector

import (
	"time"

	"VolSentinel/internal/config"
	"VolSentinel/internal/model"
)

const msPerDay = 86_400_000.0

// ExpiryLadder is one representative expiry per maturity rung, epoch millis.
type ExpiryLadder struct {
	Near int64
	Mid  int64
	Far  int64
}

// Ladder partitions the distinct expiries in the instrument list into
// day-to-expiry buckets and picks, per bucket, the expiry closest to the
// bucket midpoint. The selection is all-or-nothing: an empty rung fails the
// whole ladder. Ties go to the first expiry encountered in input order, so
// the result is deterministic for a fixed input ordering.
func Ladder(instruments []model.Instrument, now time.Time, near, mid, far config.Bucket) (ExpiryLadder, bool) {
	expiries := distinctExpiries(instruments)
	if len(expiries) == 0 {
		return ExpiryLadder{}, false
	}

	nowMs := now.UnixMilli()
	n, okN := pickClosest(expiries, nowMs, near)
	m, okM := pickClosest(expiries, nowMs, mid)
	f, okF := pickClosest(expiries, nowMs, far)
	if !okN || !okM || !okF {
		return ExpiryLadder{}, false
	}
	return ExpiryLadder{Near: n, Mid: m, Far: f}, true
}

// distinctExpiries preserves first-encounter order to keep tie-breaks stable.
func distinctExpiries(instruments []model.Instrument) []int64 {
	seen := make(map[int64]struct{}, len(instruments))
	out := make([]int64, 0, len(instruments))
	for _, ins := range instruments {
		if _, ok := seen[ins.ExpirationMs]; ok {
			continue
		}
		seen[ins.ExpirationMs] = struct{}{}
		out = append(out, ins.ExpirationMs)
	}
	return out
}

func pickClosest(expiries []int64, nowMs int64, b config.Bucket) (int64, bool) {
	target := b.Midpoint()
	var best int64
	bestDist := -1.0
	for _, exp := range expiries {
		dte := float64(exp-nowMs) / msPerDay
		if dte < b.MinDays || dte > b.MaxDays {
			continue
		}
		dist := dte - target
		if dist < 0 {
			dist = -dist
		}
		if bestDist < 0 || dist < bestDist {
			best = exp
			bestDist = dist
		}
	}
	return best, bestDist >= 0
}
