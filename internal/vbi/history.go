package vbi

import "sync"

// HistoryStore holds the short per-currency rolling windows the scorer needs:
// the last few iv_slope and near_iv values, oldest evicted first. The store
// lives for the process lifetime and is never persisted; a restart starts
// with empty windows. Windows of different currencies never alias.
type HistoryStore struct {
	mu     sync.Mutex
	size   int
	slopes map[string][]float64
	nearIV map[string][]float64
}

// NewHistoryStore creates a store whose windows hold at most size entries.
func NewHistoryStore(size int) *HistoryStore {
	return &HistoryStore{
		size:   size,
		slopes: make(map[string][]float64),
		nearIV: make(map[string][]float64),
	}
}

// Append pushes one cycle's iv_slope and near_iv onto the currency's windows,
// evicting the oldest entries once the windows are full.
func (h *HistoryStore) Append(symbol string, ivSlope, nearIV float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.slopes[symbol] = push(h.slopes[symbol], ivSlope, h.size)
	h.nearIV[symbol] = push(h.nearIV[symbol], nearIV, h.size)
}

// Snapshot returns copies of the currency's windows, oldest first.
func (h *HistoryStore) Snapshot(symbol string) (slopes, nearIVs []float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]float64(nil), h.slopes[symbol]...),
		append([]float64(nil), h.nearIV[symbol]...)
}

func push(w []float64, v float64, size int) []float64 {
	w = append(w, v)
	if len(w) > size {
		w = w[1:]
	}
	return w
}
