package model

import (
	"math"
	"time"
)

// VbiState classifies how hot the term structure currently is.
type VbiState string

const (
	StateCold     VbiState = "COLD"
	StateWarm     VbiState = "WARM"
	StateHot      VbiState = "HOT"
	StateDegraded VbiState = "DEGRADED"
)

// VbiPattern labels the shape of the recent term-structure evolution.
type VbiPattern string

const (
	PatternNeutral   VbiPattern = "NEUTRAL"
	PatternPreBreak  VbiPattern = "PRE_BREAK"
	PatternPostEvent VbiPattern = "POST_EVENT"
)

// DegradedReason is a machine-readable cause for a degraded cycle.
type DegradedReason string

const (
	ReasonNoExpiries DegradedReason = "no_expiries"
	ReasonNoATM      DegradedReason = "no_atm"
	ReasonNoBook     DegradedReason = "no_book"
	ReasonNoIV       DegradedReason = "no_iv"
	ReasonException  DegradedReason = "exception"
)

const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
)

// VbiResult is the output of one scoring cycle for one currency. It is
// constructed once, handed to the sink, and discarded.
type VbiResult struct {
	TsUnixMs int64  `json:"ts_unix_ms"`
	TsISOUTC string `json:"ts_iso_utc"`
	Symbol   string `json:"symbol"`
	Status   string `json:"status"`

	State VbiState `json:"vbi_state"`
	Score *int     `json:"vbi_score"`

	NearIV    *float64   `json:"near_iv,omitempty"`
	MidIV     *float64   `json:"mid_iv,omitempty"`
	FarIV     *float64   `json:"far_iv,omitempty"`
	IVSlope   *float64   `json:"iv_slope,omitempty"`
	Curvature *float64   `json:"curvature,omitempty"`
	Skew      *float64   `json:"skew,omitempty"`
	Pattern   VbiPattern `json:"vbi_pattern,omitempty"`

	Reason DegradedReason `json:"reason,omitempty"`
}

// NewDegraded builds a degraded result for the given currency.
func NewDegraded(symbol string, reason DegradedReason, now time.Time) *VbiResult {
	return &VbiResult{
		TsUnixMs: now.UnixMilli(),
		TsISOUTC: FormatISOUTC(now),
		Symbol:   symbol,
		Status:   StatusDegraded,
		State:    StateDegraded,
		Reason:   reason,
	}
}

// Degraded reports whether the result carries no score.
func (r *VbiResult) Degraded() bool { return r.Status == StatusDegraded }

// Sanitize nils out any non-finite floating field so the result can be
// serialized for any sink without producing invalid JSON.
func (r *VbiResult) Sanitize() {
	for _, p := range []**float64{&r.NearIV, &r.MidIV, &r.FarIV, &r.IVSlope, &r.Curvature, &r.Skew} {
		if *p != nil && !isFinite(**p) {
			*p = nil
		}
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// FormatISOUTC renders a timestamp the way the sink expects it.
func FormatISOUTC(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}
