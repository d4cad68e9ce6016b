package vbi

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"VolSentinel/internal/config"
	"VolSentinel/internal/model"
	"VolSentinel/internal/provider"
)

func fptr(v float64) *float64 { return &v }

func defaultParams(t *testing.T) config.VBIParams {
	t.Helper()
	cfg, err := config.Load("nonexistent.yaml")
	require.NoError(t, err)
	return cfg.VBI
}

// newMock builds a provider with one full chain for BTC: near/mid/far
// expiries inside the DTE buckets and ATM strikes around spot 50000.
func newMock() *provider.MockProvider {
	now := time.Now()
	exp := func(days int) int64 { return now.AddDate(0, 0, days).UnixMilli() }
	ins := []model.Instrument{
		{Currency: "BTC", ExpirationMs: exp(9), Side: model.SideCall, Strike: 50000, Name: "NC"},
		{Currency: "BTC", ExpirationMs: exp(9), Side: model.SidePut, Strike: 50000, Name: "NP"},
		{Currency: "BTC", ExpirationMs: exp(30), Side: model.SideCall, Strike: 50000, Name: "MC"},
		{Currency: "BTC", ExpirationMs: exp(80), Side: model.SideCall, Strike: 50000, Name: "FC"},
	}
	return &provider.MockProvider{
		Instruments: map[string][]model.Instrument{"BTC": ins},
		Spot:        map[string]float64{"BTC": 50000},
		Quotes:      map[string]*model.MarketQuote{},
	}
}

func setIVs(m *provider.MockProvider, nearCall, nearPut, midCall, farCall float64) {
	m.Quotes["NC"] = &model.MarketQuote{InstrumentName: "NC", MarkIV: fptr(nearCall)}
	m.Quotes["NP"] = &model.MarketQuote{InstrumentName: "NP", MarkIV: fptr(nearPut)}
	m.Quotes["MC"] = &model.MarketQuote{InstrumentName: "MC", MarkIV: fptr(midCall)}
	m.Quotes["FC"] = &model.MarketQuote{InstrumentName: "FC", MarkIV: fptr(farCall)}
}

func newScorer(t *testing.T, m *provider.MockProvider) *Scorer {
	t.Helper()
	params := defaultParams(t)
	return NewScorer(m, params, NewHistoryStore(params.PatternWindow))
}

func TestCompute_MediumSlopeScenario(t *testing.T) {
	m := newMock()
	setIVs(m, 12, 12, 16, 17)
	s := newScorer(t, m)

	res := s.Compute(context.Background(), "BTC")
	require.Equal(t, model.StatusOK, res.Status)
	assert.Equal(t, 4.0, *res.IVSlope, "mid minus near")
	assert.Equal(t, -3.0, *res.Curvature, "(17-16)-(16-12)")
	assert.Equal(t, 1.0, *res.Skew)
	// +40 medium slope, +10 neutral skew; history too short for the mean rule
	require.NotNil(t, res.Score)
	assert.Equal(t, 50, *res.Score)
	assert.Equal(t, model.StateWarm, res.State)
	assert.Equal(t, model.PatternNeutral, res.Pattern)
}

func TestCompute_StrongSlopeAddsBothBonuses(t *testing.T) {
	m := newMock()
	setIVs(m, 10, 10, 17, 18)
	s := newScorer(t, m)

	res := s.Compute(context.Background(), "BTC")
	require.Equal(t, model.StatusOK, res.Status)
	// slope 7 clears both the 3.0 and 6.0 thresholds, plus neutral skew
	assert.Equal(t, 70, *res.Score)
	assert.Equal(t, model.StateHot, res.State)
}

func TestCompute_NeutralSkewBonus(t *testing.T) {
	m := newMock()
	setIVs(m, 50, 52, 50, 50)
	s := newScorer(t, m)

	res := s.Compute(context.Background(), "BTC")
	require.Equal(t, model.StatusOK, res.Status)
	assert.Equal(t, 1.04, *res.Skew)
	assert.Equal(t, 10, *res.Score)
}

func TestCompute_ExtremeSkewPenaltyClampsAtZero(t *testing.T) {
	m := newMock()
	setIVs(m, 10, 12, 10, 10)
	s := newScorer(t, m)

	res := s.Compute(context.Background(), "BTC")
	require.Equal(t, model.StatusOK, res.Status)
	assert.Equal(t, 1.2, *res.Skew)
	assert.Equal(t, 0, *res.Score, "-10 penalty clamped to zero")
	assert.Equal(t, model.StateCold, res.State)
}

func TestCompute_ZeroNearCallIVYieldsNilSkew(t *testing.T) {
	m := newMock()
	setIVs(m, 0, 12, 10, 10)
	s := newScorer(t, m)

	res := s.Compute(context.Background(), "BTC")
	require.Equal(t, model.StatusOK, res.Status)
	assert.Nil(t, res.Skew, "division by zero must yield absent skew")
}

func TestCompute_HistoryMeanBonus(t *testing.T) {
	m := newMock()
	s := newScorer(t, m)

	// flat slope, rising near IV: 10, 12, 14 -> mean 12 on the third cycle
	for _, iv := range []float64{10, 12} {
		setIVs(m, iv, iv, iv, iv)
		res := s.Compute(context.Background(), "BTC")
		require.Equal(t, model.StatusOK, res.Status)
		assert.Equal(t, 10, *res.Score, "only the neutral-skew bonus before the window fills")
	}

	setIVs(m, 14, 14, 14, 14)
	res := s.Compute(context.Background(), "BTC")
	require.Equal(t, model.StatusOK, res.Status)
	assert.Equal(t, 30, *res.Score, "+20 above-mean bonus once the window holds 3 entries")
	assert.Equal(t, model.StateWarm, res.State)
}

func TestCompute_PreBreakPattern(t *testing.T) {
	m := newMock()
	s := newScorer(t, m)

	// strictly increasing slope, stable near IV, neutral skew
	setIVs(m, 50, 50, 51, 52) // slope 1
	s.Compute(context.Background(), "BTC")
	setIVs(m, 50, 50, 52, 54) // slope 2
	s.Compute(context.Background(), "BTC")
	setIVs(m, 50, 50, 53, 57) // slope 3, curvature +1
	res := s.Compute(context.Background(), "BTC")

	require.Equal(t, model.StatusOK, res.Status)
	assert.Equal(t, model.PatternPreBreak, res.Pattern)
}

func TestCompute_PostEventPattern(t *testing.T) {
	m := newMock()
	s := newScorer(t, m)

	setIVs(m, 60, 60, 60, 60)
	s.Compute(context.Background(), "BTC")
	setIVs(m, 58, 58, 58, 58)
	s.Compute(context.Background(), "BTC")
	// slope -3, curvature -1, near IV below the second-most-recent entry
	setIVs(m, 50, 50, 47, 43)
	res := s.Compute(context.Background(), "BTC")

	require.Equal(t, model.StatusOK, res.Status)
	assert.Equal(t, model.PatternPostEvent, res.Pattern)
}

func TestCompute_ShortHistoryIsNeutral(t *testing.T) {
	m := newMock()
	setIVs(m, 50, 50, 60, 72)
	s := newScorer(t, m)

	res := s.Compute(context.Background(), "BTC")
	require.Equal(t, model.StatusOK, res.Status)
	assert.Equal(t, model.PatternNeutral, res.Pattern)
}

func TestCompute_DegradedReasons(t *testing.T) {
	t.Run("fetch failure", func(t *testing.T) {
		m := newMock()
		m.Err = errors.New("network down")
		res := newScorer(t, m).Compute(context.Background(), "BTC")
		require.True(t, res.Degraded())
		assert.Equal(t, model.ReasonException, res.Reason)
		assert.Equal(t, model.StateDegraded, res.State)
		assert.Nil(t, res.Score)
	})

	t.Run("missing maturity rung", func(t *testing.T) {
		m := newMock()
		// drop the far expiry
		m.Instruments["BTC"] = m.Instruments["BTC"][:3]
		res := newScorer(t, m).Compute(context.Background(), "BTC")
		require.True(t, res.Degraded())
		assert.Equal(t, model.ReasonNoExpiries, res.Reason)
	})

	t.Run("missing put contract", func(t *testing.T) {
		m := newMock()
		ins := m.Instruments["BTC"]
		m.Instruments["BTC"] = append(ins[:1:1], ins[2:]...)
		res := newScorer(t, m).Compute(context.Background(), "BTC")
		require.True(t, res.Degraded())
		assert.Equal(t, model.ReasonNoATM, res.Reason)
	})

	t.Run("missing book", func(t *testing.T) {
		m := newMock()
		setIVs(m, 10, 10, 10, 10)
		delete(m.Quotes, "MC")
		res := newScorer(t, m).Compute(context.Background(), "BTC")
		require.True(t, res.Degraded())
		assert.Equal(t, model.ReasonNoBook, res.Reason)
	})

	t.Run("missing implied vol", func(t *testing.T) {
		m := newMock()
		setIVs(m, 10, 10, 10, 10)
		m.Quotes["FC"] = &model.MarketQuote{InstrumentName: "FC"}
		res := newScorer(t, m).Compute(context.Background(), "BTC")
		require.True(t, res.Degraded())
		assert.Equal(t, model.ReasonNoIV, res.Reason)
	})
}

func TestCompute_ScoreAlwaysInRange(t *testing.T) {
	m := newMock()
	s := newScorer(t, m)
	cases := [][4]float64{
		{10, 12, 10, 10},
		{10, 10, 20, 35},
		{50, 52, 58, 70},
		{80, 60, 85, 95},
	}
	for _, c := range cases {
		setIVs(m, c[0], c[1], c[2], c[3])
		res := s.Compute(context.Background(), "BTC")
		require.Equal(t, model.StatusOK, res.Status)
		assert.GreaterOrEqual(t, *res.Score, 0)
		assert.LessOrEqual(t, *res.Score, 100)
	}
}

func TestClassifyState_Boundaries(t *testing.T) {
	tests := []struct {
		score int
		state model.VbiState
	}{
		{0, model.StateCold},
		{29, model.StateCold},
		{30, model.StateWarm},
		{60, model.StateWarm},
		{61, model.StateHot},
		{100, model.StateHot},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.state, classifyState(tt.score), "score %d", tt.score)
	}
}
