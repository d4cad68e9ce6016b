package vbi

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"VolSentinel/internal/config"
	"VolSentinel/internal/model"
	"VolSentinel/internal/provider"
	"VolSentinel/internal/selector"
)

// Scorer derives the volatility breakout indicator for one currency per
// cycle. It is stateless with respect to the current cycle's market data but
// owns the per-currency rolling history across cycles.
type Scorer struct {
	provider provider.Provider
	params   config.VBIParams
	hist     *HistoryStore
}

// NewScorer creates a scorer backed by the given provider and history store.
func NewScorer(p provider.Provider, params config.VBIParams, hist *HistoryStore) *Scorer {
	return &Scorer{provider: p, params: params, hist: hist}
}

// Compute runs one full scoring pass for the currency. It never returns an
// error: every failure mode is converted into a degraded result so one
// currency can never abort the cycle for the rest.
func (s *Scorer) Compute(ctx context.Context, currency string) (res *model.VbiResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("symbol", currency).Any("panic", r).Msg("scoring panicked")
			res = model.NewDegraded(currency, model.ReasonException, time.Now())
		}
	}()

	now := time.Now()

	instruments, err := s.provider.ListOptions(ctx, currency)
	if err != nil {
		log.Warn().Err(err).Str("symbol", currency).Msg("list options failed")
		return model.NewDegraded(currency, model.ReasonException, now)
	}
	spot, err := s.provider.GetIndexPrice(ctx, currency)
	if err != nil {
		log.Warn().Err(err).Str("symbol", currency).Msg("index price failed")
		return model.NewDegraded(currency, model.ReasonException, now)
	}

	ladder, ok := selector.Ladder(instruments, now, s.params.NearBucket, s.params.MidBucket, s.params.FarBucket)
	if !ok {
		return model.NewDegraded(currency, model.ReasonNoExpiries, now)
	}

	nearCall := selector.ATM(instruments, ladder.Near, model.SideCall, spot)
	nearPut := selector.ATM(instruments, ladder.Near, model.SidePut, spot)
	midCall := selector.ATM(instruments, ladder.Mid, model.SideCall, spot)
	farCall := selector.ATM(instruments, ladder.Far, model.SideCall, spot)
	if nearCall == nil || nearPut == nil || midCall == nil || farCall == nil {
		return model.NewDegraded(currency, model.ReasonNoATM, now)
	}

	quotes := make([]*model.MarketQuote, 4)
	for i, ins := range []*model.Instrument{nearCall, nearPut, midCall, farCall} {
		q, err := s.provider.GetBookSummary(ctx, ins.Name)
		if err != nil {
			log.Warn().Err(err).Str("instrument", ins.Name).Msg("book summary failed")
			return model.NewDegraded(currency, model.ReasonException, now)
		}
		if q == nil {
			return model.NewDegraded(currency, model.ReasonNoBook, now)
		}
		quotes[i] = q
	}

	ncIV, npIV, mcIV, fcIV := quotes[0].MarkIV, quotes[1].MarkIV, quotes[2].MarkIV, quotes[3].MarkIV
	if ncIV == nil || npIV == nil || mcIV == nil || fcIV == nil {
		return model.NewDegraded(currency, model.ReasonNoIV, now)
	}

	nearIV, midIV, farIV := *ncIV, *mcIV, *fcIV
	slope1 := midIV - nearIV
	slope2 := farIV - midIV
	ivSlope := slope1
	curvature := slope2 - slope1

	var skew *float64
	if *ncIV != 0 {
		v := *npIV / *ncIV
		skew = &v
	}

	score := s.score(currency, ivSlope, nearIV, skew)
	state := classifyState(score)
	pattern := s.classifyPattern(currency, ivSlope, curvature, nearIV, skew)

	res = &model.VbiResult{
		TsUnixMs:  now.UnixMilli(),
		TsISOUTC:  model.FormatISOUTC(now),
		Symbol:    currency,
		Status:    model.StatusOK,
		State:     state,
		Score:     &score,
		NearIV:    round2(nearIV),
		MidIV:     round2(midIV),
		FarIV:     round2(farIV),
		IVSlope:   round2(ivSlope),
		Curvature: round2(curvature),
		Skew:      round3(skew),
		Pattern:   pattern,
	}
	res.Sanitize()
	return res
}

// score applies the additive scoring rules and appends this cycle's values to
// the rolling history. The history append happens before the history-mean
// rule so that rule sees the just-updated window.
func (s *Scorer) score(currency string, ivSlope, nearIV float64, skew *float64) int {
	score := 0

	if ivSlope > s.params.SlopeMedium {
		score += 40
	}
	if ivSlope > s.params.SlopeStrong {
		score += 20
	}

	s.hist.Append(currency, ivSlope, nearIV)

	_, nearHist := s.hist.Snapshot(currency)
	if len(nearHist) >= s.params.PatternWindow && nearIV > mean(nearHist) {
		score += 20
	}

	if skew != nil {
		if math.Abs(*skew-1.0) < s.params.SkewNeutralBand {
			score += 10
		}
		if math.Abs(*skew-1.0) > s.params.SkewExtremeBand {
			score -= 10
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

func classifyState(score int) model.VbiState {
	switch {
	case score < 30:
		return model.StateCold
	case score <= 60:
		return model.StateWarm
	default:
		return model.StateHot
	}
}

// classifyPattern labels the recent term-structure evolution once the slope
// window is full. POST_EVENT is checked last and overrides PRE_BREAK.
func (s *Scorer) classifyPattern(currency string, ivSlope, curvature, nearIV float64, skew *float64) model.VbiPattern {
	slopes, nearHist := s.hist.Snapshot(currency)
	if len(slopes) < s.params.PatternWindow {
		return model.PatternNeutral
	}

	pattern := model.PatternNeutral

	rising := true
	for i := 1; i < len(slopes); i++ {
		if slopes[i-1] >= slopes[i] {
			rising = false
			break
		}
	}
	stable := maxOf(nearHist)-minOf(nearHist) < s.params.NearIVStability*nearIV
	if rising && stable && skew != nil &&
		math.Abs(*skew-1.0) < s.params.SkewNeutralBand && curvature > 0 {
		pattern = model.PatternPreBreak
	}

	if ivSlope < s.params.PostEventSlope && curvature < 0 &&
		nearIV < nearHist[len(nearHist)-2] {
		pattern = model.PatternPostEvent
	}

	return pattern
}

func mean(vals []float64) float64 {
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func maxOf(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func minOf(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func round2(v float64) *float64 {
	r := math.Round(v*100) / 100
	return &r
}

func round3(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := math.Round(*v*1000) / 1000
	return &r
}
