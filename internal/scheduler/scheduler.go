package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"VolSentinel/internal/metrics"
	"VolSentinel/internal/model"
	"VolSentinel/internal/notifier"
	"VolSentinel/internal/recorder"
)

// Scorer computes one currency's VBI result. It never fails: degraded
// market data yields a degraded result.
type Scorer interface {
	Compute(ctx context.Context, currency string) *model.VbiResult
}

// Notifier delivers alert messages.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// streak tracks consecutive degraded cycles for one currency. The alerted
// latch guarantees at most one alert per degraded streak.
type streak struct {
	count   int
	alerted bool
}

// Scheduler drives one scoring pass over all currencies per tick and owns
// the degraded-cycle counters that gate alerting.
type Scheduler struct {
	cron           *cron.Cron
	scorer         Scorer
	recorder       recorder.Recorder
	notifier       Notifier
	metrics        *metrics.Metrics
	currencies     []string
	alertThreshold int
	ctx            context.Context

	mu      sync.Mutex
	streaks map[string]*streak
	last    map[string]*model.VbiResult
}

// New creates a Scheduler. The cron chain skips a tick when the previous
// cycle is still running, so a slow provider never stacks cycles.
func New(ctx context.Context, scorer Scorer, rec recorder.Recorder, n Notifier, m *metrics.Metrics, currencies []string, alertThreshold int) *Scheduler {
	return &Scheduler{
		cron:           cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		scorer:         scorer,
		recorder:       rec,
		notifier:       n,
		metrics:        m,
		currencies:     currencies,
		alertThreshold: alertThreshold,
		ctx:            ctx,
		streaks:        make(map[string]*streak),
		last:           make(map[string]*model.VbiResult),
	}
}

// Register schedules the cycle at a fixed interval.
func (s *Scheduler) Register(interval time.Duration) error {
	spec := fmt.Sprintf("@every %ds", int(interval.Seconds()))
	if _, err := s.cron.AddFunc(spec, s.RunCycle); err != nil {
		return fmt.Errorf("register cycle: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Info().Msg("scheduler stopped")
}

// RunCycle runs one pass over all currencies sequentially, records every
// result, updates degraded streaks, and emits one heartbeat.
func (s *Scheduler) RunCycle() {
	log.Info().Msg("running cycle")
	for _, currency := range s.currencies {
		res := s.scorer.Compute(s.ctx, currency)
		s.record(res)
		s.track(res)

		s.metrics.RecordResult(currency, res.Status)
		if res.Degraded() {
			s.metrics.RecordDegraded(currency, string(res.Reason))
			log.Warn().Str("symbol", currency).Str("reason", string(res.Reason)).Msg("degraded result")
		} else {
			s.metrics.SetScore(currency, *res.Score)
			log.Info().Str("symbol", currency).
				Int("score", *res.Score).
				Str("state", string(res.State)).
				Str("pattern", string(res.Pattern)).
				Msg("cycle result")
		}
	}

	if err := s.recorder.RecordHeartbeat(time.Now().UnixMilli()); err != nil {
		s.metrics.SinkFailure()
		log.Error().Err(err).Msg("record heartbeat")
	}
	s.metrics.CycleCompleted()
}

// record hands the result to the sink best-effort: a sink failure is logged
// and counted but never affects the computation.
func (s *Scheduler) record(res *model.VbiResult) {
	if err := s.recorder.RecordCycle(res); err != nil {
		s.metrics.SinkFailure()
		log.Error().Err(err).Str("symbol", res.Symbol).Msg("record cycle")
	}
}

// track updates the currency's degraded streak and fires at most one alert
// per streak once it reaches the threshold. An ok result resets the counter
// and re-arms alerting.
func (s *Scheduler) track(res *model.VbiResult) {
	s.mu.Lock()
	st, ok := s.streaks[res.Symbol]
	if !ok {
		st = &streak{}
		s.streaks[res.Symbol] = st
	}
	s.last[res.Symbol] = res

	if !res.Degraded() {
		st.count = 0
		st.alerted = false
		s.mu.Unlock()
		return
	}

	st.count++
	fire := st.count >= s.alertThreshold && !st.alerted
	if fire {
		st.alerted = true
	}
	count := st.count
	s.mu.Unlock()

	if fire {
		msg := notifier.FormatDegradedAlert(res.Symbol, count, res.Reason)
		if err := s.notifier.SendWithRetry(s.ctx, msg, 3); err != nil {
			log.Error().Err(err).Str("symbol", res.Symbol).Msg("send degraded alert")
		}
		s.metrics.AlertSent(res.Symbol)
	}
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	switch command {
	case "/status":
		s.mu.Lock()
		last := make(map[string]*model.VbiResult, len(s.last))
		for k, v := range s.last {
			last[k] = v
		}
		s.mu.Unlock()
		return notifier.FormatStatus(last)
	case "/vbi":
		go s.RunCycle()
		return "Cycle started."
	default:
		return "Commands:\n• /status — last VBI result per currency\n• /vbi — run a cycle now"
	}
}
