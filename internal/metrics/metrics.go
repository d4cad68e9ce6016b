package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes the bot's operational counters via Prometheus.
type Metrics struct {
	cycles       prometheus.Counter
	results      *prometheus.CounterVec
	degraded     *prometheus.CounterVec
	sinkFailures prometheus.Counter
	alerts       *prometheus.CounterVec
	score        *prometheus.GaugeVec
}

// New registers all metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		cycles: promauto.NewCounter(prometheus.CounterOpts{
			Name: "volsentinel_cycles_total",
			Help: "Total number of completed scoring cycles",
		}),
		results: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "volsentinel_results_total",
			Help: "Per-currency results by status",
		}, []string{"symbol", "status"}),
		degraded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "volsentinel_degraded_total",
			Help: "Degraded results by reason",
		}, []string{"symbol", "reason"}),
		sinkFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "volsentinel_sink_failures_total",
			Help: "Event sink writes that failed (best-effort, never fatal)",
		}),
		alerts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "volsentinel_alerts_total",
			Help: "Degraded-streak alerts sent",
		}, []string{"symbol"}),
		score: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "volsentinel_vbi_score",
			Help: "Last computed VBI score per currency",
		}, []string{"symbol"}),
	}
}

func (m *Metrics) CycleCompleted() { m.cycles.Inc() }

func (m *Metrics) RecordResult(symbol, status string) {
	m.results.WithLabelValues(symbol, status).Inc()
}

func (m *Metrics) RecordDegraded(symbol, reason string) {
	m.degraded.WithLabelValues(symbol, reason).Inc()
}

func (m *Metrics) SinkFailure() { m.sinkFailures.Inc() }

func (m *Metrics) AlertSent(symbol string) {
	m.alerts.WithLabelValues(symbol).Inc()
}

func (m *Metrics) SetScore(symbol string, score int) {
	m.score.WithLabelValues(symbol).Set(float64(score))
}
