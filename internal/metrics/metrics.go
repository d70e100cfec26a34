// Package metrics exposes Prometheus instrumentation for pipeline runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ppiankov/claimcheck/internal/model"
)

const namespace = "claimcheck"

// Metrics records stage timings, gateway outcomes and verdicts.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	stageDuration *prometheus.HistogramVec
	gatewayCalls  *prometheus.CounterVec
	verdicts      *prometheus.CounterVec
	runs          *prometheus.CounterVec
}

// New registers the collectors on reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Labels: stage (selection, disambiguation, extraction, ...)
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"stage"}),

		// Labels: context (schema name), outcome (success, failure, cache_hit)
		gatewayCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_calls_total",
			Help:      "Structured model calls by schema and outcome",
		}, []string{"context", "outcome"}),

		verdicts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verdicts_total",
			Help:      "Verified claims by verdict",
		}, []string{"verdict"}),

		// Labels: status (complete, incomplete, error)
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by terminal status",
		}, []string{"status"}),
	}
}

// ObserveStage records how long a stage took
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// GatewayCall counts one structured call outcome
func (m *Metrics) GatewayCall(context, outcome string) {
	if m == nil {
		return
	}
	m.gatewayCalls.WithLabelValues(context, outcome).Inc()
}

// Verdicts counts the verdicts of a finished run
func (m *Metrics) Verdicts(claims []model.VerifiedClaim) {
	if m == nil {
		return
	}
	for _, c := range claims {
		key := c.Result.Key()
		if key == "" {
			key = "unknown"
		}
		m.verdicts.WithLabelValues(key).Inc()
	}
}

// Run counts a finished pipeline run
func (m *Metrics) Run(status string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(status).Inc()
}
