package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for engine observability.
type Metrics struct {
	AnalysesTotal         prometheus.Counter     // Total number of analyses run
	RuleMatchesTotal      *prometheus.CounterVec // Rules that fired, by kind
	UnknownOperatorsTotal prometheus.Counter     // Unrecognized operators hit during evaluation
	AnalysisDuration      prometheus.Histogram   // Analysis wall time
}

// NewMetrics creates engine metrics registered against the provided
// registerer (global registry in production, a fresh one in tests).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AnalysesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "netverdict_analyses_total",
			Help: "Total number of diagnostic analyses run",
		}),
		RuleMatchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "netverdict_rule_matches_total",
			Help: "Total number of rules whose trigger matched, by rule kind",
		}, []string{"kind"}),
		UnknownOperatorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "netverdict_unknown_operators_total",
			Help: "Total number of unrecognized trigger operators encountered",
		}),
		AnalysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "netverdict_analysis_duration_seconds",
			Help:    "Wall time of one diagnostic analysis",
			Buckets: prometheus.ExponentialBuckets(0.000001, 10, 8),
		}),
	}
	reg.MustRegister(m.AnalysesTotal, m.RuleMatchesTotal, m.UnknownOperatorsTotal, m.AnalysisDuration)
	return m
}

// The recording helpers are nil-safe so the engine works without metrics.

func (m *Metrics) analysisDone(d time.Duration) {
	if m == nil {
		return
	}
	m.AnalysesTotal.Inc()
	m.AnalysisDuration.Observe(d.Seconds())
}

func (m *Metrics) ruleMatched(kind RuleKind) {
	if m == nil {
		return
	}
	m.RuleMatchesTotal.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) unknownOperator() {
	if m == nil {
		return
	}
	m.UnknownOperatorsTotal.Inc()
}
