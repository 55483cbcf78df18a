// Package engine implements the rule-based diagnostic engine.
//
// Analyze is a deterministic, purely computational transform from
// (rule set, signals) to a ranked, explainable verdict:
//   - elimination rules run first and permanently rule hypotheses out
//   - scoring rules adjust the survivors, never below zero and never
//     reviving an eliminated hypothesis
//   - surviving scores are normalized into confidence percentages and
//     ranked, with rule-set declaration order as the tie-break
//
// All working state is local to one Analyze call, so a single Engine is
// safe for concurrent analyses against its shared, read-only rule set.
package engine

import (
	"time"

	"github.com/bkoehler/netverdict/internal/logging"
	"github.com/bkoehler/netverdict/internal/rules"
)

// Engine evaluates analyses against one immutable rule set.
type Engine struct {
	rules   *rules.RuleSet
	eval    conditionEvaluator
	metrics *Metrics
	warn    WarnFunc
}

// Option configures an Engine.
type Option func(*Engine)

// WithWarnFunc overrides the sink for non-fatal analysis warnings.
func WithWarnFunc(fn WarnFunc) Option {
	return func(e *Engine) { e.warn = fn }
}

// WithMetrics attaches prometheus metrics to the engine.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New creates an engine for the given rule set. The rule set must not be
// mutated afterwards.
func New(rs *rules.RuleSet, opts ...Option) *Engine {
	logger := logging.GetLogger("engine")
	e := &Engine{
		rules: rs,
		warn: func(msg string, fields ...logging.LogField) {
			logger.WarnWithFields(msg, fields...)
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.eval = conditionEvaluator{warn: func(msg string, fields ...logging.LogField) {
		e.metrics.unknownOperator()
		e.warn(msg, fields...)
	}}
	return e
}

// RuleSet returns the rule set this engine evaluates against.
func (e *Engine) RuleSet() *rules.RuleSet {
	return e.rules
}

// Analyze runs one analysis. It always produces a Result: with no
// accumulated evidence it falls back to the unknown verdict rather than
// failing. Each call starts from a fresh hypothesis snapshot initialized
// from the rule set; nothing carries over from prior calls.
func (e *Engine) Analyze(signals Signals) Result {
	start := time.Now()

	st := newAnalysisState(e.rules)
	e.runElimination(st, signals)
	e.runScoring(st, signals)
	result := calculate(st, e.rules.NextSteps)

	e.metrics.analysisDone(time.Since(start))
	return result
}
