package engine

import (
	"maps"
	"slices"

	"github.com/bkoehler/netverdict/internal/rules"
)

// hypothesisState is one hypothesis in the per-analysis snapshot. The
// eliminated flag is one-way: once set, the score is frozen at 0.
type hypothesisState struct {
	name       string
	score      float64
	eliminated bool
}

// analysisState is the working state of a single analysis. It is built
// fresh from the rule set at the start of every call and discarded with
// the result, so nothing leaks between analyses.
type analysisState struct {
	hyps            []hypothesisState // declaration order
	index           map[string]int
	eliminatedOrder []string
	applied         []AppliedRule
}

func newAnalysisState(rs *rules.RuleSet) *analysisState {
	st := &analysisState{
		hyps:            make([]hypothesisState, 0, len(rs.Hypotheses)),
		index:           make(map[string]int, len(rs.Hypotheses)),
		eliminatedOrder: []string{},
		applied:         []AppliedRule{},
	}
	for _, seed := range rs.Hypotheses {
		st.index[seed.Name] = len(st.hyps)
		st.hyps = append(st.hyps, hypothesisState{name: seed.Name, score: seed.Score})
	}
	return st
}

// runElimination applies the elimination rules in declaration order.
// Every matching rule is recorded in the applied-rule log, even when all
// of its targets were already eliminated; firing is independent of
// changing state. Elimination runs to completion before scoring so no
// scoring delta can ever revive a ruled-out hypothesis.
func (e *Engine) runElimination(st *analysisState, signals Signals) {
	for _, rule := range e.rules.EliminationRules {
		if !e.eval.matches(rule.ID, rule.If, signals) {
			continue
		}
		e.metrics.ruleMatched(KindElimination)
		st.applied = append(st.applied, AppliedRule{
			ID:          rule.ID,
			Kind:        KindElimination,
			Explanation: rule.Explanation,
			Eliminated:  slices.Clone(rule.Eliminate),
		})
		for _, name := range rule.Eliminate {
			i, ok := st.index[name]
			if !ok {
				continue
			}
			h := &st.hyps[i]
			h.score = 0
			if !h.eliminated {
				h.eliminated = true
				st.eliminatedOrder = append(st.eliminatedOrder, name)
			}
		}
	}
}

// runScoring applies the scoring rules in declaration order. Deltas
// targeting eliminated or undeclared hypotheses are skipped silently;
// surviving scores are clamped to a floor of 0. One applied-rule record is
// appended per matching rule with the raw delta map it declared.
func (e *Engine) runScoring(st *analysisState, signals Signals) {
	for _, rule := range e.rules.ScoringRules {
		if !e.eval.matches(rule.ID, rule.If, signals) {
			continue
		}
		e.metrics.ruleMatched(KindScoring)
		st.applied = append(st.applied, AppliedRule{
			ID:          rule.ID,
			Kind:        KindScoring,
			Explanation: rule.Explanation,
			Deltas:      maps.Clone(rule.Then),
		})
		for name, delta := range rule.Then {
			i, ok := st.index[name]
			if !ok || st.hyps[i].eliminated {
				continue
			}
			st.hyps[i].score += delta
			if st.hyps[i].score < 0 {
				st.hyps[i].score = 0
			}
		}
	}
}
