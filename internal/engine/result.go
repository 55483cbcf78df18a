package engine

import (
	"math"
	"slices"
	"sort"
)

// UnknownCause is the primary cause reported when no evidence accumulates.
const UnknownCause = "unknown"

// Confidence level thresholds in percent.
const (
	highConfidenceThreshold   = 65
	mediumConfidenceThreshold = 40
)

// genericNextSteps is the fallback recommendation list, used for the
// unknown verdict and for a primary cause without a next_steps entry.
var genericNextSteps = []string{
	"Re-run the diagnosis with more measurements enabled",
	"Collect latency samples at a different time of day",
	"Check with your network administrator or ISP",
}

// calculate normalizes the surviving scores into confidence percentages,
// ranks them, and assembles the verdict.
func calculate(st *analysisState, nextSteps map[string][]string) Result {
	// Evidence is every scoring-kind explanation in application order,
	// duplicates preserved. It is reported even for the unknown verdict so
	// the caller can see what was checked.
	evidence := []string{}
	for _, rec := range st.applied {
		if rec.Kind == KindScoring {
			evidence = append(evidence, rec.Explanation)
		}
	}

	var total float64
	for _, h := range st.hyps {
		if !h.eliminated {
			total += h.score
		}
	}

	if total == 0 {
		return Result{
			PrimaryCause:      UnknownCause,
			ConfidencePercent: 0,
			ConfidenceLevel:   LevelLow,
			Evidence:          evidence,
			EliminatedCauses:  st.eliminatedOrder,
			NextSteps:         slices.Clone(genericNextSteps),
			RankedHypotheses:  []RankedHypothesis{},
			AppliedRules:      st.applied,
		}
	}

	// Build the ranked list in declaration order first, then sort stably by
	// percentage. Stability makes declaration order the tie-break, which is
	// deliberate: raw-score ties can diverge from percentage ties after
	// rounding.
	ranked := make([]RankedHypothesis, 0, len(st.hyps))
	for _, h := range st.hyps {
		if h.eliminated {
			continue
		}
		ranked = append(ranked, RankedHypothesis{
			Name:              h.name,
			Score:             h.score,
			ConfidencePercent: int(math.Round(h.score / total * 100)),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].ConfidencePercent > ranked[j].ConfidencePercent
	})

	top := ranked[0]
	steps, ok := nextSteps[top.Name]
	if ok {
		steps = slices.Clone(steps)
	} else {
		steps = slices.Clone(genericNextSteps)
	}

	return Result{
		PrimaryCause:      top.Name,
		ConfidencePercent: top.ConfidencePercent,
		ConfidenceLevel:   levelFor(top.ConfidencePercent),
		RawScore:          top.Score,
		Evidence:          evidence,
		EliminatedCauses:  st.eliminatedOrder,
		NextSteps:         steps,
		RankedHypotheses:  ranked,
		AppliedRules:      st.applied,
	}
}

func levelFor(percent int) Level {
	switch {
	case percent >= highConfidenceThreshold:
		return LevelHigh
	case percent >= mediumConfidenceThreshold:
		return LevelMedium
	default:
		return LevelLow
	}
}
