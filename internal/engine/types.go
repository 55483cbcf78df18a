package engine

// Signals is the flat map of observed facts supplied per analysis. Values
// are scalars: string, bool, or a numeric type. The engine never mutates
// it; keys a rule set does not reference are simply unused.
type Signals map[string]any

// Level buckets a confidence percentage.
type Level string

const (
	// LevelLow is assigned below 40% confidence, and to the unknown verdict.
	LevelLow Level = "Low"
	// LevelMedium is assigned from 40% up to 65% confidence.
	LevelMedium Level = "Medium"
	// LevelHigh is assigned at 65% confidence and above.
	LevelHigh Level = "High"
)

// RuleKind distinguishes the two rule stages in the applied-rule log.
type RuleKind string

const (
	// KindElimination marks a rule that ruled hypotheses out.
	KindElimination RuleKind = "elimination"
	// KindScoring marks a rule that adjusted hypothesis scores.
	KindScoring RuleKind = "scoring"
)

// AppliedRule records one rule that fired during an analysis, with a
// snapshot of its declared effect. The log is evidence for auditing; it is
// never re-evaluated.
type AppliedRule struct {
	ID          string             `json:"id"`
	Kind        RuleKind           `json:"kind"`
	Explanation string             `json:"explanation"`
	Eliminated  []string           `json:"eliminated,omitempty"`
	Deltas      map[string]float64 `json:"deltas,omitempty"`
}

// RankedHypothesis is one surviving hypothesis with its final score and
// normalized confidence share.
type RankedHypothesis struct {
	Name              string  `json:"name"`
	Score             float64 `json:"score"`
	ConfidencePercent int     `json:"confidence_percent"`
}

// Result is the diagnostic verdict of one analysis.
type Result struct {
	PrimaryCause      string             `json:"primary_cause"`
	ConfidencePercent int                `json:"confidence_percent"`
	ConfidenceLevel   Level              `json:"confidence_level"`
	RawScore          float64            `json:"raw_score"`
	Evidence          []string           `json:"evidence"`
	EliminatedCauses  []string           `json:"eliminated_causes"`
	NextSteps         []string           `json:"next_steps"`
	RankedHypotheses  []RankedHypothesis `json:"ranked_hypotheses"`
	AppliedRules      []AppliedRule      `json:"applied_rules"`
}
