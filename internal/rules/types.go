// Package rules defines the diagnostic rule-set document and its loader.
//
// A rule set is externally authored YAML: candidate root causes with initial
// scores, an ordered list of elimination rules, an ordered list of scoring
// rules, and recommended next steps per cause. Declaration order is
// significant everywhere; the loader preserves it, including YAML mapping
// order for the hypotheses block.
package rules

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// SupportedVersion is the rule-set document version this loader understands.
const SupportedVersion = 1

// Op is one of the recognized comparison operators in a condition.
// Unrecognized symbols parse to OpUnknown; evaluating one fails the
// condition and surfaces a warning, never an error.
type Op int

const (
	// OpUnknown marks an operator symbol the engine does not recognize.
	OpUnknown Op = iota
	// OpGT is strictly greater than.
	OpGT
	// OpGTE is greater than or equal.
	OpGTE
	// OpLT is strictly less than.
	OpLT
	// OpLTE is less than or equal.
	OpLTE
	// OpEQ is loose equality.
	OpEQ
	// OpNEQ is loose inequality.
	OpNEQ
)

// ParseOp maps an operator symbol to its Op. Anything outside the six
// recognized symbols maps to OpUnknown.
func ParseOp(symbol string) Op {
	switch symbol {
	case ">":
		return OpGT
	case ">=":
		return OpGTE
	case "<":
		return OpLT
	case "<=":
		return OpLTE
	case "==":
		return OpEQ
	case "!=":
		return OpNEQ
	default:
		return OpUnknown
	}
}

// String returns the operator symbol.
func (o Op) String() string {
	switch o {
	case OpGT:
		return ">"
	case OpGTE:
		return ">="
	case OpLT:
		return "<"
	case OpLTE:
		return "<="
	case OpEQ:
		return "=="
	case OpNEQ:
		return "!="
	default:
		return "?"
	}
}

// OpCheck is a single operator/threshold pair inside an operator-set
// condition. Symbol keeps the authored text so diagnostics can report
// unrecognized operators verbatim.
type OpCheck struct {
	Op        Op
	Symbol    string
	Threshold float64
}

// Condition is either a scalar literal that must loosely equal the signal,
// or a conjunction of operator checks against the signal as a number.
// Exactly one of Scalar and Ops is set.
type Condition struct {
	Scalar any
	Ops    []OpCheck
}

// IsOperatorSet reports whether the condition is an operator set.
func (c Condition) IsOperatorSet() bool {
	return len(c.Ops) > 0
}

// UnmarshalYAML decodes a condition node. A YAML mapping is an operator
// set; any scalar (string, bool, number) is a literal.
func (c *Condition) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			keyNode, valNode := node.Content[i], node.Content[i+1]
			var threshold float64
			if err := valNode.Decode(&threshold); err != nil {
				return fmt.Errorf("line %d: operator %q threshold must be a number: %w",
					valNode.Line, keyNode.Value, err)
			}
			c.Ops = append(c.Ops, OpCheck{
				Op:        ParseOp(keyNode.Value),
				Symbol:    keyNode.Value,
				Threshold: threshold,
			})
		}
		if len(c.Ops) == 0 {
			return fmt.Errorf("line %d: empty operator set", node.Line)
		}
		return nil
	case yaml.ScalarNode:
		var scalar any
		if err := node.Decode(&scalar); err != nil {
			return err
		}
		c.Scalar = scalar
		return nil
	default:
		return fmt.Errorf("line %d: condition must be a scalar or an operator mapping", node.Line)
	}
}

// Trigger maps signal keys to conditions. All entries must hold for the
// trigger to match.
type Trigger map[string]Condition

// Rule is one elimination or scoring rule. Eliminate is set for
// elimination rules, Then for scoring rules.
type Rule struct {
	ID          string             `yaml:"id"`
	If          Trigger            `yaml:"if"`
	Eliminate   []string           `yaml:"eliminate,omitempty"`
	Then        map[string]float64 `yaml:"then,omitempty"`
	Explanation string             `yaml:"explanation"`
}

// HypothesisSeed is one candidate root cause with its initial score.
type HypothesisSeed struct {
	Name  string
	Score float64
}

// HypothesisList preserves the declaration order of the hypotheses
// mapping. Order is the authoritative tie-break when ranked causes end up
// with equal confidence.
type HypothesisList []HypothesisSeed

// UnmarshalYAML walks the mapping node directly so key order survives
// decoding; a plain map would lose it.
func (h *HypothesisList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: hypotheses must be a mapping", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]
		var seed struct {
			Score float64 `yaml:"score"`
		}
		if err := valNode.Decode(&seed); err != nil {
			return fmt.Errorf("line %d: hypothesis %q: %w", valNode.Line, keyNode.Value, err)
		}
		*h = append(*h, HypothesisSeed{Name: keyNode.Value, Score: seed.Score})
	}
	return nil
}

// Names returns the hypothesis names in declaration order.
func (h HypothesisList) Names() []string {
	names := make([]string, len(h))
	for i, seed := range h {
		names[i] = seed.Name
	}
	return names
}

// Has reports whether a hypothesis with the given name is declared.
func (h HypothesisList) Has(name string) bool {
	for _, seed := range h {
		if seed.Name == name {
			return true
		}
	}
	return false
}

// RuleSet is the immutable rule-set document. It is created once by the
// loader and treated as read-only afterwards; a single RuleSet is safe to
// share across concurrent analyses.
type RuleSet struct {
	Version          int                 `yaml:"version"`
	Hypotheses       HypothesisList      `yaml:"hypotheses"`
	EliminationRules []Rule              `yaml:"elimination_rules"`
	ScoringRules     []Rule              `yaml:"rules"`
	NextSteps        map[string][]string `yaml:"next_steps"`
}
