package rules

import (
	"errors"
	"fmt"
	"strings"
)

// Report collects the outcome of rule-set validation. Errors make the
// document unusable; warnings flag reference problems the engine tolerates
// at analysis time (unknown hypothesis names are skipped silently there,
// unknown operators fail their condition with a runtime warning).
type Report struct {
	Errors   []string
	Warnings []string
}

func (r *Report) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Report) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Err returns a single error summarizing all validation errors, or nil.
func (r *Report) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return errors.New("rule set validation failed: " + strings.Join(r.Errors, "; "))
}

// Validate checks the document structure and cross-references. The engine
// itself never re-validates; it assumes a loaded RuleSet passed through
// here.
func (rs *RuleSet) Validate() *Report {
	report := &Report{}

	if rs.Version != 0 && rs.Version != SupportedVersion {
		report.errorf("unsupported version %d (supported: %d)", rs.Version, SupportedVersion)
	}
	if len(rs.Hypotheses) == 0 {
		report.errorf("no hypotheses declared")
	}

	seenNames := make(map[string]bool, len(rs.Hypotheses))
	for _, seed := range rs.Hypotheses {
		if seenNames[seed.Name] {
			report.errorf("duplicate hypothesis %q", seed.Name)
		}
		seenNames[seed.Name] = true
		if seed.Score < 0 {
			report.errorf("hypothesis %q has negative initial score %v", seed.Name, seed.Score)
		}
	}

	seenIDs := make(map[string]bool)
	checkRule := func(kind string, rule Rule) {
		if rule.ID == "" {
			report.errorf("%s rule without id", kind)
			return
		}
		if seenIDs[rule.ID] {
			report.errorf("duplicate rule id %q", rule.ID)
		}
		seenIDs[rule.ID] = true
		if len(rule.If) == 0 {
			report.errorf("rule %q has no trigger conditions", rule.ID)
		}
		for key, cond := range rule.If {
			for _, check := range cond.Ops {
				if check.Op == OpUnknown {
					report.warnf("rule %q: unrecognized operator %q on signal %q (condition will never match)",
						rule.ID, check.Symbol, key)
				}
			}
		}
	}

	for _, rule := range rs.EliminationRules {
		checkRule("elimination", rule)
		if len(rule.Eliminate) == 0 {
			report.errorf("elimination rule %q eliminates nothing", rule.ID)
		}
		if len(rule.Then) > 0 {
			report.errorf("elimination rule %q must not have a 'then' effect", rule.ID)
		}
		for _, name := range rule.Eliminate {
			if !seenNames[name] {
				report.warnf("elimination rule %q references undeclared hypothesis %q", rule.ID, name)
			}
		}
	}

	for _, rule := range rs.ScoringRules {
		checkRule("scoring", rule)
		if len(rule.Then) == 0 {
			report.errorf("scoring rule %q has no score deltas", rule.ID)
		}
		if len(rule.Eliminate) > 0 {
			report.errorf("scoring rule %q must not have an 'eliminate' effect", rule.ID)
		}
		for name := range rule.Then {
			if !seenNames[name] {
				report.warnf("scoring rule %q references undeclared hypothesis %q", rule.ID, name)
			}
		}
	}

	for name := range rs.NextSteps {
		if !seenNames[name] {
			report.warnf("next_steps references undeclared hypothesis %q", name)
		}
	}

	return report
}
