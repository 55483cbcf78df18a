package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads and parses a rule-set file, then validates it. Reference
// problems (e.g. a scoring rule naming an undeclared hypothesis) are
// reported as warnings in the returned Report; only structural problems
// fail the load.
func Load(path string) (*RuleSet, *Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read rule set from %q: %w", path, err)
	}
	rs, report, err := Parse(data)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse rule set from %q: %w", path, err)
	}
	return rs, report, nil
}

// Parse parses a rule-set document from YAML bytes and validates it.
func Parse(data []byte) (*RuleSet, *Report, error) {
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, nil, fmt.Errorf("invalid rule set YAML: %w", err)
	}
	report := rs.Validate()
	if err := report.Err(); err != nil {
		return nil, report, err
	}
	return &rs, report, nil
}
