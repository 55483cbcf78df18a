package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bkoehler/netverdict/internal/rules"
)

var validateRulesPath string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a rule-set file",
	Long: `Validate loads a rule-set file and reports structural errors and
reference warnings (rules or next steps naming undeclared hypotheses,
unrecognized operators). Exits non-zero when the document is unusable.`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateRulesPath, "rules", "rules.yaml", "Path to the rule-set YAML file")
}

func runValidate(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(validateRulesPath)
	if err != nil {
		return fmt.Errorf("failed to read rule set from %q: %w", validateRulesPath, err)
	}

	rs, report, err := rules.Parse(data)
	if report != nil {
		for _, msg := range report.Errors {
			fmt.Fprintf(os.Stderr, "error: %s\n", msg)
		}
		for _, msg := range report.Warnings {
			fmt.Fprintf(os.Stderr, "warning: %s\n", msg)
		}
	}
	if err != nil {
		return fmt.Errorf("rule set %q is invalid", validateRulesPath)
	}

	fmt.Printf("%s: OK (%d hypotheses, %d elimination rules, %d scoring rules, %d warnings)\n",
		validateRulesPath, len(rs.Hypotheses), len(rs.EliminationRules), len(rs.ScoringRules),
		len(report.Warnings))
	return nil
}
