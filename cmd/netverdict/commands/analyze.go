package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bkoehler/netverdict/internal/engine"
	"github.com/bkoehler/netverdict/internal/explain"
	"github.com/bkoehler/netverdict/internal/rules"
)

var (
	analyzeRulesPath   string
	analyzeSignalsPath string
	analyzeSetFlags    []string
	analyzeOutput      string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run one diagnosis against a rule set",
	Long: `Analyze evaluates the provided signals against the rule set and prints
the verdict. Signals come from a YAML/JSON file, repeated --set flags, or
both (--set wins on conflict).`,
	Example: `  netverdict analyze --rules rules.yaml --set dns_latency_ms=420 --set cpu_usage_percent=22
  netverdict analyze --rules rules.yaml --signals measurements.yaml --output json`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeRulesPath, "rules", "rules.yaml", "Path to the rule-set YAML file")
	analyzeCmd.Flags().StringVar(&analyzeSignalsPath, "signals", "", "Path to a YAML/JSON file with observed signals")
	analyzeCmd.Flags().StringArrayVar(&analyzeSetFlags, "set", nil, "Set a signal (key=value, repeatable)")
	analyzeCmd.Flags().StringVar(&analyzeOutput, "output", "text", "Output format: text or json")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	rs, report, err := rules.Load(analyzeRulesPath)
	if err != nil {
		return err
	}
	for _, warning := range report.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", warning)
	}

	signals, err := loadSignals(analyzeSignalsPath, analyzeSetFlags)
	if err != nil {
		return err
	}

	result := engine.New(rs).Analyze(signals)

	switch analyzeOutput {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case "text":
		fmt.Print(explain.Format(result))
		return nil
	default:
		return fmt.Errorf("unknown output format %q (expected text or json)", analyzeOutput)
	}
}
