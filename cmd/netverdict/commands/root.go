// Package commands implements the netverdict CLI.
package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bkoehler/netverdict/internal/logging"
)

const Version = "0.1.0"

var logLevelFlags []string

var rootCmd = &cobra.Command{
	Use:   "netverdict",
	Short: "Netverdict - rule-based network bottleneck diagnosis",
	Long: `Netverdict evaluates observed network and performance signals against an
externally authored rule set and produces a ranked, explainable verdict on
the most likely bottleneck.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return applyLogLevels(logLevelFlags)
	},
	SilenceUsage: true,
}

// applyLogLevels parses repeated --log-level values. A bare level sets
// the global default; "package=level" (with optional ".*" patterns)
// overrides individual components.
func applyLogLevels(specs []string) error {
	overrides := map[string]string{}
	for _, spec := range specs {
		if pkg, level, found := strings.Cut(spec, "="); found {
			if pkg == "" {
				return fmt.Errorf("invalid --log-level %q, expected package=level", spec)
			}
			overrides[pkg] = level
			continue
		}
		if err := logging.Initialize(spec); err != nil {
			return err
		}
	}
	return logging.SetPackageLogLevels(overrides)
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringArrayVar(&logLevelFlags, "log-level", []string{"info"},
		"Log level, repeatable: a bare level sets the default, package=level overrides one component (e.g. --log-level warn --log-level rules.*=debug)")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(serveCmd)
}

// HandleError prints the error and exits.
func HandleError(err error, msg string) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
		os.Exit(1)
	}
}
