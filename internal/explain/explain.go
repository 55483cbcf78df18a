// Package explain renders a diagnostic verdict as human-readable text.
// It is pure presentation of already-computed data: no state, no I/O.
package explain

import (
	"fmt"
	"strings"

	"github.com/bkoehler/netverdict/internal/engine"
)

// displayNames maps hypothesis identifiers to user-facing names. Unknown
// identifiers fall back to the raw identifier.
var displayNames = map[string]string{
	"dns":       "DNS resolution",
	"network":   "Network path latency",
	"wifi":      "Wi-Fi signal quality",
	"bandwidth": "Bandwidth saturation",
	"disk":      "Disk I/O",
	"cpu":       "CPU saturation",
	"memory":    "Memory pressure",
	"server":    "Remote server response time",
	"vpn":       "VPN overhead",
	"unknown":   "Undetermined",
}

// DisplayName returns the user-facing name for a hypothesis identifier.
func DisplayName(id string) string {
	if name, ok := displayNames[id]; ok {
		return name
	}
	return id
}

// Format renders a verdict: the primary cause with its confidence, the
// eliminated causes when any, a numbered evidence list, and numbered next
// steps.
func Format(result engine.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Most likely bottleneck: %s (%d%% confidence, %s)\n",
		DisplayName(result.PrimaryCause), result.ConfidencePercent, result.ConfidenceLevel)

	if len(result.EliminatedCauses) > 0 {
		names := make([]string, len(result.EliminatedCauses))
		for i, id := range result.EliminatedCauses {
			names[i] = DisplayName(id)
		}
		fmt.Fprintf(&b, "Ruled out: %s\n", strings.Join(names, ", "))
	}

	if len(result.Evidence) > 0 {
		b.WriteString("\nEvidence:\n")
		for i, line := range result.Evidence {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, line)
		}
	}

	if len(result.NextSteps) > 0 {
		b.WriteString("\nNext steps:\n")
		for i, step := range result.NextSteps {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, step)
		}
	}

	return b.String()
}
