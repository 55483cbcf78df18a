package explain

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bkoehler/netverdict/internal/engine"
)

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "DNS resolution", DisplayName("dns"))
	assert.Equal(t, "Undetermined", DisplayName("unknown"))
	assert.Equal(t, "custom-cause", DisplayName("custom-cause"))
}

func TestFormat_FullVerdict(t *testing.T) {
	out := Format(engine.Result{
		PrimaryCause:      "dns",
		ConfidencePercent: 91,
		ConfidenceLevel:   engine.LevelHigh,
		EliminatedCauses:  []string{"disk", "cpu"},
		Evidence:          []string{"DNS resolution above 200ms", "Network latency is healthy"},
		NextSteps:         []string{"Switch to a public resolver"},
	})

	assert.Equal(t, `Most likely bottleneck: DNS resolution (91% confidence, High)
Ruled out: Disk I/O, CPU saturation

Evidence:
  1. DNS resolution above 200ms
  2. Network latency is healthy

Next steps:
  1. Switch to a public resolver
`, out)
}

func TestFormat_UnknownVerdictOmitsEmptySections(t *testing.T) {
	out := Format(engine.Result{
		PrimaryCause:      "unknown",
		ConfidencePercent: 0,
		ConfidenceLevel:   engine.LevelLow,
		NextSteps:         []string{"Check with your network administrator or ISP"},
	})

	assert.Contains(t, out, "Most likely bottleneck: Undetermined (0% confidence, Low)")
	assert.NotContains(t, out, "Ruled out:")
	assert.NotContains(t, out, "Evidence:")
	assert.Contains(t, out, "Next steps:")
}
