package engine

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/bkoehler/netverdict/internal/logging"
	"github.com/bkoehler/netverdict/internal/rules"
)

// mustParse builds a rule set from inline YAML, failing the test on
// structural errors.
func mustParse(t *testing.T, doc string) *rules.RuleSet {
	t.Helper()
	rs, _, err := rules.Parse([]byte(doc))
	require.NoError(t, err)
	return rs
}

const bottleneckDoc = `
version: 1
hypotheses:
  dns: {score: 10}
  network: {score: 10}
  disk: {score: 5}
  cpu: {score: 5}
elimination_rules:
  - id: disk-healthy
    if: {disk_latency_ms: {"<": 50}}
    eliminate: [disk]
    explanation: Disk latency is healthy
  - id: cpu-idle
    if: {cpu_usage_percent: {"<": 40}}
    eliminate: [cpu]
    explanation: CPU usage is low
rules:
  - id: dns-slow
    if: {dns_latency_ms: {">": 200}}
    then: {dns: 40}
    explanation: DNS resolution above 200ms
  - id: network-healthy
    if: {network_latency_ms: {"<=": 50}}
    then: {network: -5}
    explanation: Network latency is healthy
next_steps:
  dns:
    - Switch to a public resolver
    - Flush the local DNS cache
`

func TestAnalyze_DNSSlowPath(t *testing.T) {
	eng := New(mustParse(t, bottleneckDoc))

	result := eng.Analyze(Signals{
		"dns_latency_ms":     420,
		"network_latency_ms": 35,
		"disk_latency_ms":    35,
		"cpu_usage_percent":  22,
	})

	assert.Equal(t, "dns", result.PrimaryCause)
	assert.Contains(t, []Level{LevelMedium, LevelHigh}, result.ConfidenceLevel)
	assert.Equal(t, []string{"disk", "cpu"}, result.EliminatedCauses)
	assert.Equal(t, []string{"DNS resolution above 200ms", "Network latency is healthy"}, result.Evidence)
	assert.Equal(t, []string{"Switch to a public resolver", "Flush the local DNS cache"}, result.NextSteps)

	// dns 10+40=50, network 10-5=5, total 55 -> 91%.
	assert.Equal(t, 91, result.ConfidencePercent)
	assert.Equal(t, 50.0, result.RawScore)

	// The applied-rule log keeps evaluation order: eliminations first.
	require.Len(t, result.AppliedRules, 4)
	assert.Equal(t, KindElimination, result.AppliedRules[0].Kind)
	assert.Equal(t, KindElimination, result.AppliedRules[1].Kind)
	assert.Equal(t, KindScoring, result.AppliedRules[2].Kind)
	assert.Equal(t, map[string]float64{"dns": 40}, result.AppliedRules[2].Deltas)
}

func TestAnalyze_Deterministic(t *testing.T) {
	eng := New(mustParse(t, bottleneckDoc))
	signals := Signals{
		"dns_latency_ms":     420,
		"network_latency_ms": 35,
		"disk_latency_ms":    35,
		"cpu_usage_percent":  22,
	}

	first := eng.Analyze(signals)
	second := eng.Analyze(signals)
	assert.Equal(t, first, second)
}

func TestAnalyze_ConcurrentCallsShareNoState(t *testing.T) {
	eng := New(mustParse(t, bottleneckDoc))
	signals := Signals{
		"dns_latency_ms":    420,
		"disk_latency_ms":   35,
		"cpu_usage_percent": 22,
	}
	baseline := eng.Analyze(signals)

	var g errgroup.Group
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			result := eng.Analyze(signals)
			if !reflect.DeepEqual(baseline, result) {
				return fmt.Errorf("concurrent analysis diverged: %+v", result)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}

func TestAnalyze_EliminatedHypothesisIsImmuneToScoring(t *testing.T) {
	rs := mustParse(t, `
hypotheses:
  disk: {score: 5}
  network: {score: 5}
elimination_rules:
  - id: disk-healthy
    if: {disk_latency_ms: {"<": 50}}
    eliminate: [disk]
    explanation: Disk latency is healthy
rules:
  - id: disk-boost
    if: {disk_latency_ms: {">=": 0}}
    then: {disk: 1000}
    explanation: Large delta targeting an eliminated hypothesis
`)
	result := New(rs).Analyze(Signals{"disk_latency_ms": 10})

	assert.Equal(t, "network", result.PrimaryCause)
	assert.Equal(t, []string{"disk"}, result.EliminatedCauses)
	for _, ranked := range result.RankedHypotheses {
		assert.NotEqual(t, "disk", ranked.Name, "eliminated hypothesis must not rank")
	}
	// The rule still fired and is recorded as evidence.
	assert.Equal(t, []string{"Large delta targeting an eliminated hypothesis"}, result.Evidence)
}

func TestAnalyze_ConfidencePercentsSumToRoughly100(t *testing.T) {
	rs := mustParse(t, `
hypotheses:
  dns: {score: 5}
  network: {score: 3}
  server: {score: 8}
rules:
  - id: boost
    if: {latency_ms: {">": 0}}
    then: {dns: 7, network: 4}
    explanation: boost
`)
	result := New(rs).Analyze(Signals{"latency_ms": 100})

	sum := 0
	for _, ranked := range result.RankedHypotheses {
		sum += ranked.ConfidencePercent
	}
	assert.InDelta(t, 100, sum, float64(len(result.RankedHypotheses)))
}

func TestAnalyze_UnknownVerdictWhenAllEliminated(t *testing.T) {
	rs := mustParse(t, `
hypotheses:
  disk: {score: 5}
  cpu: {score: 5}
elimination_rules:
  - id: all-healthy
    if: {healthy: true}
    eliminate: [disk, cpu]
    explanation: Everything looks healthy
rules:
  - id: noise
    if: {healthy: true}
    then: {disk: 50}
    explanation: Checked disk pressure
`)
	result := New(rs).Analyze(Signals{"healthy": true})

	assert.Equal(t, UnknownCause, result.PrimaryCause)
	assert.Equal(t, 0, result.ConfidencePercent)
	assert.Equal(t, LevelLow, result.ConfidenceLevel)
	assert.Empty(t, result.RankedHypotheses)
	// Scoring evidence is preserved even though it netted nothing.
	assert.Equal(t, []string{"Checked disk pressure"}, result.Evidence)
	assert.Len(t, result.NextSteps, 3)
	assert.Equal(t, []string{"disk", "cpu"}, result.EliminatedCauses)
}

func TestAnalyze_UnknownVerdictWhenScoresAreZero(t *testing.T) {
	rs := mustParse(t, `
hypotheses:
  dns: {score: 0}
  network: {score: 0}
rules:
  - id: never
    if: {missing_signal: {">": 1}}
    then: {dns: 10}
    explanation: never fires
`)
	result := New(rs).Analyze(Signals{"other": 1})

	assert.Equal(t, UnknownCause, result.PrimaryCause)
	assert.Equal(t, LevelLow, result.ConfidenceLevel)
	assert.Empty(t, result.Evidence)
	assert.Empty(t, result.EliminatedCauses)
}

func TestAnalyze_TieBreaksByDeclarationOrder(t *testing.T) {
	rs := mustParse(t, `
hypotheses:
  network: {score: 10}
  dns: {score: 10}
rules:
  - id: both
    if: {latency_ms: {">": 0}}
    then: {network: 5, dns: 5}
    explanation: boosts both equally
`)
	result := New(rs).Analyze(Signals{"latency_ms": 9})

	require.Len(t, result.RankedHypotheses, 2)
	assert.Equal(t, result.RankedHypotheses[0].ConfidencePercent, result.RankedHypotheses[1].ConfidencePercent)
	assert.Equal(t, "network", result.RankedHypotheses[0].Name, "earlier declaration must rank first on a tie")
	assert.Equal(t, "network", result.PrimaryCause)
}

func TestAnalyze_UnknownOperatorWarnsAndCompletes(t *testing.T) {
	rs := mustParse(t, `
hypotheses:
  dns: {score: 10}
rules:
  - id: bad-op
    if: {latency_ms: {">>": 5}}
    then: {dns: 50}
    explanation: uses an unrecognized operator
`)
	var warnings []string
	eng := New(rs, WithWarnFunc(func(msg string, fields ...logging.LogField) {
		warnings = append(warnings, msg)
	}))

	result := eng.Analyze(Signals{"latency_ms": 100})

	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "unrecognized operator")
	// The rule must not fire: the score stays at its initial value.
	assert.Equal(t, "dns", result.PrimaryCause)
	assert.Equal(t, 10.0, result.RawScore)
	assert.Empty(t, result.AppliedRules)
}

func TestAnalyze_NegativeDeltasClampToZero(t *testing.T) {
	rs := mustParse(t, `
hypotheses:
  dns: {score: 10}
  network: {score: 10}
rules:
  - id: dns-down-a
    if: {dns_latency_ms: {"<": 50}}
    then: {dns: -5}
    explanation: fast dns
  - id: dns-down-b
    if: {dns_latency_ms: {"<": 20}}
    then: {dns: -20}
    explanation: very fast dns
`)
	result := New(rs).Analyze(Signals{"dns_latency_ms": 10})

	require.Len(t, result.RankedHypotheses, 2)
	assert.Equal(t, "network", result.RankedHypotheses[0].Name)
	assert.Equal(t, "dns", result.RankedHypotheses[1].Name)
	assert.Equal(t, 0.0, result.RankedHypotheses[1].Score, "score must clamp at zero, never go negative")
}

func TestAnalyze_UnknownHypothesisInEffectIsSkipped(t *testing.T) {
	rs := mustParse(t, `
hypotheses:
  dns: {score: 10}
elimination_rules:
  - id: drop-ghost
    if: {x: 1}
    eliminate: [ghost]
    explanation: eliminates an undeclared hypothesis
rules:
  - id: boost-ghost
    if: {x: 1}
    then: {ghost: 50, dns: 5}
    explanation: scores an undeclared hypothesis
`)
	result := New(rs).Analyze(Signals{"x": 1})

	assert.Equal(t, "dns", result.PrimaryCause)
	assert.Equal(t, 15.0, result.RawScore)
	assert.Empty(t, result.EliminatedCauses, "undeclared names never enter the eliminated list")
	// Both rules fired and are recorded regardless.
	assert.Len(t, result.AppliedRules, 2)
}

func TestAnalyze_EliminationRecordedEvenWhenAlreadyEliminated(t *testing.T) {
	rs := mustParse(t, `
hypotheses:
  disk: {score: 5}
  dns: {score: 5}
elimination_rules:
  - id: first
    if: {x: 1}
    eliminate: [disk]
    explanation: first elimination
  - id: second
    if: {x: 1}
    eliminate: [disk]
    explanation: second elimination of the same hypothesis
`)
	result := New(rs).Analyze(Signals{"x": 1})

	assert.Equal(t, []string{"disk"}, result.EliminatedCauses, "no duplicates in eliminated causes")
	require.Len(t, result.AppliedRules, 2, "both rules fired and both are recorded")
	assert.Equal(t, "second", result.AppliedRules[1].ID)
}

func TestAnalyze_NextStepsFallBackToGenericList(t *testing.T) {
	rs := mustParse(t, `
hypotheses:
  dns: {score: 10}
rules:
  - id: boost
    if: {x: 1}
    then: {dns: 10}
    explanation: boost
`)
	result := New(rs).Analyze(Signals{"x": 1})

	assert.Equal(t, "dns", result.PrimaryCause)
	assert.Len(t, result.NextSteps, 3, "missing next_steps entry falls back to the generic list")
}
