package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkoehler/netverdict/internal/engine"
)

func TestCoerceScalar(t *testing.T) {
	assert.Equal(t, true, coerceScalar("true"))
	assert.Equal(t, false, coerceScalar("false"))
	assert.Equal(t, 42.0, coerceScalar("42"))
	assert.Equal(t, -3.5, coerceScalar("-3.5"))
	assert.Equal(t, "ethernet", coerceScalar("ethernet"))
}

func TestLoadSignals_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signals.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
dns_latency_ms: 420
connection_type: ethernet
vpn_active: false
`), 0o644))

	signals, err := loadSignals(path, nil)
	require.NoError(t, err)
	assert.Equal(t, engine.Signals{
		"dns_latency_ms":  420,
		"connection_type": "ethernet",
		"vpn_active":      false,
	}, signals)
}

func TestLoadSignals_RejectsNonScalarValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signals.yaml")
	require.NoError(t, os.WriteFile(path, []byte("nested:\n  a: 1\n"), 0o644))

	_, err := loadSignals(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be a scalar")
}

func TestLoadSignals_SetOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signals.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dns_latency_ms: 420\n"), 0o644))

	signals, err := loadSignals(path, []string{"dns_latency_ms=30", "connection_type=wifi"})
	require.NoError(t, err)
	assert.Equal(t, 30.0, signals["dns_latency_ms"])
	assert.Equal(t, "wifi", signals["connection_type"])
}

func TestLoadSignals_Errors(t *testing.T) {
	_, err := loadSignals("", nil)
	assert.Error(t, err, "empty input is rejected")

	_, err = loadSignals("", []string{"novalue"})
	assert.Error(t, err)

	_, err = loadSignals("", []string{"=5"})
	assert.Error(t, err)

	_, err = loadSignals(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	assert.Error(t, err)
}
