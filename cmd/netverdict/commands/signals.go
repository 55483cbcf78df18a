package commands

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bkoehler/netverdict/internal/engine"
)

// loadSignals assembles the signals map from an optional YAML/JSON file
// and repeated --set key=value overrides. Set values coerce in order:
// bool, number, string.
func loadSignals(path string, sets []string) (engine.Signals, error) {
	signals := engine.Signals{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read signals from %q: %w", path, err)
		}
		var parsed map[string]any
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return nil, fmt.Errorf("failed to parse signals from %q: %w", path, err)
		}
		for key, value := range parsed {
			switch value.(type) {
			case string, bool, int, int64, float64:
				signals[key] = value
			default:
				return nil, fmt.Errorf("signal %q: value must be a scalar, got %T", key, value)
			}
		}
	}

	for _, pair := range sets {
		key, raw, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid --set %q, expected key=value", pair)
		}
		signals[key] = coerceScalar(raw)
	}

	if len(signals) == 0 {
		return nil, fmt.Errorf("no signals provided (use --signals or --set)")
	}
	return signals, nil
}

func coerceScalar(raw string) any {
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}
