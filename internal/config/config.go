// Package config holds server configuration for netverdict.
package config

import (
	"fmt"

	koanfyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration for the serve mode.
type Config struct {
	// APIPort is the port the API server listens on.
	APIPort int `koanf:"api_port"`

	// RulesPath is the path to the rule-set YAML file.
	RulesPath string `koanf:"rules_path"`

	// LogLevel is the logging level (debug, info, warn, error).
	LogLevel string `koanf:"log_level"`

	// ReloadDebounceMillis is the debounce window for rule-set hot reload.
	ReloadDebounceMillis int `koanf:"reload_debounce_millis"`

	// ResultCacheSize is the number of analysis results kept in the LRU
	// cache. 0 disables caching.
	ResultCacheSize int `koanf:"result_cache_size"`

	// TracingEnabled indicates whether OpenTelemetry tracing is enabled.
	TracingEnabled bool `koanf:"tracing_enabled"`

	// TracingEndpoint is the OTLP gRPC endpoint for trace export.
	TracingEndpoint string `koanf:"tracing_endpoint"`

	// TracingTLSCAPath is the path to the CA certificate for TLS verification.
	TracingTLSCAPath string `koanf:"tracing_tls_ca"`

	// TracingTLSInsecure skips TLS certificate verification.
	TracingTLSInsecure bool `koanf:"tracing_tls_insecure"`
}

// Default returns the configuration defaults applied before any file or
// flag overrides.
func Default() *Config {
	return &Config{
		APIPort:              8080,
		RulesPath:            "rules.yaml",
		LogLevel:             "info",
		ReloadDebounceMillis: 500,
		ResultCacheSize:      256,
	}
}

// LoadFile merges a YAML config file over the receiver using koanf.
func (c *Config) LoadFile(path string) error {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), koanfyaml.Parser()); err != nil {
		return fmt.Errorf("failed to load config from %q: %w", path, err)
	}
	if err := k.UnmarshalWithConf("", c, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return fmt.Errorf("failed to parse config from %q: %w", path, err)
	}
	return nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.APIPort < 1 || c.APIPort > 65535 {
		return NewConfigError("api_port must be between 1 and 65535")
	}
	if c.RulesPath == "" {
		return NewConfigError("rules_path must not be empty")
	}
	if c.ReloadDebounceMillis < 0 {
		return NewConfigError("reload_debounce_millis must not be negative")
	}
	if c.ResultCacheSize < 0 {
		return NewConfigError("result_cache_size must not be negative")
	}
	if c.TracingEnabled && c.TracingEndpoint == "" {
		return NewConfigError("tracing_endpoint must be set when tracing is enabled")
	}
	return nil
}

// ConfigError represents a configuration error.
type ConfigError struct {
	message string
}

// NewConfigError creates a new configuration error.
func NewConfigError(message string) *ConfigError {
	return &ConfigError{message: message}
}

func (e *ConfigError) Error() string {
	return "config error: " + e.message
}
