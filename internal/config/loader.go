package config

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix of every setting.
const envPrefix = "STANDYIELD"

// scalarKeys are the settings that may be overridden from the environment.
// Viper only consults the environment for keys it already knows about.
var scalarKeys = []string{
	"logging.level",
	"logging.development",
	"metrics.enabled",
	"metrics.namespace",
	"metrics.textfile",
	"solver.tolerance",
	"solver.maxEvaluations",
	"solver.maxIterations",
	"processing.workers",
	"processing.failFast",
	"processing.fractionSource",
}

// newViper builds a Viper instance reading YAML, with STANDYIELD_ environment
// overrides where nested keys like "solver.tolerance" map to STANDYIELD_SOLVER_TOLERANCE.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range scalarKeys {
		// Binding by name only makes the key known; values still come from the environment.
		_ = v.BindEnv(key)
	}
	return v
}

// Load reads the YAML file at configPath, merges STANDYIELD_* overrides, applies
// defaults and validates the result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}
	return unmarshalAndFinalize(v)
}

// LoadBytes parses YAML configuration held in memory.
func LoadBytes(data []byte) (*Config, error) {
	v := newViper()
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("config: failed to parse configuration: %w", err)
	}
	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config from STANDYIELD_* environment variables alone.
// The coefficient tables are then empty.
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

// unmarshalAndFinalize unmarshals viper state into a Config, applies defaults and validates.
func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}
