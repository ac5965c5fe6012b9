// Package config loads the standyield control configuration: logging, metrics,
// solver budgets, processing options and the coefficient tables consumed by the
// estimators.
package config

import (
	"fmt"
	"strings"

	"github.com/standyield/standyield/internal/logging"
)

// Config is the complete control configuration.
type Config struct {
	Logging      logging.Config     `yaml:"logging" json:"logging" mapstructure:"logging"`
	Metrics      MetricsConfig      `yaml:"metrics" json:"metrics" mapstructure:"metrics"`
	Solver       SolverConfig       `yaml:"solver" json:"solver" mapstructure:"solver"`
	Processing   ProcessingConfig   `yaml:"processing" json:"processing" mapstructure:"processing"`
	Coefficients CoefficientsConfig `yaml:"coefficients" json:"coefficients" mapstructure:"coefficients"`
}

// MetricsConfig controls Prometheus instrumentation.
type MetricsConfig struct {
	// Enabled turns instrumentation on. Use pointer to tell "unset" from false.
	Enabled *bool `yaml:"enabled,omitempty" json:"enabled,omitempty" mapstructure:"enabled"`
	// Namespace prefixes every metric name.
	Namespace string `yaml:"namespace,omitempty" json:"namespace,omitempty" mapstructure:"namespace"`
	// Textfile, when set, receives the metrics in text exposition format after a run.
	Textfile string `yaml:"textfile,omitempty" json:"textfile,omitempty" mapstructure:"textfile"`
}

// SolverConfig bounds the species allocation solver.
type SolverConfig struct {
	// Tolerance is the relative cost tolerance of the least-squares solver.
	Tolerance float64 `yaml:"tolerance" json:"tolerance" mapstructure:"tolerance"`
	// MaxEvaluations bounds the residual function evaluations per solve.
	MaxEvaluations int `yaml:"maxEvaluations" json:"maxEvaluations" mapstructure:"maxEvaluations"`
	// MaxIterations bounds the solver iterations per solve.
	MaxIterations int `yaml:"maxIterations" json:"maxIterations" mapstructure:"maxIterations"`
}

// ProcessingConfig controls batch processing.
type ProcessingConfig struct {
	// Workers bounds the number of polygons processed concurrently.
	Workers int `yaml:"workers" json:"workers" mapstructure:"workers"`
	// FailFast stops the batch at the first stand-scoped failure.
	FailFast bool `yaml:"failFast" json:"failFast" mapstructure:"failFast"`
	// FractionSource selects the species weights averaged into the layer lorey height:
	// "percent", "percent-per-height" or "basal-area".
	FractionSource string `yaml:"fractionSource" json:"fractionSource" mapstructure:"fractionSource"`
}

// FractionSources lists the accepted ProcessingConfig.FractionSource values.
var FractionSources = []string{"percent", "percent-per-height", "basal-area"}

// Validate checks for invalid configuration values.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if err := c.Solver.Validate(); err != nil {
		return fmt.Errorf("solver: %w", err)
	}
	if err := c.Processing.Validate(); err != nil {
		return fmt.Errorf("processing: %w", err)
	}
	if c.Metrics.Namespace != "" && strings.ContainsAny(c.Metrics.Namespace, " -.") {
		return fmt.Errorf("metrics.namespace %q must be a valid metric name prefix", c.Metrics.Namespace)
	}
	return nil
}

// Validate checks for invalid configuration values.
func (c *SolverConfig) Validate() error {
	if c.Tolerance <= 0 || c.Tolerance >= 1 {
		return fmt.Errorf("tolerance must be in (0, 1), got %g", c.Tolerance)
	}
	if c.MaxEvaluations < 1 {
		return fmt.Errorf("maxEvaluations must be >= 1, got %d", c.MaxEvaluations)
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("maxIterations must be >= 1, got %d", c.MaxIterations)
	}
	return nil
}

// Validate checks for invalid configuration values.
func (c *ProcessingConfig) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", c.Workers)
	}
	for _, s := range FractionSources {
		if c.FractionSource == s {
			return nil
		}
	}
	return fmt.Errorf("fractionSource %q is invalid; expected one of %s",
		c.FractionSource, strings.Join(FractionSources, "|"))
}
