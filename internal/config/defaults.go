package config

import (
	"runtime"

	"k8s.io/utils/ptr"
)

// Default configuration values.
const (
	DefaultLogLevel         = "info"
	DefaultMetricsNamespace = "standyield"
	DefaultSolverTolerance  = 2e-3
	DefaultMaxEvaluations   = 200
	DefaultMaxIterations    = 1000
	DefaultFractionSource   = "percent-per-height"
)

// DefaultWorkers is the default polygon concurrency.
func DefaultWorkers() int {
	return runtime.GOMAXPROCS(0)
}

// ApplyDefaults fills zero-value fields in cfg with their defaults.
// Explicitly set values are left unchanged.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Metrics.Enabled == nil {
		cfg.Metrics.Enabled = ptr.To(true)
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Solver.Tolerance == 0 {
		cfg.Solver.Tolerance = DefaultSolverTolerance
	}
	if cfg.Solver.MaxEvaluations == 0 {
		cfg.Solver.MaxEvaluations = DefaultMaxEvaluations
	}
	if cfg.Solver.MaxIterations == 0 {
		cfg.Solver.MaxIterations = DefaultMaxIterations
	}
	if cfg.Processing.Workers == 0 {
		cfg.Processing.Workers = DefaultWorkers()
	}
	if cfg.Processing.FractionSource == "" {
		cfg.Processing.FractionSource = DefaultFractionSource
	}
}

// Default returns a configuration with every default applied and empty coefficient tables.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// MetricsEnabled reports whether instrumentation is on.
func (c *Config) MetricsEnabled() bool {
	return ptr.Deref(c.Metrics.Enabled, true)
}
