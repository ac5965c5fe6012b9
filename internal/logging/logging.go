// Package logging builds the logr loggers used across standyield.
//
// Every package logs through github.com/go-logr/logr. The logger travels in the
// context; FromContext falls back to the process default installed by SetDefault.
// The backend is zap, adapted with zapr, so logr verbosity V(n) maps to zap level -n.
package logging

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Verbosity levels passed to logger.V.
const (
	DEBUG = 1
	TRACE = 2
)

// Config carries the logger construction parameters.
type Config struct {
	// Level is one of "error", "warn", "info", "debug", "trace". Defaults to "info".
	Level string `yaml:"level" json:"level" mapstructure:"level"`
	// Development selects console encoding with caller and stack traces on warnings.
	Development bool `yaml:"development" json:"development" mapstructure:"development"`
	// OutputPaths defaults to ["stderr"].
	OutputPaths []string `yaml:"outputPaths" json:"outputPaths" mapstructure:"outputPaths"`
}

// ParseLevel converts a level name into the zap level that zapr maps verbosity onto.
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.Level(-DEBUG), nil
	case "trace":
		return zapcore.Level(-TRACE), nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// NewLogger builds a zap-backed logr.Logger according to cfg.
func NewLogger(cfg Config) (logr.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return logr.Discard(), err
	}

	var zapCfg zap.Config
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
		zapCfg.Sampling = nil
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.EncoderConfig.TimeKey = "ts"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.OutputPaths = []string{"stderr"}
	if len(cfg.OutputPaths) > 0 {
		zapCfg.OutputPaths = cfg.OutputPaths
	}

	z, err := zapCfg.Build()
	if err != nil {
		return logr.Discard(), fmt.Errorf("building zap logger: %w", err)
	}
	return zapr.NewLogger(z), nil
}

var (
	defaultMu     sync.RWMutex
	defaultLogger = logr.Discard()
)

// SetDefault replaces the process-wide default logger.
func SetDefault(l logr.Logger) {
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
}

// Default returns the process-wide default logger.
func Default() logr.Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// FromContext returns the logger stored in ctx, or the default logger.
func FromContext(ctx context.Context) logr.Logger {
	if l, err := logr.FromContext(ctx); err == nil {
		return l
	}
	return Default()
}

// IntoContext returns a copy of ctx carrying l.
func IntoContext(ctx context.Context, l logr.Logger) context.Context {
	return logr.NewContext(ctx, l)
}
