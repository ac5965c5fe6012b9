// Package logtest provides loggers for ginkgo suites.
package logtest

import (
	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/onsi/ginkgo/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/standyield/standyield/internal/logging"
)

// NewTestLogger installs a development logger writing to the ginkgo output at
// TRACE verbosity as the process default and returns it.
func NewTestLogger() logr.Logger {
	encoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	core := zapcore.NewCore(encoder, zapcore.AddSync(ginkgo.GinkgoWriter), zapcore.Level(-logging.TRACE))
	logger := zapr.NewLogger(zap.New(core))
	logging.SetDefault(logger)
	return logger
}
