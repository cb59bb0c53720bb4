// Package logging builds the service logger. Structured output goes through
// zap; the ectologger facade keeps context and field chaining uniform across
// packages.
package logging

import (
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Ramsey-B/sage/config"
)

// New creates the service logger and a flush function to defer in main.
// Each message is logged at its own level, so the configured level filters
// debug chatter without swallowing warnings and errors.
func New(cfg config.Config) (ectologger.Logger, func(), error) {
	zl, err := newZapLogger(cfg)
	if err != nil {
		return nil, nil, err
	}

	logger := zapadapter.NewZapEctoLogger(zl, nil)

	flush := func() { _ = zl.Sync() }
	return logger, flush, nil
}

func newZapLogger(cfg config.Config) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if cfg.PrettyLogs {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.InitialFields = map[string]any{"app": cfg.AppName}

	return zapCfg.Build(zap.WithCaller(false))
}
