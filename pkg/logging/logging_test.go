package logging

import (
	"testing"

	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Ramsey-B/sage/config"
)

func TestNewZapLogger_AppliesConfiguredLevel(t *testing.T) {
	zl, err := newZapLogger(config.Config{LogLevel: "error"})
	require.NoError(t, err)

	assert.True(t, zl.Core().Enabled(zapcore.ErrorLevel))
	assert.False(t, zl.Core().Enabled(zapcore.InfoLevel))
}

func TestNewZapLogger_DefaultsToInfoOnBadLevel(t *testing.T) {
	zl, err := newZapLogger(config.Config{LogLevel: "verbose"})
	require.NoError(t, err)

	assert.True(t, zl.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, zl.Core().Enabled(zapcore.DebugLevel))
}

func TestLogger_ErrorSurvivesErrorLevel(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	logger := zapadapter.NewZapEctoLogger(zap.New(core), nil)

	logger.Error("database unreachable")
	logger.Warn("slow batch")
	logger.Info("consumer started")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "database unreachable", entries[0].Message)
}

func TestLogger_DebugFilteredAtInfo(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zapadapter.NewZapEctoLogger(zap.New(core), nil)

	logger.Debug("resolved soil dimension")
	logger.Info("batch completed")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "batch completed", entries[0].Message)
}
