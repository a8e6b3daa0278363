package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerRedactsSecrets(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewWithCore(core).With("component", "embedding")

	log.Info("request", "api_key", "sk-123", "model", "text-embedding-3-small")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "[REDACTED]", fields["api_key"])
	assert.Equal(t, "text-embedding-3-small", fields["model"])
	assert.Equal(t, "embedding", fields["component"])
}

func TestZapLoggerLevels(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	log := NewWithCore(core)

	log.Debug("hidden")
	log.Info("hidden")
	log.Warn("shown")
	log.Error("shown", "err", "boom")

	assert.Equal(t, 2, logs.Len())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("loud"))
}

func TestOrNop(t *testing.T) {
	assert.Equal(t, Nop(), OrNop(nil))
	assert.NotPanics(t, func() {
		OrNop(nil).With("k", "v").Error("discarded")
	})
}
