package logging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestNewDefaults(t *testing.T) {
	for _, cfg := range []Config{{}, DevelopmentConfig(), {Level: "warn"}} {
		l, err := New(cfg)
		require.NoError(t, err)
		assert.NotNil(t, l.Logger)
	}
	assert.NotNil(t, NewDevelopment())

	l, err := New(Config{})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestToolCall(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := &Logger{Logger: zap.New(core)}

	l.ToolCall("evaluate", "f64", "", time.Millisecond)
	l.ToolCall("partial", "f32", "index", time.Millisecond)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "evaluate", entries[0].ContextMap()["tool"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "index", entries[1].ContextMap()["kind"])
}
