package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"fatal", zapcore.FatalLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLogLevel(tt.input))
		})
	}
}

func TestZapLoggerWritesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := FromZap(zap.New(core))

	l.With(String("component", "search_sync")).Warn("index write failed",
		String("index", "services_index"),
		Error(errors.New("timeout")),
	)

	entries := logs.All()
	assert.Len(t, entries, 1)
	assert.Equal(t, "index write failed", entries[0].Message)

	fields := entries[0].ContextMap()
	assert.Equal(t, "search_sync", fields["component"])
	assert.Equal(t, "services_index", fields["index"])
	assert.Equal(t, "timeout", fields["error"])
}

func TestGetAndSet(t *testing.T) {
	original := Get()
	defer Set(original)

	replacement := NewNop()
	Set(replacement)
	assert.Same(t, replacement, Get())
}
