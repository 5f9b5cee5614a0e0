package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"info", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestZapAdapter_FieldsAndErrors(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapAdapter(zap.New(core)).WithFields(map[string]interface{}{"component": "test"})

	log.Warn("criteria fetch failed", map[string]interface{}{
		"ideaId": "idea-1",
		"error":  errors.New("boom"),
	})

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		ctx := entries[0].ContextMap()
		assert.Equal(t, "criteria fetch failed", entries[0].Message)
		assert.Equal(t, "test", ctx["component"])
		assert.Equal(t, "idea-1", ctx["ideaId"])
		assert.Equal(t, "boom", ctx["error"])
	}
}

func TestNewStructured_DoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		l := NewStructured("debug", "json")
		l.Debug("hello", nil)
		l.WithError(errors.New("x")).Info("with error", nil)
	})
	assert.NotPanics(t, func() {
		NewNoOpLogger().Error("ignored", map[string]interface{}{"k": 1})
	})
}
