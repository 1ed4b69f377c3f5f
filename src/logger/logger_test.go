package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"

	"signal-monitor/src/models"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"DEBUG":    zapcore.DebugLevel,
		"info":     zapcore.InfoLevel,
		"WARNING":  zapcore.WarnLevel,
		"error":    zapcore.ErrorLevel,
		"CRITICAL": zapcore.FatalLevel,
		"":         zapcore.InfoLevel,
		"verbose":  zapcore.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNewLoggerReadsConfigLevel(t *testing.T) {
	l := NewLogger(&models.MConfig{LogLevel: "ERROR"}, "test")
	assert.Equal(t, zapcore.ErrorLevel, l.level.Level())

	child := l.Named("child")
	assert.Equal(t, "test.child", child.name)
	assert.Equal(t, zapcore.ErrorLevel, child.level.Level())
}

func TestNewLoggerNilConfig(t *testing.T) {
	t.Setenv("SIGNAL_LOG_LEVEL", "")
	l := NewLogger(nil, "nil-config")
	assert.Equal(t, zapcore.InfoLevel, l.level.Level())
	l.Info("hello %s", "world")
	l.Sync()
}
