package config

import (
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(hook *DiagnosticsHook) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.AddHook(hook)
	return logger
}

func TestDiagnosticsHook_RecordsWarningsAndErrors(t *testing.T) {
	hook := NewDiagnosticsHook(10)
	logger := newTestLogger(hook)

	logger.Info("ignored")
	logger.WithField("operation", "refresh").Warn("verification failed")
	logger.WithError(errors.New("connection refused")).Error("logout failed")

	entries := hook.Entries()
	require.Len(t, entries, 2)

	assert.Equal(t, logrus.WarnLevel, entries[0].Level)
	assert.Equal(t, "refresh", entries[0].Data["operation"])

	assert.Equal(t, "logout failed", entries[1].Message)
	assert.Equal(t, "connection refused", entries[1].Error)
	assert.NotContains(t, entries[1].Data, logrus.ErrorKey)
}

func TestDiagnosticsHook_RingBuffer(t *testing.T) {
	hook := NewDiagnosticsHook(3)
	logger := newTestLogger(hook)

	for _, msg := range []string{"one", "two", "three", "four", "five"} {
		logger.Warn(msg)
	}

	entries := hook.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "three", entries[0].Message)
	assert.Equal(t, "five", entries[2].Message)

	recent := hook.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "four", recent[0].Message)

	hook.Clear()
	assert.Empty(t, hook.Entries())
}

func TestDiagnosticsHook_DefaultSize(t *testing.T) {
	hook := NewDiagnosticsHook(0)
	assert.Equal(t, defaultDiagnosticsSize, hook.maxSize)
}
