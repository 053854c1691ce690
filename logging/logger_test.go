package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{"debug", LogLevelDebug, false},
		{"INFO", LogLevelInfo, false},
		{"", LogLevelInfo, false},
		{"warning", LogLevelWarn, false},
		{"error", LogLevelError, false},
		{"loud", LogLevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMeshLogger_ContextAndLevel(t *testing.T) {
	var buf bytes.Buffer

	logger, err := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "json", Output: &buf})
	require.NoError(t, err)

	l := logger.WithComponent("router").WithSession("s-1").With("mode", "handoff")
	l.Debug("hidden")
	l.LogHandoff("triage", "weather", 1)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"handoff.transition"`)
	assert.Contains(t, out, `"component":"router"`)
	assert.Contains(t, out, `"session_id":"s-1"`)
	assert.Contains(t, out, `"mode":"handoff"`)
	assert.Contains(t, out, `"to":"weather"`)
}

func TestMeshLogger_MirrorsToFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "log", "travel.log")

	logger, err := NewLogger(&LoggerConfig{Level: LogLevelDebug, Output: &buf, File: path})
	require.NoError(t, err)

	logger.Info("runner.start", "mode", "sequential")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "runner.start")
	assert.Contains(t, buf.String(), "runner.start")
}
