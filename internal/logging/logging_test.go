package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/odelab/internal/config"
)

func TestSetup_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(config.LogConfig{Level: "debug", Format: "json"}, &buf)
	logger.Debug("normalized", "canonical", "Derivative(y(x),x)=y(x)")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "DEBUG", rec["level"])
	assert.Equal(t, "normalized", rec["msg"])
}

func TestSetup_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(config.LogConfig{Level: "warn", Format: "text"}, &buf)
	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
}

func TestSetup_UnknownLevelFallsBack(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(config.LogConfig{Level: "loud"}, &buf)
	assert.Contains(t, buf.String(), "unknown log level")

	buf.Reset()
	logger.Info("visible")
	logger.Debug("invisible")
	assert.True(t, strings.Contains(buf.String(), "visible"))
	assert.False(t, strings.Contains(buf.String(), "invisible"))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
		ok   bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{"", slog.LevelInfo, true},
		{"warning", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"trace", slog.LevelInfo, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
}
