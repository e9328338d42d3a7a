package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFromString(t *testing.T) {
	t.Parallel()

	tests := map[string]slog.Level{
		"error":   slog.LevelError,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"info":    slog.LevelInfo,
		"debug":   slog.LevelDebug,
		"":        slog.LevelDebug,
	}
	for in, want := range tests {
		assert.Equal(t, want, levelFromString(in), in)
	}
}

func TestNewWithFormatJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewWithFormat(&buf, "info", "json")
	logger.Debug("hidden")
	logger.Info("fetched items", "source", "Dev.to", "count", 3)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "fetched items", record["msg"])
	assert.Equal(t, "Dev.to", record["source"])
	assert.InDelta(t, 3, record["count"], 1e-9)
}

func TestNewWithFormatText(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewWithFormat(&buf, "warn", "text").Warn("scanner failed", "kind", "network")
	assert.Contains(t, buf.String(), "msg=\"scanner failed\" kind=network")
}
