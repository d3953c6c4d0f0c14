package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/flowdas/pdk/config"
)

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := build(config.LogConfig{Level: "warn", Format: "json"}, zapcore.AddSync(&buf))
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("spell check request failed", zap.String("text", "됬다"), zap.Int("line", 4))
	require.NoError(t, logger.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["severity"])
	assert.Equal(t, "spell check request failed", entry["message"])
	assert.Equal(t, "됬다", entry["text"])
	assert.EqualValues(t, 4, entry["line"])
}

func TestConsoleLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := build(config.LogConfig{Level: "debug", Format: "console"}, zapcore.AddSync(&buf))
	require.NoError(t, err)

	logger.Debug("cache hit", zap.String("text", "글"))
	assert.Contains(t, buf.String(), "cache hit")
	assert.Contains(t, buf.String(), `"text": "글"`)
}

func TestInvalidSettings(t *testing.T) {
	_, err := New(config.LogConfig{Level: "loud", Format: "json"})
	assert.Error(t, err)

	_, err = New(config.LogConfig{Level: "info", Format: "xml"})
	assert.Error(t, err)
}
