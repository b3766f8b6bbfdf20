package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("INFO"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "json", "info")

	logger.Debug("hidden")
	logger.Info("Peer registered", "url", "http://a:1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "Peer registered", line["msg"])
	assert.Equal(t, "http://a:1", line["url"])
}

func TestNewLogger_TextIncludesSource(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, "", "").Debug("hello")
	assert.Contains(t, buf.String(), "source=")
	assert.Contains(t, buf.String(), "msg=hello")
}
