package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeJSON(t *testing.T) {
	defer Initialize("info", false)

	var buf bytes.Buffer
	InitializeWithWriter(&buf, "debug", true)
	For("draft").Debug("draft created", "draft_id", "65a1b2c3d4e5f60718293a4b")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "draft created", rec["msg"])
	assert.Equal(t, "portal-frontend", rec["service"])
	assert.Equal(t, "draft", rec["component"])
	assert.Regexp(t, `^logger_test\.go:\d+$`, rec["source"])
}

func TestLevelFiltering(t *testing.T) {
	defer Initialize("info", false)

	var buf bytes.Buffer
	InitializeWithWriter(&buf, "warn", false)
	Log.Info("hidden")
	Log.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}
