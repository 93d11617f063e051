package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"easyproject-mcp/server/internal/config"
)

func TestConfigureLogging(t *testing.T) {
	var buf bytes.Buffer
	logger, err := ConfigureLogging(config.LoggingConfig{Level: "WARN", Format: "json"}, &buf)
	require.NoError(t, err)

	logger.Info().Msg("dropped")
	logger.Warn().Str("k", "v").Msg("kept")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "kept", line["message"])
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "v", line["k"])
}

func TestConfigureLogging_Console(t *testing.T) {
	var buf bytes.Buffer
	logger, err := ConfigureLogging(config.LoggingConfig{Level: "debug", Format: "console"}, &buf)
	require.NoError(t, err)

	logger.Debug().Msg("hello")
	assert.Contains(t, buf.String(), "hello")
	assert.NotContains(t, buf.String(), `"message"`)
}

func TestConfigureLogging_Invalid(t *testing.T) {
	_, err := ConfigureLogging(config.LoggingConfig{Level: "loud", Format: "json"}, &bytes.Buffer{})
	assert.Error(t, err)

	_, err = ConfigureLogging(config.LoggingConfig{Level: "info", Format: "xml"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestLogToolCall(t *testing.T) {
	var buf bytes.Buffer
	ctx := zerolog.New(&buf).WithContext(context.Background())

	LogToolCall(ctx, "get_issue", 1500*time.Millisecond, StatusError, "API error (status 404): Not Found")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "get_issue", line["tool"])
	assert.Equal(t, float64(1500), line["duration_ms"])
	assert.Equal(t, "error", line["status"])
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "API error (status 404): Not Found", line["error"])
}
