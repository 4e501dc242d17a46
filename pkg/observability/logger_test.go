package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/bizflow/bizgate/pkg/contextkeys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	return entry
}

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.Debug("debug message")
	assert.Zero(t, buf.Len(), "debug should be filtered at info level")

	logger.Info("info message")
	entry := decodeLine(t, &buf)
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "info message", entry["message"])

	buf.Reset()
	logger.Warnf("warn %d", 1)
	entry = decodeLine(t, &buf)
	assert.Equal(t, "warning", entry["level"])
	assert.Equal(t, "warn 1", entry["message"])

	buf.Reset()
	logger.Error("error message")
	assert.NotZero(t, buf.Len())
}

func TestLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(DebugLevel, &buf)

	logger.WithField("plan", "ORTA").
		WithFields(map[string]interface{}{"credits": 3}).
		WithError(errors.New("boom")).
		Debug("loaded")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "ORTA", entry["plan"])
	assert.EqualValues(t, 3, entry["credits"])
	assert.Equal(t, "boom", entry["error"])
}

func TestLogger_WithNilError(t *testing.T) {
	logger := NopLogger()
	assert.Same(t, logger, logger.WithError(nil))
}

func TestLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithFormat(InfoLevel, FormatText, &buf)
	logger.WithField("k", "v").Info("hello")
	assert.True(t, strings.Contains(buf.String(), "k=v"))
	assert.True(t, strings.Contains(buf.String(), "msg=hello"))
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLogLevel("DEBUG"))
	assert.Equal(t, WarnLevel, ParseLogLevel("warning"))
	assert.Equal(t, ErrorLevel, ParseLogLevel("error"))
	assert.Equal(t, InfoLevel, ParseLogLevel("verbose"))
	assert.Equal(t, "WARN", WarnLevel.String())
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	ctx := WithLogger(context.Background(), logger)
	ctx = contextkeys.WithRequestID(ctx, "req-1")
	ctx = contextkeys.WithUserID(ctx, "user-1")
	ctx = contextkeys.WithTenantID(ctx, "tenant-1")

	FromContext(ctx).Info("scoped")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "user-1", entry["user_id"])
	assert.Equal(t, "tenant-1", entry["tenant_id"])
}

func TestGetLogger_Default(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()))
}
