// internal/observability/logger_test.go
package observability

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/xkaelum/harrier/internal/config"
)

// syncBuffer adapts a bytes.Buffer to zapcore.WriteSyncer for capture.
type syncBuffer struct {
	bytes.Buffer
}

func (s *syncBuffer) Sync() error { return nil }

func TestInitialize(t *testing.T) {

	t.Run("console format colorizes the level", func(t *testing.T) {
		ResetForTest()
		var buf syncBuffer
		Initialize(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "harrier-test"}, &buf)

		GetLogger().Info("hello from the console core")
		out := buf.String()

		assert.Contains(t, out, "hello from the console core")
		assert.Contains(t, out, colorGreen, "info level should carry the green escape code")
		assert.Contains(t, out, "harrier-test")
	})

	t.Run("json format emits parseable structured lines", func(t *testing.T) {
		ResetForTest()
		var buf syncBuffer
		Initialize(config.LoggerConfig{Level: "debug", Format: "json", ServiceName: "harrier-test"}, &buf)

		GetLogger().Debug("structured entry")

		line := strings.TrimSpace(buf.String())
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		assert.Equal(t, "structured entry", entry["msg"])
		assert.Equal(t, "debug", entry["level"])
	})

	t.Run("invalid level falls back to info", func(t *testing.T) {
		ResetForTest()
		var buf syncBuffer
		Initialize(config.LoggerConfig{Level: "shouting", Format: "json", ServiceName: "x"}, &buf)

		GetLogger().Debug("suppressed")
		GetLogger().Info("visible")

		out := buf.String()
		assert.NotContains(t, out, "suppressed")
		assert.Contains(t, out, "visible")
	})

	t.Run("second initialize is a no-op", func(t *testing.T) {
		ResetForTest()
		var first, second syncBuffer
		Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "first"}, &first)
		Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "second"}, &second)

		GetLogger().Info("routed once")
		assert.Contains(t, first.String(), "routed once")
		assert.Empty(t, second.String())
	})

	t.Run("GetLogger before initialize returns a usable no-op", func(t *testing.T) {
		ResetForTest()
		logger := GetLogger()
		require.NotNil(t, logger)
		// Must not panic.
		logger.Info("into the void")
	})
}

func TestNewEncoderSelection(t *testing.T) {
	jsonEnc := newEncoder("json")
	consoleEnc := newEncoder("console")

	entry := zapcore.Entry{Level: zapcore.InfoLevel, Message: "probe"}
	jsonBuf, err := jsonEnc.EncodeEntry(entry, nil)
	require.NoError(t, err)
	consoleBuf, err := consoleEnc.EncodeEntry(entry, nil)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(jsonBuf.String(), "{"))
	assert.Contains(t, consoleBuf.String(), colorGreen)
}
