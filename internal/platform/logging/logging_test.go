package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	return entry
}

func TestFromContext_FallsBackToDefault(t *testing.T) {
	assert.Equal(t, defaultLogger.Load(), FromContext(nil)) //nolint:staticcheck // nil guard
	assert.Equal(t, defaultLogger.Load(), FromContext(context.Background()))
}

func TestWithContext(t *testing.T) {
	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := WithContext(context.Background(), custom)

	assert.Equal(t, custom, FromContext(ctx))
}

func TestContextIDs(t *testing.T) {
	var buf bytes.Buffer

	ctx := WithContext(context.Background(), slog.New(slog.NewJSONHandler(&buf, nil)))
	ctx = WithRequestID(ctx, "req-123")
	ctx = WithTraceID(ctx, "trace-456")
	ctx = WithCorrelationID(ctx, "corr-789")
	ctx = WithSessionID(ctx, "sess-1")

	FromContext(ctx).InfoContext(ctx, "synced")

	entry := decode(t, &buf)
	assert.Equal(t, "req-123", entry["request_id"])
	assert.Equal(t, "trace-456", entry["trace_id"])
	assert.Equal(t, "corr-789", entry["correlation_id"])
	assert.Equal(t, "sess-1", entry["session_id"])
}

func TestSetDefault(t *testing.T) {
	original := defaultLogger.Load()
	t.Cleanup(func() { SetDefault(original) })

	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	SetDefault(custom)

	assert.Equal(t, custom, FromContext(context.Background()))
}

func TestNewWithWriter_Formats(t *testing.T) {
	t.Run("json carries service attrs", func(t *testing.T) {
		var buf bytes.Buffer

		logger := NewWithWriter(&Config{Level: "info", Format: "json", Service: "quotesync", Version: "1.0.0"}, &buf)
		logger.Info("merged quotes", slog.Int("merged", 2))

		entry := decode(t, &buf)
		assert.Equal(t, "merged quotes", entry["msg"])
		assert.Equal(t, "quotesync", entry["service_name"])
		assert.Equal(t, "1.0.0", entry["service_version"])
		assert.EqualValues(t, 2, entry["merged"])
	})

	t.Run("text honors debug level", func(t *testing.T) {
		var buf bytes.Buffer

		NewWithWriter(&Config{Level: "debug", Format: "text", Service: "quotesync"}, &buf).Debug("nothing new")

		assert.Contains(t, buf.String(), "nothing new")
		assert.Contains(t, buf.String(), "quotesync")
	})

	t.Run("info level drops trace", func(t *testing.T) {
		var buf bytes.Buffer

		logger := NewWithWriter(&Config{Level: "info", Format: "json"}, &buf)
		logger.Log(context.Background(), LevelTrace, "remote item")

		assert.Empty(t, buf.String())
	})

	t.Run("pretty", func(t *testing.T) {
		var buf bytes.Buffer

		NewWithWriter(&Config{Level: "info", Format: "pretty"}, &buf).Info("pretty message")

		assert.Contains(t, buf.String(), "pretty message")
	})
}

func TestNewWithWriter_FileSink(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "quotesync.log")

	var buf bytes.Buffer

	logger := NewWithWriter(&Config{
		Level:  "info",
		Format: "text",
		File:   FileConfig{Enabled: true, Path: logFile, MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1},
	}, &buf)

	logger.Info("written twice")

	assert.Contains(t, buf.String(), "written twice")

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"msg":"written twice"`)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"trace":   LevelTrace,
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"loud":    slog.LevelInfo,
	}

	for input, want := range tests {
		assert.Equal(t, want, parseLevel(input), "input %q", input)
	}
}

func TestSlogToCharmLevel(t *testing.T) {
	assert.Equal(t, log.DebugLevel, slogToCharmLevel(LevelTrace))
	assert.Equal(t, log.DebugLevel, slogToCharmLevel(slog.LevelDebug))
	assert.Equal(t, log.InfoLevel, slogToCharmLevel(slog.LevelInfo))
	assert.Equal(t, log.WarnLevel, slogToCharmLevel(slog.LevelWarn))
	assert.Equal(t, log.ErrorLevel, slogToCharmLevel(slog.LevelError))
	assert.Equal(t, log.ErrorLevel, slogToCharmLevel(slog.Level(12)))
}

func TestMultiHandler(t *testing.T) {
	var debugBuf, infoBuf bytes.Buffer

	multi := NewMultiHandler(
		slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo}),
	)

	assert.True(t, multi.Enabled(context.Background(), slog.LevelDebug))
	assert.False(t, multi.Enabled(context.Background(), LevelTrace))

	logger := slog.New(multi).With(slog.String("component", "sync")).WithGroup("cycle")
	logger.Info("cycle finished", slog.Int("merged", 1))

	assert.Contains(t, debugBuf.String(), `"component":"sync"`)
	assert.Contains(t, infoBuf.String(), `"cycle":{"merged":1}`)

	debugBuf.Reset()
	infoBuf.Reset()

	logger.Debug("nothing new")

	assert.Contains(t, debugBuf.String(), "nothing new")
	assert.Empty(t, infoBuf.String())
}

func TestNewReplaceAttr(t *testing.T) {
	tests := []struct {
		key    string
		value  string
		redact bool
	}{
		{key: "password", value: "hunter2", redact: true},
		{key: "access_key", value: "minio-access", redact: true},
		{key: "secret_key", value: "minio-secret", redact: true},
		{key: "secret_config", value: "sensitive-data", redact: true},
		{key: "authorization", value: "Bearer abc123xyz456", redact: true},
		{key: "header", value: "Basic dXNlcjpwYXNz", redact: true},
		{key: "category", value: "Motivation", redact: false},
		{key: "text", value: "Stay hungry, stay foolish.", redact: false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			var buf bytes.Buffer

			logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{ReplaceAttr: NewReplaceAttr()}))
			logger.Info("test", slog.String(tt.key, tt.value))

			if tt.redact {
				assert.NotContains(t, buf.String(), tt.value)
				assert.Contains(t, buf.String(), tt.key)

				return
			}

			assert.Contains(t, buf.String(), tt.value)
		})
	}
}
