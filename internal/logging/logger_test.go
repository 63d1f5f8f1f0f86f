package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"chatty":  slog.LevelInfo,
	}
	for name, want := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, want, ParseLevel(name))
		})
	}
}

func TestNewLogger_JSONWithRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Level: "info", Format: "json", Output: &buf})

	logger.WithRequestID("req-1").Info("resolved", slog.Int("paths", 2))
	logger.Debug("dropped")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "resolved", record["msg"])
	assert.Equal(t, "req-1", record["request_id"])
	assert.Equal(t, float64(2), record["paths"])
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Level: "debug", Format: "text", Output: &buf})

	logger.WithFields("component", "search").Debug("pruned")
	assert.Contains(t, buf.String(), "msg=pruned")
	assert.Contains(t, buf.String(), "component=search")
}

func TestTeeHandler(t *testing.T) {
	var infoBuf, errorBuf bytes.Buffer
	tee := teeHandler{
		slog.NewTextHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewTextHandler(&errorBuf, &slog.HandlerOptions{Level: slog.LevelError}),
	}
	logger := slog.New(tee).With("model", "retail")

	logger.Info("loaded")
	logger.Error("refresh failed")

	assert.Contains(t, infoBuf.String(), "msg=loaded")
	assert.Contains(t, infoBuf.String(), "msg=\"refresh failed\"")
	assert.NotContains(t, errorBuf.String(), "loaded")
	assert.Contains(t, errorBuf.String(), "model=retail")
	assert.False(t, tee.Enabled(context.Background(), slog.LevelDebug))
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "", RequestID(ctx))
	assert.NotNil(t, FromContext(ctx).Logger)

	logger := Discard()
	ctx = WithLogger(ctx, logger)
	ctx = WithRequestIDContext(ctx, "abc")
	assert.Same(t, logger, FromContext(ctx))
	assert.Equal(t, "abc", RequestID(ctx))
}
