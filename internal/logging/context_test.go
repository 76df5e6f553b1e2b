package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextKeys(t *testing.T) {
	ctx := context.Background()

	assert.Equal(t, "", DraftID(ctx))
	assert.Equal(t, "", RequestID(ctx))
	assert.Equal(t, "", SessionID(ctx))

	ctx = WithDraftID(ctx, "d-123")
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithSessionID(ctx, "sess-42")

	assert.Equal(t, "d-123", DraftID(ctx))
	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Equal(t, "sess-42", SessionID(ctx))
}

func TestLogWith(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx := WithRequestID(WithDraftID(context.Background(), "d-abc"), "req-x")
	LogWith(ctx, logger).Info("test message")

	output := buf.String()
	assert.Contains(t, output, "draft_id=d-abc")
	assert.Contains(t, output, "request_id=req-x")
	assert.NotContains(t, output, "session_id")
	assert.Contains(t, output, "test message")
}

func TestLogWithEmptyContext(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	LogWith(context.Background(), logger).Info("no context")

	output := buf.String()
	assert.NotContains(t, output, "draft_id")
	assert.NotContains(t, output, "request_id")
	assert.Contains(t, output, "no context")
}

func TestCorrelationHandler(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(NewCorrelationHandler(inner))

	ctx := WithSessionID(WithRequestID(WithDraftID(context.Background(), "d-auto"), "req-auto"), "sess-auto")
	logger.InfoContext(ctx, "auto inject")

	output := buf.String()
	assert.Contains(t, output, `"draft_id":"d-auto"`)
	assert.Contains(t, output, `"request_id":"req-auto"`)
	assert.Contains(t, output, `"session_id":"sess-auto"`)
}

func TestCorrelationHandlerEmptyContext(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCorrelationHandler(slog.NewJSONHandler(&buf, nil)))

	logger.InfoContext(context.Background(), "bare log")

	output := buf.String()
	assert.NotContains(t, output, "draft_id")
	assert.Contains(t, output, "bare log")
}

func TestCorrelationHandlerWithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	handler := NewCorrelationHandler(slog.NewJSONHandler(&buf, nil))
	logger := slog.New(handler.WithAttrs([]slog.Attr{slog.String("component", "panel")}).WithGroup("http"))

	logger.InfoContext(WithDraftID(context.Background(), "d-grp"), "grouped", "status", 200)

	output := buf.String()
	assert.Contains(t, output, `"component":"panel"`)
	assert.Contains(t, output, "d-grp")
	assert.Contains(t, output, `"status":200`)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "debug", Format: FormatJSON, Writer: &buf})
	require.NoError(t, err)
	logger.DebugContext(WithDraftID(context.Background(), "d-1"), "hello")
	assert.Contains(t, buf.String(), `"draft_id":"d-1"`)

	buf.Reset()
	logger, err = New(Options{Format: FormatText, Writer: &buf})
	require.NoError(t, err)
	logger.Debug("hidden")
	logger.Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.NotContains(t, buf.String(), "\x1b[", "no color when not a terminal")

	_, err = New(Options{Format: "xml"})
	assert.Error(t, err)
}

func TestNew_LevelVar(t *testing.T) {
	var buf bytes.Buffer
	lv := new(slog.LevelVar)
	logger, err := New(Options{Level: "warn", Format: FormatJSON, Writer: &buf, LevelVar: lv})
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, lv.Level())

	logger.Info("before")
	lv.Set(slog.LevelInfo)
	logger.Info("after")
	assert.NotContains(t, buf.String(), "before")
	assert.Contains(t, buf.String(), "after")
}
