package logger

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesToFileWhenConfigured(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "chief.log")

	l := New(Options{Env: "test", App: "chief", File: file, FileLevel: "debug"})
	l.Info("daemon starting", "jobs", 3)
	require.NoError(t, Close(l))

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "daemon starting")
	assert.Contains(t, string(data), `"app":"chief"`)
}

func TestCloseWithoutFileHandlerIsNoop(t *testing.T) {
	l := New(Options{Env: "test", App: "chief"})
	assert.NoError(t, Close(l))
}

func TestRedactingHandlerMasksSensitiveKeys(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(NewRedactingHandler(slog.NewTextHandler(&buf, nil), sensitiveKeys))

	l.Info("telemetry configured",
		"endpoint", "https://collector.example.com",
		"api_key", "sk-very-secret",
		"CHIEF_MONITOR_API_KEY", "also-secret",
	)

	out := buf.String()
	assert.Contains(t, out, "https://collector.example.com")
	assert.Contains(t, out, "[REDACTED]")
	assert.NotContains(t, out, "sk-very-secret")
	assert.NotContains(t, out, "also-secret")
}

func TestRedactingHandlerMasksWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := NewRedactingHandler(slog.NewTextHandler(&buf, nil), sensitiveKeys)
	l := slog.New(h).With("api_key", "bound-secret")

	l.Warn("telemetry batch send failed")

	assert.NotContains(t, buf.String(), "bound-secret")
	assert.Contains(t, buf.String(), "[REDACTED]")
}

func TestRedactingHandlerMasksGroupMembers(t *testing.T) {
	var buf bytes.Buffer
	h := NewRedactingHandler(slog.NewTextHandler(&buf, nil), sensitiveKeys)
	slog.New(h).Info("monitor", slog.Group("monitor",
		slog.String("endpoint", "http://localhost:7410"),
		slog.String("api_key", "grouped-secret"),
	))

	assert.NotContains(t, buf.String(), "grouped-secret")
	assert.Contains(t, buf.String(), "http://localhost:7410")
}

func TestMultiHandlerFansOutByLevel(t *testing.T) {
	var warnOnly, all bytes.Buffer
	h := NewMultiHandler(
		slog.NewTextHandler(&warnOnly, &slog.HandlerOptions{Level: slog.LevelWarn}),
		slog.NewTextHandler(&all, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	l := slog.New(h)

	l.Debug("poll tick")
	l.Warn("overlap skipped")

	assert.NotContains(t, warnOnly.String(), "poll tick")
	assert.Contains(t, warnOnly.String(), "overlap skipped")
	assert.Contains(t, all.String(), "poll tick")
	assert.Contains(t, all.String(), "overlap skipped")
}

func TestMultiHandlerEnabled(t *testing.T) {
	h := NewMultiHandler(
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestLevelFromString(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"Warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range cases {
		assert.Equal(t, want, levelFromString(in, slog.LevelInfo), in)
	}
	assert.Equal(t, slog.LevelDebug, levelFromString("", slog.LevelDebug))
	assert.Equal(t, slog.LevelInfo, levelFromString("bogus", slog.LevelInfo))
}

func TestSanitizeLeavesOrdinaryAttrsAlone(t *testing.T) {
	h := NewRedactingHandler(slog.NewTextHandler(&bytes.Buffer{}, nil), sensitiveKeys)

	masked := h.sanitize(slog.String("monitor_api_key", "x"))
	assert.Equal(t, "[REDACTED]", masked.Value.String())

	plain := h.sanitize(slog.String("job", "nightly-backup"))
	assert.Equal(t, "nightly-backup", plain.Value.String())
}
