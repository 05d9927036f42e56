// Package logger builds chief's slog.Logger: a tint-colored console handler
// plus an optional lumberjack-rotated JSON file handler, fanned out through
// MultiHandler and wrapped in RedactingHandler so a job's monitor api_key
// (CHIEF_MONITOR_API_KEY) never reaches stdout or the log file verbatim.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures logger construction for one chief process.
type Options struct {
	Env          string // "dev" switches the console to short, colored lines
	ConsoleLevel string // console output level (default: info)
	FileLevel    string // file output level (default: debug)
	File         string // optional rotated log file path; empty disables
	App          string // app attribute stamped on every record
}

// sensitiveKeys are redacted wherever they appear as attribute keys. The
// monitor api key travels through the worker environment overlay, so both
// its config name and its env-var name are covered.
var sensitiveKeys = []string{
	"api_key",
	"apikey",
	"x-api-key",
	"chief_monitor_api_key",
	"token",
	"secret",
	"password",
}

var closers sync.Map

// New builds a configured *slog.Logger. Pair with Close at process exit to
// release the file writer.
func New(o Options) *slog.Logger {
	handlers := []slog.Handler{newConsoleHandler(o)}

	var closer func() error
	if o.File != "" {
		fh, c := newFileHandler(o)
		handlers = append(handlers, fh)
		closer = c
	}

	var h slog.Handler
	if len(handlers) == 1 {
		h = handlers[0]
	} else {
		h = NewMultiHandler(handlers...)
	}

	l := slog.New(h).With(
		slog.String("app", o.App),
		slog.String("env", o.Env),
	)
	if closer != nil {
		closers.Store(l, closer)
	}
	return l
}

func newConsoleHandler(o Options) slog.Handler {
	opts := &tint.Options{
		Level:      levelFromString(o.ConsoleLevel, slog.LevelInfo),
		TimeFormat: time.RFC3339,
	}
	if o.Env == "dev" {
		opts.TimeFormat = time.Kitchen
	}
	return NewRedactingHandler(tint.NewHandler(os.Stdout, opts), sensitiveKeys)
}

func newFileHandler(o Options) (slog.Handler, func() error) {
	w := &lumberjack.Logger{
		Filename:   o.File,
		MaxSize:    5, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: levelFromString(o.FileLevel, slog.LevelDebug),
	})
	return NewRedactingHandler(h, sensitiveKeys), w.Close
}

// Close releases the logger's file writer, if it has one. Safe to call on
// loggers built without a file handler.
func Close(logger *slog.Logger) error {
	if c, ok := closers.Load(logger); ok {
		closers.Delete(logger)
		return c.(func() error)()
	}
	return nil
}

func levelFromString(s string, fallback slog.Level) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return fallback
	}
}

// RedactingHandler replaces the values of sensitive attributes with
// "[REDACTED]" before delegating to the wrapped handler.
type RedactingHandler struct {
	inner     slog.Handler
	sensitive []string
}

// NewRedactingHandler wraps inner, treating any attribute whose key
// contains one of the sensitive substrings (case-insensitive) as secret.
func NewRedactingHandler(inner slog.Handler, sensitive []string) *RedactingHandler {
	return &RedactingHandler{inner: inner, sensitive: sensitive}
}

func (h *RedactingHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.inner.Enabled(ctx, l)
}

func (h *RedactingHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.sanitize(a))
		return true
	})
	return h.inner.Handle(ctx, out)
}

func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	sanitized := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		sanitized[i] = h.sanitize(a)
	}
	return &RedactingHandler{inner: h.inner.WithAttrs(sanitized), sensitive: h.sensitive}
}

func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{inner: h.inner.WithGroup(name), sensitive: h.sensitive}
}

func (h *RedactingHandler) sanitize(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		members := a.Value.Group()
		sanitized := make([]any, 0, len(members))
		for _, m := range members {
			sanitized = append(sanitized, h.sanitize(m))
		}
		return slog.Group(a.Key, sanitized...)
	}
	key := strings.ToLower(a.Key)
	for _, s := range h.sensitive {
		if strings.Contains(key, s) {
			return slog.String(a.Key, "[REDACTED]")
		}
	}
	return a
}

// MultiHandler fans every record out to each wrapped handler.
type MultiHandler struct {
	handlers []slog.Handler
}

func NewMultiHandler(handlers ...slog.Handler) *MultiHandler {
	return &MultiHandler{handlers: handlers}
}

func (h *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, hh := range h.handlers {
		if hh.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, hh := range h.handlers {
		if !hh.Enabled(ctx, r.Level) {
			continue
		}
		if err := hh.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (h *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, hh := range h.handlers {
		next[i] = hh.WithAttrs(attrs)
	}
	return &MultiHandler{handlers: next}
}

func (h *MultiHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, hh := range h.handlers {
		next[i] = hh.WithGroup(name)
	}
	return &MultiHandler{handlers: next}
}
