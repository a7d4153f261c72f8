// Package logger configures the process-wide structured logger.
//
// Regulon logs exclusively through log/slog. At INFO and above,
// third-party library noise (vector backend clients, HTTP transports) is
// suppressed so operators see only Regulon's own request/tool/iteration
// events; DEBUG shows everything.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
)

const modulePrefix = "github.com/regulon-ai/regulon"

// ParseLevel converts a level string to slog.Level. Unknown values fall
// back to WARN, matching the fail-safe-loud default operators expect.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// filteringHandler wraps a slog.Handler and drops non-Regulon records
// unless the configured level is DEBUG.
type filteringHandler struct {
	handler  slog.Handler
	minLevel slog.Level
}

func (h *filteringHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.minLevel && h.handler.Enabled(ctx, level)
}

func (h *filteringHandler) Handle(ctx context.Context, record slog.Record) error {
	if h.minLevel <= slog.LevelDebug || h.fromModule(record.PC) {
		return h.handler.Handle(ctx, record)
	}
	return nil
}

func (h *filteringHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &filteringHandler{handler: h.handler.WithAttrs(attrs), minLevel: h.minLevel}
}

func (h *filteringHandler) WithGroup(name string) slog.Handler {
	return &filteringHandler{handler: h.handler.WithGroup(name), minLevel: h.minLevel}
}

func (h *filteringHandler) fromModule(pc uintptr) bool {
	if pc == 0 {
		return false
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return false
	}
	return strings.Contains(fn.Name(), modulePrefix)
}

// getLevelColor returns the ANSI color code for a log level.
func getLevelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "\033[31m" // red
	case level >= slog.LevelWarn:
		return "\033[33m" // yellow
	case level >= slog.LevelInfo:
		return "\033[36m" // cyan
	default:
		return "\033[90m" // gray
	}
}

// isTerminal reports whether file is attached to a character device, so
// color codes aren't written into redirected/piped output.
func isTerminal(file *os.File) bool {
	if info, err := file.Stat(); err == nil {
		return (info.Mode() & os.ModeCharDevice) != 0
	}
	return false
}

// coloredTextHandler wraps a text handler and re-renders each record with
// an ANSI color keyed to its level, for local development on a TTY.
type coloredTextHandler struct {
	handler slog.Handler
	writer  io.Writer
}

func (h *coloredTextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *coloredTextHandler) Handle(ctx context.Context, record slog.Record) error {
	colorCode := getLevelColor(record.Level)
	resetCode := "\033[0m"

	var buf strings.Builder
	if !record.Time.IsZero() {
		buf.WriteString(record.Time.Format("2006/01/02 15:04:05 "))
	}
	buf.WriteString(colorCode)
	buf.WriteString(record.Level.String())
	buf.WriteString(resetCode)
	buf.WriteString(" ")
	buf.WriteString(record.Message)
	record.Attrs(func(a slog.Attr) bool {
		buf.WriteString(" ")
		buf.WriteString(a.Key)
		buf.WriteString("=")
		buf.WriteString(a.Value.String())
		return true
	})
	buf.WriteString("\n")

	_, err := h.writer.Write([]byte(buf.String()))
	return err
}

func (h *coloredTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &coloredTextHandler{handler: h.handler.WithAttrs(attrs), writer: h.writer}
}

func (h *coloredTextHandler) WithGroup(name string) slog.Handler {
	return &coloredTextHandler{handler: h.handler.WithGroup(name), writer: h.writer}
}

// Options configures New.
type Options struct {
	// Level is the minimum level to emit (after third-party filtering).
	Level slog.Level
	// JSON selects structured JSON output; otherwise a text handler is
	// used, colorized when stdout is a terminal.
	JSON bool
	// AddSource annotates each record with file:line.
	AddSource bool
}

// New builds a process-wide slog.Logger per Options and installs it as
// the slog default.
func New(opts Options) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{
		Level:     opts.Level,
		AddSource: opts.AddSource,
	}

	var base slog.Handler
	switch {
	case opts.JSON:
		base = slog.NewJSONHandler(os.Stdout, handlerOpts)
	case isTerminal(os.Stdout):
		base = &coloredTextHandler{handler: slog.NewTextHandler(os.Stdout, handlerOpts), writer: os.Stdout}
	default:
		base = slog.NewTextHandler(os.Stdout, handlerOpts)
	}

	wrapped := &filteringHandler{handler: base, minLevel: opts.Level}
	logger := slog.New(wrapped)
	slog.SetDefault(logger)
	return logger
}

// WithRequestID returns a logger annotated with a request id, for
// per-request context propagation through the orchestrator and loop.
func WithRequestID(logger *slog.Logger, requestID string) *slog.Logger {
	return logger.With("request_id", requestID)
}
