// Package logging builds the process logger. Output goes to stderr because
// stdout carries the raw pipe payload.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
)

// New constructs a logger writing to w at the given level. Every record
// carries a run id so interleaved invocations can be told apart in captured
// logs.
func New(w io.Writer, level string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       ParseLevel(level),
		ReplaceAttr: timeFormatter(w),
	}
	return slog.New(slog.NewTextHandler(w, opts)).With(slog.String("run_id", uuid.NewString()))
}

// ParseLevel maps a level string to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// timeFormatter trims timestamps to the kitchen clock on interactive
// terminals; captured logs keep the full RFC 3339 form.
func timeFormatter(w io.Writer) func(groups []string, a slog.Attr) slog.Attr {
	f, ok := w.(*os.File)
	if !ok || !(isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return nil
	}
	return func(groups []string, a slog.Attr) slog.Attr {
		if len(groups) == 0 && a.Key == slog.TimeKey {
			return slog.String(slog.TimeKey, a.Value.Time().Format(time.Kitchen))
		}
		return a
	}
}
