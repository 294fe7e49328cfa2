package slogx

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/lucke/calcutta-web/internal/util/style"
)

func levelStyle(l slog.Level) []int {
	switch {
	case l >= slog.LevelError:
		return []int{1, 31}
	case l >= slog.LevelWarn:
		return []int{1, 33}
	case l >= slog.LevelInfo:
		return []int{32}
	default:
		return []int{90}
	}
}

type consoleHandler struct {
	mu    *sync.Mutex
	w     io.Writer
	color bool
	inner slog.Handler
}

// NewConsoleHandler returns a handler for humans reading the logs in a terminal. Each line starts
// with the time and the level, which is highlighted if color is true. Attributes are written in
// the same format as slog.TextHandler does.
func NewConsoleHandler(w io.Writer, level slog.Leveler, color bool) slog.Handler {
	mu := new(sync.Mutex)
	inner := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && (a.Key == slog.TimeKey || a.Key == slog.LevelKey) {
				return slog.Attr{}
			}
			return a
		},
	})
	return &consoleHandler{mu: mu, w: w, color: color, inner: inner}
}

func (h *consoleHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.inner.Enabled(ctx, l)
}

func (h *consoleHandler) Handle(ctx context.Context, r slog.Record) error {
	level := r.Level.String()
	if h.color {
		level = style.Wrap(level, levelStyle(r.Level)...)
	}
	prefix := r.Time.Format(time.TimeOnly) + " " + level + " "

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, err := io.WriteString(h.w, prefix); err != nil {
		return err
	}
	return h.inner.Handle(ctx, r)
}

func (h *consoleHandler) WithAttrs(as []slog.Attr) slog.Handler {
	return &consoleHandler{mu: h.mu, w: h.w, color: h.color, inner: h.inner.WithAttrs(as)}
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	return &consoleHandler{mu: h.mu, w: h.w, color: h.color, inner: h.inner.WithGroup(name)}
}
