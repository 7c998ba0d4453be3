package kernel

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// logHandler is a slog.Handler that serializes writes to a single
// destination under a mutex, grounded on rcornwell-S370/util/logger's
// LogHandler (the only logging approach attested anywhere in this
// corpus's non-kernel utility packages): a plain text line per record,
// timestamp + level + message + attrs.
type logHandler struct {
	out io.Writer
	mu  *sync.Mutex
	lvl slog.Leveler
}

func (h *logHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.lvl.Level()
}

func (h *logHandler) WithAttrs(_ []slog.Attr) slog.Handler { return h }
func (h *logHandler) WithGroup(_ string) slog.Handler       { return h }

func (h *logHandler) Handle(_ context.Context, r slog.Record) error {
	parts := []string{r.Time.Format("2006/01/02 15:04:05"), r.Level.String() + ":", r.Message}
	r.Attrs(func(a slog.Attr) bool {
		parts = append(parts, a.Key+"="+a.Value.String())
		return true
	})
	line := strings.Join(parts, " ") + "\n"

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write([]byte(line))
	return err
}

// Logger is the boot context's diagnostic sink: a thin *slog.Logger
// wrapper, the ambient logging every non-networking package in this
// corpus reaches for (spec.md §7/SPEC_FULL.md §7).
type Logger struct {
	*slog.Logger
}

// NewLogger builds a Logger writing text-formatted records to out at or
// above lvl. A nil out defaults to os.Stderr, the boot console's role
// until package vfs's Console takes over user-visible output.
func NewLogger(out io.Writer, lvl slog.Level) *Logger {
	if out == nil {
		out = os.Stderr
	}
	h := &logHandler{out: out, mu: &sync.Mutex{}, lvl: lvl}
	return &Logger{Logger: slog.New(h)}
}
