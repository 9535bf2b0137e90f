// Package logging provides the colored slog handler used for --debug
// tracing. Everything goes to stderr so piped output stays clean.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Setup installs the default logger. Debug enables the tracing of
// intermediate prompt state; otherwise only warnings and errors show.
func Setup(w io.Writer, debug bool) {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(NewHandler(w, level)))
}

// Handler is a minimal human-oriented slog handler: timestamp,
// colored level tag, message, key=value attributes.
type Handler struct {
	attrs []slog.Attr
	level slog.Level

	mu  *sync.Mutex
	out io.Writer
}

func NewHandler(out io.Writer, level slog.Level) *Handler {
	return &Handler{out: out, level: level, mu: &sync.Mutex{}}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var sb strings.Builder

	if !r.Time.IsZero() {
		sb.WriteString(color.New(color.Faint).Sprint(r.Time.Format(time.DateTime)))
		sb.WriteString(" ")
	}

	switch r.Level {
	case slog.LevelDebug:
		sb.WriteString(color.New(color.FgCyan).Sprint("DEBUG"))
	case slog.LevelInfo:
		sb.WriteString(color.New(color.FgGreen).Sprint("INFO "))
	case slog.LevelWarn:
		sb.WriteString(color.New(color.FgYellow).Sprint("WARN "))
	case slog.LevelError:
		sb.WriteString(color.New(color.FgRed).Sprint("ERROR"))
	}
	sb.WriteString(" ")
	sb.WriteString(r.Message)

	attrs := append([]slog.Attr{}, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, a)
		return true
	})
	for _, a := range attrs {
		sb.WriteString(" ")
		if strings.Contains(a.Key, "err") {
			sb.WriteString(color.New(color.FgRed).Sprintf("%s=", a.Key))
		} else {
			sb.WriteString(color.New(color.FgCyan).Sprintf("%s=", a.Key))
		}
		sb.WriteString(a.Value.String())
	}
	sb.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, sb.String())
	return err
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := *h
	h2.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &h2
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.attrs = append(append([]slog.Attr{}, h.attrs...), slog.String("group", name))
	return &h2
}

// Err wraps an error for structured logging, mirroring the common
// slog attribute helper.
func Err(err error) slog.Attr {
	return slog.String("err", fmt.Sprintf("%v", err))
}
