package logutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// NewColorHandler returns a slog.Handler that writes human-readable
// lines colored by outcome: records carrying a "status" attr are
// colored by status class (green 2xx, yellow 3xx, red otherwise),
// records without one by level. Color is dropped automatically when w
// is not a terminal.
func NewColorHandler(w io.Writer, opts *slog.HandlerOptions) slog.Handler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}

	return &colorHandler{w: w, opts: *opts, mu: new(sync.Mutex)}
}

type colorHandler struct {
	w     io.Writer
	opts  slog.HandlerOptions
	attrs []slog.Attr
	mu    *sync.Mutex
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}

	return level >= minLevel
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := *h
	h2.attrs = append(slices.Clip(h.attrs), attrs...)
	return &h2
}

func (h *colorHandler) WithGroup(string) slog.Handler {
	// Groups are not used by this module.
	return h
}

func (h *colorHandler) Handle(_ context.Context, rec slog.Record) error {
	var (
		attrs = slices.Clone(h.attrs)
		sb    = new(strings.Builder)
	)
	rec.Attrs(func(attr slog.Attr) bool {
		attrs = append(attrs, attr)
		return true
	})

	if !rec.Time.IsZero() {
		fmt.Fprintf(sb, "%s ", rec.Time.Format(time.TimeOnly))
	}
	fmt.Fprintf(sb, "%s %s", rec.Level, rec.Message)

	for _, attr := range attrs {
		fmt.Fprintf(sb, " %s=%v", attr.Key, attr.Value)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := colorFor(rec.Level, attrs).Fprintln(h.w, sb.String())
	return err
}

func colorFor(level slog.Level, attrs []slog.Attr) *color.Color {
	for _, attr := range attrs {
		if attr.Key == "status" && attr.Value.Kind() == slog.KindInt64 {
			switch status := attr.Value.Int64(); {
			case status >= 200 && status < 300:
				return color.New(color.FgGreen)
			case status >= 300 && status < 400:
				return color.New(color.FgYellow)
			default:
				return color.New(color.FgRed)
			}
		}
	}

	switch {
	case level >= slog.LevelWarn:
		return color.New(color.FgRed)
	case level < slog.LevelInfo:
		return color.New(color.Faint)
	}

	return color.New()
}
