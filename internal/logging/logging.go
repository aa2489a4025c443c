// Package logging builds the process-wide slog logger.
package logging

import (
	"alcyxob/fitcoach/internal/config"
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/rollbar/rollbar-go"
)

// New returns a logger configured from cfg. When a Rollbar token is set,
// error-level records are also reported to Rollbar.
func New(cfg config.LogConfig, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var h slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}

	if cfg.RollbarToken != "" {
		rollbar.SetToken(cfg.RollbarToken)
		rollbar.SetEnvironment(cfg.Environment)
		rollbar.SetServerRoot("alcyxob/fitcoach")
		h = &RollbarHandler{next: h, report: reportToRollbar}
	}
	return slog.New(h)
}

// ParseLevel maps a config string to a slog level. Unknown values mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// RollbarHandler forwards error records to Rollbar before passing them on.
type RollbarHandler struct {
	next   slog.Handler
	attrs  []slog.Attr
	report func(msg string, fields map[string]interface{})
}

func (h *RollbarHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.next.Enabled(ctx, l)
}

func (h *RollbarHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		fields := make(map[string]interface{}, r.NumAttrs()+len(h.attrs))
		for _, a := range h.attrs {
			fields[a.Key] = a.Value.String()
		}
		r.Attrs(func(a slog.Attr) bool {
			fields[a.Key] = a.Value.String()
			return true
		})
		h.report(r.Message, fields)
	}
	return h.next.Handle(ctx, r)
}

func (h *RollbarHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &RollbarHandler{next: h.next.WithAttrs(attrs), attrs: merged, report: h.report}
}

func (h *RollbarHandler) WithGroup(name string) slog.Handler {
	return &RollbarHandler{next: h.next.WithGroup(name), attrs: h.attrs, report: h.report}
}

func reportToRollbar(msg string, fields map[string]interface{}) {
	rollbar.Error(msg, fields)
}

// Close flushes pending Rollbar items.
func Close() {
	rollbar.Wait()
}
