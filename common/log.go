package common

import (
	"context"
	"log/slog"
	"slices"
	"sync/atomic"
)

// nopHandler drops every record. It is the default so library users see no output unless they opt in.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (h nopHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h nopHandler) WithGroup(string) slog.Handler           { return h }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

// SetLogger configures the logger used by every engine package.
// Passing nil restores the silent default.
//
// Parameters:
//   - l: the logger to use, or nil to disable logging
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}

// Logger returns the current engine logger. It is safe for concurrent use.
//
// Returns:
//   - *slog.Logger: the configured logger, never nil
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// ComponentLogger returns a logger tagged with a component attribute,
// e.g. ComponentLogger("Renderer") for records that belong to the render orchestrator.
// Records go to whichever logger SetLogger installed last, so a component logger created before
// SetLogger still follows it.
func ComponentLogger(component string) *slog.Logger {
	return slog.New(&componentHandler{
		steps: []func(slog.Handler) slog.Handler{withAttrs([]slog.Attr{slog.String("component", component)})},
	})
}

// componentHandler resolves the engine logger's handler on every call and replays the attributes
// and groups added to it.
type componentHandler struct {
	steps []func(slog.Handler) slog.Handler
}

func (h *componentHandler) resolve() slog.Handler {
	next := Logger().Handler()
	for _, step := range h.steps {
		next = step(next)
	}
	return next
}

func (h *componentHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return Logger().Handler().Enabled(ctx, level)
}

func (h *componentHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.resolve().Handle(ctx, r)
}

func (h *componentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	return h.with(withAttrs(attrs))
}

func (h *componentHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return h.with(func(next slog.Handler) slog.Handler { return next.WithGroup(name) })
}

func (h *componentHandler) with(step func(slog.Handler) slog.Handler) *componentHandler {
	return &componentHandler{steps: append(slices.Clip(h.steps), step)}
}

func withAttrs(attrs []slog.Attr) func(slog.Handler) slog.Handler {
	return func(next slog.Handler) slog.Handler { return next.WithAttrs(attrs) }
}
