package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/rendis/drawsynth/pkg/schema"
)

type ctxKey int

const (
	runIDKey ctxKey = iota
	stateKey
	attemptKey
)

// WithRunID returns a context with the run ID set.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// WithState returns a context with the current state machine state set.
func WithState(ctx context.Context, state schema.RunState) context.Context {
	return context.WithValue(ctx, stateKey, state)
}

// WithAttempt returns a context with the refine attempt counter set.
func WithAttempt(ctx context.Context, attempt int) context.Context {
	return context.WithValue(ctx, attemptKey, attempt)
}

// RunID extracts the run ID from the context, or "" if absent.
func RunID(ctx context.Context) string {
	v, _ := ctx.Value(runIDKey).(string)
	return v
}

// State extracts the state from the context, or "" if absent.
func State(ctx context.Context) schema.RunState {
	v, _ := ctx.Value(stateKey).(schema.RunState)
	return v
}

// Attempt extracts the attempt counter from the context. ok is false if absent.
func Attempt(ctx context.Context) (attempt int, ok bool) {
	attempt, ok = ctx.Value(attemptKey).(int)
	return attempt, ok
}

// attrs returns the correlation attributes present in ctx.
func attrs(ctx context.Context) []slog.Attr {
	var out []slog.Attr
	if v := RunID(ctx); v != "" {
		out = append(out, slog.String("run_id", v))
	}
	if v := State(ctx); v != "" {
		out = append(out, slog.String("state", string(v)))
	}
	if v, ok := Attempt(ctx); ok {
		out = append(out, slog.Int("attempt", v))
	}
	return out
}

// LogWith returns a logger enriched with correlation values from the context.
// Only values present in the context are added.
func LogWith(ctx context.Context, logger *slog.Logger) *slog.Logger {
	for _, a := range attrs(ctx) {
		logger = logger.With(a)
	}
	return logger
}

// CorrelationHandler wraps an slog.Handler, injecting the run correlation
// values from the context into every record. Callers log with
// logger.InfoContext(ctx, ...) and the values appear automatically.
type CorrelationHandler struct {
	inner slog.Handler
}

// NewCorrelationHandler wraps the given handler.
func NewCorrelationHandler(inner slog.Handler) *CorrelationHandler {
	return &CorrelationHandler{inner: inner}
}

func (h *CorrelationHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *CorrelationHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(attrs(ctx)...)
	return h.inner.Handle(ctx, r)
}

func (h *CorrelationHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *CorrelationHandler) WithGroup(name string) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithGroup(name)}
}

// ParseLevel maps debug|info|warn|error to a slog level. Unknown names are info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
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

// New builds the process logger: a JSON or text handler on w, wrapped in a
// CorrelationHandler.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	var inner slog.Handler
	if strings.EqualFold(format, "text") {
		inner = slog.NewTextHandler(w, opts)
	} else {
		inner = slog.NewJSONHandler(w, opts)
	}
	return slog.New(NewCorrelationHandler(inner))
}
