package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

type ctxKey int

const (
	sessionIDKey ctxKey = iota
	runIDKey
	algorithmKey
)

// correlation lists the context keys copied onto log records, in output order.
var correlation = []struct {
	key  ctxKey
	attr string
}{
	{sessionIDKey, "session_id"},
	{runIDKey, "run_id"},
	{algorithmKey, "algorithm"},
}

// WithSessionID returns a context with the playback session ID set.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// WithRunID returns a context with the run ID set.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// WithAlgorithm returns a context with the simulated algorithm set.
func WithAlgorithm(ctx context.Context, alg string) context.Context {
	return context.WithValue(ctx, algorithmKey, alg)
}

// SessionID extracts the session ID from the context, or "" if absent.
func SessionID(ctx context.Context) string { return value(ctx, sessionIDKey) }

// RunID extracts the run ID from the context, or "" if absent.
func RunID(ctx context.Context) string { return value(ctx, runIDKey) }

// Algorithm extracts the algorithm from the context, or "" if absent.
func Algorithm(ctx context.Context) string { return value(ctx, algorithmKey) }

func value(ctx context.Context, key ctxKey) string {
	v, _ := ctx.Value(key).(string)
	return v
}

// WithIDs sets every correlation value on the context at once.
func WithIDs(ctx context.Context, sessionID, runID, algorithm string) context.Context {
	ctx = WithSessionID(ctx, sessionID)
	ctx = WithRunID(ctx, runID)
	return WithAlgorithm(ctx, algorithm)
}

// attrs returns the non-empty correlation values of ctx.
func attrs(ctx context.Context) []slog.Attr {
	var out []slog.Attr
	for _, c := range correlation {
		if v := value(ctx, c.key); v != "" {
			out = append(out, slog.String(c.attr, v))
		}
	}
	return out
}

// LogWith returns a logger enriched with correlation values from the context.
// Only non-empty values are added as attributes.
func LogWith(ctx context.Context, logger *slog.Logger) *slog.Logger {
	for _, a := range attrs(ctx) {
		logger = logger.With(a)
	}
	return logger
}

// CorrelationHandler wraps an slog.Handler, injecting the session, run and
// algorithm from the context into every record logged with a *Context
// method.
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

// ParseLevel maps debug, info, warn or error to a slog level. Unknown names
// fall back to info.
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

// New builds the process logger: a text handler on w wrapped in a
// CorrelationHandler.
func New(w io.Writer, level string) *slog.Logger {
	inner := slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
	return slog.New(NewCorrelationHandler(inner))
}

// NewLeveled is New with a level that can be changed while the process
// runs, e.g. on a settings reload.
func NewLeveled(w io.Writer, level *slog.LevelVar) *slog.Logger {
	inner := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(NewCorrelationHandler(inner))
}
