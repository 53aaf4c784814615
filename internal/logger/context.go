package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// ContextWithLogger stores a logger in the context.
func ContextWithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext extracts a logger from the context.
// Returns fallback (or zap.NewNop() when fallback is nil) if none is stored.
func FromContext(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
		return l
	}
	if fallback != nil {
		return fallback
	}
	return zap.NewNop()
}

// WithTrace returns a context whose logger carries the trace id.
func WithTrace(ctx context.Context, base *zap.Logger, traceID string) context.Context {
	return ContextWithLogger(ctx, FromContext(ctx, base).With(zap.String("trace_id", traceID)))
}
