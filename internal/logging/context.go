package logging

import (
	"context"
	"log/slog"
)

type contextKey int

const (
	correlationIDKey contextKey = iota
	aniListIDKey
)

// WithCorrelationID tags ctx with a correlation id for log lines.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationIDFromContext returns the correlation id stored in ctx.
func CorrelationIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(correlationIDKey).(string)
	return id, ok && id != ""
}

// WithAniListID tags ctx with the AniList id being worked on.
func WithAniListID(ctx context.Context, id int) context.Context {
	return context.WithValue(ctx, aniListIDKey, id)
}

// AniListIDFromContext returns the AniList id stored in ctx.
func AniListIDFromContext(ctx context.Context) (int, bool) {
	if ctx == nil {
		return 0, false
	}
	id, ok := ctx.Value(aniListIDKey).(int)
	return id, ok && id > 0
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	fields := make([]slog.Attr, 0, 2)
	if id, ok := CorrelationIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, id))
	}
	if id, ok := AniListIDFromContext(ctx); ok {
		fields = append(fields, slog.Int(FieldAniListID, id))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
