package logger

import "context"

// contextKey is a type for context keys to avoid collisions.
type contextKey string

const (
	loggerKey  contextKey = "botvault.logger"
	runIDKey   contextKey = "botvault.run_id"
	accountKey contextKey = "botvault.account"
)

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext extracts the logger from context.
// Returns the default logger if none is set.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(loggerKey).(Logger); ok {
		return l
	}
	return Default()
}

// WithRunID tags the context with the ID of a maintenance or drain run.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// RunIDFromContext extracts the run ID from context.
func RunIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey).(string); ok {
		return id
	}
	return ""
}

// WithAccount tags the context with an account name.
func WithAccount(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, accountKey, name)
}

// AccountFromContext extracts the account name from context.
func AccountFromContext(ctx context.Context) string {
	if name, ok := ctx.Value(accountKey).(string); ok {
		return name
	}
	return ""
}

// L is a shorthand for FromContext that also enriches the logger
// with the run ID and account name from the context.
func L(ctx context.Context) Logger {
	l := FromContext(ctx)

	if runID := RunIDFromContext(ctx); runID != "" {
		l = l.With("run_id", runID)
	}
	if account := AccountFromContext(ctx); account != "" {
		l = l.With("account", account)
	}
	return l
}
