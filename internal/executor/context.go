package executor

import "context"

type dryRunKey struct{}

// WithDryRun returns a context carrying the simulation flag. It is set once
// at startup and read by every Execute call.
func WithDryRun(ctx context.Context, dryRun bool) context.Context {
	return context.WithValue(ctx, dryRunKey{}, dryRun)
}

// IsDryRun reports whether the context carries an active simulation flag.
func IsDryRun(ctx context.Context) bool {
	v, _ := ctx.Value(dryRunKey{}).(bool)
	return v
}
