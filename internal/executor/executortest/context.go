package executortest

import (
	"bytes"
	"context"

	"github.com/rs/zerolog"

	"github.com/jbweber/virtbuilder/internal/executor"
)

// Context returns a context carrying the dry-run flag and a debug-level
// zerolog logger writing JSON lines into the returned buffer.
func Context(dryRun bool) (context.Context, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	ctx := logger.WithContext(context.Background())
	return executor.WithDryRun(ctx, dryRun), &buf
}

// New returns an Executor wired to a fresh fake runner.
func New() (*executor.Executor, *Runner) {
	r := NewRunner()
	return executor.NewWithRunner(r), r
}
