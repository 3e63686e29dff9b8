package executor

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
)

// execRunner spawns real processes. Stdin is always inherited so interactive
// tools (the viewer) keep working in the foreground.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, argv []string, opts Options) (*Result, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = os.Stdin

	var stdout, stderr bytes.Buffer
	if opts.CaptureOutput {
		cmd.Stdout = &stdout
	} else {
		cmd.Stdout = os.Stdout
	}

	switch {
	case opts.SuppressStderr:
		cmd.Stderr = io.Discard
	case opts.CaptureOutput || opts.FailOnNonZero:
		// Keep stderr for the error message while still showing it.
		cmd.Stderr = io.MultiWriter(&stderr, os.Stderr)
	default:
		cmd.Stderr = os.Stderr
	}

	err := cmd.Run()

	res := &Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	if err != nil {
		return nil, err
	}

	return res, nil
}
