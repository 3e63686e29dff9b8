// Package executor runs external commands on behalf of the provisioning
// pipeline.
//
// Every mutating side effect of virtbuilder (disk images, mounts, links,
// domains, generated files) goes through an Executor. When the context
// carries the dry-run flag, commands are logged and not run, which makes this
// package the single enforcement point for simulation.
package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// ErrEmptyCommand is returned when Execute is called without an argv.
var ErrEmptyCommand = errors.New("empty command")

// Options controls how a single command is run.
type Options struct {
	// CaptureOutput captures stdout into Result.Stdout instead of passing
	// it through to the terminal.
	CaptureOutput bool

	// SuppressStderr discards stderr. Takes precedence over capture.
	SuppressStderr bool

	// FailOnNonZero turns a nonzero exit status into a *CommandError.
	FailOnNonZero bool

	// Simulate overrides the dry-run flag carried by the context when set.
	Simulate *bool
}

// Result is the outcome of a command that was actually run.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Success reports whether the command exited with status zero.
func (r *Result) Success() bool {
	return r != nil && r.ExitCode == 0
}

// CommandError is returned for a must-succeed command that exited nonzero.
type CommandError struct {
	Argv     []string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("command %q exited with status %d", CommandLine(e.Argv), e.ExitCode)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

// Runner spawns a process. The default implementation uses os/exec; tests
// substitute a fake that records argv.
type Runner interface {
	Run(ctx context.Context, argv []string, opts Options) (*Result, error)
}

// Executor runs commands, honoring the dry-run flag.
type Executor struct {
	runner Runner
}

// New returns an Executor backed by os/exec.
func New() *Executor {
	return NewWithRunner(execRunner{})
}

// NewWithRunner returns an Executor backed by the given runner.
func NewWithRunner(r Runner) *Executor {
	return &Executor{runner: r}
}

// Execute runs argv, or logs it when simulation is active.
//
// A simulated call returns (nil, nil). A real call returns the Result; when
// opts.FailOnNonZero is set and the exit status is nonzero, the Result is
// returned together with a *CommandError.
func (e *Executor) Execute(ctx context.Context, argv []string, opts Options) (*Result, error) {
	if len(argv) == 0 {
		return nil, ErrEmptyCommand
	}

	logger := zerolog.Ctx(ctx)
	line := CommandLine(argv)

	if simulated(ctx, opts) {
		logger.Info().Str("command", line).Msg("would execute")
		return nil, nil
	}

	logger.Info().Str("command", line).Msg("executing")
	res, err := e.runner.Run(ctx, argv, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to run %s: %w", argv[0], err)
	}

	if opts.FailOnNonZero && res.ExitCode != 0 {
		return res, &CommandError{
			Argv:     append([]string(nil), argv...),
			ExitCode: res.ExitCode,
			Stderr:   res.Stderr,
		}
	}

	return res, nil
}

// WriteFile writes data to path, or logs the write when simulation is
// active.
func (e *Executor) WriteFile(ctx context.Context, path string, data []byte, perm os.FileMode) error {
	logger := zerolog.Ctx(ctx)

	if IsDryRun(ctx) {
		logger.Info().Str("path", path).Int("bytes", len(data)).Msg("would write")
		return nil
	}

	logger.Info().Str("path", path).Int("bytes", len(data)).Msg("writing")
	if err := os.WriteFile(path, data, perm); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// CommandLine joins argv with single spaces, without any shell quoting.
func CommandLine(argv []string) string {
	return strings.Join(argv, " ")
}

// Real forces a command to run even in dry-run mode. Use it only for
// read-only probes.
func Real() *bool {
	f := false
	return &f
}

func simulated(ctx context.Context, opts Options) bool {
	if opts.Simulate != nil {
		return *opts.Simulate
	}
	return IsDryRun(ctx)
}
