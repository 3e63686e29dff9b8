package vm

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jbweber/virtbuilder/internal/executor"
)

// Teardown force-stops and undefines a domain. A domain that is not running
// or does not exist is not an error: failures are logged at debug level and
// Teardown returns nil.
func (h *Hypervisor) Teardown(ctx context.Context, name string) error {
	logger := zerolog.Ctx(ctx).With().Str("vm", name).Logger()

	for _, argv := range [][]string{
		destroyArgs(h.connectURI, name),
		undefineArgs(h.connectURI, name),
	} {
		res, err := h.exec.Execute(ctx, argv, executor.Options{SuppressStderr: true})
		switch {
		case err != nil:
			logger.Debug().Err(err).Str("command", executor.CommandLine(argv)).Msg("teardown step failed")
		case res != nil && !res.Success():
			logger.Debug().Int("exit", res.ExitCode).Str("command", executor.CommandLine(argv)).Msg("teardown step failed, domain likely absent")
		}
	}

	logger.Info().Msg("domain torn down")
	return nil
}

// RemoveDisks deletes disk images and provisioning media. rm -f tolerates
// missing files; any other failure is fatal.
func (h *Hypervisor) RemoveDisks(ctx context.Context, paths []string) error {
	for _, path := range paths {
		if _, err := h.exec.Execute(ctx, removeArgs(path), executor.Options{FailOnNonZero: true}); err != nil {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}
	return nil
}
