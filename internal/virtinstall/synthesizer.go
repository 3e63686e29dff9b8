// Package virtinstall turns a VM configuration into a libvirt domain
// definition by running virt-install in print-only mode.
package virtinstall

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jbweber/virtbuilder/internal/config"
	"github.com/jbweber/virtbuilder/internal/executor"
	"github.com/jbweber/virtbuilder/internal/libvirt"
)

// ErrGenerationFailed is returned when virt-install exits nonzero or writes
// anything to stderr.
var ErrGenerationFailed = errors.New("virt-install failed to generate a definition")

// CommandExecutor runs external commands.
type CommandExecutor interface {
	Execute(ctx context.Context, argv []string, opts executor.Options) (*executor.Result, error)
}

// Synthesizer generates domain definitions.
type Synthesizer struct {
	exec       CommandExecutor
	connectURI string
}

// NewSynthesizer creates a synthesizer targeting the given libvirt URI.
func NewSynthesizer(exec CommandExecutor, connectURI string) *Synthesizer {
	return &Synthesizer{exec: exec, connectURI: connectURI}
}

// Synthesize builds the virt-install invocation, prepares host networking
// it depends on and captures the printed definition.
//
// In dry-run mode nothing is generated and the returned definition is nil.
func (s *Synthesizer) Synthesize(ctx context.Context, vm config.VMSpec, disks []config.DiskSpec, network config.NetworkSpec, media Media) (*libvirt.Definition, error) {
	logger := zerolog.Ctx(ctx).With().Str("vm", vm.Name).Logger()

	argv, err := Args(s.connectURI, vm, disks, network, media)
	if err != nil {
		return nil, fmt.Errorf("failed to build virt-install arguments: %w", err)
	}

	if network.Type == config.NetworkIPvtap {
		if err := s.ensureIPVTap(ctx, network.ParentInterface); err != nil {
			return nil, err
		}
	}

	res, err := s.exec.Execute(ctx, argv, executor.Options{CaptureOutput: true})
	if err != nil {
		return nil, fmt.Errorf("failed to generate definition: %w", err)
	}
	if res == nil {
		logger.Info().Msg("definition not generated in dry-run")
		return nil, nil
	}

	if res.ExitCode != 0 {
		return nil, fmt.Errorf("%w: exit status %d: %s", ErrGenerationFailed, res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	if stderr := strings.TrimSpace(res.Stderr); stderr != "" {
		return nil, fmt.Errorf("%w: %s", ErrGenerationFailed, stderr)
	}
	if strings.TrimSpace(res.Stdout) == "" {
		return nil, fmt.Errorf("%w: empty output", ErrGenerationFailed)
	}

	logger.Info().Int("bytes", len(res.Stdout)).Msg("definition generated")
	logger.Debug().Str("xml", res.Stdout).Msg("generated definition")

	return &libvirt.Definition{XML: []byte(res.Stdout)}, nil
}
