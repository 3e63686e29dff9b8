package vm

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jbweber/virtbuilder/internal/executor"
	vblibvirt "github.com/jbweber/virtbuilder/internal/libvirt"
)

// DefinitionFilePermissions are the permissions of the persisted definition.
const DefinitionFilePermissions = 0o644

// Activate persists the definition to path, defines it, starts the domain
// and, when viewer is set, attaches virt-viewer in the foreground. Every step
// is fatal and nothing is rolled back.
//
// def may be nil only in dry-run mode, where nothing was generated.
func (h *Hypervisor) Activate(ctx context.Context, def *vblibvirt.Definition, name, path string, viewer bool) error {
	logger := zerolog.Ctx(ctx).With().Str("vm", name).Logger()

	if def == nil && !executor.IsDryRun(ctx) {
		return vblibvirt.ErrNoDefinition
	}

	if err := h.exec.WriteFile(ctx, path, def.Bytes(), DefinitionFilePermissions); err != nil {
		return fmt.Errorf("failed to persist definition: %w", err)
	}

	if _, err := h.exec.Execute(ctx, defineArgs(h.connectURI, path), executor.Options{FailOnNonZero: true}); err != nil {
		return fmt.Errorf("failed to define domain %s: %w", name, err)
	}

	if _, err := h.exec.Execute(ctx, startArgs(h.connectURI, name), executor.Options{FailOnNonZero: true}); err != nil {
		return fmt.Errorf("failed to start domain %s: %w", name, err)
	}
	logger.Info().Str("path", path).Msg("domain defined and started")

	if viewer {
		if _, err := h.exec.Execute(ctx, viewerArgs(h.connectURI, name), executor.Options{FailOnNonZero: true}); err != nil {
			return fmt.Errorf("failed to attach viewer to %s: %w", name, err)
		}
	}

	return nil
}
