// Package disk materializes VM disk images with qemu-img.
//
// A disk is either converted from a source image (and optionally grown) or
// allocated blank. Both paths use preallocation=off so images stay sparse on
// the ramdisk.
package disk

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/jbweber/virtbuilder/internal/config"
	"github.com/jbweber/virtbuilder/internal/executor"
)

// NOTE: Existing targets are neither checked nor removed here. Teardown
// deletes declared disk files before materialization runs.

// ErrSourceImageMissing is returned when a conversion source does not exist.
var ErrSourceImageMissing = errors.New("source image not found")

// CommandExecutor runs external commands.
type CommandExecutor interface {
	Execute(ctx context.Context, argv []string, opts executor.Options) (*executor.Result, error)
}

// Materializer creates disk images.
type Materializer struct {
	exec CommandExecutor
}

// NewMaterializer creates a disk materializer.
func NewMaterializer(exec CommandExecutor) *Materializer {
	return &Materializer{exec: exec}
}

// Materialize creates the image described by spec at spec.URI.
func (m *Materializer) Materialize(ctx context.Context, spec config.DiskSpec) error {
	if spec.Converted() {
		return m.convert(ctx, spec)
	}
	return m.create(ctx, spec)
}

func (m *Materializer) convert(ctx context.Context, spec config.DiskSpec) error {
	logger := zerolog.Ctx(ctx).With().Str("disk", spec.URI).Logger()

	if _, err := os.Stat(spec.ImageFile); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrSourceImageMissing, spec.ImageFile)
		}
		return fmt.Errorf("failed to stat source image %s: %w", spec.ImageFile, err)
	}

	if detected, err := DetectImageFormat(spec.ImageFile); err == nil && detected != spec.ImageFormat {
		logger.Warn().Str("declared", spec.ImageFormat).Str("detected", detected).Msg("source image format differs from imgformat")
	}

	if _, err := m.exec.Execute(ctx, ConvertArgs(spec), executor.Options{FailOnNonZero: true}); err != nil {
		return fmt.Errorf("failed to convert %s to %s: %w", spec.ImageFile, spec.URI, err)
	}

	if spec.Size > 0 {
		// A shrink request or an already-larger image makes qemu-img resize
		// fail; the converted image is still usable.
		if _, err := m.exec.Execute(ctx, ResizeArgs(spec), executor.Options{FailOnNonZero: true}); err != nil {
			logger.Warn().Err(err).Str("size", spec.Size.String()).Msg("resize failed, keeping converted size")
		}
	}

	logger.Info().Str("source", spec.ImageFile).Msg("disk converted")
	return nil
}

func (m *Materializer) create(ctx context.Context, spec config.DiskSpec) error {
	if _, err := m.exec.Execute(ctx, CreateArgs(spec), executor.Options{FailOnNonZero: true}); err != nil {
		return fmt.Errorf("failed to create disk %s: %w", spec.URI, err)
	}

	zerolog.Ctx(ctx).Info().Str("disk", spec.URI).Str("size", spec.Size.String()).Msg("disk created")
	return nil
}

// ConvertArgs returns the qemu-img convert argv for a conversion-mode disk.
func ConvertArgs(spec config.DiskSpec) []string {
	return []string{
		"qemu-img", "convert",
		"-f", spec.ImageFormat,
		"-O", spec.Format,
		"-o", "preallocation=off",
		spec.ImageFile,
		spec.URI,
	}
}

// ResizeArgs returns the qemu-img resize argv that grows a converted disk.
func ResizeArgs(spec config.DiskSpec) []string {
	return []string{
		"qemu-img", "resize",
		"-f", spec.Format,
		"--preallocation=off",
		spec.URI,
		spec.Size.String(),
	}
}

// CreateArgs returns the qemu-img create argv for a blank disk.
func CreateArgs(spec config.DiskSpec) []string {
	return []string{
		"qemu-img", "create",
		"-f", spec.Format,
		"-o", "preallocation=off",
		spec.URI,
		spec.Size.String(),
	}
}
