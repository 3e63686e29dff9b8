// Package ramdisk keeps the tmpfs scratch mount that holds VM disks and
// provisioning media in the shape the configuration asks for.
package ramdisk

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jbweber/virtbuilder/internal/config"
	"github.com/jbweber/virtbuilder/internal/executor"
)

var (
	ErrMountTypeMismatch = errors.New("mount is not tmpfs")
	ErrMountSizeMismatch = errors.New("mount size does not match")
)

// CommandExecutor runs external commands.
type CommandExecutor interface {
	Execute(ctx context.Context, argv []string, opts executor.Options) (*executor.Result, error)
}

// Reconciler ensures a tmpfs mount of an exact size exists at a path.
type Reconciler struct {
	exec CommandExecutor
}

// NewReconciler creates a ramdisk reconciler.
func NewReconciler(exec CommandExecutor) *Reconciler {
	return &Reconciler{exec: exec}
}

// Reconcile mounts the ramdisk when the path is not a mount point, and
// verifies type and size when it is. An existing mount is never remounted
// or unmounted; a wrong one is an error.
func (r *Reconciler) Reconcile(ctx context.Context, spec config.RamdiskSpec) error {
	logger := zerolog.Ctx(ctx).With().Str("path", spec.Path).Logger()

	mounted, err := r.isMountPoint(ctx, spec.Path)
	if err != nil {
		return err
	}

	if mounted {
		if err := r.verify(ctx, spec); err != nil {
			return err
		}
		logger.Info().Str("size", spec.Size.String()).Msg("ramdisk already mounted")
		return nil
	}

	if _, err := r.exec.Execute(ctx, []string{"mkdir", "-p", spec.Path}, executor.Options{FailOnNonZero: true}); err != nil {
		return fmt.Errorf("failed to create mount point %s: %w", spec.Path, err)
	}

	argv := []string{"mount", "-t", "tmpfs", "-o", "size=" + spec.Size.String(), "tmpfs", spec.Path}
	if _, err := r.exec.Execute(ctx, argv, executor.Options{FailOnNonZero: true}); err != nil {
		return fmt.Errorf("failed to mount ramdisk at %s: %w", spec.Path, err)
	}

	logger.Info().Str("size", spec.Size.String()).Msg("ramdisk mounted")
	return nil
}

func (r *Reconciler) isMountPoint(ctx context.Context, path string) (bool, error) {
	res, err := r.exec.Execute(ctx, []string{"mountpoint", "-q", path}, executor.Options{
		SuppressStderr: true,
		Simulate:       executor.Real(),
	})
	if err != nil {
		return false, fmt.Errorf("failed to probe mount point %s: %w", path, err)
	}
	return res.Success(), nil
}

func (r *Reconciler) verify(ctx context.Context, spec config.RamdiskSpec) error {
	argv := []string{"findmnt", "--noheadings", "--output", "FSTYPE,OPTIONS", "--mountpoint", spec.Path}
	res, err := r.exec.Execute(ctx, argv, executor.Options{
		CaptureOutput: true,
		FailOnNonZero: true,
		Simulate:      executor.Real(),
	})
	if err != nil {
		return fmt.Errorf("failed to inspect mount %s: %w", spec.Path, err)
	}

	fstype, options := parseFindmnt(res.Stdout)
	if fstype != "tmpfs" {
		return fmt.Errorf("%w: %s is %q", ErrMountTypeMismatch, spec.Path, fstype)
	}

	kib, ok := sizeOption(options)
	if !ok || kib != spec.Size.KiB() {
		return fmt.Errorf("%w: %s has size=%s, want %s", ErrMountSizeMismatch, spec.Path, sizeLabel(kib, ok), spec.Size)
	}

	return nil
}

// parseFindmnt returns fstype and options from findmnt output. With stacked
// mounts the last line is the visible one.
func parseFindmnt(out string) (string, string) {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	fields := strings.Fields(lines[len(lines)-1])
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], ""
	default:
		return fields[0], fields[1]
	}
}

// sizeOption extracts the size= mount option in KiB. findmnt reports tmpfs
// sizes with a k suffix; m, g and plain bytes are accepted as well.
func sizeOption(options string) (uint64, bool) {
	for _, opt := range strings.Split(options, ",") {
		value, found := strings.CutPrefix(opt, "size=")
		if !found {
			continue
		}

		multiplier := uint64(1)
		divisor := uint64(1)
		switch {
		case strings.HasSuffix(value, "k"):
			value = strings.TrimSuffix(value, "k")
		case strings.HasSuffix(value, "m"):
			value = strings.TrimSuffix(value, "m")
			multiplier = 1024
		case strings.HasSuffix(value, "g"):
			value = strings.TrimSuffix(value, "g")
			multiplier = 1024 * 1024
		default:
			divisor = 1024
		}

		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return 0, false
		}
		if n%divisor != 0 {
			return 0, false
		}
		return n / divisor * multiplier, true
	}
	return 0, false
}

func sizeLabel(kib uint64, ok bool) string {
	if !ok {
		return "unknown"
	}
	return strconv.FormatUint(kib, 10) + "k"
}
