package vm

import (
	"context"
	"fmt"

	"github.com/jbweber/virtbuilder/internal/cloudinit"
	"github.com/jbweber/virtbuilder/internal/config"
	"github.com/jbweber/virtbuilder/internal/ignition"
	"github.com/jbweber/virtbuilder/internal/naming"
	"github.com/jbweber/virtbuilder/internal/virtinstall"
)

// MediaFilePermissions are the permissions of generated provisioning media.
const MediaFilePermissions = 0o644

// MediaPaths returns where the provisioning media for cfg live in the
// ramdisk. Fields are empty for media the VM does not use.
func MediaPaths(cfg *config.VMConfig) virtinstall.Media {
	var media virtinstall.Media
	if cfg.Provisioning == nil {
		return media
	}

	switch cfg.VM.Type {
	case config.VMTypeLinux, config.VMTypeGeneric:
		if cfg.Provisioning.CloudInit != nil {
			media.SeedISO = naming.SeedISOPath(cfg.Ramdisk.Path, cfg.VM.Name)
		}
	case config.VMTypeFlatcar:
		if cfg.Provisioning.Butane != "" {
			media.Ignition = naming.IgnitionPath(cfg.Ramdisk.Path, cfg.VM.Name)
		}
	case config.VMTypeWindows:
	}

	return media
}

// mediaFiles lists the media paths that are set.
func mediaFiles(media virtinstall.Media) []string {
	var paths []string
	for _, p := range []string{media.SeedISO, media.Ignition} {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// writeMedia generates the provisioning media and writes them through exec.
// Generation runs in dry-run too, so bad input fails the same way.
func writeMedia(ctx context.Context, exec commandExecutor, cfg *config.VMConfig, media virtinstall.Media) error {
	if media.SeedISO != "" {
		iso, err := cloudinit.GenerateISO(cfg)
		if err != nil {
			return fmt.Errorf("failed to generate cloud-init seed: %w", err)
		}
		if err := exec.WriteFile(ctx, media.SeedISO, iso, MediaFilePermissions); err != nil {
			return fmt.Errorf("failed to write cloud-init seed: %w", err)
		}
	}

	if media.Ignition != "" {
		ign, err := ignition.TranslateFile(ctx, cfg.Provisioning.Butane)
		if err != nil {
			return fmt.Errorf("failed to generate ignition config: %w", err)
		}
		if err := exec.WriteFile(ctx, media.Ignition, ign, MediaFilePermissions); err != nil {
			return fmt.Errorf("failed to write ignition config: %w", err)
		}
	}

	return nil
}
