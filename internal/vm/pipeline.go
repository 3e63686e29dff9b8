package vm

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/jbweber/virtbuilder/internal/config"
	"github.com/jbweber/virtbuilder/internal/disk"
	"github.com/jbweber/virtbuilder/internal/executor"
	vblibvirt "github.com/jbweber/virtbuilder/internal/libvirt"
	"github.com/jbweber/virtbuilder/internal/metadata"
	"github.com/jbweber/virtbuilder/internal/naming"
	"github.com/jbweber/virtbuilder/internal/ramdisk"
	"github.com/jbweber/virtbuilder/internal/virtinstall"
)

// RunOptions control a single pipeline run.
type RunOptions struct {
	// TeardownOnly stops after the VM and its files are removed.
	TeardownOnly bool

	// Viewer attaches virt-viewer after start, in addition to vm.viewer.
	Viewer bool
}

// Pipeline rebuilds one VM from its configuration.
type Pipeline struct {
	exec        commandExecutor
	ramdisk     ramdiskReconciler
	disks       diskMaterializer
	synthesizer definitionSynthesizer
	hypervisor  *Hypervisor
}

// NewPipeline wires the production components around one executor.
func NewPipeline(exec *executor.Executor, connectURI string) *Pipeline {
	return newPipelineWithDeps(
		exec,
		ramdisk.NewReconciler(exec),
		disk.NewMaterializer(exec),
		virtinstall.NewSynthesizer(exec, connectURI),
		connectURI,
	)
}

func newPipelineWithDeps(exec commandExecutor, rd ramdiskReconciler, dm diskMaterializer, syn definitionSynthesizer, connectURI string) *Pipeline {
	return &Pipeline{
		exec:        exec,
		ramdisk:     rd,
		disks:       dm,
		synthesizer: syn,
		hypervisor:  NewHypervisor(exec, connectURI),
	}
}

// Run executes the stages in order and stops at the first failure:
//  1. Reconcile the ramdisk
//  2. Tear down the domain and remove its disks and media
//  3. Materialize every disk
//  4. Write provisioning media
//  5. Synthesize the definition
//  6. Patch removable disks and stamp build metadata
//  7. Persist, define and start the domain
//
// Nothing is rolled back.
func (p *Pipeline) Run(ctx context.Context, cfg *config.VMConfig, opts RunOptions) error {
	name := cfg.VM.Name
	logger := zerolog.Ctx(ctx).With().Str("vm", name).Logger()
	ctx = logger.WithContext(ctx)

	if executor.IsDryRun(ctx) {
		logger.Info().Msg("dry run, no changes will be made")
	}

	if err := p.ramdisk.Reconcile(ctx, cfg.Ramdisk); err != nil {
		return fmt.Errorf("failed to reconcile ramdisk: %w", err)
	}

	if err := p.hypervisor.Teardown(ctx, name); err != nil {
		return fmt.Errorf("failed to tear down %s: %w", name, err)
	}

	disks := cfg.OrderedDisks()
	media := MediaPaths(cfg)

	paths := make([]string, 0, len(disks)+2)
	for _, d := range disks {
		paths = append(paths, d.URI)
	}
	paths = append(paths, mediaFiles(media)...)
	if err := p.hypervisor.RemoveDisks(ctx, paths); err != nil {
		return err
	}

	if opts.TeardownOnly {
		logger.Info().Msg("teardown complete")
		return nil
	}

	for _, key := range cfg.DiskKeys() {
		if err := p.disks.Materialize(ctx, cfg.Disks[key]); err != nil {
			return fmt.Errorf("failed to materialize disk %s: %w", key, err)
		}
	}

	if err := writeMedia(ctx, p.exec, cfg, media); err != nil {
		return err
	}

	def, err := p.synthesizer.Synthesize(ctx, cfg.VM, disks, cfg.Network, media)
	if err != nil {
		return fmt.Errorf("failed to synthesize definition: %w", err)
	}

	if def != nil {
		def, err = vblibvirt.Patch(def, disks)
		if err != nil {
			return fmt.Errorf("failed to patch definition: %w", err)
		}
		def, err = metadata.Stamp(def, buildInfo(cfg, disks, media))
		if err != nil {
			return fmt.Errorf("failed to stamp definition: %w", err)
		}
	}

	viewer := opts.Viewer || cfg.VM.Viewer
	if err := p.hypervisor.Activate(ctx, def, name, naming.DefinitionPath(cfg.Path), viewer); err != nil {
		return err
	}

	logger.Info().Msg("build complete")
	return nil
}

// Teardown runs the pipeline up to and including file removal.
func (p *Pipeline) Teardown(ctx context.Context, cfg *config.VMConfig) error {
	return p.Run(ctx, cfg, RunOptions{TeardownOnly: true})
}

func buildInfo(cfg *config.VMConfig, disks []config.DiskSpec, media virtinstall.Media) *metadata.BuildInfo {
	path := cfg.Path
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	info := &metadata.BuildInfo{
		Config: path,
		Type:   cfg.VM.Type,
		Media:  mediaFiles(media),
	}
	for _, d := range disks {
		info.Disks = append(info.Disks, d.URI)
	}
	return info
}
