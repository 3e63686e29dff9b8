package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jbweber/virtbuilder/internal/executor"
	"github.com/jbweber/virtbuilder/internal/vm"
)

var (
	teardownOnly bool
	viewer       bool
)

var buildCmd = &cobra.Command{
	Use:   "build <config.yaml>",
	Short: "Rebuild a VM from a configuration file",
	Long: `Rebuild a virtual machine from a YAML configuration file.

This will:
- Ensure the tmpfs ramdisk is mounted with the configured size
- Stop and undefine the VM and delete its disks
- Create or convert every disk
- Generate provisioning media (cloud-init seed or Ignition config)
- Generate the domain definition with virt-install and patch it
- Save the definition next to the config file, define and start the VM`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(args[0])
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		p := vm.NewPipeline(executor.New(), settings.Connect)
		opts := vm.RunOptions{TeardownOnly: teardownOnly, Viewer: viewer}
		if err := p.Run(ctx, cfg, opts); err != nil {
			return fmt.Errorf("failed to build VM %s: %w", cfg.VM.Name, err)
		}

		switch {
		case executor.IsDryRun(ctx):
			fmt.Println("✓ Dry run complete, no changes made")
		case teardownOnly:
			fmt.Printf("✓ VM %s torn down\n", cfg.VM.Name)
		default:
			fmt.Printf("✓ VM %s built and started\n", cfg.VM.Name)
		}
		return nil
	},
}

var teardownCmd = &cobra.Command{
	Use:   "teardown <config.yaml>",
	Short: "Stop and remove a VM and its disks",
	Long: `Stop and undefine a virtual machine and delete its disks and
provisioning media. Equivalent to build --teardown-only.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(args[0])
		if err != nil {
			return err
		}

		p := vm.NewPipeline(executor.New(), settings.Connect)
		if err := p.Teardown(cmd.Context(), cfg); err != nil {
			return fmt.Errorf("failed to tear down VM %s: %w", cfg.VM.Name, err)
		}

		fmt.Printf("✓ VM %s torn down\n", cfg.VM.Name)
		return nil
	},
}

func init() {
	buildCmd.Flags().BoolVar(&teardownOnly, "teardown-only", false, "stop after the VM and its disks are removed")
	buildCmd.Flags().BoolVar(&viewer, "viewer", false, "attach virt-viewer after the VM starts")
}
