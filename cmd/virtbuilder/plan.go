package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jbweber/virtbuilder/internal/output"
	"github.com/jbweber/virtbuilder/internal/vm"
)

var (
	outputFormat string
	noHeaders    bool
)

var planCmd = &cobra.Command{
	Use:   "plan <config.yaml>",
	Short: "Show what a build would do",
	Long: `Resolve a configuration file and print the disks, provisioning media and
the commands a build would run, in order. Nothing is executed.

Output formats:
  -o table  Human-readable summary (default)
  -o yaml   Full plan as YAML
  -o json   Full plan as JSON`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := output.ValidateFormat(outputFormat); err != nil {
			return err
		}

		cfg, err := loadConfig(args[0])
		if err != nil {
			return err
		}

		plan, err := vm.BuildPlan(cfg, settings.Connect, viewer)
		if err != nil {
			return fmt.Errorf("failed to plan VM %s: %w", cfg.VM.Name, err)
		}

		formatter, err := output.NewFormatter(output.Options{
			Format:    output.Format(outputFormat),
			NoHeaders: noHeaders,
		})
		if err != nil {
			return err
		}

		result, err := formatter.FormatPlan(plan)
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}

		fmt.Print(result)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{planCmd, statusCmd} {
		c.Flags().StringVarP(&outputFormat, "output", "o", "table", "output format (table, yaml, json)")
		c.Flags().BoolVar(&noHeaders, "no-headers", false, "omit table headers")
	}
	planCmd.Flags().BoolVar(&viewer, "viewer", false, "include the virt-viewer attach step")
}
