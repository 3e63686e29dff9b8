package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jbweber/virtbuilder/internal/config"
	"github.com/jbweber/virtbuilder/internal/executor"
)

var (
	version = "dev"
	commit  = "unknown"
)

// Global flags
var (
	settingsPath string
	connectURI   string
	dryRun       bool
	logLevel     string
	logFormat    string
)

// settings is loaded once per invocation by the root PersistentPreRunE.
var settings *config.Settings

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "virtbuilder",
	Short: "virtbuilder - rebuild a libvirt VM from YAML",
	Long: `virtbuilder provisions one virtual machine per invocation from a YAML file.

Every build tears the VM down first, recreates its disks in a tmpfs ramdisk,
generates the domain definition with virt-install, and defines and starts it
with virsh.`,
	Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(os.Stderr, logLevel, logFormat)
		if err != nil {
			return err
		}

		s, err := config.LoadSettings(settingsPath, cmd.Flags().Changed("settings"))
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("connect") {
			s.Connect = connectURI
		}
		settings = s

		ctx := logger.WithContext(cmd.Context())
		ctx = executor.WithDryRun(ctx, dryRun || s.DryRun)
		cmd.SetContext(ctx)
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&settingsPath, "settings", config.DefaultSettingsFile, "settings file (required when given explicitly)")
	flags.StringVar(&connectURI, "connect", config.DefaultConnectURI, "libvirt connection URI for virsh and virt-install")
	flags.BoolVar(&dryRun, "dry-run", false, "log commands and file writes instead of performing them")
	flags.StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	flags.StringVar(&logFormat, "log-format", "console", "log format (console, json)")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(teardownCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(testConnCmd)
}

// newLogger builds the process logger. Console output is meant for humans,
// json for log collectors.
func newLogger(w io.Writer, level, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
	}

	switch format {
	case "console":
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	case "json":
	default:
		return zerolog.Nop(), fmt.Errorf("invalid log format: %s (valid formats: console, json)", format)
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

// loadConfig reads and validates a VM configuration file.
func loadConfig(path string) (*config.VMConfig, error) {
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
