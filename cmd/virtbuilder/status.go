package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jbweber/virtbuilder/internal/config"

	"github.com/jbweber/virtbuilder/internal/libvirt"
	"github.com/jbweber/virtbuilder/internal/output"
	"github.com/jbweber/virtbuilder/internal/vm"
)

var statusCmd = &cobra.Command{
	Use:   "status <config.yaml>",
	Short: "Show the libvirt state of a VM",
	Long: `Query the libvirt daemon for the state of the VM named in a configuration
file. A VM that is not defined is reported as Absent.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := output.ValidateFormat(outputFormat); err != nil {
			return err
		}

		cfg, err := loadConfig(args[0])
		if err != nil {
			return err
		}

		socket, err := rpcSocket(cmd.Context(), settings)
		if err != nil {
			return err
		}

		st, err := vm.Status(cmd.Context(), socket, libvirt.DefaultTimeout, cfg.VM.Name)
		if err != nil {
			return fmt.Errorf("failed to get status of VM %s: %w", cfg.VM.Name, err)
		}

		formatter, err := output.NewFormatter(output.Options{
			Format:    output.Format(outputFormat),
			NoHeaders: noHeaders,
		})
		if err != nil {
			return err
		}

		result, err := formatter.FormatStatus(st)
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}

		fmt.Print(result)
		return nil
	},
}

var testConnCmd = &cobra.Command{
	Use:   "test-conn",
	Short: "Test libvirt connection",
	Long:  `Test connectivity to the libvirt daemon and display version information.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		socket, err := rpcSocket(cmd.Context(), settings)
		if err != nil {
			return err
		}

		fmt.Println("Testing libvirt connection...")

		client, err := libvirt.ConnectWithContext(cmd.Context(), socket, libvirt.DefaultTimeout)
		if err != nil {
			return fmt.Errorf("failed to connect to libvirt: %w", err)
		}
		defer func() {
			if closeErr := client.Close(); closeErr != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close libvirt connection: %v\n", closeErr)
			}
		}()

		fmt.Println("✓ Connected to libvirt daemon")

		if err := client.Ping(); err != nil {
			return fmt.Errorf("connection test failed: %w", err)
		}

		version, err := client.Version()
		if err != nil {
			return fmt.Errorf("failed to get libvirt version: %w", err)
		}
		fmt.Printf("✓ Libvirt version: %s\n", version)

		hostname, err := client.Libvirt().ConnectGetHostname()
		if err != nil {
			return fmt.Errorf("failed to get hostname: %w", err)
		}
		fmt.Printf("✓ Hypervisor hostname: %s\n", hostname)

		uri, err := client.Libvirt().ConnectGetUri()
		if err != nil {
			return fmt.Errorf("failed to get connection URI: %w", err)
		}
		fmt.Printf("✓ Connection URI: %s\n", uri)

		fmt.Println("\nConnection test successful!")
		return nil
	},
}

// rpcSocket picks the daemon socket for read-only queries from the same
// connection URI virsh uses, so status never reads a different daemon.
func rpcSocket(ctx context.Context, s *config.Settings) (string, error) {
	socket, err := libvirt.SocketForURI(s.Connect, s.Socket)
	if err != nil {
		zerolog.Ctx(ctx).Error().Str("connect", s.Connect).
			Msg("status and test-conn only support local qemu URIs (qemu:///system, qemu:///session)")
		return "", fmt.Errorf("cannot query %s: %w", s.Connect, err)
	}
	zerolog.Ctx(ctx).Debug().Str("connect", s.Connect).Str("socket", socket).Msg("resolved libvirt socket")
	return socket, nil
}
