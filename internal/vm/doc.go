// Package vm provides the high-level provisioning pipeline.
//
// This package orchestrates the low-level components (ramdisk, disk,
// virtinstall, libvirt, cloudinit, ignition) into one linear run:
//
//	ramdisk → teardown → disks → provisioning media → synthesize → patch → activate
//
// The main operations are:
//   - Pipeline.Run: rebuild a VM from its configuration, or only tear it down
//   - BuildPlan: describe what Run would do without touching the host
//   - Status: report the domain's libvirt state over RPC
//
// Error Handling:
//
// Every stage is fatal except teardown, which tolerates a domain that does
// not exist. There is no rollback: a failed run leaves whatever was created,
// and the next run tears it down first.
//
// Dry Run:
//
// All side effects go through internal/executor, so a context created with
// executor.WithDryRun(ctx, true) makes Run log every command and file write
// instead of performing it. Read-only probes still run.
package vm
