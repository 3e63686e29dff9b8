package vm

import (
	"context"
	"os"

	"github.com/digitalocean/go-libvirt"

	"github.com/jbweber/virtbuilder/internal/config"
	"github.com/jbweber/virtbuilder/internal/executor"
	vblibvirt "github.com/jbweber/virtbuilder/internal/libvirt"
	"github.com/jbweber/virtbuilder/internal/virtinstall"
)

// commandExecutor runs commands and writes files, honoring dry-run.
//
// In production, this is satisfied by *executor.Executor.
type commandExecutor interface {
	Execute(ctx context.Context, argv []string, opts executor.Options) (*executor.Result, error)
	WriteFile(ctx context.Context, path string, data []byte, perm os.FileMode) error
}

// ramdiskReconciler ensures the scratch mount exists.
type ramdiskReconciler interface {
	Reconcile(ctx context.Context, spec config.RamdiskSpec) error
}

// diskMaterializer creates one disk image.
type diskMaterializer interface {
	Materialize(ctx context.Context, spec config.DiskSpec) error
}

// definitionSynthesizer generates the domain definition.
type definitionSynthesizer interface {
	Synthesize(ctx context.Context, vm config.VMSpec, disks []config.DiskSpec, network config.NetworkSpec, media virtinstall.Media) (*vblibvirt.Definition, error)
}

// domainReader defines the read-only libvirt operations used for status.
// This wraps operations from *libvirt.Libvirt to allow for testing.
//
// In production, this is satisfied by *libvirt.Libvirt directly.
// In tests, this is satisfied by mock implementations.
type domainReader interface {
	// DomainLookupByName looks up a domain by name
	DomainLookupByName(name string) (libvirt.Domain, error)

	// DomainGetState gets the state of a domain
	DomainGetState(dom libvirt.Domain, flags uint32) (state int32, reason int32, err error)

	// DomainGetInfo gets state, memory and vCPU counts
	DomainGetInfo(dom libvirt.Domain) (state uint8, maxMem uint64, memory uint64, nrVirtCPU uint16, cpuTime uint64, err error)

	// DomainGetAutostart reports whether the domain starts with the host
	DomainGetAutostart(dom libvirt.Domain) (int32, error)

	// DomainGetXMLDesc returns the current domain XML
	DomainGetXMLDesc(dom libvirt.Domain, flags libvirt.DomainXMLFlags) (string, error)

	// DomainGetMetadata reads a custom metadata element
	DomainGetMetadata(dom libvirt.Domain, typ int32, uri libvirt.OptString, flags libvirt.DomainModificationImpact) (string, error)
}
