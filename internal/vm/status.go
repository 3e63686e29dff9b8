package vm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/digitalocean/go-libvirt"
	"github.com/rs/zerolog"

	vblibvirt "github.com/jbweber/virtbuilder/internal/libvirt"
	"github.com/jbweber/virtbuilder/internal/metadata"
	"github.com/jbweber/virtbuilder/internal/status"
)

// DomainStatus is the libvirt view of one domain.
type DomainStatus struct {
	Name       string                   `json:"name" yaml:"name"`
	Phase      status.Phase             `json:"phase" yaml:"phase"`
	Running    bool                     `json:"running" yaml:"running"`
	Autostart  bool                     `json:"autostart" yaml:"autostart"`
	VCPUs      uint16                   `json:"vcpus,omitempty" yaml:"vcpus,omitempty"`
	MemoryMiB  uint64                   `json:"memoryMiB,omitempty" yaml:"memoryMiB,omitempty"`
	Definition *vblibvirt.DomainSummary `json:"definition,omitempty" yaml:"definition,omitempty"`
	Build      *metadata.BuildInfo      `json:"build,omitempty" yaml:"build,omitempty"`
}

// Status queries the domain named name over libvirt RPC. A domain that does
// not exist is reported with PhaseAbsent, not as an error.
func Status(ctx context.Context, socket string, timeout time.Duration, name string) (*DomainStatus, error) {
	logger := zerolog.Ctx(ctx)

	client, err := vblibvirt.ConnectWithContext(ctx, socket, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to libvirt: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close libvirt connection")
		}
	}()

	return statusWithDeps(ctx, client.Libvirt(), name)
}

// statusWithDeps reads domain state with injected dependencies.
func statusWithDeps(ctx context.Context, lv domainReader, name string) (*DomainStatus, error) {
	logger := zerolog.Ctx(ctx).With().Str("vm", name).Logger()

	dom, err := lv.DomainLookupByName(name)
	if err != nil {
		if libvirt.IsNotFound(err) {
			return &DomainStatus{Name: name, Phase: status.PhaseAbsent}, nil
		}
		return nil, fmt.Errorf("failed to look up domain %s: %w", name, err)
	}

	state, _, err := lv.DomainGetState(dom, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to get domain state: %w", err)
	}

	phase := status.FromDomainState(state)
	st := &DomainStatus{
		Name:    name,
		Phase:   phase,
		Running: status.IsRunning(phase),
	}

	_, _, memory, nrVirtCPU, _, err := lv.DomainGetInfo(dom)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to get domain info")
	} else {
		st.VCPUs = nrVirtCPU
		st.MemoryMiB = memory / 1024
	}

	autostart, err := lv.DomainGetAutostart(dom)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to get autostart")
	}
	st.Autostart = autostart != 0

	build, err := metadata.Load(lv, dom)
	switch {
	case errors.Is(err, metadata.ErrNotFound):
		logger.Debug().Msg("domain was not built by virtbuilder")
	case err != nil:
		logger.Warn().Err(err).Msg("failed to read build metadata")
	default:
		st.Build = build
	}

	xml, err := lv.DomainGetXMLDesc(dom, 0)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to get domain XML")
		return st, nil
	}

	summary, err := vblibvirt.Summarize(xml)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to parse domain XML")
		return st, nil
	}
	st.Definition = summary

	return st, nil
}
