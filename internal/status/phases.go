// Package status maps libvirt domain states onto the phases virtbuilder
// reports.
package status

import (
	"github.com/digitalocean/go-libvirt"
)

// Phase is a coarse, user-facing domain state.
type Phase string

const (
	PhaseAbsent    Phase = "Absent"
	PhaseRunning   Phase = "Running"
	PhaseBlocked   Phase = "Blocked"
	PhasePaused    Phase = "Paused"
	PhaseStopping  Phase = "Stopping"
	PhaseStopped   Phase = "Stopped"
	PhaseCrashed   Phase = "Crashed"
	PhaseSuspended Phase = "Suspended"
	PhaseUnknown   Phase = "Unknown"
)

// FromDomainState converts a libvirt VIR_DOMAIN_* state to a Phase.
func FromDomainState(state int32) Phase {
	switch libvirt.DomainState(state) {
	case libvirt.DomainRunning:
		return PhaseRunning
	case libvirt.DomainBlocked:
		return PhaseBlocked
	case libvirt.DomainPaused:
		return PhasePaused
	case libvirt.DomainShutdown:
		return PhaseStopping
	case libvirt.DomainShutoff:
		return PhaseStopped
	case libvirt.DomainCrashed:
		return PhaseCrashed
	case libvirt.DomainPmsuspended:
		return PhaseSuspended
	default:
		return PhaseUnknown
	}
}

// IsTerminal returns true if the phase is terminal (Stopped, Crashed or
// Absent). Terminal phases mean the domain is not running and won't
// transition automatically.
func IsTerminal(phase Phase) bool {
	return phase == PhaseStopped || phase == PhaseCrashed || phase == PhaseAbsent
}

// IsRunning returns true if the domain is executing guest code.
func IsRunning(phase Phase) bool {
	return phase == PhaseRunning || phase == PhaseBlocked
}

// IsTransitioning returns true if the domain is between states.
func IsTransitioning(phase Phase) bool {
	return phase == PhaseStopping
}
