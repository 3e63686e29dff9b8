package libvirt

import (
	"errors"
	"fmt"

	"libvirt.org/go/libvirtxml"

	"github.com/jbweber/virtbuilder/internal/config"
)

// ErrNoDefinition is returned when an operation needs a definition and none
// was generated.
var ErrNoDefinition = errors.New("no domain definition")

// Definition is a generated libvirt domain XML document.
type Definition struct {
	XML []byte
}

// Bytes returns the XML document, or nil for a nil definition.
func (d *Definition) Bytes() []byte {
	if d == nil {
		return nil
	}
	return d.XML
}

// String returns the XML text.
func (d *Definition) String() string {
	if d == nil {
		return ""
	}
	return string(d.XML)
}

// Patch marks the disks flagged removable in the definition. A disk is
// matched by its file or block source path; it is only patched when its
// target carries both dev and bus. Unmatched disks are skipped.
//
// When nothing needs patching the input definition is returned as is, so its
// bytes are unchanged.
func Patch(def *Definition, disks []config.DiskSpec) (*Definition, error) {
	if def == nil {
		return nil, ErrNoDefinition
	}

	removable := make(map[string]bool)
	for _, d := range disks {
		if d.Removable {
			removable[d.URI] = true
		}
	}
	if len(removable) == 0 {
		return def, nil
	}

	var domain libvirtxml.Domain
	if err := domain.Unmarshal(string(def.XML)); err != nil {
		return nil, fmt.Errorf("failed to parse domain definition: %w", err)
	}
	if domain.Devices == nil {
		return def, nil
	}

	changed := false
	for i := range domain.Devices.Disks {
		disk := &domain.Devices.Disks[i]
		if !removable[diskSourcePath(disk)] {
			continue
		}
		if disk.Target == nil || disk.Target.Dev == "" || disk.Target.Bus == "" {
			continue
		}
		if disk.Target.Removable == "on" {
			continue
		}
		disk.Target.Removable = "on"
		changed = true
	}

	if !changed {
		return def, nil
	}

	xml, err := domain.Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal domain definition: %w", err)
	}

	return &Definition{XML: []byte(xml)}, nil
}

// diskSourcePath returns the host path backing a disk, or "" for network
// and volume sources.
func diskSourcePath(disk *libvirtxml.DomainDisk) string {
	if disk.Source == nil {
		return ""
	}
	switch {
	case disk.Source.File != nil:
		return disk.Source.File.File
	case disk.Source.Block != nil:
		return disk.Source.Block.Dev
	default:
		return ""
	}
}
