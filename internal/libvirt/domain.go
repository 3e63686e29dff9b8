package libvirt

import (
	"fmt"

	"libvirt.org/go/libvirtxml"
)

// DomainSummary is the subset of a domain definition shown to users.
type DomainSummary struct {
	Name       string        `json:"name" yaml:"name"`
	UUID       string        `json:"uuid,omitempty" yaml:"uuid,omitempty"`
	VCPUs      uint          `json:"vcpus" yaml:"vcpus"`
	MemoryMiB  uint          `json:"memoryMiB" yaml:"memoryMiB"`
	Firmware   string        `json:"firmware,omitempty" yaml:"firmware,omitempty"`
	Disks      []DiskSummary `json:"disks,omitempty" yaml:"disks,omitempty"`
	Interfaces []NICSummary  `json:"interfaces,omitempty" yaml:"interfaces,omitempty"`
}

// DiskSummary describes one disk device.
type DiskSummary struct {
	Device    string `json:"device" yaml:"device"`
	Source    string `json:"source,omitempty" yaml:"source,omitempty"`
	Target    string `json:"target,omitempty" yaml:"target,omitempty"`
	Bus       string `json:"bus,omitempty" yaml:"bus,omitempty"`
	Removable bool   `json:"removable,omitempty" yaml:"removable,omitempty"`
	ReadOnly  bool   `json:"readonly,omitempty" yaml:"readonly,omitempty"`
}

// NICSummary describes one network interface.
type NICSummary struct {
	MAC    string `json:"mac,omitempty" yaml:"mac,omitempty"`
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
	Model  string `json:"model,omitempty" yaml:"model,omitempty"`
}

// Summarize parses domain XML into a DomainSummary.
func Summarize(xml string) (*DomainSummary, error) {
	var domain libvirtxml.Domain
	if err := domain.Unmarshal(xml); err != nil {
		return nil, fmt.Errorf("failed to parse domain XML: %w", err)
	}

	s := &DomainSummary{
		Name: domain.Name,
		UUID: domain.UUID,
	}
	if domain.VCPU != nil {
		s.VCPUs = domain.VCPU.Value
	}
	if domain.Memory != nil {
		s.MemoryMiB = toMiB(domain.Memory.Value, domain.Memory.Unit)
	}
	if domain.OS != nil {
		s.Firmware = domain.OS.Firmware
		if s.Firmware == "" && domain.OS.Loader != nil {
			s.Firmware = "efi"
		}
	}

	if domain.Devices == nil {
		return s, nil
	}

	for i := range domain.Devices.Disks {
		disk := &domain.Devices.Disks[i]
		ds := DiskSummary{
			Device:   disk.Device,
			Source:   diskSourcePath(disk),
			ReadOnly: disk.ReadOnly != nil,
		}
		if disk.Target != nil {
			ds.Target = disk.Target.Dev
			ds.Bus = disk.Target.Bus
			ds.Removable = disk.Target.Removable == "on"
		}
		s.Disks = append(s.Disks, ds)
	}

	for _, iface := range domain.Devices.Interfaces {
		nic := NICSummary{Source: interfaceSource(iface.Source)}
		if iface.MAC != nil {
			nic.MAC = iface.MAC.Address
		}
		if iface.Model != nil {
			nic.Model = iface.Model.Type
		}
		s.Interfaces = append(s.Interfaces, nic)
	}

	return s, nil
}

func interfaceSource(src *libvirtxml.DomainInterfaceSource) string {
	if src == nil {
		return ""
	}
	switch {
	case src.Network != nil:
		return "network=" + src.Network.Network
	case src.Bridge != nil:
		return "bridge=" + src.Bridge.Bridge
	case src.Direct != nil:
		return "direct=" + src.Direct.Dev
	default:
		return ""
	}
}

// toMiB converts a libvirt memory value to MiB. libvirt defaults to KiB.
func toMiB(value uint, unit string) uint {
	switch unit {
	case "b", "bytes":
		return value / (1024 * 1024)
	case "", "k", "KiB":
		return value / 1024
	case "M", "MiB":
		return value
	case "G", "GiB":
		return value * 1024
	default:
		return value / 1024
	}
}
