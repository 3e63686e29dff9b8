package config

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// VMType selects per-guest provisioning behavior.
type VMType string

const (
	VMTypeLinux   VMType = "linux"
	VMTypeWindows VMType = "windows"
	VMTypeFlatcar VMType = "flatcar"
	VMTypeGeneric VMType = "generic"
)

// Firmware selects the boot firmware.
type Firmware string

const (
	FirmwareLegacy Firmware = "legacy"
	FirmwareEFI    Firmware = "efi"
)

// Graphics selects the display device.
type Graphics string

const (
	Graphics3D       Graphics = "3d"
	GraphicsSpice    Graphics = "spice"
	GraphicsVNC      Graphics = "vnc"
	GraphicsHeadless Graphics = "headless"
)

// NetworkType selects how the guest NIC is attached to the host.
type NetworkType string

const (
	NetworkNAT      NetworkType = "nat"
	NetworkIsolated NetworkType = "isolated"
	NetworkBridge   NetworkType = "bridge"
	NetworkMacvtap  NetworkType = "macvtap"
	NetworkIPvtap   NetworkType = "ipvtap"
)

// Bus is the disk bus type.
type Bus string

const (
	BusSCSI   Bus = "scsi"
	BusVirtio Bus = "virtio"
	BusSATA   Bus = "sata"
	BusIDE    Bus = "ide"
	BusUSB    Bus = "usb"
)

// USBVersion is the optional USB controller generation.
type USBVersion string

const (
	USB2 USBVersion = "2"
	USB3 USBVersion = "3"
)

var (
	vmTypes      = []VMType{VMTypeLinux, VMTypeWindows, VMTypeFlatcar, VMTypeGeneric}
	firmwares    = []Firmware{FirmwareLegacy, FirmwareEFI}
	graphics     = []Graphics{Graphics3D, GraphicsSpice, GraphicsVNC, GraphicsHeadless}
	networkTypes = []NetworkType{NetworkNAT, NetworkIsolated, NetworkBridge, NetworkMacvtap, NetworkIPvtap}
	buses        = []Bus{BusSCSI, BusVirtio, BusSATA, BusIDE, BusUSB}
	usbVersions  = []USBVersion{USB2, USB3}
)

// Valid reports whether t is a known VM type.
func (t VMType) Valid() bool { return oneOf(t, vmTypes) }

// Valid reports whether f is a known firmware mode.
func (f Firmware) Valid() bool { return oneOf(f, firmwares) }

// Valid reports whether g is a known graphics mode.
func (g Graphics) Valid() bool { return oneOf(g, graphics) }

// Valid reports whether n is a known network type.
func (n NetworkType) Valid() bool { return oneOf(n, networkTypes) }

// NeedsParent reports whether the network type attaches through a host
// interface.
func (n NetworkType) NeedsParent() bool {
	return n == NetworkBridge || n == NetworkMacvtap || n == NetworkIPvtap
}

// Valid reports whether b is a known bus.
func (b Bus) Valid() bool { return oneOf(b, buses) }

// Valid reports whether v is a known USB controller version.
func (v USBVersion) Valid() bool { return oneOf(v, usbVersions) }

func (t *VMType) UnmarshalYAML(n *yaml.Node) error {
	return decodeEnum(n, "type", t, vmTypes)
}

func (f *Firmware) UnmarshalYAML(n *yaml.Node) error {
	return decodeEnum(n, "firmware", f, firmwares)
}

func (g *Graphics) UnmarshalYAML(n *yaml.Node) error {
	return decodeEnum(n, "graphics", g, graphics)
}

func (t *NetworkType) UnmarshalYAML(n *yaml.Node) error {
	return decodeEnum(n, "type", t, networkTypes)
}

func (b *Bus) UnmarshalYAML(n *yaml.Node) error {
	return decodeEnum(n, "bus", b, buses)
}

func (v *USBVersion) UnmarshalYAML(n *yaml.Node) error {
	return decodeEnum(n, "usb", v, usbVersions)
}

func oneOf[T ~string](v T, allowed []T) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

func allowedList[T ~string](allowed []T) string {
	parts := make([]string, len(allowed))
	for i, a := range allowed {
		parts[i] = string(a)
	}
	return strings.Join(parts, ", ")
}

func decodeEnum[T ~string](n *yaml.Node, field string, out *T, allowed []T) error {
	if n.Kind != yaml.ScalarNode {
		return invalid(field, n.Value, "must be a scalar")
	}
	s := n.Value
	v := T(strings.ToLower(strings.TrimSpace(s)))
	if !oneOf(v, allowed) {
		return invalid(field, s, "must be one of "+allowedList(allowed))
	}
	*out = v
	return nil
}
