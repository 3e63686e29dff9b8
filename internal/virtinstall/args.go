package virtinstall

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jbweber/virtbuilder/internal/config"
	"github.com/jbweber/virtbuilder/internal/naming"
)

// Disk options applied to every declared disk.
const diskTuning = "cache=writethrough,driver.discard=unmap,driver.io=threads,sparse=yes"

// Media are the generated provisioning artifacts attached to the guest.
type Media struct {
	SeedISO  string `json:"seedISO,omitempty" yaml:"seedISO,omitempty"`   // cloud-init NoCloud ISO, linux and generic VMs
	Ignition string `json:"ignition,omitempty" yaml:"ignition,omitempty"` // Ignition config, flatcar VMs
}

// Args translates a VM configuration into the virt-install argument vector
// that prints the domain definition. On error no arguments are returned.
func Args(connectURI string, vm config.VMSpec, disks []config.DiskSpec, network config.NetworkSpec, media Media) ([]string, error) {
	args := []string{
		"virt-install",
		"--connect=" + connectURI,
		"--print-xml",
		"--import",
		"--noautoconsole",
		"--hvm",
		"--cpu", "host",
		"--features", "kvm_hidden=on",
		"--os-variant=" + vm.OSVariant,
		"--name=" + vm.Name,
		"--uuid=" + naming.DomainUUID(vm.Name),
		"--vcpus=" + strconv.Itoa(vm.VCPUs),
		"--memory=" + strconv.Itoa(vm.Memory),
	}

	sections := []func() ([]string, error){
		func() ([]string, error) { return firmwareArgs(vm.Firmware, vm.SecureBoot) },
		func() ([]string, error) { return graphicsArgs(vm.Graphics) },
		func() ([]string, error) { return usbArgs(vm.USB) },
		func() ([]string, error) { return diskArgs(disks) },
		func() ([]string, error) { return networkArgs(network) },
		func() ([]string, error) { return vmTypeArgs(vm.Type, media) },
	}
	for _, section := range sections {
		extra, err := section()
		if err != nil {
			return nil, err
		}
		args = append(args, extra...)
	}

	return args, nil
}

func firmwareArgs(fw config.Firmware, secureBoot bool) ([]string, error) {
	switch fw {
	case config.FirmwareLegacy:
		return []string{"--boot", "uefi=off"}, nil
	case config.FirmwareEFI:
		if secureBoot {
			return []string{"--boot", "uefi," +
				"firmware.feature0.name=secure-boot,firmware.feature0.enabled=yes," +
				"firmware.feature1.name=enrolled-keys,firmware.feature1.enabled=yes"}, nil
		}
		return []string{"--boot", "uefi,firmware.feature0.name=secure-boot,firmware.feature0.enabled=no"}, nil
	default:
		return nil, unsupported("vm.firmware", string(fw))
	}
}

func graphicsArgs(g config.Graphics) ([]string, error) {
	switch g {
	case config.Graphics3D:
		return []string{"--graphics", "spice,gl.enable=yes,listen=none", "--video", "virtio,accel3d=yes"}, nil
	case config.GraphicsSpice:
		return []string{"--graphics", "spice"}, nil
	case config.GraphicsVNC:
		return []string{"--graphics", "vnc"}, nil
	case config.GraphicsHeadless:
		return []string{"--graphics", "none"}, nil
	default:
		return nil, unsupported("vm.graphics", string(g))
	}
}

func usbArgs(v config.USBVersion) ([]string, error) {
	switch v {
	case "":
		return nil, nil
	case config.USB2:
		return []string{"--controller", "usb2"}, nil
	case config.USB3:
		return []string{"--controller", "usb3"}, nil
	default:
		return nil, unsupported("vm.usb", string(v))
	}
}

// diskArgs emits one --disk per disk, a single virtio-scsi controller when
// any disk sits on the scsi bus, and disables virt-install's free space
// check since images are sparse.
func diskArgs(disks []config.DiskSpec) ([]string, error) {
	var args []string
	needSCSI := false

	for _, d := range disks {
		switch d.Bus {
		case config.BusSCSI:
			needSCSI = true
		case config.BusVirtio, config.BusSATA, config.BusIDE, config.BusUSB:
		default:
			return nil, unsupported("disks.bus", string(d.Bus))
		}
		args = append(args, "--disk="+diskOption(d))
	}

	if needSCSI {
		args = append(args, "--controller", "type=scsi,model=virtio-scsi")
	}
	args = append(args, "--check", "disk_size=off")

	return args, nil
}

func diskOption(d config.DiskSpec) string {
	parts := []string{
		"path=" + d.URI,
		"format=" + d.Format,
		"bus=" + string(d.Bus),
		diskTuning,
	}
	if d.ReadOnly {
		parts = append(parts, "readonly=on")
	}
	return strings.Join(parts, ",")
}

func networkArgs(n config.NetworkSpec) ([]string, error) {
	var source string
	switch n.Type {
	case config.NetworkNAT:
		source = "network=default"
	case config.NetworkIsolated:
		source = "network=isolated"
	case config.NetworkBridge:
		source = "bridge=" + n.ParentInterface
	case config.NetworkMacvtap, config.NetworkIPvtap:
		source = "type=direct,source=" + n.ParentInterface + ",source.mode=bridge"
	default:
		return nil, unsupported("network.type", string(n.Type))
	}

	return []string{"--network", fmt.Sprintf("%s,mac=%s,model=%s", source, n.MAC, n.Model)}, nil
}

func vmTypeArgs(t config.VMType, media Media) ([]string, error) {
	switch t {
	case config.VMTypeWindows:
		return []string{"--tpm", "backend.type=emulator,backend.version=2.0,model=tpm-crb"}, nil
	case config.VMTypeLinux, config.VMTypeGeneric:
		if media.SeedISO == "" {
			return nil, nil
		}
		return []string{"--disk=path=" + media.SeedISO + ",device=cdrom,readonly=on"}, nil
	case config.VMTypeFlatcar:
		if media.Ignition == "" {
			return nil, nil
		}
		return []string{"--sysinfo", "type=fwcfg,entry0.name=opt/org.flatcar-linux/config,entry0.file=" + media.Ignition}, nil
	default:
		return nil, unsupported("vm.type", string(t))
	}
}

func unsupported(field, value string) error {
	return &config.Error{Field: field, Value: value, Reason: "is not supported"}
}
