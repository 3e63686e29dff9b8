package virtinstall

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbweber/virtbuilder/internal/config"
	"github.com/jbweber/virtbuilder/internal/naming"
)

const connectURI = "qemu:///system"

func windowsVM() config.VMSpec {
	return config.VMSpec{
		Name:       "win11",
		Type:       config.VMTypeWindows,
		VCPUs:      4,
		Memory:     8192,
		OSVariant:  "win11",
		Firmware:   config.FirmwareEFI,
		SecureBoot: true,
		Graphics:   config.GraphicsSpice,
		USB:        config.USB3,
	}
}

func windowsDisks() []config.DiskSpec {
	return []config.DiskSpec{
		{URI: "/images/virtio-win.iso", Format: "raw", Bus: config.BusSATA, ReadOnly: true, Removable: true},
		{URI: "/mnt/ramdisk/win11.qcow2", Format: "qcow2", Bus: config.BusSCSI, Size: 64},
	}
}

func bridgeNetwork() config.NetworkSpec {
	return config.NetworkSpec{Type: config.NetworkBridge, MAC: "52:54:00:ab:cd:ef", ParentInterface: "br0", Model: "virtio"}
}

func requireConfigError(t *testing.T, err error, field string) {
	t.Helper()
	var cfgErr *config.Error
	require.True(t, errors.As(err, &cfgErr), "expected *config.Error, got %T: %v", err, err)
	assert.Equal(t, field, cfgErr.Field)
}

func count(args []string, token string) int {
	n := 0
	for _, a := range args {
		if a == token {
			n++
		}
	}
	return n
}

func TestArgs_FullInvocation(t *testing.T) {
	args, err := Args(connectURI, windowsVM(), windowsDisks(), bridgeNetwork(), Media{})
	require.NoError(t, err)

	want := []string{
		"virt-install",
		"--connect=qemu:///system",
		"--print-xml",
		"--import",
		"--noautoconsole",
		"--hvm",
		"--cpu", "host",
		"--features", "kvm_hidden=on",
		"--os-variant=win11",
		"--name=win11",
		"--uuid=" + naming.DomainUUID("win11"),
		"--vcpus=4",
		"--memory=8192",
		"--boot", "uefi,firmware.feature0.name=secure-boot,firmware.feature0.enabled=yes,firmware.feature1.name=enrolled-keys,firmware.feature1.enabled=yes",
		"--graphics", "spice",
		"--controller", "usb3",
		"--disk=path=/images/virtio-win.iso,format=raw,bus=sata,cache=writethrough,driver.discard=unmap,driver.io=threads,sparse=yes,readonly=on",
		"--disk=path=/mnt/ramdisk/win11.qcow2,format=qcow2,bus=scsi,cache=writethrough,driver.discard=unmap,driver.io=threads,sparse=yes",
		"--controller", "type=scsi,model=virtio-scsi",
		"--check", "disk_size=off",
		"--network", "bridge=br0,mac=52:54:00:ab:cd:ef,model=virtio",
		"--tpm", "backend.type=emulator,backend.version=2.0,model=tpm-crb",
	}
	assert.Equal(t, want, args)
}

func TestArgs_Firmware(t *testing.T) {
	tests := []struct {
		name       string
		firmware   config.Firmware
		secureBoot bool
		want       string
	}{
		{name: "legacy", firmware: config.FirmwareLegacy, want: "uefi=off"},
		{name: "efi", firmware: config.FirmwareEFI, want: "uefi,firmware.feature0.name=secure-boot,firmware.feature0.enabled=no"},
		{
			name:       "efi secureboot",
			firmware:   config.FirmwareEFI,
			secureBoot: true,
			want:       "uefi,firmware.feature0.name=secure-boot,firmware.feature0.enabled=yes,firmware.feature1.name=enrolled-keys,firmware.feature1.enabled=yes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := firmwareArgs(tt.firmware, tt.secureBoot)
			require.NoError(t, err)
			assert.Equal(t, []string{"--boot", tt.want}, got)
		})
	}
}

func TestArgs_Graphics(t *testing.T) {
	tests := []struct {
		graphics config.Graphics
		want     []string
	}{
		{graphics: config.Graphics3D, want: []string{"--graphics", "spice,gl.enable=yes,listen=none", "--video", "virtio,accel3d=yes"}},
		{graphics: config.GraphicsSpice, want: []string{"--graphics", "spice"}},
		{graphics: config.GraphicsVNC, want: []string{"--graphics", "vnc"}},
		{graphics: config.GraphicsHeadless, want: []string{"--graphics", "none"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.graphics), func(t *testing.T) {
			got, err := graphicsArgs(tt.graphics)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestArgs_USB(t *testing.T) {
	got, err := usbArgs("")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = usbArgs(config.USB2)
	require.NoError(t, err)
	assert.Equal(t, []string{"--controller", "usb2"}, got)
}

func TestArgs_SingleSCSIController(t *testing.T) {
	tests := []struct {
		name  string
		buses []config.Bus
		want  int
	}{
		{name: "no scsi", buses: []config.Bus{config.BusVirtio, config.BusSATA}, want: 0},
		{name: "one scsi", buses: []config.Bus{config.BusSCSI}, want: 1},
		{name: "three scsi and others", buses: []config.Bus{config.BusSCSI, config.BusIDE, config.BusSCSI, config.BusUSB, config.BusSCSI}, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var disks []config.DiskSpec
			for i, bus := range tt.buses {
				disks = append(disks, config.DiskSpec{URI: "/d" + string(rune('a'+i)), Format: "qcow2", Bus: bus})
			}

			args, err := diskArgs(disks)
			require.NoError(t, err)

			assert.Equal(t, tt.want, count(args, "type=scsi,model=virtio-scsi"))
			assert.Equal(t, 1, count(args, "disk_size=off"))

			disksSeen := 0
			for _, a := range args {
				if strings.HasPrefix(a, "--disk=") {
					disksSeen++
				}
			}
			assert.Equal(t, len(tt.buses), disksSeen)
		})
	}
}

func TestArgs_NetworkDispatch(t *testing.T) {
	tests := []struct {
		kind   config.NetworkType
		parent string
		want   string
	}{
		{kind: config.NetworkNAT, want: "network=default,mac=52:54:00:00:00:01,model=virtio"},
		{kind: config.NetworkIsolated, want: "network=isolated,mac=52:54:00:00:00:01,model=virtio"},
		{kind: config.NetworkBridge, parent: "br0", want: "bridge=br0,mac=52:54:00:00:00:01,model=virtio"},
		{kind: config.NetworkMacvtap, parent: "eno1", want: "type=direct,source=eno1,source.mode=bridge,mac=52:54:00:00:00:01,model=virtio"},
		{kind: config.NetworkIPvtap, parent: "eno1", want: "type=direct,source=eno1,source.mode=bridge,mac=52:54:00:00:00:01,model=virtio"},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			n := config.NetworkSpec{Type: tt.kind, MAC: "52:54:00:00:00:01", ParentInterface: tt.parent, Model: "virtio"}
			got, err := networkArgs(n)
			require.NoError(t, err)
			assert.Equal(t, []string{"--network", tt.want}, got)
		})
	}
}

func TestArgs_VMTypeExtras(t *testing.T) {
	media := Media{SeedISO: "/mnt/ramdisk/web-seed.iso", Ignition: "/mnt/ramdisk/core.ign"}

	got, err := vmTypeArgs(config.VMTypeLinux, media)
	require.NoError(t, err)
	assert.Equal(t, []string{"--disk=path=/mnt/ramdisk/web-seed.iso,device=cdrom,readonly=on"}, got)

	got, err = vmTypeArgs(config.VMTypeGeneric, Media{})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = vmTypeArgs(config.VMTypeFlatcar, media)
	require.NoError(t, err)
	assert.Equal(t, []string{"--sysinfo", "type=fwcfg,entry0.name=opt/org.flatcar-linux/config,entry0.file=/mnt/ramdisk/core.ign"}, got)
}

func TestArgs_UnknownValuesProduceNoArgs(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(vm *config.VMSpec, disks []config.DiskSpec, n *config.NetworkSpec)
		field  string
	}{
		{name: "firmware", mutate: func(vm *config.VMSpec, _ []config.DiskSpec, _ *config.NetworkSpec) { vm.Firmware = "coreboot" }, field: "vm.firmware"},
		{name: "graphics", mutate: func(vm *config.VMSpec, _ []config.DiskSpec, _ *config.NetworkSpec) { vm.Graphics = "sdl" }, field: "vm.graphics"},
		{name: "usb", mutate: func(vm *config.VMSpec, _ []config.DiskSpec, _ *config.NetworkSpec) { vm.USB = "4" }, field: "vm.usb"},
		{name: "bus", mutate: func(_ *config.VMSpec, disks []config.DiskSpec, _ *config.NetworkSpec) { disks[1].Bus = "nvme" }, field: "disks.bus"},
		{name: "network", mutate: func(_ *config.VMSpec, _ []config.DiskSpec, n *config.NetworkSpec) { n.Type = "vxlan" }, field: "network.type"},
		{name: "vm type", mutate: func(vm *config.VMSpec, _ []config.DiskSpec, _ *config.NetworkSpec) { vm.Type = "macos" }, field: "vm.type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vm, disks, n := windowsVM(), windowsDisks(), bridgeNetwork()
			tt.mutate(&vm, disks, &n)

			args, err := Args(connectURI, vm, disks, n, Media{})
			assert.Nil(t, args)
			requireConfigError(t, err, tt.field)
		})
	}
}
