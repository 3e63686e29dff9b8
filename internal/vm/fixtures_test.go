package vm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jbweber/virtbuilder/internal/config"
)

const connectURI = "qemu:///system"

// testConfig returns a generic VM with one converted and one blank disk,
// cloud-init provisioning and a NAT NIC. The ramdisk, the source image and
// the config path all live under t.TempDir().
func testConfig(t *testing.T) *config.VMConfig {
	t.Helper()
	dir := t.TempDir()
	ramdisk := filepath.Join(dir, "ramdisk")
	require.NoError(t, os.MkdirAll(ramdisk, 0o755))

	source := filepath.Join(dir, "fedora.qcow2")
	qcow2 := append([]byte{0x51, 0x46, 0x49, 0xfb}, make([]byte, 508)...)
	require.NoError(t, os.WriteFile(source, qcow2, 0o644))

	return &config.VMConfig{
		VM: config.VMSpec{
			Name:      "demo",
			Type:      config.VMTypeGeneric,
			VCPUs:     2,
			Memory:    4096,
			OSVariant: "fedora41",
			Firmware:  config.FirmwareEFI,
			Graphics:  config.GraphicsHeadless,
		},
		Disks: map[string]config.DiskSpec{
			"root": {
				URI:         filepath.Join(ramdisk, "demo-root.qcow2"),
				Format:      "qcow2",
				Size:        20,
				Bus:         config.BusVirtio,
				ImageFile:   source,
				ImageFormat: "qcow2",
			},
			"scratch": {
				URI:       filepath.Join(ramdisk, "demo-scratch.qcow2"),
				Format:    "qcow2",
				Size:      10,
				Bus:       config.BusSCSI,
				Removable: true,
			},
		},
		Ramdisk: config.RamdiskSpec{Path: ramdisk, Size: 8},
		Network: config.NetworkSpec{
			Type:  config.NetworkNAT,
			MAC:   "52:54:00:12:34:56",
			Model: "virtio",
		},
		Provisioning: &config.ProvisioningSpec{
			CloudInit: &config.CloudInitConfig{FQDN: "demo.example.com"},
		},
		Path: filepath.Join(dir, "demo.yaml"),
	}
}

// tmpfsFindmnt is findmnt output matching testConfig's 8G ramdisk.
const tmpfsFindmnt = "tmpfs rw,nosuid,nodev,relatime,size=8388608k\n"

// generatedXML returns virt-install output whose scratch disk has a full
// target.
func generatedXML(cfg *config.VMConfig) string {
	return `<domain type="kvm">
  <name>demo</name>
  <devices>
    <disk type="file" device="disk">
      <source file="` + cfg.Disks["root"].URI + `"/>
      <target dev="vda" bus="virtio"/>
    </disk>
    <disk type="file" device="disk">
      <source file="` + cfg.Disks["scratch"].URI + `"/>
      <target dev="sda" bus="scsi"/>
    </disk>
  </devices>
</domain>
`
}
