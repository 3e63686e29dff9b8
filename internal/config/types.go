package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/crypto/ssh"
	"gopkg.in/yaml.v3"
)

// VMConfig is the declarative description of one VM and everything the
// pipeline needs to provision it.
type VMConfig struct {
	VM           VMSpec              `yaml:"vm"`
	Disks        map[string]DiskSpec `yaml:"disks"`
	Ramdisk      RamdiskSpec         `yaml:"ramdisk"`
	Network      NetworkSpec         `yaml:"network"`
	Provisioning *ProvisioningSpec   `yaml:"provisioning,omitempty"`

	// Path is the file the configuration was loaded from. Not in YAML.
	Path string `yaml:"-"`
}

// VMSpec describes the machine itself.
type VMSpec struct {
	Name       string     `yaml:"name"`
	Type       VMType     `yaml:"type,omitempty"` // default: generic
	VCPUs      int        `yaml:"vcpus"`
	Memory     int        `yaml:"memory"` // MiB
	OSVariant  string     `yaml:"os_variant"`
	Firmware   Firmware   `yaml:"firmware"`
	SecureBoot bool       `yaml:"secureboot,omitempty"`
	Graphics   Graphics   `yaml:"graphics"`
	USB        USBVersion `yaml:"usb,omitempty"`
	Viewer     bool       `yaml:"viewer,omitempty"` // attach virt-viewer after start
}

// DiskSpec describes one disk. A disk with ImageFile set is in conversion
// mode, otherwise it is in blank mode.
type DiskSpec struct {
	URI         string `yaml:"uri"`
	Format      string `yaml:"format"`
	Size        GiB    `yaml:"size,omitempty"`
	Bus         Bus    `yaml:"bus,omitempty"` // default: scsi
	ImageFile   string `yaml:"imgfile,omitempty"`
	ImageFormat string `yaml:"imgformat,omitempty"`
	ReadOnly    bool   `yaml:"readonly,omitempty"`
	Removable   bool   `yaml:"removable,omitempty"`
}

// NetworkSpec describes the single guest NIC.
type NetworkSpec struct {
	Type            NetworkType `yaml:"type"`
	MAC             string      `yaml:"mac"`
	ParentInterface string      `yaml:"parent_interface,omitempty"`
	Model           string      `yaml:"model,omitempty"` // default: virtio
}

// RamdiskSpec describes the tmpfs scratch mount.
type RamdiskSpec struct {
	Path string `yaml:"path"`
	Size GiB    `yaml:"size"`
}

// ProvisioningSpec holds first-boot provisioning input.
type ProvisioningSpec struct {
	CloudInit *CloudInitConfig `yaml:"cloud_init,omitempty"` // linux, generic
	Butane    string           `yaml:"butane,omitempty"`     // flatcar; path to a Butane file
}

// CloudInitConfig contains cloud-init configuration.
// Follows cloud-init spec: https://cloudinit.readthedocs.io/
// Note: Hostname is derived from FQDN (everything before the first dot).
type CloudInitConfig struct {
	FQDN             string   `yaml:"fqdn,omitempty"`
	SSHKeys          []string `yaml:"ssh_keys,omitempty"`
	RootPasswordHash string   `yaml:"root_password_hash,omitempty"`
	SSHPwAuth        *bool    `yaml:"ssh_pwauth,omitempty"` // Pointer to distinguish unset vs false
}

// Converted reports whether the disk is materialized from a source image.
func (d DiskSpec) Converted() bool {
	return d.ImageFile != ""
}

// DiskKeys returns the disk keys in sorted order. Keys carry no ordering
// meaning; sorting keeps runs reproducible.
func (c *VMConfig) DiskKeys() []string {
	keys := make([]string, 0, len(c.Disks))
	for k := range c.Disks {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// OrderedDisks returns the disks in DiskKeys order.
func (c *VMConfig) OrderedDisks() []DiskSpec {
	out := make([]DiskSpec, 0, len(c.Disks))
	for _, k := range c.DiskKeys() {
		out = append(out, c.Disks[k])
	}
	return out
}

// Normalize sanitizes user input and fills defaults.
// This is called automatically by LoadFromFile before validation.
func (c *VMConfig) Normalize() {
	c.VM.Name = strings.TrimSpace(c.VM.Name)
	if c.VM.Type == "" {
		c.VM.Type = VMTypeGeneric
	}

	for k, d := range c.Disks {
		if d.Bus == "" {
			d.Bus = BusSCSI
		}
		d.Format = strings.ToLower(strings.TrimSpace(d.Format))
		d.ImageFormat = strings.ToLower(strings.TrimSpace(d.ImageFormat))
		c.Disks[k] = d
	}

	c.Network.MAC = strings.ToLower(strings.TrimSpace(c.Network.MAC))
	if c.Network.Model == "" {
		c.Network.Model = "virtio"
	}

	// Note: interface names are NOT normalized - they must match host config exactly

	if c.Provisioning != nil && c.Provisioning.CloudInit != nil {
		c.Provisioning.CloudInit.FQDN = strings.ToLower(strings.TrimSpace(c.Provisioning.CloudInit.FQDN))
	}
}

// Validate checks the configuration for errors.
// Does not probe hypervisor resources (images, interfaces) - only config structure.
func (c *VMConfig) Validate() error {
	if err := c.VM.Validate(); err != nil {
		return prefixed("vm", err)
	}

	if len(c.Disks) == 0 {
		return missing("disks")
	}
	urisSeen := make(map[string]string)
	for _, key := range c.DiskKeys() {
		disk := c.Disks[key]
		if err := disk.Validate(); err != nil {
			return prefixed("disks."+key, err)
		}
		if other, ok := urisSeen[disk.URI]; ok {
			return invalid("disks."+key+".uri", disk.URI, fmt.Sprintf("duplicates disks.%s.uri", other))
		}
		urisSeen[disk.URI] = key
	}

	if err := c.Ramdisk.Validate(); err != nil {
		return prefixed("ramdisk", err)
	}

	if err := c.Network.Validate(); err != nil {
		return prefixed("network", err)
	}

	if c.Provisioning != nil {
		if err := c.Provisioning.Validate(c.VM.Type); err != nil {
			return prefixed("provisioning", err)
		}
	}

	return nil
}

// namePattern matches libvirt-friendly domain names.
var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Validate checks the VM section.
func (v *VMSpec) Validate() error {
	if v.Name == "" {
		return missing("name")
	}
	if !namePattern.MatchString(v.Name) {
		return invalid("name", v.Name, "must start with an alphanumeric character and contain only alphanumerics, dots, hyphens or underscores")
	}
	if !v.Type.Valid() {
		return invalid("type", string(v.Type), "must be one of "+allowedList(vmTypes))
	}
	if v.VCPUs <= 0 {
		return invalid("vcpus", strconv.Itoa(v.VCPUs), "must be > 0")
	}
	if v.Memory <= 0 {
		return invalid("memory", strconv.Itoa(v.Memory), "must be > 0 (MiB)")
	}
	if v.OSVariant == "" {
		return missing("os_variant")
	}
	if v.Firmware == "" {
		return missing("firmware")
	}
	if !v.Firmware.Valid() {
		return invalid("firmware", string(v.Firmware), "must be one of "+allowedList(firmwares))
	}
	if v.SecureBoot && v.Firmware != FirmwareEFI {
		return invalid("secureboot", "true", "requires firmware efi")
	}
	if v.Graphics == "" {
		return missing("graphics")
	}
	if !v.Graphics.Valid() {
		return invalid("graphics", string(v.Graphics), "must be one of "+allowedList(graphics))
	}
	if v.USB != "" && !v.USB.Valid() {
		return invalid("usb", string(v.USB), "must be one of "+allowedList(usbVersions))
	}
	return nil
}

// Validate checks one disk.
func (d *DiskSpec) Validate() error {
	if d.URI == "" {
		return missing("uri")
	}
	if d.Format == "" {
		return missing("format")
	}
	if !d.Bus.Valid() {
		return invalid("bus", string(d.Bus), "must be one of "+allowedList(buses))
	}
	if d.Converted() {
		if d.ImageFormat == "" {
			return missing("imgformat")
		}
	} else {
		if d.ImageFormat != "" {
			return invalid("imgformat", d.ImageFormat, "requires imgfile")
		}
		if d.Size == 0 {
			return &Error{Field: "size", Reason: "is required for a blank disk"}
		}
	}
	return nil
}

// Validate checks the ramdisk section.
func (r *RamdiskSpec) Validate() error {
	if r.Path == "" {
		return missing("path")
	}
	if !filepath.IsAbs(r.Path) {
		return invalid("path", r.Path, "must be absolute")
	}
	if r.Size == 0 {
		return missing("size")
	}
	return nil
}

// Validate checks the network section.
func (n *NetworkSpec) Validate() error {
	if n.Type == "" {
		return missing("type")
	}
	if !n.Type.Valid() {
		return invalid("type", string(n.Type), "must be one of "+allowedList(networkTypes))
	}
	if n.MAC == "" {
		return missing("mac")
	}
	if _, err := net.ParseMAC(n.MAC); err != nil {
		return invalid("mac", n.MAC, "is not a valid MAC address")
	}
	if n.Type.NeedsParent() && n.ParentInterface == "" {
		return &Error{Field: "parent_interface", Reason: fmt.Sprintf("is required for network type %s", n.Type)}
	}
	return nil
}

// Validate checks provisioning input against the VM type.
func (p *ProvisioningSpec) Validate(vmType VMType) error {
	if p.CloudInit != nil {
		if vmType != VMTypeLinux && vmType != VMTypeGeneric {
			return invalid("cloud_init", string(vmType), "is only supported for linux and generic VMs")
		}
		if err := p.CloudInit.Validate(); err != nil {
			return prefixed("cloud_init", err)
		}
	}
	if p.Butane != "" {
		if vmType != VMTypeFlatcar {
			return invalid("butane", string(vmType), "is only supported for flatcar VMs")
		}
		if _, err := os.Stat(p.Butane); err != nil {
			return invalid("butane", p.Butane, "file not found")
		}
	}
	return nil
}

// fqdnPattern follows RFC 952/1123 with at least one dot.
var fqdnPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?(\.[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?)+$`)

// Validate checks cloud-init configuration.
func (c *CloudInitConfig) Validate() error {
	if c.FQDN != "" && !fqdnPattern.MatchString(c.FQDN) {
		return invalid("fqdn", c.FQDN, "must be a valid hostname with domain (e.g., host.example.com)")
	}

	// ParseAuthorizedKey accepts every standard SSH key type
	for i, key := range c.SSHKeys {
		if _, _, _, _, err := ssh.ParseAuthorizedKey([]byte(key)); err != nil {
			return &Error{Field: fmt.Sprintf("ssh_keys[%d]", i), Reason: "is not a valid SSH public key"}
		}
	}

	if c.RootPasswordHash != "" {
		if len(c.RootPasswordHash) < 10 || c.RootPasswordHash[0] != '$' {
			return &Error{Field: "root_password_hash", Reason: "must be a valid crypt hash (should start with $)"}
		}
	}

	return nil
}

// LoadFromFile loads a VM configuration from a YAML file.
func LoadFromFile(path string) (*VMConfig, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
	default:
		return nil, invalid("config", path, "must be a .yaml or .yml file")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, invalid("config", path, "file not found")
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.Path = path

	return cfg, nil
}

// Parse decodes, normalizes and validates a YAML configuration document.
func Parse(data []byte) (*VMConfig, error) {
	var raw map[string]yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	for _, key := range []string{"vm", "disks", "ramdisk", "network"} {
		if _, ok := raw[key]; !ok {
			return nil, missing(key)
		}
	}

	var cfg VMConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
