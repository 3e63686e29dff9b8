// Package cloudinit provides cloud-init configuration generation for VM provisioning.
//
// This package generates cloud-init configuration files (user-data, meta-data, network-config)
// following the official cloud-init NoCloud datasource specification.
//
// See https://cloudinit.readthedocs.io/en/latest/reference/datasources/nocloud.html
package cloudinit

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jbweber/virtbuilder/internal/config"
)

// UserData represents the cloud-config user-data structure.
// This is marshaled to YAML and prefixed with "#cloud-config" header.
//
// See https://cloudinit.readthedocs.io/en/latest/explanation/format.html#cloud-config-data
type UserData struct {
	Hostname          string    `yaml:"hostname"`
	FQDN              string    `yaml:"fqdn"`
	SSHAuthorizedKeys []string  `yaml:"ssh_authorized_keys,omitempty"`
	Chpasswd          *Chpasswd `yaml:"chpasswd,omitempty"`
	SSHPasswordAuth   bool      `yaml:"ssh_pwauth"`
	Output            *Output   `yaml:"output,omitempty"`
}

// Chpasswd configures user password settings.
type Chpasswd struct {
	Expire bool   `yaml:"expire"` // Whether to expire passwords on first login
	List   string `yaml:"list"`   // Format: "username:hash"
}

// Output configures cloud-init output logging.
type Output struct {
	All string `yaml:"all"`
}

// MetaData represents the cloud-init meta-data structure.
//
// See https://cloudinit.readthedocs.io/en/latest/reference/datasources/nocloud.html
type MetaData struct {
	InstanceID    string `yaml:"instance-id"`
	LocalHostname string `yaml:"local-hostname"`
}

// NetworkConfig represents the netplan v2 network configuration.
//
// See https://cloudinit.readthedocs.io/en/latest/reference/network-config-format-v2.html
type NetworkConfig struct {
	Version   int                       `yaml:"version"`
	Ethernets map[string]EthernetConfig `yaml:"ethernets"`
}

// EthernetConfig represents a single ethernet interface configuration.
// The guest NIC is matched by MAC and configured over DHCP; addressing is
// owned by the libvirt network or the upstream LAN.
type EthernetConfig struct {
	Match   MatchConfig `yaml:"match"`
	SetName string      `yaml:"set-name,omitempty"`
	DHCP4   bool        `yaml:"dhcp4"`
	DHCP6   bool        `yaml:"dhcp6,omitempty"`
}

// MatchConfig matches an interface by MAC address.
type MatchConfig struct {
	MACAddress string `yaml:"macaddress"`
}

// guestInterface is the name the single NIC gets inside the guest.
const guestInterface = "eth0"

var errNilConfig = errors.New("VM configuration cannot be nil")

// cloudInit returns the cloud-init section of the configuration, if any.
func cloudInit(cfg *config.VMConfig) *config.CloudInitConfig {
	if cfg.Provisioning == nil {
		return nil
	}
	return cfg.Provisioning.CloudInit
}

// hostnames returns the short hostname and the FQDN. Without an fqdn both
// are the VM name.
func hostnames(cfg *config.VMConfig) (hostname, fqdn string) {
	if ci := cloudInit(cfg); ci != nil && ci.FQDN != "" {
		return strings.SplitN(ci.FQDN, ".", 2)[0], ci.FQDN
	}
	return cfg.VM.Name, cfg.VM.Name
}

func marshalDoc(name string, v any) (string, error) {
	out, err := yaml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s to YAML: %w", name, err)
	}
	return string(out), nil
}

// GenerateUserData returns the user-data document, including the
// "#cloud-config" header.
func GenerateUserData(cfg *config.VMConfig) (string, error) {
	if cfg == nil {
		return "", errNilConfig
	}

	hostname, fqdn := hostnames(cfg)
	userData := UserData{
		Hostname: hostname,
		FQDN:     fqdn,
		Output:   &Output{All: "| tee -a /var/log/cloud-init-output.log"},
	}

	if ci := cloudInit(cfg); ci != nil {
		userData.SSHAuthorizedKeys = ci.SSHKeys
		if ci.RootPasswordHash != "" {
			userData.Chpasswd = &Chpasswd{List: "root:" + ci.RootPasswordHash}
		}
		if ci.SSHPwAuth != nil {
			userData.SSHPasswordAuth = *ci.SSHPwAuth
		}
	}

	doc, err := marshalDoc("user-data", &userData)
	if err != nil {
		return "", err
	}
	return "#cloud-config\n" + doc, nil
}

// GenerateMetaData returns the meta-data document. The instance-id is the VM
// name; every build starts from fresh disks, so cloud-init always sees a
// first boot.
func GenerateMetaData(cfg *config.VMConfig) (string, error) {
	if cfg == nil {
		return "", errNilConfig
	}

	hostname, _ := hostnames(cfg)
	return marshalDoc("meta-data", &MetaData{
		InstanceID:    cfg.VM.Name,
		LocalHostname: hostname,
	})
}

// GenerateNetworkConfig returns a netplan v2 document that names the NIC
// with the configured MAC eth0 and configures it over DHCP.
//
// See https://cloudinit.readthedocs.io/en/latest/reference/network-config-format-v2.html
func GenerateNetworkConfig(cfg *config.VMConfig) (string, error) {
	if cfg == nil {
		return "", errNilConfig
	}
	if cfg.Network.MAC == "" {
		return "", fmt.Errorf("network MAC address is required")
	}

	return marshalDoc("network-config", &NetworkConfig{
		Version: 2,
		Ethernets: map[string]EthernetConfig{
			guestInterface: {
				Match:   MatchConfig{MACAddress: cfg.Network.MAC},
				SetName: guestInterface,
				DHCP4:   true,
			},
		},
	})
}
