package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultSettingsFile is read from the working directory when no
	// --settings flag is given.
	DefaultSettingsFile = "virtbuilder.conf"

	// DefaultConnectURI is the libvirt URI passed to virsh and virt-install.
	DefaultConnectURI = "qemu:///system"

	// DefaultSocket is the libvirt socket used for read-only RPC queries.
	DefaultSocket = "/var/run/libvirt/libvirt-sock"
)

// Settings are process-wide defaults, independent of any one VM.
type Settings struct {
	DryRun  bool   `yaml:"dry_run"`
	Connect string `yaml:"connect,omitempty"`
	Socket  string `yaml:"socket,omitempty"`
}

// DefaultSettings returns the settings used when no file is present.
func DefaultSettings() *Settings {
	return &Settings{
		Connect: DefaultConnectURI,
		Socket:  DefaultSocket,
	}
}

// LoadSettings reads a settings file. A missing file is an error only when
// required is set; otherwise defaults are returned.
func LoadSettings(path string, required bool) (*Settings, error) {
	s := DefaultSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return s, nil
		}
		if os.IsNotExist(err) {
			return nil, invalid("settings", path, "file not found")
		}
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse settings %s: %w", path, err)
	}

	if s.Connect == "" {
		s.Connect = DefaultConnectURI
	}
	if s.Socket == "" {
		s.Socket = DefaultSocket
	}

	return s, nil
}
