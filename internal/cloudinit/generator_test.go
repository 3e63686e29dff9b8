package cloudinit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jbweber/virtbuilder/internal/config"
)

const testSSHKeyEd25519 = "ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIIbJKZscbOLzBsgY5y2QupKW4A2kSDjMBQGPb1dChr+S test@example.com"

func minimalConfig() *config.VMConfig {
	return &config.VMConfig{
		VM:      config.VMSpec{Name: "web", Type: config.VMTypeLinux},
		Network: config.NetworkSpec{Type: config.NetworkNAT, MAC: "52:54:00:12:34:56", Model: "virtio"},
	}
}

func fullConfig() *config.VMConfig {
	cfg := minimalConfig()
	cfg.Provisioning = &config.ProvisioningSpec{
		CloudInit: &config.CloudInitConfig{
			FQDN:             "web.example.com",
			SSHKeys:          []string{testSSHKeyEd25519},
			RootPasswordHash: "$6$rounds=4096$salt$hash",
			SSHPwAuth:        ptrBool(true),
		},
	}
	return cfg
}

func parseUserData(t *testing.T, content string) UserData {
	t.Helper()
	require.True(t, strings.HasPrefix(content, "#cloud-config\n"), "user-data must start with '#cloud-config'")

	var ud UserData
	require.NoError(t, yaml.Unmarshal([]byte(strings.TrimPrefix(content, "#cloud-config\n")), &ud))
	return ud
}

func TestGenerateUserData_Minimal(t *testing.T) {
	content, err := GenerateUserData(minimalConfig())
	require.NoError(t, err)

	ud := parseUserData(t, content)
	assert.Equal(t, "web", ud.Hostname)
	assert.Equal(t, "web", ud.FQDN)
	assert.False(t, ud.SSHPasswordAuth)
	assert.Empty(t, ud.SSHAuthorizedKeys)
	assert.Nil(t, ud.Chpasswd)
	require.NotNil(t, ud.Output)
	assert.Equal(t, "| tee -a /var/log/cloud-init-output.log", ud.Output.All)
}

func TestGenerateUserData_Full(t *testing.T) {
	content, err := GenerateUserData(fullConfig())
	require.NoError(t, err)

	ud := parseUserData(t, content)
	assert.Equal(t, "web", ud.Hostname)
	assert.Equal(t, "web.example.com", ud.FQDN)
	assert.Equal(t, []string{testSSHKeyEd25519}, ud.SSHAuthorizedKeys)
	require.NotNil(t, ud.Chpasswd)
	assert.Equal(t, "root:$6$rounds=4096$salt$hash", ud.Chpasswd.List)
	assert.False(t, ud.Chpasswd.Expire)
	assert.True(t, ud.SSHPasswordAuth)
}

func TestGenerateMetaData(t *testing.T) {
	content, err := GenerateMetaData(minimalConfig())
	require.NoError(t, err)

	var md MetaData
	require.NoError(t, yaml.Unmarshal([]byte(content), &md))
	assert.Equal(t, "web", md.InstanceID)
	assert.Equal(t, "web", md.LocalHostname)
}

func TestGenerateNetworkConfig(t *testing.T) {
	content, err := GenerateNetworkConfig(minimalConfig())
	require.NoError(t, err)

	var nc NetworkConfig
	require.NoError(t, yaml.Unmarshal([]byte(content), &nc))
	assert.Equal(t, 2, nc.Version)
	require.Contains(t, nc.Ethernets, "eth0")
	assert.Equal(t, "52:54:00:12:34:56", nc.Ethernets["eth0"].Match.MACAddress)
	assert.True(t, nc.Ethernets["eth0"].DHCP4)
	assert.Equal(t, "eth0", nc.Ethernets["eth0"].SetName)
}

func TestGenerateMetaData_HostnameFromFQDN(t *testing.T) {
	cfg := fullConfig()
	cfg.VM.Name = "web-01"

	content, err := GenerateMetaData(cfg)
	require.NoError(t, err)

	var md MetaData
	require.NoError(t, yaml.Unmarshal([]byte(content), &md))
	assert.Equal(t, "web-01", md.InstanceID)
	assert.Equal(t, "web", md.LocalHostname)
}

func TestGenerate_Errors(t *testing.T) {
	_, err := GenerateUserData(nil)
	assert.Error(t, err)

	_, err = GenerateMetaData(nil)
	assert.Error(t, err)

	_, err = GenerateNetworkConfig(nil)
	assert.Error(t, err)

	cfg := minimalConfig()
	cfg.Network.MAC = ""
	_, err = GenerateNetworkConfig(cfg)
	assert.Error(t, err)
}

func ptrBool(b bool) *bool {
	return &b
}
