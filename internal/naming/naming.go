// Package naming provides the naming conventions for everything virtbuilder
// derives from a VM configuration: the persisted definition file, the
// provisioning media in the ramdisk, the domain UUID and the shared ipvtap
// link.
package naming

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// IPVTapLink is the host link shared by every ipvtap-attached guest.
const IPVTapLink = "ipvtap0"

// domainNamespace scopes DomainUUID so the same VM name always maps to the
// same UUID on every host.
var domainNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/jbweber/virtbuilder/domain"))

// DefinitionPath returns where the generated domain XML is persisted: next to
// the configuration file, with the extension replaced by .xml.
//
// Example: /etc/vms/win11.yaml → /etc/vms/win11.xml
func DefinitionPath(configPath string) string {
	dir := filepath.Dir(configPath)
	base := filepath.Base(configPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, base+".xml")
}

// DomainUUID returns a deterministic UUID for a domain name.
func DomainUUID(vmName string) string {
	return uuid.NewSHA1(domainNamespace, []byte(vmName)).String()
}

// SeedISOPath returns the cloud-init seed ISO location for a VM.
// Format: {ramdisk}/{vmName}-seed.iso
func SeedISOPath(ramdiskPath, vmName string) string {
	return filepath.Join(ramdiskPath, fmt.Sprintf("%s-seed.iso", vmName))
}

// IgnitionPath returns the Ignition config location for a VM.
// Format: {ramdisk}/{vmName}.ign
func IgnitionPath(ramdiskPath, vmName string) string {
	return filepath.Join(ramdiskPath, fmt.Sprintf("%s.ign", vmName))
}
