package cloudinit

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/kdomanski/iso9660"

	"github.com/jbweber/virtbuilder/internal/config"
)

// VolumeLabel is the label the NoCloud datasource looks for. It must be
// uppercase.
const VolumeLabel = "CIDATA"

// seedFiles are the NoCloud documents, in the order they are added to the
// image root.
var seedFiles = []struct {
	name     string
	generate func(*config.VMConfig) (string, error)
}{
	{"user-data", GenerateUserData},
	{"meta-data", GenerateMetaData},
	{"network-config", GenerateNetworkConfig},
}

// GenerateISO builds the NoCloud seed image for cfg: user-data, meta-data
// and network-config in the root of a CIDATA volume. The image is returned
// in memory; the caller writes it into the ramdisk.
//
// See https://cloudinit.readthedocs.io/en/latest/reference/datasources/nocloud.html
func GenerateISO(cfg *config.VMConfig) ([]byte, error) {
	if cfg == nil {
		return nil, fmt.Errorf("VM configuration cannot be nil")
	}

	writer, err := iso9660.NewWriter()
	if err != nil {
		return nil, fmt.Errorf("failed to create ISO writer: %w", err)
	}
	// Cleanup removes the writer's staging directory.
	defer func() { _ = writer.Cleanup() }()

	for _, f := range seedFiles {
		content, err := f.generate(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to generate %s: %w", f.name, err)
		}
		if err := writer.AddFile(strings.NewReader(content), f.name); err != nil {
			return nil, fmt.Errorf("failed to add %s: %w", f.name, err)
		}
	}

	var buf bytes.Buffer
	if err := writer.WriteTo(&buf, VolumeLabel); err != nil {
		return nil, fmt.Errorf("failed to write ISO image: %w", err)
	}

	return buf.Bytes(), nil
}
