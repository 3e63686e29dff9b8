// Package metadata records how a domain was built inside the domain's own
// definition, using libvirt's custom XML metadata feature. A status query can
// then tell which configuration file produced a running VM.
package metadata

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"

	"github.com/digitalocean/go-libvirt"
	"gopkg.in/yaml.v3"
	"libvirt.org/go/libvirtxml"

	"github.com/jbweber/virtbuilder/internal/config"
	vblibvirt "github.com/jbweber/virtbuilder/internal/libvirt"
)

const (
	// Namespace is the XML namespace of the virtbuilder metadata element.
	Namespace = "https://github.com/jbweber/virtbuilder/metadata/v1"

	// Prefix is the namespace prefix used in the definition.
	Prefix = "virtbuilder"
)

// ErrNotFound is returned when a domain carries no virtbuilder metadata.
var ErrNotFound = errors.New("no virtbuilder metadata")

// BuildInfo is stored as YAML text inside the metadata element so it stays
// readable in virsh dumpxml.
type BuildInfo struct {
	Config string        `json:"config" yaml:"config"`
	Type   config.VMType `json:"type" yaml:"type"`
	Disks  []string      `json:"disks,omitempty" yaml:"disks,omitempty"`
	Media  []string      `json:"media,omitempty" yaml:"media,omitempty"`
}

// buildElement is the metadata element as libvirt returns it.
type buildElement struct {
	XMLName xml.Name `xml:"https://github.com/jbweber/virtbuilder/metadata/v1 build"`
	Body    string   `xml:",chardata"`
}

// Stamp returns a copy of def with info stored in the domain's <metadata>.
// Metadata from other applications is kept; an earlier virtbuilder element
// is replaced.
func Stamp(def *vblibvirt.Definition, info *BuildInfo) (*vblibvirt.Definition, error) {
	if def == nil || len(def.XML) == 0 {
		return nil, vblibvirt.ErrNoDefinition
	}

	var domain libvirtxml.Domain
	if err := domain.Unmarshal(def.String()); err != nil {
		return nil, fmt.Errorf("failed to parse domain XML: %w", err)
	}

	element, err := encode(info)
	if err != nil {
		return nil, err
	}

	var existing string
	if domain.Metadata != nil {
		existing = stripBuildElement(domain.Metadata.XML)
	}
	domain.Metadata = &libvirtxml.DomainMetadata{XML: existing + element}

	out, err := domain.Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal domain XML: %w", err)
	}

	return &vblibvirt.Definition{XML: []byte(out + "\n")}, nil
}

func encode(info *BuildInfo) (string, error) {
	body, err := yaml.Marshal(info)
	if err != nil {
		return "", fmt.Errorf("failed to marshal build info to YAML: %w", err)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<%s:build xmlns:%s=%q>", Prefix, Prefix, Namespace)
	if err := xml.EscapeText(&buf, body); err != nil {
		return "", fmt.Errorf("failed to escape build info: %w", err)
	}
	fmt.Fprintf(&buf, "</%s:build>", Prefix)
	return buf.String(), nil
}

// Parse decodes a virtbuilder metadata element.
func Parse(element string) (*BuildInfo, error) {
	var el buildElement
	if err := xml.Unmarshal([]byte(element), &el); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata XML: %w", err)
	}

	var info BuildInfo
	if err := yaml.Unmarshal([]byte(el.Body), &info); err != nil {
		return nil, fmt.Errorf("failed to unmarshal build info from YAML: %w", err)
	}

	return &info, nil
}

// Reader reads domain metadata over libvirt RPC.
//
// In production, this is satisfied by *libvirt.Libvirt directly.
type Reader interface {
	DomainGetMetadata(dom libvirt.Domain, typ int32, uri libvirt.OptString, flags libvirt.DomainModificationImpact) (string, error)
}

// Load retrieves the build info of a defined domain.
func Load(r Reader, dom libvirt.Domain) (*BuildInfo, error) {
	element, err := r.DomainGetMetadata(
		dom,
		int32(libvirt.DomainMetadataElement),
		libvirt.OptString{Namespace},
		libvirt.DomainModificationImpact(0),
	)
	if err != nil {
		var lerr libvirt.Error
		if errors.As(err, &lerr) && lerr.Code == uint32(libvirt.ErrNoDomainMetadata) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get libvirt domain metadata: %w", err)
	}

	return Parse(element)
}

// stripBuildElement removes a previous virtbuilder element from inner
// metadata XML, leaving everything else byte-identical.
func stripBuildElement(inner string) string {
	start := strings.Index(inner, "<"+Prefix+":build")
	if start < 0 {
		return inner
	}
	closing := "</" + Prefix + ":build>"
	end := strings.Index(inner[start:], closing)
	if end < 0 {
		return inner
	}
	return inner[:start] + inner[start+end+len(closing):]
}
