package config

import (
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// GiB is a size in whole gibibytes. In YAML it is either a bare integer or
// a string with a G, GB, Gi or GiB suffix ("40", 40, "40G").
type GiB uint64

// KiB returns the size in kibibytes.
func (g GiB) KiB() uint64 {
	return uint64(g) * 1024 * 1024
}

// String renders the size the way qemu-img and mount expect it ("40G").
func (g GiB) String() string {
	return strconv.FormatUint(uint64(g), 10) + "G"
}

func (g *GiB) UnmarshalYAML(n *yaml.Node) error {
	v, err := ParseGiB(n.Value)
	if err != nil {
		return err
	}
	*g = v
	return nil
}

func (g GiB) MarshalYAML() (any, error) {
	return uint64(g), nil
}

// ParseGiB parses a whole-gibibyte size.
func ParseGiB(s string) (GiB, error) {
	raw := strings.TrimSpace(s)
	num := raw
	for _, suffix := range []string{"GiB", "GB", "Gi", "G", "g"} {
		if strings.HasSuffix(num, suffix) {
			num = strings.TrimSpace(strings.TrimSuffix(num, suffix))
			break
		}
	}

	v, err := strconv.ParseUint(num, 10, 64)
	if err != nil {
		return 0, invalid("size", raw, "must be a whole number of gibibytes")
	}
	return GiB(v), nil
}
