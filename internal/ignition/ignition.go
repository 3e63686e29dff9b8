// Package ignition translates Butane configs into the Ignition JSON that
// Flatcar reads from QEMU fw_cfg on first boot.
package ignition

import (
	"context"
	"errors"
	"fmt"
	"os"

	butaneconfig "github.com/coreos/butane/config"
	butanecommon "github.com/coreos/butane/config/common"
	"github.com/rs/zerolog"
)

// ErrTranslate is returned when a Butane config cannot be translated.
var ErrTranslate = errors.New("failed to translate butane config")

// Translate converts Butane YAML into Ignition JSON. Non-fatal translation
// warnings are logged.
func Translate(ctx context.Context, butane []byte) ([]byte, error) {
	out, rpt, err := butaneconfig.TranslateBytes(butane, butanecommon.TranslateBytesOptions{Raw: true})
	if err != nil {
		return nil, errors.Join(ErrTranslate, err)
	}

	if len(rpt.Entries) > 0 {
		zerolog.Ctx(ctx).Warn().Str("report", rpt.String()).Msg("butane translation warnings")
	}

	return out, nil
}

// TranslateFile reads and translates a Butane file.
func TranslateFile(ctx context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read butane config: %w", err)
	}

	out, err := Translate(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return out, nil
}
