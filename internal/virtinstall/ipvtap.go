package virtinstall

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jbweber/virtbuilder/internal/executor"
	"github.com/jbweber/virtbuilder/internal/naming"
)

// ensureIPVTap makes sure the shared ipvtap link exists on top of parent and
// is administratively up. Probe failures count as absent or down.
func (s *Synthesizer) ensureIPVTap(ctx context.Context, parent string) error {
	logger := zerolog.Ctx(ctx).With().Str("link", naming.IPVTapLink).Str("parent", parent).Logger()

	if !s.linkExists(ctx, naming.IPVTapLink) {
		argv := []string{"ip", "link", "add", "name", naming.IPVTapLink, "link", parent, "type", "ipvtap", "mode", "l2", "bridge"}
		if _, err := s.exec.Execute(ctx, argv, executor.Options{FailOnNonZero: true}); err != nil {
			return fmt.Errorf("failed to create %s on %s: %w", naming.IPVTapLink, parent, err)
		}
		logger.Info().Msg("ipvtap link created")
	}

	if s.linkUp(ctx, naming.IPVTapLink) {
		return nil
	}

	argv := []string{"ip", "link", "set", naming.IPVTapLink, "up"}
	if _, err := s.exec.Execute(ctx, argv, executor.Options{FailOnNonZero: true}); err != nil {
		return fmt.Errorf("failed to bring %s up: %w", naming.IPVTapLink, err)
	}
	logger.Info().Msg("ipvtap link up")

	return nil
}

func (s *Synthesizer) linkExists(ctx context.Context, name string) bool {
	res, err := s.exec.Execute(ctx, []string{"ip", "link", "show", name}, executor.Options{
		CaptureOutput:  true,
		SuppressStderr: true,
		Simulate:       executor.Real(),
	})
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Str("link", name).Msg("link probe failed")
		return false
	}
	return res.Success()
}

func (s *Synthesizer) linkUp(ctx context.Context, name string) bool {
	res, err := s.exec.Execute(ctx, []string{"ip", "-o", "link", "show", name}, executor.Options{
		CaptureOutput:  true,
		SuppressStderr: true,
		Simulate:       executor.Real(),
	})
	if err != nil || !res.Success() {
		return false
	}
	return adminUp(res.Stdout)
}

// adminUp reports whether the UP flag is set in ip link output such as
// "7: ipvtap0@eth0: <BROADCAST,MULTICAST,UP,LOWER_UP> mtu 1500 ...".
func adminUp(out string) bool {
	start := strings.Index(out, "<")
	end := strings.Index(out, ">")
	if start < 0 || end < start {
		return false
	}
	for _, flag := range strings.Split(out[start+1:end], ",") {
		if flag == "UP" {
			return true
		}
	}
	return false
}
