package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbweber/virtbuilder/internal/config"
	"github.com/jbweber/virtbuilder/internal/libvirt"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		format    string
		wantLevel zerolog.Level
		wantErr   bool
	}{
		{name: "console info", level: "info", format: "console", wantLevel: zerolog.InfoLevel},
		{name: "json debug", level: "DEBUG", format: "json", wantLevel: zerolog.DebugLevel},
		{name: "bad level", level: "loud", format: "json", wantErr: true},
		{name: "bad format", level: "info", format: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := newLogger(&buf, tt.level, tt.format)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLevel, logger.GetLevel())
		})
	}
}

func TestNewLogger_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "info", "json")
	require.NoError(t, err)

	logger.Info().Str("vm", "demo").Msg("hello")
	assert.Contains(t, buf.String(), `"vm":"demo"`)
	assert.Contains(t, buf.String(), `"message":"hello"`)
}

func TestRootCommand_Subcommands(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"build", "teardown", "plan", "status", "test-conn"})
}

func TestRPCSocket(t *testing.T) {
	ctx := context.Background()

	t.Run("system uses settings socket", func(t *testing.T) {
		s := &config.Settings{Connect: "qemu:///system", Socket: "/run/libvirt/virtqemud-sock"}
		socket, err := rpcSocket(ctx, s)
		require.NoError(t, err)
		assert.Equal(t, "/run/libvirt/virtqemud-sock", socket)
	})

	t.Run("session follows connect uri", func(t *testing.T) {
		t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
		s := &config.Settings{Connect: "qemu:///session", Socket: config.DefaultSocket}
		socket, err := rpcSocket(ctx, s)
		require.NoError(t, err)
		assert.Equal(t, "/run/user/1000/libvirt/libvirt-sock", socket)
	})

	t.Run("remote uri rejected", func(t *testing.T) {
		var buf bytes.Buffer
		logger := zerolog.New(&buf)
		s := &config.Settings{Connect: "qemu+ssh://host/system", Socket: config.DefaultSocket}

		_, err := rpcSocket(logger.WithContext(ctx), s)
		require.ErrorIs(t, err, libvirt.ErrUnsupportedURI)
		assert.Contains(t, err.Error(), "qemu+ssh://host/system")
		assert.Contains(t, buf.String(), "only support local qemu URIs")
	})
}
