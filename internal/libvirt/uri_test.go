package libvirt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSocketForURI(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")

	tests := []struct {
		name    string
		uri     string
		system  string
		want    string
		wantErr bool
	}{
		{name: "system default", uri: "qemu:///system", want: DefaultSocket},
		{name: "system from settings", uri: "qemu:///system", system: "/run/libvirt/virtqemud-sock", want: "/run/libvirt/virtqemud-sock"},
		{name: "session", uri: "qemu:///session", want: "/run/user/1000/libvirt/libvirt-sock"},
		{name: "unix transport", uri: "qemu+unix:///system", want: DefaultSocket},
		{name: "explicit socket", uri: "qemu+unix:///system?socket=/tmp/libvirt-sock", want: "/tmp/libvirt-sock"},
		{name: "ssh", uri: "qemu+ssh://root@host/system", wantErr: true},
		{name: "tcp", uri: "qemu+tcp://host/system", wantErr: true},
		{name: "other driver", uri: "xen:///system", wantErr: true},
		{name: "unknown path", uri: "qemu:///embed", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SocketForURI(tt.uri, tt.system)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnsupportedURI)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSocketForURI_SessionWithoutRuntimeDir(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "")
	t.Setenv("HOME", "/home/builder")

	got, err := SocketForURI("qemu:///session", "")
	require.NoError(t, err)
	assert.Equal(t, "/home/builder/.cache/libvirt/libvirt-sock", got)
}
