package libvirt

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
)

// ErrUnsupportedURI is returned for connection URIs that do not name a local
// qemu daemon socket.
var ErrUnsupportedURI = errors.New("connection URI is not a local qemu daemon")

// SocketForURI resolves the daemon socket behind a qemu connection URI so RPC
// queries reach the same daemon virsh talks to. systemSocket is used for
// qemu:///system; an explicit ?socket= parameter wins over both defaults.
// Remote transports (qemu+ssh, qemu+tcp, qemu+tls) and other drivers return
// ErrUnsupportedURI.
func SocketForURI(uri, systemSocket string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrUnsupportedURI, uri, err)
	}
	if (u.Scheme != "qemu" && u.Scheme != "qemu+unix") || u.Host != "" {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedURI, uri)
	}

	if s := u.Query().Get("socket"); s != "" {
		return s, nil
	}

	switch u.Path {
	case "/system":
		if systemSocket == "" {
			return DefaultSocket, nil
		}
		return systemSocket, nil
	case "/session":
		if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
			return filepath.Join(dir, "libvirt", "libvirt-sock"), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to locate session socket for %s: %w", uri, err)
		}
		return filepath.Join(home, ".cache", "libvirt", "libvirt-sock"), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedURI, uri)
	}
}
