package vm

// Hypervisor drives virsh and virt-viewer for one libvirt connection.
type Hypervisor struct {
	exec       commandExecutor
	connectURI string
}

// NewHypervisor creates a Hypervisor for the given libvirt URI.
func NewHypervisor(exec commandExecutor, connectURI string) *Hypervisor {
	return &Hypervisor{exec: exec, connectURI: connectURI}
}

func virshArgs(connectURI string, args ...string) []string {
	return append([]string{"virsh", "--connect", connectURI}, args...)
}

// undefineFlags remove everything libvirt tracks for a domain.
var undefineFlags = []string{
	"--managed-save",
	"--remove-all-storage",
	"--delete-storage-volume-snapshots",
	"--snapshots-metadata",
	"--checkpoints-metadata",
	"--nvram",
}

func destroyArgs(connectURI, name string) []string {
	return virshArgs(connectURI, "destroy", name)
}

func undefineArgs(connectURI, name string) []string {
	return virshArgs(connectURI, append([]string{"undefine", name}, undefineFlags...)...)
}

func defineArgs(connectURI, path string) []string {
	return virshArgs(connectURI, "define", path)
}

func startArgs(connectURI, name string) []string {
	return virshArgs(connectURI, "start", name)
}

func viewerArgs(connectURI, name string) []string {
	return []string{"virt-viewer", "--connect", connectURI, "--attach", "--wait", name}
}

func removeArgs(path string) []string {
	return []string{"rm", "-f", path}
}
