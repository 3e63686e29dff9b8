// Package libvirt handles libvirt domain definitions and read-only access to
// the libvirt daemon.
//
// Definitions are generated by virt-install elsewhere; this package patches
// them (marking removable disks) and summarizes them for display, both via
// libvirt.org/go/libvirtxml:
//
//	def, err := libvirt.Patch(def, cfg.OrderedDisks())
//	if err != nil {
//	    return err
//	}
//
// The Client wraps github.com/digitalocean/go-libvirt for status queries over
// the local Unix socket:
//
//	client, err := libvirt.Connect("", 0)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	if err := client.Ping(); err != nil {
//	    return err
//	}
//
// Consumer-Side Interfaces:
//
// This package does not define interfaces. Consumers (internal/vm) define
// their own interfaces with only the operations they need; *libvirt.Libvirt
// satisfies them implicitly.
//
// Mutating domain operations (define, start, destroy, undefine) are not done
// over RPC. They go through virsh so that dry-run applies to them.
package libvirt
