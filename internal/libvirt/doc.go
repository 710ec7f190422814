// Package libvirt opens connections to hypervisor hosts.
//
// This package wraps github.com/digitalocean/go-libvirt to provide:
//   - A reachability probe (ICMP echo via the system ping utility)
//   - A Connector that opens a fresh connection per call, either to the local
//     libvirtd socket or to a remote host through an ssh tunnel
//   - Disk device descriptor builders for hot-plug
//
// Connection Management:
//
//	probe := libvirt.NewProber(3, 3*time.Second, 100*time.Millisecond, logger)
//	conn := libvirt.NewConnector(libvirt.ConnectorConfig{SSH: libvirt.DefaultSSHConfig()}, probe, logger)
//
//	client, err := conn.Connect(ctx, "10.0.0.12")
//	if virterr.IsHostDown(err) {
//	    // host did not answer, or the tunnel could not be opened
//	}
//	defer client.Close()
//
// An empty host connects to the local daemon and skips the probe.
//
// Consumer-Side Interfaces:
//
// This package does not define interfaces for the hypervisor API. Consumers
// (internal/vm, internal/storage, internal/host) define their own client
// interfaces specifying only the operations they need. *Client embeds
// *libvirt.Libvirt and satisfies these interfaces implicitly.
package libvirt
