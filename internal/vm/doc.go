// Package vm provides domain lifecycle management on hypervisor hosts.
//
// A domain is addressed by a (host, uuid) pair. Every operation opens a fresh
// connection, resolves the domain by UUID, acts on it and closes the
// connection. No domain handle outlives a call, so a reconnect on the remote
// side can never leave a caller holding a stale handle.
//
// The main operations are:
//   - Status: report the domain state without failing for a dead host or an
//     unknown domain (StateHostDown / StateMiss)
//   - Start, Reboot, Shutdown, Poweroff, Undefine: idempotent transitions
//   - AttachDevice, DetachDevice: persistent configuration changes
//   - Define, XMLDesc, List, Exists, SetVCPUs, SetMemoryMiB
//
// Result Channels:
//
// Lifecycle calls return (bool, error). A non-nil error is a typed failure from
// internal/virterr. false with a nil error means the transition was declined,
// either by a pre-check (reboot of a stopped domain) or by the hypervisor
// itself. true means the domain is in the requested state, including when it
// already was.
//
// Domain is a facade bound to one (host, uuid) pair that forwards to Manager.
package vm
