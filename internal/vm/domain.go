package vm

import "context"

// Domain is a facade for one domain on one host. It stores only the address;
// every call re-resolves the domain on a fresh connection.
type Domain struct {
	host string
	uuid string
	m    *Manager
}

// Domain returns the facade for the domain identified by id on host.
func (m *Manager) Domain(host, id string) *Domain {
	return &Domain{host: host, uuid: id, m: m}
}

// Host returns the host address ("" for local).
func (d *Domain) Host() string { return d.host }

// UUID returns the domain identifier.
func (d *Domain) UUID() string { return d.uuid }

// Status reports the domain state and label; see Manager.Status.
func (d *Domain) Status(ctx context.Context) (State, string, error) {
	return d.m.Status(ctx, d.host, d.uuid)
}

// IsRunning reports whether the domain is running.
func (d *Domain) IsRunning(ctx context.Context) (bool, error) {
	return d.m.IsRunning(ctx, d.host, d.uuid)
}

// IsShutoff reports whether the domain is shut off.
func (d *Domain) IsShutoff(ctx context.Context) (bool, error) {
	return d.m.IsShutoff(ctx, d.host, d.uuid)
}

// Exists reports whether the domain is defined on the host.
func (d *Domain) Exists(ctx context.Context) (bool, error) {
	return d.m.Exists(ctx, d.host, d.uuid)
}

// Start powers the domain on.
func (d *Domain) Start(ctx context.Context) (bool, error) {
	return d.m.Start(ctx, d.host, d.uuid)
}

// Reboot asks a running guest to reboot.
func (d *Domain) Reboot(ctx context.Context) (bool, error) {
	return d.m.Reboot(ctx, d.host, d.uuid)
}

// Shutdown asks the guest to shut down gracefully.
func (d *Domain) Shutdown(ctx context.Context) (bool, error) {
	return d.m.Shutdown(ctx, d.host, d.uuid)
}

// Poweroff force-stops the domain.
func (d *Domain) Poweroff(ctx context.Context) (bool, error) {
	return d.m.Poweroff(ctx, d.host, d.uuid)
}

// Undefine removes the domain's persistent definition.
func (d *Domain) Undefine(ctx context.Context) (bool, error) {
	return d.m.Undefine(ctx, d.host, d.uuid)
}

// XMLDesc returns the domain's XML descriptor.
func (d *Domain) XMLDesc(ctx context.Context) (string, error) {
	return d.m.XMLDesc(ctx, d.host, d.uuid)
}

// AttachDevice adds a device to the persistent configuration.
func (d *Domain) AttachDevice(ctx context.Context, xml string) (bool, error) {
	return d.m.AttachDevice(ctx, d.host, d.uuid, xml)
}

// DetachDevice removes a device from the persistent configuration.
func (d *Domain) DetachDevice(ctx context.Context, xml string) (bool, error) {
	return d.m.DetachDevice(ctx, d.host, d.uuid, xml)
}

// DiskTargets returns source volume names and target devices of the disks.
func (d *Domain) DiskTargets(ctx context.Context) ([]string, []string, error) {
	return d.m.DiskTargets(ctx, d.host, d.uuid)
}

// NextDiskTarget returns the first free data disk target.
func (d *Domain) NextDiskTarget(ctx context.Context) (string, bool, error) {
	return d.m.NextDiskTarget(ctx, d.host, d.uuid)
}

// SetVCPUs sets the vCPU count of a shut off domain.
func (d *Domain) SetVCPUs(ctx context.Context, n uint) (bool, error) {
	return d.m.SetVCPUs(ctx, d.host, d.uuid, n)
}

// SetMemoryMiB sets the memory of a shut off domain.
func (d *Domain) SetMemoryMiB(ctx context.Context, mib uint) (bool, error) {
	return d.m.SetMemoryMiB(ctx, d.host, d.uuid, mib)
}
