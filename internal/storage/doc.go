// Package storage provides libvirt storage pool and volume management.
//
// This package handles:
//   - Volume operations (create, delete, list, lookup) inside a named pool
//   - Pool inspection (list, info, refresh)
//
// Pool Handles:
//
// A Pool resolves its native handle lazily on first use and keeps it for the
// lifetime of the Pool. The cached handle is guarded by a mutex, so one Pool
// may be shared by concurrent callers. A failed lookup is not cached.
// Domains are the opposite: they are re-resolved on every call (see
// internal/vm).
//
// Idempotent Deletion:
//
// DeleteVolume reports success for a volume that does not exist. A missing
// pool is still an error. Deletion removes the volume from the pool's catalog;
// it does not wipe the underlying blocks.
//
// Consumer-Side Interface:
//
// LibvirtClient lists only the libvirt operations this package needs.
// *hostlibvirt.Client satisfies it implicitly.
//
// Example usage:
//
//	client, err := connector.Connect(ctx, "10.0.0.12")
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	mgr := storage.NewManager(client, logger)
//	pool := mgr.Pool("vm-data")
//
//	vol, err := pool.CreateVolume(ctx, "scratch", 10, storage.VolumeFormatQCOW2)
//	if err != nil {
//	    return err
//	}
//
//	deleted, err := pool.DeleteVolume(ctx, vol.Name)
package storage
