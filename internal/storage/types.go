package storage

import (
	"fmt"
	"strings"
)

// PoolType represents the type of storage pool backend.
type PoolType string

const (
	PoolTypeDir     PoolType = "dir"     // Directory-based storage
	PoolTypeLVM     PoolType = "logical" // LVM volume group
	PoolTypeZFS     PoolType = "zfs"     // ZFS pool
	PoolTypeNFS     PoolType = "netfs"   // NFS mount
	PoolTypeCeph    PoolType = "rbd"     // Ceph RBD
	PoolTypeISCSI   PoolType = "iscsi"   // iSCSI target
	PoolTypeGluster PoolType = "gluster" // GlusterFS
)

// VolumeFormat represents the disk format.
type VolumeFormat string

const (
	VolumeFormatQCOW2 VolumeFormat = "qcow2" // QCOW2 format
	VolumeFormatRaw   VolumeFormat = "raw"   // Raw format
)

// DefaultVolumeFormat is used when no format is given.
const DefaultVolumeFormat = VolumeFormatQCOW2

// VolumeSpec specifies how to create a storage volume.
type VolumeSpec struct {
	Name       string       // Volume name (e.g., "4f1c..._data-vdb.qcow2")
	Format     VolumeFormat // Disk format (qcow2, raw)
	CapacityGB uint64       // Capacity in GB
}

// Validate checks if the volume spec is valid.
func (v *VolumeSpec) Validate() error {
	if v.Name == "" {
		return fmt.Errorf("volume name is required")
	}
	if strings.Contains(v.Name, "/") {
		return fmt.Errorf("invalid volume name %q: must not contain '/'", v.Name)
	}
	if v.Format == "" {
		return fmt.Errorf("volume format is required")
	}
	if v.Format != VolumeFormatQCOW2 && v.Format != VolumeFormatRaw {
		return fmt.Errorf("invalid volume format: %s (must be qcow2 or raw)", v.Format)
	}
	if v.CapacityGB == 0 {
		return fmt.Errorf("volume capacity must be greater than 0")
	}
	return nil
}

// PoolInfo contains information about a storage pool.
type PoolInfo struct {
	Name       string   `json:"name" yaml:"name"`
	Type       PoolType `json:"type" yaml:"type"`
	Path       string   `json:"path,omitempty" yaml:"path,omitempty"`
	UUID       string   `json:"uuid" yaml:"uuid"`
	State      string   `json:"state" yaml:"state"`
	Capacity   uint64   `json:"capacity" yaml:"capacity"`
	Allocation uint64   `json:"allocation" yaml:"allocation"`
	Available  uint64   `json:"available" yaml:"available"`
}

// CapacityGB returns the pool capacity in GB.
func (p *PoolInfo) CapacityGB() float64 {
	return float64(p.Capacity) / (1024 * 1024 * 1024)
}

// AllocationGB returns the pool allocation in GB.
func (p *PoolInfo) AllocationGB() float64 {
	return float64(p.Allocation) / (1024 * 1024 * 1024)
}

// AvailableGB returns the pool available space in GB.
func (p *PoolInfo) AvailableGB() float64 {
	return float64(p.Available) / (1024 * 1024 * 1024)
}

// VolumeInfo contains information about a storage volume.
type VolumeInfo struct {
	Name       string `json:"name" yaml:"name"`
	Pool       string `json:"pool" yaml:"pool"`
	Path       string `json:"path" yaml:"path"`
	Capacity   uint64 `json:"capacity" yaml:"capacity"`
	Allocation uint64 `json:"allocation" yaml:"allocation"`
}

// CapacityGB returns the volume capacity in GB.
func (v *VolumeInfo) CapacityGB() float64 {
	return float64(v.Capacity) / (1024 * 1024 * 1024)
}

// AllocationGB returns the volume allocation in GB.
func (v *VolumeInfo) AllocationGB() float64 {
	return float64(v.Allocation) / (1024 * 1024 * 1024)
}
