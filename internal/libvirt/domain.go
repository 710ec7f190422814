package libvirt

import (
	"fmt"
	"strings"

	"libvirt.org/go/libvirtxml"
)

// DiskBus is the bus used for hot-plugged data disks.
const DiskBus = "virtio"

// VolumeDiskXML returns a disk device descriptor backed by a pool volume,
// suitable for attaching to or detaching from a domain.
// Format: <disk type="volume" device="disk"> with a qcow2 qemu driver.
func VolumeDiskXML(pool, volume, target string) (string, error) {
	if pool == "" || volume == "" {
		return "", fmt.Errorf("pool and volume are required")
	}
	if err := validateTarget(target); err != nil {
		return "", err
	}

	disk := libvirtxml.DomainDisk{
		Device: "disk",
		Driver: &libvirtxml.DomainDiskDriver{
			Name:  "qemu",
			Type:  "qcow2",
			Cache: "none",
		},
		Source: &libvirtxml.DomainDiskSource{
			Volume: &libvirtxml.DomainDiskSourceVolume{
				Pool:   pool,
				Volume: volume,
			},
		},
		Target: &libvirtxml.DomainDiskTarget{
			Dev: target,
			Bus: DiskBus,
		},
	}

	xml, err := disk.Marshal()
	if err != nil {
		return "", fmt.Errorf("failed to marshal disk XML: %w", err)
	}
	return xml, nil
}

// FileDiskXML returns a disk device descriptor backed by an image path on the
// hypervisor host.
func FileDiskXML(path, format, target string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path is required")
	}
	if err := validateTarget(target); err != nil {
		return "", err
	}
	if format == "" {
		format = "qcow2"
	}

	disk := libvirtxml.DomainDisk{
		Device: "disk",
		Driver: &libvirtxml.DomainDiskDriver{
			Name: "qemu",
			Type: format,
		},
		Source: &libvirtxml.DomainDiskSource{
			File: &libvirtxml.DomainDiskSourceFile{
				File: path,
			},
		},
		Target: &libvirtxml.DomainDiskTarget{
			Dev: target,
			Bus: DiskBus,
		},
	}

	xml, err := disk.Marshal()
	if err != nil {
		return "", fmt.Errorf("failed to marshal disk XML: %w", err)
	}
	return xml, nil
}

func validateTarget(target string) error {
	if len(target) < 3 || !strings.HasPrefix(target, "vd") {
		return fmt.Errorf("invalid disk target %q: expected vdX", target)
	}
	return nil
}
