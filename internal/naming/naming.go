// Package naming provides naming conventions for hypervisor resources:
// host address validation, disk target device selection and data volume
// naming.
package naming

import (
	"fmt"
	"net"
	"strings"
)

// DiskTargetPrefix is the device prefix for virtio disks.
const DiskTargetPrefix = "vd"

// ValidateHost checks that host is either empty (the local hypervisor) or an
// IPv4 address.
func ValidateHost(host string) error {
	if host == "" {
		return nil
	}

	parsedIP := net.ParseIP(host)
	if parsedIP == nil {
		return fmt.Errorf("invalid IP address: %s", host)
	}
	if parsedIP.To4() == nil {
		return fmt.Errorf("not an IPv4 address: %s", host)
	}
	return nil
}

// NextDiskTarget returns the first free target device from vdb through vdz.
// vda is reserved for the system disk and is never returned. ok is false when
// every target is taken.
//
// Example: used [vda vdb vdd] → vdc
func NextDiskTarget(used []string) (string, bool) {
	taken := make(map[string]struct{}, len(used))
	for _, dev := range used {
		taken[strings.ToLower(dev)] = struct{}{}
	}

	for c := 'b'; c <= 'z'; c++ {
		dev := DiskTargetPrefix + string(c)
		if _, ok := taken[dev]; !ok {
			return dev, true
		}
	}
	return "", false
}

// VolumeNameData returns the volume name for a domain's data disk.
// Format: {domainUUID}_data-{device}.qcow2 (e.g., "4f1c..._data-vdb.qcow2")
func VolumeNameData(domainUUID, device string) string {
	return fmt.Sprintf("%s_data-%s.qcow2", domainUUID, device)
}
