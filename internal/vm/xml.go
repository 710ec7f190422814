package vm

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/digitalocean/go-libvirt"
	"libvirt.org/go/libvirtxml"

	"github.com/jbweber/hostvirt/internal/naming"
	"github.com/jbweber/hostvirt/internal/virterr"
)

// DiskTargets parses a domain descriptor and returns, for every disk in
// document order, the source volume name and the target device. A disk
// without a source (an empty cdrom) contributes an empty source name.
//
// Network sources named "pool/image" yield just "image".
func DiskTargets(domainXML string) (sources []string, targets []string, err error) {
	var dom libvirtxml.Domain
	if err := dom.Unmarshal(domainXML); err != nil {
		return nil, nil, fmt.Errorf("failed to parse domain XML: %w", err)
	}
	if dom.Devices == nil {
		return []string{}, []string{}, nil
	}

	sources = make([]string, 0, len(dom.Devices.Disks))
	targets = make([]string, 0, len(dom.Devices.Disks))
	for _, disk := range dom.Devices.Disks {
		sources = append(sources, diskSourceName(disk.Source))
		target := ""
		if disk.Target != nil {
			target = disk.Target.Dev
		}
		targets = append(targets, target)
	}
	return sources, targets, nil
}

func diskSourceName(src *libvirtxml.DomainDiskSource) string {
	switch {
	case src == nil:
		return ""
	case src.Network != nil:
		name := src.Network.Name
		return name[strings.LastIndex(name, "/")+1:]
	case src.Volume != nil:
		return src.Volume.Volume
	case src.File != nil:
		return filepath.Base(src.File.File)
	case src.Block != nil:
		return filepath.Base(src.Block.Dev)
	default:
		return ""
	}
}

// NextDiskTarget returns the first free data disk target of the domain.
func (m *Manager) NextDiskTarget(ctx context.Context, host, id string) (string, bool, error) {
	_, targets, err := m.DiskTargets(ctx, host, id)
	if err != nil {
		return "", false, err
	}
	dev, ok := naming.NextDiskTarget(targets)
	return dev, ok, nil
}

// setVCPUs rewrites the vCPU count of a domain descriptor.
func setVCPUs(domainXML string, n uint) (string, error) {
	var dom libvirtxml.Domain
	if err := dom.Unmarshal(domainXML); err != nil {
		return "", fmt.Errorf("failed to parse domain XML: %w", err)
	}

	if dom.VCPU == nil {
		dom.VCPU = &libvirtxml.DomainVCPU{Placement: "static"}
	}
	dom.VCPU.Value = n
	// a pinned current count above the new maximum is rejected by libvirt
	if dom.VCPU.Current > n {
		dom.VCPU.Current = 0
	}

	return dom.Marshal()
}

// setMemoryMiB rewrites both the maximum and current memory of a domain
// descriptor.
func setMemoryMiB(domainXML string, mib uint) (string, error) {
	var dom libvirtxml.Domain
	if err := dom.Unmarshal(domainXML); err != nil {
		return "", fmt.Errorf("failed to parse domain XML: %w", err)
	}

	dom.Memory = &libvirtxml.DomainMemory{Value: mib, Unit: "MiB"}
	dom.CurrentMemory = &libvirtxml.DomainCurrentMemory{Value: mib, Unit: "MiB"}

	return dom.Marshal()
}

// SetVCPUs changes the persistent vCPU count. The domain must not be running;
// a running domain yields false without a native call.
func (m *Manager) SetVCPUs(ctx context.Context, host, id string, n uint) (bool, error) {
	if n == 0 {
		return false, virterr.InvalidArg("vcpu count must be positive", nil)
	}
	return m.redefine(ctx, host, id, opSetVCPUs, func(x string) (string, error) {
		return setVCPUs(x, n)
	})
}

// SetMemoryMiB changes the persistent memory size. The domain must not be
// running; a running domain yields false without a native call.
func (m *Manager) SetMemoryMiB(ctx context.Context, host, id string, mib uint) (bool, error) {
	if mib == 0 {
		return false, virterr.InvalidArg("memory size must be positive", nil)
	}
	return m.redefine(ctx, host, id, opSetMem, func(x string) (string, error) {
		return setMemoryMiB(x, mib)
	})
}

func (m *Manager) redefine(ctx context.Context, host, id, op string, edit func(string) (string, error)) (bool, error) {
	return m.run(ctx, host, id, transition{
		op: op,
		check: func(s State) (bool, bool) {
			return s.IsRunning(), false
		},
		call: func(lv libvirtClient, dom libvirt.Domain) error {
			desc, err := lv.DomainGetXMLDesc(dom, libvirt.DomainXMLInactive)
			if err != nil {
				return virterr.Wrap(err, "read persistent definition")
			}
			edited, err := edit(desc)
			if err != nil {
				return virterr.InvalidArg("edit domain XML", err)
			}
			_, err = lv.DomainDefineXML(edited)
			return err
		},
		declinable: true,
	})
}

// validateDomainXML checks that xml parses as a domain with a name.
func validateDomainXML(domainXML string) error {
	var dom libvirtxml.Domain
	if err := dom.Unmarshal(domainXML); err != nil {
		return virterr.InvalidArg("invalid domain XML", err)
	}
	if dom.Name == "" {
		return virterr.InvalidArg("invalid domain XML: missing name", nil)
	}
	return nil
}

// validateDevice checks that a device descriptor is well formed. Known device
// kinds are parsed with their libvirtxml type; others only need a root
// element. The descriptor itself is passed to libvirt unmodified.
func validateDevice(deviceXML string) error {
	root, err := rootElement(deviceXML)
	if err != nil {
		return virterr.InvalidArg("invalid device XML", err)
	}

	switch root {
	case "disk":
		var d libvirtxml.DomainDisk
		err = d.Unmarshal(deviceXML)
	case "interface":
		var d libvirtxml.DomainInterface
		err = d.Unmarshal(deviceXML)
	case "hostdev":
		var d libvirtxml.DomainHostdev
		err = d.Unmarshal(deviceXML)
	}
	if err != nil {
		return virterr.InvalidArg(fmt.Sprintf("invalid %s device XML", root), err)
	}
	return nil
}

func rootElement(doc string) (string, error) {
	dec := xml.NewDecoder(strings.NewReader(doc))
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("empty document")
		}
		if err != nil {
			return "", err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name.Local, nil
		}
	}
}
