package vm

import (
	"context"
	"strings"

	"github.com/digitalocean/go-libvirt"

	"github.com/jbweber/hostvirt/internal/virterr"
)

// deviceFlags applies device changes to the persistent definition only. The
// running guest sees them after its next boot.
var deviceFlags = uint32(libvirt.DomainAffectConfig)

// AttachDevice adds the device described by xml to the domain's persistent
// configuration. Attaching a device that is already present succeeds.
func (m *Manager) AttachDevice(ctx context.Context, host, id, xml string) (bool, error) {
	if err := validateDevice(xml); err != nil {
		return false, err
	}

	return m.run(ctx, host, id, transition{
		op: opAttach,
		call: func(lv libvirtClient, dom libvirt.Domain) error {
			return lv.DomainAttachDeviceFlags(dom, xml, deviceFlags)
		},
		absorb: alreadyAttached,
	})
}

// DetachDevice removes the device described by xml from the domain's
// persistent configuration. Detaching a device that is not present succeeds.
func (m *Manager) DetachDevice(ctx context.Context, host, id, xml string) (bool, error) {
	if err := validateDevice(xml); err != nil {
		return false, err
	}

	return m.run(ctx, host, id, transition{
		op: opDetach,
		call: func(lv libvirtClient, dom libvirt.Domain) error {
			return lv.DomainDetachDeviceFlags(dom, xml, deviceFlags)
		},
		absorb: alreadyDetached,
	})
}

// alreadyAttached matches libvirt's "target ... already exists" rejection.
func alreadyAttached(err error) bool {
	code, ok := virterr.NativeCode(err)
	if !ok || code != virterr.CodeOperationInvalid {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "exist")
}

func alreadyDetached(err error) bool {
	code, ok := virterr.NativeCode(err)
	return ok && code == virterr.CodeDeviceMissing
}
