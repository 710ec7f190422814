package vm

import (
	"github.com/digitalocean/go-libvirt"
)

// libvirtClient defines the libvirt operations needed for domain management.
// This wraps operations from *libvirt.Libvirt to allow for testing.
//
// In production, this is satisfied by *hostlibvirt.Client, which embeds
// *libvirt.Libvirt and owns the connection's lifetime.
// In tests, this is satisfied by mock implementations.
type libvirtClient interface {
	// DomainLookupByUUID looks up a domain by its UUID
	DomainLookupByUUID(uuid libvirt.UUID) (libvirt.Domain, error)

	// ConnectListAllDomains lists domains matching flags
	ConnectListAllDomains(needResults int32, flags libvirt.ConnectListAllDomainsFlags) ([]libvirt.Domain, uint32, error)

	// DomainGetState gets the state of a domain
	DomainGetState(dom libvirt.Domain, flags uint32) (state int32, reason int32, err error)

	// DomainGetInfo gets state, memory (KiB) and vCPU count of a domain
	DomainGetInfo(dom libvirt.Domain) (state uint8, maxMem uint64, memory uint64, nrVirtCPU uint16, cpuTime uint64, err error)

	// DomainCreate starts a domain
	DomainCreate(dom libvirt.Domain) error

	// DomainReboot sends a reboot request to a domain
	DomainReboot(dom libvirt.Domain, flags libvirt.DomainRebootFlagValues) error

	// DomainShutdown gracefully shuts down a domain
	DomainShutdown(dom libvirt.Domain) error

	// DomainDestroy force-stops a domain
	DomainDestroy(dom libvirt.Domain) error

	// DomainUndefineFlags undefines a domain with flags (e.g., NVRAM cleanup)
	DomainUndefineFlags(dom libvirt.Domain, flags libvirt.DomainUndefineFlagsValues) error

	// DomainDefineXML defines a persistent domain from XML
	DomainDefineXML(xml string) (libvirt.Domain, error)

	// DomainGetXMLDesc returns the domain's XML descriptor
	DomainGetXMLDesc(dom libvirt.Domain, flags libvirt.DomainXMLFlags) (string, error)

	// DomainAttachDeviceFlags attaches a device descriptor
	DomainAttachDeviceFlags(dom libvirt.Domain, xml string, flags uint32) error

	// DomainDetachDeviceFlags detaches a device descriptor
	DomainDetachDeviceFlags(dom libvirt.Domain, xml string, flags uint32) error

	// Close releases the connection
	Close() error
}
