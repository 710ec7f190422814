package vm

import (
	"context"
	"strings"
	"sync"

	"github.com/digitalocean/go-libvirt"
	"github.com/google/uuid"

	"github.com/jbweber/hostvirt/internal/virterr"
)

const (
	testUUID    = "6a1d5c4e-2f0b-4c59-9e35-0d7a8f1b2c3d"
	testMissing = "00000000-0000-4000-8000-0000000000ff"
)

const testDomainXML = `<domain type="kvm">
  <name>test-vm</name>
  <uuid>6a1d5c4e-2f0b-4c59-9e35-0d7a8f1b2c3d</uuid>
  <memory unit="KiB">2097152</memory>
  <currentMemory unit="KiB">2097152</currentMemory>
  <vcpu placement="static">2</vcpu>
  <os><type arch="x86_64">hvm</type></os>
  <devices>
    <disk type="network" device="disk">
      <source protocol="rbd" name="vm-pool/6a1d5c4e-2f0b-4c59-9e35-0d7a8f1b2c3d"/>
      <target dev="vda" bus="virtio"/>
    </disk>
    <disk type="volume" device="disk">
      <source pool="data" volume="extra-1"/>
      <target dev="vdb" bus="virtio"/>
    </disk>
  </devices>
</domain>`

const testDiskXML = `<disk type="volume" device="disk">
  <driver name="qemu" type="qcow2"/>
  <source pool="data" volume="extra-2"/>
  <target dev="vdc" bus="virtio"/>
</disk>`

func nativeErr(code virterr.Code, msg string) error {
	return libvirt.Error{Code: uint32(code), Message: msg}
}

func mustUUID(s string) libvirt.UUID {
	return libvirt.UUID(uuid.MustParse(s))
}

// fakeDomain is the mock hypervisor's view of one domain.
type fakeDomain struct {
	dom     libvirt.Domain
	state   State
	xml     string
	devices map[string]bool
}

// mockLibvirtClient is a mock implementation of the libvirtClient interface for testing.
// By default it behaves like a tiny hypervisor holding the domains in its
// domains map; individual calls can be overridden with the func fields.
type mockLibvirtClient struct {
	mu sync.Mutex

	domains map[libvirt.UUID]*fakeDomain

	// Configurable behavior
	domainLookupByUUIDFunc      func(id libvirt.UUID) (libvirt.Domain, error)
	domainGetStateFunc          func(dom libvirt.Domain, flags uint32) (int32, int32, error)
	domainCreateFunc            func(dom libvirt.Domain) error
	domainRebootFunc            func(dom libvirt.Domain) error
	domainShutdownFunc          func(dom libvirt.Domain) error
	domainDestroyFunc           func(dom libvirt.Domain) error
	domainUndefineFlagsFunc     func(dom libvirt.Domain, flags libvirt.DomainUndefineFlagsValues) error
	domainAttachDeviceFlagsFunc func(dom libvirt.Domain, xml string, flags uint32) error
	domainDetachDeviceFlagsFunc func(dom libvirt.Domain, xml string, flags uint32) error
	domainGetXMLDescFunc        func(dom libvirt.Domain, flags libvirt.DomainXMLFlags) (string, error)
	domainDefineXMLFunc         func(xml string) (libvirt.Domain, error)

	// Call tracking
	domainLookupByUUIDCalls      []libvirt.UUID
	domainGetStateCalls          []libvirt.Domain
	domainCreateCalls            []libvirt.Domain
	domainRebootCalls            []libvirt.Domain
	domainShutdownCalls          []libvirt.Domain
	domainDestroyCalls           []libvirt.Domain
	domainUndefineFlagsCalls     []libvirt.DomainUndefineFlagsValues
	domainDefineXMLCalls         []string
	domainGetXMLDescCalls        []libvirt.DomainXMLFlags
	domainAttachDeviceFlagsCalls []uint32
	domainDetachDeviceFlagsCalls []uint32
	closeCalls                   int
}

// newMockLibvirtClient creates a mock hypervisor holding one domain in state.
func newMockLibvirtClient(state State) *mockLibvirtClient {
	id := mustUUID(testUUID)
	return &mockLibvirtClient{
		domains: map[libvirt.UUID]*fakeDomain{
			id: {
				dom:     libvirt.Domain{Name: "test-vm", UUID: id, ID: 1},
				state:   state,
				xml:     testDomainXML,
				devices: map[string]bool{},
			},
		},
	}
}

// dialer returns a dialFunc that always hands out this mock.
func (m *mockLibvirtClient) dialer() dialFunc {
	return func(context.Context, string) (libvirtClient, error) {
		return m, nil
	}
}

func (m *mockLibvirtClient) find(dom libvirt.Domain) (*fakeDomain, error) {
	d, ok := m.domains[dom.UUID]
	if !ok {
		return nil, nativeErr(virterr.CodeNoDomain, "Domain not found: no domain with matching uuid")
	}
	return d, nil
}

func (m *mockLibvirtClient) DomainLookupByUUID(id libvirt.UUID) (libvirt.Domain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domainLookupByUUIDCalls = append(m.domainLookupByUUIDCalls, id)
	if m.domainLookupByUUIDFunc != nil {
		return m.domainLookupByUUIDFunc(id)
	}
	d, ok := m.domains[id]
	if !ok {
		return libvirt.Domain{}, nativeErr(virterr.CodeNoDomain, "Domain not found: no domain with matching uuid")
	}
	return d.dom, nil
}

func (m *mockLibvirtClient) ConnectListAllDomains(_ int32, _ libvirt.ConnectListAllDomainsFlags) ([]libvirt.Domain, uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doms := make([]libvirt.Domain, 0, len(m.domains))
	for _, d := range m.domains {
		doms = append(doms, d.dom)
	}
	return doms, uint32(len(doms)), nil
}

func (m *mockLibvirtClient) DomainGetState(dom libvirt.Domain, flags uint32) (int32, int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domainGetStateCalls = append(m.domainGetStateCalls, dom)
	if m.domainGetStateFunc != nil {
		return m.domainGetStateFunc(dom, flags)
	}
	d, err := m.find(dom)
	if err != nil {
		return 0, 0, err
	}
	return int32(d.state), 0, nil
}

func (m *mockLibvirtClient) DomainGetInfo(dom libvirt.Domain) (uint8, uint64, uint64, uint16, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, err := m.find(dom)
	if err != nil {
		return 0, 0, 0, 0, 0, err
	}
	return uint8(d.state), 2097152, 2097152, 2, 0, nil
}

func (m *mockLibvirtClient) DomainCreate(dom libvirt.Domain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domainCreateCalls = append(m.domainCreateCalls, dom)
	if m.domainCreateFunc != nil {
		return m.domainCreateFunc(dom)
	}
	d, err := m.find(dom)
	if err != nil {
		return err
	}
	if d.state.IsRunning() {
		return nativeErr(virterr.CodeOperationInvalid, "Requested operation is not valid: domain is already running")
	}
	d.state = StateRunning
	return nil
}

func (m *mockLibvirtClient) DomainReboot(dom libvirt.Domain, _ libvirt.DomainRebootFlagValues) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domainRebootCalls = append(m.domainRebootCalls, dom)
	if m.domainRebootFunc != nil {
		return m.domainRebootFunc(dom)
	}
	_, err := m.find(dom)
	return err
}

func (m *mockLibvirtClient) DomainShutdown(dom libvirt.Domain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domainShutdownCalls = append(m.domainShutdownCalls, dom)
	if m.domainShutdownFunc != nil {
		return m.domainShutdownFunc(dom)
	}
	d, err := m.find(dom)
	if err != nil {
		return err
	}
	d.state = StateShutoff
	return nil
}

func (m *mockLibvirtClient) DomainDestroy(dom libvirt.Domain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domainDestroyCalls = append(m.domainDestroyCalls, dom)
	if m.domainDestroyFunc != nil {
		return m.domainDestroyFunc(dom)
	}
	d, err := m.find(dom)
	if err != nil {
		return err
	}
	d.state = StateShutoff
	return nil
}

func (m *mockLibvirtClient) DomainUndefineFlags(dom libvirt.Domain, flags libvirt.DomainUndefineFlagsValues) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domainUndefineFlagsCalls = append(m.domainUndefineFlagsCalls, flags)
	if m.domainUndefineFlagsFunc != nil {
		return m.domainUndefineFlagsFunc(dom, flags)
	}
	if _, err := m.find(dom); err != nil {
		return err
	}
	delete(m.domains, dom.UUID)
	return nil
}

func (m *mockLibvirtClient) DomainDefineXML(xml string) (libvirt.Domain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domainDefineXMLCalls = append(m.domainDefineXMLCalls, xml)
	if m.domainDefineXMLFunc != nil {
		return m.domainDefineXMLFunc(xml)
	}
	id := mustUUID(testUUID)
	if d, ok := m.domains[id]; ok {
		d.xml = xml
		return d.dom, nil
	}
	dom := libvirt.Domain{Name: "test-vm", UUID: id}
	m.domains[id] = &fakeDomain{dom: dom, state: StateShutoff, xml: xml, devices: map[string]bool{}}
	return dom, nil
}

func (m *mockLibvirtClient) DomainGetXMLDesc(dom libvirt.Domain, flags libvirt.DomainXMLFlags) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domainGetXMLDescCalls = append(m.domainGetXMLDescCalls, flags)
	if m.domainGetXMLDescFunc != nil {
		return m.domainGetXMLDescFunc(dom, flags)
	}
	d, err := m.find(dom)
	if err != nil {
		return "", err
	}
	return d.xml, nil
}

func (m *mockLibvirtClient) DomainAttachDeviceFlags(dom libvirt.Domain, xml string, flags uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domainAttachDeviceFlagsCalls = append(m.domainAttachDeviceFlagsCalls, flags)
	if m.domainAttachDeviceFlagsFunc != nil {
		return m.domainAttachDeviceFlagsFunc(dom, xml, flags)
	}
	d, err := m.find(dom)
	if err != nil {
		return err
	}
	key := strings.TrimSpace(xml)
	if d.devices[key] {
		return nativeErr(virterr.CodeOperationInvalid, "Requested operation is not valid: target vdc already exists")
	}
	d.devices[key] = true
	return nil
}

func (m *mockLibvirtClient) DomainDetachDeviceFlags(dom libvirt.Domain, xml string, flags uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domainDetachDeviceFlagsCalls = append(m.domainDetachDeviceFlagsCalls, flags)
	if m.domainDetachDeviceFlagsFunc != nil {
		return m.domainDetachDeviceFlagsFunc(dom, xml, flags)
	}
	d, err := m.find(dom)
	if err != nil {
		return err
	}
	key := strings.TrimSpace(xml)
	if !d.devices[key] {
		return nativeErr(virterr.CodeDeviceMissing, "device not found: no target device vdc")
	}
	delete(d.devices, key)
	return nil
}

func (m *mockLibvirtClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeCalls++
	return nil
}
