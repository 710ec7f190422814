package storage

import (
	"strconv"
	"strings"
	"sync"

	"github.com/digitalocean/go-libvirt"

	"github.com/jbweber/hostvirt/internal/virterr"
)

// mockLibvirtClient is a mock implementation of LibvirtClient for testing.
type mockLibvirtClient struct {
	mu sync.Mutex

	pools   map[string]*mockPool
	volumes map[string]map[string]*mockVolume // pool name -> volume name -> volume

	// Call tracking
	poolLookups   int
	createXMLs    []string
	deleteCalls   []string
	deleteErrFunc func(vol libvirt.StorageVol) error
}

type mockPool struct {
	name      string
	uuid      libvirt.UUID
	state     libvirt.StoragePoolState
	capacity  uint64
	allocated uint64
	available uint64
	xmlDesc   string
}

type mockVolume struct {
	name      string
	path      string
	capacity  uint64
	allocated uint64
}

func newMockLibvirtClient() *mockLibvirtClient {
	return &mockLibvirtClient{
		pools:   make(map[string]*mockPool),
		volumes: make(map[string]map[string]*mockVolume),
	}
}

// addPool registers a running dir pool.
func (m *mockLibvirtClient) addPool(name string) {
	var id libvirt.UUID
	copy(id[:], "mock-uuid-"+name)
	m.pools[name] = &mockPool{
		name:      name,
		uuid:      id,
		state:     libvirt.StoragePoolRunning,
		capacity:  1024 * 1024 * 1024 * 1024, // 1 TB
		available: 1024 * 1024 * 1024 * 1024, // 1 TB
		xmlDesc:   `<pool type="dir"><name>` + name + `</name><target><path>/var/lib/libvirt/images/` + name + `</path></target></pool>`,
	}
	m.volumes[name] = make(map[string]*mockVolume)
}

func poolMissing(name string) error {
	return libvirt.Error{Code: uint32(virterr.CodeNoStoragePool), Message: "Storage pool not found: no storage pool with matching name '" + name + "'"}
}

func volMissing(name string) error {
	return libvirt.Error{Code: uint32(virterr.CodeNoStorageVol), Message: "Storage volume not found: no storage vol with matching name '" + name + "'"}
}

func (m *mockLibvirtClient) StoragePoolLookupByName(name string) (libvirt.StoragePool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.poolLookups++
	pool, ok := m.pools[name]
	if !ok {
		return libvirt.StoragePool{}, poolMissing(name)
	}
	return libvirt.StoragePool{Name: pool.name, UUID: pool.uuid}, nil
}

func (m *mockLibvirtClient) StoragePoolGetInfo(pool libvirt.StoragePool) (rState uint8, rCapacity uint64, rAllocation uint64, rAvailable uint64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pools[pool.Name]
	if !ok {
		return 0, 0, 0, 0, poolMissing(pool.Name)
	}
	return uint8(p.state), p.capacity, p.allocated, p.available, nil
}

func (m *mockLibvirtClient) StoragePoolGetXMLDesc(pool libvirt.StoragePool, flags libvirt.StorageXMLFlags) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pools[pool.Name]
	if !ok {
		return "", poolMissing(pool.Name)
	}
	return p.xmlDesc, nil
}

func (m *mockLibvirtClient) StoragePoolListAllVolumes(pool libvirt.StoragePool, needResults int32, flags uint32) ([]libvirt.StorageVol, uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	vols, ok := m.volumes[pool.Name]
	if !ok {
		return nil, 0, poolMissing(pool.Name)
	}

	var result []libvirt.StorageVol
	for name := range vols {
		result = append(result, libvirt.StorageVol{Pool: pool.Name, Name: name})
	}
	return result, uint32(len(result)), nil
}

func (m *mockLibvirtClient) StoragePoolRefresh(pool libvirt.StoragePool, flags uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pools[pool.Name]; !ok {
		return poolMissing(pool.Name)
	}
	return nil
}

func (m *mockLibvirtClient) StorageVolLookupByName(pool libvirt.StoragePool, name string) (libvirt.StorageVol, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	vols, ok := m.volumes[pool.Name]
	if !ok {
		return libvirt.StorageVol{}, poolMissing(pool.Name)
	}
	if _, ok := vols[name]; !ok {
		return libvirt.StorageVol{}, volMissing(name)
	}
	return libvirt.StorageVol{Pool: pool.Name, Name: name}, nil
}

func (m *mockLibvirtClient) StorageVolCreateXML(pool libvirt.StoragePool, xml string, flags libvirt.StorageVolCreateFlags) (libvirt.StorageVol, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createXMLs = append(m.createXMLs, xml)

	vols, ok := m.volumes[pool.Name]
	if !ok {
		return libvirt.StorageVol{}, poolMissing(pool.Name)
	}

	name := extractTagValue(xml, "name")
	if name == "" {
		return libvirt.StorageVol{}, libvirt.Error{Code: uint32(virterr.CodeInternalError), Message: "missing volume name"}
	}
	if _, ok := vols[name]; ok {
		return libvirt.StorageVol{}, libvirt.Error{Code: 90, Message: "storage volume '" + name + "' already exists"}
	}

	gb, _ := strconv.ParseUint(extractTagValue(xml, "capacity"), 10, 64)
	vols[name] = &mockVolume{
		name:     name,
		path:     "/var/lib/libvirt/images/" + pool.Name + "/" + name,
		capacity: gb << 30,
	}
	return libvirt.StorageVol{Pool: pool.Name, Name: name}, nil
}

func (m *mockLibvirtClient) StorageVolDelete(vol libvirt.StorageVol, flags libvirt.StorageVolDeleteFlags) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls = append(m.deleteCalls, vol.Name)
	if m.deleteErrFunc != nil {
		return m.deleteErrFunc(vol)
	}

	vols, ok := m.volumes[vol.Pool]
	if !ok {
		return poolMissing(vol.Pool)
	}
	if _, ok := vols[vol.Name]; !ok {
		return volMissing(vol.Name)
	}
	delete(vols, vol.Name)
	return nil
}

func (m *mockLibvirtClient) StorageVolGetPath(vol libvirt.StorageVol) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.volumes[vol.Pool][vol.Name]
	if !ok {
		return "", volMissing(vol.Name)
	}
	return v.path, nil
}

func (m *mockLibvirtClient) StorageVolGetInfo(vol libvirt.StorageVol) (rType int8, rCapacity uint64, rAllocation uint64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.volumes[vol.Pool][vol.Name]
	if !ok {
		return 0, 0, 0, volMissing(vol.Name)
	}
	return 0, v.capacity, v.allocated, nil
}

func (m *mockLibvirtClient) ConnectListAllStoragePools(needResults int32, flags libvirt.ConnectListAllStoragePoolsFlags) ([]libvirt.StoragePool, uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []libvirt.StoragePool
	for name, pool := range m.pools {
		result = append(result, libvirt.StoragePool{Name: name, UUID: pool.uuid})
	}
	return result, uint32(len(result)), nil
}

// Helper function to extract tag value from XML. Attributes on the opening
// tag are ignored.
func extractTagValue(xml, tag string) string {
	start := strings.Index(xml, "<"+tag)
	if start == -1 {
		return ""
	}
	open := strings.Index(xml[start:], ">")
	if open == -1 {
		return ""
	}
	start += open + 1
	end := strings.Index(xml[start:], "</"+tag+">")
	if end == -1 {
		return ""
	}
	return xml[start : start+end]
}
