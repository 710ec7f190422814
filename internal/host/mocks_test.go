package host

import (
	"context"

	"github.com/digitalocean/go-libvirt"

	"github.com/jbweber/hostvirt/internal/vm"
)

// mockLibvirtClient is a mock implementation of libvirtClient for testing.
type mockLibvirtClient struct {
	hostname string
	version  uint64
	uri      string
	pools    []string

	versionErr error
	closeCalls int
}

func (m *mockLibvirtClient) ConnectGetHostname() (string, error) { return m.hostname, nil }
func (m *mockLibvirtClient) ConnectGetLibVersion() (uint64, error) {
	return m.version, m.versionErr
}
func (m *mockLibvirtClient) ConnectGetUri() (string, error) { return m.uri, nil }
func (m *mockLibvirtClient) Close() error {
	m.closeCalls++
	return nil
}

func (m *mockLibvirtClient) StoragePoolLookupByName(name string) (libvirt.StoragePool, error) {
	return libvirt.StoragePool{Name: name}, nil
}

func (m *mockLibvirtClient) StoragePoolGetInfo(libvirt.StoragePool) (uint8, uint64, uint64, uint64, error) {
	return uint8(libvirt.StoragePoolRunning), 100 << 30, 40 << 30, 60 << 30, nil
}

func (m *mockLibvirtClient) StoragePoolGetXMLDesc(pool libvirt.StoragePool, _ libvirt.StorageXMLFlags) (string, error) {
	return `<pool type="dir"><name>` + pool.Name + `</name><target><path>/srv/` + pool.Name + `</path></target></pool>`, nil
}

func (m *mockLibvirtClient) StoragePoolListAllVolumes(libvirt.StoragePool, int32, uint32) ([]libvirt.StorageVol, uint32, error) {
	return nil, 0, nil
}

func (m *mockLibvirtClient) StoragePoolRefresh(libvirt.StoragePool, uint32) error { return nil }

func (m *mockLibvirtClient) StorageVolLookupByName(pool libvirt.StoragePool, name string) (libvirt.StorageVol, error) {
	return libvirt.StorageVol{Pool: pool.Name, Name: name}, nil
}

func (m *mockLibvirtClient) StorageVolCreateXML(pool libvirt.StoragePool, _ string, _ libvirt.StorageVolCreateFlags) (libvirt.StorageVol, error) {
	return libvirt.StorageVol{Pool: pool.Name}, nil
}

func (m *mockLibvirtClient) StorageVolDelete(libvirt.StorageVol, libvirt.StorageVolDeleteFlags) error {
	return nil
}

func (m *mockLibvirtClient) StorageVolGetPath(vol libvirt.StorageVol) (string, error) {
	return "/srv/" + vol.Pool + "/" + vol.Name, nil
}

func (m *mockLibvirtClient) StorageVolGetInfo(libvirt.StorageVol) (int8, uint64, uint64, error) {
	return 0, 1 << 30, 0, nil
}

func (m *mockLibvirtClient) ConnectListAllStoragePools(int32, libvirt.ConnectListAllStoragePoolsFlags) ([]libvirt.StoragePool, uint32, error) {
	pools := make([]libvirt.StoragePool, 0, len(m.pools))
	for _, name := range m.pools {
		pools = append(pools, libvirt.StoragePool{Name: name})
	}
	return pools, uint32(len(pools)), nil
}

type fakeLister struct {
	hosts []string
	infos []vm.Info
}

func (f *fakeLister) List(_ context.Context, host string) ([]vm.Info, error) {
	f.hosts = append(f.hosts, host)
	return f.infos, nil
}
