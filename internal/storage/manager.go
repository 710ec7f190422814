package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/digitalocean/go-libvirt"
	"go.uber.org/zap"

	"github.com/jbweber/hostvirt/internal/virterr"
)

// LibvirtClient is the interface for libvirt operations.
// This allows for dependency injection and testing.
type LibvirtClient interface {
	StoragePoolLookupByName(Name string) (libvirt.StoragePool, error)
	StoragePoolGetInfo(Pool libvirt.StoragePool) (rState uint8, rCapacity uint64, rAllocation uint64, rAvailable uint64, err error)
	StoragePoolGetXMLDesc(Pool libvirt.StoragePool, Flags libvirt.StorageXMLFlags) (string, error)
	StoragePoolListAllVolumes(Pool libvirt.StoragePool, NeedResults int32, Flags uint32) ([]libvirt.StorageVol, uint32, error)
	StoragePoolRefresh(Pool libvirt.StoragePool, Flags uint32) error
	StorageVolLookupByName(Pool libvirt.StoragePool, Name string) (libvirt.StorageVol, error)
	StorageVolCreateXML(Pool libvirt.StoragePool, XML string, Flags libvirt.StorageVolCreateFlags) (libvirt.StorageVol, error)
	StorageVolDelete(Vol libvirt.StorageVol, Flags libvirt.StorageVolDeleteFlags) error
	StorageVolGetPath(Vol libvirt.StorageVol) (string, error)
	StorageVolGetInfo(Vol libvirt.StorageVol) (rType int8, rCapacity uint64, rAllocation uint64, err error)
	ConnectListAllStoragePools(NeedResults int32, Flags libvirt.ConnectListAllStoragePoolsFlags) ([]libvirt.StoragePool, uint32, error)
}

// Manager coordinates storage operations on one connection. Pool controllers
// handed out by Pool are memoized per name.
type Manager struct {
	client LibvirtClient
	logger *zap.Logger

	mu    sync.Mutex
	pools map[string]*Pool
}

// NewManager creates a new storage manager.
func NewManager(client LibvirtClient, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		client: client,
		logger: logger,
		pools:  make(map[string]*Pool),
	}
}

// Pool returns the controller for the named pool. The same *Pool is returned
// for the same name, so its resolved handle is shared.
func (m *Manager) Pool(name string) *Pool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.pools[name]; ok {
		return p
	}
	p := NewPool(m.client, name, m.logger)
	m.pools[name] = p
	return p
}

// ListPools lists all storage pools (active and inactive).
// Pools whose details can not be read are skipped with a warning.
func (m *Manager) ListPools(ctx context.Context) ([]PoolInfo, error) {
	pools, _, err := m.client.ConnectListAllStoragePools(1, 0)
	if err != nil {
		return nil, virterr.Wrap(err, "failed to list pools")
	}

	poolInfos := make([]PoolInfo, 0, len(pools))
	for _, pool := range pools {
		info, err := m.Pool(pool.Name).Info(ctx)
		if err != nil {
			m.logger.Warn("failed to get pool info", zap.String("pool", pool.Name), zap.Error(err))
			continue
		}
		poolInfos = append(poolInfos, *info)
	}

	return poolInfos, nil
}

// GetPoolInfo gets detailed information about a storage pool.
func (m *Manager) GetPoolInfo(ctx context.Context, name string) (*PoolInfo, error) {
	info, err := m.Pool(name).Info(ctx)
	if err != nil {
		return nil, fmt.Errorf("pool %s: %w", name, err)
	}
	return info, nil
}
