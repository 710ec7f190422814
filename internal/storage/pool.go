package storage

import (
	"context"
	"sync"

	"github.com/digitalocean/go-libvirt"
	"github.com/google/uuid"
	"go.uber.org/zap"
	libvirtxml "libvirt.org/go/libvirtxml"

	"github.com/jbweber/hostvirt/internal/virterr"
)

// Pool controls the volumes of one named storage pool.
type Pool struct {
	client LibvirtClient
	name   string
	logger *zap.Logger

	mu       sync.Mutex
	handle   libvirt.StoragePool
	resolved bool
}

// NewPool returns a controller for the named pool. The pool is not looked up
// until first use.
func NewPool(client LibvirtClient, name string, logger *zap.Logger) *Pool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		client: client,
		name:   name,
		logger: logger.With(zap.String("pool", name)),
	}
}

// Name returns the pool name.
func (p *Pool) Name() string {
	return p.name
}

// lookup returns the pool handle, resolving it on first use.
func (p *Pool) lookup() (libvirt.StoragePool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.resolved {
		return p.handle, nil
	}

	pool, err := p.client.StoragePoolLookupByName(p.name)
	if err != nil {
		return libvirt.StoragePool{}, virterr.Wrap(err, "pool not found: "+p.name)
	}

	p.logger.Debug("resolved storage pool")
	p.handle = pool
	p.resolved = true
	return pool, nil
}

// Info gets detailed information about the pool.
func (p *Pool) Info(_ context.Context) (*PoolInfo, error) {
	pool, err := p.lookup()
	if err != nil {
		return nil, err
	}

	// Get pool info (capacity, allocation, etc.)
	poolState, capacity, allocation, available, err := p.client.StoragePoolGetInfo(pool)
	if err != nil {
		return nil, virterr.Wrap(err, "failed to get pool info")
	}

	// Get pool XML to extract type and path
	xmlDesc, err := p.client.StoragePoolGetXMLDesc(pool, 0)
	if err != nil {
		return nil, virterr.Wrap(err, "failed to get pool XML")
	}

	var poolDef libvirtxml.StoragePool
	if err := poolDef.Unmarshal(xmlDesc); err != nil {
		return nil, virterr.Wrap(err, "failed to parse pool XML")
	}

	poolPath := ""
	if poolDef.Target != nil {
		poolPath = poolDef.Target.Path
	}

	return &PoolInfo{
		Name:       pool.Name,
		Type:       PoolType(poolDef.Type),
		Path:       poolPath,
		UUID:       uuid.UUID(pool.UUID).String(),
		State:      poolStateString(libvirt.StoragePoolState(poolState)),
		Capacity:   capacity,
		Allocation: allocation,
		Available:  available,
	}, nil
}

// Refresh asks libvirt to rescan the pool's volumes.
func (p *Pool) Refresh(_ context.Context) error {
	pool, err := p.lookup()
	if err != nil {
		return err
	}

	if err := p.client.StoragePoolRefresh(pool, 0); err != nil {
		return virterr.Wrap(err, "failed to refresh pool")
	}
	return nil
}

func poolStateString(state libvirt.StoragePoolState) string {
	switch state {
	case libvirt.StoragePoolInactive:
		return "inactive"
	case libvirt.StoragePoolBuilding:
		return "building"
	case libvirt.StoragePoolRunning:
		return "running"
	case libvirt.StoragePoolDegraded:
		return "degraded"
	case libvirt.StoragePoolInaccessible:
		return "inaccessible"
	default:
		return "unknown"
	}
}
