// Package host binds a hypervisor host address to the operations that act on
// the host as a whole: connectivity checks, domain listing and storage pools.
//
// Like the domain facade in internal/vm, a Host opens a fresh connection for
// every call and never holds one between calls.
package host

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	hostlibvirt "github.com/jbweber/hostvirt/internal/libvirt"
	"github.com/jbweber/hostvirt/internal/storage"
	"github.com/jbweber/hostvirt/internal/virterr"
	"github.com/jbweber/hostvirt/internal/vm"
)

// libvirtClient is the subset of the libvirt API a Host needs.
type libvirtClient interface {
	storage.LibvirtClient
	ConnectGetHostname() (string, error)
	ConnectGetLibVersion() (uint64, error)
	ConnectGetUri() (string, error)
	Close() error
}

// domainLister lists the domains defined on a host.
type domainLister interface {
	List(ctx context.Context, host string) ([]vm.Info, error)
}

type dialFunc func(ctx context.Context, host string) (libvirtClient, error)

// Host is a handle on one hypervisor host.
type Host struct {
	address string
	dial    dialFunc
	domains domainLister
	logger  *zap.Logger
}

// PingInfo describes a reachable hypervisor.
type PingInfo struct {
	Host       string `json:"host" yaml:"host"`
	Hostname   string `json:"hostname" yaml:"hostname"`
	LibVersion string `json:"lib_version" yaml:"lib_version"`
	URI        string `json:"uri" yaml:"uri"`
}

// New returns a Host for address ("" for the local hypervisor).
func New(address string, connector *hostlibvirt.Connector, logger *zap.Logger) *Host {
	dial := func(ctx context.Context, host string) (libvirtClient, error) {
		c, err := connector.Connect(ctx, host)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return newWithDeps(address, dial, vm.NewManager(connector, logger), logger)
}

func newWithDeps(address string, dial dialFunc, domains domainLister, logger *zap.Logger) *Host {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Host{
		address: address,
		dial:    dial,
		domains: domains,
		logger:  logger.With(zap.String("host", address)),
	}
}

// Address returns the host address.
func (h *Host) Address() string {
	return h.address
}

func (h *Host) connect(ctx context.Context) (libvirtClient, error) {
	c, err := h.dial(ctx, h.address)
	if err != nil {
		if virterr.IsHostDown(err) {
			return nil, err
		}
		return nil, virterr.Wrap(err, "connect")
	}
	return c, nil
}

func (h *Host) release(c libvirtClient) {
	if err := c.Close(); err != nil {
		h.logger.Warn("failed to close connection", zap.Error(err))
	}
}

// Ping connects to the host and reports what is on the other end.
func (h *Host) Ping(ctx context.Context) (*PingInfo, error) {
	c, err := h.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer h.release(c)

	version, err := c.ConnectGetLibVersion()
	if err != nil {
		return nil, virterr.Wrap(err, "failed to get libvirt version")
	}
	hostname, err := c.ConnectGetHostname()
	if err != nil {
		return nil, virterr.Wrap(err, "failed to get hypervisor hostname")
	}
	uri, err := c.ConnectGetUri()
	if err != nil {
		return nil, virterr.Wrap(err, "failed to get connection URI")
	}

	return &PingInfo{
		Host:       h.address,
		Hostname:   hostname,
		LibVersion: FormatVersion(version),
		URI:        uri,
	}, nil
}

// ListDomains lists every domain defined on the host.
func (h *Host) ListDomains(ctx context.Context) ([]vm.Info, error) {
	return h.domains.List(ctx, h.address)
}

// ListStoragePools lists every storage pool on the host.
func (h *Host) ListStoragePools(ctx context.Context) ([]storage.PoolInfo, error) {
	c, err := h.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer h.release(c)

	return storage.NewManager(c, h.logger).ListPools(ctx)
}

// PoolInfo returns details of the named storage pool.
func (h *Host) PoolInfo(ctx context.Context, name string) (*storage.PoolInfo, error) {
	c, err := h.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer h.release(c)

	return storage.NewManager(c, h.logger).GetPoolInfo(ctx, name)
}

// PoolHandle is a pool controller that owns its connection.
type PoolHandle struct {
	*storage.Pool

	conn libvirtClient
}

// Close closes the connection behind the pool.
func (p *PoolHandle) Close() error {
	return p.conn.Close()
}

// OpenPool returns a controller for the named pool on a fresh connection.
// The caller closes it when done.
func (h *Host) OpenPool(ctx context.Context, name string) (*PoolHandle, error) {
	c, err := h.connect(ctx)
	if err != nil {
		return nil, err
	}
	return &PoolHandle{Pool: storage.NewPool(c, name, h.logger), conn: c}, nil
}

// FormatVersion renders libvirt's packed version number as major.minor.release.
func FormatVersion(v uint64) string {
	return fmt.Sprintf("%d.%d.%d", v/1000000, (v/1000)%1000, v%1000)
}
