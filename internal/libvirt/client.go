package libvirt

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/digitalocean/go-libvirt"
	"github.com/digitalocean/go-libvirt/socket"
	"github.com/digitalocean/go-libvirt/socket/dialers"
	"go.uber.org/zap"

	"github.com/jbweber/hostvirt/internal/virterr"
)

const (
	// DefaultSocketPath is libvirtd's system socket (qemu:///system).
	DefaultSocketPath = "/var/run/libvirt/libvirt-sock"

	// DefaultTimeout bounds opening the local socket.
	DefaultTimeout = 5 * time.Second
)

// Client is a connection to one host's hypervisor. The embedded
// *libvirt.Libvirt exposes the native API, so a Client satisfies the
// consumer-side interfaces declared by internal/vm, internal/storage and
// internal/host.
//
// A Client is bound to the host it was opened against and must not be reused
// for another host.
type Client struct {
	*libvirt.Libvirt

	host string
}

// Host returns the address the client was opened against ("" for local).
func (c *Client) Host() string {
	return c.host
}

// Close closes the libvirt connection and releases resources.
// It is safe to call Close multiple times.
func (c *Client) Close() error {
	if c == nil || c.Libvirt == nil {
		return nil
	}

	if err := c.Libvirt.Disconnect(); err != nil {
		return fmt.Errorf("failed to disconnect from libvirt: %w", err)
	}
	c.Libvirt = nil

	return nil
}

// Ping verifies the connection is still alive by calling a simple libvirt API.
func (c *Client) Ping() error {
	if c == nil || c.Libvirt == nil {
		return fmt.Errorf("client not connected")
	}

	if _, err := c.Libvirt.ConnectGetLibVersion(); err != nil {
		return virterr.Wrap(err, "libvirt connection is dead")
	}

	return nil
}

// Reachability decides whether a remote host is worth a connection attempt.
type Reachability interface {
	Alive(ctx context.Context, host string) bool
}

// ConnectorConfig holds the transport settings for a Connector.
type ConnectorConfig struct {
	// SocketPath is the local libvirtd socket used when host is empty.
	SocketPath string
	// Timeout bounds opening the local socket.
	Timeout time.Duration
	// SSH configures the tunnel used for remote hosts.
	SSH SSHConfig
}

// Connector opens a fresh connection per call. Connections are never pooled or
// cached, so a handle can not outlive a reconnect on the remote side.
type Connector struct {
	cfg    ConnectorConfig
	probe  Reachability
	logger *zap.Logger

	// dialerFor picks the transport for host; replaced in tests.
	dialerFor func(host string) socket.Dialer
}

// NewConnector returns a Connector. A nil probe disables the reachability
// pre-check for remote hosts.
func NewConnector(cfg ConnectorConfig, probe Reachability, logger *zap.Logger) *Connector {
	if cfg.SocketPath == "" {
		cfg.SocketPath = DefaultSocketPath
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Connector{cfg: cfg, probe: probe, logger: logger}
	c.dialerFor = c.defaultDialer
	return c
}

func (c *Connector) defaultDialer(host string) socket.Dialer {
	if host == "" {
		return dialers.NewLocal(
			dialers.WithSocket(c.cfg.SocketPath),
			dialers.WithLocalTimeout(c.cfg.Timeout),
		)
	}
	return newSSHDialer(host, c.cfg.SSH)
}

// Connect opens a connection to host's hypervisor. An empty host means the
// local hypervisor and skips the reachability probe.
//
// A remote host that fails the probe, or whose TCP connection can not be
// opened, yields a *virterr.HostDownError without attempting the libvirt
// handshake. SSH setup and handshake failures, and libvirt handshake
// failures, are classified by virterr.
//
// If ctx ends first the connection attempt is abandoned; a connection that
// completes afterwards is closed in the background.
func (c *Connector) Connect(ctx context.Context, host string) (*Client, error) {
	if host != "" && c.probe != nil && !c.probe.Alive(ctx, host) {
		return nil, virterr.NewHostDown(host, fmt.Errorf("no reply to reachability probe"))
	}

	type result struct {
		client *Client
		err    error
	}
	resultCh := make(chan result, 1)

	go func() {
		cl, err := c.connect(host)
		resultCh <- result{client: cl, err: err}
	}()

	select {
	case <-ctx.Done():
		go func() {
			if res := <-resultCh; res.client != nil {
				_ = res.client.Close()
			}
		}()
		return nil, fmt.Errorf("connection to %q cancelled: %w", host, ctx.Err())
	case res := <-resultCh:
		return res.client, res.err
	}
}

func (c *Connector) connect(host string) (*Client, error) {
	c.logger.Debug("connecting to libvirt", zap.String("host", host))

	dialer := &recordingDialer{inner: c.dialerFor(host)}
	l := libvirt.NewWithDialer(dialer)
	if err := l.Connect(); err != nil {
		if dialErr := dialer.failure(); dialErr != nil {
			var hvErr *virterr.HypervisorError
			if errors.As(dialErr, &hvErr) {
				return nil, hvErr
			}
			return nil, virterr.NewHostDown(host, dialErr)
		}
		return nil, virterr.Wrap(err, "failed to open libvirt connection")
	}

	return &Client{Libvirt: l, host: host}, nil
}

// recordingDialer remembers a transport failure so it can be told apart from
// a failure of the libvirt handshake itself.
type recordingDialer struct {
	inner socket.Dialer

	mu  sync.Mutex
	err error
}

func (d *recordingDialer) Dial() (net.Conn, error) {
	conn, err := d.inner.Dial()
	if err != nil {
		d.mu.Lock()
		d.err = err
		d.mu.Unlock()
	}
	return conn, err
}

func (d *recordingDialer) failure() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// Connect establishes a connection to the local libvirt daemon.
// It returns a Client that must be closed via Close() when done.
//
// If socketPath is empty, defaults to DefaultSocketPath (qemu:///system).
// If timeout is zero, defaults to 5 seconds.
func Connect(socketPath string, timeout time.Duration) (*Client, error) {
	c := NewConnector(ConnectorConfig{SocketPath: socketPath, Timeout: timeout}, nil, nil)
	return c.connect("")
}
