package libvirt

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/jbweber/hostvirt/internal/virterr"
)

// SSHConfig describes how to reach a remote libvirtd through an ssh tunnel,
// the equivalent of a qemu+ssh://host/system URI.
type SSHConfig struct {
	User                  string
	Port                  int
	PrivateKeyPath        string
	KnownHostsPath        string
	InsecureIgnoreHostKey bool
	UseAgent              bool
	RemoteSocket          string
	Timeout               time.Duration
}

// DefaultSSHConfig returns the settings used when none are configured.
func DefaultSSHConfig() SSHConfig {
	return SSHConfig{
		User:           "root",
		Port:           22,
		PrivateKeyPath: "~/.ssh/id_rsa",
		KnownHostsPath: "~/.ssh/known_hosts",
		UseAgent:       true,
		RemoteSocket:   DefaultSocketPath,
		Timeout:        10 * time.Second,
	}
}

// expandHome replaces a leading "~/" with the current user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// clientConfig builds the ssh client configuration. The returned cleanup
// releases the agent connection, if one was opened, and must be called once
// the handshake is done.
func (c SSHConfig) clientConfig() (*ssh.ClientConfig, func(), error) {
	cleanup := func() {}

	var auth []ssh.AuthMethod
	if c.UseAgent {
		if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
			conn, err := net.Dial("unix", sock)
			if err == nil {
				auth = append(auth, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
				cleanup = func() { _ = conn.Close() }
			}
		}
	}

	if c.PrivateKeyPath != "" {
		key, err := os.ReadFile(expandHome(c.PrivateKeyPath))
		switch {
		case err == nil:
			signer, err := ssh.ParsePrivateKey(key)
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("failed to parse private key %s: %w", c.PrivateKeyPath, err)
			}
			auth = append(auth, ssh.PublicKeys(signer))
		case errors.Is(err, os.ErrNotExist) && len(auth) > 0:
			// agent auth is enough
		default:
			cleanup()
			return nil, nil, fmt.Errorf("failed to read private key %s: %w", c.PrivateKeyPath, err)
		}
	}

	if len(auth) == 0 {
		cleanup()
		return nil, nil, fmt.Errorf("no ssh authentication method available")
	}

	var hostKeyCallback ssh.HostKeyCallback
	if c.InsecureIgnoreHostKey {
		hostKeyCallback = ssh.InsecureIgnoreHostKey()
	} else {
		cb, err := knownhosts.New(expandHome(c.KnownHostsPath))
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to load known hosts %s: %w", c.KnownHostsPath, err)
		}
		hostKeyCallback = cb
	}

	return &ssh.ClientConfig{
		User:            c.User,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         c.Timeout,
	}, cleanup, nil
}

// sshDialer satisfies go-libvirt's socket.Dialer by opening an ssh session to
// the host and forwarding a stream to libvirtd's unix socket.
type sshDialer struct {
	addr         string
	remoteSocket string
	config       SSHConfig
}

func newSSHDialer(host string, cfg SSHConfig) *sshDialer {
	port := cfg.Port
	if port == 0 {
		port = 22
	}
	remote := cfg.RemoteSocket
	if remote == "" {
		remote = DefaultSocketPath
	}
	return &sshDialer{
		addr:         net.JoinHostPort(host, strconv.Itoa(port)),
		remoteSocket: remote,
		config:       cfg,
	}
}

// Dial opens the tunnel. Closing the returned conn also closes the ssh client.
//
// Only a failure to open the TCP connection is returned as a plain error. Bad
// local ssh settings, a rejected handshake and a failed forward to libvirtd
// come back as a *virterr.HypervisorError, since the host itself answered.
func (d *sshDialer) Dial() (net.Conn, error) {
	clientCfg, cleanup, err := d.config.clientConfig()
	if err != nil {
		return nil, &virterr.HypervisorError{
			Code:    virterr.CodeAuthFailed,
			Message: "invalid ssh client configuration: " + err.Error(),
			Err:     err,
		}
	}
	defer cleanup()

	dialer := net.Dialer{Timeout: d.config.Timeout}
	tcpConn, err := dialer.Dial("tcp", d.addr)
	if err != nil {
		return nil, fmt.Errorf("ssh dial %s: %w", d.addr, err)
	}

	if d.config.Timeout > 0 {
		_ = tcpConn.SetDeadline(time.Now().Add(d.config.Timeout))
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(tcpConn, d.addr, clientCfg)
	if err != nil {
		_ = tcpConn.Close()
		return nil, &virterr.HypervisorError{
			Code:    virterr.CodeAuthFailed,
			Message: fmt.Sprintf("ssh handshake with %s: %v", d.addr, err),
			Err:     err,
		}
	}
	_ = tcpConn.SetDeadline(time.Time{})
	client := ssh.NewClient(sshConn, chans, reqs)

	conn, err := client.Dial("unix", d.remoteSocket)
	if err != nil {
		_ = client.Close()
		return nil, &virterr.HypervisorError{
			Code:    virterr.CodeNoConnect,
			Message: fmt.Sprintf("ssh forward to %s on %s: %v", d.remoteSocket, d.addr, err),
			Err:     err,
		}
	}

	return &tunnelConn{Conn: conn, client: client}, nil
}

// tunnelConn ties the lifetime of the ssh client to the forwarded stream.
type tunnelConn struct {
	net.Conn
	client *ssh.Client
}

func (c *tunnelConn) Close() error {
	err := c.Conn.Close()
	if cerr := c.client.Close(); err == nil {
		err = cerr
	}
	return err
}
