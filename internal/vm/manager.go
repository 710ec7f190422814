package vm

import (
	"context"
	"fmt"

	"github.com/digitalocean/go-libvirt"
	"github.com/google/uuid"
	"go.uber.org/zap"

	hostlibvirt "github.com/jbweber/hostvirt/internal/libvirt"
	"github.com/jbweber/hostvirt/internal/metrics"
	"github.com/jbweber/hostvirt/internal/virterr"
)

// Operation names used for logging and metrics.
const (
	opStatus   = "status"
	opStart    = "start"
	opReboot   = "reboot"
	opShutdown = "shutdown"
	opPoweroff = "poweroff"
	opUndefine = "undefine"
	opDefine   = "define"
	opAttach   = "attach_device"
	opDetach   = "detach_device"
	opSetVCPUs = "set_vcpus"
	opSetMem   = "set_memory"
)

// dialFunc opens a fresh connection to host.
type dialFunc func(ctx context.Context, host string) (libvirtClient, error)

// Manager drives domains on any number of hosts. It holds no per-host or
// per-domain state and is safe for concurrent use.
type Manager struct {
	dial   dialFunc
	logger *zap.Logger
}

// NewManager returns a Manager that opens connections through connector.
func NewManager(connector *hostlibvirt.Connector, logger *zap.Logger) *Manager {
	return newManagerWithDeps(func(ctx context.Context, host string) (libvirtClient, error) {
		c, err := connector.Connect(ctx, host)
		if err != nil {
			return nil, err
		}
		return c, nil
	}, logger)
}

// newManagerWithDeps creates a Manager with an injected dialer.
// This allows for testing by accepting interfaces instead of concrete types.
func newManagerWithDeps(dial dialFunc, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{dial: dial, logger: logger}
}

// Handle is a resolved domain together with the connection it was resolved
// on. It must be closed by the caller and must not be kept across calls.
type Handle struct {
	lv   libvirtClient
	dom  libvirt.Domain
	host string
}

// Name returns the domain name.
func (h *Handle) Name() string { return h.dom.Name }

// UUID returns the domain UUID in canonical form.
func (h *Handle) UUID() string { return uuid.UUID(h.dom.UUID).String() }

// Host returns the host the domain was resolved on.
func (h *Handle) Host() string { return h.host }

// Close releases the underlying connection.
func (h *Handle) Close() error {
	return h.lv.Close()
}

// GetDomain opens a connection to host and resolves the domain by UUID.
// The host is reached before id is parsed, so an unreachable host is
// reported as such whatever the identifier.
func (m *Manager) GetDomain(ctx context.Context, host, id string) (*Handle, error) {
	lv, err := m.connect(ctx, host)
	if err != nil {
		return nil, err
	}

	domUUID, err := parseUUID(id)
	if err != nil {
		m.closeConn(lv, host)
		return nil, err
	}

	dom, err := lv.DomainLookupByUUID(domUUID)
	if err != nil {
		m.closeConn(lv, host)
		return nil, virterr.Wrap(err, fmt.Sprintf("lookup domain %s", id))
	}

	return &Handle{lv: lv, dom: dom, host: host}, nil
}

// withDomain resolves the domain, runs fn and closes the connection.
func (m *Manager) withDomain(ctx context.Context, host, id string, fn func(lv libvirtClient, dom libvirt.Domain) error) error {
	h, err := m.GetDomain(ctx, host, id)
	if err != nil {
		return err
	}
	defer m.closeConn(h.lv, host)

	return fn(h.lv, h.dom)
}

// withHost opens a connection, runs fn and closes the connection.
func (m *Manager) withHost(ctx context.Context, host string, fn func(lv libvirtClient) error) error {
	lv, err := m.connect(ctx, host)
	if err != nil {
		return err
	}
	defer m.closeConn(lv, host)

	return fn(lv)
}

func (m *Manager) connect(ctx context.Context, host string) (libvirtClient, error) {
	lv, err := m.dial(ctx, host)
	if err != nil {
		if virterr.IsHostDown(err) {
			return nil, err
		}
		return nil, virterr.Wrap(err, "connect")
	}
	return lv, nil
}

func (m *Manager) closeConn(lv libvirtClient, host string) {
	if err := lv.Close(); err != nil {
		m.logger.Warn("failed to close libvirt connection", zap.String("host", host), zap.Error(err))
	}
}

// fail classifies err and records it against op.
func (m *Manager) fail(op, host, id string, err error) error {
	classified := virterr.Classify(err)
	if !virterr.IsHostDown(classified) {
		metrics.ObserveNativeError(uint32(virterr.CodeOf(classified)))
	}
	metrics.ObserveOperation(op, metrics.ResultError)
	m.logger.Debug("operation failed",
		zap.String("op", op),
		zap.String("host", host),
		zap.String("uuid", id),
		zap.Error(classified),
	)
	return classified
}

func parseUUID(id string) (libvirt.UUID, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return libvirt.UUID{}, virterr.InvalidArg(fmt.Sprintf("invalid domain uuid %q", id), err)
	}
	return libvirt.UUID(u), nil
}

func domainState(lv libvirtClient, dom libvirt.Domain) (State, error) {
	state, _, err := lv.DomainGetState(dom, 0)
	if err != nil {
		return StateNoState, virterr.Wrap(err, "get domain state")
	}
	return State(state), nil
}

// Status reports the domain state and its label. An unreachable host yields
// StateHostDown and an unknown domain yields StateMiss, both without error.
// Any other failure is returned.
func (m *Manager) Status(ctx context.Context, host, id string) (State, string, error) {
	var state State
	err := m.withDomain(ctx, host, id, func(lv libvirtClient, dom libvirt.Domain) error {
		s, err := domainState(lv, dom)
		state = s
		return err
	})

	switch {
	case err == nil:
	case virterr.IsHostDown(err):
		state = StateHostDown
	case virterr.IsDomainNotExist(err):
		state = StateMiss
	default:
		return StateNoState, "", m.fail(opStatus, host, id, err)
	}

	metrics.ObserveDomainState(state.String())
	metrics.ObserveOperation(opStatus, metrics.ResultSuccess)
	return state, state.String(), nil
}

// State returns the native state of the domain. Unlike Status it fails for an
// unreachable host or an unknown domain.
func (m *Manager) State(ctx context.Context, host, id string) (State, error) {
	var state State
	err := m.withDomain(ctx, host, id, func(lv libvirtClient, dom libvirt.Domain) error {
		s, err := domainState(lv, dom)
		state = s
		return err
	})
	if err != nil {
		return StateNoState, virterr.Classify(err)
	}
	return state, nil
}

// IsRunning reports whether the domain is running, blocked, paused or
// suspended.
func (m *Manager) IsRunning(ctx context.Context, host, id string) (bool, error) {
	state, err := m.State(ctx, host, id)
	if err != nil {
		return false, err
	}
	return state.IsRunning(), nil
}

// IsShutoff reports whether the domain is shut off.
func (m *Manager) IsShutoff(ctx context.Context, host, id string) (bool, error) {
	state, err := m.State(ctx, host, id)
	if err != nil {
		return false, err
	}
	return state.IsShutoff(), nil
}

// Exists reports whether a domain with the UUID is defined or running on
// host, by enumerating all domains rather than looking the UUID up.
func (m *Manager) Exists(ctx context.Context, host, id string) (bool, error) {
	domUUID, err := parseUUID(id)
	if err != nil {
		return false, err
	}

	found := false
	err = m.withHost(ctx, host, func(lv libvirtClient) error {
		domains, err := listAllDomains(lv)
		if err != nil {
			return err
		}
		for _, dom := range domains {
			if dom.UUID == domUUID {
				found = true
				break
			}
		}
		return nil
	})
	if err != nil {
		return false, virterr.Classify(err)
	}
	return found, nil
}

// Define defines a persistent domain from its XML descriptor and returns the
// new domain's UUID.
func (m *Manager) Define(ctx context.Context, host, xml string) (string, error) {
	if err := validateDomainXML(xml); err != nil {
		return "", err
	}

	var id string
	err := m.withHost(ctx, host, func(lv libvirtClient) error {
		dom, err := lv.DomainDefineXML(xml)
		if err != nil {
			return virterr.Wrap(err, "define domain")
		}
		id = uuid.UUID(dom.UUID).String()
		return nil
	})
	if err != nil {
		return "", m.fail(opDefine, host, "", err)
	}

	m.logger.Info("domain defined", zap.String("host", host), zap.String("uuid", id))
	metrics.ObserveOperation(opDefine, metrics.ResultSuccess)
	return id, nil
}

// XMLDesc returns the domain's current XML descriptor.
func (m *Manager) XMLDesc(ctx context.Context, host, id string) (string, error) {
	return m.xmlDesc(ctx, host, id, 0)
}

func (m *Manager) xmlDesc(ctx context.Context, host, id string, flags libvirt.DomainXMLFlags) (string, error) {
	var desc string
	err := m.withDomain(ctx, host, id, func(lv libvirtClient, dom libvirt.Domain) error {
		x, err := lv.DomainGetXMLDesc(dom, flags)
		if err != nil {
			return virterr.Wrap(err, "get domain XML")
		}
		desc = x
		return nil
	})
	if err != nil {
		return "", virterr.Classify(err)
	}
	return desc, nil
}

// DiskTargets returns the source volume names and target devices of the
// domain's persistent disks, in document order.
func (m *Manager) DiskTargets(ctx context.Context, host, id string) ([]string, []string, error) {
	desc, err := m.xmlDesc(ctx, host, id, libvirt.DomainXMLInactive)
	if err != nil {
		return nil, nil, err
	}
	return DiskTargets(desc)
}

func listAllDomains(lv libvirtClient) ([]libvirt.Domain, error) {
	// NeedResults: 1 means populate the domains slice
	flags := libvirt.ConnectListDomainsActive | libvirt.ConnectListDomainsInactive
	domains, _, err := lv.ConnectListAllDomains(1, flags)
	if err != nil {
		return nil, virterr.Wrap(err, "list domains")
	}
	return domains, nil
}
