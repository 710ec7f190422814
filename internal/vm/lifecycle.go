package vm

import (
	"context"
	"errors"

	"github.com/digitalocean/go-libvirt"
	"go.uber.org/zap"

	"github.com/jbweber/hostvirt/internal/metrics"
	"github.com/jbweber/hostvirt/internal/virterr"
)

// transition describes one state-changing call and the checks around it.
type transition struct {
	op string

	// check inspects the current state before the native call. When skip is
	// true the native call is not made and result is returned as is.
	// A nil check skips the state read.
	check func(state State) (skip bool, result bool)

	// call issues the native request.
	call func(lv libvirtClient, dom libvirt.Domain) error

	// absorb reports native errors that mean the change is already in place.
	absorb func(err error) bool

	// absentOK treats a missing domain as already done.
	absentOK bool

	// declinable maps a raw VIR_ERR_OPERATION_INVALID from call to a false
	// result. Errors call has already classified are never declined.
	declinable bool
}

// run resolves the domain and applies t.
func (m *Manager) run(ctx context.Context, host, id string, t transition) (bool, error) {
	log := m.logger.With(zap.String("op", t.op), zap.String("host", host), zap.String("uuid", id))

	result := false
	outcome := metrics.ResultSuccess

	err := m.withDomain(ctx, host, id, func(lv libvirtClient, dom libvirt.Domain) error {
		if t.check != nil {
			state, err := domainState(lv, dom)
			if err != nil {
				return err
			}
			if skip, res := t.check(state); skip {
				result = res
				if res {
					outcome = metrics.ResultNoop
					log.Debug("domain already in target state", zap.Stringer("state", state))
				} else {
					outcome = metrics.ResultDeclined
					log.Info("transition not applicable in current state", zap.Stringer("state", state))
				}
				return nil
			}
		}

		err := t.call(lv, dom)
		switch {
		case err == nil:
			result = true
			log.Info("transition applied")
			return nil
		case t.absorb != nil && t.absorb(err):
			result = true
			outcome = metrics.ResultNoop
			log.Debug("change already in place", zap.Error(err))
			return nil
		case t.declinable && isDeclined(err):
			metrics.ObserveNativeError(uint32(virterr.CodeOperationInvalid))
			outcome = metrics.ResultDeclined
			log.Warn("hypervisor declined transition", zap.Error(err))
			return nil
		default:
			return virterr.Wrap(err, t.op)
		}
	})

	if err != nil {
		if t.absentOK && virterr.IsDomainNotExist(err) {
			log.Debug("domain already absent")
			metrics.ObserveOperation(t.op, metrics.ResultNoop)
			return true, nil
		}
		return false, m.fail(t.op, host, id, err)
	}

	metrics.ObserveOperation(t.op, outcome)
	return result, nil
}

func isDeclined(err error) bool {
	var classified *virterr.HypervisorError
	if errors.As(err, &classified) {
		return false
	}
	code, ok := virterr.NativeCode(err)
	return ok && code == virterr.CodeOperationInvalid
}

// Start powers the domain on. A running domain is left alone.
func (m *Manager) Start(ctx context.Context, host, id string) (bool, error) {
	return m.run(ctx, host, id, transition{
		op: opStart,
		check: func(s State) (bool, bool) {
			return s.IsRunning(), true
		},
		call: func(lv libvirtClient, dom libvirt.Domain) error {
			return lv.DomainCreate(dom)
		},
		declinable: true,
	})
}

// Reboot asks the guest to reboot. A domain that is not running can not be
// rebooted and yields false without a native call.
func (m *Manager) Reboot(ctx context.Context, host, id string) (bool, error) {
	return m.run(ctx, host, id, transition{
		op: opReboot,
		check: func(s State) (bool, bool) {
			return !s.IsRunning(), false
		},
		call: func(lv libvirtClient, dom libvirt.Domain) error {
			return lv.DomainReboot(dom, libvirt.DomainRebootDefault)
		},
		declinable: true,
	})
}

// Shutdown asks the guest to shut down gracefully. It returns once the
// request is delivered, not when the guest has stopped.
func (m *Manager) Shutdown(ctx context.Context, host, id string) (bool, error) {
	return m.run(ctx, host, id, transition{
		op: opShutdown,
		check: func(s State) (bool, bool) {
			return !s.IsRunning(), true
		},
		call: func(lv libvirtClient, dom libvirt.Domain) error {
			return lv.DomainShutdown(dom)
		},
		declinable: true,
	})
}

// Poweroff force-stops the domain.
func (m *Manager) Poweroff(ctx context.Context, host, id string) (bool, error) {
	return m.run(ctx, host, id, transition{
		op: opPoweroff,
		check: func(s State) (bool, bool) {
			return !s.IsRunning(), true
		},
		call: func(lv libvirtClient, dom libvirt.Domain) error {
			return lv.DomainDestroy(dom)
		},
		declinable: true,
	})
}

// Undefine removes the domain's persistent definition, including NVRAM. A
// domain that does not exist is already undefined.
func (m *Manager) Undefine(ctx context.Context, host, id string) (bool, error) {
	return m.run(ctx, host, id, transition{
		op: opUndefine,
		call: func(lv libvirtClient, dom libvirt.Domain) error {
			return lv.DomainUndefineFlags(dom, libvirt.DomainUndefineNvram)
		},
		absentOK:   true,
		declinable: true,
	})
}
