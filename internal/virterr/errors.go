package virterr

import (
	"errors"
	"fmt"

	"github.com/digitalocean/go-libvirt"
)

// Code is a native libvirt error number (virErrorNumber).
type Code uint32

// Native error numbers hostvirt inspects. Values come from libvirt's
// virterror.h and are stable across releases.
const (
	CodeOK                Code = 0
	CodeInternalError     Code = 1
	CodeNoConnect         Code = 5
	CodeInvalidArg        Code = 8
	CodeOperationFailed   Code = 9
	CodeSystemError       Code = 38
	CodeAuthFailed        Code = 45
	CodeNoDomain          Code = 42
	CodeNoStoragePool     Code = 49
	CodeNoStorageVol      Code = 50
	CodeOperationInvalid  Code = 55
	CodeOperationTimeout  Code = 68
	CodeAgentUnresponsive Code = 86
	CodeDeviceMissing     Code = 99
)

// HostDownError reports that a host could not be reached before or while
// opening a connection to its hypervisor.
type HostDownError struct {
	Host string
	Err  error
}

func (e *HostDownError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("host %s is down: %v", e.Host, e.Err)
	}
	return fmt.Sprintf("host %s is down", e.Host)
}

// Unwrap returns the underlying transport error, if any.
func (e *HostDownError) Unwrap() error {
	return e.Err
}

// HypervisorError is any native libvirt failure other than "domain not found".
type HypervisorError struct {
	Code    Code
	Message string
	Err     error
}

func (e *HypervisorError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("libvirt error %d: %s", e.Code, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("libvirt error %d: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("libvirt error %d", e.Code)
}

// Unwrap returns the native error.
func (e *HypervisorError) Unwrap() error {
	return e.Err
}

// DomainNotExistError reports a domain identifier that is unknown to a
// reachable host. It carries the same native detail as HypervisorError.
type DomainNotExistError struct {
	HypervisorError
}

func (e *DomainNotExistError) Error() string {
	return "domain not found: " + e.HypervisorError.Error()
}

// Unwrap returns the native error.
func (e *DomainNotExistError) Unwrap() error {
	return e.Err
}

// NewHostDown builds a *HostDownError for host.
func NewHostDown(host string, err error) *HostDownError {
	return &HostDownError{Host: host, Err: err}
}

// InvalidArg reports a caller-supplied value rejected before any native call,
// using the code libvirt itself would return for it.
func InvalidArg(msg string, err error) *HypervisorError {
	if err != nil {
		msg = msg + ": " + err.Error()
	}
	return &HypervisorError{Code: CodeInvalidArg, Message: msg, Err: err}
}

// NativeCode extracts the libvirt error number from err. The second return
// value is false when err does not carry a native libvirt error.
func NativeCode(err error) (Code, bool) {
	var lerr libvirt.Error
	if errors.As(err, &lerr) {
		return Code(lerr.Code), true
	}
	var perr *libvirt.Error
	if errors.As(err, &perr) && perr != nil {
		return Code(perr.Code), true
	}
	return 0, false
}

// nativeMessage returns the message libvirt attached to err, or err.Error()
// when err is not a native error.
func nativeMessage(err error) string {
	var lerr libvirt.Error
	if errors.As(err, &lerr) {
		return lerr.Message
	}
	var perr *libvirt.Error
	if errors.As(err, &perr) && perr != nil {
		return perr.Message
	}
	return err.Error()
}

// Classify maps a native error to the typed hierarchy. Errors that are already
// classified pass through unchanged, so Classify is safe to apply at every
// boundary. A nil error stays nil.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var (
		hostDown *HostDownError
		notExist *DomainNotExistError
		hvErr    *HypervisorError
	)
	if errors.As(err, &hostDown) || errors.As(err, &notExist) || errors.As(err, &hvErr) {
		return err
	}

	code, ok := NativeCode(err)
	if !ok {
		code = CodeInternalError
	}
	base := HypervisorError{Code: code, Message: nativeMessage(err), Err: err}
	if code == CodeNoDomain {
		return &DomainNotExistError{HypervisorError: base}
	}
	return &base
}

// Wrap classifies err and prefixes msg onto the native message, keeping the
// typed category and the native code intact.
func Wrap(err error, msg string) error {
	classified := Classify(err)
	if classified == nil || msg == "" {
		return classified
	}

	var notExist *DomainNotExistError
	if errors.As(classified, &notExist) {
		out := *notExist
		out.Message = msg + ": " + out.Message
		return &out
	}
	var hvErr *HypervisorError
	if errors.As(classified, &hvErr) {
		out := *hvErr
		out.Message = msg + ": " + out.Message
		return &out
	}
	return fmt.Errorf("%s: %w", msg, classified)
}

// IsHostDown reports whether err is, or wraps, a *HostDownError.
func IsHostDown(err error) bool {
	var e *HostDownError
	return errors.As(err, &e)
}

// IsDomainNotExist reports whether err is, or wraps, a *DomainNotExistError.
func IsDomainNotExist(err error) bool {
	var e *DomainNotExistError
	return errors.As(err, &e)
}

// IsHypervisor reports whether err is a generic *HypervisorError.
func IsHypervisor(err error) bool {
	var e *HypervisorError
	return errors.As(err, &e)
}

// CodeOf returns the native code carried by a classified error, or the raw
// native code when err has not been classified yet. It returns CodeOK for nil.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	var notExist *DomainNotExistError
	if errors.As(err, &notExist) {
		return notExist.Code
	}
	var hvErr *HypervisorError
	if errors.As(err, &hvErr) {
		return hvErr.Code
	}
	if code, ok := NativeCode(err); ok {
		return code
	}
	return CodeInternalError
}
