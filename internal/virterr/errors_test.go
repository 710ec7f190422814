package virterr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/digitalocean/go-libvirt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantNil      bool
		wantNotExist bool
		wantHV       bool
		wantCode     Code
	}{
		{
			name:    "nil stays nil",
			err:     nil,
			wantNil: true,
		},
		{
			name:         "no domain becomes DomainNotExist",
			err:          libvirt.Error{Code: uint32(CodeNoDomain), Message: "Domain not found: no domain with matching uuid"},
			wantNotExist: true,
			wantCode:     CodeNoDomain,
		},
		{
			name:     "operation invalid stays generic",
			err:      libvirt.Error{Code: uint32(CodeOperationInvalid), Message: "domain is not running"},
			wantHV:   true,
			wantCode: CodeOperationInvalid,
		},
		{
			name:     "wrapped native error keeps its code",
			err:      fmt.Errorf("lookup: %w", libvirt.Error{Code: uint32(CodeNoStoragePool), Message: "pool missing"}),
			wantHV:   true,
			wantCode: CodeNoStoragePool,
		},
		{
			name:     "non-native error maps to internal error",
			err:      errors.New("broken pipe"),
			wantHV:   true,
			wantCode: CodeInternalError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if tt.wantNil {
				assert.NoError(t, got)
				return
			}
			require.Error(t, got)
			assert.Equal(t, tt.wantNotExist, IsDomainNotExist(got))
			assert.Equal(t, tt.wantHV, IsHypervisor(got))
			assert.False(t, IsHostDown(got))
			assert.Equal(t, tt.wantCode, CodeOf(got))
		})
	}
}

func TestClassify_PassesThroughClassifiedErrors(t *testing.T) {
	hostDown := NewHostDown("10.0.0.1", errors.New("no route"))
	assert.Same(t, hostDown, Classify(hostDown))

	classified := Classify(libvirt.Error{Code: uint32(CodeNoDomain), Message: "gone"})
	assert.Equal(t, classified, Classify(classified))

	wrapped := fmt.Errorf("outer: %w", classified)
	assert.Equal(t, wrapped, Classify(wrapped))
}

func TestWrap(t *testing.T) {
	err := Wrap(libvirt.Error{Code: uint32(CodeOperationFailed), Message: "qemu died"}, "failed to start domain")
	require.Error(t, err)

	var hvErr *HypervisorError
	require.ErrorAs(t, err, &hvErr)
	assert.Equal(t, CodeOperationFailed, hvErr.Code)
	assert.Equal(t, "failed to start domain: qemu died", hvErr.Message)

	err = Wrap(libvirt.Error{Code: uint32(CodeNoDomain), Message: "gone"}, "lookup")
	assert.True(t, IsDomainNotExist(err))
	assert.Contains(t, err.Error(), "lookup: gone")

	assert.NoError(t, Wrap(nil, "anything"))
}

func TestHostDownError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewHostDown("192.168.1.10", cause)

	assert.True(t, IsHostDown(err))
	assert.True(t, IsHostDown(fmt.Errorf("connect: %w", err)))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "host 192.168.1.10 is down: connection refused", err.Error())
	assert.Equal(t, "host 192.168.1.10 is down", NewHostDown("192.168.1.10", nil).Error())
}

func TestNativeCode(t *testing.T) {
	code, ok := NativeCode(libvirt.Error{Code: uint32(CodeDeviceMissing)})
	assert.True(t, ok)
	assert.Equal(t, CodeDeviceMissing, code)

	_, ok = NativeCode(errors.New("plain"))
	assert.False(t, ok)

	assert.Equal(t, CodeOK, CodeOf(nil))
}
