package vm

import (
	"context"
	"fmt"

	"github.com/digitalocean/go-libvirt"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jbweber/hostvirt/internal/virterr"
)

// Info represents information about a domain.
type Info struct {
	UUID       string `json:"uuid" yaml:"uuid"`
	Name       string `json:"name" yaml:"name"`
	State      State  `json:"state" yaml:"state"`
	StateLabel string `json:"state_label" yaml:"state_label"`
	VCPUs      uint16 `json:"vcpus" yaml:"vcpus"`
	MemoryMiB  uint64 `json:"memory_mib" yaml:"memory_mib"`
}

// List lists all domains on host (both running and stopped).
//
// Domains whose details can not be read, typically because they were
// undefined mid-listing, are skipped with a warning.
func (m *Manager) List(ctx context.Context, host string) ([]Info, error) {
	var infos []Info
	err := m.withHost(ctx, host, func(lv libvirtClient) error {
		domains, err := listAllDomains(lv)
		if err != nil {
			return err
		}

		infos = make([]Info, 0, len(domains))
		for _, dom := range domains {
			info, err := getDomainInfo(lv, dom)
			if err != nil {
				m.logger.Warn("failed to get domain info",
					zap.String("host", host),
					zap.String("domain", dom.Name),
					zap.Error(err),
				)
				continue
			}
			infos = append(infos, info)
		}
		return nil
	})
	if err != nil {
		return nil, virterr.Classify(err)
	}
	return infos, nil
}

// getDomainInfo gets detailed information about a single domain.
func getDomainInfo(lv libvirtClient, dom libvirt.Domain) (Info, error) {
	state, _, memory, nrVirtCPU, _, err := lv.DomainGetInfo(dom)
	if err != nil {
		return Info{}, fmt.Errorf("failed to get domain info: %w", err)
	}

	s := State(state)
	return Info{
		UUID:       uuid.UUID(dom.UUID).String(),
		Name:       dom.Name,
		State:      s,
		StateLabel: s.String(),
		VCPUs:      nrVirtCPU,
		// Convert memory from KiB to MiB
		MemoryMiB: memory / 1024,
	}, nil
}
