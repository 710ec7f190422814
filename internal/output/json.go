package output

import (
	"encoding/json"
	"fmt"

	"github.com/jbweber/hostvirt/internal/fleet"
	"github.com/jbweber/hostvirt/internal/host"
	"github.com/jbweber/hostvirt/internal/storage"
	"github.com/jbweber/hostvirt/internal/vm"
)

// JSONFormatter formats results as JSON. Lists are always arrays, never null.
type JSONFormatter struct{}

func marshalJSON(v any, what string) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s to JSON: %w", what, err)
	}
	return string(data) + "\n", nil
}

// FormatStatuses formats statuses as a JSON array.
func (f *JSONFormatter) FormatStatuses(results []fleet.Result) (string, error) {
	if len(results) == 0 {
		return "[]\n", nil
	}
	return marshalJSON(results, "statuses")
}

// FormatDomains formats domains as a JSON array.
func (f *JSONFormatter) FormatDomains(domains []vm.Info) (string, error) {
	if len(domains) == 0 {
		return "[]\n", nil
	}
	return marshalJSON(domains, "domains")
}

// FormatVolumes formats volumes as a JSON array.
func (f *JSONFormatter) FormatVolumes(volumes []storage.VolumeInfo) (string, error) {
	if len(volumes) == 0 {
		return "[]\n", nil
	}
	return marshalJSON(volumes, "volumes")
}

// FormatPools formats pools as a JSON array.
func (f *JSONFormatter) FormatPools(pools []storage.PoolInfo) (string, error) {
	if len(pools) == 0 {
		return "[]\n", nil
	}
	return marshalJSON(pools, "pools")
}

// FormatPing formats a ping report as a JSON object.
func (f *JSONFormatter) FormatPing(info *host.PingInfo) (string, error) {
	return marshalJSON(info, "ping report")
}
