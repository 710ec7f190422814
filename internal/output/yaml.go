package output

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/jbweber/hostvirt/internal/fleet"
	"github.com/jbweber/hostvirt/internal/host"
	"github.com/jbweber/hostvirt/internal/storage"
	"github.com/jbweber/hostvirt/internal/vm"
)

// YAMLFormatter formats results as YAML.
type YAMLFormatter struct{}

func marshalYAML(v any, what string) (string, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s to YAML: %w", what, err)
	}
	return string(data), nil
}

// FormatStatuses formats statuses as a YAML sequence.
func (f *YAMLFormatter) FormatStatuses(results []fleet.Result) (string, error) {
	if len(results) == 0 {
		return "[]\n", nil
	}
	return marshalYAML(results, "statuses")
}

// FormatDomains formats domains as a YAML sequence.
func (f *YAMLFormatter) FormatDomains(domains []vm.Info) (string, error) {
	if len(domains) == 0 {
		return "[]\n", nil
	}
	return marshalYAML(domains, "domains")
}

// FormatVolumes formats volumes as a YAML sequence.
func (f *YAMLFormatter) FormatVolumes(volumes []storage.VolumeInfo) (string, error) {
	if len(volumes) == 0 {
		return "[]\n", nil
	}
	return marshalYAML(volumes, "volumes")
}

// FormatPools formats pools as a YAML sequence.
func (f *YAMLFormatter) FormatPools(pools []storage.PoolInfo) (string, error) {
	if len(pools) == 0 {
		return "[]\n", nil
	}
	return marshalYAML(pools, "pools")
}

// FormatPing formats a ping report as a YAML mapping.
func (f *YAMLFormatter) FormatPing(info *host.PingInfo) (string, error) {
	return marshalYAML(info, "ping report")
}
