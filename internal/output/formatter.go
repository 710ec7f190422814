// Package output provides formatters for displaying hostvirt results
// in various formats (table, YAML, JSON).
package output

import (
	"fmt"

	"github.com/jbweber/hostvirt/internal/fleet"
	"github.com/jbweber/hostvirt/internal/host"
	"github.com/jbweber/hostvirt/internal/storage"
	"github.com/jbweber/hostvirt/internal/vm"
)

// Format represents an output format type.
type Format string

const (
	// FormatTable is a human-readable table format.
	FormatTable Format = "table"
	// FormatYAML is a YAML format for scripting and target lists.
	FormatYAML Format = "yaml"
	// FormatJSON is a JSON format for machine consumption.
	FormatJSON Format = "json"
)

// Formatter formats hostvirt results for output.
type Formatter interface {
	// FormatStatuses formats per-target domain states.
	FormatStatuses(results []fleet.Result) (string, error)

	// FormatDomains formats the domains of one host.
	FormatDomains(domains []vm.Info) (string, error)

	// FormatVolumes formats the volumes of one pool.
	FormatVolumes(volumes []storage.VolumeInfo) (string, error)

	// FormatPools formats the storage pools of one host.
	FormatPools(pools []storage.PoolInfo) (string, error)

	// FormatPing formats a host connectivity report.
	FormatPing(info *host.PingInfo) (string, error)
}

// Options contains options for formatting output.
type Options struct {
	// Format specifies the output format.
	Format Format
	// NoHeaders omits headers in table format.
	NoHeaders bool
}

// NewFormatter creates a new Formatter based on the specified format.
func NewFormatter(opts Options) (Formatter, error) {
	switch opts.Format {
	case FormatTable:
		return &TableFormatter{NoHeaders: opts.NoHeaders}, nil
	case FormatYAML:
		return &YAMLFormatter{}, nil
	case FormatJSON:
		return &JSONFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s (supported: table, yaml, json)", opts.Format)
	}
}

// ValidateFormat checks if a format string is valid.
func ValidateFormat(format string) error {
	f := Format(format)
	switch f {
	case FormatTable, FormatYAML, FormatJSON:
		return nil
	default:
		return fmt.Errorf("invalid format: %s (valid formats: table, yaml, json)", format)
	}
}
