// Package loader reads fleet target lists from YAML files.
package loader

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/jbweber/hostvirt/internal/fleet"
	"github.com/jbweber/hostvirt/internal/naming"
)

// TargetList is the on-disk form of a target list:
//
//	targets:
//	  - host: 10.0.0.12
//	    uuid: 6a1d5c4e-2f0b-4c59-9e35-0d7a8f1b2c3d
//	    name: web-1
type TargetList struct {
	Targets []fleet.Target `yaml:"targets"`
}

// LoadTargets loads a target list from a YAML file.
func LoadTargets(path string) ([]fleet.Target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	return LoadTargetsFromYAML(data)
}

// LoadTargetsFromYAML loads a target list from YAML bytes.
func LoadTargetsFromYAML(data []byte) ([]fleet.Target, error) {
	var list TargetList
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	applyDefaults(&list)

	if err := validateTargets(list.Targets); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return list.Targets, nil
}

// SaveTargets saves a target list to a YAML file.
func SaveTargets(targets []fleet.Target, path string) error {
	data, err := yaml.Marshal(TargetList{Targets: targets})
	if err != nil {
		return fmt.Errorf("failed to marshal targets to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}

	return nil
}

// applyDefaults normalizes optional fields.
func applyDefaults(list *TargetList) {
	for i := range list.Targets {
		t := &list.Targets[i]
		t.Host = strings.TrimSpace(t.Host)
		// Normalize UUIDs to lowercase
		t.UUID = strings.ToLower(strings.TrimSpace(t.UUID))
	}
}

// validateTargets checks every target for a usable host and identifier.
func validateTargets(targets []fleet.Target) error {
	if len(targets) == 0 {
		return fmt.Errorf("targets must have at least one entry")
	}

	seen := make(map[fleet.Target]bool)
	for i, t := range targets {
		if err := naming.ValidateHost(t.Host); err != nil {
			return fmt.Errorf("targets[%d].host: %w", i, err)
		}
		if t.UUID == "" {
			return fmt.Errorf("targets[%d].uuid is required", i)
		}
		if _, err := uuid.Parse(t.UUID); err != nil {
			return fmt.Errorf("targets[%d].uuid %q is invalid: %w", i, t.UUID, err)
		}

		key := fleet.Target{Host: t.Host, UUID: t.UUID}
		if seen[key] {
			return fmt.Errorf("targets[%d] %s is duplicated", i, key)
		}
		seen[key] = true
	}

	return nil
}
