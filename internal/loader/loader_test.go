package loader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jbweber/hostvirt/internal/fleet"
)

func TestLoadTargetsFromYAML_Valid(t *testing.T) {
	yaml := `
targets:
  - host: 10.0.0.12
    uuid: 6A1D5C4E-2F0B-4C59-9E35-0D7A8F1B2C3D
    name: web-1
  - host: ""
    uuid: 00000000-0000-4000-8000-0000000000ff
`

	targets, err := LoadTargetsFromYAML([]byte(yaml))
	if err != nil {
		t.Fatalf("LoadTargetsFromYAML() error = %v", err)
	}

	if len(targets) != 2 {
		t.Fatalf("Expected 2 targets, got %d", len(targets))
	}
	if targets[0].Host != "10.0.0.12" {
		t.Errorf("Expected host '10.0.0.12', got %s", targets[0].Host)
	}
	if targets[0].UUID != "6a1d5c4e-2f0b-4c59-9e35-0d7a8f1b2c3d" {
		t.Errorf("Expected lowercased UUID, got %s", targets[0].UUID)
	}
	if targets[0].Name != "web-1" {
		t.Errorf("Expected name 'web-1', got %s", targets[0].Name)
	}
	if targets[1].Host != "" {
		t.Errorf("Expected local host, got %s", targets[1].Host)
	}
}

func TestLoadTargetsFromYAML_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "empty list",
			yaml:    "targets: []",
			wantErr: "at least one entry",
		},
		{
			name:    "missing uuid",
			yaml:    "targets:\n  - host: 10.0.0.1\n",
			wantErr: "targets[0].uuid is required",
		},
		{
			name:    "bad uuid",
			yaml:    "targets:\n  - host: 10.0.0.1\n    uuid: web-1\n",
			wantErr: "is invalid",
		},
		{
			name:    "bad host",
			yaml:    "targets:\n  - host: hv01.example.com\n    uuid: 6a1d5c4e-2f0b-4c59-9e35-0d7a8f1b2c3d\n",
			wantErr: "targets[0].host",
		},
		{
			name: "duplicate",
			yaml: `targets:
  - host: 10.0.0.1
    uuid: 6a1d5c4e-2f0b-4c59-9e35-0d7a8f1b2c3d
  - host: 10.0.0.1
    uuid: 6A1D5C4E-2F0B-4C59-9E35-0D7A8F1B2C3D
`,
			wantErr: "duplicated",
		},
		{
			name:    "malformed yaml",
			yaml:    "targets: [",
			wantErr: "failed to unmarshal YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadTargetsFromYAML([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadTargets_FileNotFound(t *testing.T) {
	_, err := LoadTargets("/nonexistent/targets.yaml")
	if err == nil {
		t.Error("Expected error for nonexistent file, got nil")
	}
}

func TestSaveAndLoadTargets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.yaml")
	in := []fleet.Target{
		{Host: "10.0.0.12", UUID: "6a1d5c4e-2f0b-4c59-9e35-0d7a8f1b2c3d", Name: "web-1"},
	}

	if err := SaveTargets(in, path); err != nil {
		t.Fatalf("SaveTargets() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("file not written: %v", err)
	}

	out, err := LoadTargets(path)
	if err != nil {
		t.Fatalf("LoadTargets() error = %v", err)
	}
	if len(out) != 1 || out[0] != in[0] {
		t.Errorf("round trip = %+v, want %+v", out, in)
	}
}
