package naming

import (
	"fmt"
	"testing"
)

func TestValidateHost(t *testing.T) {
	tests := []struct {
		name    string
		host    string
		wantErr bool
	}{
		{name: "local", host: ""},
		{name: "IPv4", host: "10.20.30.40"},
		{name: "invalid IP", host: "not-an-ip", wantErr: true},
		{name: "IPv6 address", host: "2001:db8::1", wantErr: true},
		{name: "CIDR is not a host", host: "10.1.2.3/24", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateHost(tt.host)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateHost(%q) error = %v, wantErr %v", tt.host, err, tt.wantErr)
			}
		})
	}
}

func TestNextDiskTarget(t *testing.T) {
	all := []string{"vda"}
	for c := 'b'; c <= 'z'; c++ {
		all = append(all, fmt.Sprintf("vd%c", c))
	}

	tests := []struct {
		name   string
		used   []string
		want   string
		wantOK bool
	}{
		{name: "no disks", used: nil, want: "vdb", wantOK: true},
		{name: "system disk only", used: []string{"vda"}, want: "vdb", wantOK: true},
		{name: "gap is filled first", used: []string{"vda", "vdb", "vdd"}, want: "vdc", wantOK: true},
		{name: "unordered", used: []string{"vdc", "vda", "vdb"}, want: "vdd", wantOK: true},
		{name: "case insensitive", used: []string{"VDB"}, want: "vdc", wantOK: true},
		{name: "other buses ignored", used: []string{"sda", "hda"}, want: "vdb", wantOK: true},
		{name: "exhausted", used: all, want: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NextDiskTarget(tt.used)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("NextDiskTarget(%v) = (%q, %v), want (%q, %v)", tt.used, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestVolumeNameData(t *testing.T) {
	got := VolumeNameData("4f1c2d3e-0000-4000-8000-000000000001", "vdb")
	want := "4f1c2d3e-0000-4000-8000-000000000001_data-vdb.qcow2"
	if got != want {
		t.Errorf("VolumeNameData() = %q, want %q", got, want)
	}
}
