package cgi

import (
	"strings"
	"testing"
)

func TestValidateChanges(t *testing.T) {
	tests := []struct {
		name    string
		module  string
		changes map[string]string
		want    int
	}{
		{"valid network", "network", map[string]string{"IPAddress": "192.168.10.21", "SubnetMask": "255.255.255.0", "HTTPPort": "80"}, 0},
		{"bad address", "network", map[string]string{"IPAddress": "192.168.10.300"}, 1},
		{"ipv6 address", "network", map[string]string{"Gateway": "fe80::1"}, 1},
		{"holey netmask", "network", map[string]string{"SubnetMask": "255.0.255.0"}, 1},
		{"empty DNS2", "network", map[string]string{"DNS2": ""}, 0},
		{"bad flag and port", "https", map[string]string{"HTTPSEnable": "yes", "HTTPSPort": "0"}, 2},
		{"empty ntp server", "ntp", map[string]string{"ServerAddress": ""}, 1},
		{"unchecked field", "network", map[string]string{"Hostname": "anything at all"}, 0},
		{"unchecked module", "audio", map[string]string{"SpeakerVolume": "loud"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateChanges(tt.module, tt.changes)
			if len(errs) != tt.want {
				t.Errorf("ValidateChanges() = %v, want %d errors", errs, tt.want)
			}
		})
	}
}

func TestFormatValidationErrors(t *testing.T) {
	if FormatValidationErrors(nil) != "" {
		t.Error("FormatValidationErrors(nil) should be empty")
	}

	out := FormatValidationErrors(ValidateChanges("network", map[string]string{"HTTPPort": "x", "DHCP": "2"}))
	if !strings.Contains(out, "network.DHCP") || !strings.Contains(out, "network.HTTPPort") {
		t.Errorf("FormatValidationErrors() = %q", out)
	}
	if strings.Index(out, "DHCP") > strings.Index(out, "HTTPPort") {
		t.Error("errors not in key order")
	}
}
