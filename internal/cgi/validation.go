package cgi

import (
	"errors"
	"fmt"
	"net/netip"
	"slices"
	"strconv"
	"strings"
)

type fieldRule func(value string) error

func ipv4Rule(value string) error {
	addr, err := netip.ParseAddr(value)
	if err != nil || !addr.Is4() {
		return fmt.Errorf("must be an IPv4 address, got %q", value)
	}
	return nil
}

func netmaskRule(value string) error {
	if err := ipv4Rule(value); err != nil {
		return err
	}
	b := netip.MustParseAddr(value).As4()
	mask := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	// Contiguous: the inverted mask plus one is a power of two.
	if inv := ^mask; inv&(inv+1) != 0 {
		return fmt.Errorf("%q is not a contiguous netmask", value)
	}
	return nil
}

func portRule(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("must be a port 1-65535, got %q", value)
	}
	return nil
}

func flagRule(value string) error {
	if value != "0" && value != "1" {
		return fmt.Errorf("must be 0 or 1, got %q", value)
	}
	return nil
}

func hostRule(value string) error {
	if value == "" {
		return errors.New("cannot be empty")
	}
	if len(value) > 253 || strings.ContainsAny(value, " /\\") {
		return fmt.Errorf("%q is not a valid host name", value)
	}
	return nil
}

// fieldRules checks values that can make a panel unreachable or stop a
// service when they are wrong. Other fields are passed to the device as is.
var fieldRules = map[string]map[string]fieldRule{
	"network": {
		"IPAddress":  ipv4Rule,
		"SubnetMask": netmaskRule,
		"Gateway":    ipv4Rule,
		"DNS1":       ipv4Rule,
		"DNS2":       ipv4Rule,
		"HTTPPort":   portRule,
		"DHCP":       flagRule,
	},
	"https": {
		"HTTPSEnable": flagRule,
		"HTTPSPort":   portRule,
	},
	"ntp": {
		"Enable":        flagRule,
		"ServerAddress": hostRule,
	},
	"rtsp": {
		"RTSPPort": portRule,
	},
	"rsyslog": {
		"Enable":        flagRule,
		"ServerAddress": hostRule,
		"ServerPort":    portRule,
	},
}

// ValidateChanges checks changes destined for module and returns one
// error per invalid field, in key order. An empty DNS2 is allowed.
func ValidateChanges(module string, changes map[string]string) []error {
	rules := fieldRules[module]
	if rules == nil {
		return nil
	}

	keys := make([]string, 0, len(changes))
	for k := range changes {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var errs []error
	for _, k := range keys {
		rule, ok := rules[k]
		if !ok || (k == "DNS2" && changes[k] == "") {
			continue
		}
		if err := rule(changes[k]); err != nil {
			errs = append(errs, fmt.Errorf("%s.%s: %w", module, k, err))
		}
	}
	return errs
}

// FormatValidationErrors formats validation errors as a bulleted list.
func FormatValidationErrors(errs []error) string {
	if len(errs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Validation errors:\n")
	for _, err := range errs {
		fmt.Fprintf(&b, "  • %s\n", err)
	}
	return b.String()
}
