package fleet

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/samber/lo"
)

// maxNetworkHosts bounds CIDR expansion so a typo like /8 does not
// produce millions of targets.
const maxNetworkHosts = 1 << 16

// ExpandTargets turns addresses, host names and CIDR networks into a host
// list. Networks contribute their host addresses only (network and
// broadcast addresses are skipped for IPv4 prefixes shorter than /31).
// Duplicates are dropped, keeping the first occurrence.
func ExpandTargets(targets []string) ([]string, error) {
	var hosts []string
	for _, raw := range targets {
		for _, t := range strings.Split(raw, ",") {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			if !strings.Contains(t, "/") {
				hosts = append(hosts, t)
				continue
			}
			expanded, err := expandPrefix(t)
			if err != nil {
				return nil, err
			}
			hosts = append(hosts, expanded...)
		}
	}
	return lo.Uniq(hosts), nil
}

func expandPrefix(s string) ([]string, error) {
	prefix, err := netip.ParsePrefix(s)
	if err != nil {
		return nil, fmt.Errorf("invalid network %q: %w", s, err)
	}
	prefix = prefix.Masked()

	hostBits := prefix.Addr().BitLen() - prefix.Bits()
	if hostBits > 16 {
		return nil, fmt.Errorf("network %s has more than %d hosts", prefix, maxNetworkHosts)
	}

	var out []string
	for addr := prefix.Addr(); prefix.Contains(addr); addr = addr.Next() {
		out = append(out, addr.String())
		if !addr.Next().IsValid() {
			break
		}
	}
	if prefix.Addr().Is4() && hostBits >= 2 {
		out = out[1 : len(out)-1]
	}
	return out, nil
}

// ReadTargets parses a targets file body: one target per line, blank lines
// and lines starting with '#' ignored.
func ReadTargets(data []byte) []string {
	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
