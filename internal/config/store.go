package config

import (
	"errors"
	"fmt"
	"io"
	"net/netip"
	"os"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/term"
)

// ErrNoCredentials is returned when no credential entry matches a host.
var ErrNoCredentials = errors.New("no credentials configured")

// Store resolves device credentials from the configuration file.
type Store struct {
	entries []Credentials
}

// NewStore creates a Store over cfg's credential entries.
func NewStore(cfg *Config) *Store {
	return &Store{entries: cfg.Credentials}
}

// Candidates returns, in file order, every entry of group applying to host.
// An empty group matches all groups.
func (s *Store) Candidates(host, group string) []Credentials {
	return lo.Filter(s.entries, func(c Credentials, _ int) bool {
		return (group == "" || c.Group == group) && c.appliesTo(host)
	})
}

// Lookup returns the first entry of group applying to host.
func (s *Store) Lookup(host, group string) (Credentials, error) {
	matches := s.Candidates(host, group)
	if len(matches) == 0 {
		if group == "" {
			return Credentials{}, fmt.Errorf("%w for %s", ErrNoCredentials, host)
		}
		return Credentials{}, fmt.Errorf("%w for %s in group %q", ErrNoCredentials, host, group)
	}
	return matches[0], nil
}

// Groups lists the distinct group names in file order.
func (s *Store) Groups() []string {
	return lo.Uniq(lo.Map(s.entries, func(c Credentials, _ int) string { return c.Group }))
}

func (c Credentials) appliesTo(host string) bool {
	if len(c.Hosts) == 0 {
		return true
	}
	addr, addrErr := netip.ParseAddr(host)
	for _, h := range c.Hosts {
		if strings.EqualFold(h, host) {
			return true
		}
		if addrErr != nil || !strings.Contains(h, "/") {
			continue
		}
		if prefix, err := netip.ParsePrefix(h); err == nil && prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// PromptPassword asks for a password on the terminal without echo. It
// fails when stdin is not a terminal.
func PromptPassword(w io.Writer, prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("password required: stdin is not a terminal")
	}
	fmt.Fprint(w, prompt)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(pw), nil
}
