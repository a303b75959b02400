package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// CurrentVersion is the only configuration format version understood.
const CurrentVersion = 1

// Config represents the entire configuration file.
type Config struct {
	Version     int           `yaml:"version"`
	Defaults    Defaults      `yaml:"defaults"`
	Networks    []string      `yaml:"networks,omitempty"`
	Credentials []Credentials `yaml:"credentials,omitempty"`
}

// Defaults holds connection settings applied when a flag is not given.
type Defaults struct {
	Port        int      `yaml:"port"`
	HTTPS       bool     `yaml:"https"`
	Timeout     Duration `yaml:"timeout"`
	Retries     int      `yaml:"retries"`
	RetryDelay  Duration `yaml:"retry_delay"`
	Workers     int      `yaml:"workers"`
	InsecureTLS bool     `yaml:"insecure_tls"` // Device certificates are self-signed
}

// Credentials is one login entry. Entries sharing a Group are tried in file
// order. An entry without Hosts applies to every device.
type Credentials struct {
	Group    string   `yaml:"group"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	Hosts    []string `yaml:"hosts,omitempty"` // Addresses or CIDR networks
}

// Duration is a time.Duration written as a Go duration string ("5s").
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler. Plain integers are seconds.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var secs int
	if err := node.Decode(&secs); err == nil {
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}

	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q", node.Line, s)
	}
	*d = Duration(v)
	return nil
}

// DefaultSettings returns the built-in connection defaults.
func DefaultSettings() Defaults {
	return Defaults{
		Port:        80,
		HTTPS:       false,
		Timeout:     Duration(5 * time.Second),
		Retries:     4,
		RetryDelay:  Duration(500 * time.Millisecond),
		Workers:     1,
		InsecureTLS: true,
	}
}

// New creates a Config with default values.
func New() *Config {
	return &Config{
		Version:  CurrentVersion,
		Defaults: DefaultSettings(),
	}
}

// applyDefaults fills zero settings after a partial file was decoded.
// Booleans are left alone, see Load.
func (c *Config) applyDefaults() {
	def := DefaultSettings()
	if c.Defaults.Port == 0 {
		c.Defaults.Port = def.Port
	}
	if c.Defaults.Timeout == 0 {
		c.Defaults.Timeout = def.Timeout
	}
	if c.Defaults.Retries == 0 {
		c.Defaults.Retries = def.Retries
	}
	if c.Defaults.RetryDelay == 0 {
		c.Defaults.RetryDelay = def.RetryDelay
	}
	if c.Defaults.Workers <= 0 {
		c.Defaults.Workers = def.Workers
	}
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return fmt.Errorf("unsupported config version: %d (expected %d)", c.Version, CurrentVersion)
	}
	if c.Defaults.Port < 1 || c.Defaults.Port > 65535 {
		return fmt.Errorf("defaults.port %d out of range", c.Defaults.Port)
	}
	if c.Defaults.Retries < 0 {
		return fmt.Errorf("defaults.retries must not be negative")
	}
	for i, cred := range c.Credentials {
		if cred.Username == "" {
			return fmt.Errorf("credentials[%d]: username is required", i)
		}
	}
	return nil
}
