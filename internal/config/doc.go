// Package config loads the bewardctl configuration file.
//
// The file is YAML and holds connection defaults, the networks swept when no
// target is given on the command line, and credential groups used to log in
// to the intercoms:
//
//	version: 1
//	defaults:
//	  port: 80
//	  timeout: 5s
//	  workers: 8
//	networks:
//	  - 192.168.10.0/24
//	credentials:
//	  - group: admin
//	    username: admin
//	    password: admin
//	  - group: admin
//	    username: admin
//	    password: s3cret
//	    hosts: [192.168.10.0/28]
//
// # Configuration File Location
//
// Unless overridden, the file lives in the platform configuration directory:
//   - Linux: $XDG_CONFIG_HOME/bewardctl/config.yaml or $HOME/.config/bewardctl/config.yaml
//   - macOS: $HOME/.config/bewardctl/config.yaml
//   - Windows: %LOCALAPPDATA%\bewardctl\config.yaml
//
// A missing file is not an error; Load returns the defaults.
//
// # Security
//
// Passwords are stored in clear text because the devices only accept Basic
// auth. Save writes the file with user-only permissions.
package config
