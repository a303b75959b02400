package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestGetConfigDir(t *testing.T) {
	if runtime.GOOS != "windows" && runtime.GOOS != "darwin" {
		t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
		dir, err := GetConfigDir()
		if err != nil {
			t.Fatalf("GetConfigDir() error = %v", err)
		}
		if dir != filepath.Join("/tmp/xdg", "bewardctl") {
			t.Errorf("GetConfigDir() = %s, want /tmp/xdg/bewardctl", dir)
		}
	}

	path, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}
	if filepath.Base(path) != "config.yaml" {
		t.Errorf("GetConfigPath() should end with 'config.yaml', got: %v", path)
	}
}

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Version != 1 {
		t.Errorf("Version = %d, want 1", cfg.Version)
	}
	d := cfg.Defaults
	if d.Port != 80 || d.HTTPS || d.Retries != 4 || d.Workers != 1 || !d.InsecureTLS {
		t.Errorf("Defaults = %+v", d)
	}
	if d.Timeout.Std() != 5*time.Second || d.RetryDelay.Std() != 500*time.Millisecond {
		t.Errorf("durations = %v, %v", d.Timeout.Std(), d.RetryDelay.Std())
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Defaults.Port != 80 {
		t.Errorf("Port = %d, want 80", cfg.Defaults.Port)
	}
}

func TestParse(t *testing.T) {
	doc := `
version: 1
defaults:
  port: 8080
  timeout: 10s
  retry_delay: 2
  workers: 4
networks:
  - 192.168.10.0/24
  - 10.0.0.5
credentials:
  - group: admin
    username: admin
    password: admin
  - group: user
    username: user
    password: user
`
	cfg, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Defaults.Port != 8080 || cfg.Defaults.Workers != 4 {
		t.Errorf("Defaults = %+v", cfg.Defaults)
	}
	if cfg.Defaults.Timeout.Std() != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", cfg.Defaults.Timeout.Std())
	}
	if cfg.Defaults.RetryDelay.Std() != 2*time.Second {
		t.Errorf("RetryDelay = %v, want 2s", cfg.Defaults.RetryDelay.Std())
	}
	if cfg.Defaults.Retries != 4 {
		t.Errorf("Retries = %d, want default 4", cfg.Defaults.Retries)
	}
	if len(cfg.Networks) != 2 || len(cfg.Credentials) != 2 {
		t.Errorf("Networks = %v, Credentials = %v", cfg.Networks, cfg.Credentials)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"version", "version: 2\n", "unsupported config version"},
		{"unknown field", "version: 1\nbogus: true\n", "failed to parse"},
		{"bad duration", "defaults:\n  timeout: soon\n", "invalid duration"},
		{"bad port", "defaults:\n  port: 70000\n", "out of range"},
		{"missing username", "credentials:\n  - group: admin\n    password: x\n", "username is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Parse() error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := New()
	cfg.Networks = []string{"10.0.0.0/30"}
	cfg.Credentials = []Credentials{{Group: "admin", Username: "admin", Password: "pw"}}
	cfg.Defaults.Timeout = Duration(3 * time.Second)

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm() != 0600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}
	if _, err := os.Stat(path + ".tmp"); !errors.Is(err, os.ErrNotExist) {
		t.Error("temporary file left behind")
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Defaults.Timeout.Std() != 3*time.Second {
		t.Errorf("Timeout = %v, want 3s", loaded.Defaults.Timeout.Std())
	}
	if len(loaded.Credentials) != 1 || loaded.Credentials[0].Password != "pw" {
		t.Errorf("Credentials = %+v", loaded.Credentials)
	}
	if !loaded.Defaults.InsecureTLS {
		t.Error("InsecureTLS lost on round trip")
	}
}
