package cgi

import (
	"context"
	"fmt"
	"slices"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/beward-tools/bewardctl/internal/keys"
	"github.com/beward-tools/bewardctl/internal/logging"
)

// Configurable is the contract every module offers to the CLI and the
// fleet runner. Command-only modules satisfy it but fail each call with
// ErrTypeUnsupported.
type Configurable interface {
	Name() string
	Path() string
	Load(ctx context.Context) error
	Get() (map[string]string, error)
	Update(values map[string]string) error
	Set(ctx context.Context) error
	Dumper
}

// Endpoints maps the names of plain parameter modules to their paths.
// These endpoints follow the load/set contract with no extra behavior.
var Endpoints = map[string]string{
	"audio":          "cgi-bin/audio_cgi",
	"controller":     "cgi-bin/controller_cgi",
	"display":        "cgi-bin/display_cgi",
	"gate":           "cgi-bin/gate_cgi",
	"intercom":       "cgi-bin/intercom_cgi",
	"intercomdu":     "cgi-bin/intercomdu_cgi",
	"network":        "cgi-bin/network_cgi",
	"ntp":            "cgi-bin/ntp_cgi",
	"rsyslog":        "cgi-bin/rsyslog_cgi",
	"rtsp":           "cgi-bin/rtsp_cgi",
	"systeminfo":     "cgi-bin/systeminfo_cgi",
	"textoverlay":    "cgi-bin/textoverlay_cgi",
	"videocoding":    "cgi-bin/videocoding_cgi",
	"videoformat":    "cgi-bin/videoformat_cgi",
	"videoother":     "cgi-bin/videoother_cgi",
	"videoparameter": "cgi-bin/videoparameter_cgi",
	"watchdog":       "cgi-bin/watchdogip_cgi",
}

var specialModules = map[string]func(Transport) Configurable{
	"apartment":      func(t Transport) Configurable { return NewApartmentModule(t, "") },
	"apartments":     func(t Transport) Configurable { return NewApartmentsModule(t) },
	"date":           func(t Transport) Configurable { return NewDateModule(t) },
	"factorydefault": func(t Transport) Configurable { return NewFactoryDefaultModule(t) },
	"https":          func(t Transport) Configurable { return NewHTTPSModule(t) },
	"images":         func(t Transport) Configurable { return NewImagesModule(t) },
	"mifare":         func(t Transport) Configurable { return NewKeysModule(t, keys.MIFARE) },
	"osdposition":    func(t Transport) Configurable { return NewOSDPositionModule(t) },
	"restart":        func(t Transport) Configurable { return NewRestartModule(t) },
	"rfid":           func(t Transport) Configurable { return NewKeysModule(t, keys.RFID) },
	"sip":            func(t Transport) Configurable { return NewSipModule(t) },
	"upgrade":        func(t Transport) Configurable { return NewUpgradeModule(t) },
	"usercaps":       func(t Transport) Configurable { return NewUserCapabilitiesModule(t) },
	"videomask":      func(t Transport) Configurable { return NewVideoMaskModule(t) },
}

// Profiles lists the modules swept by a dump for each panel family.
var Profiles = map[string][]string{
	"default": {"ntp", "audio", "sip", "apartments", "rfid", "usercaps"},
	"dks": {
		"systeminfo", "textoverlay", "intercom", "intercomdu", "videocoding", "watchdog",
		"ntp", "rsyslog", "sip", "rfid", "mifare", "display", "https", "usercaps", "gate",
		"apartments", "audio", "rtsp",
	},
	"ds": {
		"systeminfo", "textoverlay", "videocoding", "watchdog", "ntp", "rsyslog", "sip",
		"display", "https", "gate", "audio", "rtsp", "controller",
	},
}

// LookupEndpoint returns the path of a plain parameter module.
func LookupEndpoint(name string) (string, bool) {
	path, ok := Endpoints[name]
	return path, ok
}

// NewByName creates a plain parameter module from the registry.
func NewByName(t Transport, name string) (*Module, error) {
	path, ok := LookupEndpoint(name)
	if !ok {
		return nil, fmt.Errorf("unknown module %q", name)
	}
	return New(t, name, path), nil
}

// Open creates any known module, plain or specialised, by name.
func Open(t Transport, name string) (Configurable, error) {
	if ctor, ok := specialModules[name]; ok {
		return ctor(t), nil
	}
	return NewByName(t, name)
}

// ModuleNames returns every name accepted by Open, sorted.
func ModuleNames() []string {
	names := append(lo.Keys(Endpoints), lo.Keys(specialModules)...)
	slices.Sort(names)
	return names
}

// ProfileModules returns the module names of profile.
func ProfileModules(profile string) ([]string, error) {
	names, ok := Profiles[profile]
	if !ok {
		return nil, fmt.Errorf("unknown profile %q, want one of %v", profile, lo.Keys(Profiles))
	}
	return append([]string(nil), names...), nil
}

// DumpModules loads each named module and collects its section into one
// document. A module the panel does not offer is skipped; any other
// failure aborts the sweep.
func DumpModules(ctx context.Context, t Transport, names []string) (*Document, error) {
	doc := NewDocument()
	for _, name := range lo.Uniq(names) {
		m, err := Open(t, name)
		if err != nil {
			return nil, err
		}
		if err := m.Load(ctx); err != nil {
			if IsNotDefined(err) {
				logging.Debug("module not offered by panel", zap.String("module", name))
				continue
			}
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if err := m.DumpTo(doc); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}
	return doc, nil
}

// RestoreModules applies every section of doc that names a known module:
// each module is loaded, restored from its section and set. Keys modules
// also upload their key database when the dump has one. Sections that name
// no module, such as Keys, are skipped.
func RestoreModules(ctx context.Context, t Transport, doc *Document) ([]string, error) {
	var restored []string
	for _, name := range doc.Names() {
		m, err := Open(t, name)
		if err != nil {
			continue
		}
		if err := m.Load(ctx); err != nil {
			return restored, fmt.Errorf("%s: %w", name, err)
		}
		if err := m.RestoreFrom(doc); err != nil {
			return restored, fmt.Errorf("%s: %w", name, err)
		}
		if err := m.Set(ctx); err != nil && !IsUnsupported(err) {
			return restored, fmt.Errorf("%s: %w", name, err)
		}
		if km, ok := m.(*KeysModule); ok && km.Restored() {
			if err := km.Upload(ctx); err != nil {
				return restored, fmt.Errorf("%s keys: %w", name, err)
			}
		}
		restored = append(restored, name)
	}
	return restored, nil
}
