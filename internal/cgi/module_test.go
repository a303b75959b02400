package cgi

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/beward-tools/bewardctl/internal/protocol"
)

const ntpPath = "cgi-bin/ntp_cgi"

func loadedNTP(t *testing.T, body string) (*Module, *fakeTransport) {
	t.Helper()
	ft := newFakeTransport().on(ntpPath, "get", 200, body).on(ntpPath, "set", 200, "")
	m := New(ft, "ntp", ntpPath)
	if err := m.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return m, ft
}

func TestLoadStoresDataFields(t *testing.T) {
	m, ft := loadedNTP(t, "Enable=1\r\nServerAddress=pool.ntp.org\r\n")

	got, err := m.Get()
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(got) != 2 || got["Enable"] != "1" || got["ServerAddress"] != "pool.ntp.org" {
		t.Errorf("Get() = %v", got)
	}
	if !m.Loaded() {
		t.Error("Loaded() = false after Load")
	}

	req := ft.last()
	if req.Method != http.MethodGet {
		t.Errorf("method = %s, want GET", req.Method)
	}
	if req.Params.Get("action") != "get" {
		t.Errorf("action = %q, want get", req.Params.Get("action"))
	}
}

func TestLoadDropsMessageLines(t *testing.T) {
	m, _ := loadedNTP(t, "A=1\r\ngarbage\r\nB=x=y\r\nC=3")

	fields, err := m.Fields()
	if err != nil {
		t.Fatalf("Fields() error = %v", err)
	}
	want := []string{"A", "C"}
	if keys := fields.Keys(); len(keys) != len(want) || keys[0] != want[0] || keys[1] != want[1] {
		t.Errorf("Keys() = %v, want %v", keys, want)
	}
}

func TestLoadNotDefined(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"status 200", 200, "Error: cgi-bin/foo_cgi is not defined"},
		{"status 404", 404, "cgi-bin/foo_cgi is not defined"},
		{"inside a pair", 200, "Status=Action is not defined\r\nEnable=1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ft := newFakeTransport().on("cgi-bin/foo_cgi", "get", tt.status, tt.body)
			m := New(ft, "foo", "cgi-bin/foo_cgi")

			err := m.Load(context.Background())
			if !IsNotDefined(err) {
				t.Fatalf("Load() error = %v, want %q", err, MsgModuleNotDefined)
			}
			if m.Loaded() {
				t.Error("Loaded() = true after failed Load")
			}
		})
	}
}

func TestLoadNon200(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"device message", 500, "Internal failure", "Internal failure"},
		{"empty body", 401, "", MsgUnknownError},
		{"pairs only", 403, "Code=403", MsgUnknownError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ft := newFakeTransport().on(ntpPath, "get", tt.status, tt.body)
			m := New(ft, "ntp", ntpPath)

			err := m.Load(context.Background())
			var devErr *DeviceError
			if !errors.As(err, &devErr) {
				t.Fatalf("Load() error = %v, want *DeviceError", err)
			}
			if devErr.Type != ErrTypeTransport {
				t.Errorf("Type = %v, want %v", devErr.Type, ErrTypeTransport)
			}
			if devErr.Message != tt.message {
				t.Errorf("Message = %q, want %q", devErr.Message, tt.message)
			}
			if devErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", devErr.StatusCode, tt.status)
			}
		})
	}
}

func TestLoadMessageOn200(t *testing.T) {
	ft := newFakeTransport().on(ntpPath, "get", 200, "Bad request")
	m := New(ft, "ntp", ntpPath)

	err := m.Load(context.Background())
	if !IsProtocolError(err) {
		t.Fatalf("Load() error = %v, want protocol error", err)
	}
	var devErr *DeviceError
	errors.As(err, &devErr)
	if devErr.Message != "Parsing error: Bad request" {
		t.Errorf("Message = %q", devErr.Message)
	}
}

func TestLoadReplacesFields(t *testing.T) {
	ft := newFakeTransport().
		on(ntpPath, "get", 200, "A=1\r\nB=2").
		on(ntpPath, "get", 200, "C=3")
	m := New(ft, "ntp", ntpPath)
	ctx := context.Background()

	if err := m.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if err := m.Load(ctx); err != nil {
		t.Fatal(err)
	}
	got, _ := m.Get()
	if len(got) != 1 || got["C"] != "3" {
		t.Errorf("Get() = %v, want only C", got)
	}
}

func TestUpdateIgnoresUnknownKeys(t *testing.T) {
	m, _ := loadedNTP(t, "Enable=1\r\nServerAddress=pool.ntp.org")

	if err := m.Update(map[string]string{"Enable": "0", "Bogus": "x"}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	got, _ := m.Get()
	if got["Enable"] != "0" {
		t.Errorf("Enable = %q, want 0", got["Enable"])
	}
	if _, ok := got["Bogus"]; ok {
		t.Error("Update() added an unknown key")
	}
}

func TestGetReturnsCopy(t *testing.T) {
	m, _ := loadedNTP(t, "Enable=1")

	got, _ := m.Get()
	got["Enable"] = "changed"
	got["New"] = "x"

	again, _ := m.Get()
	if again["Enable"] != "1" || len(again) != 1 {
		t.Errorf("stored fields changed through Get(): %v", again)
	}
}

func TestSetSendsAllFields(t *testing.T) {
	ft := newFakeTransport().
		on(apartmentPath, "get", 200, "DoorCode=12345\r\nRegCode=54321\r\nLevel=1").
		on(apartmentPath, "set", 200, "")
	m := New(ft, "apartment", apartmentPath, WithParam("Number", "7"))
	ctx := context.Background()

	if err := m.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if got := ft.last().Params.Get("Number"); got != "7" {
		t.Errorf("load Number = %q, want 7", got)
	}
	_ = m.Update(map[string]string{"Level": "2"})
	if err := m.Set(ctx); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	req := ft.last()
	if req.Method != http.MethodPost {
		t.Errorf("method = %s, want POST", req.Method)
	}
	want := url.Values{
		"DoorCode": {"12345"},
		"RegCode":  {"54321"},
		"Level":    {"2"},
		"Number":   {"7"},
		"action":   {"set"},
	}
	if req.Params.Encode() != want.Encode() {
		t.Errorf("params = %s, want %s", req.Params.Encode(), want.Encode())
	}
}

func TestSetBeforeLoad(t *testing.T) {
	m := New(newFakeTransport(), "ntp", ntpPath)

	if err := m.Set(context.Background()); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("Set() error = %v, want ErrNotLoaded", err)
	}
}

func TestSetNon200(t *testing.T) {
	ft := newFakeTransport().on(ntpPath, "get", 200, "Enable=1").on(ntpPath, "set", 500, "oops")
	m := New(ft, "ntp", ntpPath)
	ctx := context.Background()
	if err := m.Load(ctx); err != nil {
		t.Fatal(err)
	}

	err := m.Set(ctx)
	var devErr *DeviceError
	if !errors.As(err, &devErr) {
		t.Fatalf("Set() error = %v", err)
	}
	if devErr.Message != "Error, 500" {
		t.Errorf("Message = %q, want %q", devErr.Message, "Error, 500")
	}
}

func TestEncoderRunsOnCopy(t *testing.T) {
	ft := newFakeTransport().on(ntpPath, "get", 200, "Enable=1").on(ntpPath, "set", 200, "")
	m := New(ft, "ntp", ntpPath, WithEncoder(func(f *protocol.Fields) (*protocol.Fields, error) {
		f.Set("Enable", "encoded")
		return f, nil
	}))
	ctx := context.Background()
	if err := m.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if err := m.Set(ctx); err != nil {
		t.Fatal(err)
	}

	if got := ft.last().Params.Get("Enable"); got != "encoded" {
		t.Errorf("sent Enable = %q, want encoded", got)
	}
	if v, _ := m.Value("Enable"); v != "1" {
		t.Errorf("stored Enable = %q, want 1", v)
	}
}

func TestCommandOnlyRefusesContract(t *testing.T) {
	ft := newFakeTransport()
	m := New(ft, "restart", "cgi-bin/restart_cgi", CommandOnly())
	ctx := context.Background()

	if err := m.Load(ctx); !IsUnsupported(err) {
		t.Errorf("Load() error = %v", err)
	}
	if _, err := m.Get(); !IsUnsupported(err) {
		t.Errorf("Get() error = %v", err)
	}
	if err := m.Update(map[string]string{"a": "b"}); !IsUnsupported(err) {
		t.Errorf("Update() error = %v", err)
	}
	if err := m.Set(ctx); !IsUnsupported(err) {
		t.Errorf("Set() error = %v", err)
	}
	if len(ft.requests) != 0 {
		t.Errorf("sent %d requests, want 0", len(ft.requests))
	}
}

func TestReadOnlyRefusesSet(t *testing.T) {
	ft := newFakeTransport().on(apartmentPath, "list", 200, "1=12345")
	m := New(ft, "apartments", apartmentPath, WithLoadAction("list"), ReadOnly())
	ctx := context.Background()
	if err := m.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if err := m.Set(ctx); !IsUnsupported(err) {
		t.Errorf("Set() error = %v, want unsupported", err)
	}
}

func TestCallReportsDeviceMessage(t *testing.T) {
	ft := newFakeTransport().on("cgi-bin/sip_cgi", "regstatus", 503, "Busy")
	m := New(ft, "sip", "cgi-bin/sip_cgi")

	_, err := m.Call(context.Background(), http.MethodGet, url.Values{"action": {"regstatus"}})
	var devErr *DeviceError
	if !errors.As(err, &devErr) || devErr.Message != "Busy" {
		t.Fatalf("Call() error = %v, want Busy", err)
	}
	if !IsRetryable(err) {
		t.Error("503 should be retryable")
	}
}

func TestTransportErrorPassesThrough(t *testing.T) {
	boom := errors.New("boom")
	ft := newFakeTransport().fail(ntpPath, "get", boom)
	m := New(ft, "ntp", ntpPath)

	if err := m.Load(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Load() error = %v, want boom", err)
	}
}
