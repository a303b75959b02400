package cgi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/beward-tools/bewardctl/internal/capabilities"
)

const (
	pwdgrpPath = "cgi-bin/pwdgrp_cgi"
	osdPath    = "cgi-bin/osdposition_cgi"
)

func capsString(n int, value string) string {
	return strings.TrimSuffix(strings.Repeat(value+",", n), ",")
}

func TestUserCapabilitiesLoad(t *testing.T) {
	body := "UserCategory\r\n" +
		"admin:" + capsString(24, "1") + "\r\n" +
		"user1:" + capsString(32, "0") + "\r\n" +
		"broken:1,0\r\n"
	ft := newFakeTransport().on(pwdgrpPath, "get", 200, body)
	u := NewUserCapabilitiesModule(ft)
	ctx := context.Background()

	if err := u.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if u.Header() != "UserCategory" {
		t.Errorf("Header() = %q", u.Header())
	}
	if users := u.Users(); len(users) != 3 || users[0] != "admin" {
		t.Errorf("Users() = %v", users)
	}

	set, err := u.Capabilities("admin")
	if err != nil {
		t.Fatalf("Capabilities() error = %v", err)
	}
	if set.Len() != 24 || !set.Granted("System") {
		t.Errorf("admin set len %d", set.Len())
	}

	all, err := u.All(true)
	if !errors.Is(err, capabilities.ErrUnknownSchema) {
		t.Errorf("All() error = %v, want ErrUnknownSchema for broken", err)
	}
	if len(all) != 2 || len(all["user1"]) != 32 {
		t.Errorf("All() = %d users", len(all))
	}
	if all["admin"][0].Label == "" {
		t.Error("localized entries carry no label")
	}

	if err := u.Set(ctx); !IsUnsupported(err) {
		t.Errorf("Set() error = %v, want unsupported", err)
	}
}

func TestUserCapabilitiesMissingHeader(t *testing.T) {
	ft := newFakeTransport().on(pwdgrpPath, "get", 200, "admin:"+capsString(24, "1"))
	u := NewUserCapabilitiesModule(ft)

	err := u.Load(context.Background())
	var devErr *DeviceError
	if !errors.As(err, &devErr) || devErr.Message != MsgUnknownParse {
		t.Errorf("Load() error = %v, want %q", err, MsgUnknownParse)
	}
}

func TestApartmentGenerateCode(t *testing.T) {
	ft := newFakeTransport().
		on(apartmentPath, "get", 200, "DoorCode=11111\r\nRegCode=22222").
		on(apartmentPath, "get", 200, "DoorCode=98765\r\nRegCode=22222").
		on(apartmentPath, "set", 200, "")
	a := NewApartmentModule(ft, "")
	ctx := context.Background()

	if a.Number() != "1" {
		t.Errorf("Number() = %q, want default 1", a.Number())
	}
	if err := a.GenerateCode(ctx, DoorCode); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("GenerateCode() before Load error = %v", err)
	}
	if err := a.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if err := a.GenerateCode(ctx, DoorCode); err != nil {
		t.Fatalf("GenerateCode() error = %v", err)
	}

	set := ft.requests[len(ft.requests)-2]
	if set.Params.Get("DoorCode") != "generate" || set.Params.Get("Number") != "1" {
		t.Errorf("set params = %s", set.Params.Encode())
	}
	if v, _ := a.Value("DoorCode"); v != "98765" {
		t.Errorf("DoorCode after reload = %q", v)
	}
	if err := a.GenerateCode(ctx, "Other"); !IsUnsupported(err) {
		t.Errorf("GenerateCode(Other) error = %v", err)
	}
}

func TestApartmentsList(t *testing.T) {
	ft := newFakeTransport().on(apartmentPath, "list", 200, "1=12345\r\n2=54321")
	a := NewApartmentsModule(ft)

	list, err := a.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list["2"] != "54321" {
		t.Errorf("List() = %v", list)
	}
}

func TestVideoMaskDecode(t *testing.T) {
	ft := newFakeTransport().on("cgi-bin/videomask_cgi", "get", 200, "Enable=1\r\nMask1;0 Mask2;1\r\nX=1=2")
	m := NewVideoMaskModule(ft)

	if err := m.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	got, _ := m.Get()
	want := map[string]string{"Enable": "1", "Mask1": "0", "Mask2": "1", "X": "1;2"}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %q, want %q", k, got[k], v)
		}
	}
	if _, ok := got["message"]; ok {
		t.Error("message slot kept")
	}
}

func TestVideoMaskEmpty(t *testing.T) {
	ft := newFakeTransport().on("cgi-bin/videomask_cgi", "get", 200, "")
	m := NewVideoMaskModule(ft)

	if err := m.Load(context.Background()); !IsProtocolError(err) {
		t.Errorf("Load() error = %v, want protocol error", err)
	}
}

func TestSipCommands(t *testing.T) {
	ft := newFakeTransport().
		on("cgi-bin/sip_cgi", "regstatus", 200, "AccountReg1=1").
		on("cgi-bin/sip_cgi", "call", 200, "OK")
	s := NewSipModule(ft)
	ctx := context.Background()

	status, err := s.RegStatus(ctx)
	if err != nil || status.Value("AccountReg1") != "1" {
		t.Errorf("RegStatus() = %v, %v", status, err)
	}
	if _, err := s.Dial(ctx, "sip:100@10.0.0.1"); err != nil {
		t.Fatal(err)
	}
	if got := ft.last().Params.Get("Uri"); got != "sip:100@10.0.0.1" {
		t.Errorf("Uri = %q", got)
	}
}

func TestHTTPSCertificate(t *testing.T) {
	ft := newFakeTransport().
		on("cgi-bin/https_cgi", "createcert", 200, "").
		on("cgi-bin/https_cgi", "deletecert", 200, "").
		on("cgi-bin/https_cgi", "deletereq", 200, "Request not found")
	h := NewHTTPSModule(ft)
	ctx := context.Background()

	h.UpdateCertParams(map[string]string{"CommonName": "panel.local", "Days": "365", "Bogus": "x"})
	if _, ok := h.CertParams()["Bogus"]; ok {
		t.Error("unknown certificate parameter accepted")
	}
	if err := h.CreateCert(ctx); err != nil {
		t.Fatal(err)
	}
	if p := ft.last().Params; p.Get("CommonName") != "panel.local" || p.Get("Days") != "365" || !p.Has("Country") {
		t.Errorf("createcert params = %s", p.Encode())
	}
	if err := h.DeleteCert(ctx); err != nil {
		t.Errorf("DeleteCert() error = %v", err)
	}
	if err := h.DeleteRequest(ctx); !IsProtocolError(err) {
		t.Errorf("DeleteRequest() error = %v, want protocol error", err)
	}
}

func TestRestartAndReset(t *testing.T) {
	ft := newFakeTransport().
		on("cgi-bin/restart_cgi", "", 200, "OK").
		on("cgi-bin/factorydefault_cgi", "", 200, "OK").
		on("cgi-bin/hardfactorydefault_cgi", "", 500, "Failed")
	ctx := context.Background()

	if err := NewRestartModule(ft).Restart(ctx); err != nil {
		t.Errorf("Restart() error = %v", err)
	}
	reset := NewFactoryDefaultModule(ft)
	if err := reset.Reset(ctx); err != nil {
		t.Errorf("Reset() error = %v", err)
	}
	if err := reset.HardReset(ctx); !IsTransportError(err) {
		t.Errorf("HardReset() error = %v, want transport error", err)
	}
	if err := reset.Load(ctx); !IsUnsupported(err) {
		t.Errorf("Load() error = %v, want unsupported", err)
	}
}

func TestUpgrade(t *testing.T) {
	ft := newFakeTransport().on("cgi-bin/upgrade_cgi", "upgrade", 200, "OK")
	u := NewUpgradeModule(ft)

	if err := u.Upgrade(context.Background(), "fw.bin", []byte{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	req := ft.last()
	if req.Method != http.MethodPost || req.Timeout != UpgradeTimeout || len(req.Files) != 1 {
		t.Errorf("request = %+v", req)
	}
}

func TestOSDChangePosition(t *testing.T) {
	ft := newFakeTransport().
		on(osdPath, "Right", 500, "").
		on(osdPath, "Right", 200, "OK")
	o := NewOSDPositionModule(ft)

	// 20px is 2.5 steps, rounded to 2; the first fails and is retried once.
	if err := o.ChangePosition(context.Background(), OSDLabelTitle, "right", 1, 20); err != nil {
		t.Fatalf("ChangePosition() error = %v", err)
	}
	if n := ft.count(osdPath, "Right"); n != 3 {
		t.Errorf("sent %d moves, want 3", n)
	}
	req := ft.last()
	if req.Params.Get("channel") != "1" || req.Params.Get("value") != "2" {
		t.Errorf("params = %s", req.Params.Encode())
	}
}

func TestOSDChangePositionGivesUp(t *testing.T) {
	ft := newFakeTransport().on(osdPath, "Up", 500, "")
	o := NewOSDPositionModule(ft)

	if err := o.ChangePosition(context.Background(), OSDLabelDateTime, "Up", 0, 8); !IsProtocolError(err) {
		t.Errorf("ChangePosition() error = %v, want protocol error", err)
	}
}

func TestOSDChangePositionInvalid(t *testing.T) {
	o := NewOSDPositionModule(newFakeTransport())
	ctx := context.Background()

	for _, tc := range []struct {
		label     int
		direction string
		channel   int
	}{
		{3, "Up", 0},
		{1, "Sideways", 0},
		{1, "Up", 4},
	} {
		if err := o.ChangePosition(ctx, tc.label, tc.direction, tc.channel, 8); !IsDecodeError(err) {
			t.Errorf("ChangePosition(%v) error = %v, want decode error", tc, err)
		}
	}
}

func TestImagesSnapshot(t *testing.T) {
	ft := newFakeTransport().on("cgi-bin/images_cgi", "", 200, "\xff\xd8jpeg")
	img, err := NewImagesModule(ft).Snapshot(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if string(img) != "\xff\xd8jpeg" {
		t.Errorf("Snapshot() = %q", img)
	}
}
