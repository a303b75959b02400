package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/beward-tools/bewardctl/internal/fleet"
)

func TestResultRender(t *testing.T) {
	out := NewSuccessResult("Configuration restored",
		Detail{Key: "Host", Value: "10.0.0.2"},
		Detail{Key: "Modules", Value: "3"},
	).SetWidth(80).Render()

	for _, want := range []string{"SUCCESS", "Configuration restored", "10.0.0.2"} {
		if !strings.Contains(out, want) {
			t.Errorf("Render() missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "Host:") > strings.Index(out, "Modules:") {
		t.Error("details rendered out of order")
	}
}

func TestFailureRender(t *testing.T) {
	out := NewFailureResult("Load failed", errors.New("connection refused"), []string{"Check the address"}).
		SetWidth(80).Render()

	for _, want := range []string{"FAILED", "connection refused", "Troubleshooting:", "Check the address"} {
		if !strings.Contains(out, want) {
			t.Errorf("Render() missing %q:\n%s", want, out)
		}
	}
}

func TestHeaderRender(t *testing.T) {
	out := NewHeader("Configuration dump", "bewardctl dump", Detail{Key: "Targets", Value: "2 hosts"}).
		SetWidth(70).Render()

	if !strings.Contains(out, "CONFIGURATION DUMP") || !strings.Contains(out, "2 hosts") {
		t.Errorf("Render() =\n%s", out)
	}
}

func TestReportTable(t *testing.T) {
	report := &fleet.Report{
		RunID:    "run-1",
		Duration: 1500 * time.Millisecond,
		Results: []fleet.Result{
			{Host: "10.0.0.2", Value: 5, Duration: 20 * time.Millisecond},
			{Host: "10.0.0.3", Err: errors.New("timeout")},
		},
	}

	out := ReportTable(report, func(v any) string { return "keys" })

	for _, want := range []string{"HOST", "10.0.0.2", "keys", "10.0.0.3", "timeout", "1 succeeded, 1 failed", "run-1"} {
		if !strings.Contains(out, want) {
			t.Errorf("ReportTable() missing %q:\n%s", want, out)
		}
	}
}

func TestConfirmDangerousOperation(t *testing.T) {
	var out strings.Builder

	if !ConfirmDangerousOperation(strings.NewReader("YES\n"), &out, "Test", []string{"warning"}) {
		t.Error("confirmation rejected")
	}
	if ConfirmDangerousOperation(strings.NewReader("yes please\n"), &out, "Test", nil) {
		t.Error("wrong phrase accepted")
	}
	if ConfirmDangerousOperation(strings.NewReader(""), &out, "Test", nil) {
		t.Error("empty input accepted")
	}
}
