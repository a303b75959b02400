package cgi

import (
	"context"
	"strings"
	"testing"
	"time"
)

func fastVerification() *VerificationOptions {
	return &VerificationOptions{MaxRetries: 2}
}

func TestDefaultVerificationOptions(t *testing.T) {
	opts := DefaultVerificationOptions()

	if opts.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", opts.MaxRetries)
	}
	if opts.InitialDelay != 500*time.Millisecond {
		t.Errorf("InitialDelay = %v, want 500ms", opts.InitialDelay)
	}
	if !opts.UseExponentialBackoff || opts.MaxRetryDelay != 5*time.Second {
		t.Errorf("backoff = %v, max %v", opts.UseExponentialBackoff, opts.MaxRetryDelay)
	}
}

func TestSetAndVerifySuccess(t *testing.T) {
	ft := newFakeTransport().
		on(ntpPath, "get", 200, "Enable=1").
		on(ntpPath, "get", 200, "Enable=1").
		on(ntpPath, "get", 200, "Enable=0").
		on(ntpPath, "set", 200, "")
	m := New(ft, "ntp", ntpPath)
	ctx := context.Background()
	if err := m.Load(ctx); err != nil {
		t.Fatal(err)
	}

	result := SetAndVerify(ctx, m, map[string]string{"Enable": "0", "Ignored": "x"}, fastVerification())
	if !result.Success {
		t.Fatalf("SetAndVerify() failed: %v", result.Error)
	}
	if result.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", result.Attempts)
	}
}

func TestSetAndVerifyMismatch(t *testing.T) {
	ft := newFakeTransport().
		on(ntpPath, "get", 200, "Enable=1").
		on(ntpPath, "set", 200, "")
	m := New(ft, "ntp", ntpPath)
	ctx := context.Background()
	if err := m.Load(ctx); err != nil {
		t.Fatal(err)
	}

	result := SetAndVerify(ctx, m, map[string]string{"Enable": "0"}, fastVerification())
	if result.Success {
		t.Fatal("SetAndVerify() succeeded on a device that ignores the change")
	}
	if result.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", result.Attempts)
	}
	if len(result.Mismatches) != 1 || !strings.Contains(result.Error.Error(), "verification failed") {
		t.Errorf("Mismatches = %v, Error = %v", result.Mismatches, result.Error)
	}
}

func TestVerifyCancelled(t *testing.T) {
	m := New(newFakeTransport(), "ntp", ntpPath)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := VerifyWithRetry(ctx, m, nil, &VerificationOptions{InitialDelay: time.Hour})
	if result.Error == nil || result.Success {
		t.Errorf("VerifyWithRetry() = %+v, want cancellation", result)
	}
}

func TestSafeUpdateRollsBack(t *testing.T) {
	ft := newFakeTransport().
		on(ntpPath, "get", 200, "Enable=1"). // snapshot
		on(ntpPath, "get", 200, "Enable=1"). // verification attempts never see the change
		on(ntpPath, "set", 200, "")
	m := New(ft, "ntp", ntpPath)
	ctx := context.Background()
	if err := m.Load(ctx); err != nil {
		t.Fatal(err)
	}

	rm := NewRollbackManager(m)
	result := rm.SafeUpdate(ctx, map[string]string{"Enable": "0"}, fastVerification(), "disable ntp")
	if result.Success {
		t.Fatal("SafeUpdate() succeeded")
	}
	if !result.RollbackAttempted || !result.RollbackSucceeded {
		t.Errorf("rollback attempted %v succeeded %v: %v", result.RollbackAttempted, result.RollbackSucceeded, result.Error)
	}
	if snap := rm.LatestSnapshot(); snap == nil || snap.Fields["Enable"] != "1" {
		t.Errorf("LatestSnapshot() = %+v", snap)
	}
	if !strings.Contains(result.String(), "rolled back") {
		t.Errorf("String() = %q", result.String())
	}
}

func TestRollbackManagerLimitsSnapshots(t *testing.T) {
	ft := newFakeTransport().on(ntpPath, "get", 200, "Enable=1")
	rm := NewRollbackManager(New(ft, "ntp", ntpPath))
	ctx := context.Background()

	for i := 0; i < maxSnapshots+3; i++ {
		if err := rm.SaveSnapshot(ctx, "snap"); err != nil {
			t.Fatal(err)
		}
	}
	if n := len(rm.Snapshots()); n != maxSnapshots {
		t.Errorf("len(Snapshots()) = %d, want %d", n, maxSnapshots)
	}
	rm.ClearSnapshots()
	if rm.LatestSnapshot() != nil {
		t.Error("LatestSnapshot() after clear != nil")
	}
	if r := rm.RollbackToLatest(ctx, nil); r.Error == nil {
		t.Error("RollbackToLatest() without snapshots succeeded")
	}
}

func TestDestructiveWarning(t *testing.T) {
	current := map[string]string{"IPAddress": "10.0.0.2", "Gateway": "10.0.0.1"}

	if w := DestructiveWarning("network", current, map[string]string{"IPAddress": "10.0.0.3"}); !strings.Contains(w, "IPAddress") {
		t.Errorf("DestructiveWarning() = %q", w)
	}
	if w := DestructiveWarning("network", current, map[string]string{"Gateway": "10.0.0.1"}); w != "" {
		t.Errorf("unchanged value warned: %q", w)
	}
	if w := DestructiveWarning("ntp", current, map[string]string{"IPAddress": "x"}); w != "" {
		t.Errorf("ntp change warned: %q", w)
	}
}
