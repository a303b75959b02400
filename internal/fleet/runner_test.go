package fleet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunnerOrderAndResults(t *testing.T) {
	hosts := []string{"10.0.0.1", "10.0.0.2", "10.0.0.3", "10.0.0.4", "10.0.0.5"}
	task := func(_ context.Context, host string) (any, error) {
		// Later hosts finish first.
		time.Sleep(time.Duration(5-int(host[len(host)-1]-'0')) * 5 * time.Millisecond)
		if host == "10.0.0.3" {
			return nil, errors.New("unreachable")
		}
		return "ok " + host, nil
	}

	report := Runner{Workers: 5}.Run(context.Background(), hosts, task)

	if report.RunID == "" {
		t.Error("RunID is empty")
	}
	if len(report.Results) != len(hosts) {
		t.Fatalf("len(Results) = %d, want %d", len(report.Results), len(hosts))
	}
	for i, res := range report.Results {
		if res.Host != hosts[i] {
			t.Errorf("Results[%d].Host = %s, want %s", i, res.Host, hosts[i])
		}
	}
	if len(report.Failed()) != 1 || report.Failed()[0].Host != "10.0.0.3" {
		t.Errorf("Failed() = %v", report.Failed())
	}
	if len(report.Succeeded()) != 4 {
		t.Errorf("len(Succeeded()) = %d, want 4", len(report.Succeeded()))
	}
	if report.Results[0].Value != "ok 10.0.0.1" {
		t.Errorf("Results[0].Value = %v", report.Results[0].Value)
	}
	if err := report.Err(); err == nil || !strings.Contains(err.Error(), "1 of 5") {
		t.Errorf("Err() = %v", err)
	}
}

func TestRunnerBoundsConcurrency(t *testing.T) {
	var running, peak atomic.Int32
	task := func(_ context.Context, _ string) (any, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		running.Add(-1)
		return nil, nil
	}

	hosts := make([]string, 12)
	for i := range hosts {
		hosts[i] = fmt.Sprintf("10.0.0.%d", i+1)
	}

	report := Runner{Workers: 3}.Run(context.Background(), hosts, task)

	if peak.Load() > 3 {
		t.Errorf("peak concurrency = %d, want <= 3", peak.Load())
	}
	if report.Err() != nil {
		t.Errorf("Err() = %v", report.Err())
	}
}

func TestRunnerZeroWorkers(t *testing.T) {
	var calls atomic.Int32
	report := Runner{}.Run(context.Background(), []string{"a", "b"}, func(context.Context, string) (any, error) {
		calls.Add(1)
		return nil, nil
	})
	if calls.Load() != 2 || len(report.Succeeded()) != 2 {
		t.Errorf("calls = %d, succeeded = %d", calls.Load(), len(report.Succeeded()))
	}
}

func TestRunnerEmpty(t *testing.T) {
	report := Runner{Workers: 4}.Run(context.Background(), nil, func(context.Context, string) (any, error) {
		t.Error("task called for empty host list")
		return nil, nil
	})
	if len(report.Results) != 0 || report.Err() != nil {
		t.Errorf("report = %+v", report)
	}
}

func TestRunnerRecoversPanic(t *testing.T) {
	report := Runner{Workers: 2}.Run(context.Background(), []string{"a", "b"}, func(_ context.Context, host string) (any, error) {
		if host == "a" {
			panic("boom")
		}
		return nil, nil
	})
	failed := report.Failed()
	if len(failed) != 1 || failed[0].Host != "a" || !strings.Contains(failed[0].Err.Error(), "boom") {
		t.Errorf("Failed() = %v", failed)
	}
}

func TestRunnerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := Runner{Workers: 1}.Run(ctx, []string{"a", "b", "c"}, func(ctx context.Context, _ string) (any, error) {
		return nil, ctx.Err()
	})
	for _, res := range report.Results {
		if !errors.Is(res.Err, context.Canceled) {
			t.Errorf("%s: Err = %v, want context.Canceled", res.Host, res.Err)
		}
	}
}
