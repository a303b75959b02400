package fleet

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/beward-tools/bewardctl/internal/logging"
)

// Task is the per-host operation. The returned value is kept in the
// host's Result for the caller to render.
type Task func(ctx context.Context, host string) (any, error)

// Result is the outcome of a Task on one host.
type Result struct {
	Host     string
	Value    any
	Err      error
	Duration time.Duration
}

// OK reports whether the task succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Report collects the results of one sweep in input order.
type Report struct {
	RunID    string
	Started  time.Time
	Duration time.Duration
	Results  []Result
}

// Failed returns the results with an error.
func (r *Report) Failed() []Result {
	return lo.Filter(r.Results, func(res Result, _ int) bool { return !res.OK() })
}

// Succeeded returns the results without an error.
func (r *Report) Succeeded() []Result {
	return lo.Filter(r.Results, func(res Result, _ int) bool { return res.OK() })
}

// Err returns a summary error when any host failed.
func (r *Report) Err() error {
	failed := r.Failed()
	if len(failed) == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d hosts failed", len(failed), len(r.Results))
}

// Runner executes a Task on many hosts. Workers <= 0 means one worker.
type Runner struct {
	Workers int
}

type job struct {
	index int
	host  string
}

// Run executes task on every host and waits for all of them. Cancelling
// ctx stops handing out new hosts; hosts never started are reported with
// the context error.
func (r Runner) Run(ctx context.Context, hosts []string, task Task) *Report {
	report := &Report{
		RunID:   uuid.NewString(),
		Started: time.Now(),
		Results: make([]Result, len(hosts)),
	}
	for i, h := range hosts {
		report.Results[i] = Result{Host: h}
	}

	workers := max(r.Workers, 1)
	workers = min(workers, max(len(hosts), 1))

	log := logging.GetLogger().With(zap.String("run_id", report.RunID))
	log.Debug("fleet sweep started", zap.Int("hosts", len(hosts)), zap.Int("workers", workers))

	jobs := make(chan job)
	started := make([]bool, len(hosts))

	var g errgroup.Group
	g.Go(func() error {
		defer close(jobs)
		for i, h := range hosts {
			select {
			case jobs <- job{index: i, host: h}:
				started[i] = true
			case <-ctx.Done():
				return nil
			}
		}
		return nil
	})

	results := make([]Result, len(hosts))
	for range workers {
		g.Go(func() error {
			for j := range jobs {
				results[j.index] = runOne(ctx, log, j.host, task)
			}
			return nil
		})
	}
	_ = g.Wait()

	for i := range hosts {
		if started[i] {
			report.Results[i] = results[i]
		} else {
			report.Results[i].Err = ctx.Err()
		}
	}
	report.Duration = time.Since(report.Started)

	log.Debug("fleet sweep finished",
		zap.Int("succeeded", len(report.Succeeded())),
		zap.Int("failed", len(report.Failed())),
		zap.Duration("duration", report.Duration))
	return report
}

func runOne(ctx context.Context, log *zap.Logger, host string, task Task) (res Result) {
	res.Host = host
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			res.Err = fmt.Errorf("panic: %v", p)
			log.Error("task panicked", zap.String("host", host), zap.ByteString("stack", debug.Stack()))
		}
		res.Duration = time.Since(start)
	}()

	log.Debug("host started", zap.String("host", host))
	res.Value, res.Err = task(ctx, host)
	if res.Err != nil {
		log.Debug("host failed", zap.String("host", host), zap.Error(res.Err))
	} else {
		log.Debug("host finished", zap.String("host", host))
	}
	return res
}
