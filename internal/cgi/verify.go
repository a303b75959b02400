package cgi

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"
)

// VerificationOptions configures how a set is verified
type VerificationOptions struct {
	// MaxRetries is the maximum number of verification attempts after the first
	// Default: 3
	MaxRetries int

	// InitialDelay gives the panel time to apply the change before the first reload
	// Default: 500ms
	InitialDelay time.Duration

	// RetryDelay is the delay between attempts
	// Default: 1s
	RetryDelay time.Duration

	// UseExponentialBackoff doubles RetryDelay after each attempt, up to MaxRetryDelay
	// Default: true
	UseExponentialBackoff bool

	// MaxRetryDelay caps the backoff
	// Default: 5s
	MaxRetryDelay time.Duration
}

// DefaultVerificationOptions returns sensible defaults for verification
func DefaultVerificationOptions() *VerificationOptions {
	return &VerificationOptions{
		MaxRetries:            3,
		InitialDelay:          500 * time.Millisecond,
		RetryDelay:            1 * time.Second,
		UseExponentialBackoff: true,
		MaxRetryDelay:         5 * time.Second,
	}
}

// VerificationResult contains the results of a verification
type VerificationResult struct {
	Success    bool
	Attempts   int
	Actual     map[string]string // Fields reported by the last successful reload
	Mismatches []string
	Error      error
}

// VerifyWithRetry reloads m until every field of expected matches or the
// attempts are exhausted. Reload failures are retried as well.
func VerifyWithRetry(ctx context.Context, m Configurable, expected map[string]string, opts *VerificationOptions) *VerificationResult {
	if opts == nil {
		opts = DefaultVerificationOptions()
	}
	result := &VerificationResult{Mismatches: []string{}}

	if err := sleep(ctx, opts.InitialDelay); err != nil {
		result.Error = err
		return result
	}

	delay := opts.RetryDelay
	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		result.Attempts++

		if attempt > 0 {
			if err := sleep(ctx, delay); err != nil {
				result.Error = err
				return result
			}
			if opts.UseExponentialBackoff {
				delay = min(delay*2, opts.MaxRetryDelay)
			}
		}

		if err := m.Load(ctx); err != nil {
			result.Error = fmt.Errorf("attempt %d: failed to reload %s: %w", attempt+1, m.Name(), err)
			continue
		}
		actual, err := m.Get()
		if err != nil {
			result.Error = err
			return result
		}
		result.Actual = actual

		result.Mismatches = compareFields(expected, actual)
		if len(result.Mismatches) == 0 {
			result.Success = true
			result.Error = nil
			return result
		}

		if attempt < opts.MaxRetries {
			result.Error = fmt.Errorf("attempt %d: %s mismatch (will retry)", attempt+1, m.Name())
		} else {
			result.Error = fmt.Errorf("verification failed after %d attempts: %s", result.Attempts, formatMismatches(result.Mismatches))
		}
	}
	return result
}

// SetAndVerify applies changes through Update and Set, then verifies them
// with VerifyWithRetry. Only keys the device already reported are checked.
func SetAndVerify(ctx context.Context, m Configurable, changes map[string]string, opts *VerificationOptions) *VerificationResult {
	current, err := m.Get()
	if err != nil {
		return &VerificationResult{Error: err}
	}
	expected := make(map[string]string, len(changes))
	for k, v := range changes {
		if _, ok := current[k]; ok {
			expected[k] = v
		}
	}

	if err := m.Update(changes); err != nil {
		return &VerificationResult{Error: fmt.Errorf("update failed: %w", err)}
	}
	if err := m.Set(ctx); err != nil {
		return &VerificationResult{Error: fmt.Errorf("set failed: %w", err)}
	}
	return VerifyWithRetry(ctx, m, expected, opts)
}

// compareFields lists fields of expected whose actual value differs, in
// key order.
func compareFields(expected, actual map[string]string) []string {
	var mismatches []string
	for k, want := range expected {
		got, ok := actual[k]
		switch {
		case !ok:
			mismatches = append(mismatches, fmt.Sprintf("%s: expected %q, field missing", k, want))
		case got != want:
			mismatches = append(mismatches, fmt.Sprintf("%s: expected %q, got %q", k, want, got))
		}
	}
	slices.Sort(mismatches)
	return mismatches
}

func formatMismatches(mismatches []string) string {
	switch len(mismatches) {
	case 0:
		return "none"
	case 1:
		return mismatches[0]
	}
	return fmt.Sprintf("%d mismatches: %s", len(mismatches), strings.Join(mismatches, "; "))
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
