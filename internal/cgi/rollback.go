package cgi

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"
)

// Snapshot is a saved field set of one module
type Snapshot struct {
	Module      string
	Fields      map[string]string
	Timestamp   time.Time
	Description string
}

const maxSnapshots = 10

// RollbackManager keeps snapshots of a module and restores them when a
// change fails verification
type RollbackManager struct {
	module Configurable

	// snapshots holds at most maxSnapshots entries, oldest first
	snapshots []*Snapshot
	mutex     sync.RWMutex
}

// NewRollbackManager creates a rollback manager for m
func NewRollbackManager(m Configurable) *RollbackManager {
	return &RollbackManager{
		module:    m,
		snapshots: make([]*Snapshot, 0, maxSnapshots),
	}
}

// SaveSnapshot reloads the module and records its fields
func (rm *RollbackManager) SaveSnapshot(ctx context.Context, description string) error {
	if err := rm.module.Load(ctx); err != nil {
		return fmt.Errorf("failed to load %s for snapshot: %w", rm.module.Name(), err)
	}
	fields, err := rm.module.Get()
	if err != nil {
		return err
	}

	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	rm.snapshots = append(rm.snapshots, &Snapshot{
		Module:      rm.module.Name(),
		Fields:      fields,
		Timestamp:   time.Now(),
		Description: description,
	})
	if len(rm.snapshots) > maxSnapshots {
		rm.snapshots = rm.snapshots[1:]
	}
	return nil
}

// LatestSnapshot returns the most recent snapshot, or nil
func (rm *RollbackManager) LatestSnapshot() *Snapshot {
	rm.mutex.RLock()
	defer rm.mutex.RUnlock()
	if len(rm.snapshots) == 0 {
		return nil
	}
	return rm.snapshots[len(rm.snapshots)-1]
}

// Snapshots returns all snapshots, oldest first
func (rm *RollbackManager) Snapshots() []*Snapshot {
	rm.mutex.RLock()
	defer rm.mutex.RUnlock()
	return slices.Clone(rm.snapshots)
}

// ClearSnapshots removes all saved snapshots
func (rm *RollbackManager) ClearSnapshots() {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	rm.snapshots = make([]*Snapshot, 0, maxSnapshots)
}

// RollbackTo writes snapshot back to the device and verifies it
func (rm *RollbackManager) RollbackTo(ctx context.Context, snapshot *Snapshot, opts *VerificationOptions) *VerificationResult {
	if snapshot == nil {
		return &VerificationResult{Error: errors.New("snapshot is nil")}
	}
	return SetAndVerify(ctx, rm.module, maps.Clone(snapshot.Fields), opts)
}

// RollbackToLatest restores the most recent snapshot
func (rm *RollbackManager) RollbackToLatest(ctx context.Context, opts *VerificationOptions) *VerificationResult {
	snapshot := rm.LatestSnapshot()
	if snapshot == nil {
		return &VerificationResult{Error: errors.New("no snapshots available for rollback")}
	}
	return rm.RollbackTo(ctx, snapshot, opts)
}

// SafeUpdateResult contains the results of a safe update
type SafeUpdateResult struct {
	Success           bool
	Description       string
	UpdateResult      *VerificationResult
	RollbackAttempted bool
	RollbackSucceeded bool
	RollbackResult    *VerificationResult
	Error             error
}

// SafeUpdate snapshots the module, applies changes with verification and
// rolls back automatically when verification fails
func (rm *RollbackManager) SafeUpdate(ctx context.Context, changes map[string]string, opts *VerificationOptions, description string) *SafeUpdateResult {
	result := &SafeUpdateResult{Description: description}

	if err := rm.SaveSnapshot(ctx, description); err != nil {
		result.Error = fmt.Errorf("failed to save pre-update snapshot: %w", err)
		return result
	}

	result.UpdateResult = SetAndVerify(ctx, rm.module, changes, opts)
	if result.UpdateResult.Success {
		result.Success = true
		return result
	}

	result.RollbackAttempted = true
	result.RollbackResult = rm.RollbackToLatest(ctx, opts)
	if result.RollbackResult.Success {
		result.RollbackSucceeded = true
		result.Error = fmt.Errorf("update failed (verification: %w), rolled back to previous configuration", result.UpdateResult.Error)
	} else {
		result.Error = fmt.Errorf("update failed (verification: %w) AND rollback failed: %w", result.UpdateResult.Error, result.RollbackResult.Error)
	}
	return result
}

// String returns a human-readable summary of the safe update result
func (r *SafeUpdateResult) String() string {
	if r.Success {
		return fmt.Sprintf("Update succeeded: %s (verified in %d attempt(s))", r.Description, r.UpdateResult.Attempts)
	}
	if r.RollbackAttempted {
		if r.RollbackSucceeded {
			return fmt.Sprintf("Update failed but was rolled back: %s\nUpdate error: %v\nRollback: verified after %d attempt(s)",
				r.Description, r.UpdateResult.Error, r.RollbackResult.Attempts)
		}
		return fmt.Sprintf("Update failed and rollback failed: %s\nUpdate error: %v\nRollback error: %v",
			r.Description, r.UpdateResult.Error, r.RollbackResult.Error)
	}
	return fmt.Sprintf("Update failed: %s\nError: %v", r.Description, r.Error)
}

// Fields whose change can cut the panel off from the tool.
var connectivityFields = map[string][]string{
	"network": {"IPAddress", "SubnetMask", "Gateway", "DHCP", "HTTPPort"},
	"https":   {"HTTPSEnable", "HTTPSPort"},
}

// DestructiveWarning describes changes that may make the panel unreachable.
// It returns "" when the change is safe.
func DestructiveWarning(module string, current, changes map[string]string) string {
	var warnings []string
	for _, field := range connectivityFields[module] {
		want, ok := changes[field]
		if ok && current[field] != want {
			warnings = append(warnings, fmt.Sprintf("%s.%s: %q -> %q may disconnect the panel", module, field, current[field], want))
		}
	}
	if len(warnings) == 0 {
		return ""
	}
	return "POTENTIALLY DESTRUCTIVE CHANGES DETECTED\n\n" + strings.Join(warnings, "\n") + "\n"
}
