// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jinterlante1206/AleutianBridge/internal/ident"
)

// =============================================================================
// INTERFACES
// =============================================================================

// Mutator issues status mutations against the backend record store.
//
// # Description
//
// The bulk coordinator never mutates the local list directly: it issues
// backend calls through this interface and lets the resulting change-feed
// events (or, in degraded mode, the next poll) perform the actual list
// update, which keeps a single writer for the shared list at all times.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use; the coordinator itself
// calls sequentially.
type Mutator interface {
	// Approve requests the pending -> approved transition.
	// Priority is optional; nil keeps the backend's value.
	Approve(ctx context.Context, id string, priority *int) error

	// Reject requests the pending -> rejected transition.
	// Reason is optional operator context.
	Reject(ctx context.Context, id string, reason string) error
}

// =============================================================================
// TYPES
// =============================================================================

// BulkAction is the mutation applied to a selection of queue items.
type BulkAction string

const (
	// BulkApprove moves each item to approved.
	BulkApprove BulkAction = "approve"

	// BulkReject moves each item to rejected.
	BulkReject BulkAction = "reject"
)

// target returns the status the action moves items to.
func (a BulkAction) target() (Status, error) {
	switch a {
	case BulkApprove:
		return StatusApproved, nil
	case BulkReject:
		return StatusRejected, nil
	default:
		return "", fmt.Errorf("unknown bulk action: %s", a)
	}
}

// BulkOptions carries the optional parameters of a bulk mutation.
type BulkOptions struct {
	// Priority is forwarded on approve when non-nil.
	Priority *int

	// Reason is forwarded on reject when non-empty.
	Reason string
}

// BulkFailure is the per-item accounting of one failed mutation.
type BulkFailure struct {
	// ID is the item that failed.
	ID string `json:"id"`

	// Reason is a human-readable explanation.
	Reason string `json:"reason"`
}

// BulkResult is the complete accounting of a bulk operation.
//
// # Description
//
// Always returned in full, never as an error: partial failure is a normal
// outcome, not an exceptional one. The caller clears its selection state
// only for Succeeded ids so the operator can retry or inspect the rest.
type BulkResult struct {
	// ID is a unique identifier for this bulk operation.
	ID string `json:"id"`

	// Action is the mutation that was applied.
	Action BulkAction `json:"action"`

	// Succeeded lists the ids whose mutation was accepted.
	Succeeded []string `json:"succeeded"`

	// Failed lists the ids that did not go through, with reasons.
	Failed []BulkFailure `json:"failed"`

	// Duration is how long the whole batch took.
	Duration time.Duration `json:"duration"`

	// StartedAt is when the batch began.
	StartedAt time.Time `json:"startedAt"`
}

// =============================================================================
// COORDINATOR
// =============================================================================

// BulkCoordinator applies a status mutation to a set of selected items.
//
// # Description
//
// Items are processed sequentially, not in parallel, to bound backend load
// and produce a deterministic, streamable progress indicator. Each item is
// validated against the status machine locally first; an item whose current
// status makes the action illegal fails with zero network calls. The batch
// is never aborted on a single item's failure.
//
// # Thread Safety
//
// Safe for concurrent use, though bulk operations are normally issued one
// at a time from the operator surface.
type BulkCoordinator struct {
	mutator Mutator
	logger  *slog.Logger
	mu      sync.Mutex

	// onProgress, when set, is called after each item with the running
	// counts. Used by the CLI to stream progress.
	onProgress func(done, total int)
}

// NewBulkCoordinator creates a coordinator over the given mutator.
//
// # Inputs
//
//   - mutator: backend mutation client, must be non-nil
//   - logger: nil falls back to slog.Default()
func NewBulkCoordinator(mutator Mutator, logger *slog.Logger) *BulkCoordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &BulkCoordinator{mutator: mutator, logger: logger}
}

// SetProgressFunc installs a per-item progress callback.
func (b *BulkCoordinator) SetProgressFunc(fn func(done, total int)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onProgress = fn
}

// ApplyBulk applies action to every selected item and returns the full
// accounting.
//
// # Description
//
// For each item: validate the transition locally (no network call when the
// action is illegal for the item's current status), then issue the backend
// mutation. Mutation failures — transport errors, timeouts, non-success
// responses — are recorded per item and do not stop the batch. The result
// is always complete: len(Succeeded) + len(Failed) == len(items).
//
// # Inputs
//
//   - ctx: bounds the whole batch; a cancelled context fails the
//     remaining items with the context error rather than leaving them
//     unaccounted for
//   - items: the selected items with their last known statuses
//   - action: approve or reject
//   - opts: optional priority/reason forwarding
//
// # Outputs
//
//   - *BulkResult: complete accounting; never nil
//   - error: only for a malformed request (unknown action); per-item
//     failures are never returned as an error
func (b *BulkCoordinator) ApplyBulk(ctx context.Context, items []Item, action BulkAction, opts BulkOptions) (*BulkResult, error) {
	target, err := action.target()
	if err != nil {
		return nil, err
	}

	result := &BulkResult{
		ID:        ident.GenerateID(),
		Action:    action,
		StartedAt: time.Now(),
	}

	for done, item := range items {
		if ctx.Err() != nil {
			result.Failed = append(result.Failed, BulkFailure{
				ID:     item.ID,
				Reason: fmt.Sprintf("cancelled: %v", ctx.Err()),
			})
			b.progress(done+1, len(items))
			continue
		}

		if verr := ValidateItemTransition(item, target); verr != nil {
			result.Failed = append(result.Failed, BulkFailure{
				ID:     item.ID,
				Reason: verr.Error(),
			})
			b.logger.Debug("bulk item rejected locally",
				"bulk_id", result.ID, "item_id", item.ID, "reason", verr.Error())
			b.progress(done+1, len(items))
			continue
		}

		if merr := b.mutate(ctx, item.ID, action, opts); merr != nil {
			result.Failed = append(result.Failed, BulkFailure{
				ID:     item.ID,
				Reason: merr.Error(),
			})
			b.logger.Warn("bulk mutation failed",
				"bulk_id", result.ID, "item_id", item.ID, "error", merr)
			b.progress(done+1, len(items))
			continue
		}

		result.Succeeded = append(result.Succeeded, item.ID)
		b.progress(done+1, len(items))
	}

	result.Duration = time.Since(result.StartedAt)
	b.logger.Info("bulk operation completed",
		"bulk_id", result.ID,
		"action", string(action),
		"succeeded", len(result.Succeeded),
		"failed", len(result.Failed),
		"duration", result.Duration)
	return result, nil
}

func (b *BulkCoordinator) mutate(ctx context.Context, id string, action BulkAction, opts BulkOptions) error {
	switch action {
	case BulkApprove:
		return b.mutator.Approve(ctx, id, opts.Priority)
	case BulkReject:
		return b.mutator.Reject(ctx, id, opts.Reason)
	}
	return fmt.Errorf("unknown bulk action: %s", action)
}

func (b *BulkCoordinator) progress(done, total int) {
	b.mu.Lock()
	fn := b.onProgress
	b.mu.Unlock()
	if fn != nil {
		fn(done, total)
	}
}

// =============================================================================
// MOCK IMPLEMENTATIONS
// =============================================================================

// MockMutator is a configurable test double for Mutator.
type MockMutator struct {
	ApproveFunc func(ctx context.Context, id string, priority *int) error
	RejectFunc  func(ctx context.Context, id string, reason string) error

	ApproveCalls []string
	RejectCalls  []string
	mu           sync.Mutex
}

func (m *MockMutator) Approve(ctx context.Context, id string, priority *int) error {
	m.mu.Lock()
	m.ApproveCalls = append(m.ApproveCalls, id)
	m.mu.Unlock()
	if m.ApproveFunc != nil {
		return m.ApproveFunc(ctx, id, priority)
	}
	return nil
}

func (m *MockMutator) Reject(ctx context.Context, id string, reason string) error {
	m.mu.Lock()
	m.RejectCalls = append(m.RejectCalls, id)
	m.mu.Unlock()
	if m.RejectFunc != nil {
		return m.RejectFunc(ctx, id, reason)
	}
	return nil
}

// Calls returns the total number of network-facing calls recorded.
func (m *MockMutator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ApproveCalls) + len(m.RejectCalls)
}

// Compile-time interface check.
var _ Mutator = (*MockMutator)(nil)
