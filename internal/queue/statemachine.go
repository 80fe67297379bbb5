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
	"fmt"
	"time"
)

// =============================================================================
// TRANSITION GRAPH
// =============================================================================

// transitionGraph is the authoritative definition of legal status moves.
//
// pending -> {approved, rejected}
// approved -> {processing}
// processing -> {completed, failed}
// rejected, completed, failed -> (terminal)
var transitionGraph = map[Status][]Status{
	StatusPending:    {StatusApproved, StatusRejected},
	StatusApproved:   {StatusProcessing},
	StatusProcessing: {StatusCompleted, StatusFailed},
	StatusRejected:   {},
	StatusCompleted:  {},
	StatusFailed:     {},
}

// =============================================================================
// ERROR TYPES
// =============================================================================

// TransitionError reports a requested status change that is illegal for the
// item's current state.
//
// # Description
//
// Raised locally before any mutation request reaches the backend. Surfaced
// to the operator as a no-op with explanation; it never crosses a component
// boundary as a panic.
type TransitionError struct {
	// ItemID is the affected item, when known.
	ItemID string

	// From is the item's current status.
	From Status

	// To is the requested status.
	To Status
}

// Error names the illegal pair.
func (e *TransitionError) Error() string {
	if e.ItemID != "" {
		return fmt.Sprintf("illegal status transition for item %s: %s -> %s", e.ItemID, e.From, e.To)
	}
	return fmt.Sprintf("illegal status transition: %s -> %s", e.From, e.To)
}

// ConsistencyWarning records a backend-reported status that is not a legal
// successor of the last known local status.
//
// # Description
//
// The backend is authoritative, so the event carrying the conflicting
// status is applied anyway; the warning exists for observability because
// the condition indicates a race or a backend bug, not a local error to
// suppress.
type ConsistencyWarning struct {
	// ItemID is the affected item.
	ItemID string

	// Known is the last status observed locally.
	Known Status

	// Reported is the status the backend reported.
	Reported Status

	// ObservedAt is when the conflict was detected.
	ObservedAt time.Time
}

// String renders the warning for structured logging.
func (w *ConsistencyWarning) String() string {
	return fmt.Sprintf("backend reported %s for item %s but local state was %s", w.Reported, w.ItemID, w.Known)
}

// =============================================================================
// STATUS MACHINE OPERATIONS
// =============================================================================

// CanTransition reports whether moving from current to requested is legal.
func CanTransition(current, requested Status) bool {
	for _, next := range transitionGraph[current] {
		if next == requested {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s admits no further transitions.
func IsTerminal(s Status) bool {
	return s.Valid() && len(transitionGraph[s]) == 0
}

// LegalSuccessors returns the statuses reachable in one step from s.
func LegalSuccessors(s Status) []Status {
	succ := transitionGraph[s]
	out := make([]Status, len(succ))
	copy(out, succ)
	return out
}

// ValidateTransition checks a requested status change against the graph.
//
// # Description
//
// Must run before any mutation request reaches the backend. Returns nil
// when the move is legal, otherwise a *TransitionError naming the illegal
// pair.
//
// # Inputs
//
//   - current: the item's last known status
//   - requested: the status a mutation would move it to
//
// # Outputs
//
//   - error: nil, or *TransitionError
func ValidateTransition(current, requested Status) error {
	if !current.Valid() {
		return &TransitionError{From: current, To: requested}
	}
	if CanTransition(current, requested) {
		return nil
	}
	return &TransitionError{From: current, To: requested}
}

// ValidateItemTransition is ValidateTransition with the item id attached
// for operator-facing messages.
func ValidateItemTransition(item Item, requested Status) error {
	if err := ValidateTransition(item.Status, requested); err != nil {
		te := err.(*TransitionError)
		te.ItemID = item.ID
		return te
	}
	return nil
}

// CheckEventConsistency defensively re-checks a change-feed status.
//
// # Description
//
// When an update event reports a status that is not a legal successor of
// the last known status for that item, the event is still applied — the
// backend wins — but a ConsistencyWarning is returned so the caller can
// log it. A nil return means the reported status is consistent.
//
// # Assumptions
//
//   - known is the status currently held in the local list
func CheckEventConsistency(itemID string, known, reported Status) *ConsistencyWarning {
	if known == reported {
		return nil
	}
	if CanTransition(known, reported) {
		return nil
	}
	return &ConsistencyWarning{
		ItemID:     itemID,
		Known:      known,
		Reported:   reported,
		ObservedAt: time.Now(),
	}
}
