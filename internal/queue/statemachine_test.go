// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package queue

import (
	"errors"
	"testing"
)

// =============================================================================
// UNIT TESTS: ValidateTransition
// =============================================================================

func TestValidateTransition_LegalMoves(t *testing.T) {
	legal := []struct {
		from Status
		to   Status
	}{
		{StatusPending, StatusApproved},
		{StatusPending, StatusRejected},
		{StatusApproved, StatusProcessing},
		{StatusProcessing, StatusCompleted},
		{StatusProcessing, StatusFailed},
	}

	for _, tc := range legal {
		if err := ValidateTransition(tc.from, tc.to); err != nil {
			t.Errorf("expected %s -> %s to be legal, got: %v", tc.from, tc.to, err)
		}
	}
}

func TestValidateTransition_IllegalMoves(t *testing.T) {
	illegal := []struct {
		from Status
		to   Status
	}{
		{StatusPending, StatusProcessing},
		{StatusPending, StatusCompleted},
		{StatusApproved, StatusRejected},
		{StatusApproved, StatusCompleted},
		{StatusProcessing, StatusPending},
		{StatusRejected, StatusPending},
		{StatusCompleted, StatusPending},
		{StatusCompleted, StatusProcessing},
		{StatusFailed, StatusProcessing},
		{StatusFailed, StatusPending},
	}

	for _, tc := range illegal {
		err := ValidateTransition(tc.from, tc.to)
		if err == nil {
			t.Errorf("expected %s -> %s to be illegal", tc.from, tc.to)
			continue
		}
		var te *TransitionError
		if !errors.As(err, &te) {
			t.Errorf("expected *TransitionError for %s -> %s, got %T", tc.from, tc.to, err)
			continue
		}
		if te.From != tc.from || te.To != tc.to {
			t.Errorf("error does not name the illegal pair: got %s -> %s", te.From, te.To)
		}
	}
}

func TestValidateTransition_UnknownStatus(t *testing.T) {
	if err := ValidateTransition(Status("bogus"), StatusApproved); err == nil {
		t.Error("expected an unknown current status to be rejected")
	}
}

func TestValidateItemTransition_AttachesItemID(t *testing.T) {
	item := Item{ID: "it-42", Status: StatusCompleted}
	err := ValidateItemTransition(item, StatusPending)
	if err == nil {
		t.Fatal("expected terminal item mutation to be illegal")
	}
	var te *TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TransitionError, got %T", err)
	}
	if te.ItemID != "it-42" {
		t.Errorf("expected item id in error, got %q", te.ItemID)
	}
}

// =============================================================================
// UNIT TESTS: terminal states
// =============================================================================

func TestIsTerminal(t *testing.T) {
	terminal := []Status{StatusRejected, StatusCompleted, StatusFailed}
	for _, s := range terminal {
		if !IsTerminal(s) {
			t.Errorf("expected %s to be terminal", s)
		}
	}
	nonTerminal := []Status{StatusPending, StatusApproved, StatusProcessing}
	for _, s := range nonTerminal {
		if IsTerminal(s) {
			t.Errorf("expected %s to not be terminal", s)
		}
	}
	if IsTerminal(Status("bogus")) {
		t.Error("an unknown status must not report as terminal")
	}
}

func TestLegalSuccessors_ReturnsCopy(t *testing.T) {
	succ := LegalSuccessors(StatusPending)
	if len(succ) != 2 {
		t.Fatalf("expected 2 successors for pending, got %d", len(succ))
	}
	succ[0] = StatusFailed
	again := LegalSuccessors(StatusPending)
	if again[0] == StatusFailed {
		t.Error("LegalSuccessors leaked internal graph state")
	}
}

// =============================================================================
// UNIT TESTS: CheckEventConsistency
// =============================================================================

func TestCheckEventConsistency_LegalSuccessorIsQuiet(t *testing.T) {
	if w := CheckEventConsistency("it-1", StatusPending, StatusApproved); w != nil {
		t.Errorf("expected no warning for a legal successor, got %v", w)
	}
	if w := CheckEventConsistency("it-1", StatusApproved, StatusApproved); w != nil {
		t.Errorf("expected no warning for an unchanged status, got %v", w)
	}
}

func TestCheckEventConsistency_IllegalSuccessorWarns(t *testing.T) {
	w := CheckEventConsistency("it-1", StatusCompleted, StatusPending)
	if w == nil {
		t.Fatal("expected a warning for completed -> pending")
	}
	if w.ItemID != "it-1" || w.Known != StatusCompleted || w.Reported != StatusPending {
		t.Errorf("warning fields incorrect: %+v", w)
	}
	if w.ObservedAt.IsZero() {
		t.Error("warning must carry an observation timestamp")
	}
}
