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

// =============================================================================
// RECONCILIATION ENGINE
// =============================================================================

// Apply folds one change event into the filtered list.
//
// # Description
//
// Pure with respect to its inputs: the returned slice is freshly allocated
// whenever the list changes, and the input slice is never mutated. Events
// must be applied strictly sequentially in arrival order; the caller owns
// that ordering guarantee (a single goroutine drains the feed channel).
//
// Merge rules:
//
//   - Insert: an existing id is a no-op (idempotent against duplicate
//     delivery); a new item matching the filter is prepended; a new item
//     that misses the filter is dropped.
//   - Update: an item that no longer matches the filter is removed (a
//     pending item that was just approved disappears from a pending-only
//     view); otherwise the entry is replaced in place, preserving list
//     position.
//   - Delete: removed by id if present, no-op otherwise.
//
// # Inputs
//
//   - items: the current filtered list
//   - ev: the event to apply
//   - filter: the active view predicate
//
// # Outputs
//
//   - []Item: the merged list
//   - *ConsistencyWarning: non-nil when an update reported a status that
//     is not a legal successor of the locally known status. The event is
//     applied regardless; the warning is for observability only.
func Apply(items []Item, ev ChangeEvent, filter Filter) ([]Item, *ConsistencyWarning) {
	switch ev.Type {
	case EventInsert:
		return applyInsert(items, ev.Item, filter), nil
	case EventUpdate:
		return applyUpdate(items, ev.Item, filter)
	case EventDelete:
		return applyDelete(items, ev.Item.ID), nil
	default:
		// Unknown event types are dropped; the feed client validates
		// message shape before delivery.
		return items, nil
	}
}

// ApplyAll folds a batch of events sequentially.
//
// # Description
//
// Equivalent to calling Apply once per event in order. Used by the polling
// fallback, which synthesizes a batch from a full re-fetch so that both
// delivery paths share one entry point.
func ApplyAll(items []Item, events []ChangeEvent, filter Filter) ([]Item, []*ConsistencyWarning) {
	var warnings []*ConsistencyWarning
	for _, ev := range events {
		var w *ConsistencyWarning
		items, w = Apply(items, ev, filter)
		if w != nil {
			warnings = append(warnings, w)
		}
	}
	return items, warnings
}

// ResyncEvents synthesizes the change events that would carry the local
// list from its current state to the freshly fetched backend state.
//
// # Description
//
// Used in degraded mode: the fallback poll re-fetches the full filtered
// collection and feeds the result through the same merge step as live
// events, guaranteeing the view never permanently diverges from the
// backend even if the push channel never recovers.
//
// Items present locally but absent from the fetch become deletes; items
// present in both become updates; items only in the fetch become inserts.
// Insert events are emitted in reverse fetch order so that prepending
// reproduces the backend's ordering at the head of the list.
func ResyncEvents(current, fetched []Item) []ChangeEvent {
	fetchedIDs := make(map[string]bool, len(fetched))
	for _, item := range fetched {
		fetchedIDs[item.ID] = true
	}
	currentIDs := make(map[string]bool, len(current))
	for _, item := range current {
		currentIDs[item.ID] = true
	}

	var events []ChangeEvent
	for _, item := range current {
		if !fetchedIDs[item.ID] {
			events = append(events, ChangeEvent{Type: EventDelete, Item: Item{ID: item.ID}})
		}
	}
	for _, item := range fetched {
		if currentIDs[item.ID] {
			events = append(events, ChangeEvent{Type: EventUpdate, Item: item})
		}
	}
	for i := len(fetched) - 1; i >= 0; i-- {
		if !currentIDs[fetched[i].ID] {
			events = append(events, ChangeEvent{Type: EventInsert, Item: fetched[i]})
		}
	}
	return events
}

// =============================================================================
// MERGE HELPERS
// =============================================================================

func indexOf(items []Item, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

func applyInsert(items []Item, item Item, filter Filter) []Item {
	if indexOf(items, item.ID) >= 0 {
		return items
	}
	if !filter.Matches(item) {
		return items
	}
	merged := make([]Item, 0, len(items)+1)
	merged = append(merged, item)
	merged = append(merged, items...)
	return merged
}

func applyUpdate(items []Item, item Item, filter Filter) ([]Item, *ConsistencyWarning) {
	idx := indexOf(items, item.ID)
	if idx < 0 {
		// Not in the view. An update that now matches the filter is
		// treated as an insert so a re-filtered item can enter the view.
		return applyInsert(items, item, filter), nil
	}

	warning := CheckEventConsistency(item.ID, items[idx].Status, item.Status)

	if !filter.Matches(item) {
		merged := make([]Item, 0, len(items)-1)
		merged = append(merged, items[:idx]...)
		merged = append(merged, items[idx+1:]...)
		return merged, warning
	}

	merged := make([]Item, len(items))
	copy(merged, items)
	merged[idx] = item
	return merged, warning
}

func applyDelete(items []Item, id string) []Item {
	idx := indexOf(items, id)
	if idx < 0 {
		return items
	}
	merged := make([]Item, 0, len(items)-1)
	merged = append(merged, items[:idx]...)
	merged = append(merged, items[idx+1:]...)
	return merged
}
