// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

/*
Package queue provides the in-memory model of the ingestion queue.

The queue is server-authoritative: items are created and persisted by the
backend record store, and this package only reads them and requests status
mutations. Local state is kept consistent with the backend by folding
change-feed events (or polling resync batches) through a single pure merge
function, which keeps the merge logic deterministic and unit-testable
without a live subscription.
*/
package queue

import (
	"time"
)

// =============================================================================
// ENUMS
// =============================================================================

// Status is the lifecycle state of a queue item.
//
// # Description
//
// Statuses move strictly forward along the transition graph owned by the
// status machine (see statemachine.go). pending is the sole initial state
// and is set by the upstream producer, never by this tool.
//
// # Limitations
//
//   - The backend is authoritative; a locally illegal status reported by
//     the backend is still applied (see CheckEventConsistency).
type Status string

const (
	// StatusPending is the initial state: awaiting operator review.
	StatusPending Status = "pending"

	// StatusApproved means an operator accepted the item for processing.
	StatusApproved Status = "approved"

	// StatusRejected means an operator declined the item. Terminal.
	StatusRejected Status = "rejected"

	// StatusProcessing means a worker service picked the item up.
	StatusProcessing Status = "processing"

	// StatusCompleted means processing finished successfully. Terminal.
	StatusCompleted Status = "completed"

	// StatusFailed means processing failed. Terminal.
	StatusFailed Status = "failed"
)

// KnownStatuses lists every valid status, in lifecycle order.
func KnownStatuses() []Status {
	return []Status{
		StatusPending,
		StatusApproved,
		StatusRejected,
		StatusProcessing,
		StatusCompleted,
		StatusFailed,
	}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected,
		StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// SourceType identifies the provenance of an ingestion candidate.
type SourceType string

const (
	SourceVideo      SourceType = "video"
	SourceDocument   SourceType = "document"
	SourceLink       SourceType = "link"
	SourceUpload     SourceType = "upload"
	SourceNotebook   SourceType = "notebook"
	SourceChatImport SourceType = "chat-import"
	SourceFeed       SourceType = "feed"
)

// Valid reports whether t is a known source type.
func (t SourceType) Valid() bool {
	switch t {
	case SourceVideo, SourceDocument, SourceLink, SourceUpload,
		SourceNotebook, SourceChatImport, SourceFeed:
		return true
	}
	return false
}

// =============================================================================
// QUEUE ITEM
// =============================================================================

// Item is one ingestion candidate as held by the backend record store.
//
// # Description
//
// Items are created by the backend and only ever read and status-mutated
// here. Priority is advisory ordering and is only meaningful while the item
// is pending or approved. ErrorMessage is set only when Status is failed.
//
// JSON tags match the backend wire contract (camelCase).
//
// # Assumptions
//
//   - ID is opaque, stable, and unique within the collection
//   - CreatedAt/UpdatedAt are set by the backend
type Item struct {
	// ID is the opaque stable identifier assigned by the backend.
	ID string `json:"id"`

	// SourceType is the provenance of the candidate.
	SourceType SourceType `json:"sourceType"`

	// SourceURL is where the content came from, when applicable.
	SourceURL string `json:"sourceUrl,omitempty"`

	// Status is the current lifecycle state.
	Status Status `json:"status"`

	// Priority is advisory ordering, meaningful only while
	// pending or approved.
	Priority int `json:"priority"`

	// Title is display metadata.
	Title string `json:"title,omitempty"`

	// Description is display metadata.
	Description string `json:"description,omitempty"`

	// ThumbnailURL is display metadata.
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`

	// DurationSeconds is display metadata for time-based media.
	DurationSeconds int `json:"durationSeconds,omitempty"`

	// SourceMeta carries provenance-specific key/value pairs.
	SourceMeta map[string]string `json:"sourceMeta,omitempty"`

	// ErrorMessage is populated only when Status is failed.
	ErrorMessage string `json:"errorMessage,omitempty"`

	// CreatedAt is when the backend created the item.
	CreatedAt time.Time `json:"createdAt"`

	// UpdatedAt is when the backend last modified the item.
	UpdatedAt time.Time `json:"updatedAt"`
}

// Terminal reports whether the item has reached a terminal status.
func (i Item) Terminal() bool {
	return IsTerminal(i.Status)
}

// =============================================================================
// CHANGE EVENTS
// =============================================================================

// EventType tags a change-feed message.
type EventType string

const (
	// EventInsert announces a new item in the collection.
	EventInsert EventType = "insert"

	// EventUpdate announces a modification of an existing item.
	EventUpdate EventType = "update"

	// EventDelete announces removal of an item.
	EventDelete EventType = "delete"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	return t == EventInsert || t == EventUpdate || t == EventDelete
}

// ChangeEvent is one change-feed notification for the queue collection.
//
// # Description
//
// Events arrive in delivery order and are folded through the
// reconciliation engine strictly sequentially. The same struct is used by
// the live websocket feed and by the polling fallback (which synthesizes a
// batch of events from a full re-fetch), so consumers never branch on the
// delivery mechanism.
type ChangeEvent struct {
	// Type is the kind of change.
	Type EventType `json:"type"`

	// Item is the affected record. For deletes, only Item.ID is
	// guaranteed to be populated.
	Item Item `json:"item"`
}

// =============================================================================
// FILTER
// =============================================================================

// Filter is the view predicate applied to the local list.
//
// # Description
//
// A filter is the cross product of an optional status filter and an
// optional source-type filter. The zero value matches everything.
type Filter struct {
	// Status restricts the view to one status. Empty means all.
	Status Status

	// SourceType restricts the view to one source type. Empty means all.
	SourceType SourceType

	// Limit caps how many items a backend fetch returns. Zero means
	// uncapped. Limit is a fetch parameter, not a predicate: Matches
	// and IsZero ignore it.
	Limit int
}

// Matches reports whether item belongs in the filtered view.
func (f Filter) Matches(item Item) bool {
	if f.Status != "" && item.Status != f.Status {
		return false
	}
	if f.SourceType != "" && item.SourceType != f.SourceType {
		return false
	}
	return true
}

// IsZero reports whether the filter matches every item.
func (f Filter) IsZero() bool {
	return f.Status == "" && f.SourceType == ""
}
