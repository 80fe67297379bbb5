// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes defines the request and response shapes of the console
// service API.
package datatypes

import (
	"github.com/jinterlante1206/AleutianBridge/internal/health"
	"github.com/jinterlante1206/AleutianBridge/internal/queue"
)

// BulkActionRequest is the body of POST /v1/queue/bulk.
//
// # Description
//
// Carries one action applied to a set of queue item ids. Priority only
// applies to approve, Reason only to reject; mismatched fields are ignored
// rather than rejected so clients can reuse one form for both actions.
type BulkActionRequest struct {
	// Action is the mutation to apply: "approve" or "reject".
	Action string `json:"action" binding:"required,oneof=approve reject"`

	// IDs are the queue items to mutate. At least one is required.
	IDs []string `json:"ids" binding:"required,min=1,max=500,dive,required"`

	// Priority is an optional processing priority, approve only.
	Priority *int `json:"priority,omitempty" binding:"omitempty,gte=0,lte=100"`

	// Reason is an optional rejection note, reject only.
	Reason string `json:"reason,omitempty" binding:"max=1024"`
}

// QueueResponse is the body of GET /v1/queue.
type QueueResponse struct {
	// Items is the current queue, after server-side filtering.
	Items []queue.Item `json:"items"`

	// Total is len(Items), included so clients can render counts
	// without walking the list.
	Total int `json:"total"`
}

// StreamEvent is one frame of the /v1/events SSE stream.
//
// # Description
//
// Every event carries a UUID, a millisecond timestamp, and a hash chained
// to the previous event so a console client can detect dropped or
// reordered frames after a proxy hiccup.
type StreamEvent struct {
	// Id is a UUID v4 assigned at write time.
	Id string `json:"id"`

	// Type is the event kind: "fleet", "status", or "error".
	Type string `json:"type"`

	// CreatedAt is a Unix timestamp in milliseconds.
	CreatedAt int64 `json:"createdAt"`

	// Hash is the SHA-256 of this event's content.
	Hash string `json:"hash"`

	// PrevHash chains to the previous event on this stream.
	PrevHash string `json:"prevHash"`

	// Message is set for status events.
	Message string `json:"message,omitempty"`

	// Error is set for error events.
	Error string `json:"error,omitempty"`

	// Fleet is set for fleet events.
	Fleet *health.Snapshot `json:"fleet,omitempty"`
}

// ErrorResponse is the uniform error body for non-2xx responses.
type ErrorResponse struct {
	Error string `json:"error"`
}
