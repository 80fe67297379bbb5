// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jinterlante1206/AleutianBridge/internal/health"
	"github.com/jinterlante1206/AleutianBridge/services/console/datatypes"
)

// =============================================================================
// Interface Definition
// =============================================================================

// SSEWriter writes Server-Sent Events to an HTTP response.
//
// # Description
//
// SSEWriter abstracts the SSE wire format (event: type\ndata: json\n\n)
// so streaming handlers stay testable. Each event is assigned a UUID, a
// millisecond timestamp, and a SHA-256 hash chained to the previous
// event so clients can detect dropped or reordered frames.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use; the fleet ticker and
// the keepalive ticker write from different goroutines.
//
// # Assumptions
//
//   - Caller has set Content-Type: text/event-stream before writing
//   - The underlying ResponseWriter supports http.Flusher
type SSEWriter interface {
	// WriteFleet writes a fleet event carrying a full snapshot.
	WriteFleet(snap health.Snapshot) error

	// WriteStatus writes a status event with a human-readable message.
	WriteStatus(message string) error

	// WriteError writes an error event. The message must already be
	// sanitized; internal details stay in the server log.
	WriteError(errMsg string) error

	// WriteKeepAlive sends an SSE comment line to keep intermediaries
	// from timing out the connection. Comments are not chained.
	WriteKeepAlive() error
}

// =============================================================================
// Struct Definition
// =============================================================================

// sseWriter implements SSEWriter over an http.ResponseWriter.
type sseWriter struct {
	writer   http.ResponseWriter
	flusher  http.Flusher
	prevHash string
	mu       sync.Mutex
}

// =============================================================================
// Constructor
// =============================================================================

// NewSSEWriter creates an SSEWriter for the given ResponseWriter.
//
// Returns an error if the ResponseWriter does not support http.Flusher.
func NewSSEWriter(w http.ResponseWriter) (SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("ResponseWriter does not support http.Flusher")
	}
	return &sseWriter{writer: w, flusher: flusher}, nil
}

// SetSSEHeaders sets the response headers required for an SSE stream.
func SetSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// =============================================================================
// Methods
// =============================================================================

func (w *sseWriter) writeEvent(event datatypes.StreamEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	event.Id = uuid.New().String()
	event.CreatedAt = time.Now().UnixMilli()
	event.PrevHash = w.prevHash
	event.Hash = computeEventHash(event)
	w.prevHash = event.Hash

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if _, err := fmt.Fprintf(w.writer, "event: %s\ndata: %s\n\n", event.Type, data); err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	w.flusher.Flush()
	return nil
}

// computeEventHash hashes all content fields. The snapshot is serialized
// to JSON so the hash covers every record, not just the rollups.
func computeEventHash(event datatypes.StreamEvent) string {
	fleetJSON := ""
	if event.Fleet != nil {
		if data, err := json.Marshal(event.Fleet); err == nil {
			fleetJSON = string(data)
		}
	}

	hashInput := fmt.Sprintf("%s|%s|%d|%s|%s|%s|%s",
		event.Id,
		event.Type,
		event.CreatedAt,
		event.PrevHash,
		event.Message,
		event.Error,
		fleetJSON,
	)

	hash := sha256.Sum256([]byte(hashInput))
	return hex.EncodeToString(hash[:])
}

// WriteFleet writes a fleet event carrying a full snapshot.
func (w *sseWriter) WriteFleet(snap health.Snapshot) error {
	return w.writeEvent(datatypes.StreamEvent{
		Type:  "fleet",
		Fleet: &snap,
	})
}

// WriteStatus writes a status event with the given message.
func (w *sseWriter) WriteStatus(message string) error {
	return w.writeEvent(datatypes.StreamEvent{
		Type:    "status",
		Message: message,
	})
}

// WriteError writes an error event.
func (w *sseWriter) WriteError(errMsg string) error {
	return w.writeEvent(datatypes.StreamEvent{
		Type:  "error",
		Error: errMsg,
	})
}

// WriteKeepAlive sends an SSE comment line.
func (w *sseWriter) WriteKeepAlive() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := fmt.Fprint(w.writer, ": ping\n\n"); err != nil {
		return fmt.Errorf("write keepalive: %w", err)
	}
	w.flusher.Flush()
	return nil
}
