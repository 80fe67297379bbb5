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
Package backend is the HTTP client for the queue backend.

The backend owns the authoritative queue. This client covers the three
operations the bridge needs: fetch the queue (optionally filtered),
approve an item, and reject an item. Approve and reject satisfy
queue.Mutator so the bulk coordinator drives them directly.
*/
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/jinterlante1206/AleutianBridge/internal/queue"
)

// =============================================================================
// INTERFACES
// =============================================================================

// Client talks to the queue backend.
//
// # Limitations
//
//   - No retries; callers own retry policy
//   - No pagination beyond the filter's fetch cap; the queue is small
//     enough to fetch whole
//
// # Assumptions
//
//   - The backend is authoritative for queue state
type Client interface {
	// FetchQueue returns the backend's queue, newest first, applying
	// the filter server-side when one is given.
	FetchQueue(ctx context.Context, filter queue.Filter) ([]queue.Item, error)

	// Approve marks a pending item approved, optionally setting its
	// processing priority.
	Approve(ctx context.Context, id string, priority *int) error

	// Reject marks a pending item rejected with a reason.
	Reject(ctx context.Context, id string, reason string) error
}

// HTTPClient abstracts the transport for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrNotFound is returned when the backend reports 404 for an item.
var ErrNotFound = errors.New("queue item not found")

// TransportError reports a failed backend call.
type TransportError struct {
	// Op is the logical operation: "fetch", "approve", "reject".
	Op string

	// Status is the HTTP status code, zero when the request never
	// completed.
	Status int

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("backend %s failed: HTTP %d", e.Op, e.Status)
	}
	return fmt.Sprintf("backend %s failed: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// =============================================================================
// DEFAULT IMPLEMENTATION
// =============================================================================

// DefaultClient implements Client over HTTP.
//
// # Thread Safety
//
// Safe for concurrent use.
type DefaultClient struct {
	baseURL    string
	httpClient HTTPClient
}

// NewClient creates a backend client.
//
// # Inputs
//
//   - baseURL: backend root, no trailing slash required
//   - timeout: per-request timeout
func NewClient(baseURL string, timeout time.Duration) *DefaultClient {
	return &DefaultClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// NewClientWithHTTPClient injects a custom transport, used in tests.
func NewClientWithHTTPClient(baseURL string, client HTTPClient) *DefaultClient {
	return &DefaultClient{
		baseURL:    baseURL,
		httpClient: client,
	}
}

// FetchQueue returns the backend queue.
//
// # Outputs
//
//   - []queue.Item: items newest first, as the backend orders them
//   - error: *TransportError on failure
func (c *DefaultClient) FetchQueue(ctx context.Context, filter queue.Filter) ([]queue.Item, error) {
	endpoint := c.baseURL + "/queue"
	params := url.Values{}
	if filter.Status != "" {
		params.Set("status", string(filter.Status))
	}
	if filter.SourceType != "" {
		params.Set("sourceType", string(filter.SourceType))
	}
	if filter.Limit > 0 {
		params.Set("limit", strconv.Itoa(filter.Limit))
	}
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &TransportError{Op: "fetch", Err: err}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "fetch", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{Op: "fetch", Status: resp.StatusCode, Err: readError(resp.Body)}
	}

	var payload struct {
		Items []queue.Item `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &TransportError{Op: "fetch", Err: fmt.Errorf("failed to decode queue: %w", err)}
	}
	return payload.Items, nil
}

// Approve marks a pending item approved.
func (c *DefaultClient) Approve(ctx context.Context, id string, priority *int) error {
	body := map[string]any{}
	if priority != nil {
		body["priority"] = *priority
	}
	return c.post(ctx, "approve", id, body)
}

// Reject marks a pending item rejected.
func (c *DefaultClient) Reject(ctx context.Context, id string, reason string) error {
	body := map[string]any{}
	if reason != "" {
		body["reason"] = reason
	}
	return c.post(ctx, "reject", id, body)
}

// post issues the item mutation request.
func (c *DefaultClient) post(ctx context.Context, op, id string, body map[string]any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}

	endpoint := fmt.Sprintf("%s/queue/%s/%s", c.baseURL, url.PathEscape(id), op)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return &TransportError{Op: op, Status: resp.StatusCode, Err: ErrNotFound}
	default:
		return &TransportError{Op: op, Status: resp.StatusCode, Err: readError(resp.Body)}
	}
}

// readError extracts an error message from a failure body, tolerating
// non-JSON responses.
func readError(r io.Reader) error {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(data) == 0 {
		return nil
	}
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		return errors.New(payload.Error)
	}
	return errors.New(strconv.Quote(string(data)))
}

// =============================================================================
// MOCK IMPLEMENTATION
// =============================================================================

// MockClient is a configurable Client for tests.
type MockClient struct {
	FetchQueueFunc func(ctx context.Context, filter queue.Filter) ([]queue.Item, error)
	ApproveFunc    func(ctx context.Context, id string, priority *int) error
	RejectFunc     func(ctx context.Context, id string, reason string) error

	FetchQueueCalls []queue.Filter
	ApproveCalls    []string
	RejectCalls     []string
	mu              sync.Mutex
}

// FetchQueue implements Client for MockClient.
func (m *MockClient) FetchQueue(ctx context.Context, filter queue.Filter) ([]queue.Item, error) {
	m.mu.Lock()
	m.FetchQueueCalls = append(m.FetchQueueCalls, filter)
	m.mu.Unlock()
	if m.FetchQueueFunc != nil {
		return m.FetchQueueFunc(ctx, filter)
	}
	return []queue.Item{}, nil
}

// Approve implements Client for MockClient.
func (m *MockClient) Approve(ctx context.Context, id string, priority *int) error {
	m.mu.Lock()
	m.ApproveCalls = append(m.ApproveCalls, id)
	m.mu.Unlock()
	if m.ApproveFunc != nil {
		return m.ApproveFunc(ctx, id, priority)
	}
	return nil
}

// Reject implements Client for MockClient.
func (m *MockClient) Reject(ctx context.Context, id string, reason string) error {
	m.mu.Lock()
	m.RejectCalls = append(m.RejectCalls, id)
	m.mu.Unlock()
	if m.RejectFunc != nil {
		return m.RejectFunc(ctx, id, reason)
	}
	return nil
}

var _ Client = (*DefaultClient)(nil)
var _ Client = (*MockClient)(nil)
var _ queue.Mutator = (*DefaultClient)(nil)
