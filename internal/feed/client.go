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
Package feed connects to the backend's queue change feed and supervises
the connection.

The client delivers change events in arrival order over a channel. The
supervisor tracks connection state and, while the feed is down, drives
a fallback polling loop so the queue view keeps converging.
*/
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jinterlante1206/AleutianBridge/internal/queue"
)

// =============================================================================
// INTERFACES
// =============================================================================

// Client receives queue change events from the backend.
//
// # Description
//
// A Client owns one websocket connection. Events are decoded from JSON
// frames and delivered on the Events channel in the order they arrived
// on the wire; the single read loop is what guarantees ordering.
//
// # Limitations
//
//   - No automatic reconnect; the supervisor owns that policy
//   - One Connect per Client; create a new Client to reconnect
//
// # Assumptions
//
//   - The caller drains Events and Errors
type Client interface {
	// Connect dials the feed and starts the read loop.
	Connect(ctx context.Context) error

	// Events returns the ordered change event stream. The channel is
	// closed when the connection ends.
	Events() <-chan queue.ChangeEvent

	// Errors reports the terminal read error, if any.
	Errors() <-chan error

	// Close tears down the connection.
	Close() error
}

// =============================================================================
// ERROR VARIABLES
// =============================================================================

// ErrAlreadyConnected is returned by Connect on a connected client.
var ErrAlreadyConnected = errors.New("feed client already connected")

// ErrNotConnected is returned by Close before Connect.
var ErrNotConnected = errors.New("feed client not connected")

// =============================================================================
// DEFAULT IMPLEMENTATION
// =============================================================================

// DefaultClient implements Client over gorilla/websocket.
//
// # Thread Safety
//
// Safe for concurrent use. The read loop is the only writer to the
// events channel.
type DefaultClient struct {
	url    string
	dialer *websocket.Dialer

	events chan queue.ChangeEvent
	errs   chan error

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	closeOnce sync.Once
}

// NewClient creates a feed client for the given websocket URL.
func NewClient(url string) *DefaultClient {
	return &DefaultClient{
		url:    url,
		dialer: websocket.DefaultDialer,
		events: make(chan queue.ChangeEvent, 256),
		errs:   make(chan error, 1),
	}
}

// Connect dials the feed endpoint and starts reading.
//
// # Inputs
//
//   - ctx: bounds the dial; cancellation after Connect returns does not
//     close the connection, Close does
//
// # Outputs
//
//   - error: dial failure, or ErrAlreadyConnected
func (c *DefaultClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}

	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("failed to connect to change feed: %w", err)
	}
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	go c.readLoop(conn)
	return nil
}

// Events returns the ordered event stream.
func (c *DefaultClient) Events() <-chan queue.ChangeEvent {
	return c.events
}

// Errors returns the terminal error channel.
func (c *DefaultClient) Errors() <-chan error {
	return c.errs
}

// Close tears down the connection. The events channel closes once the
// read loop observes the closed socket.
func (c *DefaultClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close()
	})
	return err
}

// readLoop decodes frames until the connection dies. Malformed frames
// are skipped; a dead connection reports one terminal error.
func (c *DefaultClient) readLoop(conn *websocket.Conn) {
	defer close(c.events)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			c.connected = false
			c.mu.Unlock()
			select {
			case c.errs <- err:
			default:
			}
			return
		}

		var ev queue.ChangeEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			continue
		}
		if !ev.Type.Valid() {
			continue
		}
		c.events <- ev
	}
}

// =============================================================================
// MOCK IMPLEMENTATION
// =============================================================================

// MockClient is a scriptable Client for tests.
//
// # Examples
//
//	mock := NewMockClient()
//	mock.Emit(queue.ChangeEvent{Type: queue.EventInsert, Item: item})
//	mock.Fail(io.ErrUnexpectedEOF)
type MockClient struct {
	ConnectFunc func(ctx context.Context) error

	ConnectCalls int
	CloseCalls   int
	mu           sync.Mutex

	events chan queue.ChangeEvent
	errs   chan error
	done   chan struct{}
	once   sync.Once
}

// NewMockClient creates a mock with buffered channels.
func NewMockClient() *MockClient {
	return &MockClient{
		events: make(chan queue.ChangeEvent, 64),
		errs:   make(chan error, 1),
		done:   make(chan struct{}),
	}
}

// Emit delivers an event to the consumer.
func (m *MockClient) Emit(ev queue.ChangeEvent) {
	m.events <- ev
}

// Fail reports a terminal error and closes the event stream.
func (m *MockClient) Fail(err error) {
	m.once.Do(func() {
		m.errs <- err
		close(m.events)
		close(m.done)
	})
}

// Connect implements Client for MockClient.
func (m *MockClient) Connect(ctx context.Context) error {
	m.mu.Lock()
	m.ConnectCalls++
	m.mu.Unlock()
	if m.ConnectFunc != nil {
		return m.ConnectFunc(ctx)
	}
	return nil
}

// Events implements Client for MockClient.
func (m *MockClient) Events() <-chan queue.ChangeEvent {
	return m.events
}

// Errors implements Client for MockClient.
func (m *MockClient) Errors() <-chan error {
	return m.errs
}

// Close implements Client for MockClient.
func (m *MockClient) Close() error {
	m.mu.Lock()
	m.CloseCalls++
	m.mu.Unlock()
	m.once.Do(func() {
		close(m.events)
		close(m.done)
	})
	return nil
}

var _ Client = (*DefaultClient)(nil)
var _ Client = (*MockClient)(nil)

// backoffDelay is a shared helper for reconnect pacing.
func backoffDelay(attempt int, base, max time.Duration) time.Duration {
	d := base << attempt
	if d > max || d <= 0 {
		return max
	}
	return d
}
