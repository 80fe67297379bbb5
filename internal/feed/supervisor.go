// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ConnState represents the supervised connection state.
//
// # States
//
//   - Connecting: initial dial or a reconnect attempt in progress
//   - Connected: live feed delivering events
//   - Degraded: feed down, fallback polling keeps the view converging
//
// # State Diagram
//
//	CONNECTING ──[dial ok]──► CONNECTED ──[read error]──► DEGRADED
//	     ▲                        ▲                          │
//	     │                        └───────[resync ok]────────┤
//	     └────────────────[reconnect attempt]────────────────┘
type ConnState int

const (
	// StateConnecting means a dial is in progress.
	StateConnecting ConnState = iota

	// StateConnected means the live feed is up.
	StateConnected

	// StateDegraded means the feed is down and polling is active.
	StateDegraded
)

// String returns a human-readable state name.
func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateDegraded:
		return "DEGRADED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// ResyncFunc fetches the authoritative queue state and merges it into
// the local view. Called from the fallback polling loop.
type ResyncFunc func(ctx context.Context) error

// SupervisorConfig configures connection supervision.
type SupervisorConfig struct {
	// PollInterval is the fallback polling cadence while degraded.
	// Default: 3 seconds
	PollInterval time.Duration

	// ReconnectBase is the initial reconnect backoff.
	// Default: 1 second
	ReconnectBase time.Duration

	// ReconnectMax caps the reconnect backoff.
	// Default: 30 seconds
	ReconnectMax time.Duration

	// OnStateChange is called on transitions. Called asynchronously to
	// avoid blocking the reporter.
	OnStateChange func(from, to ConnState)
}

// DefaultSupervisorConfig returns sensible defaults.
func DefaultSupervisorConfig() SupervisorConfig {
	return SupervisorConfig{
		PollInterval:  3 * time.Second,
		ReconnectBase: 1 * time.Second,
		ReconnectMax:  30 * time.Second,
	}
}

// Supervisor tracks feed connection health and runs fallback polling.
//
// # Description
//
// The watch loop reports connection lifecycle events; the supervisor
// maintains the state machine and, while degraded, drives ResyncFunc on
// the poll interval. Resynced state flows through the same reconcile
// merge as live events, so consumers never see a different code path.
//
// # Thread Safety
//
// Safe for concurrent use.
type Supervisor struct {
	config SupervisorConfig
	resync ResyncFunc
	logger *slog.Logger

	mu         sync.Mutex
	state      ConnState
	attempts   int
	pollCancel context.CancelFunc
	closed     bool
}

// NewSupervisor creates a supervisor in the connecting state.
//
// # Inputs
//
//   - config: poll and backoff settings, zero values take defaults
//   - resync: fallback fetch-and-merge, must be non-nil
//   - logger: nil uses slog.Default
func NewSupervisor(config SupervisorConfig, resync ResyncFunc, logger *slog.Logger) *Supervisor {
	if config.PollInterval <= 0 {
		config.PollInterval = 3 * time.Second
	}
	if config.ReconnectBase <= 0 {
		config.ReconnectBase = 1 * time.Second
	}
	if config.ReconnectMax <= 0 {
		config.ReconnectMax = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		config: config,
		resync: resync,
		logger: logger,
		state:  StateConnecting,
	}
}

// State returns the current connection state.
func (s *Supervisor) State() ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ReportConnected records a successful dial. Stops fallback polling.
func (s *Supervisor) ReportConnected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = 0
	s.stopPollingLocked()
	s.transitionLocked(StateConnected)
}

// ReportDisconnected records a lost or failed connection and starts
// fallback polling until the feed recovers.
func (s *Supervisor) ReportDisconnected(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.attempts++
	if err != nil {
		s.logger.Warn("change feed lost, entering degraded mode",
			"error", err, "attempt", s.attempts)
	}
	if s.state != StateDegraded {
		s.startPollingLocked()
		s.transitionLocked(StateDegraded)
	}
}

// ReportReconnecting records the start of a reconnect attempt. Polling
// continues until the connection is reestablished.
func (s *Supervisor) ReportReconnecting() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateConnected {
		s.transitionLocked(StateConnecting)
	}
}

// NextBackoff returns the delay before the next reconnect attempt.
func (s *Supervisor) NextBackoff() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attempts == 0 {
		return 0
	}
	return backoffDelay(s.attempts-1, s.config.ReconnectBase, s.config.ReconnectMax)
}

// Close stops polling permanently.
func (s *Supervisor) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.stopPollingLocked()
}

// transitionLocked changes state and fires the callback. Caller holds mu.
func (s *Supervisor) transitionLocked(to ConnState) {
	if s.state == to {
		return
	}
	from := s.state
	s.state = to
	s.logger.Info("feed connection state changed", "from", from.String(), "to", to.String())
	if s.config.OnStateChange != nil {
		go s.config.OnStateChange(from, to)
	}
}

// startPollingLocked launches the fallback poll loop. Caller holds mu.
func (s *Supervisor) startPollingLocked() {
	if s.pollCancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.pollCancel = cancel
	go s.pollLoop(ctx)
}

// stopPollingLocked cancels the poll loop if running. Caller holds mu.
func (s *Supervisor) stopPollingLocked() {
	if s.pollCancel != nil {
		s.pollCancel()
		s.pollCancel = nil
	}
}

// pollLoop resyncs on the configured interval until canceled. The first
// resync runs immediately so the view converges without waiting a full
// interval.
func (s *Supervisor) pollLoop(ctx context.Context) {
	s.runResync(ctx)

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runResync(ctx)
		}
	}
}

func (s *Supervisor) runResync(ctx context.Context) {
	if err := s.resync(ctx); err != nil {
		s.logger.Warn("fallback poll failed", "error", err)
	}
}
