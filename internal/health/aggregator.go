// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package health

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jinterlante1206/AleutianBridge/internal/catalog"
	"github.com/jinterlante1206/AleutianBridge/internal/ident"
)

// SnapshotHandler is called with each completed snapshot.
type SnapshotHandler func(snap Snapshot)

// Aggregator runs scheduled probe passes and folds results into
// snapshots.
//
// # Description
//
// Each tick probes every catalog service concurrently, then rolls the
// records up into per-tier stats and an overall judgement. At most one
// pass runs at a time: if a tick fires while the previous pass is still
// probing, the tick is skipped, not queued. A skipped tick leaves the
// last snapshot in place.
//
// # Thread Safety
//
// Safe for concurrent use. Snapshot returns a copy of the latest pass;
// SetServices may be called at any time (catalog hot reload).
type Aggregator struct {
	prober Prober
	config AggregatorConfig
	logger *slog.Logger

	inFlight atomic.Bool

	mu       sync.RWMutex
	services []catalog.Descriptor
	latest   *Snapshot
	handler  SnapshotHandler
}

// NewAggregator creates an aggregator over the given catalog.
//
// # Inputs
//
//   - prober: probe implementation
//   - services: catalog entries to watch
//   - config: interval and severity thresholds
//   - logger: destination for pass logging (nil uses slog.Default)
func NewAggregator(prober Prober, services []catalog.Descriptor, config AggregatorConfig, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		prober:   prober,
		services: services,
		config:   config,
		logger:   logger,
	}
}

// SetSnapshotHandler registers a callback invoked after each completed
// pass. Must be set before Run.
func (a *Aggregator) SetSnapshotHandler(h SnapshotHandler) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handler = h
}

// SetServices replaces the watched catalog. The next tick probes the
// new set; results for removed services drop out of the next snapshot.
func (a *Aggregator) SetServices(services []catalog.Descriptor) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.services = services
}

// Snapshot returns the latest completed snapshot, or an all-unknown
// snapshot when no pass has completed yet.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.latest != nil {
		return *a.latest
	}
	return a.unknownSnapshotLocked()
}

// Tick performs one aggregation pass.
//
// # Description
//
// Probes every service concurrently and stores the resulting snapshot.
// Returns skipped=true without probing when a previous pass is still in
// flight.
//
// # Outputs
//
//   - Snapshot: the pass result, or the previous snapshot when skipped
//   - bool: true when the tick was skipped
func (a *Aggregator) Tick(ctx context.Context) (Snapshot, bool) {
	if !a.inFlight.CompareAndSwap(false, true) {
		a.logger.Debug("health pass still in flight, skipping tick")
		return a.Snapshot(), true
	}
	defer a.inFlight.Store(false)

	a.mu.RLock()
	services := a.services
	a.mu.RUnlock()

	start := time.Now()
	records := a.prober.ProbeAll(ctx, services)
	snap := a.fold(records)

	a.mu.Lock()
	a.latest = &snap
	handler := a.handler
	a.mu.Unlock()

	a.logger.Info("health pass complete",
		"services", len(records),
		"overall", snap.Overall.Severity,
		"percentage", snap.Overall.Percentage,
		"duration", time.Since(start))

	if handler != nil {
		handler(snap)
	}
	return snap, false
}

// Run executes aggregation passes on the configured interval until ctx
// is canceled. The first pass runs immediately.
func (a *Aggregator) Run(ctx context.Context) {
	a.Tick(ctx)

	ticker := time.NewTicker(a.config.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Tick(ctx)
		}
	}
}

// fold rolls per-service records into tier and overall stats.
func (a *Aggregator) fold(records []Record) Snapshot {
	snap := Snapshot{
		ID:          ident.GenerateID(),
		Records:     records,
		GeneratedAt: time.Now(),
	}

	byTier := make(map[catalog.Tier]*TierStats)
	for _, rec := range records {
		stats, ok := byTier[rec.Tier]
		if !ok {
			stats = &TierStats{Tier: rec.Tier}
			byTier[rec.Tier] = stats
		}
		tally(stats, rec.State)
		tally(&snap.Overall, rec.State)
	}

	for _, tier := range catalog.Tiers() {
		stats, ok := byTier[tier]
		if !ok {
			continue
		}
		finalize(stats, a.config)
		snap.Tiers = append(snap.Tiers, *stats)
	}
	finalize(&snap.Overall, a.config)
	return snap
}

func tally(stats *TierStats, state State) {
	stats.Total++
	switch state {
	case StateHealthy:
		stats.Healthy++
	case StateUnhealthy:
		stats.Unhealthy++
	default:
		stats.Unknown++
	}
}

// finalize computes the percentage and severity for a tallied bucket.
// Unknown services never count against a tier.
func finalize(stats *TierStats, config AggregatorConfig) {
	probed := stats.Healthy + stats.Unhealthy
	if probed == 0 {
		stats.Severity = SeverityUnknown
		return
	}
	stats.Percentage = HealthyPercentage(stats.Healthy, probed)
	stats.Severity = config.SeverityFor(stats.Percentage)
}

// unknownSnapshotLocked builds the pre-first-pass snapshot. Caller
// holds at least a read lock.
func (a *Aggregator) unknownSnapshotLocked() Snapshot {
	snap := Snapshot{
		ID:          ident.GenerateID(),
		Records:     make([]Record, 0, len(a.services)),
		GeneratedAt: time.Now(),
	}
	for _, svc := range a.services {
		snap.Records = append(snap.Records, Record{
			ID:    ident.GenerateID(),
			Slug:  svc.Slug,
			Title: svc.Title,
			Tier:  svc.Category,
			State: StateUnknown,
		})
	}

	byTier := make(map[catalog.Tier]*TierStats)
	for _, rec := range snap.Records {
		stats, ok := byTier[rec.Tier]
		if !ok {
			stats = &TierStats{Tier: rec.Tier}
			byTier[rec.Tier] = stats
		}
		tally(stats, rec.State)
		tally(&snap.Overall, rec.State)
	}
	for _, tier := range catalog.Tiers() {
		if stats, ok := byTier[tier]; ok {
			stats.Severity = SeverityUnknown
			snap.Tiers = append(snap.Tiers, *stats)
		}
	}
	snap.Overall.Severity = SeverityUnknown
	return snap
}
