// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package health

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jinterlante1206/AleutianBridge/internal/catalog"
)

// fleetOf builds n descriptors in one tier.
func fleetOf(n int, tier catalog.Tier) []catalog.Descriptor {
	services := make([]catalog.Descriptor, n)
	for i := range services {
		services[i] = descriptor(string(rune('a'+i)), tier)
	}
	return services
}

// proberWithStates returns healthy for the first h services and
// unhealthy for the rest.
func proberWithStates(healthySlugs map[string]bool) *MockProber {
	return &MockProber{
		ProbeFunc: func(ctx context.Context, svc catalog.Descriptor) Record {
			state := StateUnhealthy
			if healthySlugs[svc.Slug] {
				state = StateHealthy
			}
			return Record{
				Slug:      svc.Slug,
				Title:     svc.Title,
				Tier:      svc.Category,
				State:     state,
				CheckedAt: time.Now(),
			}
		},
	}
}

func TestTick_EightOfTenIsHealthy(t *testing.T) {
	services := fleetOf(10, catalog.TierWorkers)
	healthy := map[string]bool{}
	for i := 0; i < 8; i++ {
		healthy[services[i].Slug] = true
	}

	agg := NewAggregator(proberWithStates(healthy), services, DefaultAggregatorConfig(), nil)
	snap, skipped := agg.Tick(context.Background())
	if skipped {
		t.Fatal("first tick must not be skipped")
	}

	if len(snap.Tiers) != 1 {
		t.Fatalf("expected 1 tier, got %d", len(snap.Tiers))
	}
	tier := snap.Tiers[0]
	if tier.Percentage != 80 {
		t.Errorf("expected 80%%, got %d%%", tier.Percentage)
	}
	if tier.Severity != SeverityHealthy {
		t.Errorf("expected healthy severity, got %s", tier.Severity)
	}
	if snap.Overall.Severity != SeverityHealthy {
		t.Errorf("expected overall healthy, got %s", snap.Overall.Severity)
	}
}

func TestTick_FourOfTenIsUnhealthy(t *testing.T) {
	services := fleetOf(10, catalog.TierWorkers)
	healthy := map[string]bool{}
	for i := 0; i < 4; i++ {
		healthy[services[i].Slug] = true
	}

	agg := NewAggregator(proberWithStates(healthy), services, DefaultAggregatorConfig(), nil)
	snap, _ := agg.Tick(context.Background())

	tier := snap.Tiers[0]
	if tier.Percentage != 40 {
		t.Errorf("expected 40%%, got %d%%", tier.Percentage)
	}
	if tier.Severity != SeverityUnhealthy {
		t.Errorf("expected unhealthy severity, got %s", tier.Severity)
	}
}

func TestTick_WarningBand(t *testing.T) {
	// 3 of 5 healthy = 60%, inside the warning band.
	services := fleetOf(5, catalog.TierAgents)
	healthy := map[string]bool{
		services[0].Slug: true,
		services[1].Slug: true,
		services[2].Slug: true,
	}

	agg := NewAggregator(proberWithStates(healthy), services, DefaultAggregatorConfig(), nil)
	snap, _ := agg.Tick(context.Background())

	if snap.Tiers[0].Percentage != 60 {
		t.Errorf("expected 60%%, got %d%%", snap.Tiers[0].Percentage)
	}
	if snap.Tiers[0].Severity != SeverityWarning {
		t.Errorf("expected warning severity, got %s", snap.Tiers[0].Severity)
	}
}

func TestTick_UnknownExcludedFromPercentage(t *testing.T) {
	prober := &MockProber{
		ProbeFunc: func(ctx context.Context, svc catalog.Descriptor) Record {
			state := StateUnknown
			switch svc.Slug {
			case "a":
				state = StateHealthy
			case "b":
				state = StateUnhealthy
			}
			return Record{Slug: svc.Slug, Tier: svc.Category, State: state}
		},
	}
	services := fleetOf(4, catalog.TierMedia)

	agg := NewAggregator(prober, services, DefaultAggregatorConfig(), nil)
	snap, _ := agg.Tick(context.Background())

	tier := snap.Tiers[0]
	if tier.Unknown != 2 {
		t.Errorf("expected 2 unknown, got %d", tier.Unknown)
	}
	// 1 healthy of 2 probed.
	if tier.Percentage != 50 {
		t.Errorf("expected 50%%, got %d%%", tier.Percentage)
	}
}

func TestTick_AllUnknownTierIsUnknownSeverity(t *testing.T) {
	prober := &MockProber{
		ProbeFunc: func(ctx context.Context, svc catalog.Descriptor) Record {
			return Record{Slug: svc.Slug, Tier: svc.Category, State: StateUnknown}
		},
	}
	services := fleetOf(3, catalog.TierUI)

	agg := NewAggregator(prober, services, DefaultAggregatorConfig(), nil)
	snap, _ := agg.Tick(context.Background())

	if snap.Tiers[0].Severity != SeverityUnknown {
		t.Errorf("expected unknown severity, got %s", snap.Tiers[0].Severity)
	}
	if snap.Overall.Severity != SeverityUnknown {
		t.Errorf("expected overall unknown, got %s", snap.Overall.Severity)
	}
}

func TestTick_GroupsByTier(t *testing.T) {
	services := []catalog.Descriptor{
		descriptor("grafana", catalog.TierObservability),
		descriptor("postgres", catalog.TierDatabase),
		descriptor("weaviate", catalog.TierDatabase),
	}
	healthy := map[string]bool{"grafana": true, "postgres": true}

	agg := NewAggregator(proberWithStates(healthy), services, DefaultAggregatorConfig(), nil)
	snap, _ := agg.Tick(context.Background())

	if len(snap.Tiers) != 2 {
		t.Fatalf("expected 2 tiers, got %d", len(snap.Tiers))
	}
	// Tier order follows catalog display order.
	if snap.Tiers[0].Tier != catalog.TierObservability {
		t.Errorf("expected observability first, got %s", snap.Tiers[0].Tier)
	}
	if snap.Tiers[1].Tier != catalog.TierDatabase {
		t.Errorf("expected database second, got %s", snap.Tiers[1].Tier)
	}
	if snap.Tiers[1].Percentage != 50 {
		t.Errorf("expected database tier at 50%%, got %d%%", snap.Tiers[1].Percentage)
	}
}

func TestTick_OverlappingTickIsSkipped(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var startedOnce sync.Once
	prober := &MockProber{
		ProbeAllFunc: func(ctx context.Context, services []catalog.Descriptor) []Record {
			startedOnce.Do(func() { close(started) })
			<-release
			records := make([]Record, len(services))
			for i, svc := range services {
				records[i] = Record{Slug: svc.Slug, Tier: svc.Category, State: StateHealthy}
			}
			return records
		},
	}
	services := fleetOf(2, catalog.TierData)
	agg := NewAggregator(prober, services, DefaultAggregatorConfig(), nil)

	firstDone := make(chan Snapshot, 1)
	go func() {
		snap, _ := agg.Tick(context.Background())
		firstDone <- snap
	}()

	<-started
	_, skipped := agg.Tick(context.Background())
	if !skipped {
		t.Error("expected overlapping tick to be skipped")
	}

	close(release)
	select {
	case snap := <-firstDone:
		if snap.Overall.Healthy != 2 {
			t.Errorf("expected first pass to complete with 2 healthy, got %d", snap.Overall.Healthy)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for first pass")
	}

	// With the first pass finished, ticks run again.
	if _, skipped := agg.Tick(context.Background()); skipped {
		t.Error("expected tick after completion to run")
	}
}

func TestSnapshot_BeforeFirstPassIsAllUnknown(t *testing.T) {
	services := fleetOf(3, catalog.TierLLM)
	agg := NewAggregator(&MockProber{}, services, DefaultAggregatorConfig(), nil)

	snap := agg.Snapshot()
	if len(snap.Records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(snap.Records))
	}
	for _, rec := range snap.Records {
		if rec.State != StateUnknown {
			t.Errorf("service %s: expected unknown, got %s", rec.Slug, rec.State)
		}
	}
	if snap.Overall.Severity != SeverityUnknown {
		t.Errorf("expected overall unknown, got %s", snap.Overall.Severity)
	}
}

func TestSetServices_NextTickUsesNewCatalog(t *testing.T) {
	agg := NewAggregator(&MockProber{}, fleetOf(2, catalog.TierData), DefaultAggregatorConfig(), nil)
	agg.Tick(context.Background())

	agg.SetServices(fleetOf(5, catalog.TierData))
	snap, _ := agg.Tick(context.Background())
	if len(snap.Records) != 5 {
		t.Errorf("expected 5 records after catalog swap, got %d", len(snap.Records))
	}
}

func TestTick_InvokesSnapshotHandler(t *testing.T) {
	agg := NewAggregator(&MockProber{}, fleetOf(1, catalog.TierBus), DefaultAggregatorConfig(), nil)

	var got *Snapshot
	agg.SetSnapshotHandler(func(snap Snapshot) {
		got = &snap
	})
	agg.Tick(context.Background())
	if got == nil {
		t.Fatal("expected snapshot handler to be called")
	}
	if got.Overall.Healthy != 1 {
		t.Errorf("expected 1 healthy in handler snapshot, got %d", got.Overall.Healthy)
	}
}

func TestHealthyPercentage_Rounds(t *testing.T) {
	tests := []struct {
		healthy, probed, want int
	}{
		{1, 3, 33},
		{2, 3, 67},
		{1, 6, 17},
		{0, 5, 0},
		{5, 5, 100},
		{0, 0, 0},
	}
	for _, tt := range tests {
		if got := HealthyPercentage(tt.healthy, tt.probed); got != tt.want {
			t.Errorf("HealthyPercentage(%d, %d) = %d, want %d", tt.healthy, tt.probed, got, tt.want)
		}
	}
}
