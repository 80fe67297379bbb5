// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jinterlante1206/AleutianBridge/internal/health"
)

// Metrics contains the pre-defined metrics of the console service.
//
// All metrics use the "console_" prefix for consistent naming.
// Safe for concurrent use after creation.
type Metrics struct {
	// FleetSnapshotsTotal counts completed aggregation passes.
	FleetSnapshotsTotal metric.Int64Counter

	// FleetTierHealth records the per-tier healthy percentage.
	FleetTierHealth metric.Int64Gauge

	// FleetOverallHealth records the fleet-wide healthy percentage.
	FleetOverallHealth metric.Int64Gauge

	// BulkRequestsTotal counts bulk queue actions by action.
	BulkRequestsTotal metric.Int64Counter

	// BulkItemsTotal counts bulk-mutated items by action and outcome.
	BulkItemsTotal metric.Int64Counter

	// SSEClientsActive tracks currently connected event stream clients.
	SSEClientsActive metric.Int64UpDownCounter
}

// NewMetrics registers the console metrics with the provided meter.
//
// # Inputs
//
//   - meter: the OTel meter to register with, e.g. otel.Meter("console").
//
// # Outputs
//
//   - *Metrics: the initialized recorder.
//   - error: non-nil if any registration fails.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.FleetSnapshotsTotal, err = meter.Int64Counter(
		"console_fleet_snapshots_total",
		metric.WithDescription("Completed fleet aggregation passes"),
		metric.WithUnit("{snapshot}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create fleet_snapshots_total: %w", err)
	}

	m.FleetTierHealth, err = meter.Int64Gauge(
		"console_fleet_tier_health_percent",
		metric.WithDescription("Healthy percentage per tier"),
		metric.WithUnit("%"),
	)
	if err != nil {
		return nil, fmt.Errorf("create fleet_tier_health_percent: %w", err)
	}

	m.FleetOverallHealth, err = meter.Int64Gauge(
		"console_fleet_health_percent",
		metric.WithDescription("Fleet-wide healthy percentage"),
		metric.WithUnit("%"),
	)
	if err != nil {
		return nil, fmt.Errorf("create fleet_health_percent: %w", err)
	}

	m.BulkRequestsTotal, err = meter.Int64Counter(
		"console_bulk_requests_total",
		metric.WithDescription("Bulk queue actions"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create bulk_requests_total: %w", err)
	}

	m.BulkItemsTotal, err = meter.Int64Counter(
		"console_bulk_items_total",
		metric.WithDescription("Bulk-mutated queue items by outcome"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create bulk_items_total: %w", err)
	}

	m.SSEClientsActive, err = meter.Int64UpDownCounter(
		"console_sse_clients_active",
		metric.WithDescription("Currently connected event stream clients"),
		metric.WithUnit("{client}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create sse_clients_active: %w", err)
	}

	return m, nil
}

// ObserveSnapshot records the rollups of one aggregation pass.
func (m *Metrics) ObserveSnapshot(ctx context.Context, snap health.Snapshot) {
	m.FleetSnapshotsTotal.Add(ctx, 1)
	m.FleetOverallHealth.Record(ctx, int64(snap.Overall.Percentage))
	for _, tier := range snap.Tiers {
		m.FleetTierHealth.Record(ctx, int64(tier.Percentage),
			metric.WithAttributes(attribute.String("tier", string(tier.Tier))))
	}
}

// RecordBulk records the accounting of one bulk queue action.
func (m *Metrics) RecordBulk(ctx context.Context, action string, succeeded, failed int) {
	actionAttr := attribute.String("action", action)
	m.BulkRequestsTotal.Add(ctx, 1, metric.WithAttributes(actionAttr))
	m.BulkItemsTotal.Add(ctx, int64(succeeded),
		metric.WithAttributes(actionAttr, attribute.String("outcome", "succeeded")))
	m.BulkItemsTotal.Add(ctx, int64(failed),
		metric.WithAttributes(actionAttr, attribute.String("outcome", "failed")))
}
