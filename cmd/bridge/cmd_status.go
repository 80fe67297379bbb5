// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jinterlante1206/AleutianBridge/cmd/bridge/config"
	"github.com/jinterlante1206/AleutianBridge/internal/catalog"
	"github.com/jinterlante1206/AleutianBridge/internal/health"
)

// runStatus probes the whole catalog once and prints tier rollups.
//
// Exits 1 when the overall severity is unhealthy so scripts can gate
// on it.
func runStatus(cmd *cobra.Command, args []string) {
	services, err := catalog.Load(config.Global.Catalog.Path)
	if err != nil {
		logger.Error("failed to load service catalog", "error", err)
		os.Exit(1)
	}

	agg := newAggregator(services)
	ctx, cancel := context.WithTimeout(context.Background(), 2*config.Global.Health.ProbeTimeout)
	defer cancel()

	snap, _ := agg.Tick(ctx)

	if jsonOutput {
		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			logger.Error("failed to encode snapshot", "error", err)
			os.Exit(1)
		}
		fmt.Println(string(data))
	} else {
		renderSnapshot(snap)
	}

	if snap.Overall.Severity == health.SeverityUnhealthy {
		os.Exit(1)
	}
}

// newAggregator builds the health stack from the loaded config.
func newAggregator(services []catalog.Descriptor) *health.Aggregator {
	prober := health.NewDefaultProber(health.ProbeConfig{
		Timeout: config.Global.Health.ProbeTimeout,
	})
	return health.NewAggregator(prober, services, health.AggregatorConfig{
		Interval:         config.Global.Health.Interval,
		HealthyThreshold: config.Global.Health.HealthyThreshold,
		WarningThreshold: config.Global.Health.WarningThreshold,
	}, logger.Slog())
}

// renderSnapshot prints the human-readable health report.
func renderSnapshot(snap health.Snapshot) {
	fmt.Printf("Fleet Health — %s\n\n", snap.GeneratedAt.Format(time.RFC1123))

	for _, tier := range snap.Tiers {
		fmt.Printf("%s %-15s %3d%%  (%d/%d healthy",
			severityGlyph(tier.Severity), tier.Tier, tier.Percentage,
			tier.Healthy, tier.Healthy+tier.Unhealthy)
		if tier.Unknown > 0 {
			fmt.Printf(", %d unknown", tier.Unknown)
		}
		fmt.Println(")")
	}

	fmt.Println()
	if verbose {
		for _, rec := range snap.Records {
			line := fmt.Sprintf("  %s %-22s %-10s", severityGlyphForState(rec.State), rec.Slug, rec.State)
			if rec.State != health.StateUnknown {
				line += fmt.Sprintf(" %6dms", rec.Latency.Milliseconds())
			}
			if rec.Message != "" {
				line += "  " + rec.Message
			}
			fmt.Println(line)
		}
		fmt.Println()
	}

	fmt.Printf("Overall: %s (%d%% of %d probed services healthy)\n",
		snap.Overall.Severity, snap.Overall.Percentage,
		snap.Overall.Healthy+snap.Overall.Unhealthy)
	if snap.Overall.Unknown > 0 {
		fmt.Printf("Unknown: %d services have no health endpoint or were never probed\n",
			snap.Overall.Unknown)
	}
}

func severityGlyph(s health.Severity) string {
	switch s {
	case health.SeverityHealthy:
		return "✅"
	case health.SeverityWarning:
		return "⚠️ "
	case health.SeverityUnhealthy:
		return "❌"
	default:
		return "❔"
	}
}

func severityGlyphForState(s health.State) string {
	switch s {
	case health.StateHealthy:
		return "✅"
	case health.StateUnhealthy:
		return "❌"
	default:
		return "❔"
	}
}
