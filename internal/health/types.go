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
Package health probes fleet services and aggregates the results into
per-tier and system-wide rollups.

Probes are point-in-time HTTP GETs against each service's health
endpoint. The aggregator runs them on a schedule, skips a tick when the
previous one is still in flight, and folds the per-service records into
TierStats keyed by catalog tier.
*/
package health

import (
	"math"
	"time"

	"github.com/jinterlante1206/AleutianBridge/internal/catalog"
)

// =============================================================================
// STATES
// =============================================================================

// State is the probe outcome for one service.
type State string

const (
	// StateUnknown means the service has never been probed, or has no
	// health endpoint to probe.
	StateUnknown State = "unknown"

	// StateHealthy means the last probe returned a 2xx status.
	StateHealthy State = "healthy"

	// StateUnhealthy means the last probe failed, timed out, or
	// returned a non-2xx status.
	StateUnhealthy State = "unhealthy"

	// StateChecking means a probe is currently in flight and no prior
	// result exists.
	StateChecking State = "checking"
)

// Severity is the rolled-up judgement for a tier or the whole system.
type Severity string

const (
	SeverityHealthy   Severity = "healthy"
	SeverityWarning   Severity = "warning"
	SeverityUnhealthy Severity = "unhealthy"

	// SeverityUnknown applies when nothing in scope has been probed yet.
	SeverityUnknown Severity = "unknown"
)

// =============================================================================
// RECORDS
// =============================================================================

// Record is the latest probe result for one service.
type Record struct {
	// ID is a unique identifier for this probe result.
	ID string `json:"id"`

	// Slug identifies the service in the catalog.
	Slug string `json:"slug"`

	// Title is the service's display name.
	Title string `json:"title"`

	// Tier is the service's catalog tier.
	Tier catalog.Tier `json:"tier"`

	// State is the probe outcome.
	State State `json:"state"`

	// HTTPStatus is the response code, zero when the request never
	// completed.
	HTTPStatus int `json:"httpStatus,omitempty"`

	// Latency is how long the probe took.
	Latency time.Duration `json:"latency"`

	// Message is a short human-readable detail.
	Message string `json:"message,omitempty"`

	// Metrics holds optional flat key/value metrics scraped from the
	// service's metrics endpoint.
	Metrics map[string]string `json:"metrics,omitempty"`

	// CheckedAt is when the probe completed. Zero for unknown records.
	CheckedAt time.Time `json:"checkedAt"`
}

// TierStats is the rollup for one tier.
type TierStats struct {
	// Tier is the tier being summarized.
	Tier catalog.Tier `json:"tier"`

	// Total counts every service in the tier.
	Total int `json:"total"`

	// Healthy, Unhealthy, and Unknown partition Total.
	Healthy   int `json:"healthy"`
	Unhealthy int `json:"unhealthy"`
	Unknown   int `json:"unknown"`

	// Percentage is round(100 * Healthy / probed), where probed
	// excludes unknown services. Zero when nothing has been probed.
	Percentage int `json:"percentage"`

	// Severity is the tier judgement derived from Percentage.
	Severity Severity `json:"severity"`
}

// Snapshot is one complete aggregation pass over the fleet.
type Snapshot struct {
	// ID is a unique identifier for this snapshot.
	ID string `json:"id"`

	// Records holds the latest result per service, in catalog order.
	Records []Record `json:"records"`

	// Tiers holds the per-tier rollups, in catalog tier order. Tiers
	// with no services are omitted.
	Tiers []TierStats `json:"tiers"`

	// Overall is the system-wide rollup across every probed service.
	Overall TierStats `json:"overall"`

	// GeneratedAt is when the aggregation pass completed.
	GeneratedAt time.Time `json:"generatedAt"`
}

// =============================================================================
// CONFIGURATION
// =============================================================================

// ProbeConfig configures individual probes.
type ProbeConfig struct {
	// Timeout bounds a single probe request.
	Timeout time.Duration
}

// AggregatorConfig configures the scheduled aggregation loop.
type AggregatorConfig struct {
	// Interval between aggregation passes.
	Interval time.Duration

	// HealthyThreshold is the minimum healthy percentage for
	// SeverityHealthy.
	HealthyThreshold int

	// WarningThreshold is the minimum healthy percentage for
	// SeverityWarning. Below it the severity is unhealthy.
	WarningThreshold int
}

// DefaultProbeConfig returns the standard probe settings.
func DefaultProbeConfig() ProbeConfig {
	return ProbeConfig{
		Timeout: 5 * time.Second,
	}
}

// DefaultAggregatorConfig returns the standard aggregation settings.
func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		Interval:         30 * time.Second,
		HealthyThreshold: 80,
		WarningThreshold: 50,
	}
}

// =============================================================================
// ROLLUP MATH
// =============================================================================

// SeverityFor maps a healthy percentage onto a severity using the
// configured thresholds.
func (c AggregatorConfig) SeverityFor(percentage int) Severity {
	switch {
	case percentage >= c.HealthyThreshold:
		return SeverityHealthy
	case percentage >= c.WarningThreshold:
		return SeverityWarning
	default:
		return SeverityUnhealthy
	}
}

// HealthyPercentage computes round(100 * healthy / probed). Unknown
// services are excluded from the denominator so an unprobed fleet does
// not read as an outage.
func HealthyPercentage(healthy, probed int) int {
	if probed == 0 {
		return 0
	}
	return int(math.Round(100 * float64(healthy) / float64(probed)))
}
