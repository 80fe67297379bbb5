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
Package catalog holds the static service catalog for the fleet.

The catalog is configuration, not state: descriptors are loaded once at
startup from a YAML file, validated, and handed to the health aggregator.
An optional watcher reloads the file on change so an operator can add a
service without restarting the bridge.
*/
package catalog

import (
	"fmt"
	"os"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// TIERS
// =============================================================================

// Tier is the fixed grouping used for hierarchical health rollups.
type Tier string

const (
	TierObservability Tier = "observability"
	TierDatabase      Tier = "database"
	TierData          Tier = "data"
	TierBus           Tier = "bus"
	TierWorkers       Tier = "workers"
	TierAgents        Tier = "agents"
	TierGPU           Tier = "gpu"
	TierMedia         Tier = "media"
	TierLLM           Tier = "llm"
	TierUI            Tier = "ui"
	TierIntegration   Tier = "integration"
)

// Tiers returns every known tier in stable display order.
func Tiers() []Tier {
	return []Tier{
		TierObservability, TierDatabase, TierData, TierBus,
		TierWorkers, TierAgents, TierGPU, TierMedia,
		TierLLM, TierUI, TierIntegration,
	}
}

// =============================================================================
// DESCRIPTORS
// =============================================================================

// EndpointRole tags what an endpoint is for.
type EndpointRole string

const (
	// RoleHealth is the endpoint probed for liveness.
	RoleHealth EndpointRole = "health"

	// RoleMetrics is an optional flat-metrics endpoint for display.
	RoleMetrics EndpointRole = "metrics"

	// RoleUI is a human-facing endpoint, not probed.
	RoleUI EndpointRole = "ui"

	// RoleAPI is a machine-facing endpoint, not probed.
	RoleAPI EndpointRole = "api"
)

// Endpoint is one addressable port/path on a service.
type Endpoint struct {
	// Port the service listens on.
	Port int `yaml:"port" validate:"required,gt=0,lte=65535"`

	// Path is the URL path, including the leading slash.
	Path string `yaml:"path" validate:"required,startswith=/"`

	// Role says what the endpoint is used for.
	Role EndpointRole `yaml:"role" validate:"required,oneof=health metrics ui api"`
}

// Descriptor is one static catalog entry for a fleet service.
//
// # Description
//
// Descriptors are loaded once at startup and are never mutated by the
// health subsystem; health results are keyed by Slug and kept separately.
//
// # Assumptions
//
//   - Slug is unique within the catalog
//   - Services are reachable on the configured host (default localhost)
type Descriptor struct {
	// Slug is the unique key for the service.
	Slug string `yaml:"slug" validate:"required,lowercase"`

	// Title is the human-readable name.
	Title string `yaml:"title" validate:"required"`

	// Category is the tier used for health rollups.
	Category Tier `yaml:"category" validate:"required,oneof=observability database data bus workers agents gpu media llm ui integration"`

	// Host overrides the probe host. Empty means localhost.
	Host string `yaml:"host,omitempty"`

	// Endpoints lists the service's addressable endpoints. Exactly one
	// health endpoint is expected for probing.
	Endpoints []Endpoint `yaml:"endpoints" validate:"required,min=1,dive"`
}

// EndpointByRole returns the first endpoint with the given role.
func (d Descriptor) EndpointByRole(role EndpointRole) (Endpoint, bool) {
	for _, ep := range d.Endpoints {
		if ep.Role == role {
			return ep, true
		}
	}
	return Endpoint{}, false
}

// HealthURL builds the URL probed for liveness.
//
// Returns an empty string when the descriptor has no health endpoint;
// such a service is reported as unknown rather than probed.
func (d Descriptor) HealthURL() string {
	ep, ok := d.EndpointByRole(RoleHealth)
	if !ok {
		return ""
	}
	return d.endpointURL(ep)
}

// MetricsURL builds the optional metrics scrape URL, empty when absent.
func (d Descriptor) MetricsURL() string {
	ep, ok := d.EndpointByRole(RoleMetrics)
	if !ok {
		return ""
	}
	return d.endpointURL(ep)
}

func (d Descriptor) endpointURL(ep Endpoint) string {
	host := d.Host
	if host == "" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d%s", host, ep.Port, ep.Path)
}

// =============================================================================
// LOADING
// =============================================================================

// catalogFile is the YAML shape of the catalog file.
type catalogFile struct {
	Services []Descriptor `yaml:"services"`
}

// catalogValidate validates descriptor fields on load.
var catalogValidate = validator.New()

// Load reads and validates the service catalog.
//
// # Description
//
// Parses the YAML catalog, validates every descriptor (field constraints
// plus slug uniqueness) and returns the descriptors sorted by tier order
// then slug, so downstream rendering is deterministic.
//
// # Inputs
//
//   - path: catalog file location
//
// # Outputs
//
//   - []Descriptor: validated catalog entries
//   - error: read, parse, or validation failure naming the offending slug
func Load(path string) ([]Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read service catalog: %w", err)
	}
	return Parse(data)
}

// Parse validates a raw catalog document. Split from Load for tests.
func Parse(data []byte) ([]Descriptor, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse service catalog: %w", err)
	}
	if len(file.Services) == 0 {
		return nil, fmt.Errorf("service catalog is empty")
	}

	seen := make(map[string]bool, len(file.Services))
	for i, d := range file.Services {
		if err := catalogValidate.Struct(d); err != nil {
			return nil, fmt.Errorf("invalid catalog entry %q (index %d): %w", d.Slug, i, err)
		}
		if seen[d.Slug] {
			return nil, fmt.Errorf("duplicate catalog slug %q", d.Slug)
		}
		seen[d.Slug] = true
	}

	sorted := make([]Descriptor, len(file.Services))
	copy(sorted, file.Services)
	tierOrder := make(map[Tier]int, len(Tiers()))
	for i, tier := range Tiers() {
		tierOrder[tier] = i
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Category != sorted[j].Category {
			return tierOrder[sorted[i].Category] < tierOrder[sorted[j].Category]
		}
		return sorted[i].Slug < sorted[j].Slug
	})
	return sorted, nil
}
