// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"time"
)

type BridgeConfig struct {
	// Backend: where the authoritative queue lives
	Backend BackendConfig `yaml:"backend"`

	// Health: probe and aggregation settings
	Health HealthConfig `yaml:"health"`

	// Fallback: polling behavior while the change feed is down
	Fallback FallbackConfig `yaml:"fallback"`

	// Catalog: where the service catalog file lives
	Catalog CatalogConfig `yaml:"catalog"`
}

type BackendConfig struct {
	BaseURL        string        `yaml:"base_url"`        // e.g. http://localhost:8080
	FeedURL        string        `yaml:"feed_url"`        // e.g. ws://localhost:8080/v1/feed
	RequestTimeout time.Duration `yaml:"request_timeout"` // e.g. 10s
}

type HealthConfig struct {
	ProbeTimeout     time.Duration `yaml:"probe_timeout"`     // e.g. 5s
	Interval         time.Duration `yaml:"interval"`          // e.g. 30s
	HealthyThreshold int           `yaml:"healthy_threshold"` // e.g. 80
	WarningThreshold int           `yaml:"warning_threshold"` // e.g. 50
}

type FallbackConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"` // e.g. 3s
}

type CatalogConfig struct {
	Path string `yaml:"path"` // e.g. ~/.aleutian/catalog.yaml
}

func DefaultConfig() BridgeConfig {
	catalogPath := "catalog.yaml"
	if home, err := os.UserHomeDir(); err == nil {
		catalogPath = filepath.Join(home, ".aleutian", "catalog.yaml")
	}
	return BridgeConfig{
		Backend: BackendConfig{
			BaseURL:        "http://localhost:8080",
			FeedURL:        "ws://localhost:8080/v1/feed",
			RequestTimeout: 10 * time.Second,
		},
		Health: HealthConfig{
			ProbeTimeout:     5 * time.Second,
			Interval:         30 * time.Second,
			HealthyThreshold: 80,
			WarningThreshold: 50,
		},
		Fallback: FallbackConfig{
			PollInterval: 3 * time.Second,
		},
		Catalog: CatalogConfig{
			Path: catalogPath,
		},
	}
}
