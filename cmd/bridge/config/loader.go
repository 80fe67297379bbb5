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
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	// Global is a singleton instance
	Global BridgeConfig
	once   sync.Once
)

// Load ensures the config is loaded into the Global variable
func Load() error {
	var err error
	once.Do(func() {
		err = loadInternal()
	})
	return err
}

func loadInternal() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("could not find the user's home directory: %w", err)
	}
	configPath := filepath.Join(home, ".aleutian", "bridge.yaml")
	// create it if it doesn't exist
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		fmt.Printf(" First run detected, creating the config at %s\n", configPath)
		if err := createDefault(configPath); err != nil {
			return err
		}
	}
	return LoadFrom(configPath, &Global)
}

// LoadFrom reads a config file into dst. Missing fields keep their
// zero values; FillDefaults patches them afterwards.
func LoadFrom(path string, dst *BridgeConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read the config file %w", err)
	}
	if err = yaml.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to parse the config file: %w", err)
	}
	dst.FillDefaults()
	return nil
}

// FillDefaults replaces zero-valued fields with the defaults.
func (c *BridgeConfig) FillDefaults() {
	def := DefaultConfig()
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = def.Backend.BaseURL
	}
	if c.Backend.FeedURL == "" {
		c.Backend.FeedURL = def.Backend.FeedURL
	}
	if c.Backend.RequestTimeout <= 0 {
		c.Backend.RequestTimeout = def.Backend.RequestTimeout
	}
	if c.Health.ProbeTimeout <= 0 {
		c.Health.ProbeTimeout = def.Health.ProbeTimeout
	}
	if c.Health.Interval <= 0 {
		c.Health.Interval = def.Health.Interval
	}
	if c.Health.HealthyThreshold <= 0 {
		c.Health.HealthyThreshold = def.Health.HealthyThreshold
	}
	if c.Health.WarningThreshold <= 0 {
		c.Health.WarningThreshold = def.Health.WarningThreshold
	}
	if c.Fallback.PollInterval <= 0 {
		c.Fallback.PollInterval = def.Fallback.PollInterval
	}
	if c.Catalog.Path == "" {
		c.Catalog.Path = def.Catalog.Path
	}
}

func createDefault(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create the config directory %w", err)
	}
	defaultCfg := DefaultConfig()
	data, err := yaml.Marshal(defaultCfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
