// Copyright (C) 2026 Headway Tools (dev@headway.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads the ~/.headway/config.json document into a
// process-wide singleton and resolves every on-disk path the CLI uses.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/mod/semver"
)

var (
	global  HeadwayConfig
	once    sync.Once
	loadErr error
)

// Load parses the default config document into the singleton, creating
// it on first run. Safe to call from every command; the work happens
// once and later calls return the first outcome.
func Load() error {
	once.Do(func() {
		loadErr = LoadGlobalConfig(DefaultConfigPath())
	})
	return loadErr
}

// Global returns the singleton. Before a successful Load it holds
// normalized defaults.
func Global() *HeadwayConfig {
	return &global
}

// LoadGlobalConfig loads an explicit path into the singleton, bypassing
// the once guard. Tests and HEADWAY_CONFIG switches go through here.
func LoadGlobalConfig(path string) error {
	cfg, err := loadFrom(path)
	if err != nil {
		return err
	}
	global = *cfg
	return nil
}

func loadFrom(path string) (*HeadwayConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Printf("First run detected, creating the config at %s\n", path)
		if err := createDefault(path); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg HeadwayConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	cfg.Normalize()

	if !semver.IsValid(cfg.FormatVersion) || semver.Major(cfg.FormatVersion) != CurrentFormatVersion {
		return nil, fmt.Errorf(
			"config format %q at %s is not readable by this build (wants %s); move the file aside and rerun to regenerate it",
			cfg.FormatVersion, path, CurrentFormatVersion)
	}

	if p := os.Getenv(EnvPersonality); p != "" {
		cfg.Personality = p
	}

	return &cfg, nil
}

// createDefault writes the first-run document.
func createDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	cfg := DefaultConfig()
	return cfg.Save(path)
}

// Save writes the document to path, pretty-printed so hand edits stay
// pleasant.
func (c *HeadwayConfig) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// expandPath resolves a leading ~ against the home directory.
func expandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/"))
}
