// Copyright (C) 2026 Headway Tools (dev@headway.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"os"
	"path/filepath"
)

// Environment variables recognized everywhere in the CLI.
const (
	// EnvHome relocates the application directory (default ~/.headway).
	EnvHome = "HEADWAY_HOME"

	// EnvConfig points at an alternate config document.
	EnvConfig = "HEADWAY_CONFIG"

	// EnvDBPath overrides the database file location.
	EnvDBPath = "HEADWAY_DB_PATH"

	// EnvPersonality overrides the output personality (full, standard,
	// minimal, machine).
	EnvPersonality = "HEADWAY_PERSONALITY"
)

// CurrentFormatVersion is the config document major version this build
// writes and reads.
const CurrentFormatVersion = "v1"

// Defaults written into a first-run config document.
const (
	DefaultProvider             = "anthropic"
	DefaultModel                = "claude-3-haiku-20240307"
	DefaultMaxTokens            = 500
	DefaultTimeoutSeconds       = 30
	DefaultCacheTTLHours        = 24
	DefaultWindow               = 5
	DefaultCheckIntervalSeconds = 60
)

// Moving-average window bounds. Values outside are clamped, not
// rejected, so an edited config document never bricks the CLI.
const (
	WindowMin = 2
	WindowMax = 10
)

// HeadwayConfig is the config.json document. The credential is never
// part of it; keys live in the OS secret store or environment.
type HeadwayConfig struct {
	FormatVersion string `json:"format_version"`

	// DBPath overrides the database location. Empty means
	// <app dir>/headway.db. A leading ~ expands to the home directory.
	DBPath string `json:"db_path,omitempty"`

	// Personality picks the output style when HEADWAY_PERSONALITY is
	// unset. Empty falls back to terminal detection.
	Personality string `json:"personality,omitempty"`

	Advisor   AdvisorConfig   `json:"advisor"`
	Progress  ProgressConfig  `json:"progress"`
	Reminders RemindersConfig `json:"reminders"`
}

// AdvisorConfig controls the AI suggestion gateway.
type AdvisorConfig struct {
	// UseAI gates the paid path. False means rule-based suggestions
	// only, no network.
	UseAI bool `json:"use_ai"`

	// Provider is "anthropic" or "openai".
	Provider string `json:"provider"`

	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`

	// TimeoutSeconds bounds one advisor call end to end.
	TimeoutSeconds int `json:"timeout_seconds"`

	// CacheTTLHours controls how long identical prompts are served
	// from the local response cache.
	CacheTTLHours int `json:"cache_ttl_hours"`
}

// ProgressConfig tunes the derived-figure math.
type ProgressConfig struct {
	// MovingAverageWindow is the trend window in samples, clamped to
	// [WindowMin, WindowMax].
	MovingAverageWindow int `json:"moving_average_window"`
}

// RemindersConfig tunes the reminder daemon.
type RemindersConfig struct {
	// CheckIntervalSeconds is the scheduler tick.
	CheckIntervalSeconds int `json:"check_interval_seconds"`
}

// DefaultConfig is the document createDefault writes on first run.
func DefaultConfig() HeadwayConfig {
	return HeadwayConfig{
		FormatVersion: CurrentFormatVersion,
		Advisor: AdvisorConfig{
			UseAI:          true,
			Provider:       DefaultProvider,
			Model:          DefaultModel,
			MaxTokens:      DefaultMaxTokens,
			TimeoutSeconds: DefaultTimeoutSeconds,
			CacheTTLHours:  DefaultCacheTTLHours,
		},
		Progress:  ProgressConfig{MovingAverageWindow: DefaultWindow},
		Reminders: RemindersConfig{CheckIntervalSeconds: DefaultCheckIntervalSeconds},
	}
}

// Normalize fills zero fields with defaults and clamps bounded values.
// Documents edited by hand stay usable.
func (c *HeadwayConfig) Normalize() {
	if c.FormatVersion == "" {
		// Pre-versioning documents read as v1.
		c.FormatVersion = CurrentFormatVersion
	}
	if c.Advisor.Provider == "" {
		c.Advisor.Provider = DefaultProvider
	}
	if c.Advisor.Model == "" {
		c.Advisor.Model = DefaultModel
	}
	if c.Advisor.MaxTokens <= 0 {
		c.Advisor.MaxTokens = DefaultMaxTokens
	}
	if c.Advisor.TimeoutSeconds <= 0 {
		c.Advisor.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if c.Advisor.CacheTTLHours <= 0 {
		c.Advisor.CacheTTLHours = DefaultCacheTTLHours
	}
	if c.Progress.MovingAverageWindow == 0 {
		c.Progress.MovingAverageWindow = DefaultWindow
	}
	if c.Progress.MovingAverageWindow < WindowMin {
		c.Progress.MovingAverageWindow = WindowMin
	}
	if c.Progress.MovingAverageWindow > WindowMax {
		c.Progress.MovingAverageWindow = WindowMax
	}
	if c.Reminders.CheckIntervalSeconds <= 0 {
		c.Reminders.CheckIntervalSeconds = DefaultCheckIntervalSeconds
	}
}

// DatabasePath resolves the database file. Priority: HEADWAY_DB_PATH,
// then db_path from the document, then <app dir>/headway.db.
func (c *HeadwayConfig) DatabasePath() string {
	if p := os.Getenv(EnvDBPath); p != "" {
		return expandPath(p)
	}
	if c.DBPath != "" {
		return expandPath(c.DBPath)
	}
	return filepath.Join(AppDir(), "headway.db")
}

// AppDir is the per-user application directory.
func AppDir() string {
	if dir := os.Getenv(EnvHome); dir != "" {
		return expandPath(dir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// No home directory at all. Fall back to the working
		// directory rather than failing every command.
		return ".headway"
	}
	return filepath.Join(home, ".headway")
}

// DefaultConfigPath is where Load looks for the document.
func DefaultConfigPath() string {
	if p := os.Getenv(EnvConfig); p != "" {
		return expandPath(p)
	}
	return filepath.Join(AppDir(), "config.json")
}

// LogsDir holds the daily log files and the reminder fire journal.
func LogsDir() string { return filepath.Join(AppDir(), "logs") }

// BackupsDir receives pre-import database snapshots.
func BackupsDir() string { return filepath.Join(AppDir(), "backups") }

// CacheDir holds the advisor response cache.
func CacheDir() string { return filepath.Join(AppDir(), "cache") }

// JournalPath is the reminder fire journal.
func JournalPath() string { return filepath.Join(LogsDir(), "reminder_fires.jsonl") }
