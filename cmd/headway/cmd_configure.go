// Copyright (C) 2026 Headway Tools (dev@headway.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/headway-tools/headway/cmd/headway/config"
	"github.com/headway-tools/headway/internal/advisor"
	"github.com/headway-tools/headway/pkg/ux"
)

// runConfigureCommand shows or edits the settings document. --show is
// read-only, the key flags talk to the OS secret store, and anything
// else mutates config.json. With no flags on a terminal it opens an
// interactive form.
func runConfigureCommand(cmd *cobra.Command, args []string) {
	cfg := config.Global()

	switch {
	case cfgShow:
		showConfiguration(cfg)
		return
	case cfgSetAPIKey:
		setAPIKey(cfg)
		return
	case cfgClearAPIKey:
		clearAPIKey(cfg)
		return
	}

	if !applyConfigFlags(cmd, cfg) {
		if !ux.IsInteractive() {
			exitWithError("nothing to change: pass flags, or run 'headway configure' in a terminal", nil)
		}
		if err := configureForm(cfg); err != nil {
			exitWithError("configuration cancelled", err)
		}
	}

	cfg.Normalize()
	if err := cfg.Save(config.DefaultConfigPath()); err != nil {
		exitWithError("failed to save configuration", err)
	}
	appLogger.Info("configuration saved",
		"path", config.DefaultConfigPath(),
		"use_ai", cfg.Advisor.UseAI,
		"provider", cfg.Advisor.Provider)
	ux.Success(fmt.Sprintf("Configuration saved to %s", config.DefaultConfigPath()))
	showConfiguration(cfg)
}

// applyConfigFlags folds explicitly passed flags into cfg and reports
// whether any were given. Changed() keeps zero values distinguishable
// from omitted flags.
func applyConfigFlags(cmd *cobra.Command, cfg *config.HeadwayConfig) bool {
	changed := false
	if cmd.Flags().Changed("use-ai") {
		cfg.Advisor.UseAI = cfgUseAI
		changed = true
	}
	if cmd.Flags().Changed("provider") {
		p := strings.ToLower(strings.TrimSpace(cfgProvider))
		if p != advisor.ProviderAnthropic && p != advisor.ProviderOpenAI {
			exitWithError(fmt.Sprintf("invalid provider %q: expected %q or %q",
				cfgProvider, advisor.ProviderAnthropic, advisor.ProviderOpenAI), nil)
		}
		cfg.Advisor.Provider = p
		changed = true
	}
	if cmd.Flags().Changed("model") {
		cfg.Advisor.Model = strings.TrimSpace(cfgModel)
		changed = true
	}
	if cmd.Flags().Changed("max-tokens") {
		if cfgMaxTokens <= 0 {
			exitWithError("--max-tokens must be positive", nil)
		}
		cfg.Advisor.MaxTokens = cfgMaxTokens
		changed = true
	}
	if cmd.Flags().Changed("window") {
		if cfgWindow < config.WindowMin || cfgWindow > config.WindowMax {
			exitWithError(fmt.Sprintf("--window must be between %d and %d",
				config.WindowMin, config.WindowMax), nil)
		}
		cfg.Progress.MovingAverageWindow = cfgWindow
		changed = true
	}
	if cmd.Flags().Changed("set-personality") {
		level := ux.ParsePersonalityLevel(cfgPersonality)
		cfg.Personality = string(level)
		changed = true
	}
	return changed
}

// showConfiguration prints the active settings. Key material is never
// shown, only whether a key could be resolved.
func showConfiguration(cfg *config.HeadwayConfig) {
	keyName := apiKeyNameFor(cfg.Advisor.Provider)
	secrets := NewDefaultSecretsManager()
	ctx, cancel := context.WithTimeout(context.Background(), secretCommandTimeout)
	defer cancel()
	keyStored := secrets.HasSecret(ctx, keyName)
	backends := secrets.DetectAvailableBackends()

	if ux.GetPersonality().Level == ux.PersonalityMachine {
		fmt.Printf("config_path\t%s\n", config.DefaultConfigPath())
		fmt.Printf("db_path\t%s\n", cfg.DatabasePath())
		fmt.Printf("personality\t%s\n", cfg.Personality)
		fmt.Printf("use_ai\t%t\n", cfg.Advisor.UseAI)
		fmt.Printf("provider\t%s\n", cfg.Advisor.Provider)
		fmt.Printf("model\t%s\n", cfg.Advisor.Model)
		fmt.Printf("max_tokens\t%d\n", cfg.Advisor.MaxTokens)
		fmt.Printf("timeout_seconds\t%d\n", cfg.Advisor.TimeoutSeconds)
		fmt.Printf("cache_ttl_hours\t%d\n", cfg.Advisor.CacheTTLHours)
		fmt.Printf("moving_average_window\t%d\n", cfg.Progress.MovingAverageWindow)
		fmt.Printf("check_interval_seconds\t%d\n", cfg.Reminders.CheckIntervalSeconds)
		fmt.Printf("api_key_stored\t%t\n", keyStored)
		fmt.Printf("secret_backends\t%s\n", strings.Join(backends, ","))
		return
	}

	keyLine := "not set"
	if keyStored {
		keyLine = "stored in the OS secret store"
	}
	personality := cfg.Personality
	if personality == "" {
		personality = "auto (terminal detection)"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Config file:    %s\n", config.DefaultConfigPath())
	fmt.Fprintf(&sb, "Database:       %s\n", cfg.DatabasePath())
	fmt.Fprintf(&sb, "Personality:    %s\n\n", personality)
	fmt.Fprintf(&sb, "AI suggestions: %t\n", cfg.Advisor.UseAI)
	fmt.Fprintf(&sb, "Provider:       %s\n", cfg.Advisor.Provider)
	fmt.Fprintf(&sb, "Model:          %s\n", cfg.Advisor.Model)
	fmt.Fprintf(&sb, "Max tokens:     %d\n", cfg.Advisor.MaxTokens)
	fmt.Fprintf(&sb, "Timeout:        %ds\n", cfg.Advisor.TimeoutSeconds)
	fmt.Fprintf(&sb, "Cache TTL:      %dh\n", cfg.Advisor.CacheTTLHours)
	fmt.Fprintf(&sb, "API key (%s): %s\n\n", keyName, keyLine)
	fmt.Fprintf(&sb, "Trend window:   %d values\n", cfg.Progress.MovingAverageWindow)
	fmt.Fprintf(&sb, "Reminder check: every %ds\n", cfg.Reminders.CheckIntervalSeconds)
	fmt.Fprintf(&sb, "Secret stores:  %s", strings.Join(backends, ", "))
	ux.Box("Headway Configuration", sb.String())
}

// setAPIKey prompts for a key with hidden input and writes it to the
// OS secret store. The value never reaches config.json, argv, or the
// log.
func setAPIKey(cfg *config.HeadwayConfig) {
	if !ux.IsInteractive() {
		exitWithError("--set-api-key needs a terminal for hidden input", nil)
	}

	provider := cfg.Advisor.Provider
	var key string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Provider").
				Options(huh.NewOptions(advisor.ProviderAnthropic, advisor.ProviderOpenAI)...).
				Value(&provider),
			huh.NewInput().
				Title("API key").
				EchoMode(huh.EchoModePassword).
				Value(&key),
		),
	)
	if err := form.Run(); err != nil {
		exitWithError("API key entry cancelled", err)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		exitWithError("no key entered", nil)
	}

	name := apiKeyNameFor(provider)
	if hint := keyFormatHint(name, key); hint != "" {
		ux.Warning(fmt.Sprintf("%s. Storing it anyway.", hint))
	}

	secrets := NewDefaultSecretsManager()
	ctx, cancel := context.WithTimeout(context.Background(), secretCommandTimeout)
	defer cancel()
	if err := secrets.SetSecret(ctx, name, key); err != nil {
		if errors.Is(err, ErrNoSecretBackend) {
			fmt.Println(secrets.GetSetupInstructions(name))
		}
		exitWithError("failed to store the API key", err)
	}
	appLogger.Info("api key stored", "secret", name, "provider", provider)

	if provider != cfg.Advisor.Provider {
		cfg.Advisor.Provider = provider
		cfg.Normalize()
		if err := cfg.Save(config.DefaultConfigPath()); err != nil {
			exitWithError("key stored, but saving the provider choice failed", err)
		}
	}
	ux.Success(fmt.Sprintf("API key for %s stored as %q.", provider, name))
	ux.Muted("Run 'headway configure --show' to verify.")
}

// clearAPIKey removes the active provider's key from the secret store.
func clearAPIKey(cfg *config.HeadwayConfig) {
	name := apiKeyNameFor(cfg.Advisor.Provider)
	secrets := NewDefaultSecretsManager()
	ctx, cancel := context.WithTimeout(context.Background(), secretCommandTimeout)
	defer cancel()
	if err := secrets.DeleteSecret(ctx, name); err != nil {
		exitWithError(fmt.Sprintf("failed to remove %q from the secret store", name), err)
	}
	appLogger.Info("api key removed", "secret", name)
	ux.Success(fmt.Sprintf("Removed %q from the OS secret store.", name))
}

// configureForm walks the main settings interactively. Validation runs
// per field so a typo is caught before anything is written.
func configureForm(cfg *config.HeadwayConfig) error {
	useAI := cfg.Advisor.UseAI
	provider := cfg.Advisor.Provider
	model := cfg.Advisor.Model
	maxTokens := strconv.Itoa(cfg.Advisor.MaxTokens)
	window := strconv.Itoa(cfg.Progress.MovingAverageWindow)
	personality := cfg.Personality
	if personality == "" {
		personality = string(ux.PersonalityStandard)
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Use AI suggestions?").
				Description("Needs an API key in the OS secret store. Off means rule-based suggestions only.").
				Value(&useAI),
			huh.NewSelect[string]().
				Title("Provider").
				Options(huh.NewOptions(advisor.ProviderAnthropic, advisor.ProviderOpenAI)...).
				Value(&provider),
			huh.NewInput().
				Title("Model").
				Description("Leave empty to reset to the provider default.").
				Value(&model),
			huh.NewInput().
				Title("Max tokens per suggestion").
				Validate(validateIntRange(1, 100000)).
				Value(&maxTokens),
		),
		huh.NewGroup(
			huh.NewInput().
				Title(fmt.Sprintf("Trend window (%d-%d logged values)", config.WindowMin, config.WindowMax)).
				Validate(validateIntRange(config.WindowMin, config.WindowMax)).
				Value(&window),
			huh.NewSelect[string]().
				Title("Output style").
				Options(huh.NewOptions(
					string(ux.PersonalityFull),
					string(ux.PersonalityStandard),
					string(ux.PersonalityMinimal),
					string(ux.PersonalityMachine),
				)...).
				Value(&personality),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	cfg.Advisor.UseAI = useAI
	cfg.Advisor.Provider = provider
	cfg.Advisor.Model = strings.TrimSpace(model)
	cfg.Advisor.MaxTokens, _ = strconv.Atoi(strings.TrimSpace(maxTokens))
	cfg.Progress.MovingAverageWindow, _ = strconv.Atoi(strings.TrimSpace(window))
	cfg.Personality = personality
	return nil
}

// validateIntRange builds a form validator accepting whole numbers in
// [lo, hi].
func validateIntRange(lo, hi int) func(string) error {
	return func(s string) error {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return errors.New("enter a whole number")
		}
		if n < lo || n > hi {
			return fmt.Errorf("enter a number between %d and %d", lo, hi)
		}
		return nil
	}
}
