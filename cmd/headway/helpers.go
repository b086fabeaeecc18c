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
	"os"
	"strconv"
	"time"

	"github.com/headway-tools/headway/cmd/headway/config"
	"github.com/headway-tools/headway/internal/advisor"
	"github.com/headway-tools/headway/internal/problem"
	"github.com/headway-tools/headway/internal/progress"
	"github.com/headway-tools/headway/internal/store"
	"github.com/headway-tools/headway/pkg/logging"
	"github.com/headway-tools/headway/pkg/ux"
)

// appVersion is stamped by the release process; the default marks a
// source build.
const appVersion = "0.2.0"

// envLogLevel overrides the log level, e.g. HEADWAY_LOG_LEVEL=debug.
const envLogLevel = "HEADWAY_LOG_LEVEL"

var appLogger = logging.Default()

// initAppLogger switches logging to the per-day file under the app dir.
// Interactive commands keep stderr quiet so styled output stays clean;
// the daemon swaps in a loud logger of its own.
func initAppLogger() {
	appLogger = logging.New(logging.Config{
		Level:   logging.ParseLevel(os.Getenv(envLogLevel)),
		LogDir:  config.LogsDir(),
		Service: "headway",
		Quiet:   true,
	})
}

func closeAppLogger() {
	if appLogger != nil {
		_ = appLogger.Close()
	}
}

// exitWithError prints one styled error line and terminates the
// command. Validation and not-found errors are already user sentences,
// so they print bare; anything else gets the operation prefix.
func exitWithError(msg string, err error) {
	if err == nil {
		ux.Error(msg)
		closeAppLogger()
		os.Exit(1)
	}
	appLogger.Error(msg, "error", err)
	switch {
	case problem.IsValidation(err), errors.Is(err, store.ErrNotFound):
		ux.Error(err.Error())
	default:
		ux.Error(fmt.Sprintf("%s: %v", msg, err))
	}
	closeAppLogger()
	os.Exit(1)
}

// parseID converts a positional id argument, rejecting junk before the
// store sees it.
func parseID(arg, noun string) uint {
	id, err := strconv.ParseUint(arg, 10, 32)
	if err != nil || id == 0 {
		exitWithError(fmt.Sprintf("invalid %s id %q: expected a positive number", noun, arg), nil)
	}
	return uint(id)
}

// openStore opens the problem database from the active configuration.
// Callers defer st.Close().
func openStore() *store.Store {
	cfg := config.Global()
	st, err := store.Open(store.Config{
		Path:      cfg.DatabasePath(),
		BackupDir: config.BackupsDir(),
		Logger:    appLogger,
	})
	if err != nil {
		exitWithError("could not open the problem database", err)
	}
	return st
}

// buildAdvisor assembles the advisor stack from config and the OS
// secret store. A missing key is not an error: the advisor degrades to
// the built-in rules and the user gets a hint once. The returned close
// func releases the response cache; callers defer it.
func buildAdvisor() (advisor.Advisor, func() error) {
	cfg := config.Global()

	opts := advisor.Options{
		UseAI:     cfg.Advisor.UseAI,
		Provider:  cfg.Advisor.Provider,
		Model:     cfg.Advisor.Model,
		MaxTokens: cfg.Advisor.MaxTokens,
		CacheDir:  config.CacheDir(),
		CacheTTL:  time.Duration(cfg.Advisor.CacheTTLHours) * time.Hour,
		Logger:    appLogger,
	}

	if opts.UseAI {
		ctx, cancel := context.WithTimeout(context.Background(), secretCommandTimeout)
		defer cancel()
		secrets := NewDefaultSecretsManager()
		enclave, err := secrets.Enclave(ctx, apiKeyNameFor(cfg.Advisor.Provider))
		switch {
		case err == nil:
			opts.APIKey = enclave
		case errors.Is(err, ErrSecretNotFound):
			appLogger.Warn("no API key stored, advisor falls back to rules",
				"provider", cfg.Advisor.Provider)
			ux.Muted("No API key configured; using built-in suggestions. Run 'headway configure --set-api-key' to enable AI.")
		default:
			appLogger.Warn("secret store lookup failed", "error", err)
			ux.Muted("Could not read the API key; using built-in suggestions.")
		}
	}

	return advisor.Build(opts)
}

// apiKeyNameFor maps a provider to its secret store key.
func apiKeyNameFor(provider string) string {
	if provider == advisor.ProviderOpenAI {
		return SecretOpenAIKey
	}
	return SecretAnthropicKey
}

// advisorContext bounds one advisor call with the configured timeout.
func advisorContext() (context.Context, context.CancelFunc) {
	seconds := config.Global().Advisor.TimeoutSeconds
	if seconds <= 0 {
		seconds = 30
	}
	return context.WithTimeout(context.Background(), time.Duration(seconds)*time.Second)
}

// loadSnapshot fetches a problem with its history and derives the
// figures the view, analyze, and watch screens render.
func loadSnapshot(st *store.Store, problemID uint) (*progress.Snapshot, error) {
	p, err := st.GetProblem(problemID)
	if err != nil {
		return nil, err
	}
	logs, err := st.ListLogsForProblem(problemID)
	if err != nil {
		return nil, err
	}
	byKPI := make(map[uint][]problem.ProgressLog, len(p.KPIs))
	for _, l := range logs {
		byKPI[l.KPIID] = append(byKPI[l.KPIID], l)
	}
	window := config.Global().Progress.MovingAverageWindow
	return progress.BuildSnapshot(p, byKPI, window), nil
}
