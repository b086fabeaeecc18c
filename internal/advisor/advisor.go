// Copyright (C) 2026 Headway Tools (dev@headway.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package advisor generates suggestions for problems: an empathetic
// opening line, starter KPIs, action steps, and progress
// recommendations. The Advisor interface has two families of
// implementations, AI-backed clients and the deterministic rule tables,
// and the resilient wrapper makes sure the AI path can only ever
// degrade to the rules, never fail a command.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/awnumar/memguard"
	"golang.org/x/time/rate"

	"github.com/headway-tools/headway/internal/problem"
	"github.com/headway-tools/headway/internal/progress"
	"github.com/headway-tools/headway/pkg/logging"
)

// ===== Advisor Interface =====

// KPISuggestion is one proposed metric for a new problem.
type KPISuggestion struct {
	Description string  `json:"description"`
	TargetValue float64 `json:"target_value"`
}

// Advisor produces suggestions for a problem. Implementations must be
// safe for concurrent use.
type Advisor interface {
	// Empathize returns a short supportive response to the problem
	// description, shown once when the problem is created.
	Empathize(ctx context.Context, p *problem.Problem) (string, error)

	// SuggestKPIs proposes up to five measurable KPIs for the problem.
	SuggestKPIs(ctx context.Context, p *problem.Problem) ([]KPISuggestion, error)

	// SuggestSteps proposes up to eight action steps toward the KPIs.
	SuggestSteps(ctx context.Context, p *problem.Problem, kpis []KPISuggestion) ([]string, error)

	// Recommend analyzes a progress snapshot and returns 3-5 targeted
	// recommendations.
	Recommend(ctx context.Context, snap *progress.Snapshot) ([]string, error)
}

// Completer is the single-prompt surface the AI providers implement.
// method labels the call site (empathize, suggest_kpis, suggest_steps,
// recommend) for logging and cache keys.
type Completer interface {
	Complete(ctx context.Context, method, prompt string) (string, error)
	Model() string
}

// ===== Errors =====

// GatewayError reports a failed AI provider call. Suggestion flows
// treat it as a degrade signal, not a failure.
type GatewayError struct {
	Provider string
	Timeout  bool
	Err      error
}

func (e *GatewayError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("advisor gateway (%s): timed out: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("advisor gateway (%s): %v", e.Provider, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// gatewayErr wraps a transport error, flagging timeouts so callers can
// report slow providers distinctly from broken ones.
func gatewayErr(provider string, err error) *GatewayError {
	timeout := errors.Is(err, context.DeadlineExceeded)
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		timeout = true
	}
	return &GatewayError{Provider: provider, Timeout: timeout, Err: err}
}

// ===== AI Advisor =====

// AIAdvisor implements Advisor on top of a Completer: it renders the
// prompt, sends it, and parses the structured reply. Parse failures
// surface as errors so the resilient wrapper can fall back.
type AIAdvisor struct {
	completer Completer
	logger    *logging.Logger
}

func NewAIAdvisor(completer Completer, logger *logging.Logger) *AIAdvisor {
	if logger == nil {
		logger = logging.Default()
	}
	return &AIAdvisor{completer: completer, logger: logger}
}

func (a *AIAdvisor) Empathize(ctx context.Context, p *problem.Problem) (string, error) {
	reply, err := a.completer.Complete(ctx, "empathize", empathizePrompt(p.Description))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

func (a *AIAdvisor) SuggestKPIs(ctx context.Context, p *problem.Problem) ([]KPISuggestion, error) {
	reply, err := a.completer.Complete(ctx, "suggest_kpis", kpisPrompt(p.Description))
	if err != nil {
		return nil, err
	}
	suggestions, err := decodeKPISuggestions(reply)
	if err != nil {
		return nil, fmt.Errorf("parse kpi suggestions from %s: %w", a.completer.Model(), err)
	}
	return suggestions, nil
}

func (a *AIAdvisor) SuggestSteps(ctx context.Context, p *problem.Problem, kpis []KPISuggestion) ([]string, error) {
	reply, err := a.completer.Complete(ctx, "suggest_steps", stepsPrompt(p.Description, kpis))
	if err != nil {
		return nil, err
	}
	steps, err := decodeStringArray(reply)
	if err != nil {
		return nil, fmt.Errorf("parse action steps from %s: %w", a.completer.Model(), err)
	}
	return steps, nil
}

func (a *AIAdvisor) Recommend(ctx context.Context, snap *progress.Snapshot) ([]string, error) {
	prompt, err := recommendPrompt(snap)
	if err != nil {
		return nil, err
	}
	reply, err := a.completer.Complete(ctx, "recommend", prompt)
	if err != nil {
		return nil, err
	}
	recs, err := decodeStringArray(reply)
	if err != nil {
		return nil, fmt.Errorf("parse recommendations from %s: %w", a.completer.Model(), err)
	}
	return recs, nil
}

// ===== Construction =====

// Providers the Options.Provider field accepts.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

const (
	// DefaultMaxTokens matches the original response budget.
	DefaultMaxTokens = 500

	// DefaultCacheTTL keeps a paid reply reusable for a day of
	// repeated analyze runs.
	DefaultCacheTTL = 24 * time.Hour
)

// Options selects and configures the advisor stack.
type Options struct {
	// UseAI gates the AI path entirely. False means rules only.
	UseAI bool

	// Provider is "anthropic" or "openai". Anything else falls back
	// to anthropic.
	Provider string

	// Model overrides the provider default model id.
	Model string

	// MaxTokens caps the reply size. Zero means DefaultMaxTokens.
	MaxTokens int

	// APIKey holds the provider key. nil disables the AI path even
	// when UseAI is set.
	APIKey *memguard.Enclave

	// CacheDir is the badger directory for the response cache. Empty
	// disables caching.
	CacheDir string

	// CacheTTL bounds how long a cached reply is served. Zero means
	// DefaultCacheTTL.
	CacheTTL time.Duration

	Logger *logging.Logger
}

// Build assembles the advisor for the given options. The returned
// close function releases the response cache; it is never nil.
//
// AI path requires UseAI and a key; everything else is the rule
// advisor alone. The AI completer is throttled to one request per
// second (burst 2) and cached, then wrapped so any error degrades to
// the rules.
func Build(opts Options) (Advisor, func() error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	rules := NewRuleAdvisor()
	noop := func() error { return nil }

	if !opts.UseAI || opts.APIKey == nil {
		logger.Debug("advisor running rule-based only", "use_ai", opts.UseAI)
		return rules, noop
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	var completer Completer
	switch opts.Provider {
	case ProviderOpenAI:
		completer = NewOpenAICompleter(opts.APIKey, opts.Model, maxTokens, logger)
	case ProviderAnthropic:
		completer = NewAnthropicCompleter(opts.APIKey, opts.Model, maxTokens, logger)
	default:
		logger.Warn("unknown advisor provider, using anthropic", "provider", opts.Provider)
		completer = NewAnthropicCompleter(opts.APIKey, opts.Model, maxTokens, logger)
	}

	closeFn := noop
	var cache *ResponseCache
	if opts.CacheDir != "" {
		ttl := opts.CacheTTL
		if ttl <= 0 {
			ttl = DefaultCacheTTL
		}
		var err error
		cache, err = OpenCache(opts.CacheDir, ttl, logger)
		if err != nil {
			// Advice still works without a cache, it just re-bills.
			logger.Warn("advisor response cache unavailable", "dir", opts.CacheDir, "error", err)
		} else {
			closeFn = cache.Close
		}
	}

	guarded := &throttledCompleter{
		inner:   completer,
		limiter: rate.NewLimiter(rate.Limit(1), 2),
		cache:   cache,
		logger:  logger,
	}

	ai := NewAIAdvisor(guarded, logger)
	return NewResilientAdvisor(ai, rules, logger), closeFn
}
