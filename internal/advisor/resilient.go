// Copyright (C) 2026 Headway Tools (dev@headway.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package advisor

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/headway-tools/headway/internal/problem"
	"github.com/headway-tools/headway/internal/progress"
	"github.com/headway-tools/headway/pkg/logging"
)

// ===== Resilient Wrapper =====

// ResilientAdvisor tries the primary (AI) advisor and falls back to the
// secondary on any error. A broken network or a malformed model reply
// costs the user nothing but suggestion quality.
type ResilientAdvisor struct {
	primary  Advisor
	fallback Advisor
	logger   *logging.Logger
}

func NewResilientAdvisor(primary, fallback Advisor, logger *logging.Logger) *ResilientAdvisor {
	if logger == nil {
		logger = logging.Default()
	}
	return &ResilientAdvisor{primary: primary, fallback: fallback, logger: logger}
}

func (r *ResilientAdvisor) Empathize(ctx context.Context, p *problem.Problem) (string, error) {
	reply, err := r.primary.Empathize(ctx, p)
	if err != nil {
		r.degrade("empathize", err)
		return r.fallback.Empathize(ctx, p)
	}
	return reply, nil
}

func (r *ResilientAdvisor) SuggestKPIs(ctx context.Context, p *problem.Problem) ([]KPISuggestion, error) {
	kpis, err := r.primary.SuggestKPIs(ctx, p)
	if err != nil {
		r.degrade("suggest_kpis", err)
		return r.fallback.SuggestKPIs(ctx, p)
	}
	return kpis, nil
}

func (r *ResilientAdvisor) SuggestSteps(ctx context.Context, p *problem.Problem, kpis []KPISuggestion) ([]string, error) {
	steps, err := r.primary.SuggestSteps(ctx, p, kpis)
	if err != nil {
		r.degrade("suggest_steps", err)
		return r.fallback.SuggestSteps(ctx, p, kpis)
	}
	return steps, nil
}

func (r *ResilientAdvisor) Recommend(ctx context.Context, snap *progress.Snapshot) ([]string, error) {
	recs, err := r.primary.Recommend(ctx, snap)
	if err != nil {
		r.degrade("recommend", err)
		return r.fallback.Recommend(ctx, snap)
	}
	return recs, nil
}

func (r *ResilientAdvisor) degrade(op string, err error) {
	r.logger.Warn("advisor degraded to rule-based suggestions", "op", op, "error", err)
}

var _ Advisor = (*ResilientAdvisor)(nil)

// ===== Throttled Completer =====

// throttledCompleter sits between the AI advisor and the provider:
// repeats are served from the cache, and fresh calls are spaced by the
// rate limiter so a burst of commands cannot hammer a paid API.
type throttledCompleter struct {
	inner   Completer
	limiter *rate.Limiter
	cache   *ResponseCache
	logger  *logging.Logger
}

func (t *throttledCompleter) Model() string { return t.inner.Model() }

func (t *throttledCompleter) Complete(ctx context.Context, method, prompt string) (string, error) {
	if t.cache != nil {
		if reply, ok := t.cache.Get(t.inner.Model(), method, prompt); ok {
			t.logger.Debug("advisor cache hit", "method", method)
			return reply, nil
		}
	}

	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit wait: %w", err)
		}
	}

	reply, err := t.inner.Complete(ctx, method, prompt)
	if err != nil {
		return "", err
	}

	if t.cache != nil {
		if err := t.cache.Put(t.inner.Model(), method, prompt, reply); err != nil {
			t.logger.Debug("advisor cache write failed", "method", method, "error", err)
		}
	}
	return reply, nil
}

var _ Completer = (*throttledCompleter)(nil)
