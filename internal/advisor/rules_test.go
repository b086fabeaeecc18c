// Copyright (C) 2026 Headway Tools (dev@headway.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package advisor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/headway-tools/headway/internal/problem"
	"github.com/headway-tools/headway/internal/progress"
	"github.com/headway-tools/headway/pkg/logging"
)

func testLogger() *logging.Logger {
	return logging.New(logging.Config{Level: logging.LevelError, Quiet: true})
}

func testProblem(description string) *problem.Problem {
	return &problem.Problem{ID: 1, Title: "Test", Description: description}
}

func TestRuleAdvisor_Empathize(t *testing.T) {
	rules := NewRuleAdvisor()
	ctx := context.Background()

	tests := []struct {
		name        string
		description string
		contains    string
	}{
		{
			name:        "deadline keyword",
			description: "The project deadline is three weeks away and I'm behind",
			contains:    "Deadlines can create significant pressure",
		},
		{
			name:        "first matching keyword wins",
			description: "I feel stressed and overwhelmed by everything",
			contains:    "feeling stressed",
		},
		{
			name:        "case insensitive",
			description: "STUCK on the same bug for days",
			contains:    "Being stuck can be frustrating",
		},
		{
			name:        "no keyword falls back to default",
			description: "I want to reorganize my bookshelf",
			contains:    "Your willingness to address it shows commitment",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply, err := rules.Empathize(ctx, testProblem(tt.description))
			require.NoError(t, err)
			assert.Contains(t, reply, tt.contains)
		})
	}
}

func TestRuleAdvisor_SuggestKPIs_Domains(t *testing.T) {
	rules := NewRuleAdvisor()

	kpis, err := rules.SuggestKPIs(context.Background(), testProblem("my work productivity keeps dropping"))
	require.NoError(t, err)
	require.Len(t, kpis, 3)
	assert.Equal(t, "Tasks completed per day", kpis[0].Description)
	assert.Equal(t, float64(5), kpis[0].TargetValue)
}

func TestRuleAdvisor_SuggestKPIs_CapAtFive(t *testing.T) {
	rules := NewRuleAdvisor()

	// Matches work, learn, health, and project domains (12 candidates).
	kpis, err := rules.SuggestKPIs(context.Background(),
		testProblem("a work project to learn new skills and improve my health"))
	require.NoError(t, err)
	require.Len(t, kpis, maxSuggestedKPIs)
	assert.Equal(t, "Tasks completed per day", kpis[0].Description)
	assert.Equal(t, "Study hours per week", kpis[3].Description)
}

func TestRuleAdvisor_SuggestKPIs_GeneralFallback(t *testing.T) {
	rules := NewRuleAdvisor()

	kpis, err := rules.SuggestKPIs(context.Background(), testProblem("reorganize the garage"))
	require.NoError(t, err)
	require.Len(t, kpis, 3)
	assert.Equal(t, "Progress satisfaction (1-10)", kpis[0].Description)
}

func TestRuleAdvisor_SuggestSteps(t *testing.T) {
	rules := NewRuleAdvisor()
	kpis := []KPISuggestion{
		{Description: "Exercise sessions per week", TargetValue: 4},
		{Description: "Hours of quality sleep per night", TargetValue: 7},
	}

	steps, err := rules.SuggestSteps(context.Background(),
		testProblem("improve my health and fitness"), kpis)
	require.NoError(t, err)
	require.Len(t, steps, maxSuggestedSteps)

	assert.Equal(t, "Define the specific boundaries and scope of the problem", steps[0])
	assert.Equal(t, "Research best practices and potential solutions", steps[1])
	assert.Equal(t, "Track progress on: Exercise sessions per week", steps[2])
	assert.Equal(t, "Track progress on: Hours of quality sleep per night", steps[3])
	assert.Contains(t, steps, "Create a sustainable daily routine that supports your health")
}

func TestRuleAdvisor_SuggestSteps_NoDomainStillUseful(t *testing.T) {
	rules := NewRuleAdvisor()

	steps, err := rules.SuggestSteps(context.Background(), testProblem("declutter the attic"), nil)
	require.NoError(t, err)
	require.Len(t, steps, 6) // 2 universal + 4 generic
	assert.Equal(t, "Document lessons learned and successful strategies", steps[5])
}

func TestRuleAdvisor_Recommend_UsesProgressRules(t *testing.T) {
	rules := NewRuleAdvisor()
	target := 100.0
	snap := &progress.Snapshot{
		Problem: *testProblem("study more"),
		KPIs: []progress.KPIReport{
			{
				KPI:        problem.KPI{Description: "Study hours", TargetValue: &target, CurrentValue: 20},
				Direction:  progress.HigherIsBetter,
				Trend:      progress.TrendUnknown,
				Percent:    20,
				HasPercent: true,
			},
		},
	}

	recs, err := rules.Recommend(context.Background(), snap)
	require.NoError(t, err)
	assert.Contains(t, recs, "Focus on increasing 'Study hours' which is at 20.0% of target")
}
