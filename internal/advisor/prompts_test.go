// Copyright (C) 2026 Headway Tools (dev@headway.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package advisor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/headway-tools/headway/internal/problem"
	"github.com/headway-tools/headway/internal/progress"
)

func TestStepsPrompt_FormatsTargets(t *testing.T) {
	prompt := stepsPrompt("learn Go", []KPISuggestion{
		{Description: "Study hours per week", TargetValue: 10},
		{Description: "Sleep per night", TargetValue: 7.5},
	})

	assert.Contains(t, prompt, `Problem: "learn Go"`)
	assert.Contains(t, prompt, "- Study hours per week (Target: 10)")
	assert.Contains(t, prompt, "- Sleep per night (Target: 7.5)")
}

func TestRecommendPrompt_IncludesProgressData(t *testing.T) {
	target := 100.0
	snap := &progress.Snapshot{
		Problem: problem.Problem{Title: "Lose weight", Description: "drop 5kg"},
		KPIs: []progress.KPIReport{
			{
				KPI:        problem.KPI{Description: "Workouts per week", TargetValue: &target, CurrentValue: 20},
				Trend:      progress.TrendImproving,
				Percent:    20,
				HasPercent: true,
			},
		},
		Steps: []problem.ActionStep{
			{Description: "Plan meals", Status: problem.StepPending},
		},
	}

	prompt, err := recommendPrompt(snap)
	require.NoError(t, err)

	assert.Contains(t, prompt, `Problem: "Lose weight: drop 5kg"`)
	assert.Contains(t, prompt, `"description": "Workouts per week"`)
	assert.Contains(t, prompt, `"trend": "improving"`)
	assert.Contains(t, prompt, `"description": "Plan meals"`)
	assert.Contains(t, prompt, `"status": "pending"`)
	// The example line must render a literal percent sign.
	assert.Contains(t, prompt, "at 30% of target")
}

func TestEmpathizePrompt_QuotesDescription(t *testing.T) {
	prompt := empathizePrompt("too much on my plate")
	assert.Contains(t, prompt, `"too much on my plate"`)
	assert.Contains(t, prompt, "empathetic problem-solving assistant")
}
