// Copyright (C) 2026 Headway Tools (dev@headway.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package advisor

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/headway-tools/headway/internal/progress"
)

// ===== Prompt Templates =====

func empathizePrompt(description string) string {
	return fmt.Sprintf(`As an empathetic problem-solving assistant, provide a brief, caring response to someone facing this challenge:

"%s"

Your response should:
1. Show understanding of their feelings
2. Be encouraging and supportive
3. Be concise (2-3 sentences)
4. Avoid generic platitudes
5. Don't mention that we'll break down the problem into parts or set KPIs - just be empathetic`, description)
}

func kpisPrompt(description string) string {
	return fmt.Sprintf(`As an expert in metrics and KPIs, analyze this problem description and generate relevant KPIs to track progress:

"%s"

For each KPI, provide:
1. A clear description
2. A reasonable target value

Format your response as a JSON array of objects, each with "description" and "target_value" fields.
Example:
[
  {"description": "Study hours per week", "target_value": 10},
  {"description": "Practice sessions completed", "target_value": 5}
]

Generate 3-5 specific, measurable KPIs that directly relate to the problem.`, description)
}

func stepsPrompt(description string, kpis []KPISuggestion) string {
	var lines []string
	for _, kpi := range kpis {
		target := strconv.FormatFloat(kpi.TargetValue, 'f', -1, 64)
		lines = append(lines, fmt.Sprintf("- %s (Target: %s)", kpi.Description, target))
	}

	return fmt.Sprintf(`As an expert problem solver, create a list of specific action steps to address this problem:

Problem: "%s"

KPIs to achieve:
%s

Provide 5-8 concrete, actionable steps that will help achieve these KPIs.
Each step should be specific enough to be actionable but brief (one sentence).

Format your response as a JSON array of strings.
Example: ["Research best practices", "Schedule daily focus time", "Create a tracking system"]`,
		description, strings.Join(lines, "\n"))
}

// promptKPI mirrors the progress fields the model reasons over.
type promptKPI struct {
	Description        string   `json:"description"`
	TargetValue        *float64 `json:"target_value"`
	CurrentValue       float64  `json:"current_value"`
	ProgressPercentage float64  `json:"progress_percentage"`
	Trend              string   `json:"trend"`
}

type promptStep struct {
	Description string `json:"description"`
	Status      string `json:"status"`
}

func recommendPrompt(snap *progress.Snapshot) (string, error) {
	kpiData := make([]promptKPI, 0, len(snap.KPIs))
	for _, report := range snap.KPIs {
		entry := promptKPI{
			Description:  report.KPI.Description,
			TargetValue:  report.KPI.TargetValue,
			CurrentValue: report.KPI.CurrentValue,
			Trend:        string(report.Trend),
		}
		if report.HasPercent {
			entry.ProgressPercentage = report.Percent
		}
		kpiData = append(kpiData, entry)
	}

	stepData := make([]promptStep, 0, len(snap.Steps))
	for _, step := range snap.Steps {
		stepData = append(stepData, promptStep{
			Description: step.Description,
			Status:      step.Status,
		})
	}

	kpiJSON, err := json.MarshalIndent(kpiData, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal kpi data: %w", err)
	}
	stepJSON, err := json.MarshalIndent(stepData, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal step data: %w", err)
	}

	return fmt.Sprintf(`As a problem-solving advisor, analyze this problem and progress data to provide targeted recommendations:

Problem: "%s: %s"

KPI Progress:
%s

Action Steps:
%s

Based on this data, provide 3-5 specific, actionable recommendations to help make progress.
Focus on KPIs with low progress or declining trends, and suggest concrete next steps.

Format your response as a JSON array of strings, with each string being a single recommendation.
Example: ["Focus on increasing 'Study hours' which is at 30%% of target", "Address declining trend in 'Practice sessions'"]`,
		snap.Problem.Title, snap.Problem.Description, kpiJSON, stepJSON), nil
}
