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
	"strings"

	"github.com/headway-tools/headway/internal/problem"
	"github.com/headway-tools/headway/internal/progress"
)

// ===== Rule Tables =====

const (
	maxSuggestedKPIs  = 5
	maxSuggestedSteps = 8
)

// empathyRules map a feeling keyword to a supportive response. Order
// matters: the first keyword found in the description wins.
var empathyRules = []struct {
	keyword  string
	response string
}{
	{"stress", "I understand that you're feeling stressed. That's a common reaction when facing difficult challenges. Let's work through this together."},
	{"overwhelm", "It sounds like you're feeling overwhelmed, which is completely understandable. We'll find a way to make this more manageable."},
	{"stuck", "Being stuck can be frustrating. I appreciate you sharing this challenge, and I'm here to help you find a path forward."},
	{"difficult", "You're facing a difficult situation, and that takes courage to address. I'm here to support you through this process."},
	{"worry", "I hear your concern. It's natural to worry about important matters, and your awareness shows how much you care."},
	{"deadline", "Deadlines can create significant pressure. I understand the time constraints you're under and want to help you succeed."},
	{"conflict", "Navigating conflicts can be challenging. I appreciate your willingness to address this situation and find resolution."},
	{"motivation", "Finding motivation can be difficult. Your awareness of this challenge is already a meaningful first step."},
	{"tired", "Feeling tired or burned out is your mind and body telling you something important. Your wellbeing matters in this process."},
	{"confused", "It's normal to feel confused when facing complex situations. Clarity will come as we work through this methodically."},
}

const defaultEmpathy = "I understand you're facing a challenge. Your willingness to address it shows commitment, and I'm here to support you through this process."

// kpiRules propose starter metrics per problem domain. A description
// can match several domains; the cap keeps the list focused.
var kpiRules = []struct {
	keywords []string
	kpis     []KPISuggestion
}{
	{
		keywords: []string{"work", "productivity", "efficiency", "output", "perform"},
		kpis: []KPISuggestion{
			{Description: "Tasks completed per day", TargetValue: 5},
			{Description: "Focus time in hours", TargetValue: 4},
			{Description: "Satisfaction with daily output (1-10)", TargetValue: 8},
		},
	},
	{
		keywords: []string{"learn", "study", "skill", "knowledge", "improve", "better"},
		kpis: []KPISuggestion{
			{Description: "Study hours per week", TargetValue: 10},
			{Description: "Practice sessions completed", TargetValue: 5},
			{Description: "Concepts mastered", TargetValue: 3},
		},
	},
	{
		keywords: []string{"health", "wellness", "fitness", "stress", "sleep", "mental"},
		kpis: []KPISuggestion{
			{Description: "Exercise sessions per week", TargetValue: 4},
			{Description: "Hours of quality sleep per night", TargetValue: 7},
			{Description: "Stress level reduction (1-10, lower is better)", TargetValue: 3},
		},
	},
	{
		keywords: []string{"project", "goal", "objective", "deadline", "achieve", "milestone"},
		kpis: []KPISuggestion{
			{Description: "Milestone completion percentage", TargetValue: 100},
			{Description: "Hours dedicated to project per week", TargetValue: 15},
			{Description: "Blockers resolved", TargetValue: 5},
		},
	},
	{
		keywords: []string{"relationship", "social", "friend", "family", "communicate", "team"},
		kpis: []KPISuggestion{
			{Description: "Quality interactions per week", TargetValue: 5},
			{Description: "Conflict resolution success rate (%)", TargetValue: 90},
			{Description: "Communication satisfaction (1-10)", TargetValue: 8},
		},
	},
	{
		keywords: []string{"finance", "money", "budget", "save", "spend", "income"},
		kpis: []KPISuggestion{
			{Description: "Monthly savings target ($)", TargetValue: 500},
			{Description: "Expense reduction (%)", TargetValue: 15},
			{Description: "Additional income streams", TargetValue: 1},
		},
	},
}

var generalKPIs = []KPISuggestion{
	{Description: "Progress satisfaction (1-10)", TargetValue: 8},
	{Description: "Obstacles overcome", TargetValue: 5},
	{Description: "Time invested in hours", TargetValue: 20},
}

// stepRules add domain-specific action steps after the universal ones.
var stepRules = []struct {
	keywords []string
	steps    []string
}{
	{
		keywords: []string{"work", "productivity", "efficiency"},
		steps: []string{
			"Implement time-blocking for focused work sessions",
			"Identify and eliminate the top 3 distractions in your environment",
			"Create templates for recurring tasks to save time",
		},
	},
	{
		keywords: []string{"learn", "study", "skill"},
		steps: []string{
			"Break down learning goals into digestible modules",
			"Schedule regular practice sessions with clear objectives",
			"Set up a system to get feedback on your progress",
		},
	},
	{
		keywords: []string{"health", "wellness", "fitness"},
		steps: []string{
			"Create a sustainable daily routine that supports your health",
			"Identify and reduce major sources of stress",
			"Establish accountability mechanisms for health habits",
		},
	},
	{
		keywords: []string{"project", "goal", "deadline"},
		steps: []string{
			"Break the project into clear milestones with deadlines",
			"Identify potential bottlenecks and prepare contingency plans",
			"Schedule regular project reviews to stay on track",
		},
	},
}

var universalSteps = []string{
	"Define the specific boundaries and scope of the problem",
	"Research best practices and potential solutions",
}

var genericSteps = []string{
	"Set aside dedicated time each day to work on this problem",
	"Review progress weekly and adjust approach as needed",
	"Seek feedback from relevant stakeholders or peers",
	"Document lessons learned and successful strategies",
}

// ===== Rule Advisor =====

// RuleAdvisor is the deterministic, offline Advisor. It is both the
// default when AI is off and the fallback when an AI call fails, so it
// must never error.
type RuleAdvisor struct{}

func NewRuleAdvisor() *RuleAdvisor { return &RuleAdvisor{} }

func (r *RuleAdvisor) Empathize(_ context.Context, p *problem.Problem) (string, error) {
	description := strings.ToLower(p.Description)
	for _, rule := range empathyRules {
		if strings.Contains(description, rule.keyword) {
			return rule.response, nil
		}
	}
	return defaultEmpathy, nil
}

func (r *RuleAdvisor) SuggestKPIs(_ context.Context, p *problem.Problem) ([]KPISuggestion, error) {
	description := strings.ToLower(p.Description)

	var kpis []KPISuggestion
	for _, rule := range kpiRules {
		if containsAny(description, rule.keywords) {
			kpis = append(kpis, rule.kpis...)
		}
	}
	if len(kpis) == 0 {
		kpis = append(kpis, generalKPIs...)
	}
	if len(kpis) > maxSuggestedKPIs {
		kpis = kpis[:maxSuggestedKPIs]
	}
	return kpis, nil
}

func (r *RuleAdvisor) SuggestSteps(_ context.Context, p *problem.Problem, kpis []KPISuggestion) ([]string, error) {
	description := strings.ToLower(p.Description)

	steps := append([]string(nil), universalSteps...)
	for _, kpi := range kpis {
		steps = append(steps, fmt.Sprintf("Track progress on: %s", kpi.Description))
	}
	for _, rule := range stepRules {
		if containsAny(description, rule.keywords) {
			steps = append(steps, rule.steps...)
		}
	}
	steps = append(steps, genericSteps...)

	if len(steps) > maxSuggestedSteps {
		steps = steps[:maxSuggestedSteps]
	}
	return steps, nil
}

func (r *RuleAdvisor) Recommend(_ context.Context, snap *progress.Snapshot) ([]string, error) {
	return progress.Recommend(snap), nil
}

func containsAny(s string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(s, keyword) {
			return true
		}
	}
	return false
}
