// Copyright (C) 2026 Headway Tools (dev@headway.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package progress

import "fmt"

// maxRecommendations caps the advice list so the CLI stays scannable.
const maxRecommendations = 5

// generalRecommendations is the last resort when no rule fires.
var generalRecommendations = []string{
	"Continue with current approach as progress looks good",
	"Consider increasing targets if you find current goals too easy",
	"Document successful strategies for future reference",
}

// Recommend produces deterministic, rule-based advice from a snapshot.
// It is the fallback when no AI advisor is configured or reachable, and
// the ground truth the advisor output is compared against in tests.
//
// Percent-based rules need a defined percent and an increasing target;
// KPIs without a usable target still participate in trend rules.
func Recommend(snap *Snapshot) []string {
	var recs []string

	for _, r := range snap.KPIs {
		desc := r.KPI.Description
		increasing := r.Direction == HigherIsBetter && r.HasPercent

		if increasing && r.Percent < 30 {
			recs = append(recs, fmt.Sprintf(
				"Focus on increasing '%s' which is at %.1f%% of target", desc, r.Percent))
		}

		switch {
		case r.Trend == TrendDeclining:
			recs = append(recs, fmt.Sprintf("Address declining trend in '%s'", desc))
		case r.Trend == TrendStable && increasing && r.Percent < 70:
			recs = append(recs, fmt.Sprintf("Find ways to accelerate progress on '%s'", desc))
		case r.Trend == TrendImproving && increasing && r.Percent > 90:
			recs = append(recs, fmt.Sprintf(
				"Consider increasing the target for '%s' as you're exceeding expectations", desc))
		}
	}

	if snap.PendingSteps > 0 {
		recs = append(recs, fmt.Sprintf("Complete the %d remaining action steps", snap.PendingSteps))
		if snap.PendingSteps >= 3 {
			recs = append(recs, "Consider prioritizing action steps to make steady progress")
		}
	}

	if allOnTrack(snap) && snap.PendingSteps <= 2 {
		recs = append(recs,
			"Maintain current strategies as they're working well",
			"Document what's working for future reference")
	}

	if len(recs) == 0 {
		recs = append(recs, generalRecommendations...)
	}
	if len(recs) > maxRecommendations {
		recs = recs[:maxRecommendations]
	}
	return recs
}

// allOnTrack reports whether every KPI is where it should be: at least
// 70% of an increasing target, or at/under a decreasing one, and not
// declining. A KPI without a usable target is never "on track".
func allOnTrack(snap *Snapshot) bool {
	for _, r := range snap.KPIs {
		if !r.HasPercent || r.Trend == TrendDeclining {
			return false
		}
		switch r.Direction {
		case LowerIsBetter:
			if r.Percent > 100 {
				return false
			}
		default:
			if r.Percent < 70 {
				return false
			}
		}
	}
	return true
}
