// Copyright (C) 2026 Headway Tools (dev@headway.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package progress derives trends, moving averages, and percent-to-target
// figures from a KPI's logged history. Everything here is a pure function
// of the ordered values; the store owns ordering and the CLI owns display.
package progress

import (
	"github.com/headway-tools/headway/internal/problem"
)

// Moving-average window bounds. The window is configurable; values
// outside the valid range fall back to the default.
const (
	DefaultWindow = 5
	MinWindow     = 2
	MaxWindow     = 10
)

// slopeThreshold separates a real trend from noise in manual entries.
const slopeThreshold = 0.1

// Trend classifies where a KPI is heading, already adjusted for the
// KPI's direction: improving always means moving toward the goal.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"

	// TrendUnknown means fewer than three logged values exist, which
	// is too little history to call a direction.
	TrendUnknown Trend = "unknown"
)

// Direction says whether a larger value is progress for a KPI.
type Direction int

const (
	HigherIsBetter Direction = iota
	LowerIsBetter
)

func (d Direction) String() string {
	if d == LowerIsBetter {
		return "lower is better"
	}
	return "higher is better"
}

// NormalizeWindow clamps a configured window into the valid range,
// substituting the default for anything out of bounds.
func NormalizeWindow(window int) int {
	if window < MinWindow || window > MaxWindow {
		return DefaultWindow
	}
	return window
}

// MovingAverage returns the mean of the last window values. The second
// return is false when there are no values at all.
func MovingAverage(values []float64, window int) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	window = NormalizeWindow(window)
	if window > len(values) {
		window = len(values)
	}

	var sum float64
	for _, v := range values[len(values)-window:] {
		sum += v
	}
	return sum / float64(window), true
}

// Slope fits a least-squares line through the last three values and
// returns its slope. Returns false with fewer than three values.
func Slope(values []float64) (float64, bool) {
	if len(values) < 3 {
		return 0, false
	}
	return leastSquaresSlope(values[len(values)-3:]), true
}

// leastSquaresSlope fits y = a + bx over x = 0..n-1 and returns b.
func leastSquaresSlope(y []float64) float64 {
	n := float64(len(y))
	var sumX, sumY, sumXY, sumXX float64
	for i, v := range y {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

// DirectionFor decides a KPI's polarity. Default is higher-is-better;
// the direction flips to lower-is-better when the KPI carries a
// non-zero target strictly below the first logged value (a weight-loss
// style goal). The flip needs a logged baseline; without history the
// default stands. This is the single place polarity is decided.
func DirectionFor(kpi *problem.KPI, values []float64) Direction {
	if !kpi.HasTarget() || len(values) == 0 {
		return HigherIsBetter
	}
	if *kpi.TargetValue < values[0] {
		return LowerIsBetter
	}
	return HigherIsBetter
}

// TrendFor classifies the latest movement of a KPI's values, adjusted
// for direction so that losing weight reads as improving when the
// target sits below the baseline.
func TrendFor(direction Direction, values []float64) Trend {
	slope, ok := Slope(values)
	if !ok {
		return TrendUnknown
	}

	towardGoal := slope
	if direction == LowerIsBetter {
		towardGoal = -slope
	}

	switch {
	case towardGoal > slopeThreshold:
		return TrendImproving
	case towardGoal < -slopeThreshold:
		return TrendDeclining
	default:
		return TrendStable
	}
}

// PercentToTarget returns current/target as a percentage. The second
// return is false when the target is unset or zero, in which case the
// figure is undefined and callers report N/A.
func PercentToTarget(current float64, target *float64) (float64, bool) {
	if target == nil || *target == 0 {
		return 0, false
	}
	return current / *target * 100, true
}

// KPIReport is one KPI with its derived figures.
type KPIReport struct {
	KPI       problem.KPI
	Direction Direction
	Trend     Trend
	LogCount  int

	MovingAvg    float64
	HasMovingAvg bool

	Percent    float64
	HasPercent bool
}

// Snapshot is the derived view of a whole problem, consumed by the
// view and analyze commands and by the advisor prompt builder.
type Snapshot struct {
	Problem      problem.Problem
	KPIs         []KPIReport
	Steps        []problem.ActionStep
	PendingSteps int
}

// BuildSnapshot computes derived figures for every KPI of a problem.
// logsByKPI maps KPI id to its progress rows, oldest first, as returned
// by the store.
func BuildSnapshot(p *problem.Problem, logsByKPI map[uint][]problem.ProgressLog, window int) *Snapshot {
	snap := &Snapshot{
		Problem: *p,
		Steps:   p.Steps,
		KPIs:    make([]KPIReport, 0, len(p.KPIs)),
	}

	for i := range p.KPIs {
		kpi := p.KPIs[i]
		values := logValues(logsByKPI[kpi.ID])
		direction := DirectionFor(&kpi, values)

		report := KPIReport{
			KPI:       kpi,
			Direction: direction,
			Trend:     TrendFor(direction, values),
			LogCount:  len(values),
		}
		report.MovingAvg, report.HasMovingAvg = MovingAverage(values, window)
		report.Percent, report.HasPercent = PercentToTarget(kpi.CurrentValue, kpi.TargetValue)

		snap.KPIs = append(snap.KPIs, report)
	}

	for _, st := range p.Steps {
		if st.Status != problem.StepCompleted {
			snap.PendingSteps++
		}
	}
	return snap
}

func logValues(logs []problem.ProgressLog) []float64 {
	if len(logs) == 0 {
		return nil
	}
	values := make([]float64, len(logs))
	for i, log := range logs {
		values[i] = log.Value
	}
	return values
}
