// Copyright (C) 2026 Headway Tools (dev@headway.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/headway-tools/headway/internal/problem"
	"github.com/headway-tools/headway/internal/progress"
	"github.com/headway-tools/headway/pkg/ux"
)

// runUpdateKPICommand records a KPI value, which appends a progress log
// row, then reports the resulting trend.
func runUpdateKPICommand(cmd *cobra.Command, args []string) {
	id := parseID(args[0], "KPI")
	value, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		exitWithError(fmt.Sprintf("invalid value %q: expected a number", args[1]), nil)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		exitWithError("value must be a finite number", nil)
	}

	st := openStore()
	defer st.Close()

	before, err := st.GetKPI(id)
	if err != nil {
		exitWithError("could not load the KPI", err)
	}

	updated, err := st.UpdateKPIValue(&problem.UpdateKPIInput{KPIID: id, Value: value})
	if err != nil {
		exitWithError("could not update the KPI", err)
	}

	ux.Success(fmt.Sprintf("Updated KPI '%s' from %s to %s",
		updated.Description,
		formatValue(before.CurrentValue),
		formatValue(updated.CurrentValue)))

	logs, err := st.ListLogsForKPI(id)
	if err != nil {
		return // the update succeeded, the trend line is best effort
	}
	values := make([]float64, len(logs))
	for i, l := range logs {
		values[i] = l.Value
	}
	direction := progress.DirectionFor(updated, values)
	trend := progress.TrendFor(direction, values)

	if ux.GetPersonality().Level == ux.PersonalityMachine {
		fmt.Printf("TREND\t%s\n", trend)
	} else {
		ux.Info(fmt.Sprintf("Current trend: %s", trendLabel(trend)))
	}
}

// runAddKPICommand attaches a KPI to a problem.
func runAddKPICommand(cmd *cobra.Command, args []string) {
	problemID := parseID(args[0], "problem")
	description := strings.TrimSpace(args[1])

	in := &problem.NewKPIInput{ProblemID: problemID, Description: description}
	if cmd.Flags().Changed("target") {
		target := kpiTarget
		in.Target = &target
	}

	st := openStore()
	defer st.Close()

	kpi, err := st.AddKPI(in)
	if err != nil {
		exitWithError("could not add the KPI", err)
	}

	if kpi.TargetValue != nil {
		ux.Success(fmt.Sprintf("Added new KPI: '%s' with target %s",
			kpi.Description, formatValue(*kpi.TargetValue)))
	} else {
		ux.Success(fmt.Sprintf("Added new KPI: '%s'", kpi.Description))
	}
	ux.Muted(fmt.Sprintf("Log values with 'headway update-kpi %d <value>'", kpi.ID))
}

// runAddStepCommand attaches a pending action step to a problem. The
// description may be given as several arguments; they join with spaces
// so quoting is optional.
func runAddStepCommand(cmd *cobra.Command, args []string) {
	problemID := parseID(args[0], "problem")
	description := strings.TrimSpace(strings.Join(args[1:], " "))

	st := openStore()
	defer st.Close()

	step, err := st.AddStep(&problem.NewStepInput{
		ProblemID:   problemID,
		Description: description,
	})
	if err != nil {
		exitWithError("could not add the step", err)
	}

	ux.Success(fmt.Sprintf("Added new action step: '%s'", step.Description))
}

// runCompleteStepCommand marks a step completed. Completing a step
// twice is reported, not punished.
func runCompleteStepCommand(cmd *cobra.Command, args []string) {
	id := parseID(args[0], "step")

	st := openStore()
	defer st.Close()

	step, err := st.GetStep(id)
	if err != nil {
		exitWithError("could not load the step", err)
	}

	switch err := st.CompleteStep(id); {
	case err == nil:
		ux.Success(fmt.Sprintf("Marked step '%s' as completed!", step.Description))
	case errors.Is(err, problem.ErrAlreadyCompleted):
		ux.Info(fmt.Sprintf("Step '%s' was already completed.", step.Description))
	default:
		exitWithError("could not complete the step", err)
	}
}
