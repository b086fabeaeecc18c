// Copyright (C) 2026 Headway Tools (dev@headway.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/headway-tools/headway/internal/problem"
)

func sampleBundle() *ImportBundle {
	created := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	return &ImportBundle{
		Problem: problem.Problem{
			Title:       "Imported problem",
			Description: "Came from another machine",
			CreatedDate: created,
			Status:      problem.StatusActive,
		},
		KPIs: []problem.KPI{
			{Description: "Weight", TargetValue: floatPtr(75), CurrentValue: 82},
			{Description: "Workouts per week", TargetValue: floatPtr(3), CurrentValue: 1},
		},
		Steps: []problem.ActionStep{
			{Description: "Join a gym", Status: problem.StepCompleted},
			{Description: "Plan meals", Status: problem.StepPending},
		},
		Logs: []ImportLog{
			{KPIIndex: 0, Value: 84, LoggedAt: created.Add(24 * time.Hour)},
			{KPIIndex: 0, Value: 82, LoggedAt: created.Add(48 * time.Hour)},
			{KPIIndex: 1, Value: 1, LoggedAt: created.Add(24 * time.Hour)},
		},
	}
}

func TestImportProblem_AssignsFreshIDs(t *testing.T) {
	s := newTestStore(t)

	// Occupy the low ids so a collision with source ids would show up.
	existing := mustCreateProblem(t, s, "Already here")
	mustAddKPI(t, s, existing.ID, "Existing KPI", nil)

	imported, err := s.ImportProblem(sampleBundle())
	require.NoError(t, err)

	assert.NotEqual(t, existing.ID, imported.ID)
	require.Len(t, imported.KPIs, 2)
	require.Len(t, imported.Steps, 2)

	// Logs follow the bundle's positional references onto the new ids.
	var weight, workouts *problem.KPI
	for i := range imported.KPIs {
		switch imported.KPIs[i].Description {
		case "Weight":
			weight = &imported.KPIs[i]
		case "Workouts per week":
			workouts = &imported.KPIs[i]
		}
	}
	require.NotNil(t, weight)
	require.NotNil(t, workouts)

	weightLogs, err := s.ListLogsForKPI(weight.ID)
	require.NoError(t, err)
	require.Len(t, weightLogs, 2)
	assert.Equal(t, 84.0, weightLogs[0].Value)
	assert.Equal(t, 82.0, weightLogs[1].Value)

	workoutLogs, err := s.ListLogsForKPI(workouts.ID)
	require.NoError(t, err)
	assert.Len(t, workoutLogs, 1)

	assert.Equal(t, 82.0, weight.CurrentValue)
	assert.Equal(t, problem.StepCompleted, imported.Steps[0].Status)
}

func TestImportProblem_RejectsUnknownKPIReference(t *testing.T) {
	s := newTestStore(t)

	bundle := sampleBundle()
	bundle.Logs = append(bundle.Logs, ImportLog{KPIIndex: 7, Value: 1})

	_, err := s.ImportProblem(bundle)
	require.Error(t, err)

	var ve *problem.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "progress_logs", ve.Field)

	// Nothing landed.
	problems, err := s.ListProblems("")
	require.NoError(t, err)
	assert.Empty(t, problems)
}

func TestImportProblem_RequiresTitle(t *testing.T) {
	s := newTestStore(t)

	bundle := sampleBundle()
	bundle.Problem.Title = ""

	_, err := s.ImportProblem(bundle)
	require.Error(t, err)

	var ve *problem.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "title", ve.Field)
}

func TestImportProblem_FillsDefaults(t *testing.T) {
	s := newTestStore(t)
	fixed := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	s.nowFunc = func() time.Time { return fixed }

	imported, err := s.ImportProblem(&ImportBundle{
		Problem: problem.Problem{Title: "Bare minimum"},
		KPIs:    []problem.KPI{{Description: "Only KPI"}},
		Steps:   []problem.ActionStep{{Description: "Only step"}},
		Logs:    []ImportLog{{KPIIndex: 0, Value: 3}},
	})
	require.NoError(t, err)

	assert.Equal(t, problem.StatusActive, imported.Status)
	assert.True(t, imported.CreatedDate.Equal(fixed))
	assert.Equal(t, problem.StepPending, imported.Steps[0].Status)

	logs, err := s.ListLogsForKPI(imported.KPIs[0].ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.True(t, logs[0].LoggedAt.Equal(fixed))
}
