// Copyright (C) 2026 Headway Tools (dev@headway.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/headway-tools/headway/internal/problem"
	"github.com/headway-tools/headway/pkg/logging"
)

// newTestStore opens a store against a throwaway database file. A file
// under t.TempDir keeps gorm's connection pool honest; an in-memory DSN
// hands each pooled connection its own empty database.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{
		Path:   filepath.Join(t.TempDir(), "headway.db"),
		Logger: logging.New(logging.Config{Level: logging.LevelError, Quiet: true}),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustCreateProblem(t *testing.T, s *Store, title string) *problem.Problem {
	t.Helper()
	p, err := s.CreateProblem(&problem.NewProblemInput{
		Title:       title,
		Description: "description of " + title,
	})
	require.NoError(t, err)
	return p
}

func mustAddKPI(t *testing.T, s *Store, problemID uint, desc string, target *float64) *problem.KPI {
	t.Helper()
	k, err := s.AddKPI(&problem.NewKPIInput{
		ProblemID:   problemID,
		Description: desc,
		Target:      target,
	})
	require.NoError(t, err)
	return k
}

func floatPtr(v float64) *float64 { return &v }

// ===== Open / Close =====

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open(Config{})
	require.Error(t, err)

	var se *StoreError
	assert.True(t, errors.As(err, &se))
}

func TestOpen_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "headway.db")

	s, err := Open(Config{Path: path})
	require.NoError(t, err)
	defer s.Close()

	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)
	assert.Equal(t, path, s.Path())
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "headway.db")

	s, err := Open(Config{Path: path})
	require.NoError(t, err)
	p := mustCreateProblem(t, s, "Reduce meeting load")
	require.NoError(t, s.Close())

	// Second open runs the same migration against the populated file.
	s2, err := Open(Config{Path: path})
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.GetProblem(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Reduce meeting load", got.Title)
}

// ===== Problems =====

func TestCreateProblem(t *testing.T) {
	s := newTestStore(t)

	p, err := s.CreateProblem(&problem.NewProblemInput{
		Title:       "Sleep earlier",
		Description: "In bed by 23:00 on weekdays",
	})
	require.NoError(t, err)

	assert.NotZero(t, p.ID)
	assert.Equal(t, problem.StatusActive, p.Status)
	assert.False(t, p.CreatedDate.IsZero())
}

func TestCreateProblem_Invalid(t *testing.T) {
	s := newTestStore(t)

	_, err := s.CreateProblem(&problem.NewProblemInput{Description: "no title"})
	require.Error(t, err)

	var ve *problem.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "title", ve.Field)
}

func TestGetProblem_PreloadsChildren(t *testing.T) {
	s := newTestStore(t)
	p := mustCreateProblem(t, s, "Ship the release")
	mustAddKPI(t, s, p.ID, "Open bugs", floatPtr(0))
	_, err := s.AddStep(&problem.NewStepInput{ProblemID: p.ID, Description: "Triage backlog"})
	require.NoError(t, err)
	_, err = s.AddReminder(&problem.ReminderInput{
		ProblemID: p.ID,
		Frequency: problem.FrequencyDaily,
		TimeOfDay: "09:00",
	})
	require.NoError(t, err)

	got, err := s.GetProblem(p.ID)
	require.NoError(t, err)

	assert.Len(t, got.KPIs, 1)
	assert.Len(t, got.Steps, 1)
	assert.Len(t, got.Reminders, 1)
	assert.Equal(t, problem.StepPending, got.Steps[0].Status)
}

func TestGetProblem_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetProblem(42)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "problem 42")
}

func TestListProblems_FilterAndOrder(t *testing.T) {
	s := newTestStore(t)
	first := mustCreateProblem(t, s, "First")
	second := mustCreateProblem(t, s, "Second")
	require.NoError(t, s.CompleteProblem(first.ID))

	all, err := s.ListProblems("")
	require.NoError(t, err)
	require.Len(t, all, 2)
	// Newest first.
	assert.Equal(t, second.ID, all[0].ID)

	active, err := s.ListProblems(problem.StatusActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Second", active[0].Title)

	completed, err := s.ListProblems(problem.StatusCompleted)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, "First", completed[0].Title)
}

func TestCompleteProblem_Idempotent(t *testing.T) {
	s := newTestStore(t)
	p := mustCreateProblem(t, s, "Inbox zero")

	require.NoError(t, s.CompleteProblem(p.ID))
	require.NoError(t, s.CompleteProblem(p.ID))

	got, err := s.GetProblem(p.ID)
	require.NoError(t, err)
	assert.Equal(t, problem.StatusCompleted, got.Status)
	assert.True(t, got.IsCompleted())
}

func TestReactivateProblem(t *testing.T) {
	s := newTestStore(t)
	p := mustCreateProblem(t, s, "Run weekly")
	require.NoError(t, s.CompleteProblem(p.ID))

	require.NoError(t, s.ReactivateProblem(p.ID))

	got, err := s.GetProblem(p.ID)
	require.NoError(t, err)
	assert.Equal(t, problem.StatusActive, got.Status)
}

func TestCompleteProblem_NotFound(t *testing.T) {
	s := newTestStore(t)
	err := s.CompleteProblem(99)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDeleteProblem_RemovesChildren(t *testing.T) {
	s := newTestStore(t)
	p := mustCreateProblem(t, s, "Doomed")
	k := mustAddKPI(t, s, p.ID, "Anything", nil)
	_, err := s.AddStep(&problem.NewStepInput{ProblemID: p.ID, Description: "Step"})
	require.NoError(t, err)
	_, err = s.AddReminder(&problem.ReminderInput{
		ProblemID: p.ID,
		Frequency: problem.FrequencyDaily,
		TimeOfDay: "08:00",
	})
	require.NoError(t, err)
	_, err = s.UpdateKPIValue(&problem.UpdateKPIInput{KPIID: k.ID, Value: 5})
	require.NoError(t, err)

	require.NoError(t, s.DeleteProblem(p.ID))

	_, err = s.GetProblem(p.ID)
	assert.True(t, errors.Is(err, ErrNotFound))

	logs, err := s.ListLogsForProblem(p.ID)
	require.NoError(t, err)
	assert.Empty(t, logs)

	reminders, err := s.ListRemindersForProblem(p.ID)
	require.NoError(t, err)
	assert.Empty(t, reminders)
}

func TestDeleteProblem_NotFound(t *testing.T) {
	s := newTestStore(t)
	err := s.DeleteProblem(7)
	assert.True(t, errors.Is(err, ErrNotFound))
}

// ===== KPIs and progress =====

func TestAddKPI(t *testing.T) {
	s := newTestStore(t)
	p := mustCreateProblem(t, s, "Hydrate")

	k := mustAddKPI(t, s, p.ID, "Glasses of water per day", floatPtr(8))

	assert.NotZero(t, k.ID)
	assert.Equal(t, p.ID, k.ProblemID)
	require.NotNil(t, k.TargetValue)
	assert.Equal(t, 8.0, *k.TargetValue)
	assert.Zero(t, k.CurrentValue)
}

func TestAddKPI_ProblemNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.AddKPI(&problem.NewKPIInput{ProblemID: 123, Description: "Orphan"})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestUpdateKPIValue_AppendsLog(t *testing.T) {
	s := newTestStore(t)
	p := mustCreateProblem(t, s, "Read more")
	k := mustAddKPI(t, s, p.ID, "Pages per week", floatPtr(100))

	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	s.nowFunc = func() time.Time { return base }
	_, err := s.UpdateKPIValue(&problem.UpdateKPIInput{KPIID: k.ID, Value: 20})
	require.NoError(t, err)

	s.nowFunc = func() time.Time { return base.Add(24 * time.Hour) }
	updated, err := s.UpdateKPIValue(&problem.UpdateKPIInput{KPIID: k.ID, Value: 35})
	require.NoError(t, err)
	assert.Equal(t, 35.0, updated.CurrentValue)

	logs, err := s.ListLogsForKPI(k.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, 20.0, logs[0].Value)
	assert.Equal(t, 35.0, logs[1].Value)
	assert.True(t, logs[0].LoggedAt.Before(logs[1].LoggedAt))

	// The stored KPI row carries the latest value too.
	got, err := s.GetKPI(k.ID)
	require.NoError(t, err)
	assert.Equal(t, 35.0, got.CurrentValue)
}

func TestUpdateKPIValue_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.UpdateKPIValue(&problem.UpdateKPIInput{KPIID: 404, Value: 1})
	assert.True(t, errors.Is(err, ErrNotFound))

	// A failed update must not leave a stray log row behind.
	logs, err := s.ListLogsForKPI(404)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestListLogsForKPI_OrderedByTime(t *testing.T) {
	s := newTestStore(t)
	p := mustCreateProblem(t, s, "Trend data")
	k := mustAddKPI(t, s, p.ID, "Metric", nil)

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, offset := range []time.Duration{2 * time.Hour, 0, time.Hour} {
		at := base.Add(offset)
		s.nowFunc = func() time.Time { return at }
		_, err := s.UpdateKPIValue(&problem.UpdateKPIInput{KPIID: k.ID, Value: float64(i)})
		require.NoError(t, err)
	}

	logs, err := s.ListLogsForKPI(k.ID)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	// Oldest first regardless of insertion order.
	assert.Equal(t, []float64{1, 2, 0}, []float64{logs[0].Value, logs[1].Value, logs[2].Value})
}

// ===== Action steps =====

func TestCompleteStep_OnceOnly(t *testing.T) {
	s := newTestStore(t)
	p := mustCreateProblem(t, s, "Declutter")
	st, err := s.AddStep(&problem.NewStepInput{ProblemID: p.ID, Description: "Sort the desk"})
	require.NoError(t, err)
	assert.Equal(t, problem.StepPending, st.Status)

	require.NoError(t, s.CompleteStep(st.ID))

	err = s.CompleteStep(st.ID)
	assert.True(t, errors.Is(err, problem.ErrAlreadyCompleted))

	got, err := s.GetStep(st.ID)
	require.NoError(t, err)
	assert.Equal(t, problem.StepCompleted, got.Status)
}

func TestCompleteStep_NotFound(t *testing.T) {
	s := newTestStore(t)
	err := s.CompleteStep(55)
	assert.True(t, errors.Is(err, ErrNotFound))
}

// ===== Reminders =====

func TestAddReminder_DefaultsEnabled(t *testing.T) {
	s := newTestStore(t)
	p := mustCreateProblem(t, s, "Stretch")

	r, err := s.AddReminder(&problem.ReminderInput{
		ProblemID: p.ID,
		Frequency: problem.FrequencyWeekly,
		TimeOfDay: "07:30",
		Weekdays:  "friday,MON,wed",
	})
	require.NoError(t, err)

	assert.True(t, r.Enabled)
	assert.Nil(t, r.LastFired)
	// Weekday list is stored canonicalized.
	assert.Equal(t, "Mon,Wed,Fri", r.Weekdays)
}

func TestAddReminder_InvalidSchedule(t *testing.T) {
	s := newTestStore(t)
	p := mustCreateProblem(t, s, "Stretch")

	_, err := s.AddReminder(&problem.ReminderInput{
		ProblemID: p.ID,
		Frequency: problem.FrequencyWeekly,
		TimeOfDay: "07:30",
	})
	require.Error(t, err)

	var ve *problem.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "weekdays", ve.Field)
}

func TestListReminders_OnlyEnabled(t *testing.T) {
	s := newTestStore(t)
	p := mustCreateProblem(t, s, "Stretch")
	r1, err := s.AddReminder(&problem.ReminderInput{
		ProblemID: p.ID, Frequency: problem.FrequencyDaily, TimeOfDay: "08:00",
	})
	require.NoError(t, err)
	r2, err := s.AddReminder(&problem.ReminderInput{
		ProblemID: p.ID, Frequency: problem.FrequencyDaily, TimeOfDay: "20:00",
	})
	require.NoError(t, err)

	require.NoError(t, s.SetReminderEnabled(r1.ID, false))

	enabled, err := s.ListReminders(true)
	require.NoError(t, err)
	require.Len(t, enabled, 1)
	assert.Equal(t, r2.ID, enabled[0].ID)

	all, err := s.ListReminders(false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMarkReminderFired(t *testing.T) {
	s := newTestStore(t)
	p := mustCreateProblem(t, s, "Stretch")
	r, err := s.AddReminder(&problem.ReminderInput{
		ProblemID: p.ID, Frequency: problem.FrequencyDaily, TimeOfDay: "08:00",
	})
	require.NoError(t, err)

	fired := time.Date(2026, 4, 2, 8, 0, 12, 0, time.UTC)
	require.NoError(t, s.MarkReminderFired(r.ID, fired))

	got, err := s.GetReminder(r.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastFired)
	assert.True(t, got.LastFired.Equal(fired))
}

func TestDeleteReminder(t *testing.T) {
	s := newTestStore(t)
	p := mustCreateProblem(t, s, "Stretch")
	r, err := s.AddReminder(&problem.ReminderInput{
		ProblemID: p.ID, Frequency: problem.FrequencyDaily, TimeOfDay: "08:00",
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteReminder(r.ID))

	_, err = s.GetReminder(r.ID)
	assert.True(t, errors.Is(err, ErrNotFound))

	err = s.DeleteReminder(r.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

// ===== Concurrency =====

// TestInterleavedWrites_NoneLostOrDuplicated hammers one KPI from several
// goroutines while a scheduler-shaped goroutine reads reminders and marks
// fires. Every update must land exactly once.
func TestInterleavedWrites_NoneLostOrDuplicated(t *testing.T) {
	s := newTestStore(t)
	p := mustCreateProblem(t, s, "Busy problem")
	k := mustAddKPI(t, s, p.ID, "Contended metric", nil)
	r, err := s.AddReminder(&problem.ReminderInput{
		ProblemID: p.ID, Frequency: problem.FrequencyDaily, TimeOfDay: "08:00",
	})
	require.NoError(t, err)

	const writers = 4
	const perWriter = 10

	var wg sync.WaitGroup
	errs := make(chan error, writers*perWriter+perWriter)

	for g := 0; g < writers; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				value := float64(g*100 + i)
				if _, err := s.UpdateKPIValue(&problem.UpdateKPIInput{KPIID: k.ID, Value: value}); err != nil {
					errs <- err
				}
			}
		}(g)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < perWriter; i++ {
			if _, err := s.ListReminders(true); err != nil {
				errs <- err
			}
			if err := s.MarkReminderFired(r.ID, time.Now()); err != nil {
				errs <- err
			}
		}
	}()

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("interleaved operation failed: %v", err)
	}

	logs, err := s.ListLogsForKPI(k.ID)
	require.NoError(t, err)
	require.Len(t, logs, writers*perWriter)

	seen := make(map[float64]int, len(logs))
	for _, l := range logs {
		seen[l.Value]++
	}
	for g := 0; g < writers; g++ {
		for i := 0; i < perWriter; i++ {
			assert.Equal(t, 1, seen[float64(g*100+i)], "value %d.%d", g, i)
		}
	}

	got, err := s.GetReminder(r.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.LastFired)
}
