// Copyright (C) 2026 Headway Tools (dev@headway.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"gorm.io/gorm"

	"github.com/headway-tools/headway/internal/problem"
)

// CreateProblem validates the input and inserts a new active problem.
func (s *Store) CreateProblem(in *problem.NewProblemInput) (*problem.Problem, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := &problem.Problem{
		Title:       in.Title,
		Description: in.Description,
		CreatedDate: s.nowFunc(),
		Status:      problem.StatusActive,
	}
	if err := s.db.Create(p).Error; err != nil {
		return nil, storeErr("create problem", err)
	}

	s.logger.Info("problem created", "problem_id", p.ID, "title", p.Title)
	return p, nil
}

// GetProblem fetches a problem with its KPIs, steps, and reminders.
// Progress logs are fetched separately via ListLogsForKPI; they grow
// unbounded and most callers do not need them.
func (s *Store) GetProblem(id uint) (*problem.Problem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getProblemLocked(id)
}

func (s *Store) getProblemLocked(id uint) (*problem.Problem, error) {
	var p problem.Problem
	err := s.db.
		Preload("KPIs").
		Preload("Steps").
		Preload("Reminders").
		First(&p, id).Error
	if err != nil {
		return nil, translate("get problem", "problem", id, err)
	}
	return &p, nil
}

// ListProblems returns problems filtered by status ("" means all),
// newest first, each with KPIs and steps preloaded.
func (s *Store) ListProblems(status string) ([]problem.Problem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.db.Preload("KPIs").Preload("Steps").Order("id DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var problems []problem.Problem
	if err := q.Find(&problems).Error; err != nil {
		return nil, storeErr("list problems", err)
	}
	return problems, nil
}

// CompleteProblem marks a problem completed. Completing an already
// completed problem is a no-op.
func (s *Store) CompleteProblem(id uint) error {
	return s.setProblemStatus(id, problem.StatusCompleted)
}

// ReactivateProblem returns a completed problem to active.
func (s *Store) ReactivateProblem(id uint) error {
	return s.setProblemStatus(id, problem.StatusActive)
}

func (s *Store) setProblemStatus(id uint, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.db.Model(&problem.Problem{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return storeErr("update problem status", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("problem", id)
	}
	s.logger.Info("problem status changed", "problem_id", id, "status", status)
	return nil
}

// DeleteProblem removes a problem and everything it owns. Children are
// deleted explicitly inside one transaction rather than relying on the
// cascade pragma, so a partially configured connection cannot orphan rows.
func (s *Store) DeleteProblem(id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var p problem.Problem
		if err := tx.First(&p, id).Error; err != nil {
			return translate("delete problem", "problem", id, err)
		}
		if err := tx.Where("problem_id = ?", id).Delete(&problem.ProgressLog{}).Error; err != nil {
			return storeErr("delete progress logs", err)
		}
		if err := tx.Where("problem_id = ?", id).Delete(&problem.Reminder{}).Error; err != nil {
			return storeErr("delete reminders", err)
		}
		if err := tx.Where("problem_id = ?", id).Delete(&problem.ActionStep{}).Error; err != nil {
			return storeErr("delete steps", err)
		}
		if err := tx.Where("problem_id = ?", id).Delete(&problem.KPI{}).Error; err != nil {
			return storeErr("delete kpis", err)
		}
		if err := tx.Delete(&problem.Problem{}, id).Error; err != nil {
			return storeErr("delete problem", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("problem deleted", "problem_id", id)
	return nil
}

// AddKPI validates the input and attaches a KPI to an existing problem.
func (s *Store) AddKPI(in *problem.NewKPIInput) (*problem.KPI, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireProblem(in.ProblemID); err != nil {
		return nil, err
	}

	k := &problem.KPI{
		ProblemID:   in.ProblemID,
		Description: in.Description,
		TargetValue: in.Target,
	}
	if err := s.db.Create(k).Error; err != nil {
		return nil, storeErr("create kpi", err)
	}

	s.logger.Info("kpi added", "problem_id", in.ProblemID, "kpi_id", k.ID)
	return k, nil
}

// GetKPI fetches a single KPI.
func (s *Store) GetKPI(id uint) (*problem.KPI, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var k problem.KPI
	if err := s.db.First(&k, id).Error; err != nil {
		return nil, translate("get kpi", "kpi", id, err)
	}
	return &k, nil
}

// UpdateKPIValue sets the KPI's current value and appends exactly one
// progress log row, atomically. The returned KPI reflects the new value.
func (s *Store) UpdateKPIValue(in *problem.UpdateKPIInput) (*problem.KPI, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var k problem.KPI
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&k, in.KPIID).Error; err != nil {
			return translate("update kpi", "kpi", in.KPIID, err)
		}
		if err := tx.Model(&k).Update("current_value", in.Value).Error; err != nil {
			return storeErr("update kpi value", err)
		}
		log := &problem.ProgressLog{
			ProblemID: k.ProblemID,
			KPIID:     k.ID,
			Value:     in.Value,
			LoggedAt:  s.nowFunc(),
		}
		if err := tx.Create(log).Error; err != nil {
			return storeErr("append progress log", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	k.CurrentValue = in.Value
	s.logger.Info("kpi updated", "kpi_id", k.ID, "value", in.Value)
	return &k, nil
}

// AddStep validates the input and attaches a pending action step.
func (s *Store) AddStep(in *problem.NewStepInput) (*problem.ActionStep, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireProblem(in.ProblemID); err != nil {
		return nil, err
	}

	st := &problem.ActionStep{
		ProblemID:   in.ProblemID,
		Description: in.Description,
		Status:      problem.StepPending,
	}
	if err := s.db.Create(st).Error; err != nil {
		return nil, storeErr("create step", err)
	}

	s.logger.Info("step added", "problem_id", in.ProblemID, "step_id", st.ID)
	return st, nil
}

// GetStep fetches a single action step.
func (s *Store) GetStep(id uint) (*problem.ActionStep, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var st problem.ActionStep
	if err := s.db.First(&st, id).Error; err != nil {
		return nil, translate("get step", "step", id, err)
	}
	return &st, nil
}

// CompleteStep transitions a step from pending to completed. A repeat
// completion returns problem.ErrAlreadyCompleted so callers can report
// it without treating it as a failure.
func (s *Store) CompleteStep(id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var st problem.ActionStep
	if err := s.db.First(&st, id).Error; err != nil {
		return translate("complete step", "step", id, err)
	}
	if st.Status == problem.StepCompleted {
		return problem.ErrAlreadyCompleted
	}

	if err := s.db.Model(&st).Update("status", problem.StepCompleted).Error; err != nil {
		return storeErr("complete step", err)
	}
	s.logger.Info("step completed", "step_id", id)
	return nil
}

// ListLogsForKPI returns the progress history of one KPI, oldest first.
// This is the ordering the trend math expects.
func (s *Store) ListLogsForKPI(kpiID uint) ([]problem.ProgressLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var logs []problem.ProgressLog
	err := s.db.
		Where("kpi_id = ?", kpiID).
		Order("logged_at ASC, id ASC").
		Find(&logs).Error
	if err != nil {
		return nil, storeErr("list logs", err)
	}
	return logs, nil
}

// ListLogsForProblem returns all progress rows of a problem, oldest first.
func (s *Store) ListLogsForProblem(problemID uint) ([]problem.ProgressLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var logs []problem.ProgressLog
	err := s.db.
		Where("problem_id = ?", problemID).
		Order("logged_at ASC, id ASC").
		Find(&logs).Error
	if err != nil {
		return nil, storeErr("list logs", err)
	}
	return logs, nil
}

// requireProblem fails with NotFound when the id does not exist.
// Callers must hold the store mutex.
func (s *Store) requireProblem(id uint) error {
	var count int64
	if err := s.db.Model(&problem.Problem{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return storeErr("check problem", err)
	}
	if count == 0 {
		return notFound("problem", id)
	}
	return nil
}
