// Copyright (C) 2026 Headway Tools (dev@headway.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/headway-tools/headway/internal/problem"
)

// ImportBundle is one problem tree ready for insertion. Identifiers from
// the source database never survive an import; children reference their
// parents positionally instead, and the store assigns fresh ids inside
// a single transaction.
type ImportBundle struct {
	Problem problem.Problem
	KPIs    []problem.KPI
	Steps   []problem.ActionStep
	Logs    []ImportLog
}

// ImportLog is a progress row whose KPI is identified by its position
// in the bundle's KPIs slice.
type ImportLog struct {
	KPIIndex int
	Value    float64
	LoggedAt time.Time
}

// ImportProblem inserts the bundle atomically. Either the whole tree
// lands with fresh ids or nothing does.
func (s *Store) ImportProblem(bundle *ImportBundle) (*problem.Problem, error) {
	if bundle.Problem.Title == "" {
		return nil, problem.NewValidationError("title", "must not be empty")
	}
	for i, log := range bundle.Logs {
		if log.KPIIndex < 0 || log.KPIIndex >= len(bundle.KPIs) {
			return nil, problem.NewValidationError("progress_logs",
				fmt.Sprintf("log %d references unknown kpi", i))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := problem.Problem{
		Title:       bundle.Problem.Title,
		Description: bundle.Problem.Description,
		CreatedDate: bundle.Problem.CreatedDate,
		Status:      bundle.Problem.Status,
	}
	if p.CreatedDate.IsZero() {
		p.CreatedDate = s.nowFunc()
	}
	if p.Status == "" {
		p.Status = problem.StatusActive
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&p).Error; err != nil {
			return storeErr("import problem", err)
		}

		kpiIDs := make([]uint, len(bundle.KPIs))
		for i := range bundle.KPIs {
			k := problem.KPI{
				ProblemID:    p.ID,
				Description:  bundle.KPIs[i].Description,
				TargetValue:  bundle.KPIs[i].TargetValue,
				CurrentValue: bundle.KPIs[i].CurrentValue,
			}
			if err := tx.Create(&k).Error; err != nil {
				return storeErr("import kpi", err)
			}
			kpiIDs[i] = k.ID
		}

		for i := range bundle.Steps {
			status := bundle.Steps[i].Status
			if status == "" {
				status = problem.StepPending
			}
			st := problem.ActionStep{
				ProblemID:   p.ID,
				Description: bundle.Steps[i].Description,
				Status:      status,
			}
			if err := tx.Create(&st).Error; err != nil {
				return storeErr("import step", err)
			}
		}

		for _, log := range bundle.Logs {
			row := problem.ProgressLog{
				ProblemID: p.ID,
				KPIID:     kpiIDs[log.KPIIndex],
				Value:     log.Value,
				LoggedAt:  log.LoggedAt,
			}
			if row.LoggedAt.IsZero() {
				row.LoggedAt = s.nowFunc()
			}
			if err := tx.Create(&row).Error; err != nil {
				return storeErr("import progress log", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("problem imported",
		"problem_id", p.ID,
		"title", p.Title,
		"kpis", len(bundle.KPIs),
		"steps", len(bundle.Steps),
		"logs", len(bundle.Logs))

	return s.getProblemLocked(p.ID)
}
