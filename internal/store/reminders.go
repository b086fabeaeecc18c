// Copyright (C) 2026 Headway Tools (dev@headway.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"time"

	"github.com/headway-tools/headway/internal/problem"
)

// AddReminder validates the schedule and attaches it to a problem.
// New reminders start enabled with no fire history.
func (s *Store) AddReminder(in *problem.ReminderInput) (*problem.Reminder, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireProblem(in.ProblemID); err != nil {
		return nil, err
	}

	r := &problem.Reminder{
		ProblemID:  in.ProblemID,
		Frequency:  in.Frequency,
		TimeOfDay:  in.TimeOfDay,
		Weekdays:   in.Weekdays,
		DayOfMonth: in.DayOfMonth,
		Enabled:    true,
	}
	if err := s.db.Create(r).Error; err != nil {
		return nil, storeErr("create reminder", err)
	}

	s.logger.Info("reminder added",
		"problem_id", in.ProblemID, "reminder_id", r.ID, "frequency", r.Frequency)
	return r, nil
}

// GetReminder fetches a single reminder.
func (s *Store) GetReminder(id uint) (*problem.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var r problem.Reminder
	if err := s.db.First(&r, id).Error; err != nil {
		return nil, translate("get reminder", "reminder", id, err)
	}
	return &r, nil
}

// ListReminders returns reminders ordered by id, optionally only the
// enabled ones. The scheduler polls with onlyEnabled=true.
func (s *Store) ListReminders(onlyEnabled bool) ([]problem.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.db.Order("id ASC")
	if onlyEnabled {
		q = q.Where("enabled = ?", true)
	}

	var reminders []problem.Reminder
	if err := q.Find(&reminders).Error; err != nil {
		return nil, storeErr("list reminders", err)
	}
	return reminders, nil
}

// ListRemindersForProblem returns a problem's reminders ordered by id.
func (s *Store) ListRemindersForProblem(problemID uint) ([]problem.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var reminders []problem.Reminder
	err := s.db.
		Where("problem_id = ?", problemID).
		Order("id ASC").
		Find(&reminders).Error
	if err != nil {
		return nil, storeErr("list reminders", err)
	}
	return reminders, nil
}

// SetReminderEnabled toggles a reminder without touching its schedule
// or fire history.
func (s *Store) SetReminderEnabled(id uint, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.db.Model(&problem.Reminder{}).Where("id = ?", id).Update("enabled", enabled)
	if res.Error != nil {
		return storeErr("update reminder", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("reminder", id)
	}
	s.logger.Info("reminder toggled", "reminder_id", id, "enabled", enabled)
	return nil
}

// DeleteReminder removes a reminder.
func (s *Store) DeleteReminder(id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.db.Delete(&problem.Reminder{}, id)
	if res.Error != nil {
		return storeErr("delete reminder", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("reminder", id)
	}
	s.logger.Info("reminder deleted", "reminder_id", id)
	return nil
}

// MarkReminderFired records a successful delivery. The scheduler calls
// this only after the notifier reports success; a failed delivery leaves
// last_fired alone so the occurrence is retried on the next tick.
func (s *Store) MarkReminderFired(id uint, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.db.Model(&problem.Reminder{}).Where("id = ?", id).Update("last_fired", at)
	if res.Error != nil {
		return storeErr("mark reminder fired", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("reminder", id)
	}
	return nil
}
