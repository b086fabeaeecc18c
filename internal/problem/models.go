// Copyright (C) 2026 Headway Tools (dev@headway.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package problem defines the core domain model: a Problem the user is
// working on, its measurable KPIs, concrete action steps, the append-only
// progress log, and the reminder schedule attached to it.
package problem

import (
	"time"
)

// Problem status values.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
)

// ActionStep status values.
const (
	StepPending   = "pending"
	StepCompleted = "completed"
)

// Reminder frequency values.
const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)

// Problem is the aggregate root. It owns its KPIs, steps, progress logs,
// and reminders; deleting a problem cascades to all of them.
type Problem struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `gorm:"not null" json:"description"`
	CreatedDate time.Time `gorm:"not null" json:"created_date"`
	Status      string    `gorm:"not null;default:'active'" json:"status"`

	KPIs      []KPI         `gorm:"foreignKey:ProblemID;constraint:OnDelete:CASCADE" json:"kpis,omitempty"`
	Steps     []ActionStep  `gorm:"foreignKey:ProblemID;constraint:OnDelete:CASCADE" json:"steps,omitempty"`
	Logs      []ProgressLog `gorm:"foreignKey:ProblemID;constraint:OnDelete:CASCADE" json:"logs,omitempty"`
	Reminders []Reminder    `gorm:"foreignKey:ProblemID;constraint:OnDelete:CASCADE" json:"reminders,omitempty"`
}

func (Problem) TableName() string { return "problems" }

// IsCompleted reports whether the problem has been marked done.
func (p *Problem) IsCompleted() bool { return p.Status == StatusCompleted }

// KPI is a measurable indicator for a problem. TargetValue is nil for
// open-ended metrics ("minutes meditated") where no finish line exists.
// CurrentValue moves only through UpdateKPIValue, which also appends a
// ProgressLog row.
type KPI struct {
	ID           uint     `gorm:"primaryKey" json:"id"`
	ProblemID    uint     `gorm:"index;not null" json:"problem_id"`
	Description  string   `gorm:"not null" json:"description"`
	TargetValue  *float64 `json:"target_value"`
	CurrentValue float64  `gorm:"not null;default:0" json:"current_value"`
}

func (KPI) TableName() string { return "kpis" }

// HasTarget reports whether percent-to-target is computable for this KPI.
func (k *KPI) HasTarget() bool {
	return k.TargetValue != nil && *k.TargetValue != 0
}

// ActionStep is a concrete task under a problem. The only transition is
// pending to completed; a completed step never reverts.
type ActionStep struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	ProblemID   uint   `gorm:"index;not null" json:"problem_id"`
	Description string `gorm:"not null" json:"description"`
	Status      string `gorm:"not null;default:'pending'" json:"status"`
}

func (ActionStep) TableName() string { return "action_steps" }

// ProgressLog is one row of the append-only KPI history. Rows are never
// updated or deleted; trend math reads them in LoggedAt order.
type ProgressLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProblemID uint      `gorm:"index;not null" json:"problem_id"`
	KPIID     uint      `gorm:"index;not null" json:"kpi_id"`
	Value     float64   `gorm:"not null" json:"value"`
	LoggedAt  time.Time `gorm:"not null;index" json:"logged_at"`
}

func (ProgressLog) TableName() string { return "progress_logs" }

// Reminder is a recurring notification schedule for a problem.
//
// TimeOfDay is "HH:MM" in local time. Weekdays is a comma-separated list
// ("Mon,Wed,Fri") and only meaningful for weekly reminders. DayOfMonth is
// 1-31 and only meaningful for monthly reminders; months shorter than the
// configured day clamp to their last day. LastFired is nil until the first
// successful notification and advances only on success, so a failed
// delivery is retried on the next scheduler tick.
type Reminder struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	ProblemID  uint       `gorm:"index;not null" json:"problem_id"`
	Frequency  string     `gorm:"not null" json:"frequency"`
	TimeOfDay  string     `gorm:"not null" json:"time_of_day"`
	Weekdays   string     `json:"weekdays,omitempty"`
	DayOfMonth int        `json:"day_of_month,omitempty"`
	Enabled    bool       `gorm:"not null;default:true" json:"enabled"`
	LastFired  *time.Time `json:"last_fired,omitempty"`
}

func (Reminder) TableName() string { return "reminders" }
