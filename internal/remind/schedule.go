// Copyright (C) 2026 Headway Tools (dev@headway.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package remind computes reminder schedules and runs the polling loop
// that fires them. The schedule math is pure; the scheduler owns the
// clock, the store, and the notifier.
package remind

import (
	"fmt"
	"time"

	"github.com/headway-tools/headway/internal/problem"
	"github.com/headway-tools/headway/pkg/validation"
)

// ===== Schedule Math =====

// NextFire returns the next instant strictly after now at which the
// reminder is scheduled, in now's location.
//
// Daily reminders fire at the configured time today, or tomorrow when
// the time already passed. Weekly reminders fire on the nearest upcoming
// configured weekday, wrapping a full week when today is the only
// configured day and its time has passed. Monthly reminders fire on the
// configured day-of-month, clamped to the last day of short months (a
// day-31 reminder fires on June 30th, never on July 1st).
func NextFire(r *problem.Reminder, now time.Time) (time.Time, error) {
	hour, minute, err := validation.ParseTimeOfDay(r.TimeOfDay)
	if err != nil {
		return time.Time{}, fmt.Errorf("reminder %d: %w", r.ID, err)
	}

	switch r.Frequency {
	case problem.FrequencyDaily:
		candidate := at(now, 0, hour, minute)
		if !candidate.After(now) {
			candidate = at(now, 1, hour, minute)
		}
		return candidate, nil

	case problem.FrequencyWeekly:
		days, err := validation.ParseWeekdays(r.Weekdays)
		if err != nil {
			return time.Time{}, fmt.Errorf("reminder %d: %w", r.ID, err)
		}
		for offset := 0; offset <= 7; offset++ {
			candidate := at(now, offset, hour, minute)
			if candidate.After(now) && weekdayIn(candidate.Weekday(), days) {
				return candidate, nil
			}
		}
		// Unreachable with a non-empty day set.
		return time.Time{}, fmt.Errorf("reminder %d: no weekdays configured", r.ID)

	case problem.FrequencyMonthly:
		candidate := monthlyAt(now.Year(), now.Month(), r.DayOfMonth, hour, minute, now.Location())
		if !candidate.After(now) {
			candidate = monthlyAt(now.Year(), now.Month()+1, r.DayOfMonth, hour, minute, now.Location())
		}
		return candidate, nil
	}

	return time.Time{}, fmt.Errorf("reminder %d: unknown frequency %q", r.ID, r.Frequency)
}

// lastOccurrence returns the most recent scheduled instant at or before
// now. Every reminder has one within the past month, so the only error
// case is an unparsable schedule.
func lastOccurrence(r *problem.Reminder, now time.Time) (time.Time, error) {
	hour, minute, err := validation.ParseTimeOfDay(r.TimeOfDay)
	if err != nil {
		return time.Time{}, fmt.Errorf("reminder %d: %w", r.ID, err)
	}

	switch r.Frequency {
	case problem.FrequencyDaily:
		candidate := at(now, 0, hour, minute)
		if candidate.After(now) {
			candidate = at(now, -1, hour, minute)
		}
		return candidate, nil

	case problem.FrequencyWeekly:
		days, err := validation.ParseWeekdays(r.Weekdays)
		if err != nil {
			return time.Time{}, fmt.Errorf("reminder %d: %w", r.ID, err)
		}
		for offset := 0; offset >= -7; offset-- {
			candidate := at(now, offset, hour, minute)
			if !candidate.After(now) && weekdayIn(candidate.Weekday(), days) {
				return candidate, nil
			}
		}
		return time.Time{}, fmt.Errorf("reminder %d: no weekdays configured", r.ID)

	case problem.FrequencyMonthly:
		candidate := monthlyAt(now.Year(), now.Month(), r.DayOfMonth, hour, minute, now.Location())
		if candidate.After(now) {
			candidate = monthlyAt(now.Year(), now.Month()-1, r.DayOfMonth, hour, minute, now.Location())
		}
		return candidate, nil
	}

	return time.Time{}, fmt.Errorf("reminder %d: unknown frequency %q", r.ID, r.Frequency)
}

// Due reports whether the reminder should fire at now. A reminder is due
// when its most recent scheduled occurrence falls on now's calendar day
// and has not been delivered yet (last_fired unset or older than the
// occurrence). Occurrences missed on previous days are skipped, never
// fired late; this mirrors the catch-up window of a same-day restart.
func Due(r *problem.Reminder, now time.Time) (bool, error) {
	if !r.Enabled {
		return false, nil
	}

	occ, err := lastOccurrence(r, now)
	if err != nil {
		return false, err
	}
	if !sameDay(occ, now) {
		return false, nil
	}
	if r.LastFired != nil && !r.LastFired.Before(occ) {
		return false, nil
	}
	return true, nil
}

// at returns now shifted by days at the given wall-clock time. Going
// through time.Date keeps the result correct across DST transitions.
func at(now time.Time, days, hour, minute int) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day()+days, hour, minute, 0, 0, now.Location())
}

// monthlyAt returns the given day of month at the wall-clock time,
// clamping the day to the target month's length. time.Date normalizes
// out-of-range months, so month+1 and month-1 are safe at year bounds.
func monthlyAt(year int, month time.Month, day, hour, minute int, loc *time.Location) time.Time {
	if last := daysIn(year, month, loc); day > last {
		day = last
	}
	return time.Date(year, month, day, hour, minute, 0, 0, loc)
}

// daysIn returns the number of days in a month. Day 0 of the following
// month normalizes to this month's last day.
func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

func weekdayIn(day time.Weekday, days []time.Weekday) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
