// Copyright (C) 2026 Headway Tools (dev@headway.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package validation provides input validation utilities for user-provided values.
//
// This package contains validators for reminder schedule fields that end up in
// the database and in subprocess calls (notification helpers). Validating here
// keeps schedule math in internal/remind free of parse/normalize concerns.
package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// timeOfDayPattern matches a 24-hour "HH:MM" clock time.
// Allows: 00:00 through 23:59. Single-digit hours must be zero padded.
var timeOfDayPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// weekdayNames maps the accepted three-letter names to time.Weekday.
// Matching is case-insensitive; full names ("monday") are also accepted.
var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

// shortNames renders a time.Weekday back to its canonical three-letter form.
var shortNames = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// ValidateTimeOfDay validates a 24-hour "HH:MM" clock time.
//
// Valid values:
//   - Zero-padded hours 00-23
//   - Minutes 00-59
//
// Returns an error if the value is malformed or out of range.
//
// Example:
//
//	if err := validation.ValidateTimeOfDay(timeFlag); err != nil {
//	    return fmt.Errorf("invalid --time: %w", err)
//	}
func ValidateTimeOfDay(v string) error {
	if v == "" {
		return fmt.Errorf("time of day cannot be empty")
	}

	if !timeOfDayPattern.MatchString(v) {
		return fmt.Errorf("invalid time of day: %q (expected 24-hour HH:MM, e.g. 09:00 or 17:30)", v)
	}

	return nil
}

// ParseTimeOfDay validates and splits an "HH:MM" value into hour and minute.
func ParseTimeOfDay(v string) (hour, minute int, err error) {
	if err := ValidateTimeOfDay(v); err != nil {
		return 0, 0, err
	}

	parts := strings.SplitN(v, ":", 2)
	hour, _ = strconv.Atoi(parts[0])
	minute, _ = strconv.Atoi(parts[1])
	return hour, minute, nil
}

// ParseWeekdays parses a comma-separated weekday list such as "Mon,Wed,Fri".
//
// Names are case-insensitive and may be three-letter or full ("tue" or
// "Tuesday"). Duplicates collapse. The returned slice is sorted Sunday
// first to keep persisted values canonical. Returns an error listing every
// name that failed to parse.
//
// Example:
//
//	days, err := validation.ParseWeekdays("Mon,Wed,Fri")
//	if err != nil {
//	    return fmt.Errorf("invalid --days: %w", err)
//	}
func ParseWeekdays(csv string) ([]time.Weekday, error) {
	if strings.TrimSpace(csv) == "" {
		return nil, fmt.Errorf("weekday list cannot be empty")
	}

	seen := map[time.Weekday]bool{}
	var invalid []string
	for _, raw := range strings.Split(csv, ",") {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		day, ok := weekdayNames[name]
		if !ok {
			invalid = append(invalid, raw)
			continue
		}
		seen[day] = true
	}

	if len(invalid) > 0 {
		return nil, fmt.Errorf("invalid weekdays: %v (use Mon,Tue,Wed,Thu,Fri,Sat,Sun)", invalid)
	}
	if len(seen) == 0 {
		return nil, fmt.Errorf("weekday list cannot be empty")
	}

	var days []time.Weekday
	for d := time.Sunday; d <= time.Saturday; d++ {
		if seen[d] {
			days = append(days, d)
		}
	}
	return days, nil
}

// FormatWeekdays renders a weekday slice back to the canonical CSV form
// used in the database and in export documents.
func FormatWeekdays(days []time.Weekday) string {
	names := make([]string, 0, len(days))
	for _, d := range days {
		names = append(names, shortNames[int(d)%7])
	}
	return strings.Join(names, ",")
}

// ValidateDayOfMonth validates a monthly-reminder day.
//
// Values 1-31 are accepted; days past the end of a short month are clamped
// at fire time, not rejected here.
func ValidateDayOfMonth(day int) error {
	if day < 1 || day > 31 {
		return fmt.Errorf("invalid day of month: %d (must be 1-31)", day)
	}
	return nil
}
