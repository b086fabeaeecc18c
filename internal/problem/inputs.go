// Copyright (C) 2026 Headway Tools (dev@headway.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package problem

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/headway-tools/headway/pkg/validation"
)

// Length bounds for free-text fields. The validate tags below mirror these
// values; validator tags cannot reference constants.
const (
	// MaxTitleLength bounds problem titles so list output stays readable.
	MaxTitleLength = 200

	// MaxDescriptionLength bounds descriptions. Large enough for a
	// paragraph, small enough to keep advisor prompts cheap.
	MaxDescriptionLength = 4000
)

// inputValidate is the validator instance for domain inputs.
// Initialized in init() with custom validators.
var inputValidate *validator.Validate

func init() {
	inputValidate = validator.New()

	_ = inputValidate.RegisterValidation("timeofday", validateTimeOfDay)
	_ = inputValidate.RegisterValidation("weekdays", validateWeekdays)
}

// validateTimeOfDay accepts 24-hour "HH:MM" strings.
func validateTimeOfDay(fl validator.FieldLevel) bool {
	return validation.ValidateTimeOfDay(fl.Field().String()) == nil
}

// validateWeekdays accepts comma-separated weekday names ("Mon,Wed,Fri").
func validateWeekdays(fl validator.FieldLevel) bool {
	_, err := validation.ParseWeekdays(fl.Field().String())
	return err == nil
}

// =============================================================================
// Input Types
// =============================================================================

// NewProblemInput carries the fields needed to create a problem.
type NewProblemInput struct {
	Title       string `validate:"required,max=200"`
	Description string `validate:"required,max=4000"`
}

// Validate checks the input and returns a ValidationError on failure.
func (in *NewProblemInput) Validate() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	return asValidationError(inputValidate.Struct(in))
}

// NewKPIInput carries the fields needed to attach a KPI to a problem.
// Target is nil for open-ended metrics.
type NewKPIInput struct {
	ProblemID   uint     `validate:"required"`
	Description string   `validate:"required,max=4000"`
	Target      *float64 `validate:"-"`
}

// Validate checks the input and returns a ValidationError on failure.
func (in *NewKPIInput) Validate() error {
	in.Description = strings.TrimSpace(in.Description)
	return asValidationError(inputValidate.Struct(in))
}

// NewStepInput carries the fields needed to attach an action step.
type NewStepInput struct {
	ProblemID   uint   `validate:"required"`
	Description string `validate:"required,max=4000"`
}

// Validate checks the input and returns a ValidationError on failure.
func (in *NewStepInput) Validate() error {
	in.Description = strings.TrimSpace(in.Description)
	return asValidationError(inputValidate.Struct(in))
}

// UpdateKPIInput carries a KPI value update. Any finite value is accepted;
// KPIs are monotonic by convention only.
type UpdateKPIInput struct {
	KPIID uint    `validate:"required"`
	Value float64 `validate:"-"`
}

// Validate checks the input and returns a ValidationError on failure.
func (in *UpdateKPIInput) Validate() error {
	return asValidationError(inputValidate.Struct(in))
}

// ReminderInput carries a reminder schedule definition.
type ReminderInput struct {
	ProblemID  uint   `validate:"required"`
	Frequency  string `validate:"required,oneof=daily weekly monthly"`
	TimeOfDay  string `validate:"required,timeofday"`
	Weekdays   string `validate:"omitempty,weekdays"`
	DayOfMonth int    `validate:"omitempty,min=1,max=31"`
}

// Validate checks the schedule, including the cross-field rules: weekly
// reminders need weekdays, monthly reminders need a day of month, and
// neither detail is accepted for frequencies that do not use it.
func (in *ReminderInput) Validate() error {
	in.Frequency = strings.ToLower(strings.TrimSpace(in.Frequency))
	in.Weekdays = strings.TrimSpace(in.Weekdays)

	if err := asValidationError(inputValidate.Struct(in)); err != nil {
		return err
	}

	if in.Frequency == FrequencyWeekly && in.Weekdays == "" {
		return NewValidationError("weekdays", "weekly reminders require --days, e.g. \"Mon,Wed,Fri\"")
	}
	if in.Frequency == FrequencyMonthly && in.DayOfMonth == 0 {
		return NewValidationError("day_of_month", "monthly reminders require --day-of-month (1-31)")
	}
	if in.Frequency != FrequencyWeekly && in.Weekdays != "" {
		return NewValidationError("weekdays", fmt.Sprintf("--days is only valid for weekly reminders, not %s", in.Frequency))
	}
	if in.Frequency != FrequencyMonthly && in.DayOfMonth != 0 {
		return NewValidationError("day_of_month", fmt.Sprintf("--day-of-month is only valid for monthly reminders, not %s", in.Frequency))
	}

	// Canonicalize weekday spelling so "monday,WED" stores as "Mon,Wed".
	if in.Weekdays != "" {
		days, err := validation.ParseWeekdays(in.Weekdays)
		if err != nil {
			return NewValidationError("weekdays", err.Error())
		}
		in.Weekdays = validation.FormatWeekdays(days)
	}

	return nil
}

// asValidationError converts validator/v10 failures into the domain
// ValidationError, keeping the first failing field.
func asValidationError(err error) error {
	if err == nil {
		return nil
	}
	if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return NewValidationError(fieldName(fe.Field()), tagMessage(fe))
	}
	return NewValidationError("", err.Error())
}

// fieldName converts Go field names to the snake_case users see in flags
// and export documents.
func fieldName(name string) string {
	switch name {
	case "ProblemID":
		return "problem_id"
	case "KPIID":
		return "kpi_id"
	case "TimeOfDay":
		return "time"
	case "DayOfMonth":
		return "day_of_month"
	default:
		return strings.ToLower(name)
	}
}

// tagMessage renders a human-readable message for a failed validation tag.
func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "must not be empty"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "timeofday":
		return "must be HH:MM in 24-hour format, e.g. 09:30"
	case "weekdays":
		return "must be comma-separated weekday names, e.g. \"Mon,Wed,Fri\""
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
