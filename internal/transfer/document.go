// Copyright (C) 2026 Headway Tools (dev@headway.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package transfer moves one problem aggregate between databases as a
// self-contained document. The field names and shapes below are a
// stable wire format: readers of the same major format_version must be
// able to parse documents written by any minor revision of it.
package transfer

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/mod/semver"

	"github.com/headway-tools/headway/internal/problem"
	"github.com/headway-tools/headway/internal/store"
)

// FormatVersion is the export format major version this build writes
// and accepts. Minor revisions within the same major stay readable.
const FormatVersion = "v1"

// docValidate checks the structural tags on Document trees.
// Initialized in init() so error messages use wire field names.
var docValidate *validator.Validate

func init() {
	docValidate = validator.New()
	docValidate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Document is one exported problem tree. Embedded ids are the exporting
// database's originals and are kept for traceability only; import
// assigns fresh ids and uses the embedded kpi ids solely to re-link
// progress logs.
type Document struct {
	FormatVersion string        `json:"format_version" yaml:"format_version" validate:"required"`
	DocumentID    string        `json:"document_id" yaml:"document_id"`
	ExportedDate  time.Time     `json:"exported_date" yaml:"exported_date"`
	Problem       ProblemRecord `json:"problem" yaml:"problem"`
	KPIs          []KPIRecord   `json:"kpis" yaml:"kpis" validate:"dive"`
	ActionSteps   []StepRecord  `json:"action_steps" yaml:"action_steps" validate:"dive"`
	ProgressLogs  []LogRecord   `json:"progress_logs" yaml:"progress_logs" validate:"dive"`
}

// ProblemRecord mirrors problem.Problem minus its child collections.
type ProblemRecord struct {
	ID          uint      `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title" validate:"required"`
	Description string    `json:"description" yaml:"description"`
	CreatedDate time.Time `json:"created_date" yaml:"created_date"`
	Status      string    `json:"status" yaml:"status" validate:"omitempty,oneof=active completed"`
}

// KPIRecord carries a KPI row. TargetValue stays a pointer so open-ended
// metrics export as an explicit null.
type KPIRecord struct {
	ID           uint     `json:"id" yaml:"id"`
	Description  string   `json:"description" yaml:"description" validate:"required"`
	TargetValue  *float64 `json:"target_value" yaml:"target_value"`
	CurrentValue float64  `json:"current_value" yaml:"current_value"`
}

// StepRecord carries an action step row.
type StepRecord struct {
	ID          uint   `json:"id" yaml:"id"`
	Description string `json:"description" yaml:"description" validate:"required"`
	Status      string `json:"status" yaml:"status" validate:"omitempty,oneof=pending completed"`
}

// LogRecord carries a progress log row. KPIID must name a kpi present
// in the same document.
type LogRecord struct {
	ID        uint      `json:"id" yaml:"id"`
	KPIID     uint      `json:"kpi_id" yaml:"kpi_id"`
	Value     float64   `json:"value" yaml:"value"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// Validate rejects documents this build cannot import safely. Every
// failure is a problem.ValidationError and guarantees nothing was
// written.
func (d *Document) Validate() error {
	if !semver.IsValid(d.FormatVersion) || semver.Major(d.FormatVersion) != FormatVersion {
		return problem.NewValidationError("format_version",
			fmt.Sprintf("unsupported %q, this build reads %s documents", d.FormatVersion, FormatVersion))
	}

	if err := docValidate.Struct(d); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			field := strings.TrimPrefix(fe.Namespace(), "Document.")
			return problem.NewValidationError(field, tagMessage(fe))
		}
		return problem.NewValidationError("document", err.Error())
	}

	// Logs re-link through kpi ids, so when logs exist those ids must
	// be present and unambiguous.
	known := make(map[uint]int, len(d.KPIs))
	for i, k := range d.KPIs {
		if j, dup := known[k.ID]; dup && len(d.ProgressLogs) > 0 {
			return problem.NewValidationError("kpis",
				fmt.Sprintf("kpis %d and %d share id %d, progress logs cannot be re-linked", j, i, k.ID))
		}
		known[k.ID] = i
	}
	for i, l := range d.ProgressLogs {
		if _, ok := known[l.KPIID]; !ok {
			return problem.NewValidationError("progress_logs",
				fmt.Sprintf("log %d references unknown kpi_id %d", i, l.KPIID))
		}
	}
	return nil
}

// tagMessage renders a single validator failure in plain language.
func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required field is missing or empty"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("failed %s check", fe.Tag())
	}
}

// bundle converts a validated document into the positional form the
// store inserts. Call only after Validate has passed.
func (d *Document) bundle() *store.ImportBundle {
	idx := make(map[uint]int, len(d.KPIs))
	kpis := make([]problem.KPI, len(d.KPIs))
	for i, k := range d.KPIs {
		idx[k.ID] = i
		kpis[i] = problem.KPI{
			Description:  k.Description,
			TargetValue:  k.TargetValue,
			CurrentValue: k.CurrentValue,
		}
	}

	steps := make([]problem.ActionStep, len(d.ActionSteps))
	for i, s := range d.ActionSteps {
		steps[i] = problem.ActionStep{Description: s.Description, Status: s.Status}
	}

	logs := make([]store.ImportLog, len(d.ProgressLogs))
	for i, l := range d.ProgressLogs {
		logs[i] = store.ImportLog{
			KPIIndex: idx[l.KPIID],
			Value:    l.Value,
			LoggedAt: l.Timestamp,
		}
	}

	return &store.ImportBundle{
		Problem: problem.Problem{
			Title:       d.Problem.Title,
			Description: d.Problem.Description,
			CreatedDate: d.Problem.CreatedDate,
			Status:      d.Problem.Status,
		},
		KPIs:  kpis,
		Steps: steps,
		Logs:  logs,
	}
}
