// Copyright (C) 2026 Headway Tools (dev@headway.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package transfer

import (
	"time"

	"github.com/google/uuid"

	"github.com/headway-tools/headway/internal/problem"
)

// Export snapshots a fully loaded problem into a document. The caller
// is expected to pass an aggregate with KPIs, Steps, and Logs preloaded;
// reminders are host-local schedules and never travel.
func Export(p *problem.Problem) *Document {
	doc := &Document{
		FormatVersion: FormatVersion,
		DocumentID:    uuid.NewString(),
		ExportedDate:  time.Now(),
		Problem: ProblemRecord{
			ID:          p.ID,
			Title:       p.Title,
			Description: p.Description,
			CreatedDate: p.CreatedDate,
			Status:      p.Status,
		},
		KPIs:         make([]KPIRecord, 0, len(p.KPIs)),
		ActionSteps:  make([]StepRecord, 0, len(p.Steps)),
		ProgressLogs: make([]LogRecord, 0, len(p.Logs)),
	}

	for _, k := range p.KPIs {
		doc.KPIs = append(doc.KPIs, KPIRecord{
			ID:           k.ID,
			Description:  k.Description,
			TargetValue:  k.TargetValue,
			CurrentValue: k.CurrentValue,
		})
	}
	for _, s := range p.Steps {
		doc.ActionSteps = append(doc.ActionSteps, StepRecord{
			ID:          s.ID,
			Description: s.Description,
			Status:      s.Status,
		})
	}
	for _, l := range p.Logs {
		doc.ProgressLogs = append(doc.ProgressLogs, LogRecord{
			ID:        l.ID,
			KPIID:     l.KPIID,
			Value:     l.Value,
			Timestamp: l.LoggedAt,
		})
	}

	return doc
}
