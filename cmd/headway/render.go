// Copyright (C) 2026 Headway Tools (dev@headway.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/headway-tools/headway/internal/problem"
	"github.com/headway-tools/headway/internal/progress"
	"github.com/headway-tools/headway/pkg/ux"
)

// renderProblemDetail prints the full problem view: overview box, KPI
// table with derived figures, action steps, and the step progress bar.
func renderProblemDetail(snap *progress.Snapshot) {
	if ux.GetPersonality().Level == ux.PersonalityMachine {
		renderProblemMachine(snap)
		return
	}

	p := snap.Problem
	status := p.Status
	if p.IsCompleted() {
		status = ux.Styles.Success.Render(p.Status)
	}
	overview := fmt.Sprintf("%s\n\n%s %s    %s %s",
		p.Description,
		ux.Styles.Muted.Render("Status:"), status,
		ux.Styles.Muted.Render("Created:"), p.CreatedDate.Format("2006-01-02"))
	ux.Box(fmt.Sprintf("Problem #%d: %s", p.ID, p.Title), overview)

	if len(snap.KPIs) > 0 {
		fmt.Println()
		ux.Title("Key Performance Indicators")
		fmt.Println(kpiTable(snap.KPIs))
	}

	if len(snap.Steps) > 0 {
		fmt.Println()
		ux.Title("Action Steps")
		fmt.Println(stepTable(snap.Steps))

		done := len(snap.Steps) - snap.PendingSteps
		fmt.Printf("\nSteps completed: %s\n", ux.ProgressBar(done, len(snap.Steps), 20))
	}
}

// renderProblemMachine prints the tab-separated form scripts can cut.
func renderProblemMachine(snap *progress.Snapshot) {
	p := snap.Problem
	fmt.Printf("PROBLEM\t%d\t%s\t%s\n", p.ID, p.Status, p.Title)
	for _, r := range snap.KPIs {
		percent := "NA"
		if r.HasPercent {
			percent = fmt.Sprintf("%.1f", r.Percent)
		}
		fmt.Printf("KPI\t%d\t%s\t%s\t%s\t%s\t%s\n",
			r.KPI.ID, r.KPI.Description, formatValue(r.KPI.CurrentValue),
			formatTarget(r.KPI.TargetValue), percent, r.Trend)
	}
	for _, s := range snap.Steps {
		fmt.Printf("STEP\t%d\t%s\t%s\n", s.ID, s.Status, s.Description)
	}
}

// renderProblemList prints the problem summary table.
func renderProblemList(problems []problem.Problem) {
	if ux.GetPersonality().Level == ux.PersonalityMachine {
		for _, p := range problems {
			fmt.Printf("%d\t%s\t%s\t%s\n",
				p.ID, p.Status, p.CreatedDate.Format("2006-01-02"), p.Title)
		}
		return
	}

	t := styledTable("ID", "Title", "Status", "Created")
	for _, p := range problems {
		status := p.Status
		if p.IsCompleted() {
			status = ux.Styles.Success.Render(status)
		}
		t.Row(strconv.FormatUint(uint64(p.ID), 10), p.Title, status,
			p.CreatedDate.Format("2006-01-02"))
	}
	fmt.Println(t.Render())
}

// renderReminderList prints reminders with their human-readable
// schedules. titles maps problem id to title for display.
func renderReminderList(reminders []problem.Reminder, titles map[uint]string) {
	if ux.GetPersonality().Level == ux.PersonalityMachine {
		for i := range reminders {
			r := &reminders[i]
			fmt.Printf("%d\t%d\t%s\t%t\t%s\n",
				r.ID, r.ProblemID, formatSchedule(r), r.Enabled, lastFiredLabel(r))
		}
		return
	}

	t := styledTable("ID", "Problem", "Schedule", "Status", "Last Fired")
	for i := range reminders {
		r := &reminders[i]
		title := titles[r.ProblemID]
		if title == "" {
			title = fmt.Sprintf("#%d", r.ProblemID)
		}
		status := ux.Styles.Muted.Render("disabled")
		if r.Enabled {
			status = ux.Styles.Success.Render("enabled")
		}
		t.Row(strconv.FormatUint(uint64(r.ID), 10), title, formatSchedule(r),
			status, lastFiredLabel(r))
	}
	fmt.Println(t.Render())
}

func kpiTable(reports []progress.KPIReport) string {
	t := styledTable("ID", "KPI", "Target", "Current", "Progress", "Trend")
	for _, r := range reports {
		percent := "N/A"
		if r.HasPercent {
			percent = fmt.Sprintf("%.1f%%", r.Percent)
		}
		t.Row(
			strconv.FormatUint(uint64(r.KPI.ID), 10),
			r.KPI.Description,
			formatTarget(r.KPI.TargetValue),
			formatValue(r.KPI.CurrentValue),
			percent,
			trendLabel(r.Trend),
		)
	}
	return t.Render()
}

func stepTable(steps []problem.ActionStep) string {
	t := styledTable("ID", "Step", "Status")
	for _, s := range steps {
		status := ux.Styles.Muted.Render(string(ux.IconPending) + " " + s.Status)
		if s.Status == problem.StepCompleted {
			status = ux.Styles.Success.Render(string(ux.IconSuccess) + " " + s.Status)
		}
		t.Row(strconv.FormatUint(uint64(s.ID), 10), s.Description, status)
	}
	return t.Render()
}

// styledTable returns a table with the headway border and header look.
func styledTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(ux.Styles.Muted).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		}).
		Headers(headers...)
}

// formatValue renders a float without trailing zeros: 90, not 90.000.
func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatTarget renders a KPI target, "-" for open-ended metrics.
func formatTarget(t *float64) string {
	if t == nil {
		return "-"
	}
	return formatValue(*t)
}

// trendLabel renders a trend with its direction arrow. Unknown reads
// as "insufficient data" since that is what it means to the user.
func trendLabel(t progress.Trend) string {
	switch t {
	case progress.TrendImproving:
		return ux.Styles.Success.Render(string(ux.IconTrendUp) + " improving")
	case progress.TrendDeclining:
		return ux.Styles.Error.Render(string(ux.IconTrendDown) + " declining")
	case progress.TrendStable:
		return string(ux.IconTrendFlat) + " stable"
	default:
		return ux.Styles.Muted.Render("insufficient data")
	}
}

// formatSchedule renders a reminder schedule the way humans say it:
// "Daily at 09:00", "Weekly on Mon,Wed at 18:30", "Monthly on day 1
// at 09:00".
func formatSchedule(r *problem.Reminder) string {
	switch r.Frequency {
	case problem.FrequencyWeekly:
		return fmt.Sprintf("Weekly on %s at %s", r.Weekdays, r.TimeOfDay)
	case problem.FrequencyMonthly:
		return fmt.Sprintf("Monthly on day %d at %s", r.DayOfMonth, r.TimeOfDay)
	default:
		return fmt.Sprintf("Daily at %s", r.TimeOfDay)
	}
}

func lastFiredLabel(r *problem.Reminder) string {
	if r.LastFired == nil {
		return "never"
	}
	return r.LastFired.Format("2006-01-02 15:04")
}

// Table styles
var (
	tableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ux.ColorGreenBright).
				Padding(0, 1)

	tableCellStyle = lipgloss.NewStyle().Padding(0, 1)
)
