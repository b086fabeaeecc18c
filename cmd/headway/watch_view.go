// Copyright (C) 2026 Headway Tools (dev@headway.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/headway-tools/headway/internal/progress"
	"github.com/headway-tools/headway/internal/store"
	"github.com/headway-tools/headway/pkg/ux"
)

// watchInterval is the refresh cadence of the live view. Two seconds
// keeps a second terminal's updates visible without hammering SQLite.
const watchInterval = 2 * time.Second

// watchTickMsg schedules the next reload.
type watchTickMsg time.Time

// watchDataMsg carries a reloaded snapshot into the event loop.
type watchDataMsg struct {
	snap *progress.Snapshot
	err  error
}

// watchModel is the bubbletea model behind 'headway view --watch'. It
// rerenders the problem detail every tick so KPI updates made in
// another terminal show up live.
type watchModel struct {
	st        *store.Store
	problemID uint

	snap      *progress.Snapshot
	loadErr   error
	refreshed time.Time

	spin     spinner.Model
	width    int
	quitting bool
}

func newWatchModel(st *store.Store, problemID uint) watchModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = watchSpinnerStyle
	return watchModel{st: st, problemID: problemID, spin: sp}
}

// Init implements tea.Model.
func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.fetch())
}

// fetch reloads the snapshot off the event loop.
func (m watchModel) fetch() tea.Cmd {
	st, id := m.st, m.problemID
	return func() tea.Msg {
		snap, err := loadSnapshot(st, id)
		return watchDataMsg{snap: snap, err: err}
	}
}

func nextWatchTick() tea.Cmd {
	return tea.Tick(watchInterval, func(t time.Time) tea.Msg {
		return watchTickMsg(t)
	})
}

// Update implements tea.Model.
func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			return m, m.fetch()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case watchDataMsg:
		// A failed reload keeps the last good snapshot on screen and
		// surfaces the error in the footer.
		m.loadErr = msg.err
		if msg.err == nil {
			m.snap = msg.snap
			m.refreshed = time.Now()
		}
		return m, nextWatchTick()

	case watchTickMsg:
		return m, m.fetch()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m watchModel) View() string {
	if m.quitting {
		return ""
	}
	if m.snap == nil {
		return fmt.Sprintf("\n %s Loading problem %d...\n", m.spin.View(), m.problemID)
	}

	snap := m.snap
	var b strings.Builder

	badge := watchActiveBadge.Render("● active")
	if snap.Problem.Status == "completed" {
		badge = watchDoneBadge.Render("✓ completed")
	}
	b.WriteString(watchTitleStyle.Render(fmt.Sprintf("Problem #%d: %s", snap.Problem.ID, snap.Problem.Title)))
	b.WriteString("  ")
	b.WriteString(badge)
	b.WriteString("\n")
	b.WriteString(watchMetaStyle.Render(fmt.Sprintf("%s Refreshed %s, every %s",
		m.spin.View(), m.refreshed.Format("15:04:05"), watchInterval)))
	b.WriteString("\n\n")

	if desc := strings.TrimSpace(snap.Problem.Description); desc != "" {
		b.WriteString(watchDescStyle.Render(desc))
		b.WriteString("\n\n")
	}

	b.WriteString(watchSectionStyle.Render("Key Performance Indicators"))
	b.WriteString("\n")
	if len(snap.KPIs) == 0 {
		b.WriteString(watchMetaStyle.Render("No KPIs yet."))
		b.WriteString("\n")
	} else {
		b.WriteString(kpiTable(snap.KPIs))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(watchSectionStyle.Render("Action Steps"))
	b.WriteString("\n")
	if len(snap.Steps) == 0 {
		b.WriteString(watchMetaStyle.Render("No action steps yet."))
		b.WriteString("\n")
	} else {
		b.WriteString(stepTable(snap.Steps))
		b.WriteString("\n")
		done := len(snap.Steps) - snap.PendingSteps
		b.WriteString(fmt.Sprintf("Steps completed: %s\n", ux.ProgressBar(done, len(snap.Steps), 20)))
	}
	b.WriteString("\n")

	if m.loadErr != nil {
		b.WriteString(watchErrorStyle.Render(fmt.Sprintf("refresh failed: %v", m.loadErr)))
		b.WriteString("\n")
	}
	b.WriteString(watchFooterStyle.Render("q quit · r refresh now"))
	b.WriteString("\n")
	return b.String()
}

// runWatchView owns its store handle because the TUI outlives the
// normal handler flow. A bad ID fails fast before the screen is taken
// over.
func runWatchView(problemID uint) {
	if !ux.IsInteractive() {
		exitWithError("--watch needs a terminal; use 'headway view' for one-shot output", nil)
	}

	st := openStore()
	defer st.Close()

	if _, err := st.GetProblem(problemID); err != nil {
		exitWithError("could not load the problem", err)
	}

	appLogger.Debug("watch view started", "problem_id", problemID)
	prog := tea.NewProgram(newWatchModel(st, problemID), tea.WithAltScreen())
	if _, err := prog.Run(); err != nil {
		exitWithError("watch view failed", err)
	}
	ux.Muted(fmt.Sprintf("Stopped watching problem %d.", problemID))
}

var (
	watchTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ux.ColorGreenBright)

	watchSectionStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ux.ColorGreenPrimary)

	watchDescStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	watchMetaStyle = lipgloss.NewStyle().
			Foreground(ux.ColorStone)

	watchErrorStyle = lipgloss.NewStyle().
			Foreground(ux.ColorError)

	watchFooterStyle = lipgloss.NewStyle().
				Foreground(ux.ColorStone).
				Italic(true)

	watchSpinnerStyle = lipgloss.NewStyle().
				Foreground(ux.ColorGreenBright)

	watchActiveBadge = lipgloss.NewStyle().
				Foreground(ux.ColorSuccess)

	watchDoneBadge = lipgloss.NewStyle().
			Foreground(ux.ColorStone)
)
