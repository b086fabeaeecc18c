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

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/headway-tools/headway/internal/advisor"
	"github.com/headway-tools/headway/internal/problem"
	"github.com/headway-tools/headway/pkg/ux"
)

// runNewCommand creates a problem, has the advisor frame it and propose
// KPIs and steps, and prints the resulting plan.
func runNewCommand(cmd *cobra.Command, args []string) {
	title := strings.TrimSpace(newTitle)
	description := strings.TrimSpace(newDescription)

	if title == "" || description == "" {
		if !ux.IsInteractive() {
			exitWithError("--title and --description are required when no terminal is attached", nil)
		}
		if err := promptNewProblem(&title, &description); err != nil {
			exitWithError("problem entry cancelled", err)
		}
	}

	st := openStore()
	defer st.Close()

	p, err := st.CreateProblem(&problem.NewProblemInput{
		Title:       title,
		Description: description,
	})
	if err != nil {
		exitWithError("could not create the problem", err)
	}

	adv, closeAdvisor := buildAdvisor()
	defer closeAdvisor()

	ctx, cancel := advisorContext()
	defer cancel()

	var framing string
	_ = ux.WithSpinner("Understanding your challenge...", func() error {
		var aiErr error
		framing, aiErr = adv.Empathize(ctx, p)
		return aiErr
	})
	if framing != "" {
		fmt.Println()
		ux.Box("Understanding Your Challenge", framing)
	}

	var kpis []advisor.KPISuggestion
	_ = ux.WithSpinner("Generating KPIs...", func() error {
		var aiErr error
		kpis, aiErr = adv.SuggestKPIs(ctx, p)
		return aiErr
	})
	for _, s := range kpis {
		in := &problem.NewKPIInput{ProblemID: p.ID, Description: s.Description}
		if s.TargetValue != 0 {
			target := s.TargetValue
			in.Target = &target
		}
		if _, err := st.AddKPI(in); err != nil {
			exitWithError("could not save a suggested KPI", err)
		}
	}

	var steps []string
	_ = ux.WithSpinner("Creating action plan...", func() error {
		var aiErr error
		steps, aiErr = adv.SuggestSteps(ctx, p, kpis)
		return aiErr
	})
	for _, desc := range steps {
		in := &problem.NewStepInput{ProblemID: p.ID, Description: desc}
		if _, err := st.AddStep(in); err != nil {
			exitWithError("could not save a suggested step", err)
		}
	}

	snap, err := loadSnapshot(st, p.ID)
	if err != nil {
		exitWithError("could not load the new problem", err)
	}
	fmt.Println()
	renderProblemDetail(snap)

	fmt.Println()
	ux.Success(fmt.Sprintf("Problem created with ID: %d", p.ID))
	ux.Muted(fmt.Sprintf("Log progress with 'headway update-kpi <kpi-id> <value>', or schedule a nudge: headway reminder-set %d --frequency daily --time 09:00", p.ID))
}

// promptNewProblem collects title and description through a form.
func promptNewProblem(title, description *string) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("What problem are you working on?").
				Placeholder("e.g. I keep missing my morning workouts").
				CharLimit(200).
				Value(title),
			huh.NewText().
				Title("Describe it").
				Placeholder("What is happening, and what would better look like?").
				CharLimit(4000).
				Value(description),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}
	*title = strings.TrimSpace(*title)
	*description = strings.TrimSpace(*description)
	return nil
}

// runListCommand prints problems filtered by status.
func runListCommand(cmd *cobra.Command, args []string) {
	status := strings.ToLower(strings.TrimSpace(listStatus))
	switch status {
	case problem.StatusActive, problem.StatusCompleted:
	case "all":
		status = ""
	default:
		exitWithError(fmt.Sprintf("invalid --status %q: expected active, completed, or all", listStatus), nil)
	}

	st := openStore()
	defer st.Close()

	problems, err := st.ListProblems(status)
	if err != nil {
		exitWithError("could not list problems", err)
	}

	if len(problems) == 0 {
		switch status {
		case problem.StatusActive:
			ux.Info("No active problems found. Create one with 'headway new'.")
		case problem.StatusCompleted:
			ux.Info("No completed problems yet.")
		default:
			ux.Info("No problems found. Create one with 'headway new'.")
		}
		return
	}

	renderProblemList(problems)

	if status == "" {
		var active, completed int
		for i := range problems {
			if problems[i].IsCompleted() {
				completed++
			} else {
				active++
			}
		}
		ux.Summary(active, completed, len(problems))
	}
}

// runViewCommand shows one problem in full, live when --watch is set.
func runViewCommand(cmd *cobra.Command, args []string) {
	id := parseID(args[0], "problem")

	if watchView {
		runWatchView(id) // Defined in watch_view.go
		return
	}

	st := openStore()
	defer st.Close()

	snap, err := loadSnapshot(st, id)
	if err != nil {
		exitWithError("could not load the problem", err)
	}
	renderProblemDetail(snap)
}

// runAnalyzeCommand prints KPI trends plus recommendations. The advisor
// degrades to the built-in rules when AI is off or unreachable, so this
// always produces advice.
func runAnalyzeCommand(cmd *cobra.Command, args []string) {
	id := parseID(args[0], "problem")

	st := openStore()
	defer st.Close()

	snap, err := loadSnapshot(st, id)
	if err != nil {
		exitWithError("could not load the problem", err)
	}

	machine := ux.GetPersonality().Level == ux.PersonalityMachine

	ux.Title(fmt.Sprintf("Progress Analysis: %s", snap.Problem.Title))

	if len(snap.KPIs) == 0 {
		ux.Info(fmt.Sprintf("No KPIs to analyze. Add one with 'headway add-kpi %d <description>'.", id))
		return
	}

	if machine {
		for _, r := range snap.KPIs {
			fmt.Printf("KPI\t%d\t%s\t%s\t%s\n",
				r.KPI.ID, r.KPI.Description, formatValue(r.KPI.CurrentValue), r.Trend)
		}
	} else {
		fmt.Println(kpiTable(snap.KPIs))
	}

	adv, closeAdvisor := buildAdvisor()
	defer closeAdvisor()

	ctx, cancel := advisorContext()
	defer cancel()

	var recs []string
	_ = ux.WithSpinner("Reviewing your progress...", func() error {
		var aiErr error
		recs, aiErr = adv.Recommend(ctx, snap)
		return aiErr
	})

	fmt.Println()
	ux.Title("Recommendations")
	for _, rec := range recs {
		if machine {
			fmt.Printf("REC\t%s\n", rec)
		} else {
			ux.StatusLine(ux.IconBullet, rec, "")
		}
	}
}

// runCompleteCommand marks a problem completed.
func runCompleteCommand(cmd *cobra.Command, args []string) {
	id := parseID(args[0], "problem")

	st := openStore()
	defer st.Close()

	p, err := st.GetProblem(id)
	if err != nil {
		exitWithError("could not load the problem", err)
	}
	if err := st.CompleteProblem(id); err != nil {
		exitWithError("could not complete the problem", err)
	}
	ux.Success(fmt.Sprintf("Marked problem '%s' as completed! Congratulations!", p.Title))
}

// runReactivateCommand reopens a completed problem.
func runReactivateCommand(cmd *cobra.Command, args []string) {
	id := parseID(args[0], "problem")

	st := openStore()
	defer st.Close()

	p, err := st.GetProblem(id)
	if err != nil {
		exitWithError("could not load the problem", err)
	}
	if err := st.ReactivateProblem(id); err != nil {
		exitWithError("could not reactivate the problem", err)
	}
	ux.Success(fmt.Sprintf("Reactivated problem '%s'", p.Title))
}

func runVersionCommand(cmd *cobra.Command, args []string) {
	if ux.GetPersonality().Level == ux.PersonalityMachine {
		fmt.Println(appVersion)
		return
	}
	fmt.Printf("Headway %s\n", appVersion)
	ux.Muted("Personal problem-solving tracker")
}
