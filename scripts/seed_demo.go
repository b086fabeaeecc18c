// Copyright (C) 2026 Headway Tools (dev@headway.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

//go:build ignore

// seed_demo fills a throwaway database with a realistic problem so
// rendering changes can be eyeballed without typing data in first.
//
// Usage:
//
//	go run scripts/seed_demo.go [db-path]
//
// The default path is ./headway-demo.db. Point the CLI at it afterwards:
//
//	HEADWAY_DB_PATH=./headway-demo.db go run ./cmd/headway list
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/headway-tools/headway/internal/problem"
	"github.com/headway-tools/headway/internal/store"
	"github.com/headway-tools/headway/pkg/logging"
)

func main() {
	path := "headway-demo.db"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	logger := logging.New(logging.Config{
		Level:   logging.LevelWarn,
		Service: "seed-demo",
		Quiet:   false,
	})
	st, err := store.Open(store.Config{Path: path, Logger: logger})
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer st.Close()

	p, err := st.CreateProblem(&problem.NewProblemInput{
		Title:       "Improve sleep quality",
		Description: "Averaging 5.5 hours on weeknights and waking up tired. Doomscrolling until past midnight most days.",
	})
	if err != nil {
		log.Fatalf("create problem: %v", err)
	}

	hoursTarget := 8.0
	hours, err := st.AddKPI(&problem.NewKPIInput{
		ProblemID:   p.ID,
		Description: "Hours of sleep per night",
		Target:      &hoursTarget,
	})
	if err != nil {
		log.Fatalf("add kpi: %v", err)
	}
	wakeups, err := st.AddKPI(&problem.NewKPIInput{
		ProblemID:   p.ID,
		Description: "Times waking up during the night",
	})
	if err != nil {
		log.Fatalf("add kpi: %v", err)
	}

	stepDescriptions := []string{
		"Set a phone curfew at 22:30",
		"Move the charger out of the bedroom",
		"No caffeine after 14:00",
		"Track bedtime for two weeks",
	}
	var firstStep *problem.ActionStep
	for _, desc := range stepDescriptions {
		step, err := st.AddStep(&problem.NewStepInput{ProblemID: p.ID, Description: desc})
		if err != nil {
			log.Fatalf("add step: %v", err)
		}
		if firstStep == nil {
			firstStep = step
		}
	}
	if err := st.CompleteStep(firstStep.ID); err != nil {
		log.Fatalf("complete step: %v", err)
	}

	// Enough history for a moving average on the first KPI, a single
	// point on the second so the view shows an unknown trend too.
	for _, v := range []float64{5.5, 6, 6.25, 6, 6.75, 7} {
		if _, err := st.UpdateKPIValue(&problem.UpdateKPIInput{KPIID: hours.ID, Value: v}); err != nil {
			log.Fatalf("log value: %v", err)
		}
	}
	if _, err := st.UpdateKPIValue(&problem.UpdateKPIInput{KPIID: wakeups.ID, Value: 3}); err != nil {
		log.Fatalf("log value: %v", err)
	}

	reminder, err := st.AddReminder(&problem.ReminderInput{
		ProblemID: p.ID,
		Frequency: problem.FrequencyDaily,
		TimeOfDay: "21:30",
	})
	if err != nil {
		log.Fatalf("add reminder: %v", err)
	}

	fmt.Printf("Seeded %s\n", path)
	fmt.Printf("  problem  %d: %s\n", p.ID, p.Title)
	fmt.Printf("  kpis     %d, %d\n", hours.ID, wakeups.ID)
	fmt.Printf("  reminder %d (daily 21:30)\n", reminder.ID)
	fmt.Printf("\nBrowse it with:\n  HEADWAY_DB_PATH=%s go run ./cmd/headway view %d\n", path, p.ID)
}
