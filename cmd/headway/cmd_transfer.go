// Copyright (C) 2026 Headway Tools (dev@headway.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/headway-tools/headway/internal/problem"
	"github.com/headway-tools/headway/internal/tasksource"
	"github.com/headway-tools/headway/internal/transfer"
	"github.com/headway-tools/headway/pkg/ux"
)

// runExportCommand writes one problem, history included, to a portable
// document. Reminders stay behind; they are host-local schedules.
func runExportCommand(cmd *cobra.Command, args []string) {
	id := parseID(args[0], "problem")
	format := parseTransferFormat(exportFormat)

	st := openStore()
	defer st.Close()

	p, err := st.GetProblem(id)
	if err != nil {
		exitWithError("could not load the problem", err)
	}
	logs, err := st.ListLogsForProblem(id)
	if err != nil {
		exitWithError("could not load the progress history", err)
	}
	p.Logs = logs

	path := strings.TrimSpace(outputFile)
	if path == "" {
		ext := "json"
		if format == transfer.FormatYAML {
			ext = "yaml"
		}
		path = fmt.Sprintf("problem_%d.%s", id, ext)
	}

	doc := transfer.Export(p)
	if err := transfer.WriteFile(path, doc, format); err != nil {
		exitWithError("could not write the export file", err)
	}
	ux.Success(fmt.Sprintf("Problem data exported to %s", path))
}

// runImportProblemCommand restores a problem from an export document.
// The database is backed up first and the document gets fresh ids, so
// importing a file twice yields two independent problems.
func runImportProblemCommand(cmd *cobra.Command, args []string) {
	path := args[0]
	format := parseTransferFormat(importFormat)

	st := openStore()
	defer st.Close()

	var res *transfer.ImportResult
	err := ux.WithSpinner("Importing problem...", func() error {
		var impErr error
		res, impErr = transfer.Import(st, path, format)
		return impErr
	})
	if err != nil {
		exitWithError("import failed", err)
	}

	if res.BackupPath != "" {
		ux.Muted(fmt.Sprintf("Database backed up to %s", res.BackupPath))
	}
	ux.Success(fmt.Sprintf("Problem imported successfully with ID: %d", res.Problem.ID))
}

// runImportTasksCommand reads a task file and adds each line as a
// pending step, skipping lines that match an existing step exactly.
func runImportTasksCommand(cmd *cobra.Command, args []string) {
	problemID := parseID(args[0], "problem")

	st := openStore()
	defer st.Close()

	p, err := st.GetProblem(problemID)
	if err != nil {
		exitWithError("could not load the problem", err)
	}

	src := tasksource.NewFileSource(tasksFile)
	candidates, err := src.Tasks(context.Background())
	if err != nil {
		exitWithError("could not read the task file", err)
	}
	if len(candidates) == 0 {
		ux.Info("No tasks found in the file.")
		return
	}

	existing := make(map[string]bool, len(p.Steps))
	for _, s := range p.Steps {
		existing[s.Description] = true
	}

	var added, skipped int
	for _, desc := range candidates {
		if existing[desc] {
			skipped++
			continue
		}
		if _, err := st.AddStep(&problem.NewStepInput{ProblemID: problemID, Description: desc}); err != nil {
			exitWithError(fmt.Sprintf("could not add task %q", desc), err)
		}
		existing[desc] = true
		added++
	}

	ux.Success(fmt.Sprintf("Imported %d tasks as pending steps for '%s'", added, p.Title))
	if skipped > 0 {
		ux.Muted(fmt.Sprintf("Skipped %d duplicates", skipped))
	}
}

// parseTransferFormat maps the --format flag to a transfer format.
func parseTransferFormat(s string) transfer.Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return transfer.FormatAuto
	case "json":
		return transfer.FormatJSON
	case "yaml", "yml":
		return transfer.FormatYAML
	default:
		exitWithError(fmt.Sprintf("unsupported format %q: expected json, yaml, or auto", s), nil)
		return transfer.FormatAuto // unreachable
	}
}
