// Copyright (C) 2026 Headway Tools (dev@headway.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/headway-tools/headway/cmd/headway/config"
	"github.com/headway-tools/headway/pkg/ux"
)

var (
	// Flag variables used by the command handlers.
	personalityLevel string

	newTitle       string
	newDescription string

	listStatus string

	watchView bool

	kpiTarget float64

	outputFile   string
	exportFormat string
	importFormat string

	tasksFile string

	reminderFrequency  string
	reminderTime       string
	reminderDays       string
	reminderDayOfMonth int
	showHistory        bool
	runOnce            bool

	cfgShow        bool
	cfgModel       string
	cfgProvider    string
	cfgUseAI       bool
	cfgMaxTokens   int
	cfgWindow      int
	cfgPersonality string
	cfgSetAPIKey   bool
	cfgClearAPIKey bool

	rootCmd = &cobra.Command{
		Use:   "headway",
		Short: "Track problems, KPIs, and progress from the terminal",
		Long: `Headway is a personal problem-solving tracker.

Describe a challenge and Headway frames it, proposes measurable KPIs
and an action plan, then keeps score: log KPI values, tick off steps,
watch trends, and let the reminder daemon nudge you when an update
is due.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if err := config.Load(); err != nil {
				fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
				fmt.Fprintf(os.Stderr, "Fix or delete %s and re-run.\n", config.DefaultConfigPath())
				os.Exit(1)
			}
			initAppLogger()
			switch {
			case personalityLevel != "":
				ux.SetPersonalityLevel(ux.ParsePersonalityLevel(personalityLevel))
			case config.Global().Personality != "":
				ux.SetPersonalityLevel(ux.ParsePersonalityLevel(config.Global().Personality))
			default:
				ux.InitPersonality()
			}
		},
	}

	newCmd = &cobra.Command{
		Use:   "new",
		Short: "Describe a new problem and build its KPI and action plan",
		Args:  cobra.NoArgs,
		Run:   runNewCommand, // Defined in cmd_problems.go
	}

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "List tracked problems",
		Args:  cobra.NoArgs,
		Run:   runListCommand, // Defined in cmd_problems.go
	}

	viewCmd = &cobra.Command{
		Use:   "view [problem-id]",
		Short: "Show a problem with its KPIs, steps, and progress",
		Args:  cobra.ExactArgs(1),
		Run:   runViewCommand, // Defined in cmd_problems.go
	}

	analyzeCmd = &cobra.Command{
		Use:   "analyze [problem-id]",
		Short: "Analyze KPI trends and get recommendations",
		Args:  cobra.ExactArgs(1),
		Run:   runAnalyzeCommand, // Defined in cmd_problems.go
	}

	completeCmd = &cobra.Command{
		Use:   "complete [problem-id]",
		Short: "Mark a problem as completed",
		Args:  cobra.ExactArgs(1),
		Run:   runCompleteCommand, // Defined in cmd_problems.go
	}

	reactivateCmd = &cobra.Command{
		Use:   "reactivate [problem-id]",
		Short: "Reopen a completed problem",
		Args:  cobra.ExactArgs(1),
		Run:   runReactivateCommand, // Defined in cmd_problems.go
	}

	updateKPICmd = &cobra.Command{
		Use:   "update-kpi [kpi-id] [value]",
		Short: "Record a new value for a KPI",
		Args:  cobra.ExactArgs(2),
		Run:   runUpdateKPICommand, // Defined in cmd_kpis.go
	}

	addKPICmd = &cobra.Command{
		Use:   "add-kpi [problem-id] [description]",
		Short: "Add a KPI to a problem",
		Args:  cobra.ExactArgs(2),
		Run:   runAddKPICommand, // Defined in cmd_kpis.go
	}

	addStepCmd = &cobra.Command{
		Use:   "add-step [problem-id] [description...]",
		Short: "Add an action step to a problem",
		Args:  cobra.MinimumNArgs(2),
		Run:   runAddStepCommand, // Defined in cmd_kpis.go
	}

	completeStepCmd = &cobra.Command{
		Use:   "complete-step [step-id]",
		Short: "Mark an action step as completed",
		Args:  cobra.ExactArgs(1),
		Run:   runCompleteStepCommand, // Defined in cmd_kpis.go
	}

	exportCmd = &cobra.Command{
		Use:   "export [problem-id]",
		Short: "Export a problem and its history to a file",
		Args:  cobra.ExactArgs(1),
		Run:   runExportCommand, // Defined in cmd_transfer.go
	}

	importProblemCmd = &cobra.Command{
		Use:   "import-problem [path]",
		Short: "Import a problem from an export file",
		Long: `Import a problem from a file produced by 'headway export'.

The database is backed up before anything is written, and the imported
problem always receives fresh ids, so importing the same file twice
creates two independent problems.`,
		Args: cobra.ExactArgs(1),
		Run:  runImportProblemCommand, // Defined in cmd_transfer.go
	}

	importTasksCmd = &cobra.Command{
		Use:   "import-tasks [problem-id]",
		Short: "Add pending steps from a task file",
		Long: `Read a task file (one step description per line, '#' starts a
comment) and add each line as a pending action step. Lines matching an
existing step description are skipped.`,
		Args: cobra.ExactArgs(1),
		Run:  runImportTasksCommand, // Defined in cmd_transfer.go
	}

	reminderSetCmd = &cobra.Command{
		Use:   "reminder-set [problem-id]",
		Short: "Schedule a recurring KPI update reminder",
		Args:  cobra.ExactArgs(1),
		Run:   runReminderSetCommand, // Defined in cmd_reminders.go
	}

	remindersListCmd = &cobra.Command{
		Use:   "reminders-list",
		Short: "List reminders across all problems",
		Args:  cobra.NoArgs,
		Run:   runRemindersListCommand, // Defined in cmd_reminders.go
	}

	reminderEnableCmd = &cobra.Command{
		Use:   "reminder-enable [reminder-id]",
		Short: "Enable a reminder",
		Args:  cobra.ExactArgs(1),
		Run:   runReminderEnableCommand, // Defined in cmd_reminders.go
	}

	reminderDisableCmd = &cobra.Command{
		Use:   "reminder-disable [reminder-id]",
		Short: "Disable a reminder without deleting it",
		Args:  cobra.ExactArgs(1),
		Run:   runReminderDisableCommand, // Defined in cmd_reminders.go
	}

	reminderDeleteCmd = &cobra.Command{
		Use:   "reminder-delete [reminder-id]",
		Short: "Delete a reminder",
		Args:  cobra.ExactArgs(1),
		Run:   runReminderDeleteCommand, // Defined in cmd_reminders.go
	}

	reminderTestCmd = &cobra.Command{
		Use:   "reminder-test [reminder-id]",
		Short: "Fire a reminder's notification now, ignoring its schedule",
		Args:  cobra.ExactArgs(1),
		Run:   runReminderTestCommand, // Defined in cmd_reminders.go
	}

	remindersRunCmd = &cobra.Command{
		Use:   "reminders-run",
		Short: "Run the reminder daemon in the foreground",
		Long: `Poll the reminder schedules and deliver desktop notifications as
they come due. Runs until interrupted; a file lock rejects a second
daemon against the same data directory. With --once, a single check
cycle runs and the command exits.`,
		Args: cobra.NoArgs,
		Run:  runRemindersRunCommand, // Defined in cmd_reminders.go
	}

	configureCmd = &cobra.Command{
		Use:   "configure",
		Short: "Show or change Headway settings",
		Long: `Adjust advisor and display settings. With no flags an interactive
form opens. The API key is stored in the OS secret store, never in the
config file.`,
		Args: cobra.NoArgs,
		Run:  runConfigureCommand, // Defined in cmd_configure.go
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run:   runVersionCommand, // Defined in cmd_problems.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&personalityLevel, "personality", "",
		"Output style: full, standard, minimal, or machine")

	// Register commands
	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(reactivateCmd)
	rootCmd.AddCommand(updateKPICmd)
	rootCmd.AddCommand(addKPICmd)
	rootCmd.AddCommand(addStepCmd)
	rootCmd.AddCommand(completeStepCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importProblemCmd)
	rootCmd.AddCommand(importTasksCmd)
	rootCmd.AddCommand(reminderSetCmd)
	rootCmd.AddCommand(remindersListCmd)
	rootCmd.AddCommand(reminderEnableCmd)
	rootCmd.AddCommand(reminderDisableCmd)
	rootCmd.AddCommand(reminderDeleteCmd)
	rootCmd.AddCommand(reminderTestCmd)
	rootCmd.AddCommand(remindersRunCmd)
	rootCmd.AddCommand(configureCmd)
	rootCmd.AddCommand(versionCmd)

	// Command flags
	newCmd.Flags().StringVar(&newTitle, "title", "",
		"Short problem title (prompts when omitted)")
	newCmd.Flags().StringVar(&newDescription, "description", "",
		"What is going wrong (prompts when omitted)")

	listCmd.Flags().StringVar(&listStatus, "status", "active",
		"Filter: active, completed, or all")

	viewCmd.Flags().BoolVar(&watchView, "watch", false,
		"Keep the view open and refresh it live")

	addKPICmd.Flags().Float64Var(&kpiTarget, "target", 0,
		"Target value for the new KPI (omit for open-ended metrics)")

	exportCmd.Flags().StringVar(&outputFile, "output-file", "",
		"Destination path (default problem_<id>.json)")
	exportCmd.Flags().StringVar(&exportFormat, "format", "",
		"Export format: json or yaml (default from file extension)")

	importProblemCmd.Flags().StringVar(&importFormat, "format", "auto",
		"Import format: auto, json, or yaml")

	importTasksCmd.Flags().StringVar(&tasksFile, "file", "",
		"Task file, one step description per line")
	_ = importTasksCmd.MarkFlagRequired("file")

	reminderSetCmd.Flags().StringVar(&reminderFrequency, "frequency", "daily",
		"daily, weekly, or monthly")
	reminderSetCmd.Flags().StringVar(&reminderTime, "time", "09:00",
		"Time of day, 24h HH:MM")
	reminderSetCmd.Flags().StringVar(&reminderDays, "days", "",
		"Weekly only: comma-separated days, e.g. \"Mon,Wed,Fri\"")
	reminderSetCmd.Flags().IntVar(&reminderDayOfMonth, "day-of-month", 0,
		"Monthly only: day 1-31, clamped to short months")

	remindersListCmd.Flags().BoolVar(&showHistory, "history", false,
		"Show recent fire history instead of schedules")

	remindersRunCmd.Flags().BoolVar(&runOnce, "once", false,
		"Run a single check cycle and exit")

	configureCmd.Flags().BoolVar(&cfgShow, "show", false,
		"Print the active configuration")
	configureCmd.Flags().StringVar(&cfgModel, "model", "",
		"Advisor model name")
	configureCmd.Flags().StringVar(&cfgProvider, "provider", "",
		"Advisor provider: anthropic or openai")
	configureCmd.Flags().BoolVar(&cfgUseAI, "use-ai", true,
		"Enable or disable AI suggestions")
	configureCmd.Flags().IntVar(&cfgMaxTokens, "max-tokens", 0,
		"Advisor response token cap")
	configureCmd.Flags().IntVar(&cfgWindow, "window", 0,
		"Moving-average window for trends (2-10)")
	configureCmd.Flags().StringVar(&cfgPersonality, "set-personality", "",
		"Persist a default output style")
	configureCmd.Flags().BoolVar(&cfgSetAPIKey, "set-api-key", false,
		"Prompt for an API key and store it in the OS secret store")
	configureCmd.Flags().BoolVar(&cfgClearAPIKey, "clear-api-key", false,
		"Remove the stored API key")
}
