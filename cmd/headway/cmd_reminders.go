// Copyright (C) 2026 Headway Tools (dev@headway.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/headway-tools/headway/cmd/headway/config"
	"github.com/headway-tools/headway/cmd/headway/internal/process"
	"github.com/headway-tools/headway/internal/notify"
	"github.com/headway-tools/headway/internal/problem"
	"github.com/headway-tools/headway/internal/remind"
	"github.com/headway-tools/headway/pkg/logging"
	"github.com/headway-tools/headway/pkg/ux"
)

// fireJournalRetention bounds the delivery history kept on disk. The
// daemon prunes older records at startup.
const fireJournalRetention = 30 * 24 * time.Hour

// runReminderSetCommand schedules a recurring reminder for a problem.
func runReminderSetCommand(cmd *cobra.Command, args []string) {
	problemID := parseID(args[0], "problem")

	st := openStore()
	defer st.Close()

	p, err := st.GetProblem(problemID)
	if err != nil {
		exitWithError("could not load the problem", err)
	}

	r, err := st.AddReminder(&problem.ReminderInput{
		ProblemID:  problemID,
		Frequency:  reminderFrequency,
		TimeOfDay:  reminderTime,
		Weekdays:   reminderDays,
		DayOfMonth: reminderDayOfMonth,
	})
	if err != nil {
		exitWithError("could not set the reminder", err)
	}

	ux.Success(fmt.Sprintf("Reminder %d set for '%s': %s", r.ID, p.Title, formatSchedule(r)))
	ux.Muted("Deliveries need the daemon: headway reminders-run")
}

// runRemindersListCommand lists schedules, or with --history the recent
// delivery journal.
func runRemindersListCommand(cmd *cobra.Command, args []string) {
	if showHistory {
		showFireHistory()
		return
	}

	st := openStore()
	defer st.Close()

	reminders, err := st.ListReminders(false)
	if err != nil {
		exitWithError("could not list reminders", err)
	}
	if len(reminders) == 0 {
		ux.Info("No reminders set. Schedule one with 'headway reminder-set <problem-id>'.")
		return
	}

	titles := make(map[uint]string)
	for i := range reminders {
		pid := reminders[i].ProblemID
		if _, ok := titles[pid]; ok {
			continue
		}
		if p, err := st.GetProblem(pid); err == nil {
			titles[pid] = p.Title
		}
	}
	renderReminderList(reminders, titles)
}

// showFireHistory prints the last deliveries recorded by the daemon.
func showFireHistory() {
	journal := remind.NewJournal(config.JournalPath())
	records, err := journal.Recent(20)
	if err != nil {
		exitWithError("could not read the fire journal", err)
	}
	if len(records) == 0 {
		ux.Info("No reminder fires recorded yet.")
		return
	}

	if ux.GetPersonality().Level == ux.PersonalityMachine {
		for _, rec := range records {
			fmt.Printf("%s\t%d\t%d\t%t\t%s\n",
				rec.FiredAt.Format(time.RFC3339), rec.ReminderID, rec.ProblemID,
				rec.Delivered, rec.Error)
		}
		return
	}

	t := styledTable("Fired At", "Reminder", "Problem", "Delivered", "Error")
	for _, rec := range records {
		delivered := ux.Styles.Error.Render("no")
		if rec.Delivered {
			delivered = ux.Styles.Success.Render("yes")
		}
		t.Row(rec.FiredAt.Format("2006-01-02 15:04"),
			fmt.Sprintf("#%d", rec.ReminderID),
			fmt.Sprintf("#%d", rec.ProblemID),
			delivered, rec.Error)
	}
	fmt.Println(t.Render())
}

func runReminderEnableCommand(cmd *cobra.Command, args []string) {
	setReminderEnabled(args[0], true)
}

func runReminderDisableCommand(cmd *cobra.Command, args []string) {
	setReminderEnabled(args[0], false)
}

func setReminderEnabled(arg string, enabled bool) {
	id := parseID(arg, "reminder")

	st := openStore()
	defer st.Close()

	if err := st.SetReminderEnabled(id, enabled); err != nil {
		exitWithError("could not update the reminder", err)
	}
	if enabled {
		ux.Success(fmt.Sprintf("Reminder %d enabled", id))
	} else {
		ux.Success(fmt.Sprintf("Reminder %d disabled", id))
	}
}

func runReminderDeleteCommand(cmd *cobra.Command, args []string) {
	id := parseID(args[0], "reminder")

	st := openStore()
	defer st.Close()

	if err := st.DeleteReminder(id); err != nil {
		exitWithError("could not delete the reminder", err)
	}
	ux.Success(fmt.Sprintf("Reminder %d deleted", id))
}

// runReminderTestCommand sends the reminder's notification right now.
// Works on disabled reminders and never touches last_fired, so the real
// occurrence still happens.
func runReminderTestCommand(cmd *cobra.Command, args []string) {
	id := parseID(args[0], "reminder")

	st := openStore()
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := remind.TestFire(ctx, st, notify.Detect(), id); err != nil {
		exitWithError("test notification failed", err)
	}
	ux.Success("Test notification sent.")
	ux.Muted("The schedule and last-fired time are untouched.")
}

// runRemindersRunCommand is the delivery daemon: a poll loop plus a
// database watcher that re-checks as soon as another headway process
// writes a reminder. A flock rejects a second daemon on the same data
// directory. --once performs a single cycle, cron style, without the
// lock.
func runRemindersRunCommand(cmd *cobra.Command, args []string) {
	// The daemon is the one command where log lines are the primary
	// output, so it logs to stderr as well as its own file.
	appLogger = logging.New(logging.Config{
		Level:   logging.ParseLevel(os.Getenv(envLogLevel)),
		LogDir:  config.LogsDir(),
		Service: "headway-remind",
	})

	if runOnce {
		runSingleCheck()
		return
	}

	lock := process.NewLock(config.AppDir(), "headway-remind")
	if err := lock.Acquire(); err != nil {
		if errors.Is(err, process.ErrLockHeld) {
			exitWithError(fmt.Sprintf("another reminder daemon is already running (pid %d)", lock.HolderPID()), nil)
		}
		exitWithError("could not acquire the daemon lock", err)
	}
	defer lock.Release()

	st := openStore()
	defer st.Close()

	journal := remind.NewJournal(config.JournalPath())
	if err := journal.Prune(time.Now().Add(-fireJournalRetention)); err != nil {
		appLogger.Warn("could not prune the fire journal", "error", err)
	}

	interval := time.Duration(config.Global().Reminders.CheckIntervalSeconds) * time.Second
	sched := remind.NewScheduler(st, notify.Detect(), journal, appLogger,
		remind.SchedulerConfig{Interval: interval})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)

	if err := sched.Start(ctx); err != nil {
		exitWithError("could not start the scheduler", err)
	}
	group.Go(func() error {
		<-ctx.Done()
		return sched.Stop()
	})

	watcher, err := remind.NewStoreWatcher(st.Path(), 0, appLogger, func() {
		if _, err := sched.CheckNow(ctx); err != nil {
			appLogger.Warn("store-change reminder check failed", "error", err)
		}
	})
	if err != nil {
		appLogger.Warn("store watcher unavailable, relying on the poll tick", "error", err)
	} else {
		defer watcher.Stop()
		group.Go(func() error {
			watcher.Start(ctx)
			return nil
		})
	}

	ux.Info("Reminder daemon running. Press Ctrl+C to stop.")
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		exitWithError("daemon stopped with an error", err)
	}
	ux.Info("Reminder daemon stopped.")
}

// runSingleCheck evaluates every enabled reminder once and reports the
// cycle result. Meant for cron or for poking the system by hand.
func runSingleCheck() {
	st := openStore()
	defer st.Close()

	journal := remind.NewJournal(config.JournalPath())
	sched := remind.NewScheduler(st, notify.Detect(), journal, appLogger,
		remind.SchedulerConfig{})

	result, err := sched.CheckNow(context.Background())
	if err != nil {
		exitWithError("reminder check failed", err)
	}
	ux.Info(fmt.Sprintf("Checked %d reminders: %d fired, %d failed, %d skipped",
		result.Evaluated, result.Fired, result.Failed, result.Skipped))
}
