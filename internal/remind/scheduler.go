// Copyright (C) 2026 Headway Tools (dev@headway.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package remind

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/headway-tools/headway/internal/notify"
	"github.com/headway-tools/headway/internal/problem"
	"github.com/headway-tools/headway/pkg/logging"
)

// ===== Reminder Scheduler =====

// ReminderStore is the slice of the store the scheduler needs.
type ReminderStore interface {
	ListReminders(onlyEnabled bool) ([]problem.Reminder, error)
	GetReminder(id uint) (*problem.Reminder, error)
	GetProblem(id uint) (*problem.Problem, error)
	MarkReminderFired(id uint, at time.Time) error
}

// SchedulerConfig holds the polling settings.
type SchedulerConfig struct {
	// Interval is the poll tick. Schedules have minute resolution, so
	// anything at or under a minute catches every occurrence.
	Interval time.Duration
}

// DefaultSchedulerConfig polls once per minute.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{Interval: time.Minute}
}

// CheckResult summarizes one poll cycle.
type CheckResult struct {
	Evaluated int
	Fired     int
	Failed    int
	Skipped   int
}

// Scheduler is the background loop that fires due reminders.
//
// One cycle lists the enabled reminders, asks the schedule math which
// are due, and hands each due reminder to the notifier. last_fired is
// advanced only after a successful delivery; a failed one is retried on
// the next tick. Notifier and store errors are logged and never stop
// the loop.
//
// All public methods are safe for concurrent use.
type Scheduler struct {
	store    ReminderStore
	notifier notify.Notifier
	journal  *Journal
	logger   *logging.Logger
	config   SchedulerConfig

	done    chan struct{}
	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup

	// cycleMu serializes check cycles. A CheckNow overlapping a tick
	// would otherwise see the same due reminder twice and double-fire.
	cycleMu sync.Mutex

	// nowFunc is swapped in tests to pin the clock.
	nowFunc func() time.Time
}

// NewScheduler creates a scheduler ready to Start. journal may be nil
// when no fire history should be kept.
func NewScheduler(store ReminderStore, notifier notify.Notifier, journal *Journal, logger *logging.Logger, config SchedulerConfig) *Scheduler {
	if logger == nil {
		logger = logging.Default()
	}
	if config.Interval <= 0 {
		config.Interval = DefaultSchedulerConfig().Interval
	}
	return &Scheduler{
		store:    store,
		notifier: notifier,
		journal:  journal,
		logger:   logger,
		config:   config,
		done:     make(chan struct{}),
		nowFunc:  time.Now,
	}
}

// Start launches the polling goroutine. It returns an error when the
// scheduler is already running. An immediate check runs on start so
// reminders due earlier today fire without waiting a full tick.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler is already running")
	}
	s.running = true
	s.done = make(chan struct{}) // reset for restart
	s.mu.Unlock()

	s.logger.Info("reminder scheduler starting", "interval", s.config.Interval.String())

	s.wg.Add(1)
	go s.runLoop(ctx)
	return nil
}

// Stop signals the loop to exit and waits for the in-flight cycle to
// finish, so a delivery that already happened gets its last_fired
// write. Safe to call multiple times.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.logger.Info("reminder scheduler stopping")
	close(s.done)
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// CheckNow runs one poll cycle immediately, outside the tick schedule.
func (s *Scheduler) CheckNow(ctx context.Context) (CheckResult, error) {
	return s.checkCycle(ctx)
}

func (s *Scheduler) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.executeCheck(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("reminder scheduler stopped", "reason", "context cancelled")
			return
		case <-s.done:
			s.logger.Info("reminder scheduler stopped", "reason", "stop requested")
			return
		case <-ticker.C:
			s.executeCheck(ctx)
		}
	}
}

// executeCheck wraps checkCycle so a failing cycle is logged, never
// fatal to the loop.
func (s *Scheduler) executeCheck(ctx context.Context) {
	result, err := s.checkCycle(ctx)
	if err != nil {
		s.logger.Error("reminder check cycle failed", "error", err)
		return
	}
	if result.Fired > 0 || result.Failed > 0 {
		s.logger.Info("reminder check cycle completed",
			"evaluated", result.Evaluated,
			"fired", result.Fired,
			"failed", result.Failed,
			"skipped", result.Skipped)
	} else {
		s.logger.Debug("reminder check cycle completed", "evaluated", result.Evaluated)
	}
}

func (s *Scheduler) checkCycle(ctx context.Context) (CheckResult, error) {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	var result CheckResult
	now := s.nowFunc()

	reminders, err := s.store.ListReminders(true)
	if err != nil {
		return result, fmt.Errorf("list reminders: %w", err)
	}

	for i := range reminders {
		r := &reminders[i]
		result.Evaluated++

		due, err := Due(r, now)
		if err != nil {
			s.logger.Warn("skipping reminder with invalid schedule",
				"reminder_id", r.ID, "error", err)
			result.Skipped++
			continue
		}
		if !due {
			continue
		}
		s.fire(ctx, r, now, &result)
	}
	return result, nil
}

// fire delivers one due reminder. last_fired moves only on success.
func (s *Scheduler) fire(ctx context.Context, r *problem.Reminder, now time.Time, result *CheckResult) {
	p, err := s.store.GetProblem(r.ProblemID)
	if err != nil {
		s.logger.Warn("reminder references missing problem",
			"reminder_id", r.ID, "problem_id", r.ProblemID, "error", err)
		result.Skipped++
		return
	}

	if err := s.notifier.Notify(ctx, notificationFor(p)); err != nil {
		s.logger.Warn("notification failed, reminder stays pending",
			"reminder_id", r.ID, "error", err)
		s.record(r, now, false, err)
		result.Failed++
		return
	}

	if err := s.store.MarkReminderFired(r.ID, now); err != nil {
		// Delivered but not recorded: the same occurrence may fire again
		// on the next tick. Loud log, nothing else to do.
		s.logger.Error("failed to record reminder fire",
			"reminder_id", r.ID, "error", err)
	}
	s.record(r, now, true, nil)
	result.Fired++

	s.logger.Info("reminder fired",
		"reminder_id", r.ID, "problem_id", p.ID, "title", p.Title)
}

func (s *Scheduler) record(r *problem.Reminder, at time.Time, delivered bool, fireErr error) {
	if s.journal == nil {
		return
	}
	rec := FireRecord{
		ReminderID: r.ID,
		ProblemID:  r.ProblemID,
		FiredAt:    at,
		Delivered:  delivered,
	}
	if fireErr != nil {
		rec.Error = fireErr.Error()
	}
	if err := s.journal.Record(rec); err != nil {
		s.logger.Debug("fire journal write failed", "error", err)
	}
}

// TestFire delivers a reminder's notification immediately, bypassing
// the schedule. It works on disabled reminders too and never touches
// last_fired, so a test never suppresses the real occurrence.
func TestFire(ctx context.Context, store ReminderStore, notifier notify.Notifier, reminderID uint) error {
	r, err := store.GetReminder(reminderID)
	if err != nil {
		return err
	}
	p, err := store.GetProblem(r.ProblemID)
	if err != nil {
		return err
	}
	return notifier.Notify(ctx, notificationFor(p))
}

func notificationFor(p *problem.Problem) notify.Notification {
	return notify.Notification{
		Title:     notify.DefaultTitle,
		Message:   fmt.Sprintf("Time to update KPIs for: %s", p.Title),
		ProblemID: p.ID,
	}
}
