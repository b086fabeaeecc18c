// Copyright (C) 2026 Headway Tools (dev@headway.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package remind

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/headway-tools/headway/pkg/logging"
)

// ===== Store Watcher =====

// defaultDebounce batches the burst of writes one SQLite transaction
// produces (main file plus journal) into a single callback.
const defaultDebounce = 2 * time.Second

// StoreWatcher watches the database file and invokes a callback when
// another process writes it. The daemon uses it to re-evaluate
// reminders right after `headway reminder-set` runs in another
// terminal, instead of waiting out the poll tick.
//
// The watch is on the database's directory: SQLite creates and deletes
// sibling journal files during a transaction, and directory watches
// survive file replacement.
type StoreWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	onChange func()
	debounce time.Duration
	logger   *logging.Logger

	done     chan struct{}
	stopOnce sync.Once
}

// NewStoreWatcher creates a watcher for the database at path. onChange
// runs on the watcher goroutine after the debounce window closes.
func NewStoreWatcher(path string, debounce time.Duration, logger *logging.Logger, onChange func()) (*StoreWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &StoreWatcher{
		path:     path,
		watcher:  watcher,
		onChange: onChange,
		debounce: debounce,
		logger:   logger,
		done:     make(chan struct{}),
	}, nil
}

// Start watches until the context is cancelled or Stop is called.
// Blocks; run it in a goroutine.
func (w *StoreWatcher) Start(ctx context.Context) {
	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		w.logger.Warn("database watch unavailable, relying on poll tick",
			"dir", dir, "error", err)
		return
	}
	w.logger.Debug("watching database for external changes", "path", w.path)

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("database watcher error", "error", err)

		case <-timerC:
			timer = nil
			timerC = nil
			w.logger.Debug("database changed externally, re-checking reminders")
			if w.onChange != nil {
				w.onChange()
			}
		}
	}
}

// relevant filters for writes touching the database or its journal
// siblings (headway.db, headway.db-journal, headway.db-wal, ...).
func (w *StoreWatcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	return strings.HasPrefix(filepath.Base(event.Name), filepath.Base(w.path))
}

// Stop ends the watch and releases the inotify handle. Safe to call
// multiple times.
func (w *StoreWatcher) Stop() error {
	w.stopOnce.Do(func() { close(w.done) })
	return w.watcher.Close()
}
