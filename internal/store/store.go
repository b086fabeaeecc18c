// Copyright (C) 2026 Headway Tools (dev@headway.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package store persists the problem aggregate in a local SQLite database
// and exposes the validated operations the CLI and the reminder scheduler
// share.
//
// All operations are serialized behind one mutex. The interactive command
// and the scheduler daemon may hold the database open at the same time, so
// the connection also sets a busy timeout instead of failing fast on lock
// contention.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/headway-tools/headway/internal/problem"
	"github.com/headway-tools/headway/pkg/logging"
)

// ErrNotFound signals that a referenced identifier does not exist.
// Always wrapped with the entity and id, so test with errors.Is.
var ErrNotFound = errors.New("not found")

// StoreError wraps a database or filesystem failure. The operation that
// raised it was rolled back; the store is in its last consistent state.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func storeErr(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}

// Config configures a Store.
type Config struct {
	// Path is the SQLite database file. Parent directories are created.
	Path string

	// BackupDir receives pre-import snapshots. Empty means alongside
	// the database file.
	BackupDir string

	// Logger receives migration and backup events. Defaults to
	// logging.Default() when nil.
	Logger *logging.Logger
}

// Store wraps the database handle. Safe for concurrent use; every
// operation takes the store mutex, so interactive commands and the
// scheduler never interleave partial writes.
type Store struct {
	db        *gorm.DB
	mu        sync.Mutex
	path      string
	backupDir string
	logger    *logging.Logger

	// nowFunc is swapped in tests to pin ProgressLog timestamps.
	nowFunc func() time.Time
}

// Open opens (creating if needed) the database at cfg.Path and runs the
// schema migration. Migration is idempotent; running against an already
// initialized database is a no-op.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, storeErr("open", errors.New("database path is empty"))
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}

	if err := ensureParentDir(cfg.Path); err != nil {
		return nil, storeErr("open", err)
	}

	// _busy_timeout keeps a second process (the reminder daemon) waiting
	// on a locked database instead of erroring; _foreign_keys enables the
	// ON DELETE CASCADE constraints declared on the models.
	dsn := cfg.Path + "?_busy_timeout=5000&_foreign_keys=on"

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, storeErr("open", err)
	}

	// One connection: the mutex already serializes callers, and a second
	// pooled connection would only reintroduce SQLITE_BUSY between them.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, storeErr("open", err)
	}
	sqlDB.SetMaxOpenConns(1)

	s := &Store{
		db:        db,
		path:      cfg.Path,
		backupDir: cfg.BackupDir,
		logger:    cfg.Logger,
		nowFunc:   time.Now,
	}

	if err := s.migrate(); err != nil {
		return nil, err
	}

	return s, nil
}

// migrate creates or updates the five tables.
func (s *Store) migrate() error {
	err := s.db.AutoMigrate(
		&problem.Problem{},
		&problem.KPI{},
		&problem.ActionStep{},
		&problem.ProgressLog{},
		&problem.Reminder{},
	)
	if err != nil {
		return storeErr("migrate", err)
	}
	s.logger.Debug("store schema migrated", "path", s.path)
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return storeErr("close", err)
	}
	return sqlDB.Close()
}

// ensureParentDir creates the directory holding path when missing.
func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("database parent %s is not a directory", dir)
		}
		return nil
	}
	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o750)
	}
	return err
}

// notFound wraps ErrNotFound with entity context.
func notFound(entity string, id uint) error {
	return fmt.Errorf("%s %d: %w", entity, id, ErrNotFound)
}

// translate maps gorm's record-not-found onto the store taxonomy.
func translate(op, entity string, id uint, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(entity, id)
	}
	return storeErr(op, err)
}
