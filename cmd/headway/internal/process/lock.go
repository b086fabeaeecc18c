// Copyright (C) 2026 Headway Tools (dev@headway.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package process guards single-instance invariants. The reminder
// daemon takes an advisory flock so a second daemon on the same
// database refuses to start; the kernel drops the lock if the holder
// dies, so crashes never wedge the CLI.
package process

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// ErrLockHeld means another process holds the lock.
var ErrLockHeld = errors.New("process lock held by another process")

// Lock is an advisory exclusive file lock. Not safe for concurrent use;
// give each goroutine its own instance.
type Lock struct {
	path string
	file *os.File
}

// NewLock names a lock file <name>.lock under dir. The directory is
// created on Acquire.
func NewLock(dir, name string) *Lock {
	return &Lock{path: filepath.Join(dir, name+".lock")}
}

// Path returns the lock file location.
func (l *Lock) Path() string { return l.path }

// Acquire takes the lock without blocking. ErrLockHeld means a live
// process has it; use HolderPID for the diagnostic.
func (l *Lock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o750); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		file.Close()
		if err == syscall.EWOULDBLOCK {
			return ErrLockHeld
		}
		return fmt.Errorf("flock %s: %w", l.path, err)
	}

	// Record the holder for diagnostics. Failures here do not matter;
	// the flock itself is the lock.
	_ = file.Truncate(0)
	_, _ = file.Seek(0, 0)
	_, _ = fmt.Fprintf(file, "pid=%d\ntime=%s\n", os.Getpid(), time.Now().Format(time.RFC3339))

	l.file = file
	return nil
}

// Release drops the lock and removes the file. Safe to call repeatedly
// or without a prior Acquire.
func (l *Lock) Release() error {
	if l.file == nil {
		return nil
	}

	_ = syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	err := l.file.Close()
	l.file = nil
	_ = os.Remove(l.path)
	return err
}

// IsHeld probes whether another process holds the lock, without
// keeping it.
func (l *Lock) IsHeld() (bool, error) {
	file, err := os.OpenFile(l.path, os.O_RDWR, 0o600)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer file.Close()

	err = syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if err == syscall.EWOULDBLOCK {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	_ = syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
	return false, nil
}

// HolderPID reads the recorded holder pid, or 0 when unknown.
func (l *Lock) HolderPID() int {
	content, err := os.ReadFile(l.path)
	if err != nil {
		return 0
	}
	var pid int
	if _, err := fmt.Sscanf(string(content), "pid=%d", &pid); err != nil {
		return 0
	}
	return pid
}
