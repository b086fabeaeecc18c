// Copyright (C) 2026 Headway Tools (dev@headway.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ===== Database Backups =====

// BackupManager snapshots the database file before destructive
// operations and restores or prunes earlier snapshots.
type BackupManager interface {
	// Backup copies the file at path to a timestamped sibling and
	// returns the snapshot's path.
	Backup(path string) (string, error)

	// Restore copies a snapshot back over its original file. The
	// current file is snapshotted first so a bad restore is itself
	// recoverable.
	Restore(backupPath string) error

	// List returns the snapshots of path, newest first.
	List(path string) ([]BackupInfo, error)

	// Clean removes all but the newest keep snapshots of path.
	Clean(path string, keep int) error
}

// BackupInfo describes one snapshot on disk.
type BackupInfo struct {
	Path      string
	Original  string
	CreatedAt time.Time
	Size      int64
}

// BackupConfig controls snapshot placement and retention.
type BackupConfig struct {
	// Dir receives snapshots. Empty means alongside the original file.
	Dir string

	// MaxBackups bounds retained snapshots per file. Backup prunes the
	// oldest beyond this count. Zero or negative disables pruning.
	MaxBackups int

	// TimestampFormat names snapshots. Must sort lexically in time
	// order, which the default does.
	TimestampFormat string
}

// DefaultBackupConfig keeps five snapshots next to the database.
func DefaultBackupConfig() BackupConfig {
	return BackupConfig{
		MaxBackups:      5,
		TimestampFormat: "20060102-150405",
	}
}

// DefaultBackupManager implements BackupManager with plain file copies.
// SQLite databases in rollback-journal mode are single files, so a copy
// taken while no transaction is open is a complete snapshot.
type DefaultBackupManager struct {
	config BackupConfig
	now    func() time.Time
}

// NewBackupManager returns a manager with the given config.
func NewBackupManager(config BackupConfig) *DefaultBackupManager {
	if config.TimestampFormat == "" {
		config.TimestampFormat = "20060102-150405"
	}
	return &DefaultBackupManager{config: config, now: time.Now}
}

// Backup copies path to a timestamped .bak sibling and prunes old
// snapshots past MaxBackups.
func (m *DefaultBackupManager) Backup(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("backup %s: not a regular file", path)
	}

	backupPath := m.generateBackupPath(path)
	if err := os.MkdirAll(filepath.Dir(backupPath), 0o750); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}
	if err := copyFile(path, backupPath, info.Mode()); err != nil {
		return "", fmt.Errorf("backup %s: %w", path, err)
	}

	if m.config.MaxBackups > 0 {
		if err := m.Clean(path, m.config.MaxBackups); err != nil {
			return "", fmt.Errorf("rotate backups: %w", err)
		}
	}
	return backupPath, nil
}

// Restore copies backupPath over the file it was taken from.
func (m *DefaultBackupManager) Restore(backupPath string) error {
	original, err := originalPathFromBackup(backupPath)
	if err != nil {
		return err
	}

	info, err := os.Stat(backupPath)
	if err != nil {
		return fmt.Errorf("stat backup: %w", err)
	}

	// Snapshot whatever is there now before overwriting it.
	if _, err := os.Stat(original); err == nil {
		if _, err := m.Backup(original); err != nil {
			return fmt.Errorf("snapshot current file: %w", err)
		}
	}

	if err := copyFile(backupPath, original, info.Mode()); err != nil {
		return fmt.Errorf("restore %s: %w", original, err)
	}
	return nil
}

// List returns the snapshots of path, newest first.
func (m *DefaultBackupManager) List(path string) ([]BackupInfo, error) {
	matches, err := filepath.Glob(m.backupGlob(path))
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}

	backups := make([]BackupInfo, 0, len(matches))
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil {
			continue
		}
		backups = append(backups, BackupInfo{
			Path:      match,
			Original:  path,
			CreatedAt: m.backupTime(match, info),
			Size:      info.Size(),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})
	return backups, nil
}

// Clean removes all but the newest keep snapshots of path.
func (m *DefaultBackupManager) Clean(path string, keep int) error {
	if keep < 0 {
		keep = 0
	}
	backups, err := m.List(path)
	if err != nil {
		return err
	}
	for _, old := range backups[min(keep, len(backups)):] {
		if err := os.Remove(old.Path); err != nil {
			return fmt.Errorf("remove old backup %s: %w", old.Path, err)
		}
	}
	return nil
}

// generateBackupPath builds <dir>/<base>.<timestamp>.bak for path.
func (m *DefaultBackupManager) generateBackupPath(path string) string {
	dir := m.config.Dir
	if dir == "" {
		dir = filepath.Dir(path)
	}
	stamp := m.now().Format(m.config.TimestampFormat)
	return filepath.Join(dir, fmt.Sprintf("%s.%s.bak", filepath.Base(path), stamp))
}

func (m *DefaultBackupManager) backupGlob(path string) string {
	dir := m.config.Dir
	if dir == "" {
		dir = filepath.Dir(path)
	}
	return filepath.Join(dir, filepath.Base(path)+".*.bak")
}

// backupTime recovers the snapshot time from the filename, falling back
// to the file's mtime when the name does not parse.
func (m *DefaultBackupManager) backupTime(backupPath string, info os.FileInfo) time.Time {
	name := filepath.Base(backupPath)
	name = strings.TrimSuffix(name, ".bak")
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		if t, err := time.ParseInLocation(m.config.TimestampFormat, name[idx+1:], time.Local); err == nil {
			return t
		}
	}
	return info.ModTime()
}

// originalPathFromBackup strips the timestamp and .bak suffix.
func originalPathFromBackup(backupPath string) (string, error) {
	name := filepath.Base(backupPath)
	trimmed := strings.TrimSuffix(name, ".bak")
	if trimmed == name {
		return "", fmt.Errorf("%s is not a backup file", backupPath)
	}
	idx := strings.LastIndex(trimmed, ".")
	if idx <= 0 {
		return "", fmt.Errorf("%s is not a backup file", backupPath)
	}
	return filepath.Join(filepath.Dir(backupPath), trimmed[:idx]), nil
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// BackupDatabase snapshots the store's database file while holding the
// store mutex, so no write can land mid-copy. Import calls this before
// inserting anything.
func (s *Store) BackupDatabase() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := DefaultBackupConfig()
	cfg.Dir = s.backupDir
	backupPath, err := NewBackupManager(cfg).Backup(s.path)
	if err != nil {
		return "", storeErr("backup database", err)
	}
	s.logger.Info("database backed up", "path", backupPath)
	return backupPath, nil
}
