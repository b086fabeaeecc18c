// Copyright (C) 2026 Headway Tools (dev@headway.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package remind

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ===== Fire Journal =====

// FireRecord is one delivery attempt, successful or not.
type FireRecord struct {
	EventID    string    `json:"event_id"`
	ReminderID uint      `json:"reminder_id"`
	ProblemID  uint      `json:"problem_id"`
	FiredAt    time.Time `json:"fired_at"`
	Delivered  bool      `json:"delivered"`
	Error      string    `json:"error,omitempty"`
}

// Journal is an append-only JSONL file of fire attempts. JSONL keeps
// the history greppable and lets a half-written final line be skipped
// instead of corrupting the whole file.
type Journal struct {
	path string
	mu   sync.Mutex
}

// NewJournal creates a journal at path. The file appears on first write.
func NewJournal(path string) *Journal {
	return &Journal{path: path}
}

// Path returns the journal file path.
func (j *Journal) Path() string {
	return j.path
}

// Record appends one line, assigning the event id when the caller
// left it empty.
func (j *Journal) Record(rec FireRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if rec.EventID == "" {
		rec.EventID = uuid.NewString()
	}

	if err := os.MkdirAll(filepath.Dir(j.path), 0o750); err != nil {
		return fmt.Errorf("create journal dir: %w", err)
	}
	file, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer file.Close()

	if err := json.NewEncoder(file).Encode(rec); err != nil {
		return fmt.Errorf("write journal record: %w", err)
	}
	return nil
}

// Recent returns the last limit records, oldest first. Malformed lines
// are skipped. A missing journal is an empty history, not an error.
func (j *Journal) Recent(limit int) ([]FireRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	records, err := j.readAll()
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}
	return records, nil
}

// Prune rewrites the journal keeping only records at or after cutoff.
// The daemon calls this at startup so the file stays bounded.
func (j *Journal) Prune(cutoff time.Time) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	records, err := j.readAll()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	kept := records[:0]
	for _, rec := range records {
		if !rec.FiredAt.Before(cutoff) {
			kept = append(kept, rec)
		}
	}
	if len(kept) == len(records) {
		return nil
	}

	tmp := j.path + ".tmp"
	file, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return fmt.Errorf("open journal tmp: %w", err)
	}
	enc := json.NewEncoder(file)
	for _, rec := range kept {
		if err := enc.Encode(rec); err != nil {
			file.Close()
			return fmt.Errorf("rewrite journal: %w", err)
		}
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close journal tmp: %w", err)
	}
	if err := os.Rename(tmp, j.path); err != nil {
		return fmt.Errorf("replace journal: %w", err)
	}
	return nil
}

// readAll loads every parseable record. Callers hold the mutex.
func (j *Journal) readAll() ([]FireRecord, error) {
	file, err := os.Open(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer file.Close()

	var records []FireRecord
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var rec FireRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	return records, nil
}
