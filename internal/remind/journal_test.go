// Copyright (C) 2026 Headway Tools (dev@headway.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package remind

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJournal(t *testing.T) *Journal {
	t.Helper()
	return NewJournal(filepath.Join(t.TempDir(), "fires.jsonl"))
}

func TestJournal_RecordAndRecent(t *testing.T) {
	j := newTestJournal(t)
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, j.Record(FireRecord{
			ReminderID: uint(i + 1),
			ProblemID:  1,
			FiredAt:    base.Add(time.Duration(i) * time.Hour),
			Delivered:  true,
		}))
	}

	records, err := j.Recent(10)
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Oldest first, fields intact.
	assert.Equal(t, uint(1), records[0].ReminderID)
	assert.Equal(t, uint(3), records[2].ReminderID)
	assert.True(t, records[0].FiredAt.Equal(base))
	assert.True(t, records[2].FiredAt.Equal(base.Add(2*time.Hour)))

	// Record assigns each attempt its own id.
	assert.NotEmpty(t, records[0].EventID)
	assert.NotEqual(t, records[0].EventID, records[1].EventID)
}

func TestJournal_RecentHonorsLimit(t *testing.T) {
	j := newTestJournal(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, j.Record(FireRecord{ReminderID: uint(i + 1), FiredAt: time.Now()}))
	}

	records, err := j.Recent(2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, uint(4), records[0].ReminderID)
	assert.Equal(t, uint(5), records[1].ReminderID)
}

func TestJournal_RecentMissingFile(t *testing.T) {
	j := newTestJournal(t)
	records, err := j.Recent(10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestJournal_SkipsMalformedLines(t *testing.T) {
	j := newTestJournal(t)
	require.NoError(t, j.Record(FireRecord{ReminderID: 1, FiredAt: time.Now(), Delivered: true}))

	f, err := os.OpenFile(j.Path(), os.O_WRONLY|os.O_APPEND, 0o640)
	require.NoError(t, err)
	_, err = f.WriteString("{truncated\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, j.Record(FireRecord{ReminderID: 2, FiredAt: time.Now(), Delivered: true}))

	records, err := j.Recent(10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, uint(1), records[0].ReminderID)
	assert.Equal(t, uint(2), records[1].ReminderID)
}

func TestJournal_Prune(t *testing.T) {
	j := newTestJournal(t)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		require.NoError(t, j.Record(FireRecord{
			ReminderID: uint(i + 1),
			FiredAt:    base.AddDate(0, 0, i),
			Delivered:  true,
		}))
	}

	// Keep records fired on or after March 3rd.
	require.NoError(t, j.Prune(base.AddDate(0, 0, 2)))

	records, err := j.Recent(10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, uint(3), records[0].ReminderID)
	assert.Equal(t, uint(4), records[1].ReminderID)
}

func TestJournal_PruneMissingFile(t *testing.T) {
	j := newTestJournal(t)
	assert.NoError(t, j.Prune(time.Now()))
}

func TestJournal_RecordCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "fires.jsonl")
	j := NewJournal(path)
	require.NoError(t, j.Record(FireRecord{ReminderID: 1, FiredAt: time.Now()}))

	_, err := os.Stat(path)
	assert.NoError(t, err)
}
