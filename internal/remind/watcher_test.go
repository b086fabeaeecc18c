// Copyright (C) 2026 Headway Tools (dev@headway.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package remind

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestWatcher(t *testing.T, path string) chan struct{} {
	t.Helper()

	changed := make(chan struct{}, 8)
	w, err := NewStoreWatcher(path, 50*time.Millisecond, quietLogger(), func() {
		changed <- struct{}{}
	})
	require.NoError(t, err)

	go w.Start(context.Background())
	t.Cleanup(func() { _ = w.Stop() })

	// Give the goroutine a beat to register the inotify watch before
	// the test writes anything.
	time.Sleep(200 * time.Millisecond)
	return changed
}

func waitForChange(t *testing.T, changed chan struct{}) {
	t.Helper()
	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("watcher never reported the change")
	}
}

func TestStoreWatcher_FiresOnDatabaseWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "headway.db")
	require.NoError(t, os.WriteFile(path, []byte("seed"), 0o640))

	changed := startTestWatcher(t, path)

	require.NoError(t, os.WriteFile(path, []byte("updated"), 0o640))
	waitForChange(t, changed)
}

func TestStoreWatcher_JournalSiblingTriggers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "headway.db")
	require.NoError(t, os.WriteFile(path, []byte("seed"), 0o640))

	changed := startTestWatcher(t, path)

	// SQLite writes land in the rollback journal first.
	require.NoError(t, os.WriteFile(path+"-journal", []byte("txn"), 0o640))
	waitForChange(t, changed)
}

func TestStoreWatcher_IgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "headway.db")
	require.NoError(t, os.WriteFile(path, []byte("seed"), 0o640))

	changed := startTestWatcher(t, path)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o640))
	select {
	case <-changed:
		t.Fatal("unrelated file triggered the watcher")
	case <-time.After(500 * time.Millisecond):
	}

	// The watcher is still alive for real changes.
	require.NoError(t, os.WriteFile(path, []byte("updated"), 0o640))
	waitForChange(t, changed)
}

func TestStoreWatcher_DebounceCoalescesBursts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "headway.db")
	require.NoError(t, os.WriteFile(path, []byte("seed"), 0o640))

	changed := make(chan struct{}, 8)
	w, err := NewStoreWatcher(path, 150*time.Millisecond, quietLogger(), func() {
		changed <- struct{}{}
	})
	require.NoError(t, err)
	go w.Start(context.Background())
	t.Cleanup(func() { _ = w.Stop() })
	time.Sleep(200 * time.Millisecond)

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte{byte(i)}, 0o640))
		time.Sleep(10 * time.Millisecond)
	}

	waitForChange(t, changed)
	select {
	case <-changed:
		t.Fatal("burst of writes produced more than one callback")
	case <-time.After(400 * time.Millisecond):
	}
}

func TestStoreWatcher_StopIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "headway.db")
	require.NoError(t, os.WriteFile(path, []byte("seed"), 0o640))

	w, err := NewStoreWatcher(path, 0, quietLogger(), nil)
	require.NoError(t, err)
	go w.Start(context.Background())
	time.Sleep(100 * time.Millisecond)

	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}
