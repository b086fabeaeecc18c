// Copyright (C) 2026 Headway Tools (dev@headway.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package advisor

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/headway-tools/headway/pkg/logging"
)

// ===== Response Cache =====

// ResponseCache stores AI replies in an embedded badger database so a
// repeated analyze run within the TTL is answered locally instead of
// re-billing the provider.
type ResponseCache struct {
	db  *badger.DB
	ttl time.Duration
}

// badgerLogger adapts our logger to badger's Logger interface. Badger
// is chatty at info level on every open, so its info and debug lines
// both land at debug.
type badgerLogger struct {
	logger *logging.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// OpenCache opens (creating if needed) the cache directory. Callers
// must Close it.
func OpenCache(dir string, ttl time.Duration, logger *logging.Logger) (*ResponseCache, error) {
	if dir == "" {
		return nil, errors.New("cache dir is required")
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create cache directory %s: %w", dir, err)
	}

	opts := badger.DefaultOptions(dir).
		WithSyncWrites(false).
		WithNumVersionsToKeep(1)
	if logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open response cache: %w", err)
	}
	return &ResponseCache{db: db, ttl: ttl}, nil
}

// openMemoryCache backs tests without touching disk.
func openMemoryCache(ttl time.Duration) (*ResponseCache, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &ResponseCache{db: db, ttl: ttl}, nil
}

func cacheKey(model, method, prompt string) []byte {
	sum := sha256.Sum256([]byte(model + "|" + method + "|" + prompt))
	return []byte(hex.EncodeToString(sum[:]))
}

// Get returns the cached reply, if present and unexpired.
func (c *ResponseCache) Get(model, method, prompt string) (string, bool) {
	var reply []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cacheKey(model, method, prompt))
		if err != nil {
			return err
		}
		reply, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		// ErrKeyNotFound covers both misses and TTL expiry.
		return "", false
	}
	return string(reply), true
}

// Put stores a reply under the cache TTL.
func (c *ResponseCache) Put(model, method, prompt, reply string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(cacheKey(model, method, prompt), []byte(reply)).WithTTL(c.ttl)
		return txn.SetEntry(entry)
	})
}

func (c *ResponseCache) Close() error {
	return c.db.Close()
}
