// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/gleaner/core"
	"github.com/poiesic/gleaner/storage"
)

const (
	// DefaultMaxAge bounds how long an entry physically survives in the
	// database regardless of reader TTLs.
	DefaultMaxAge = 7 * 24 * time.Hour
)

// Cache implements storage.ResultCache for BadgerDB.
type Cache struct {
	backend *Backend
	maxAge  time.Duration
	now     func() time.Time
}

var _ storage.ResultCache = (*Cache)(nil)

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithMaxAge sets the physical lifetime of entries. Zero disables it.
func WithMaxAge(maxAge time.Duration) CacheOption {
	return func(c *Cache) {
		c.maxAge = maxAge
	}
}

// WithClock overrides the time source used for timestamps and expiry.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCache creates a result cache on top of an open backend.
//
// Returns storage.ResultCache interface to enforce abstraction.
func NewCache(backend *Backend, opts ...CacheOption) (storage.ResultCache, error) {
	return newCache(backend, opts...)
}

func newCache(backend *Backend, opts ...CacheOption) (*Cache, error) {
	if backend == nil || backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	c := &Cache{
		backend: backend,
		maxAge:  DefaultMaxAge,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get retrieves the entry for key if it is younger than ttl.
func (c *Cache) Get(ctx context.Context, key string, ttl time.Duration) (*core.CacheEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	var entry *core.CacheEntry
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeCacheKey(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			entry, unmarshalErr = storage.UnmarshalCacheEntry(key, val)
			return unmarshalErr
		})
	}, false)
	if err != nil {
		return nil, err
	}

	if entry.Expired(ttl, c.now()) {
		return nil, storage.ErrNotFound
	}
	return entry, nil
}

// Put stores payload under key, stamped with the current time.
func (c *Cache) Put(ctx context.Context, key string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.backend.IsClosed() {
		return storage.ErrStorageClosed
	}

	value := storage.MarshalCacheEntry(&core.CacheEntry{
		Key:       key,
		Timestamp: c.now().UTC(),
		Payload:   payload,
	})
	return c.backend.WithTx(func(tx *badger.Txn) error {
		e := badger.NewEntry(makeCacheKey(key), value)
		if c.maxAge > 0 {
			e = e.WithTTL(c.maxAge)
		}
		if err := tx.SetEntry(e); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Keys lists every stored fingerprint.
func (c *Cache) Keys(ctx context.Context) ([]string, error) {
	if c.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	var keys []string
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = cacheKeyPrefix()
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			keys = append(keys, fingerprintFromKey(iter.Item().Key()))
		}
		return nil
	}, false)
	return keys, err
}

// Sweep removes entries older than ttl, then reclaims value log space.
// Entries that fail to decode are removed as well.
func (c *Cache) Sweep(ctx context.Context, ttl time.Duration) (int, error) {
	if c.backend.IsClosed() {
		return 0, storage.ErrStorageClosed
	}

	now := c.now()
	var stale [][]byte
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = cacheKeyPrefix()
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := iter.Item()
			key := item.KeyCopy(nil)
			err := item.Value(func(val []byte) error {
				entry, err := storage.UnmarshalCacheEntry(fingerprintFromKey(key), val)
				if err != nil || entry.Expired(ttl, now) {
					stale = append(stale, key)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	wb := c.backend.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range stale {
		if err := wb.Delete(key); err != nil {
			return 0, err
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, err
	}

	if err := c.backend.CollectGarbage(); err != nil {
		c.backend.logger.Warn("value log garbage collection failed", "err", err)
	}
	return len(stale), nil
}

// Close is a no-op; the backend owns the database handle.
func (c *Cache) Close() error {
	return nil
}
