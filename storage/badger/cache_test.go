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
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/gleaner/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestCache(t *testing.T) (storage.ResultCache, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	cache, backend, err := NewMemoryCache(WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() {
		cache.Close()
		backend.Close()
	})
	return cache, clock
}

func TestCachePutGet(t *testing.T) {
	cache, clock := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "fp-1", []byte(`["https://a.example"]`)))

	entry, err := cache.Get(ctx, "fp-1", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "fp-1", entry.Key)
	assert.Equal(t, `["https://a.example"]`, string(entry.Payload))
	assert.True(t, clock.Now().Equal(entry.Timestamp))
}

func TestCacheGet_Missing(t *testing.T) {
	cache, _ := newTestCache(t)

	_, err := cache.Get(context.Background(), "nope", time.Hour)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCacheGet_ReaderChosenTTL(t *testing.T) {
	cache, clock := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "fp", []byte("x")))
	clock.Advance(2 * time.Hour)

	_, err := cache.Get(ctx, "fp", time.Hour)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// A longer TTL still sees the entry; stale reads never delete.
	entry, err := cache.Get(ctx, "fp", 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "x", string(entry.Payload))
}

func TestCachePut_Overwrites(t *testing.T) {
	cache, clock := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "fp", []byte("old")))
	clock.Advance(30 * time.Minute)
	require.NoError(t, cache.Put(ctx, "fp", []byte("new")))

	entry, err := cache.Get(ctx, "fp", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "new", string(entry.Payload))
	assert.True(t, clock.Now().Equal(entry.Timestamp))
}

func TestCacheKeys(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	for _, k := range []string{"b", "a", "c"} {
		require.NoError(t, cache.Put(ctx, k, []byte(k)))
	}

	keys, err := cache.Keys(ctx)
	require.NoError(t, err)
	sort.Strings(keys)
	assert.Equal(t, []string{"a", "b", "c"}, keys)
}

func TestCacheSweep(t *testing.T) {
	cache, clock := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "old", []byte("1")))
	clock.Advance(3 * time.Hour)
	require.NoError(t, cache.Put(ctx, "fresh", []byte("2")))

	removed, err := cache.Sweep(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	keys, err := cache.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh"}, keys)

	removed, err = cache.Sweep(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestCacheSweep_RemovesCorruptEntries(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()
	cache, err := NewCache(backend, WithClock(clock.Now))
	require.NoError(t, err)
	ctx := context.Background()

	err = backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeCacheKey("broken"), []byte{}); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	require.NoError(t, err)

	_, err = cache.Get(ctx, "broken", time.Hour)
	assert.ErrorIs(t, err, storage.ErrCorruptEntry)

	removed, err := cache.Sweep(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

func TestCacheJSONHelpers(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	in := []string{"https://a.example", "https://b.example"}
	require.NoError(t, storage.PutJSON(ctx, cache, "urls", in))

	var out []string
	require.NoError(t, storage.GetJSON(ctx, cache, "urls", time.Hour, &out))
	assert.Equal(t, in, out)

	require.NoError(t, cache.Put(ctx, "garbage", []byte("{not json")))
	err := storage.GetJSON(ctx, cache, "garbage", time.Hour, &out)
	assert.ErrorIs(t, err, storage.ErrCorruptEntry)
}

func TestCache_Closed(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	cache, err := NewCache(backend)
	require.NoError(t, err)
	require.NoError(t, backend.Close())

	ctx := context.Background()
	_, err = cache.Get(ctx, "k", time.Hour)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
	assert.ErrorIs(t, cache.Put(ctx, "k", nil), storage.ErrStorageClosed)
	_, err = cache.Keys(ctx)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
	_, err = cache.Sweep(ctx, time.Hour)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)

	_, err = NewCache(backend)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestCache_ConcurrentWrites(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i))
			assert.NoError(t, cache.Put(ctx, key, []byte(key)))
		}(i)
	}
	wg.Wait()

	keys, err := cache.Keys(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 16)
}
