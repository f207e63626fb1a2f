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

package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/poiesic/gleaner/core"
)

// ResultCache is a content-addressed, TTL-scoped key/value store shared by
// discovery and fetching. Keys are request fingerprints.
//
// TTLs are chosen by the reader: the same entry may be fresh for one caller
// and stale for another. Reads never delete stale entries.
type ResultCache interface {
	// Get returns the entry stored under key.
	// Returns ErrNotFound if the key is missing or the entry is older than ttl.
	// Returns ErrCorruptEntry if the stored bytes cannot be decoded.
	Get(ctx context.Context, key string, ttl time.Duration) (*core.CacheEntry, error)

	// Put stores payload under key with the current timestamp,
	// replacing any previous entry.
	Put(ctx context.Context, key string, payload []byte) error

	// Keys enumerates every stored fingerprint, fresh or stale.
	// There is no manifest; this is a full scan.
	Keys(ctx context.Context) ([]string, error)

	// Sweep deletes entries older than ttl and returns how many were removed.
	Sweep(ctx context.Context, ttl time.Duration) (int, error)

	// Close releases resources held by the cache.
	Close() error
}

// GetJSON reads the entry under key and decodes its payload into v.
// Missing and stale entries return ErrNotFound.
func GetJSON(ctx context.Context, cache ResultCache, key string, ttl time.Duration, v any) error {
	entry, err := cache.Get(ctx, key, ttl)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(entry.Payload, v); err != nil {
		return fmt.Errorf("%w: %w", ErrCorruptEntry, err)
	}
	return nil
}

// PutJSON encodes v as JSON and stores it under key.
func PutJSON(ctx context.Context, cache ResultCache, key string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return cache.Put(ctx, key, payload)
}
