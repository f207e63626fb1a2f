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

// Package storage provides the result cache abstraction for gleaner.
//
// Discovery and fetching both memoize their results in a ResultCache keyed
// by request fingerprints (see core.Fingerprint). The cache is best-effort
// and loss-tolerant: a failed read is treated as a miss and a failed write
// is logged and ignored by callers.
//
// # Constructor Return Type Pattern
//
// Public constructors in implementation packages return the ResultCache
// interface:
//
//	cache, err := badger.NewCache(backend)  // returns storage.ResultCache
//
// # Expiry
//
// Each entry records the instant it was written. Readers pass their own TTL
// to Get; an entry older than that TTL is reported as ErrNotFound but left in
// place. Physical cleanup is explicit (Sweep) or bounded by the backend's
// maximum entry age.
//
// # Usage
//
//	backend, err := badger.OpenBackend("/path/to/cache", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
//	cache, err := badger.NewCache(backend)
//	var urls []string
//	err = storage.GetJSON(ctx, cache, key, 24*time.Hour, &urls)
//	if errors.Is(err, storage.ErrNotFound) {
//	    // miss
//	}
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. Writes to distinct keys
// never conflict.
package storage
