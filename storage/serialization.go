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
	"fmt"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/gleaner/core"
)

// MarshalCacheEntry serializes the timestamp and payload of an entry.
// The key is not encoded; it is the storage key itself.
// Layout: varint(unix micro) | ord string(payload).
func MarshalCacheEntry(entry *core.CacheEntry) []byte {
	ts := entry.Timestamp.UnixMicro()
	payload := string(entry.Payload)
	buf := make([]byte, varint.Int64.Size(ts)+ord.String.Size(payload))
	n := varint.Int64.Marshal(ts, buf)
	ord.String.Marshal(payload, buf[n:])
	return buf
}

// UnmarshalCacheEntry deserializes an entry stored under key.
func UnmarshalCacheEntry(key string, data []byte) (*core.CacheEntry, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrCorruptEntry, ErrTruncatedData)
	}
	ts, n, err := varint.Int64.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: timestamp: %w", ErrCorruptEntry, err)
	}
	payload, _, err := ord.String.Unmarshal(data[n:])
	if err != nil {
		return nil, fmt.Errorf("%w: payload: %w", ErrCorruptEntry, err)
	}
	return &core.CacheEntry{
		Key:       key,
		Timestamp: time.UnixMicro(ts).UTC(),
		Payload:   []byte(payload),
	}, nil
}
