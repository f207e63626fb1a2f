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
	"testing"
	"time"

	"github.com/poiesic/gleaner/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalCacheEntry(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	tests := []struct {
		name  string
		entry *core.CacheEntry
	}{
		{"json object payload", &core.CacheEntry{Timestamp: now, Payload: []byte(`{"discovered_urls":["https://a.example"]}`)}},
		{"empty payload", &core.CacheEntry{Timestamp: now, Payload: []byte{}}},
		{"unicode payload", &core.CacheEntry{Timestamp: now, Payload: []byte(`"迪士尼執行長。"`)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalCacheEntry(tt.entry)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalCacheEntry("key-1", data)
			require.NoError(t, err)
			assert.Equal(t, "key-1", decoded.Key)
			assert.True(t, tt.entry.Timestamp.Equal(decoded.Timestamp))
			assert.Equal(t, string(tt.entry.Payload), string(decoded.Payload))
		})
	}
}

func TestUnmarshalCacheEntry_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty data", []byte{}},
		{"timestamp only", MarshalCacheEntry(&core.CacheEntry{Timestamp: time.Now()})[:1]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalCacheEntry("k", tt.data)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrCorruptEntry)
			assert.ErrorIs(t, err, core.ErrInternal)
		})
	}
}
