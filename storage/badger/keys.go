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

import "strings"

const (
	cacheEntryPrefix = "rescache"
)

// makeCacheKey generates a storage key for a cache fingerprint.
// Format: prefix:fingerprint
func makeCacheKey(fingerprint string) []byte {
	return []byte(cacheEntryPrefix + ":" + fingerprint)
}

// cacheKeyPrefix returns the iteration prefix covering every cache entry.
func cacheKeyPrefix() []byte {
	return []byte(cacheEntryPrefix + ":")
}

// fingerprintFromKey strips the prefix from a storage key.
func fingerprintFromKey(key []byte) string {
	return strings.TrimPrefix(string(key), cacheEntryPrefix+":")
}
