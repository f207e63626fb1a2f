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

package core

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// Fingerprint generates a deterministic cache key from a request's defining
// inputs using BLAKE2b hashing. Parts are NUL-separated so that ("ab","c")
// and ("a","bc") produce different keys.
func Fingerprint(parts ...string) string {
	h, _ := blake2b.New(32, nil)
	h.Write([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(h.Sum(nil))
}

// SourceQuery is an immutable discovery request.
type SourceQuery struct {
	Topic        string
	DesiredCount int
}

// DiscoveredSource is a candidate information source.
// URLs are absolute, deduplicated and protocol-normalized.
type DiscoveredSource struct {
	URL string `json:"url"`
}

// Tier identifies which fetch method produced a FetchResult.
type Tier string

const (
	// TierNone means no tier produced content.
	TierNone Tier = ""
	// TierCache means the text was served from the result cache.
	TierCache Tier = "cache"
	// TierHTTP means a plain HTTP GET produced the document.
	TierHTTP Tier = "http"
	// TierBrowser means a headless browser render produced the document.
	TierBrowser Tier = "browser"
)

// FetchResult is the outcome of fetching a single URL.
// Exactly one of Text and Err is meaningful.
type FetchResult struct {
	URL    string `json:"source_url"`
	Text   string `json:"article_text,omitempty"`
	Title  string `json:"title,omitempty"`
	Tier   Tier   `json:"tier,omitempty"`
	Cached bool   `json:"cached,omitempty"`
	Err    string `json:"error,omitempty"`
}

// OK reports whether the fetch produced content.
func (r FetchResult) OK() bool {
	return r.Err == ""
}

// CacheEntry is one persisted record of the result cache.
type CacheEntry struct {
	Key       string
	Timestamp time.Time
	Payload   []byte // JSON-encoded value
}

// Expired reports whether the entry is older than ttl at the given instant.
func (e *CacheEntry) Expired(ttl time.Duration, now time.Time) bool {
	return now.Sub(e.Timestamp) > ttl
}

// Chunk is a bounded slice of a document used for relevance scoring.
type Chunk struct {
	Text    string
	Ordinal int
}

// RelevantPassage is a chunk with its distance to the query.
// Lower distance means more relevant.
type RelevantPassage struct {
	Chunk    string  `json:"chunk"`
	Distance float32 `json:"score"`
}

// BatchFetchResult aggregates the outcome of fetching many URLs.
type BatchFetchResult struct {
	SourceURLs   []string      `json:"source_urls"`
	CombinedText string        `json:"combined_text"`
	Errors       []string      `json:"errors"`
	Results      []FetchResult `json:"-"`
}

// SuccessCount returns the number of fetches that produced content.
func (b *BatchFetchResult) SuccessCount() int {
	n := 0
	for _, r := range b.Results {
		if r.OK() && r.Text != "" {
			n++
		}
	}
	return n
}
