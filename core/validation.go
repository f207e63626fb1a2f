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
	"fmt"
	"net/url"
	"strings"
)

// ValidateSourceQuery validates a discovery request.
//
// Validation rules:
//   - Topic must contain non-whitespace characters
//   - DesiredCount must be at least 1
func ValidateSourceQuery(q SourceQuery) error {
	if strings.TrimSpace(q.Topic) == "" {
		return fmt.Errorf("%w: %w", ErrValidation, ErrEmptyTopic)
	}
	if q.DesiredCount < 1 {
		return fmt.Errorf("%w: %w: %d", ErrValidation, ErrInvalidCount, q.DesiredCount)
	}
	return nil
}

// ValidateURL checks that raw is an absolute http or https URL with a host.
func ValidateURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("%w: %w: empty", ErrValidation, ErrInvalidURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %w: %v", ErrValidation, ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %w: %q", ErrValidation, ErrInvalidURL, raw)
	}
	return nil
}

// ValidateURLList checks the shape of a batch of URLs: the list must be
// non-empty and no entry may be blank. Entries that are present but not
// valid URLs are left to the caller to report per source.
func ValidateURLList(urls []string) error {
	if len(urls) == 0 {
		return fmt.Errorf("%w: %w", ErrValidation, ErrEmptyURLList)
	}
	for i, u := range urls {
		if strings.TrimSpace(u) == "" {
			return fmt.Errorf("%w: %w: empty entry at index %d", ErrValidation, ErrInvalidURL, i)
		}
	}
	return nil
}

// ValidateQuery checks a semantic filter query.
func ValidateQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("%w: %w", ErrValidation, ErrEmptyQuery)
	}
	return nil
}

// NormalizeURL rewrites protocol-relative links to https and trims
// whitespace. It returns "" for anything that is not absolute http(s).
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}
	if ValidateURL(raw) != nil {
		return ""
	}
	return raw
}

// NormalizeURLs normalizes, deduplicates and truncates links to limit.
// Order of first occurrence is preserved. A limit below 1 means no limit.
func NormalizeURLs(links []string, limit int) []string {
	seen := make(map[string]bool, len(links))
	out := make([]string, 0, len(links))
	for _, link := range links {
		n := NormalizeURL(link)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
