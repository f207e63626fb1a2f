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

package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/poiesic/gleaner/core"
)

const defaultSerpAPIURL = "https://serpapi.com/search.json"

// SerpAPIBackend queries the SerpApi Google engine.
type SerpAPIBackend struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// SerpAPIOption configures a SerpAPIBackend.
type SerpAPIOption func(*SerpAPIBackend)

// WithSerpAPIURL overrides the endpoint, mainly for tests.
func WithSerpAPIURL(u string) SerpAPIOption {
	return func(b *SerpAPIBackend) {
		b.baseURL = u
	}
}

// WithSerpAPIClient overrides the HTTP client.
func WithSerpAPIClient(c *http.Client) SerpAPIOption {
	return func(b *SerpAPIBackend) {
		b.client = c
	}
}

// NewSerpAPIBackend creates the credentialed search backend. An empty key is
// accepted; every Search then fails with ErrMissingAPIKey so the discoverer
// falls through to the next backend.
func NewSerpAPIBackend(apiKey string, opts ...SerpAPIOption) *SerpAPIBackend {
	b := &SerpAPIBackend{
		apiKey:  apiKey,
		baseURL: defaultSerpAPIURL,
		client:  newHTTPClient(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns "serpapi".
func (b *SerpAPIBackend) Name() string {
	return "serpapi"
}

type serpAPIResponse struct {
	Error          string `json:"error"`
	OrganicResults []struct {
		Link string `json:"link"`
	} `json:"organic_results"`
}

// Search issues one request and returns the organic result links.
func (b *SerpAPIBackend) Search(ctx context.Context, query string, limit int) ([]string, error) {
	if b.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("engine", "google")
	params.Set("num", strconv.Itoa(limit))
	params.Set("api_key", b.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrBackendUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", core.ErrBackendUnavailable, err)
	}

	var parsed serpAPIResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		if resp.StatusCode/100 != 2 {
			return nil, fmt.Errorf("%w: status %d", core.ErrBackendUnavailable, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: malformed response: %w", core.ErrBackendUnavailable, err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("%w: %s", core.ErrBackendUnavailable, parsed.Error)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("%w: status %d", core.ErrBackendUnavailable, resp.StatusCode)
	}

	links := make([]string, 0, len(parsed.OrganicResults))
	for _, r := range parsed.OrganicResults {
		if r.Link != "" {
			links = append(links, r.Link)
		}
	}
	return links, nil
}
