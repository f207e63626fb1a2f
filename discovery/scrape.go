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
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/poiesic/gleaner/core"
)

const (
	defaultScrapeURL      = "https://html.duckduckgo.com/html/"
	defaultResultSelector = "a.result__a"
)

// ScrapeBackend reads links out of a public search results page.
type ScrapeBackend struct {
	baseURL  string
	selector string
	client   *http.Client
}

// ScrapeOption configures a ScrapeBackend.
type ScrapeOption func(*ScrapeBackend)

// WithScrapeURL overrides the results page URL. The query is sent as q.
func WithScrapeURL(u string) ScrapeOption {
	return func(b *ScrapeBackend) {
		b.baseURL = u
	}
}

// WithResultSelector overrides the CSS selector matching result anchors.
func WithResultSelector(sel string) ScrapeOption {
	return func(b *ScrapeBackend) {
		b.selector = sel
	}
}

// WithScrapeClient overrides the HTTP client.
func WithScrapeClient(c *http.Client) ScrapeOption {
	return func(b *ScrapeBackend) {
		b.client = c
	}
}

// NewScrapeBackend creates the fallback search backend.
func NewScrapeBackend(opts ...ScrapeOption) *ScrapeBackend {
	b := &ScrapeBackend{
		baseURL:  defaultScrapeURL,
		selector: defaultResultSelector,
		client:   newHTTPClient(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns "scrape".
func (b *ScrapeBackend) Name() string {
	return "scrape"
}

// Search fetches the results page with a random browser identity and
// extracts the result anchors. The page decides how many results it shows;
// limit is left to the caller.
func (b *ScrapeBackend) Search(ctx context.Context, query string, limit int) ([]string, error) {
	target, err := url.Parse(b.baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: bad scrape url: %w", core.ErrBackendUnavailable, err)
	}
	q := target.Query()
	q.Set("q", query)
	target.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrBackendUnavailable, err)
	}
	req.Header.Set("User-Agent", core.RandomUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("%w: status %d", core.ErrBackendUnavailable, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing results page: %w", core.ErrBackendUnavailable, err)
	}

	var links []string
	doc.Find(b.selector).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		if link := unwrapRedirect(target, href); link != "" {
			links = append(links, link)
		}
	})
	return links, nil
}

// unwrapRedirect resolves href against the page URL and, when it points at
// a redirector carrying the destination in uddg, returns that destination.
func unwrapRedirect(page *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if dest := ref.Query().Get("uddg"); dest != "" {
		return dest
	}
	if strings.HasPrefix(href, "//") {
		return href
	}
	return page.ResolveReference(ref).String()
}
