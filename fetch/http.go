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

package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/poiesic/gleaner/core"
)

const (
	defaultHTTPTimeout  = 15 * time.Second
	defaultMaxBodyBytes = 5 << 20
)

// HTTPTier fetches pages with a plain GET request.
type HTTPTier struct {
	client       *http.Client
	timeout      time.Duration
	maxBodyBytes int64
	policy       RetryPolicy
}

var _ Tier = (*HTTPTier)(nil)

// HTTPOption configures an HTTPTier.
type HTTPOption func(*HTTPTier)

// WithHTTPClient sets the client used for requests.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(t *HTTPTier) {
		if c != nil {
			t.client = c
		}
	}
}

// WithHTTPTimeout sets the per-attempt timeout.
func WithHTTPTimeout(d time.Duration) HTTPOption {
	return func(t *HTTPTier) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// WithHTTPRetry sets the retry policy.
func WithHTTPRetry(p RetryPolicy) HTTPOption {
	return func(t *HTTPTier) {
		t.policy = p
	}
}

// WithMaxBodyBytes caps how much of a response body is read.
func WithMaxBodyBytes(n int64) HTTPOption {
	return func(t *HTTPTier) {
		if n > 0 {
			t.maxBodyBytes = n
		}
	}
}

// NewHTTPTier creates the lightweight tier: 15s per attempt, 3 attempts
// two seconds apart.
func NewHTTPTier(opts ...HTTPOption) *HTTPTier {
	t := &HTTPTier{
		client:       &http.Client{},
		timeout:      defaultHTTPTimeout,
		maxBodyBytes: defaultMaxBodyBytes,
		policy:       RetryPolicy{MaxAttempts: 3, Delay: 2 * time.Second},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name returns core.TierHTTP.
func (t *HTTPTier) Name() core.Tier {
	return core.TierHTTP
}

// Policy returns the tier's retry policy.
func (t *HTTPTier) Policy() RetryPolicy {
	return t.policy
}

// Fetch performs one GET with a random browser identity.
func (t *HTTPTier) Fetch(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrValidation, err)
	}
	req.Header.Set("User-Agent", core.RandomUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrTransientNetwork, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		// Drain a little so the connection can be reused.
		_, _ = io.CopyN(io.Discard, resp.Body, 4<<10)
		return "", err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, t.maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("%w: reading body: %w", core.ErrTransientNetwork, err)
	}
	return string(body), nil
}

// classifyStatus maps a response status to the error taxonomy.
func classifyStatus(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized,
		status == http.StatusForbidden,
		status == http.StatusTooManyRequests,
		status == http.StatusUnavailableForLegalReasons:
		return fmt.Errorf("%w: status %d", core.ErrAccessDenied, status)
	default:
		return fmt.Errorf("%w: status %d", core.ErrTransientNetwork, status)
	}
}
