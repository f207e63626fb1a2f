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
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/poiesic/gleaner/core"
	"golang.org/x/sync/semaphore"
)

const (
	defaultBrowserTimeout  = 30 * time.Second
	defaultBrowserSessions = 2
)

// RenderFunc loads url in a browser presenting userAgent and returns the
// rendered document markup.
type RenderFunc func(ctx context.Context, url, userAgent string) (string, error)

// BrowserTier renders pages in a headless browser. Each call launches and
// tears down its own browser; the number of concurrent sessions is bounded.
type BrowserTier struct {
	sem     *semaphore.Weighted
	timeout time.Duration
	policy  RetryPolicy
	render  RenderFunc
}

var _ Tier = (*BrowserTier)(nil)

// BrowserOption configures a BrowserTier.
type BrowserOption func(*BrowserTier)

// WithMaxSessions bounds concurrent browser sessions.
func WithMaxSessions(n int64) BrowserOption {
	return func(t *BrowserTier) {
		if n > 0 {
			t.sem = semaphore.NewWeighted(n)
		}
	}
}

// WithBrowserTimeout sets the navigation timeout.
func WithBrowserTimeout(d time.Duration) BrowserOption {
	return func(t *BrowserTier) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// WithBrowserRetry sets the retry policy.
func WithBrowserRetry(p RetryPolicy) BrowserOption {
	return func(t *BrowserTier) {
		t.policy = p
	}
}

// WithRenderer replaces the rod renderer.
func WithRenderer(fn RenderFunc) BrowserOption {
	return func(t *BrowserTier) {
		if fn != nil {
			t.render = fn
		}
	}
}

// NewBrowserTier creates the headless render tier: two sessions at most,
// 30s per navigation, a single attempt.
func NewBrowserTier(opts ...BrowserOption) *BrowserTier {
	t := &BrowserTier{
		sem:     semaphore.NewWeighted(defaultBrowserSessions),
		timeout: defaultBrowserTimeout,
		policy:  RetryPolicy{MaxAttempts: 1},
		render:  renderWithRod,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name returns core.TierBrowser.
func (t *BrowserTier) Name() core.Tier {
	return core.TierBrowser
}

// Policy returns the tier's retry policy.
func (t *BrowserTier) Policy() RetryPolicy {
	return t.policy
}

// Fetch waits for a free session slot and renders url.
func (t *BrowserTier) Fetch(ctx context.Context, url string) (string, error) {
	if err := t.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("%w: waiting for browser session: %w", core.ErrTransientNetwork, err)
	}
	defer t.sem.Release(1)

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	html, err := t.render(ctx, url, core.RandomUserAgent())
	if err != nil {
		return "", fmt.Errorf("%w: browser render: %w", core.ErrTransientNetwork, err)
	}
	return html, nil
}

// renderWithRod launches a headless browser, navigates until the DOM is
// parsed and returns the document markup.
func renderWithRod(ctx context.Context, url, userAgent string) (string, error) {
	l := launcher.New().Context(ctx).Headless(true)
	controlURL, err := l.Launch()
	if err != nil {
		return "", fmt.Errorf("launch browser: %w", err)
	}
	defer l.Cleanup()

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return "", fmt.Errorf("connect to browser: %w", err)
	}
	defer browser.Close()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", fmt.Errorf("open page: %w", err)
	}
	defer page.Close()

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: userAgent}); err != nil {
		return "", fmt.Errorf("set user agent: %w", err)
	}

	wait := page.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := page.Navigate(url); err != nil {
		return "", fmt.Errorf("navigate: %w", err)
	}
	wait()

	html, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	return html, nil
}
