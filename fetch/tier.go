package fetch

import (
	"context"

	"github.com/poiesic/gleaner/core"
)

// Tier is one ranked method of obtaining a page's markup. Tiers are tried
// in order, each under its own retry policy, until one yields readable text.
type Tier interface {
	// Name tags results produced by this tier.
	Name() core.Tier

	// Policy returns the retry policy wrapped around Fetch.
	Policy() RetryPolicy

	// Fetch returns the raw HTML for url. Errors should wrap
	// core.ErrTransientNetwork when a retry could help and
	// core.ErrAccessDenied when the site is actively refusing.
	Fetch(ctx context.Context, url string) (string, error)
}
