package discovery

import (
	"context"
	"net/http"
	"time"
)

// defaultSearchTimeout bounds a single backend request.
const defaultSearchTimeout = 15 * time.Second

// Backend turns a search query into result links.
// Implementations must be safe for concurrent use.
type Backend interface {
	// Name identifies the backend in logs and error messages.
	Name() string

	// Search returns up to limit result links in backend rank order.
	// Links may be relative, protocol-relative or duplicated; the
	// discoverer normalizes them.
	Search(ctx context.Context, query string, limit int) ([]string, error)
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultSearchTimeout}
}
