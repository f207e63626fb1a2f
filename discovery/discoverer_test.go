package discovery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/poiesic/gleaner/core"
	"github.com/poiesic/gleaner/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubBackend returns canned links or an error and counts calls.
type stubBackend struct {
	name  string
	links []string
	err   error
	calls atomic.Int32
	query string
}

func (s *stubBackend) Name() string { return s.name }

func (s *stubBackend) Search(ctx context.Context, query string, limit int) ([]string, error) {
	s.calls.Add(1)
	s.query = query
	return s.links, s.err
}

func discoveredURLs(t *testing.T, r core.Result) []string {
	t.Helper()
	require.True(t, r.Success, r.Error)
	payload, ok := r.Result.(core.DiscoveryPayload)
	require.True(t, ok)
	return payload.DiscoveredURLs
}

func TestDiscover_Validation(t *testing.T) {
	primary := &stubBackend{name: "primary", links: []string{"https://a.example"}}
	d, err := NewDiscoverer([]Backend{primary})
	require.NoError(t, err)

	tests := []struct {
		name  string
		topic string
		count int
	}{
		{"empty topic", "", 3},
		{"blank topic", "   ", 3},
		{"zero count", "go", 0},
		{"negative count", "go", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := d.Discover(context.Background(), tt.topic, tt.count)
			assert.False(t, r.Success)
			assert.NotEmpty(t, r.Error)
			assert.Equal(t, core.ResultTypeObject, r.ResultType)
		})
	}
	assert.Zero(t, primary.calls.Load())
}

func TestDiscover_NormalizesAndTruncates(t *testing.T) {
	primary := &stubBackend{name: "primary", links: []string{
		"//cdn.example/a",
		"https://b.example/x",
		"https://b.example/x",
		"ftp://c.example/file",
		"/relative",
		"https://d.example/",
		"https://e.example/",
	}}
	d, err := NewDiscoverer([]Backend{primary})
	require.NoError(t, err)

	urls := discoveredURLs(t, d.Discover(context.Background(), "golang", 3))
	assert.Equal(t, []string{"https://cdn.example/a", "https://b.example/x", "https://d.example/"}, urls)
	assert.Equal(t, "golang news", primary.query)
}

func TestDiscover_FallsBackOnPrimaryFailure(t *testing.T) {
	primary := &stubBackend{name: "primary", err: ErrMissingAPIKey}
	secondary := &stubBackend{name: "secondary", links: []string{"https://fallback.example/1"}}
	d, err := NewDiscoverer([]Backend{primary, secondary})
	require.NoError(t, err)

	urls := discoveredURLs(t, d.Discover(context.Background(), "topic", 5))
	assert.Equal(t, []string{"https://fallback.example/1"}, urls)
	assert.EqualValues(t, 1, primary.calls.Load())
	assert.EqualValues(t, 1, secondary.calls.Load())
}

func TestDiscover_EmptyPrimaryCountsAsFailure(t *testing.T) {
	primary := &stubBackend{name: "primary", links: []string{"not a url"}}
	secondary := &stubBackend{name: "secondary", links: []string{"https://fallback.example/1"}}
	d, err := NewDiscoverer([]Backend{primary, secondary})
	require.NoError(t, err)

	urls := discoveredURLs(t, d.Discover(context.Background(), "topic", 5))
	assert.Equal(t, []string{"https://fallback.example/1"}, urls)
}

func TestDiscover_AllBackendsFail(t *testing.T) {
	primary := &stubBackend{name: "primary", err: fmt.Errorf("%w: quota", core.ErrBackendUnavailable)}
	secondary := &stubBackend{name: "secondary", err: errors.New("blocked")}
	d, err := NewDiscoverer([]Backend{primary, secondary})
	require.NoError(t, err)

	r := d.Discover(context.Background(), "topic", 5)
	assert.False(t, r.Success)
	assert.Contains(t, r.Error, "quota")
	assert.Contains(t, r.Error, "blocked")
	assert.Nil(t, r.Result)
}

func TestDiscover_RecoversPanics(t *testing.T) {
	d, err := NewDiscoverer([]Backend{panicBackend{}})
	require.NoError(t, err)

	r := d.Discover(context.Background(), "topic", 1)
	assert.False(t, r.Success)
	assert.Contains(t, r.Error, "internal error")
}

type panicBackend struct{}

func (panicBackend) Name() string { return "panic" }

func (panicBackend) Search(context.Context, string, int) ([]string, error) {
	panic("boom")
}

func TestDiscover_CachesSuccesses(t *testing.T) {
	cache, backend, err := badger.NewMemoryCache()
	require.NoError(t, err)
	defer backend.Close()

	primary := &stubBackend{name: "primary", links: []string{"https://a.example"}}
	d, err := NewDiscoverer([]Backend{primary}, WithCache(cache))
	require.NoError(t, err)

	first := discoveredURLs(t, d.Discover(context.Background(), "topic", 2))
	second := discoveredURLs(t, d.Discover(context.Background(), "topic", 2))
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, primary.calls.Load())

	// A different count is a different fingerprint.
	discoveredURLs(t, d.Discover(context.Background(), "topic", 3))
	assert.EqualValues(t, 2, primary.calls.Load())
}

func TestDiscover_FailuresAreNotCached(t *testing.T) {
	cache, backend, err := badger.NewMemoryCache()
	require.NoError(t, err)
	defer backend.Close()

	primary := &stubBackend{name: "primary", err: errors.New("down")}
	d, err := NewDiscoverer([]Backend{primary}, WithCache(cache))
	require.NoError(t, err)

	assert.False(t, d.Discover(context.Background(), "topic", 2).Success)
	keys, err := cache.Keys(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestNewDiscoverer_Errors(t *testing.T) {
	_, err := NewDiscoverer(nil)
	assert.ErrorIs(t, err, ErrNoBackends)

	_, err = NewDiscoverer([]Backend{&stubBackend{}}, WithCacheTTL(0))
	assert.Error(t, err)
}

func TestDiscover_SerpAPIThenScrape(t *testing.T) {
	serp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"Your account has run out of searches."}`))
	}))
	defer serp.Close()

	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "elections news", r.URL.Query().Get("q"))
		target := url.QueryEscape("https://news.example/story")
		fmt.Fprintf(w, `<html><body>
			<a class="result__a" href="//duckduckgo.com/l/?uddg=%s&rut=abc">Story</a>
			<a class="result__a" href="https://other.example/post">Post</a>
			<a class="ad" href="https://ads.example">Ad</a>
		</body></html>`, target)
	}))
	defer page.Close()

	d, err := NewDiscoverer([]Backend{
		NewSerpAPIBackend("key", WithSerpAPIURL(serp.URL)),
		NewScrapeBackend(WithScrapeURL(page.URL)),
	})
	require.NoError(t, err)

	urls := discoveredURLs(t, d.Discover(context.Background(), "elections", 5))
	assert.Equal(t, []string{"https://news.example/story", "https://other.example/post"}, urls)
}
