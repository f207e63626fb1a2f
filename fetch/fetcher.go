package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/gleaner/core"
	"github.com/poiesic/gleaner/storage"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultCacheTTL is how long fetched text is reused.
	DefaultCacheTTL = time.Hour
	// DefaultPoolSize is the number of concurrent fetches in a batch.
	DefaultPoolSize = 8
	// DefaultCallTimeout bounds one URL, all tiers included. It leaves room
	// for the HTTP tier's full retry budget followed by one browser render.
	DefaultCallTimeout = 90 * time.Second
	// DefaultBatchTimeout bounds a whole batch.
	DefaultBatchTimeout = 2 * time.Minute

	releaseTimeout = 5 * time.Second
)

// Fetcher turns URLs into cleaned article text. Each URL goes through the
// cache and then the configured tiers in order. Concurrent requests for the
// same URL share one underlying fetch.
type Fetcher struct {
	tiers        []Tier
	cache        storage.ResultCache
	ttl          time.Duration
	pool         *ants.Pool
	poolSize     int
	callTimeout  time.Duration
	batchTimeout time.Duration
	group        singleflight.Group
	logger       *slog.Logger

	mu      sync.Mutex
	flights map[string]*flight
	nextID  uint64
}

// flight is one shared fetch and the callers still waiting on it. The work
// runs under its own context, bounded by the call timeout, and is cancelled
// once every waiter has given up.
type flight struct {
	id      string
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// Option configures a Fetcher.
type Option func(*Fetcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		f.logger = logger.With("component", "fetch")
		return nil
	}
}

// WithCache enables result caching. A nil cache disables it.
func WithCache(cache storage.ResultCache) Option {
	return func(f *Fetcher) error {
		f.cache = cache
		return nil
	}
}

// WithCacheTTL sets how long cached text stays fresh.
func WithCacheTTL(ttl time.Duration) Option {
	return func(f *Fetcher) error {
		if ttl <= 0 {
			return fmt.Errorf("cache ttl must be positive: %s", ttl)
		}
		f.ttl = ttl
		return nil
	}
}

// WithPoolSize sets the worker pool size for batch fetches.
// Default is DefaultPoolSize.
func WithPoolSize(size int) Option {
	return func(f *Fetcher) error {
		if size < 1 {
			size = 1
		}
		f.poolSize = size
		return nil
	}
}

// WithCallTimeout bounds each URL, all tiers included.
func WithCallTimeout(d time.Duration) Option {
	return func(f *Fetcher) error {
		if d <= 0 {
			return fmt.Errorf("call timeout must be positive: %s", d)
		}
		f.callTimeout = d
		return nil
	}
}

// WithBatchTimeout bounds a whole batch. Fetches still running at the
// deadline are abandoned and reported as timeouts.
func WithBatchTimeout(d time.Duration) Option {
	return func(f *Fetcher) error {
		if d <= 0 {
			return fmt.Errorf("batch timeout must be positive: %s", d)
		}
		f.batchTimeout = d
		return nil
	}
}

// NewFetcher creates a fetcher over tiers, tried in order.
// Call Close to release the worker pool.
func NewFetcher(tiers []Tier, opts ...Option) (*Fetcher, error) {
	if len(tiers) == 0 {
		return nil, ErrNoTiers
	}

	f := &Fetcher{
		tiers:        tiers,
		ttl:          DefaultCacheTTL,
		poolSize:     DefaultPoolSize,
		callTimeout:  DefaultCallTimeout,
		batchTimeout: DefaultBatchTimeout,
		logger:       slog.Default().With("component", "fetch"),
		flights:      make(map[string]*flight),
	}

	for _, opt := range opts {
		if optErr := opt(f); optErr != nil {
			return nil, optErr
		}
	}

	pool, err := ants.NewPool(f.poolSize)
	if err != nil {
		return nil, err
	}
	f.pool = pool
	return f, nil
}

// Close releases the worker pool and waits briefly for workers to exit.
func (f *Fetcher) Close() error {
	return f.pool.ReleaseTimeout(releaseTimeout)
}

// cachedPage is the cache payload for a fetched URL.
type cachedPage struct {
	Text  string    `json:"text"`
	Title string    `json:"title,omitempty"`
	Tier  core.Tier `json:"tier"`
}

func failed(url string, cause error) core.FetchResult {
	return core.FetchResult{
		URL: url,
		Err: fmt.Sprintf("%s fetch failed: %v", url, cause),
	}
}

// FetchOne fetches a single URL. It never panics and never returns an
// error value; failures are described in the result's Err field.
func (f *Fetcher) FetchOne(ctx context.Context, url string) core.FetchResult {
	if err := core.ValidateURL(url); err != nil {
		return failed(url, err)
	}

	key := core.Fingerprint("fetch", url)
	fl := f.join(ctx, key)
	defer f.leave(key, fl)

	ch := f.group.DoChan(fl.id, func() (any, error) {
		defer f.retire(key, fl)
		return f.fetch(fl.ctx, url, key), nil
	})

	select {
	case res := <-ch:
		if res.Shared {
			f.logger.Debug("fetch coalesced", "url", url)
		}
		return res.Val.(core.FetchResult)
	case <-ctx.Done():
		return failed(url, ErrTimeout)
	}
}

// join registers a waiter on the flight for key, starting a new flight if
// none is in progress. The flight's context is detached from ctx so one
// caller's deadline never decides the outcome for the others.
func (f *Fetcher) join(ctx context.Context, key string) *flight {
	f.mu.Lock()
	defer f.mu.Unlock()

	fl, ok := f.flights[key]
	if !ok {
		f.nextID++
		workCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.callTimeout)
		fl = &flight{
			id:     key + "#" + strconv.FormatUint(f.nextID, 10),
			ctx:    workCtx,
			cancel: cancel,
		}
		f.flights[key] = fl
	}
	fl.waiters++
	return fl
}

// leave drops a waiter and cancels the flight when it was the last one.
func (f *Fetcher) leave(key string, fl *flight) {
	f.mu.Lock()
	defer f.mu.Unlock()

	fl.waiters--
	if fl.waiters > 0 {
		return
	}
	fl.cancel()
	if f.flights[key] == fl {
		delete(f.flights, key)
	}
}

// retire stops new callers from joining a finished flight.
func (f *Fetcher) retire(key string, fl *flight) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.flights[key] == fl {
		delete(f.flights, key)
	}
}

func (f *Fetcher) fetch(ctx context.Context, url, key string) (result core.FetchResult) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("fetch panicked", "url", url, "panic", r)
			result = failed(url, fmt.Errorf("%w: %v", core.ErrInternal, r))
		}
	}()

	if page, ok := f.cached(ctx, key); ok {
		f.logger.Debug("fetch cache hit", "url", url)
		return core.FetchResult{
			URL:    url,
			Text:   page.Text,
			Title:  page.Title,
			Tier:   core.TierCache,
			Cached: true,
		}
	}

	var causes []string
	for _, tier := range f.tiers {
		page, err := f.tryTier(ctx, tier, url)
		if err == nil {
			f.logger.Info("fetched", "url", url, "tier", tier.Name(), "length", len(page.Text))
			f.store(ctx, key, cachedPage{Text: page.Text, Title: page.Title, Tier: tier.Name()})
			return core.FetchResult{
				URL:   url,
				Text:  page.Text,
				Title: page.Title,
				Tier:  tier.Name(),
			}
		}

		if ctx.Err() != nil {
			return failed(url, ErrTimeout)
		}
		f.logger.Warn("fetch tier failed",
			"url", url,
			"tier", tier.Name(),
			"kind", core.Classify(err),
			"err", err)
		causes = append(causes, fmt.Sprintf("%s: %v", tier.Name(), err))
	}

	return failed(url, errors.New(strings.Join(causes, "; ")))
}

// tryTier runs one tier under its retry policy and cleans the result.
func (f *Fetcher) tryTier(ctx context.Context, tier Tier, url string) (Page, error) {
	var html string
	err := Retry(ctx, f.logger.With("tier", tier.Name()), tier.Policy(), func() error {
		var fetchErr error
		html, fetchErr = tier.Fetch(ctx, url)
		return fetchErr
	})
	if err != nil {
		return Page{}, err
	}

	page, err := Clean(html)
	if err != nil {
		return Page{}, fmt.Errorf("%w: cleaning: %w", core.ErrInternal, err)
	}
	if page.Text == "" {
		return Page{}, ErrEmptyContent
	}
	return page, nil
}

func (f *Fetcher) cached(ctx context.Context, key string) (cachedPage, bool) {
	var page cachedPage
	if f.cache == nil {
		return page, false
	}
	if err := storage.GetJSON(ctx, f.cache, key, f.ttl, &page); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			f.logger.Warn("fetch cache read failed", "err", err)
		}
		return page, false
	}
	return page, page.Text != ""
}

func (f *Fetcher) store(ctx context.Context, key string, page cachedPage) {
	if f.cache == nil {
		return
	}
	if err := storage.PutJSON(ctx, f.cache, key, page); err != nil {
		f.logger.Warn("fetch cache write failed", "err", err)
	}
}

// FetchMany fetches every URL concurrently and joins on all of them. The
// call succeeds whenever the batch ran, even if every URL failed; only a
// malformed list yields success=false.
func (f *Fetcher) FetchMany(ctx context.Context, urls []string) (result core.Result) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("batch fetch panicked", "panic", r)
			result = core.Recovered(r, core.ResultTypeObject)
		}
	}()

	if err := core.ValidateURLList(urls); err != nil {
		return core.Failure(err, core.ResultTypeObject)
	}
	batch := f.FetchBatch(ctx, urls)
	return core.Success(batch, core.ResultTypeObject)
}

type completion struct {
	idx int
	res core.FetchResult
}

// FetchBatch is the typed form of FetchMany. It does not validate urls.
func (f *Fetcher) FetchBatch(ctx context.Context, urls []string) *core.BatchFetchResult {
	batchCtx, cancel := context.WithTimeout(ctx, f.batchTimeout)
	defer cancel()

	done := make(chan completion, len(urls))
	for i, u := range urls {
		err := f.pool.Submit(func() {
			callCtx, callCancel := context.WithTimeout(batchCtx, f.callTimeout)
			defer callCancel()
			done <- completion{idx: i, res: f.FetchOne(callCtx, u)}
		})
		if err != nil {
			done <- completion{idx: i, res: failed(u, fmt.Errorf("%w: %w", core.ErrInternal, err))}
		}
	}

	results := make([]core.FetchResult, len(urls))
	settled := make([]bool, len(urls))
	errs := []string{}
	remaining := len(urls)

wait:
	for remaining > 0 {
		select {
		case c := <-done:
			results[c.idx] = c.res
			settled[c.idx] = true
			remaining--
			if !c.res.OK() {
				errs = append(errs, c.res.Err)
			}
		case <-batchCtx.Done():
			break wait
		}
	}

	for i, ok := range settled {
		if !ok {
			results[i] = failed(urls[i], ErrTimeout)
			errs = append(errs, results[i].Err)
		}
	}

	var parts []string
	for _, r := range results {
		if r.OK() && r.Text != "" {
			parts = append(parts, "Source: "+r.URL+"\n"+r.Text)
		}
	}

	batch := &core.BatchFetchResult{
		SourceURLs:   append([]string(nil), urls...),
		CombinedText: strings.Join(parts, "\n\n"),
		Errors:       errs,
		Results:      results,
	}
	f.logger.Info("batch fetch complete",
		"urls", len(urls),
		"succeeded", batch.SuccessCount(),
		"failed", len(errs))
	return batch
}
