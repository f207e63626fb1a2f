package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/gleaner/core"
	"github.com/poiesic/gleaner/storage"
)

// DefaultCacheTTL is how long discovered links are reused.
const DefaultCacheTTL = 24 * time.Hour

// Discoverer finds candidate source URLs for a topic by trying backends in
// order until one yields links.
type Discoverer struct {
	backends []Backend
	cache    storage.ResultCache
	ttl      time.Duration
	logger   *slog.Logger
}

// Option configures a Discoverer.
type Option func(*Discoverer) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(d *Discoverer) error {
		if logger == nil {
			logger = slog.Default()
		}
		d.logger = logger.With("component", "discovery")
		return nil
	}
}

// WithCache enables result caching. A nil cache disables it.
func WithCache(cache storage.ResultCache) Option {
	return func(d *Discoverer) error {
		d.cache = cache
		return nil
	}
}

// WithCacheTTL sets how long cached links stay fresh.
func WithCacheTTL(ttl time.Duration) Option {
	return func(d *Discoverer) error {
		if ttl <= 0 {
			return fmt.Errorf("cache ttl must be positive: %s", ttl)
		}
		d.ttl = ttl
		return nil
	}
}

// NewDiscoverer creates a discoverer over the given backends, tried in order.
func NewDiscoverer(backends []Backend, opts ...Option) (*Discoverer, error) {
	if len(backends) == 0 {
		return nil, ErrNoBackends
	}
	d := &Discoverer{
		backends: backends,
		ttl:      DefaultCacheTTL,
		logger:   slog.Default().With("component", "discovery"),
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Discover returns up to desiredCount normalized source URLs for topic.
// Failures are reported in the result, never as a panic.
func (d *Discoverer) Discover(ctx context.Context, topic string, desiredCount int) (result core.Result) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("discovery panicked", "topic", topic, "panic", r)
			result = core.Recovered(r, core.ResultTypeObject)
		}
	}()

	urls, err := d.DiscoverURLs(ctx, core.SourceQuery{Topic: topic, DesiredCount: desiredCount})
	if err != nil {
		return core.Failure(err, core.ResultTypeObject)
	}
	return core.Success(core.DiscoveryPayload{DiscoveredURLs: urls}, core.ResultTypeObject)
}

// DiscoverURLs is the typed form of Discover.
func (d *Discoverer) DiscoverURLs(ctx context.Context, q core.SourceQuery) ([]string, error) {
	if err := core.ValidateSourceQuery(q); err != nil {
		return nil, err
	}
	topic := strings.TrimSpace(q.Topic)
	key := core.Fingerprint("discover", topic, strconv.Itoa(q.DesiredCount))

	if urls, ok := d.cached(ctx, key); ok {
		d.logger.Debug("discovery cache hit", "topic", topic, "count", len(urls))
		return urls, nil
	}

	query := topic + " news"
	var errs []error
	for i, backend := range d.backends {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", core.ErrInternal, err)
		}

		links, err := backend.Search(ctx, query, q.DesiredCount)
		if err == nil {
			links = core.NormalizeURLs(links, q.DesiredCount)
			if len(links) == 0 {
				err = ErrNoResults
			}
		}
		if err != nil {
			d.logger.Warn("discovery backend failed",
				"backend", backend.Name(),
				"kind", core.Classify(err),
				"err", err)
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
			continue
		}

		if i > 0 {
			d.logger.Warn("discovery degraded to fallback backend", "backend", backend.Name())
		}
		d.logger.Info("discovered sources", "topic", topic, "backend", backend.Name(), "count", len(links))
		d.store(ctx, key, links)
		return links, nil
	}

	return nil, fmt.Errorf("all discovery backends failed: %w", errors.Join(errs...))
}

func (d *Discoverer) cached(ctx context.Context, key string) ([]string, bool) {
	if d.cache == nil {
		return nil, false
	}
	var urls []string
	err := storage.GetJSON(ctx, d.cache, key, d.ttl, &urls)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			d.logger.Warn("discovery cache read failed", "err", err)
		}
		return nil, false
	}
	return urls, true
}

func (d *Discoverer) store(ctx context.Context, key string, urls []string) {
	if d.cache == nil {
		return
	}
	if err := storage.PutJSON(ctx, d.cache, key, urls); err != nil {
		d.logger.Warn("discovery cache write failed", "err", err)
	}
}
