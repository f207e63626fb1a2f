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

// Package gleaner wires the cache, AI provider, discovery, fetching,
// filtering and the pipeline into one process-scoped object.
//
//	cfg, err := gleaner.LoadConfig("gleaner.yaml")
//	g, err := gleaner.New(cfg)
//	defer g.Close()
//	res := g.Pipeline().Run(ctx, pipeline.Request{Topic: "chip exports", Query: "tariffs"})
package gleaner

import (
	"log/slog"

	"github.com/poiesic/gleaner/ai"
	"github.com/poiesic/gleaner/ai/openai"
	"github.com/poiesic/gleaner/discovery"
	"github.com/poiesic/gleaner/fetch"
	"github.com/poiesic/gleaner/filter"
	"github.com/poiesic/gleaner/pipeline"
	"github.com/poiesic/gleaner/storage"
	"github.com/poiesic/gleaner/storage/badger"
)

// Gleaner owns every long-lived component of a process.
type Gleaner struct {
	config     *Config
	backend    *badger.Backend
	cache      storage.ResultCache
	provider   ai.AIProvider
	discoverer *discovery.Discoverer
	fetcher    *fetch.Fetcher
	filter     *filter.Filter
	pipeline   *pipeline.Pipeline
	logger     *slog.Logger
}

// Option configures a Gleaner.
type Option func(*gleanerOptions)

type gleanerOptions struct {
	provider ai.AIProvider
	backends []discovery.Backend
	tiers    []fetch.Tier
	logger   *slog.Logger
}

// WithAIProvider replaces the OpenAI-compatible provider built from config.
func WithAIProvider(p ai.AIProvider) Option {
	return func(o *gleanerOptions) {
		o.provider = p
	}
}

// WithDiscoveryBackends replaces the SerpApi and scrape backends.
func WithDiscoveryBackends(backends ...discovery.Backend) Option {
	return func(o *gleanerOptions) {
		o.backends = backends
	}
}

// WithFetchTiers replaces the HTTP and browser tiers.
func WithFetchTiers(tiers ...fetch.Tier) Option {
	return func(o *gleanerOptions) {
		o.tiers = tiers
	}
}

// WithLogger sets the logger handed to every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *gleanerOptions) {
		o.logger = logger
	}
}

// New builds a Gleaner from cfg. A nil cfg uses DefaultConfig.
func New(cfg *Config, opts ...Option) (*Gleaner, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := &gleanerOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	g := &Gleaner{
		config: cfg,
		logger: options.logger.With("component", "gleaner"),
	}

	// Open backend
	backend, err := badger.OpenBackend(cfg.Cache.Dir, cfg.Cache.InMemory)
	if err != nil {
		return nil, err
	}
	g.backend = backend

	cache, err := badger.NewCache(backend, badger.WithMaxAge(cfg.Cache.MaxAge))
	if err != nil {
		g.Close()
		return nil, err
	}
	g.cache = cache

	// Create AI provider with configured settings
	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(&cfg.AI)
		if err != nil {
			g.Close()
			return nil, err
		}
	}
	g.provider = provider

	backends := options.backends
	if len(backends) == 0 {
		backends = g.defaultBackends()
	}
	g.discoverer, err = discovery.NewDiscoverer(backends,
		discovery.WithLogger(options.logger),
		discovery.WithCache(cache),
		discovery.WithCacheTTL(cfg.Discovery.CacheTTL))
	if err != nil {
		g.Close()
		return nil, err
	}

	tiers := options.tiers
	if len(tiers) == 0 {
		tiers = g.defaultTiers()
	}
	g.fetcher, err = fetch.NewFetcher(tiers,
		fetch.WithLogger(options.logger),
		fetch.WithCache(cache),
		fetch.WithCacheTTL(cfg.Fetch.CacheTTL),
		fetch.WithPoolSize(cfg.Fetch.PoolSize),
		fetch.WithCallTimeout(cfg.Fetch.CallTimeout),
		fetch.WithBatchTimeout(cfg.Fetch.BatchTimeout))
	if err != nil {
		g.Close()
		return nil, err
	}

	g.filter, err = filter.NewFilter(provider.Embedder(),
		filter.WithLogger(options.logger),
		filter.WithChunker(filter.Chunker{MinLength: cfg.Filter.MinChunkLength, MaxLength: cfg.Filter.MaxChunkLength}),
		filter.WithNormalization(cfg.Filter.Normalize))
	if err != nil {
		g.Close()
		return nil, err
	}

	g.pipeline, err = pipeline.NewPipeline(g.discoverer, g.fetcher, g.filter,
		pipeline.WithLogger(options.logger),
		pipeline.WithSummarizer(provider.Summarizer()),
		pipeline.WithSummaryOptions(cfg.SummaryOptions()))
	if err != nil {
		g.Close()
		return nil, err
	}

	return g, nil
}

func (g *Gleaner) defaultBackends() []discovery.Backend {
	d := g.config.Discovery

	var serpOpts []discovery.SerpAPIOption
	if d.SerpAPIURL != "" {
		serpOpts = append(serpOpts, discovery.WithSerpAPIURL(d.SerpAPIURL))
	}
	var scrapeOpts []discovery.ScrapeOption
	if d.ScrapeURL != "" {
		scrapeOpts = append(scrapeOpts, discovery.WithScrapeURL(d.ScrapeURL))
	}
	if d.ResultSelector != "" {
		scrapeOpts = append(scrapeOpts, discovery.WithResultSelector(d.ResultSelector))
	}

	return []discovery.Backend{
		discovery.NewSerpAPIBackend(d.SerpAPIKey, serpOpts...),
		discovery.NewScrapeBackend(scrapeOpts...),
	}
}

func (g *Gleaner) defaultTiers() []fetch.Tier {
	f := g.config.Fetch
	tiers := []fetch.Tier{
		fetch.NewHTTPTier(
			fetch.WithHTTPTimeout(f.HTTPTimeout),
			fetch.WithMaxBodyBytes(f.MaxBodyBytes),
			fetch.WithHTTPRetry(fetch.RetryPolicy{MaxAttempts: f.HTTPAttempts, Delay: f.HTTPRetryDelay})),
	}
	if f.Browser {
		tiers = append(tiers, fetch.NewBrowserTier(
			fetch.WithMaxSessions(f.BrowserSessions),
			fetch.WithBrowserTimeout(f.BrowserTimeout)))
	}
	return tiers
}

// Close releases every component in reverse order of creation. It is safe
// to call on a partially built Gleaner.
func (g *Gleaner) Close() error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if g.fetcher != nil {
		if err := g.fetcher.Close(); err != nil {
			g.logger.Error("error closing fetcher", "err", err)
			keep(err)
		}
	}
	if g.provider != nil {
		if err := g.provider.Close(); err != nil {
			g.logger.Error("error closing AI provider", "err", err)
		}
	}
	if g.cache != nil {
		if err := g.cache.Close(); err != nil {
			g.logger.Error("error closing result cache", "err", err)
			keep(err)
		}
	}
	if g.backend != nil && !g.backend.IsClosed() {
		if err := g.backend.Close(); err != nil {
			g.logger.Error("error closing backend storage", "err", err)
			keep(err)
		}
	}
	return firstErr
}

// Config returns the validated configuration.
func (g *Gleaner) Config() *Config {
	return g.config
}

// Cache returns the shared result cache.
func (g *Gleaner) Cache() storage.ResultCache {
	return g.cache
}

// Discoverer returns the source discoverer.
func (g *Gleaner) Discoverer() *discovery.Discoverer {
	return g.discoverer
}

// Fetcher returns the content fetcher.
func (g *Gleaner) Fetcher() *fetch.Fetcher {
	return g.fetcher
}

// Filter returns the semantic filter.
func (g *Gleaner) Filter() *filter.Filter {
	return g.filter
}

// Pipeline returns the orchestrator.
func (g *Gleaner) Pipeline() *pipeline.Pipeline {
	return g.pipeline
}

// Summarizer returns the summarization backend.
func (g *Gleaner) Summarizer() ai.Summarizer {
	return g.provider.Summarizer()
}
