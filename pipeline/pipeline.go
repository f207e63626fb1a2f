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

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/poiesic/gleaner/ai"
	"github.com/poiesic/gleaner/core"
)

// DefaultDesiredCount is the number of sources discovered when a request
// does not say.
const DefaultDesiredCount = 5

// Discoverer finds source URLs for a topic.
type Discoverer interface {
	DiscoverURLs(ctx context.Context, q core.SourceQuery) ([]string, error)
}

// Fetcher turns URLs into cleaned text.
type Fetcher interface {
	FetchOne(ctx context.Context, url string) core.FetchResult
	FetchBatch(ctx context.Context, urls []string) *core.BatchFetchResult
}

// PassageFilter selects the passages of a document relevant to a query.
type PassageFilter interface {
	Passages(ctx context.Context, document, query string, k int) ([]core.RelevantPassage, error)
}

// Request describes one run. Exactly one of Topic and URLs must be set.
type Request struct {
	Topic        string   `json:"topic,omitempty"`
	URLs         []string `json:"urls,omitempty"`
	Query        string   `json:"query,omitempty"`
	DesiredCount int      `json:"desired_count,omitempty"`
	TopK         int      `json:"top_k,omitempty"`
	Summarize    bool     `json:"summarize,omitempty"`
}

// Report is the payload of a successful run.
type Report struct {
	RunID    string                 `json:"run_id"`
	Topic    string                 `json:"topic,omitempty"`
	Query    string                 `json:"query,omitempty"`
	Sources  []string               `json:"sources"`
	Errors   []string               `json:"errors"`
	Passages []core.RelevantPassage `json:"passages,omitempty"`
	Text     string                 `json:"text"`
	Summary  string                 `json:"summary,omitempty"`
}

// Pipeline orchestrates discovery, fetching, filtering and summarization.
type Pipeline struct {
	discoverer  Discoverer
	fetcher     Fetcher
	filter      PassageFilter
	summarizer  ai.Summarizer
	summaryOpts ai.SummaryOptions
	logger      *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger.With("component", "pipeline")
		return nil
	}
}

// WithSummarizer enables summaries for requests that ask for one.
func WithSummarizer(s ai.Summarizer) Option {
	return func(p *Pipeline) error {
		p.summarizer = s
		return nil
	}
}

// WithSummaryOptions sets the summary length bounds.
// Default is ai.DefaultSummaryOptions().
func WithSummaryOptions(opts ai.SummaryOptions) Option {
	return func(p *Pipeline) error {
		if opts.MinLength < 0 || opts.MaxLength < opts.MinLength {
			return fmt.Errorf("invalid summary bounds: min %d, max %d", opts.MinLength, opts.MaxLength)
		}
		p.summaryOpts = opts
		return nil
	}
}

// NewPipeline creates a new pipeline.
func NewPipeline(discoverer Discoverer, fetcher Fetcher, filter PassageFilter, opts ...Option) (*Pipeline, error) {
	if discoverer == nil {
		return nil, ErrDiscovererRequired
	}
	if fetcher == nil {
		return nil, ErrFetcherRequired
	}
	if filter == nil {
		return nil, ErrFilterRequired
	}

	p := &Pipeline{
		discoverer:  discoverer,
		fetcher:     fetcher,
		filter:      filter,
		summaryOpts: ai.DefaultSummaryOptions(),
		logger:      slog.Default().With("component", "pipeline"),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Run executes req and returns a Report on success.
func (p *Pipeline) Run(ctx context.Context, req Request) core.Result {
	return p.RunWithMonitor(ctx, req, nil)
}

// RunWithMonitor executes req, reporting each stage to monitor.
//
// The run succeeds when at least one source produced text. Otherwise the
// result has success=false and lists every error collected along the way.
func (p *Pipeline) RunWithMonitor(ctx context.Context, req Request, monitor Monitor) (result core.Result) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	runID := uuid.NewString()
	logger := p.logger.With("run", runID)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("run panicked", "panic", r)
			result = core.Recovered(r, core.ResultTypeObject)
		}
	}()

	if err := p.validate(req); err != nil {
		return core.Failure(err, core.ResultTypeObject)
	}
	monitor.Start(runID, req)

	// 1. Sources
	topic := strings.TrimSpace(req.Topic)
	sources := req.URLs
	if topic != "" {
		count := req.DesiredCount
		if count == 0 {
			count = DefaultDesiredCount
		}
		urls, err := p.discoverer.DiscoverURLs(ctx, core.SourceQuery{Topic: topic, DesiredCount: count})
		if err != nil {
			logger.Error("discovery failed", "topic", topic, "err", err)
			return failure(err, []string{err.Error()})
		}
		sources = urls
	}
	monitor.AfterDiscovery(sources)

	// 2. Fetch
	batch := p.fetcher.FetchBatch(ctx, sources)
	monitor.AfterFetch(batch)
	errs := append([]string{}, batch.Errors...)
	if batch.SuccessCount() == 0 {
		logger.Warn("no source produced content", "sources", len(sources), "errors", len(errs))
		return failure(ErrNoContent, errs)
	}

	report := &Report{
		RunID:   runID,
		Topic:   topic,
		Query:   req.Query,
		Sources: batch.SourceURLs,
		Text:    batch.CombinedText,
	}

	// 3. Filter
	if strings.TrimSpace(req.Query) != "" {
		passages, err := p.filter.Passages(ctx, batch.CombinedText, req.Query, req.TopK)
		if err != nil {
			logger.Warn("semantic filter failed, keeping full text", "err", err)
			errs = append(errs, fmt.Sprintf("filter: %v", err))
		} else {
			report.Passages = passages
			report.Text = joinPassages(passages)
			monitor.AfterFilter(passages)
		}
	}

	// 4. Summarize
	if req.Summarize {
		summary, err := p.summarize(ctx, report.Text)
		if err != nil {
			logger.Warn("summarization failed", "err", err)
			errs = append(errs, fmt.Sprintf("summarize: %v", err))
		}
		report.Summary = summary
	}

	report.Errors = errs
	monitor.Finish(report)
	logger.Info("run complete",
		"sources", len(report.Sources),
		"succeeded", batch.SuccessCount(),
		"passages", len(report.Passages),
		"errors", len(errs))
	return core.Success(report, core.ResultTypeObject)
}

func (p *Pipeline) validate(req Request) error {
	hasTopic := strings.TrimSpace(req.Topic) != ""
	hasURLs := len(req.URLs) > 0
	if hasTopic == hasURLs {
		return fmt.Errorf("%w: %w", core.ErrValidation, ErrSourceSelection)
	}
	if hasTopic && req.DesiredCount < 0 {
		return fmt.Errorf("%w: %w: %d", core.ErrValidation, core.ErrInvalidCount, req.DesiredCount)
	}
	if hasURLs {
		if err := core.ValidateURLList(req.URLs); err != nil {
			return err
		}
	}
	if req.Summarize && p.summarizer == nil {
		return ErrSummarizerRequired
	}
	return nil
}

func (p *Pipeline) summarize(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return ai.NoContentSummary, nil
	}
	return p.summarizer.Summarize(ctx, text, p.summaryOpts)
}

// FilterURL fetches a single page and returns its passages relevant to
// query as a list result. A page that yields no chunks produces an empty
// list.
func (p *Pipeline) FilterURL(ctx context.Context, url, query string, k int) (result core.Result) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("filter url panicked", "url", url, "panic", r)
			result = core.Recovered(r, core.ResultTypeList)
		}
	}()

	if strings.TrimSpace(url) == "" {
		return core.Failure(fmt.Errorf("%w: %w: empty", core.ErrValidation, core.ErrInvalidURL), core.ResultTypeList)
	}
	if err := core.ValidateQuery(query); err != nil {
		return core.Failure(err, core.ResultTypeList)
	}

	page := p.fetcher.FetchOne(ctx, url)
	if !page.OK() {
		return core.Result{Success: false, Error: page.Err, ResultType: core.ResultTypeList}
	}
	if strings.TrimSpace(page.Text) == "" {
		return core.Success([]core.RelevantPassage{}, core.ResultTypeList)
	}

	passages, err := p.filter.Passages(ctx, page.Text, query, k)
	if err != nil {
		return core.Failure(err, core.ResultTypeList)
	}
	return core.Success(passages, core.ResultTypeList)
}

func failure(err error, errs []string) core.Result {
	r := core.Failure(err, core.ResultTypeObject)
	r.Errors = errs
	return r
}

func joinPassages(passages []core.RelevantPassage) string {
	parts := make([]string, len(passages))
	for i, p := range passages {
		parts[i] = p.Chunk
	}
	return strings.Join(parts, "\n\n")
}
