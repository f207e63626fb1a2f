package filter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/gleaner/ai"
	"github.com/poiesic/gleaner/core"
)

// DefaultTopK is the number of passages returned when k is not positive.
const DefaultTopK = 3

// Filter ranks the chunks of a document by their distance to a query.
type Filter struct {
	embedder  ai.Embedder
	chunker   Chunker
	newIndex  IndexFactory
	normalize bool
	logger    *slog.Logger
}

// Option configures a Filter.
type Option func(*Filter) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(f *Filter) error {
		if logger == nil {
			logger = slog.Default()
		}
		f.logger = logger.With("component", "filter")
		return nil
	}
}

// WithChunker replaces the default 50/300 chunker.
func WithChunker(c Chunker) Option {
	return func(f *Filter) error {
		if err := c.Validate(); err != nil {
			return err
		}
		f.chunker = c
		return nil
	}
}

// WithIndexFactory replaces the exact FlatL2 index.
func WithIndexFactory(factory IndexFactory) Option {
	return func(f *Filter) error {
		if factory != nil {
			f.newIndex = factory
		}
		return nil
	}
}

// WithNormalization scales every embedding to unit length before
// indexing, which makes the L2 ranking equivalent to cosine ranking.
func WithNormalization(enabled bool) Option {
	return func(f *Filter) error {
		f.normalize = enabled
		return nil
	}
}

// NewFilter creates a semantic filter backed by embedder.
func NewFilter(embedder ai.Embedder, opts ...Option) (*Filter, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	f := &Filter{
		embedder: embedder,
		chunker:  DefaultChunker(),
		newIndex: NewFlatL2,
		logger:   slog.Default().With("component", "filter"),
	}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Filter returns the k passages of document nearest to query as a list
// result. It never panics; failures come back as success=false.
func (f *Filter) Filter(ctx context.Context, document, query string, k int) (result core.Result) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("filter panicked", "panic", r)
			result = core.Recovered(r, core.ResultTypeList)
		}
	}()

	passages, err := f.Passages(ctx, document, query, k)
	if err != nil {
		return core.Failure(err, core.ResultTypeList)
	}
	return core.Success(passages, core.ResultTypeList)
}

// Passages is the typed form of Filter.
func (f *Filter) Passages(ctx context.Context, document, query string, k int) ([]core.RelevantPassage, error) {
	if err := core.ValidateQuery(query); err != nil {
		return nil, err
	}
	if k < 1 {
		k = DefaultTopK
	}

	chunks := f.chunker.Chunk(document)
	if len(chunks) == 0 {
		f.logger.Debug("document produced no chunks", "length", len(document))
		return []core.RelevantPassage{}, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := f.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		f.logger.Error("error embedding chunks", "chunks", len(chunks), "err", err)
		return nil, err
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d chunks", core.ErrInternal, len(vectors), len(chunks))
	}

	queryVector, err := f.embedder.EmbedText(ctx, query)
	if err != nil {
		f.logger.Error("error embedding query", "err", err)
		return nil, err
	}

	if f.normalize {
		for i := range vectors {
			vectors[i] = NormalizeVector(vectors[i])
		}
		queryVector = NormalizeVector(queryVector)
	}

	index := f.newIndex(len(vectors[0]))
	if err := index.Add(vectors...); err != nil {
		return nil, err
	}
	hits, err := index.Search(queryVector, k)
	if err != nil {
		return nil, err
	}

	passages := make([]core.RelevantPassage, 0, len(hits))
	for _, h := range hits {
		if h.ID < 0 || h.ID >= len(chunks) {
			continue
		}
		passages = append(passages, core.RelevantPassage{
			Chunk:    chunks[h.ID].Text,
			Distance: h.Distance,
		})
	}

	f.logger.Debug("filtered document", "chunks", len(chunks), "passages", len(passages))
	return passages, nil
}
