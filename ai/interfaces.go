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

package ai

import "context"

// Embedder generates vector embeddings from text.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// NoContentSummary is returned in place of a summary when there is no text
// to summarize.
const NoContentSummary = "No relevant content found to summarize."

// SummaryOptions bounds the length of a generated summary, in words.
type SummaryOptions struct {
	MinLength int
	MaxLength int
}

// DefaultSummaryOptions returns the bounds used when callers pass none.
func DefaultSummaryOptions() SummaryOptions {
	return SummaryOptions{MinLength: 30, MaxLength: 150}
}

// Summarizer condenses text into a short summary.
// Implementations must be thread-safe for concurrent use.
type Summarizer interface {
	// Summarize produces a summary of text within the bounds of opts.
	// Blank text yields NoContentSummary without calling the backend.
	// Returns an error if the backend fails.
	Summarize(ctx context.Context, text string, opts SummaryOptions) (string, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
// A provider creates and manages Embedder and Summarizer instances,
// ensuring they share configuration and resources appropriately.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Summarizer returns the summarization service.
	// The returned Summarizer is safe for concurrent use.
	Summarizer() Summarizer

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
