package mock

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/poiesic/gleaner/ai"
)

// MockSummarizer is a test double for ai.Summarizer.
type MockSummarizer struct {
	// SummarizeFunc is called by Summarize if set.
	// If nil, the first MaxLength words of the text are returned.
	SummarizeFunc func(ctx context.Context, text string, opts ai.SummaryOptions) (string, error)

	callCount atomic.Int64
}

// NewMockSummarizer creates a mock summarizer with default truncating behavior.
// Note: Returns concrete type to allow test assertions via GetMockSummarizer().
func NewMockSummarizer() *MockSummarizer {
	return &MockSummarizer{}
}

// Summarize returns a word-truncated copy of text.
func (m *MockSummarizer) Summarize(ctx context.Context, text string, opts ai.SummaryOptions) (string, error) {
	m.callCount.Add(1)

	if m.SummarizeFunc != nil {
		return m.SummarizeFunc(ctx, text, opts)
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return ai.NoContentSummary, nil
	}
	if opts.MaxLength > 0 && len(words) > opts.MaxLength {
		words = words[:opts.MaxLength]
	}
	return strings.Join(words, " "), nil
}

// CallCount returns the number of times Summarize was called.
func (m *MockSummarizer) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and custom functions.
func (m *MockSummarizer) Reset() {
	m.callCount.Store(0)
	m.SummarizeFunc = nil
}
