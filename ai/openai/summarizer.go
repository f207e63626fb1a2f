package openai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/gleaner/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Summarizer implements ai.Summarizer using OpenAI-compatible chat APIs.
type Summarizer struct {
	client         llms.Model
	model          string
	maxInputTokens int
	logger         *slog.Logger
}

// newSummarizer is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newSummarizer(config *ai.Config) (*Summarizer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.SummarizerHost),
		openai.WithToken(config.APIKey),
		openai.WithModel(config.SummarizerModel),
	)
	if err != nil {
		return nil, err
	}

	return &Summarizer{
		client:         client,
		model:          config.SummarizerModel,
		maxInputTokens: config.MaxInputTokens,
		logger:         slog.Default().With("component", "openai-summarizer"),
	}, nil
}

// NewSummarizer creates a new summarizer using the provided configuration.
//
// Returns ai.Summarizer interface to enforce abstraction.
func NewSummarizer(config *ai.Config) (ai.Summarizer, error) {
	return newSummarizer(config)
}

// Summarize condenses text with a single chat completion.
// Input longer than the configured token cap is truncated first.
func (s *Summarizer) Summarize(ctx context.Context, text string, opts ai.SummaryOptions) (string, error) {
	text = collapseWhitespace(text)
	if text == "" {
		return ai.NoContentSummary, nil
	}

	defaults := ai.DefaultSummaryOptions()
	if opts.MaxLength < 1 {
		opts.MaxLength = defaults.MaxLength
	}
	if opts.MinLength < 0 || opts.MinLength > opts.MaxLength {
		opts.MinLength = min(defaults.MinLength, opts.MaxLength)
	}

	text, truncated := truncateTokens(text, s.model, s.maxInputTokens)
	if truncated {
		s.logger.Debug("summarizer input truncated", "max_tokens", s.maxInputTokens)
	}

	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(buildSystemPrompt(opts.MinLength, opts.MaxLength)),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(text),
			},
		},
	}

	// Words run about 1.3 tokens; leave headroom so the model can finish.
	response, err := s.client.GenerateContent(ctx, content,
		llms.WithTemperature(0.2),
		llms.WithMaxTokens(opts.MaxLength*2),
	)
	if err != nil {
		s.logger.Error("failed to generate summary", "err", err)
		return "", fmt.Errorf("%w: %w", ai.ErrSummarizationFailed, err)
	}

	if len(response.Choices) < 1 {
		return "", fmt.Errorf("%w: no choices returned", ai.ErrSummarizationFailed)
	}

	summary := strings.TrimSpace(response.Choices[0].Content)
	if summary == "" {
		return "", fmt.Errorf("%w: empty completion", ai.ErrSummarizationFailed)
	}
	return summary, nil
}
