package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/poiesic/gleaner/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSummarizer(t *testing.T, handler http.HandlerFunc) *Summarizer {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	s, err := newSummarizer(ai.NewConfig(ai.WithHost(srv.URL)))
	require.NoError(t, err)
	return s
}

func TestSummarize_EmptyInputSkipsBackend(t *testing.T) {
	called := false
	s := newTestSummarizer(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	out, err := s.Summarize(context.Background(), " \n\t ", ai.DefaultSummaryOptions())
	require.NoError(t, err)
	assert.Equal(t, ai.NoContentSummary, out)
	assert.False(t, called)
}

func TestSummarize_ChatCompletion(t *testing.T) {
	var gotBody map[string]any
	s := newTestSummarizer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "cmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "qwen2.5:3b",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "  Short summary.  "}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": 2}
		}`))
	})

	out, err := s.Summarize(context.Background(), "Some long article text.", ai.DefaultSummaryOptions())
	require.NoError(t, err)
	assert.Equal(t, "Short summary.", out)
	assert.Equal(t, "qwen2.5:3b", gotBody["model"])
}

func TestSummarize_BackendError(t *testing.T) {
	s := newTestSummarizer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusInternalServerError)
	})

	_, err := s.Summarize(context.Background(), "text", ai.DefaultSummaryOptions())
	require.Error(t, err)
	assert.ErrorIs(t, err, ai.ErrSummarizationFailed)
}
