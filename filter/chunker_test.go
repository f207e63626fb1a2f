package filter

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/poiesic/gleaner/core"
	"github.com/stretchr/testify/assert"
)

// sentence builds an ASCII sentence of exactly n runes ending in a period.
func sentence(fill string, n int) string {
	return strings.Repeat(fill, n-1) + "."
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"empty", "", nil},
		{"no terminator", "just words", []string{"just words"}},
		{"whitespace swallowed", "One.\n\n  Two!Three?   Four", []string{"One.", "Two!", "Three?", "Four"}},
		{"newline terminates", "a\nb", []string{"a\n", "b"}},
		{"cjk", "你好。世界！再見？", []string{"你好。", "世界！", "再見？"}},
		{"other scripts", "مرحبا؟ नमस्ते। ok｡", []string{"مرحبا؟", "नमस्ते।", "ok｡"}},
		{"trailing whitespace", "Done.   ", []string{"Done."}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, splitSentences(tt.text)); diff != "" {
				t.Errorf("splitSentences() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestChunker_ShortDocumentYieldsNothing(t *testing.T) {
	c := DefaultChunker()
	assert.Empty(t, c.Chunk("Too short."))
	assert.Empty(t, c.Chunk(""))
	assert.Empty(t, c.Chunk(strings.Repeat("x", DefaultMinChunkLength-1)))
}

func TestChunker_SingleSentence(t *testing.T) {
	s := sentence("a", 60)
	got := DefaultChunker().Chunk("  " + s)

	want := []core.Chunk{{Text: s, Ordinal: 0}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Chunk() mismatch (-want +got):\n%s", diff)
	}
}

func TestChunker_AccumulatesUntilMax(t *testing.T) {
	a, b, c := sentence("a", 100), sentence("b", 100), sentence("c", 100)
	got := DefaultChunker().Chunk(a + " " + b + " " + c)

	want := []core.Chunk{
		{Text: a + " " + b, Ordinal: 0},
		{Text: c, Ordinal: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Chunk() mismatch (-want +got):\n%s", diff)
	}
}

func TestChunker_DropsShortChunks(t *testing.T) {
	long := sentence("l", 299)
	got := DefaultChunker().Chunk("Tiny. " + long)

	want := []core.Chunk{{Text: long, Ordinal: 0}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Chunk() mismatch (-want +got):\n%s", diff)
	}
}

func TestChunker_CountsRunes(t *testing.T) {
	a := strings.Repeat("字", 59) + "。"
	b := strings.Repeat("文", 59) + "！"
	got := Chunker{MinLength: 50, MaxLength: 100}.Chunk(a + b)

	want := []core.Chunk{
		{Text: a, Ordinal: 0},
		{Text: b, Ordinal: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Chunk() mismatch (-want +got):\n%s", diff)
	}
}

func TestChunker_Validate(t *testing.T) {
	assert.NoError(t, DefaultChunker().Validate())
	assert.ErrorIs(t, Chunker{MinLength: 0, MaxLength: 10}.Validate(), ErrInvalidChunkBounds)
	assert.ErrorIs(t, Chunker{MinLength: 20, MaxLength: 10}.Validate(), ErrInvalidChunkBounds)
}
