package filter

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/poiesic/gleaner/core"
)

const (
	// DefaultMinChunkLength is the shortest chunk kept, in characters.
	DefaultMinChunkLength = 50
	// DefaultMaxChunkLength is the length at which a chunk is flushed.
	DefaultMaxChunkLength = 300
)

// Sentence terminators across scripts. Any run of whitespace after one of
// them is swallowed by the split.
var terminators = map[rune]bool{
	'.': true, '!': true, '?': true, '\n': true, '\r': true,
	'。': true, '！': true, '？': true,
	'؟': true, '।': true, '۔': true, '︒': true, '｡': true,
}

// Chunker groups sentences into chunks of bounded length. Lengths are
// counted in runes.
type Chunker struct {
	MinLength int
	MaxLength int
}

// DefaultChunker returns a chunker with 50/300 character bounds.
func DefaultChunker() Chunker {
	return Chunker{MinLength: DefaultMinChunkLength, MaxLength: DefaultMaxChunkLength}
}

// Validate checks that the bounds are usable.
func (c Chunker) Validate() error {
	if c.MinLength <= 0 || c.MaxLength < c.MinLength {
		return ErrInvalidChunkBounds
	}
	return nil
}

// Chunk splits text into chunks. Sentences accumulate, joined by a single
// space, until the next one would push the chunk past MaxLength; the chunk
// is then emitted if its trimmed length reaches MinLength and dropped
// otherwise. A text shorter than MinLength yields no chunks.
func (c Chunker) Chunk(text string) []core.Chunk {
	var (
		chunks  []core.Chunk
		current string
	)

	flush := func() {
		trimmed := strings.TrimSpace(current)
		if utf8.RuneCountInString(trimmed) >= c.MinLength {
			chunks = append(chunks, core.Chunk{Text: trimmed, Ordinal: len(chunks)})
		}
	}

	for _, sentence := range splitSentences(text) {
		if utf8.RuneCountInString(current)+utf8.RuneCountInString(sentence) <= c.MaxLength {
			current += " " + sentence
			continue
		}
		flush()
		current = sentence
	}
	flush()

	return chunks
}

// splitSentences cuts text after every terminator and drops the whitespace
// that follows it. Empty pieces are skipped.
func splitSentences(text string) []string {
	var (
		sentences []string
		b         strings.Builder
		skipSpace bool
	)

	for _, r := range text {
		if skipSpace {
			if unicode.IsSpace(r) {
				continue
			}
			skipSpace = false
		}
		b.WriteRune(r)
		if terminators[r] {
			sentences = append(sentences, b.String())
			b.Reset()
			skipSpace = true
		}
	}
	if b.Len() > 0 {
		sentences = append(sentences, b.String())
	}
	return sentences
}
