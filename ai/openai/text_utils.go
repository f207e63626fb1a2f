package openai

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// approxRunesPerToken is used when no tokenizer can be loaded.
const approxRunesPerToken = 4

var (
	tokenizerCache   = make(map[string]*tiktoken.Tiktoken)
	tokenizerCacheMu sync.RWMutex
)

// getTokenizer returns a cached tiktoken encoder for the given model,
// falling back to cl100k_base for models tiktoken does not know.
func getTokenizer(model string) (*tiktoken.Tiktoken, error) {
	tokenizerCacheMu.RLock()
	if tkm, ok := tokenizerCache[model]; ok {
		tokenizerCacheMu.RUnlock()
		return tkm, nil
	}
	tokenizerCacheMu.RUnlock()

	tokenizerCacheMu.Lock()
	defer tokenizerCacheMu.Unlock()

	if tkm, ok := tokenizerCache[model]; ok {
		return tkm, nil
	}

	tkm, err := tiktoken.EncodingForModel(model)
	if err != nil {
		tkm, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}

	tokenizerCache[model] = tkm
	return tkm, nil
}

// collapseWhitespace folds runs of whitespace into single spaces.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncateTokens shortens text to at most maxTokens tokens. The second
// return value reports whether truncation happened.
func truncateTokens(text, model string, maxTokens int) (string, bool) {
	// Every token covers at least one byte.
	if len(text) <= maxTokens {
		return text, false
	}
	tkm, err := getTokenizer(model)
	if err != nil {
		return truncateRunes(text, maxTokens*approxRunesPerToken)
	}
	tokens := tkm.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text, false
	}
	return tkm.Decode(tokens[:maxTokens]), true
}

func truncateRunes(text string, maxRunes int) (string, bool) {
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text, false
	}
	return string(runes[:maxRunes]), true
}
