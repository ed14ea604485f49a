package llm

import (
	"strings"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

const (
	systemMessageOverhead = 2
	perMessageOverhead    = 4
)

// EstimateTokens returns the approximate prompt size of messages for model
// and whether the count had to fall back to a generic encoding.
func EstimateTokens(model string, messages []*Message) (int, bool) {
	encoder, approx := encodingForModel(model)

	total := 0
	for _, msg := range messages {
		if msg == nil {
			continue
		}
		total += tokenCount(encoder, msg.Content) + perMessageOverhead
		if msg.Role == RoleSystem {
			total += systemMessageOverhead
		}
	}
	return total, approx
}

func encodingForModel(modelID string) (*tiktoken.Tiktoken, bool) {
	// OpenRouter ids carry a vendor prefix that tiktoken does not know.
	if i := strings.LastIndexByte(modelID, '/'); i != -1 {
		modelID = modelID[i+1:]
	}

	encoder, err := tiktoken.EncodingForModel(modelID)
	if err == nil {
		return encoder, false
	}

	fallback, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, true
	}
	return fallback, true
}

func tokenCount(encoder *tiktoken.Tiktoken, text string) int {
	if text == "" {
		return 0
	}
	if encoder != nil {
		return len(encoder.Encode(text, nil, nil))
	}

	// Rough heuristic: 1 token is about 4 characters
	return (utf8.RuneCountInString(text) + 3) / 4
}
