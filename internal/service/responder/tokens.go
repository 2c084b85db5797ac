package responder

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/zhouzirui/hookchat/backend/internal/model/chat"
)

// DefaultEncoding is the BPE used to estimate prompt size.
const DefaultEncoding = "cl100k_base"

// TokenCounter returns the token length of a text.
type TokenCounter func(text string) int

// NewTiktokenCounter loads a BPE encoding. Loading may need network access the
// first time, so callers should treat an error as "count messages instead".
func NewTiktokenCounter(encoding string) (TokenCounter, error) {
	tkm, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load encoding %s: %w", encoding, err)
	}
	return func(text string) int {
		return len(tkm.Encode(text, nil, nil))
	}, nil
}

// TrimHistory keeps at most limit of the newest messages, then drops the
// oldest ones until the rest fit in budget tokens.
func TrimHistory(history []chat.Message, limit, budget int, counter TokenCounter) []chat.Message {
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	if counter == nil || budget <= 0 {
		return history
	}

	total := 0
	sizes := make([]int, len(history))
	for i, msg := range history {
		sizes[i] = counter(msg.Content)
		total += sizes[i]
	}

	start := 0
	for start < len(history) && total > budget {
		total -= sizes[start]
		start++
	}
	return history[start:]
}
