package llm

import (
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"

	"github.com/agora-ai/agora/internal/domain"
)

// Tokenizer counts prompt tokens, falling back to a character heuristic
// when the BPE tables are unavailable (offline environments).
type Tokenizer struct {
	encoder  *tiktoken.Tiktoken
	fallback bool
}

var (
	defaultTokenizer     *Tokenizer
	defaultTokenizerOnce sync.Once
)

func DefaultTokenizer() *Tokenizer {
	defaultTokenizerOnce.Do(func() {
		defaultTokenizer = NewTokenizer("cl100k_base")
	})
	return defaultTokenizer
}

func NewTokenizer(encoding string) *Tokenizer {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return &Tokenizer{fallback: true}
	}
	return &Tokenizer{encoder: enc}
}

func (t *Tokenizer) CountText(text string) int {
	if text == "" {
		return 0
	}
	if t.fallback {
		// ~4 characters per token for plain prose
		n := len(text) / 4
		if n < 1 {
			n = 1
		}
		return n
	}
	return len(t.encoder.Encode(text, nil, nil))
}

func (t *Tokenizer) CountMessages(msgs []domain.Message) int {
	total := 0
	for _, m := range msgs {
		// per-message structural overhead
		total += 4
		total += t.CountText(string(m.Role))
		total += t.CountText(m.Content)
	}
	return total
}

// TrimToBudget drops the oldest messages until the window fits the token
// budget. The most recent message is always kept, and a budget of 0
// disables trimming.
func (t *Tokenizer) TrimToBudget(msgs []domain.Message, budget int) []domain.Message {
	if budget <= 0 || len(msgs) == 0 {
		return msgs
	}
	start := 0
	for start < len(msgs)-1 && t.CountMessages(msgs[start:]) > budget {
		start++
	}
	return msgs[start:]
}
