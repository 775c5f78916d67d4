// Package tokencount provides prompt token counting for the prompt-size guard.
//
// It uses tiktoken-go. Gemini has no public tokenizer, so cl100k_base serves
// as an approximation that is close enough to bound prompt size.
package tokencount

import (
	"log/slog"
	"strings"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"

	"github.com/fairyhunter13/harvest-gateway/internal/domain"
)

var _ domain.TokenCounter = (*Counter)(nil)

const fallbackEncoding = "cl100k_base"

// Counter provides thread-safe token counting.
type Counter struct {
	encodingCache map[string]*tiktoken.Tiktoken
	mu            sync.RWMutex
}

// NewCounter creates a new token counter instance.
func NewCounter() *Counter {
	return &Counter{
		encodingCache: make(map[string]*tiktoken.Tiktoken),
	}
}

// DefaultCounter is a global token counter instance.
var DefaultCounter = NewCounter()

// getEncodingForModel returns the tiktoken encoding for a model, cached per encoding name.
func (c *Counter) getEncodingForModel(model string) (*tiktoken.Tiktoken, error) {
	name := encodingName(model)

	c.mu.RLock()
	if enc, ok := c.encodingCache[name]; ok {
		c.mu.RUnlock()
		return enc, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if enc, ok := c.encodingCache[name]; ok {
		return enc, nil
	}

	enc, err := tiktoken.GetEncoding(name)
	if err != nil {
		return nil, err
	}
	c.encodingCache[name] = enc
	return enc, nil
}

// encodingName maps a model id to a tiktoken encoding.
func encodingName(model string) string {
	model = strings.ToLower(strings.TrimSpace(model))
	model = strings.TrimPrefix(model, "models/")
	switch {
	case strings.HasPrefix(model, "gpt-4o"), strings.HasPrefix(model, "o1"), strings.HasPrefix(model, "o3"):
		return "o200k_base"
	default:
		// gemini, gemma and unknown families
		return fallbackEncoding
	}
}

// CountTokens counts the number of tokens in text for model.
func (c *Counter) CountTokens(text, model string) (int, error) {
	enc, err := c.getEncodingForModel(model)
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}

// CountOrEstimate counts tokens and falls back to a ~4 chars per token estimate.
func (c *Counter) CountOrEstimate(text, model string) int {
	n, err := c.CountTokens(text, model)
	if err != nil {
		slog.Warn("failed to count prompt tokens, using estimate",
			slog.String("model", model),
			slog.Any("error", err))
		return EstimateTokens(text)
	}
	return n
}

// EstimateTokens is a cheap approximation used when no encoding is available.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}

// CountTokensDefault uses the default counter to count tokens.
func CountTokensDefault(text, model string) (int, error) {
	return DefaultCounter.CountTokens(text, model)
}
