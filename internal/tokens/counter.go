package tokens

import (
	"fmt"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

const (
	DefaultEncoding = "cl100k_base"
	// runesPerToken is the rough ratio used when no BPE table is available.
	runesPerToken = 4
)

// Counter measures and trims text by model tokens.
type Counter struct {
	encoding *tiktoken.Tiktoken
}

// NewCounter loads a tiktoken encoding. Loading may fetch the BPE table
// on first use, so callers usually fall back to Approximate on error.
func NewCounter(encoding string) (*Counter, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load tiktoken encoding %q: %w", encoding, err)
	}
	return &Counter{encoding: enc}, nil
}

// Approximate returns a Counter that estimates tokens from rune counts.
func Approximate() *Counter {
	return &Counter{}
}

// Exact reports whether a real encoding backs the counter.
func (c *Counter) Exact() bool {
	return c != nil && c.encoding != nil
}

func (c *Counter) Count(text string) int {
	if !c.Exact() {
		n := len([]rune(text))
		return (n + runesPerToken - 1) / runesPerToken
	}
	return len(c.encoding.Encode(text, nil, nil))
}

// Truncate keeps at most maxTokens tokens of text. maxTokens <= 0 disables the limit.
func (c *Counter) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 || text == "" {
		return text
	}

	if !c.Exact() {
		runes := []rune(text)
		limit := maxTokens * runesPerToken
		if len(runes) <= limit {
			return text
		}
		return string(runes[:limit])
	}

	ids := c.encoding.Encode(text, nil, nil)
	if len(ids) <= maxTokens {
		return text
	}
	return trimPartialRune(c.encoding.Decode(ids[:maxTokens]))
}

// trimPartialRune drops the incomplete UTF-8 sequence a byte-level token cut
// can leave at the end of the text.
func trimPartialRune(s string) string {
	for i := 0; i < utf8.UTFMax && s != ""; i++ {
		r, size := utf8.DecodeLastRuneInString(s)
		if r != utf8.RuneError || size != 1 {
			break
		}
		s = s[:len(s)-1]
	}
	return s
}
