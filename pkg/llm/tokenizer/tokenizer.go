// Package tokenizer estimates prompt sizes in tokens.
package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/entrhq/pagechat/pkg/types"
)

// Encoding is the BPE encoding used for estimates. Gemini does not publish
// its tokenizer, so counts are approximate.
const Encoding = "cl100k_base"

// perContentOverhead approximates the role and framing tokens of one content entry.
const perContentOverhead = 4

// Tokenizer counts tokens. A nil *Tokenizer falls back to a length heuristic.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

// New loads the encoding. Loading may need network access the first time.
func New() (*Tokenizer, error) {
	enc, err := tiktoken.GetEncoding(Encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s encoding: %w", Encoding, err)
	}
	return &Tokenizer{enc: enc}, nil
}

// CountTokens returns the number of tokens in text.
func (t *Tokenizer) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	if t == nil || t.enc == nil {
		return estimate(text)
	}
	return len(t.enc.Encode(text, nil, nil))
}

// CountContentsTokens returns the token estimate of a full request body.
func (t *Tokenizer) CountContentsTokens(contents []types.Content) int {
	total := 0
	for _, c := range contents {
		total += perContentOverhead
		for _, p := range c.Parts {
			total += t.CountTokens(p.Text)
		}
	}
	return total
}

// estimate is roughly four bytes per token for English text.
func estimate(text string) int {
	n := len(text) / 4
	if n == 0 {
		return 1
	}
	return n
}
