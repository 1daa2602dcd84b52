package tiktoken

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

const DefaultEncoding = "cl100k_base"

// Tokenizer wraps a BPE encoding so chunk budgets are counted in the
// same tokens the embedding model consumes.
type Tokenizer struct {
	encoding *tiktoken.Tiktoken
}

func New(encodingName string) (*Tokenizer, error) {
	if encodingName == "" {
		encodingName = DefaultEncoding
	}
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("load encoding %q: %w", encodingName, err)
	}
	return &Tokenizer{encoding: encoding}, nil
}

func (t *Tokenizer) Encode(text string) []int {
	return t.encoding.Encode(text, nil, nil)
}

func (t *Tokenizer) Decode(tokens []int) string {
	return t.encoding.Decode(tokens)
}
