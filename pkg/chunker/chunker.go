// Package chunker splits extracted text into token-bounded overlapping
// chunks for embedding.
package chunker

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
	"github.com/tmc/langchaingo/textsplitter"
)

// Chunk budgets are measured in tokens, not characters, so reported
// chunk sizes stay consistent with the splitter's boundaries.
const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
)

type ChunkerConfig struct {
	ChunkSize    int // tokens
	ChunkOverlap int // tokens
}

type Chunker struct {
	config   ChunkerConfig
	splitter textsplitter.RecursiveCharacter
	encoder  *tiktoken.Tiktoken
}

func NewWithConfig(config ChunkerConfig) (*Chunker, error) {
	if config.ChunkSize == 0 {
		config.ChunkSize = DefaultChunkSize
	}
	if config.ChunkOverlap == 0 {
		config.ChunkOverlap = DefaultChunkOverlap
	}

	encoder, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}

	c := &Chunker{config: config, encoder: encoder}

	// Prefer paragraph boundaries, then lines, then words; raw
	// character splits only as a last resort.
	c.splitter = textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(config.ChunkSize),
		textsplitter.WithChunkOverlap(config.ChunkOverlap),
		textsplitter.WithSeparators([]string{"\n\n", "\n", " ", ""}),
		textsplitter.WithLenFunc(c.CountTokens),
	)

	return c, nil
}

// Chunk splits text into ordered chunk strings. Deterministic: the same
// input always yields the same sequence.
func (c *Chunker) Chunk(text string) ([]string, error) {
	if text == "" {
		return nil, nil
	}
	chunks, err := c.splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("failed to split text: %w", err)
	}
	return chunks, nil
}

// CountTokens counts tokens with the same tokenizer the splitter uses.
func (c *Chunker) CountTokens(text string) int {
	return len(c.encoder.Encode(text, nil, nil))
}
