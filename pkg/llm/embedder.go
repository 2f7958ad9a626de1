// Package llm wraps the language-model clients used by the pipeline:
// the Ollama embedding model, the image-description model, and the
// chat completion model.
package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms/ollama"
)

// EmbedderConfig represents the configuration for the embedding client.
type EmbedderConfig struct {
	Model     string
	BaseURL   string // Ollama server URL
	VectorDim int
}

// Embedder generates dense vectors for text chunks via Ollama.
type Embedder struct {
	config EmbedderConfig
	llm    *ollama.LLM
}

// NewEmbedderWithConfig creates a new Embedder with the given configuration.
func NewEmbedderWithConfig(config EmbedderConfig) (*Embedder, error) {
	// Validate and set default values for config fields if necessary
	if config.Model == "" {
		config.Model = "all-minilm" // Default Ollama embedding model
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434" // Default Ollama URL
	}
	if config.VectorDim == 0 {
		config.VectorDim = 384 // all-minilm output dimensionality
	}

	llm, err := ollama.New(ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding model: %w", err)
	}

	return &Embedder{
		config: config,
		llm:    llm,
	}, nil
}

// Embed returns one vector per input text, in input order.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	embeddings, err := e.llm.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding error: %w", err)
	}
	if len(embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding error: got %d vectors for %d texts",
			len(embeddings), len(texts))
	}

	return embeddings, nil
}

// Dimensions reports the width of the vectors Embed produces. The
// vector store uses it to declare its column type.
func (e *Embedder) Dimensions() int {
	return e.config.VectorDim
}
