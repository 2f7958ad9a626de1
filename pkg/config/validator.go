package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// An absent vector.url is not an error: the server runs degraded
	// without vector processing. A present but unparseable one is.
	if c.Vector.URL != "" {
		if _, err := url.Parse(c.Vector.URL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "vector.url",
				Message: "invalid PostgreSQL connection string",
			})
		}
	}

	if c.Vector.VectorDim < 1 {
		errors = append(errors, ValidationError{
			Field:   "vector.vector_dim",
			Message: "vector_dim must be positive",
		})
	}

	if _, err := url.Parse(c.Embedding.BaseURL); err != nil {
		errors = append(errors, ValidationError{
			Field:   "embedding.base_url",
			Message: "invalid embedding server URL",
		})
	}

	if c.Chunker.ChunkSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "chunker.chunk_size",
			Message: "chunk_size must be positive",
		})
	}

	if c.Chunker.ChunkOverlap < 0 || c.Chunker.ChunkOverlap >= c.Chunker.ChunkSize {
		errors = append(errors, ValidationError{
			Field:   "chunker.chunk_overlap",
			Message: "chunk_overlap must be non-negative and less than chunk_size",
		})
	}

	if c.Caption.Temperature < 0 || c.Caption.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "caption.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	if c.Caption.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "caption.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	return errors
}
