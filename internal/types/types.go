package types

import (
	"context"

	"github.com/mgrd/docstack/internal/models"
)

// Core interfaces wired together by the vector pipeline. Each has one
// production implementation; tests substitute fakes.

// Extractor turns a stored file plus its declared content type into raw
// text.
type Extractor interface {
	Extract(ctx context.Context, filePath, contentType string) (string, error)
}

// Chunker splits raw text into token-bounded overlapping chunks,
// preserving document order. Chunking is deterministic: the same input
// always yields the same sequence.
type Chunker interface {
	Chunk(text string) ([]string, error)
	CountTokens(text string) int
}

// Embedder maps texts to fixed-length vectors, one per input, in input
// order. Dimensions is fixed for the lifetime of a deployed collection.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// Captioner produces a structured natural-language description of OCR
// text via a hosted LLM. Enabled reports whether the credential for the
// service was configured; callers skip captioning when it was not.
type Captioner interface {
	Describe(ctx context.Context, ocrText string) (string, error)
	Enabled() bool
}

// VectorStore persists (id, vector, text, metadata) rows in a cosine
// index. GetByDocument returns matches in store iteration order; any
// caller-visible ordering is the pipeline's job.
type VectorStore interface {
	Upsert(ctx context.Context, id string, vector []float32, content string, meta models.ChunkMetadata) error
	Query(ctx context.Context, vector []float32, k int) ([]models.ScoredChunk, error)
	GetByDocument(ctx context.Context, documentID int64) ([]models.DocumentChunk, error)
	DeleteByDocument(ctx context.Context, documentID int64) error
	Count(ctx context.Context) (int, error)
	SampleMetadata(ctx context.Context) (*models.ChunkMetadata, error)
	Close()
}

// Pipeline is the surface the HTTP layer consumes.
type Pipeline interface {
	ProcessDocument(ctx context.Context, filePath, contentType string, documentID int64, originalFilename, description string) models.ProcessingResult
	SearchDocuments(ctx context.Context, query string, nResults int) ([]models.SearchResult, error)
	GetDocumentChunks(ctx context.Context, documentID int64) ([]models.DocumentChunk, error)
	DeleteDocumentChunks(ctx context.Context, documentID int64) error
	CollectionStats(ctx context.Context) (models.CollectionStats, error)
}
