// Package pipeline orchestrates document ingestion and retrieval:
// extract text, chunk it, embed the chunks, and keep the vector store
// in sync with the document catalog.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/mgrd/docstack/internal/models"
	"github.com/mgrd/docstack/internal/types"
)

const defaultSearchResults = 5

type PipelineConfig struct {
	Extractor      types.Extractor
	Chunker        types.Chunker
	Embedder       types.Embedder
	Store          types.VectorStore
	CollectionName string
}

// VectorPipeline is the production types.Pipeline implementation.
type VectorPipeline struct {
	extractor      types.Extractor
	chunker        types.Chunker
	embedder       types.Embedder
	store          types.VectorStore
	collectionName string
}

func NewWithConfig(config PipelineConfig) (*VectorPipeline, error) {
	if config.Extractor == nil {
		return nil, fmt.Errorf("extractor is required")
	}
	if config.Chunker == nil {
		return nil, fmt.Errorf("chunker is required")
	}
	if config.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if config.Store == nil {
		return nil, fmt.Errorf("vector store is required")
	}
	if config.CollectionName == "" {
		config.CollectionName = "documents"
	}

	return &VectorPipeline{
		extractor:      config.Extractor,
		chunker:        config.Chunker,
		embedder:       config.Embedder,
		store:          config.Store,
		collectionName: config.CollectionName,
	}, nil
}

// ProcessDocument runs one document through the full ingestion pipeline.
// It never returns an error; failures are reported in the result's
// Status and Error fields so uploads can succeed even when vector
// processing does not. Reprocessing a document replaces its previous
// chunks entirely.
func (p *VectorPipeline) ProcessDocument(ctx context.Context, filePath, contentType string, documentID int64, originalFilename, description string) models.ProcessingResult {
	result := models.ProcessingResult{
		DocumentID:       documentID,
		OriginalFilename: originalFilename,
	}

	text, err := p.extractor.Extract(ctx, filePath, contentType)
	if err != nil {
		return p.fail(result, fmt.Errorf("text extraction failed: %w", err))
	}

	chunks, err := p.chunker.Chunk(text)
	if err != nil {
		return p.fail(result, fmt.Errorf("chunking failed: %w", err))
	}

	// Drop any chunks from a previous run before storing, so a
	// re-ingest that yields fewer chunks leaves no stale rows behind.
	if err := p.store.DeleteByDocument(ctx, documentID); err != nil {
		return p.fail(result, fmt.Errorf("failed to clear existing chunks: %w", err))
	}

	if len(chunks) == 0 {
		result.Status = models.StatusProcessed
		return result
	}

	vectors, err := p.embedder.Embed(ctx, chunks)
	if err != nil {
		return p.fail(result, fmt.Errorf("embedding failed: %w", err))
	}
	if len(vectors) != len(chunks) {
		return p.fail(result, fmt.Errorf("embedding failed: got %d vectors for %d chunks", len(vectors), len(chunks)))
	}

	for i, chunk := range chunks {
		chunkID := fmt.Sprintf("%d_%d", documentID, i)
		tokens := p.chunker.CountTokens(chunk)

		meta := models.ChunkMetadata{
			DocumentID:       documentID,
			ChunkIndex:       i,
			OriginalFilename: originalFilename,
			ContentType:      contentType,
			Description:      description,
			ChunkSize:        tokens,
			TotalChunks:      len(chunks),
		}

		if err := p.store.Upsert(ctx, chunkID, vectors[i], chunk, meta); err != nil {
			return p.fail(result, fmt.Errorf("failed to store chunk %d: %w", i, err))
		}

		result.ChunkIDs = append(result.ChunkIDs, chunkID)
		result.TotalTokens += tokens
	}

	result.TotalChunks = len(chunks)
	result.Status = models.StatusProcessed
	return result
}

func (p *VectorPipeline) fail(result models.ProcessingResult, err error) models.ProcessingResult {
	log.Printf("document %d processing error: %v", result.DocumentID, err)
	result.Status = models.StatusError
	result.Error = err.Error()
	return result
}

// SearchDocuments embeds the query and returns the nearest chunks with
// similarity scores (1 - cosine distance), best match first.
func (p *VectorPipeline) SearchDocuments(ctx context.Context, query string, nResults int) ([]models.SearchResult, error) {
	if nResults <= 0 {
		nResults = defaultSearchResults
	}

	vectors, err := p.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("failed to embed query: got %d vectors", len(vectors))
	}

	scored, err := p.store.Query(ctx, vectors[0], nResults)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	results := make([]models.SearchResult, 0, len(scored))
	for _, chunk := range scored {
		results = append(results, models.SearchResult{
			ChunkID:         chunk.ChunkID,
			Content:         chunk.Content,
			Metadata:        chunk.Metadata,
			SimilarityScore: 1 - chunk.Distance,
		})
	}

	return results, nil
}

// GetDocumentChunks returns a document's chunks ordered by chunk index.
func (p *VectorPipeline) GetDocumentChunks(ctx context.Context, documentID int64) ([]models.DocumentChunk, error) {
	chunks, err := p.store.GetByDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks: %w", err)
	}

	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].Metadata.ChunkIndex < chunks[j].Metadata.ChunkIndex
	})

	return chunks, nil
}

// DeleteDocumentChunks removes a document's chunks; deleting a document
// that has none succeeds.
func (p *VectorPipeline) DeleteDocumentChunks(ctx context.Context, documentID int64) error {
	if err := p.store.DeleteByDocument(ctx, documentID); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}

// CollectionStats summarizes the vector collection.
func (p *VectorPipeline) CollectionStats(ctx context.Context) (models.CollectionStats, error) {
	count, err := p.store.Count(ctx)
	if err != nil {
		return models.CollectionStats{}, fmt.Errorf("failed to count chunks: %w", err)
	}

	sample, err := p.store.SampleMetadata(ctx)
	if err != nil {
		return models.CollectionStats{}, fmt.Errorf("failed to sample metadata: %w", err)
	}

	return models.CollectionStats{
		TotalChunks:    count,
		CollectionName: p.collectionName,
		SampleMetadata: sample,
	}, nil
}
