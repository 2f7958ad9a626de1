package models

// Processing status values returned by the vector pipeline.
const (
	StatusProcessed = "processed"
	StatusError     = "error"
)

// ChunkMetadata travels with every stored chunk. None of its fields may
// be null when submitted to the vector store; an absent description is
// normalized to the empty string before storage.
type ChunkMetadata struct {
	DocumentID       int64  `json:"document_id"`
	ChunkIndex       int    `json:"chunk_index"`
	OriginalFilename string `json:"original_filename"`
	ContentType      string `json:"content_type"`
	Description      string `json:"description"`
	ChunkSize        int    `json:"chunk_size"`
	TotalChunks      int    `json:"total_chunks"`
}

// DocumentChunk is a chunk as returned to API callers, ordered by
// ChunkIndex within its document.
type DocumentChunk struct {
	ChunkID  string        `json:"chunk_id"`
	Content  string        `json:"content"`
	Metadata ChunkMetadata `json:"metadata"`
}

// ScoredChunk is a raw nearest-neighbor row from the vector store.
// Distance is the cosine distance reported by the index, in [0, 2].
type ScoredChunk struct {
	ChunkID  string
	Content  string
	Metadata ChunkMetadata
	Distance float64
}

// SearchResult is a search hit shaped for API callers. SimilarityScore
// is 1 - cosine distance and can be negative for near-opposite vectors.
type SearchResult struct {
	ChunkID         string        `json:"chunk_id"`
	Content         string        `json:"content"`
	Metadata        ChunkMetadata `json:"metadata"`
	SimilarityScore float64       `json:"similarity_score"`
}

// ProcessingResult records the outcome of one ingestion attempt for one
// document. It is attached to the upload response, never persisted.
type ProcessingResult struct {
	DocumentID       int64    `json:"document_id"`
	OriginalFilename string   `json:"original_filename"`
	TotalChunks      int      `json:"total_chunks"`
	TotalTokens      int      `json:"total_tokens"`
	ChunkIDs         []string `json:"chunk_ids,omitempty"`
	Status           string   `json:"status"`
	Error            string   `json:"error,omitempty"`
}

// SearchQuery is the request body for semantic search.
type SearchQuery struct {
	Query    string `json:"query"`
	NResults int    `json:"n_results"`
}

// CollectionStats describes the vector collection as a whole.
type CollectionStats struct {
	TotalChunks    int            `json:"total_chunks"`
	CollectionName string         `json:"collection_name"`
	SampleMetadata *ChunkMetadata `json:"sample_metadata,omitempty"`
}
