// Package store persists chunk embeddings in Postgres with the pgvector
// extension.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/mgrd/docstack/internal/models"
)

type VectorStoreConfig struct {
	ConnString  string
	TableName   string
	VectorDim   int
	SearchLimit int
}

type VectorStore struct {
	config VectorStoreConfig
	pool   *pgxpool.Pool
}

func NewWithConfig(config VectorStoreConfig) (*VectorStore, error) {
	if config.TableName == "" {
		config.TableName = "documents"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 384 // all-minilm output dimensionality
	}
	if config.SearchLimit == 0 {
		config.SearchLimit = 5
	}

	pool, err := pgxpool.New(context.Background(), config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	vs := &VectorStore{
		config: config,
		pool:   pool,
	}

	if err := vs.initialize(); err != nil {
		pool.Close()
		return nil, err
	}

	return vs, nil
}

func (vs *VectorStore) initialize() error {
	ctx := context.Background()

	// Enable pgvector extension
	_, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %v", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			document_id BIGINT NOT NULL,
			chunk_index INTEGER NOT NULL,
			content TEXT,
			embedding vector(%d),
			metadata JSONB
		)`, vs.config.TableName, vs.config.VectorDim)

	_, err = vs.pool.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("failed to create table: %v", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		vs.config.TableName, vs.config.TableName)

	_, err = vs.pool.Exec(ctx, createIndex)
	if err != nil {
		return fmt.Errorf("failed to create index: %v", err)
	}

	// Document-scoped reads and deletes go through this index.
	createDocIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_document_id_idx
		ON %s (document_id, chunk_index)`,
		vs.config.TableName, vs.config.TableName)

	_, err = vs.pool.Exec(ctx, createDocIndex)
	if err != nil {
		return fmt.Errorf("failed to create document index: %v", err)
	}

	return nil
}

// Upsert stores one chunk, replacing any existing chunk with the same id.
func (vs *VectorStore) Upsert(ctx context.Context, id string, vector []float32, content string, meta models.ChunkMetadata) error {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %v", err)
	}

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, document_id, chunk_index, content, embedding, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata`,
		vs.config.TableName)

	_, err = vs.pool.Exec(ctx, stmt,
		id,
		meta.DocumentID,
		meta.ChunkIndex,
		sanitizeUTF8(content),
		pgvector.NewVector(vector),
		metaJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to insert chunk: %v", err)
	}

	return nil
}

// Query returns the k nearest chunks to the given vector, closest first.
func (vs *VectorStore) Query(ctx context.Context, vector []float32, k int) ([]models.ScoredChunk, error) {
	if k <= 0 {
		k = vs.config.SearchLimit
	}

	query := fmt.Sprintf(`
		SELECT id, content, metadata, embedding <=> $1 AS distance
		FROM %s
		ORDER BY distance
		LIMIT $2`,
		vs.config.TableName)

	rows, err := vs.pool.Query(ctx, query, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %v", err)
	}
	defer rows.Close()

	var chunks []models.ScoredChunk
	for rows.Next() {
		var chunk models.ScoredChunk
		var metaJSON []byte
		if err := rows.Scan(&chunk.ChunkID, &chunk.Content, &metaJSON, &chunk.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}
		if err := json.Unmarshal(metaJSON, &chunk.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata: %v", err)
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %v", err)
	}

	return chunks, nil
}

// GetByDocument returns every stored chunk of one document, ordered by
// chunk index.
func (vs *VectorStore) GetByDocument(ctx context.Context, documentID int64) ([]models.DocumentChunk, error) {
	query := fmt.Sprintf(`
		SELECT id, content, metadata
		FROM %s
		WHERE document_id = $1
		ORDER BY chunk_index`,
		vs.config.TableName)

	rows, err := vs.pool.Query(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %v", err)
	}
	defer rows.Close()

	var chunks []models.DocumentChunk
	for rows.Next() {
		var chunk models.DocumentChunk
		var metaJSON []byte
		if err := rows.Scan(&chunk.ChunkID, &chunk.Content, &metaJSON); err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}
		if err := json.Unmarshal(metaJSON, &chunk.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata: %v", err)
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %v", err)
	}

	return chunks, nil
}

// DeleteByDocument removes all chunks of one document. Deleting a
// document with no stored chunks is not an error.
func (vs *VectorStore) DeleteByDocument(ctx context.Context, documentID int64) error {
	stmt := fmt.Sprintf("DELETE FROM %s WHERE document_id = $1", vs.config.TableName)

	if _, err := vs.pool.Exec(ctx, stmt, documentID); err != nil {
		return fmt.Errorf("failed to delete chunks: %v", err)
	}

	return nil
}

// Count reports the total number of stored chunks across all documents.
func (vs *VectorStore) Count(ctx context.Context) (int, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", vs.config.TableName)

	var count int
	if err := vs.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %v", err)
	}

	return count, nil
}

// SampleMetadata returns the metadata of one arbitrary stored chunk, or
// nil when the collection is empty.
func (vs *VectorStore) SampleMetadata(ctx context.Context) (*models.ChunkMetadata, error) {
	query := fmt.Sprintf("SELECT metadata FROM %s LIMIT 1", vs.config.TableName)

	var metaJSON []byte
	rows, err := vs.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query metadata: %v", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	if err := rows.Scan(&metaJSON); err != nil {
		return nil, fmt.Errorf("failed to scan row: %v", err)
	}

	var meta models.ChunkMetadata
	if err := json.Unmarshal(metaJSON, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %v", err)
	}

	return &meta, nil
}

func (vs *VectorStore) Close() {
	if vs.pool != nil {
		vs.pool.Close()
	}
}

func sanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}
