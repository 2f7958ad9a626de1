package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgrd/docstack/internal/models"
	"github.com/mgrd/docstack/pkg/auth"
	"github.com/mgrd/docstack/pkg/chat"
	"github.com/mgrd/docstack/pkg/repo"
)

type fakePipeline struct {
	processed    []int64
	deleted      []int64
	searchHits   []models.SearchResult
	chunks       map[int64][]models.DocumentChunk
	processErr   bool
	searchCalled bool
}

func newFakePipeline() *fakePipeline {
	return &fakePipeline{chunks: make(map[int64][]models.DocumentChunk)}
}

func (f *fakePipeline) ProcessDocument(_ context.Context, _, contentType string, documentID int64, originalFilename, _ string) models.ProcessingResult {
	f.processed = append(f.processed, documentID)
	if f.processErr {
		return models.ProcessingResult{
			DocumentID:       documentID,
			OriginalFilename: originalFilename,
			Status:           models.StatusError,
			Error:            "embedding failed",
		}
	}
	return models.ProcessingResult{
		DocumentID:       documentID,
		OriginalFilename: originalFilename,
		TotalChunks:      2,
		TotalTokens:      10,
		ChunkIDs:         []string{fmt.Sprintf("%d_0", documentID), fmt.Sprintf("%d_1", documentID)},
		Status:           models.StatusProcessed,
	}
}

func (f *fakePipeline) SearchDocuments(_ context.Context, _ string, _ int) ([]models.SearchResult, error) {
	f.searchCalled = true
	return f.searchHits, nil
}

func (f *fakePipeline) GetDocumentChunks(_ context.Context, documentID int64) ([]models.DocumentChunk, error) {
	return f.chunks[documentID], nil
}

func (f *fakePipeline) DeleteDocumentChunks(_ context.Context, documentID int64) error {
	f.deleted = append(f.deleted, documentID)
	return nil
}

func (f *fakePipeline) CollectionStats(_ context.Context) (models.CollectionStats, error) {
	return models.CollectionStats{TotalChunks: 3, CollectionName: "documents"}, nil
}

type fakeChat struct{}

func (fakeChat) Chat(_ context.Context, _ string, _ []models.SearchResult) (string, error) {
	return "the answer", nil
}

func (fakeChat) Model() string { return "test-model" }

type testEnv struct {
	server   *Server
	pipeline *fakePipeline
}

func newTestServer(t *testing.T, withPipeline bool) *testEnv {
	t.Helper()

	db, err := repo.OpenSQLite(":memory:")
	require.NoError(t, err)

	config := ServerConfig{
		UploadDir: t.TempDir(),
		Documents: repo.NewDocumentRepo(db),
		Users:     auth.NewUserManager(db),
		History:   chat.NewHistoryManager(db),
		Chat:      fakeChat{},
	}

	env := &testEnv{}
	if withPipeline {
		env.pipeline = newFakePipeline()
		config.Pipeline = env.pipeline
	}

	s, err := NewWithConfig(config)
	require.NoError(t, err)
	env.server = s
	return env
}

func doJSON(t *testing.T, s *Server, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echoContentType, "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

const echoContentType = "Content-Type"

func uploadFile(t *testing.T, s *Server, path, field, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	return uploadFiles(t, s, path, field, map[string]string{filename: content})
}

func uploadFiles(t *testing.T, s *Server, path, field string, files map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for filename, content := range files {
		part, err := writer.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set(echoContentType, writer.FormDataContentType())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	env := newTestServer(t, true)

	rec := doJSON(t, env.server, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[map[string]any](t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, true, body["vector_pipeline"])
}

func TestHealthDegraded(t *testing.T) {
	env := newTestServer(t, false)

	rec := doJSON(t, env.server, http.MethodGet, "/health", nil, nil)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, false, body["vector_pipeline"])
}

func TestUploadProcessesDocument(t *testing.T) {
	env := newTestServer(t, true)

	rec := uploadFile(t, env.server, "/documents/upload", "file", "notes.txt", "hello world")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	doc := decode[models.DocumentResponse](t, rec)
	assert.Equal(t, "notes.txt", doc.OriginalFilename)
	assert.Equal(t, "text/plain", doc.ContentType)
	assert.Equal(t, int64(11), doc.FileSize)
	require.NotNil(t, doc.ProcessingResult)
	assert.Equal(t, models.StatusProcessed, doc.ProcessingResult.Status)
	assert.Equal(t, []int64{doc.ID}, env.pipeline.processed)
}

func TestUploadWithoutPipelineStillStoresDocument(t *testing.T) {
	env := newTestServer(t, false)

	rec := uploadFile(t, env.server, "/documents/upload", "file", "notes.txt", "hello")
	require.Equal(t, http.StatusCreated, rec.Code)

	doc := decode[models.DocumentResponse](t, rec)
	assert.NotZero(t, doc.ID)
	assert.Nil(t, doc.ProcessingResult)
}

func TestUploadFailedProcessingStillStoresDocument(t *testing.T) {
	env := newTestServer(t, true)
	env.pipeline.processErr = true

	rec := uploadFile(t, env.server, "/documents/upload", "file", "notes.txt", "hello")
	require.Equal(t, http.StatusCreated, rec.Code)

	doc := decode[models.DocumentResponse](t, rec)
	require.NotNil(t, doc.ProcessingResult)
	assert.Equal(t, models.StatusError, doc.ProcessingResult.Status)

	list := doJSON(t, env.server, http.MethodGet, "/documents", nil, nil)
	docs := decode[[]models.Document](t, list)
	assert.Len(t, docs, 1)
}

func TestUploadRequiresFile(t *testing.T) {
	env := newTestServer(t, true)

	rec := doJSON(t, env.server, http.MethodPost, "/documents/upload", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadMultiple(t *testing.T) {
	env := newTestServer(t, true)

	rec := uploadFiles(t, env.server, "/documents/upload-multiple", "files", map[string]string{
		"a.txt": "first file",
		"b.md":  "# second file",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decode[models.BulkUploadResponse](t, rec)
	assert.Equal(t, 2, body.UploadedCount)
	assert.Len(t, body.Documents, 2)
	assert.Empty(t, body.Errors)
}

func TestUploadMultipleTooMany(t *testing.T) {
	env := newTestServer(t, true)

	files := make(map[string]string)
	for i := 0; i < 11; i++ {
		files[fmt.Sprintf("file%d.txt", i)] = "content"
	}

	rec := uploadFiles(t, env.server, "/documents/upload-multiple", "files", files)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetDocumentNotFound(t *testing.T) {
	env := newTestServer(t, true)

	rec := doJSON(t, env.server, http.MethodGet, "/documents/999", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, env.server, http.MethodGet, "/documents/abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteDocumentRemovesChunks(t *testing.T) {
	env := newTestServer(t, true)

	rec := uploadFile(t, env.server, "/documents/upload", "file", "notes.txt", "hello")
	doc := decode[models.DocumentResponse](t, rec)

	rec = doJSON(t, env.server, http.MethodDelete, fmt.Sprintf("/documents/%d", doc.ID), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, []int64{doc.ID}, env.pipeline.deleted)

	rec = doJSON(t, env.server, http.MethodGet, fmt.Sprintf("/documents/%d", doc.ID), nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearch(t *testing.T) {
	env := newTestServer(t, true)
	env.pipeline.searchHits = []models.SearchResult{
		{ChunkID: "1_0", Content: "relevant text", SimilarityScore: 0.92},
	}

	rec := doJSON(t, env.server, http.MethodPost, "/search",
		models.SearchQuery{Query: "find me", NResults: 3}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.pipeline.searchCalled)

	body := decode[map[string]json.RawMessage](t, rec)
	var results []models.SearchResult
	require.NoError(t, json.Unmarshal(body["results"], &results))
	require.Len(t, results, 1)
	assert.InDelta(t, 0.92, results[0].SimilarityScore, 0.001)
}

func TestSearchRequiresQuery(t *testing.T) {
	env := newTestServer(t, true)

	rec := doJSON(t, env.server, http.MethodPost, "/search", models.SearchQuery{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchUnavailableWithoutPipeline(t *testing.T) {
	env := newTestServer(t, false)

	rec := doJSON(t, env.server, http.MethodPost, "/search",
		models.SearchQuery{Query: "anything"}, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestVectorStats(t *testing.T) {
	env := newTestServer(t, true)

	rec := doJSON(t, env.server, http.MethodGet, "/vector/stats", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	stats := decode[models.CollectionStats](t, rec)
	assert.Equal(t, 3, stats.TotalChunks)
	assert.Equal(t, "documents", stats.CollectionName)
}

func TestReprocessRejectsNonTextFormats(t *testing.T) {
	env := newTestServer(t, true)

	rec := uploadFile(t, env.server, "/documents/upload", "file", "scan.pdf", "%PDF-1.4 fake")
	doc := decode[models.DocumentResponse](t, rec)

	rec = doJSON(t, env.server, http.MethodPost, fmt.Sprintf("/documents/%d/reprocess", doc.ID), nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReprocessTextDocument(t *testing.T) {
	env := newTestServer(t, true)

	rec := uploadFile(t, env.server, "/documents/upload", "file", "notes.txt", "hello")
	doc := decode[models.DocumentResponse](t, rec)

	rec = doJSON(t, env.server, http.MethodPost, fmt.Sprintf("/documents/%d/reprocess", doc.ID), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	result := decode[models.ProcessingResult](t, rec)
	assert.Equal(t, models.StatusProcessed, result.Status)
	assert.Equal(t, []int64{doc.ID, doc.ID}, env.pipeline.processed)
}
