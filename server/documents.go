package server

import (
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mgrd/docstack/internal/models"
	"github.com/mgrd/docstack/pkg/extract"
	"github.com/mgrd/docstack/pkg/repo"
)

const maxBulkFiles = 10

func (s *Server) handleUpload(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "file is required"})
	}
	description := c.FormValue("description")

	response, err := s.ingestFile(c, fileHeader, description)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusCreated, response)
}

func (s *Server) handleUploadMultiple(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "multipart form is required"})
	}

	files := form.File["files"]
	if len(files) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "at least one file is required"})
	}
	if len(files) > maxBulkFiles {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("too many files: maximum is %d per request", maxBulkFiles),
		})
	}
	description := c.FormValue("description")

	// Process files one at a time; a failure in one never aborts the
	// rest.
	response := models.BulkUploadResponse{Errors: []string{}}
	for _, fileHeader := range files {
		doc, err := s.ingestFile(c, fileHeader, description)
		if err != nil {
			response.Errors = append(response.Errors,
				fmt.Sprintf("File %s: %v", fileHeader.Filename, err))
			continue
		}
		response.Documents = append(response.Documents, *doc)
		response.UploadedCount++
	}
	response.Message = fmt.Sprintf("Uploaded %d of %d files", response.UploadedCount, len(files))

	return c.JSON(http.StatusCreated, response)
}

// ingestFile stores the upload on disk, records it in the catalog, and
// runs vector processing when the pipeline is available and the format
// supports it. The catalog row is created even when processing fails.
func (s *Server) ingestFile(c echo.Context, fileHeader *multipart.FileHeader, description string) (*models.DocumentResponse, error) {
	contentType := extract.ResolveContentType(fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"))

	storedName := uuid.NewString() + filepath.Ext(fileHeader.Filename)
	storedPath := filepath.Join(s.config.UploadDir, storedName)

	size, err := saveUpload(fileHeader, storedPath)
	if err != nil {
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	doc := models.Document{
		Filename:         storedName,
		OriginalFilename: fileHeader.Filename,
		FilePath:         storedPath,
		FileSize:         size,
		ContentType:      contentType,
		Description:      description,
	}
	if err := s.config.Documents.Create(&doc); err != nil {
		os.Remove(storedPath)
		return nil, err
	}

	response := models.DocumentResponse{Document: doc}

	if s.config.Pipeline != nil && extract.IsVectorProcessable(contentType) {
		result := s.config.Pipeline.ProcessDocument(c.Request().Context(),
			storedPath, contentType, doc.ID, doc.OriginalFilename, description)
		response.ProcessingResult = &result
	}

	return &response, nil
}

func saveUpload(fileHeader *multipart.FileHeader, dst string) (int64, error) {
	src, err := fileHeader.Open()
	if err != nil {
		return 0, err
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, err
	}

	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	return io.Copy(out, src)
}

func (s *Server) handleListDocuments(c echo.Context) error {
	docs, err := s.config.Documents.List()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, docs)
}

func (s *Server) handleGetDocument(c echo.Context) error {
	doc, ok := s.documentFromPath(c)
	if !ok {
		return nil
	}
	return c.JSON(http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(c echo.Context) error {
	doc, ok := s.documentFromPath(c)
	if !ok {
		return nil
	}

	// Chunks first, then file, then the catalog row. A missing file or
	// unavailable pipeline must not leave the row behind.
	if s.config.Pipeline != nil {
		if err := s.config.Pipeline.DeleteDocumentChunks(c.Request().Context(), doc.ID); err != nil {
			log.Printf("failed to delete chunks for document %d: %v", doc.ID, err)
		}
	}
	if err := os.Remove(doc.FilePath); err != nil && !os.IsNotExist(err) {
		log.Printf("failed to delete file %s: %v", doc.FilePath, err)
	}
	if err := s.config.Documents.Delete(doc.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Document %d deleted", doc.ID),
	})
}

func (s *Server) handleDocumentChunks(c echo.Context) error {
	doc, ok := s.documentFromPath(c)
	if !ok {
		return nil
	}

	pipeline := s.pipelineOr503(c)
	if pipeline == nil {
		return nil
	}

	chunks, err := pipeline.GetDocumentChunks(c.Request().Context(), doc.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"document_id":  doc.ID,
		"total_chunks": len(chunks),
		"chunks":       chunks,
	})
}

func (s *Server) handleReprocess(c echo.Context) error {
	doc, ok := s.documentFromPath(c)
	if !ok {
		return nil
	}

	if doc.ContentType != "text/plain" && doc.ContentType != "text/markdown" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("reprocessing is only supported for text files, not %s", doc.ContentType),
		})
	}

	pipeline := s.pipelineOr503(c)
	if pipeline == nil {
		return nil
	}

	result := pipeline.ProcessDocument(c.Request().Context(),
		doc.FilePath, doc.ContentType, doc.ID, doc.OriginalFilename, doc.Description)

	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleSearch(c echo.Context) error {
	var query models.SearchQuery
	if err := c.Bind(&query); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if query.Query == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "query is required"})
	}

	pipeline := s.pipelineOr503(c)
	if pipeline == nil {
		return nil
	}

	results, err := pipeline.SearchDocuments(c.Request().Context(), query.Query, query.NResults)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"query":   query.Query,
		"results": results,
	})
}

func (s *Server) handleVectorStats(c echo.Context) error {
	pipeline := s.pipelineOr503(c)
	if pipeline == nil {
		return nil
	}

	stats, err := pipeline.CollectionStats(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, stats)
}

// documentFromPath loads the document named by the :id path parameter,
// writing the error response itself when the id is bad or unknown.
func (s *Server) documentFromPath(c echo.Context) (*models.Document, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid document id"})
		return nil, false
	}

	doc, err := s.config.Documents.Get(id)
	if err != nil {
		if errors.Is(err, repo.ErrDocumentNotFound) {
			c.JSON(http.StatusNotFound, map[string]string{"error": "document not found"})
		} else {
			c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		return nil, false
	}

	return doc, true
}
