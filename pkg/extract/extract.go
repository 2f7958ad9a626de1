// Package extract converts stored files into raw text, dispatching per
// content type to format-specific extractors.
package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mgrd/docstack/internal/types"
)

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

var (
	// ErrUnsupportedFormat means the content type has no extractor.
	ErrUnsupportedFormat = errors.New("unsupported content type")

	// ErrOCRUnavailable means the OCR engine could not be invoked.
	// This is fatal for the image pathway only, not for the pipeline.
	ErrOCRUnavailable = errors.New("ocr engine unavailable")
)

type ExtractorConfig struct {
	TesseractBin string
	PdftotextBin string
	Captioner    types.Captioner // nil disables image captioning
	Runner       CommandRunner
}

type Extractor struct {
	config ExtractorConfig
}

func NewWithConfig(config ExtractorConfig) *Extractor {
	if config.TesseractBin == "" {
		config.TesseractBin = "tesseract"
	}
	if config.PdftotextBin == "" {
		config.PdftotextBin = "pdftotext"
	}
	if config.Runner == nil {
		config.Runner = execRunner{}
	}

	return &Extractor{config: config}
}

// Extract returns the raw text of the file at filePath. The declared
// content type drives dispatch; generic types fall back to the file
// extension via ResolveContentType.
func (e *Extractor) Extract(ctx context.Context, filePath, contentType string) (string, error) {
	contentType = ResolveContentType(filePath, contentType)

	switch {
	case contentType == "text/plain":
		data, err := os.ReadFile(filePath)
		if err != nil {
			return "", fmt.Errorf("read text file: %w", err)
		}
		return string(data), nil

	case contentType == "text/markdown":
		data, err := os.ReadFile(filePath)
		if err != nil {
			return "", fmt.Errorf("read markdown file: %w", err)
		}
		return stripMarkdown(data)

	case contentType == "application/pdf":
		return e.extractPDF(ctx, filePath)

	case contentType == docxContentType:
		return extractDOCX(filePath)

	case strings.HasPrefix(contentType, "image/"):
		return e.extractImage(ctx, filePath)

	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, contentType)
	}
}

// ResolveContentType determines the content type for a file, preferring
// the file extension over the declared MIME type so that generic
// octet-stream uploads still dispatch correctly.
func ResolveContentType(filename, declared string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt":
		return "text/plain"
	case ".md":
		return "text/markdown"
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return docxContentType
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".bmp":
		return "image/bmp"
	case ".tiff":
		return "image/tiff"
	}

	if declared != "" {
		return declared
	}
	return "application/octet-stream"
}

// IsVectorProcessable reports whether a content type can go through the
// vector pipeline.
func IsVectorProcessable(contentType string) bool {
	switch contentType {
	case "text/plain", "text/markdown", "application/pdf", docxContentType:
		return true
	}
	return strings.HasPrefix(contentType, "image/")
}
