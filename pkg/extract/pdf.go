package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF extracts text page by page, pages separated by a blank
// line. pdftotext with layout mode is tried first; when the binary is
// missing or returns nothing, the pure-Go reader is the fallback.
func (e *Extractor) extractPDF(ctx context.Context, filePath string) (string, error) {
	if text, err := e.pdfToText(ctx, filePath); err == nil && text != "" {
		return text, nil
	}

	text, err := pdfReaderText(filePath)
	if err != nil {
		return "", fmt.Errorf("pdf text extraction failed: %w", err)
	}
	if text == "" {
		return "", fmt.Errorf("pdf text extraction failed: no text found")
	}
	return text, nil
}

func (e *Extractor) pdfToText(ctx context.Context, filePath string) (string, error) {
	out, err := e.config.Runner.Run(ctx, e.config.PdftotextBin, "-layout", filePath, "-")
	if err != nil {
		return "", err
	}

	// pdftotext separates pages with form feeds.
	var pages []string
	for _, page := range strings.Split(string(out), "\f") {
		if page = strings.TrimSpace(page); page != "" {
			pages = append(pages, page)
		}
	}
	return strings.Join(pages, "\n\n"), nil
}

func pdfReaderText(filePath string) (string, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var pages []string
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}
	return strings.Join(pages, "\n\n"), nil
}
