package extract

import (
	"archive/zip"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockResult struct {
	out string
	err error
}

// mockRunner hands out canned results in call order and records every
// invocation.
type mockRunner struct {
	calls   [][]string
	results []mockResult
}

func (m *mockRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	m.calls = append(m.calls, append([]string{name}, args...))
	if len(m.results) == 0 {
		return nil, fmt.Errorf("unexpected command: %s", name)
	}
	r := m.results[0]
	m.results = m.results[1:]
	return []byte(r.out), r.err
}

type fakeCaptioner struct {
	description string
	err         error
}

func (f fakeCaptioner) Describe(_ context.Context, _ string) (string, error) {
	return f.description, f.err
}

func (f fakeCaptioner) Enabled() bool { return true }

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestResolveContentType(t *testing.T) {
	tests := []struct {
		filename string
		declared string
		want     string
	}{
		{"notes.txt", "application/octet-stream", "text/plain"},
		{"readme.MD", "", "text/markdown"},
		{"report.pdf", "text/plain", "application/pdf"},
		{"contract.docx", "", docxContentType},
		{"scan.png", "", "image/png"},
		{"photo.JPG", "", "image/jpeg"},
		{"photo.jpeg", "", "image/jpeg"},
		{"anim.gif", "", "image/gif"},
		{"scan.tiff", "", "image/tiff"},
		{"data.csv", "text/csv", "text/csv"},
		{"mystery", "", "application/octet-stream"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ResolveContentType(tt.filename, tt.declared), tt.filename)
	}
}

func TestIsVectorProcessable(t *testing.T) {
	assert.True(t, IsVectorProcessable("text/plain"))
	assert.True(t, IsVectorProcessable("text/markdown"))
	assert.True(t, IsVectorProcessable("application/pdf"))
	assert.True(t, IsVectorProcessable(docxContentType))
	assert.True(t, IsVectorProcessable("image/png"))
	assert.False(t, IsVectorProcessable("application/zip"))
	assert.False(t, IsVectorProcessable("video/mp4"))
}

func TestExtractPlainText(t *testing.T) {
	e := NewWithConfig(ExtractorConfig{Runner: &mockRunner{}})
	path := writeTempFile(t, "notes.txt", "plain text body")

	text, err := e.Extract(context.Background(), path, "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "plain text body", text)
}

func TestExtractMarkdownStripsFormatting(t *testing.T) {
	e := NewWithConfig(ExtractorConfig{Runner: &mockRunner{}})
	path := writeTempFile(t, "guide.md", `# Setup Guide

Install the **base** package first.

- step one
- step two
`)

	text, err := e.Extract(context.Background(), path, "text/markdown")
	require.NoError(t, err)

	assert.Contains(t, text, "Setup Guide")
	assert.Contains(t, text, "Install the base package first.")
	assert.Contains(t, text, "step one")
	assert.NotContains(t, text, "#")
	assert.NotContains(t, text, "**")
}

func TestExtractMarkdownNestedListsNoDuplication(t *testing.T) {
	e := NewWithConfig(ExtractorConfig{Runner: &mockRunner{}})
	path := writeTempFile(t, "plan.md", "- outer item\n  - inner item\n")

	text, err := e.Extract(context.Background(), path, "text/markdown")
	require.NoError(t, err)

	// Each list item appears exactly once even when nested.
	assert.Equal(t, 1, strings.Count(text, "outer item"))
	assert.Equal(t, 1, strings.Count(text, "inner item"))
}

func TestExtractUnsupportedFormat(t *testing.T) {
	e := NewWithConfig(ExtractorConfig{Runner: &mockRunner{}})
	path := writeTempFile(t, "archive.zip", "not really a zip")

	_, err := e.Extract(context.Background(), path, "application/zip")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestExtractPDFViaRunner(t *testing.T) {
	runner := &mockRunner{results: []mockResult{
		{out: "page one text\f page two text \f"},
	}}
	e := NewWithConfig(ExtractorConfig{Runner: runner})
	path := writeTempFile(t, "report.pdf", "%PDF-1.4")

	text, err := e.Extract(context.Background(), path, "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "page one text\n\npage two text", text)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"pdftotext", "-layout", path, "-"}, runner.calls[0])
}

func TestExtractPDFFallbackFailure(t *testing.T) {
	// pdftotext missing and the file is not a real PDF, so the pure-Go
	// reader cannot help either.
	runner := &mockRunner{results: []mockResult{
		{err: fmt.Errorf("pdftotext: executable not found")},
	}}
	e := NewWithConfig(ExtractorConfig{Runner: runner})
	path := writeTempFile(t, "broken.pdf", "not a pdf at all")

	_, err := e.Extract(context.Background(), path, "application/pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdf text extraction failed")
}

func writeTestDOCX(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "contract.docx")

	f, err := os.Create(path)
	require.NoError(t, err)
	w := zip.NewWriter(f)
	for name, content := range entries {
		entry, err := w.Create(name)
		require.NoError(t, err)
		_, err = entry.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
	return path
}

func TestExtractDOCX(t *testing.T) {
	documentXML := `<?xml version="1.0"?>
<document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <body>
    <p><r><t>First paragraph.</t></r></p>
    <p><r><t>Second </t></r><r><t>paragraph.</t></r></p>
    <tbl>
      <tr>
        <tc><p><r><t>Name</t></r></p></tc>
        <tc><p><r><t>Value</t></r></p></tc>
      </tr>
    </tbl>
  </body>
</document>`
	headerXML := `<?xml version="1.0"?>
<hdr><p><r><t>Confidential</t></r></p></hdr>`

	path := writeTestDOCX(t, map[string]string{
		"word/document.xml": documentXML,
		"word/header1.xml":  headerXML,
		"word/styles.xml":   "<styles/>",
	})

	e := NewWithConfig(ExtractorConfig{Runner: &mockRunner{}})
	text, err := e.Extract(context.Background(), path, docxContentType)
	require.NoError(t, err)

	assert.Contains(t, text, "First paragraph.")
	assert.Contains(t, text, "Second paragraph.")
	assert.Contains(t, text, "Name | Value")
	assert.Contains(t, text, "Confidential")
}

func TestExtractDOCXNoText(t *testing.T) {
	path := writeTestDOCX(t, map[string]string{
		"word/document.xml": `<?xml version="1.0"?><document><body></body></document>`,
	})

	e := NewWithConfig(ExtractorConfig{Runner: &mockRunner{}})
	_, err := e.Extract(context.Background(), path, docxContentType)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no text content")
}

func writeTestPNG(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scan.png")

	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, 8, 8))))
	require.NoError(t, f.Close())
	return path
}

func TestExtractImageOCROnly(t *testing.T) {
	runner := &mockRunner{results: []mockResult{
		{out: "INVOICE #42\nTOTAL 99.00\n"},
	}}
	e := NewWithConfig(ExtractorConfig{Runner: runner})
	path := writeTestPNG(t)

	text, err := e.Extract(context.Background(), path, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "OCR Text:\nINVOICE #42\nTOTAL 99.00", text)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, "tesseract", runner.calls[0][0])
	assert.Equal(t, []string{"stdout", "--psm", "6"}, runner.calls[0][2:])
}

func TestExtractImageRetriesSegmentation(t *testing.T) {
	runner := &mockRunner{results: []mockResult{
		{out: "   \n"},
		{out: "found on retry"},
	}}
	e := NewWithConfig(ExtractorConfig{Runner: runner})
	path := writeTestPNG(t)

	text, err := e.Extract(context.Background(), path, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "OCR Text:\nfound on retry", text)

	require.Len(t, runner.calls, 2)
	assert.Equal(t, []string{"stdout", "--psm", "3"}, runner.calls[1][2:])
}

func TestExtractImageWithCaption(t *testing.T) {
	runner := &mockRunner{results: []mockResult{{out: "RECEIPT"}}}
	e := NewWithConfig(ExtractorConfig{
		Runner:    runner,
		Captioner: fakeCaptioner{description: "A store receipt."},
	})
	path := writeTestPNG(t)

	text, err := e.Extract(context.Background(), path, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "OCR Text:\nRECEIPT\n\nAI Description:\nA store receipt.", text)
}

func TestExtractImageCaptionFailureDegrades(t *testing.T) {
	runner := &mockRunner{results: []mockResult{{out: "RECEIPT"}}}
	e := NewWithConfig(ExtractorConfig{
		Runner:    runner,
		Captioner: fakeCaptioner{err: fmt.Errorf("quota exceeded")},
	})
	path := writeTestPNG(t)

	text, err := e.Extract(context.Background(), path, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "OCR Text:\nRECEIPT\n\nNote: AI description generation failed", text)
}

func TestExtractImageOCRUnavailable(t *testing.T) {
	runner := &mockRunner{results: []mockResult{
		{err: fmt.Errorf("tesseract: executable not found")},
	}}
	e := NewWithConfig(ExtractorConfig{Runner: runner})
	path := writeTestPNG(t)

	_, err := e.Extract(context.Background(), path, "image/png")
	assert.ErrorIs(t, err, ErrOCRUnavailable)
}
