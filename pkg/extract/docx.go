package extract

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// extractDOCX walks a DOCX archive: body paragraphs first, then tables
// (cells joined with " | ", one line per row), then the header and
// footer parts. Non-empty fragments are joined with blank lines.
func extractDOCX(filePath string) (string, error) {
	reader, err := zip.OpenReader(filePath)
	if err != nil {
		return "", fmt.Errorf("open docx archive: %w", err)
	}
	defer reader.Close()

	var parts []string

	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}
		content, err := readZipFile(file)
		if err != nil {
			return "", fmt.Errorf("read docx body: %w", err)
		}
		parts = append(parts, parseDocumentXML(content)...)
		break
	}

	// Header and footer parts of every section.
	for _, file := range reader.File {
		if !strings.HasPrefix(file.Name, "word/header") && !strings.HasPrefix(file.Name, "word/footer") {
			continue
		}
		content, err := readZipFile(file)
		if err != nil {
			continue
		}
		parts = append(parts, parseHeaderFooterXML(content)...)
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("no text content found in docx file")
	}
	return strings.Join(parts, "\n\n"), nil
}

func readZipFile(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// documentXML mirrors the parts of word/document.xml we care about.
type documentXML struct {
	Body struct {
		Paragraphs []paragraph `xml:"p"`
		Tables     []table     `xml:"tbl"`
	} `xml:"body"`
}

type headerFooterXML struct {
	Paragraphs []paragraph `xml:"p"`
}

type paragraph struct {
	Runs []run `xml:"r"`
}

type run struct {
	Text []textElement `xml:"t"`
}

type textElement struct {
	Content string `xml:",chardata"`
}

type table struct {
	Rows []tableRow `xml:"tr"`
}

type tableRow struct {
	Cells []tableCell `xml:"tc"`
}

type tableCell struct {
	Paragraphs []paragraph `xml:"p"`
}

func parseDocumentXML(content []byte) []string {
	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return nil
	}

	var parts []string
	for _, para := range doc.Body.Paragraphs {
		if t := paragraphText(para); t != "" {
			parts = append(parts, t)
		}
	}
	for _, tbl := range doc.Body.Tables {
		for _, row := range tbl.Rows {
			var cells []string
			for _, cell := range row.Cells {
				var cellParts []string
				for _, para := range cell.Paragraphs {
					if t := paragraphText(para); t != "" {
						cellParts = append(cellParts, t)
					}
				}
				if len(cellParts) > 0 {
					cells = append(cells, strings.Join(cellParts, " "))
				}
			}
			if len(cells) > 0 {
				parts = append(parts, strings.Join(cells, " | "))
			}
		}
	}
	return parts
}

func parseHeaderFooterXML(content []byte) []string {
	var hf headerFooterXML
	if err := xml.Unmarshal(content, &hf); err != nil {
		return nil
	}

	var parts []string
	for _, para := range hf.Paragraphs {
		if t := paragraphText(para); t != "" {
			parts = append(parts, t)
		}
	}
	return parts
}

func paragraphText(para paragraph) string {
	var sb strings.Builder
	for _, r := range para.Runs {
		for _, t := range r.Text {
			sb.WriteString(t.Content)
		}
	}
	return strings.TrimSpace(sb.String())
}
