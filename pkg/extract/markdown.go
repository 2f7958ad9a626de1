package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gomarkdown/markdown"
)

const blockSelector = "h1,h2,h3,h4,h5,h6,p,li,pre,blockquote,td,th"

// stripMarkdown renders markdown to HTML and strips the tags back out,
// leaving plain prose in reading order. Styling is discarded.
func stripMarkdown(md []byte) (string, error) {
	html := markdown.ToHTML(md, nil, nil)

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse rendered markdown: %w", err)
	}

	var parts []string
	doc.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		// A node emits only its own text. Block elements nested inside
		// it (a list under a list item, paragraphs in a blockquote)
		// are emitted on their own visits, so strip them here to keep
		// each text span from appearing twice.
		if s.Find(blockSelector).Length() > 0 {
			s = s.Clone()
			s.Find(blockSelector).Remove()
		}
		if t := strings.TrimSpace(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})

	return strings.Join(parts, "\n"), nil
}
