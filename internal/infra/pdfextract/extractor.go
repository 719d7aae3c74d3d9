package pdfextract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/deepscalers/student-assistant/internal/domain/ingest"
)

// Extractor pulls plain text out of PDF documents.
type Extractor struct{}

// NewExtractor constructs the extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract parses the document and returns its text page by page. Malformed
// and encrypted documents surface as errors; pages that fail individually
// are skipped.
func (e *Extractor) Extract(_ context.Context, filename string, data []byte) (out ingest.Extraction, err error) {
	// The parser panics on some malformed documents.
	defer func() {
		if r := recover(); r != nil {
			out = ingest.Extraction{}
			err = fmt.Errorf("parse %s: %v", filename, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ingest.Extraction{}, fmt.Errorf("parse %s: %w", filename, err)
	}

	var (
		pages []string
		all   strings.Builder
	)
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		pages = append(pages, text)
		if all.Len() > 0 {
			all.WriteString("\n\n")
		}
		all.WriteString(text)
	}
	if len(pages) == 0 {
		return ingest.Extraction{}, fmt.Errorf("%s contains no extractable text", filename)
	}
	return ingest.Extraction{Pages: pages, Text: all.String()}, nil
}

var _ ingest.Extractor = (*Extractor)(nil)
