// Package extract turns uploaded candidate documents into plain text.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"JobMatcher/internal/domain"
	"JobMatcher/internal/ports"
)

// DocumentExtractor handles plain-text and HTML uploads. Binary formats
// are rejected with an ExtractionError; the read path treats that as
// "no skills found".
type DocumentExtractor struct{}

var _ ports.TextExtractor = (*DocumentExtractor)(nil)

// NewDocumentExtractor builds the extractor.
func NewDocumentExtractor() *DocumentExtractor {
	return &DocumentExtractor{}
}

// ExtractText returns the document's text content with collapsed
// whitespace.
func (e *DocumentExtractor) ExtractText(ctx context.Context, file []byte) (string, error) {
	if len(file) == 0 {
		return "", &domain.ExtractionError{Err: fmt.Errorf("empty document")}
	}
	if !utf8.Valid(file) {
		return "", &domain.ExtractionError{Err: fmt.Errorf("binary document, expected plain text or html")}
	}

	text := string(file)
	if looksLikeHTML(file) {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(file))
		if err != nil {
			return "", &domain.ExtractionError{Err: fmt.Errorf("parse html: %w", err)}
		}
		doc.Find("script, style").Remove()
		text = doc.Text()
	}

	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return "", &domain.ExtractionError{Err: fmt.Errorf("document has no text content")}
	}
	return text, nil
}

func looksLikeHTML(file []byte) bool {
	head := bytes.ToLower(bytes.TrimSpace(file))
	if len(head) > 256 {
		head = head[:256]
	}
	return bytes.HasPrefix(head, []byte("<!doctype html")) ||
		bytes.HasPrefix(head, []byte("<html")) ||
		bytes.Contains(head, []byte("<body"))
}
