// Package plaintext provides an Extractor for UTF-8 text documents.
package plaintext

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/docindex/internal/core/domain"
	"github.com/custodia-labs/docindex/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.PrioritisedExtractor = (*Extractor)(nil)

// version is bumped whenever the extracted text for the same bytes changes.
const version = "v1"

// Extractor handles plain text documents.
type Extractor struct{}

// New creates a new plain text extractor.
func New() *Extractor {
	return &Extractor{}
}

// Name returns "plaintext".
func (e *Extractor) Name() string {
	return "plaintext"
}

// Version returns the extractor logic version.
func (e *Extractor) Version() string {
	return version
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{
		"text/*",
		"application/json",
		"application/xml",
		"application/x-yaml",
		"application/toml",
		"image/svg+xml",
	}
}

// Priority returns the selection priority.
func (e *Extractor) Priority() int {
	return 5 // Fallback extractor
}

// Extract returns the document bytes as text. A UTF-8 byte order mark is
// dropped and CRLF line endings become LF so paragraph boundaries are
// recognised by the chunker.
func (e *Extractor) Extract(_ context.Context, doc *domain.Document) (*domain.ExtractedText, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrExtraction, domain.ErrInvalidInput)
	}
	if !utf8.Valid(doc.Content) {
		return nil, fmt.Errorf("%w: %w: %s is not valid UTF-8", domain.ErrExtraction, domain.ErrInvalidInput, doc.Filename)
	}

	text := strings.TrimPrefix(string(doc.Content), "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")

	return &domain.ExtractedText{Filename: doc.Filename, Text: text}, nil
}
