package driven

import (
	"context"

	"github.com/custodia-labs/docindex/internal/core/domain"
)

// Extractor recovers plain text from a document's raw bytes.
//
// Implementations wrap domain.ErrExtraction together with a cause
// (domain.ErrAuthInvalid, domain.ErrRateLimited, domain.ErrQuotaExceeded,
// domain.ErrUnsupportedType, domain.ErrInvalidInput, domain.ErrTimeout)
// so the pipeline can report why a document failed.
type Extractor interface {
	// Name identifies the extractor.
	Name() string

	// Version changes whenever the extractor's output for identical input
	// may change. Cached results are keyed by it.
	Version() string

	// SupportedMIMETypes returns the MIME types this extractor handles.
	SupportedMIMETypes() []string

	// Extract returns the document's text.
	Extract(ctx context.Context, doc *domain.Document) (*domain.ExtractedText, error)
}

// PrioritisedExtractor is an Extractor that can be ranked against others
// handling the same MIME type (higher = preferred).
type PrioritisedExtractor interface {
	Extractor
	Priority() int
}
