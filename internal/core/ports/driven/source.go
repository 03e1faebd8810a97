package driven

import (
	"context"

	"github.com/custodia-labs/docindex/internal/core/domain"
)

// Source enumerates the documents of a corpus.
type Source interface {
	// Type returns the source type identifier.
	Type() string

	// Root returns the location the source reads from.
	Root() string

	// Validate checks the source is readable.
	Validate(ctx context.Context) error

	// FullSync emits every document currently in the source.
	// Both channels are closed when the scan finishes or ctx is cancelled.
	// Errors on the error channel are per-file and do not stop the scan.
	FullSync(ctx context.Context) (<-chan domain.Document, <-chan error)

	// Watch emits change events until ctx is cancelled.
	Watch(ctx context.Context) (<-chan domain.DocumentChange, error)

	// Close releases resources.
	Close() error
}
