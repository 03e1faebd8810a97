package driven

import (
	"context"

	"github.com/custodia-labs/docindex/internal/core/domain"
)

// Exporter is the vector store export target.
//
// Errors wrap domain.ErrStorage. Failures that may succeed on retry
// additionally wrap domain.ErrTransient.
type Exporter interface {
	// EnsureTarget creates the table and vector index if absent and records
	// the target metadata. An existing target declared with a different dimension or
	// embedding identity is emptied and recreated, so every document is
	// re-exported on the next run.
	EnsureTarget(ctx context.Context, spec domain.TargetSpec) error

	// Target returns the recorded spec, or domain.ErrNotFound if none exists.
	Target(ctx context.Context) (*domain.TargetSpec, error)

	// ReplaceDocument makes rows the complete set for filename in one
	// transaction: rows are upserted by ID (unchanged rows are left alone)
	// and the file's other rows are deleted.
	ReplaceDocument(ctx context.Context, filename string, rows []domain.IndexRow) (domain.UpsertStats, error)

	// DeleteDocument removes all rows for filename and returns how many.
	DeleteDocument(ctx context.Context, filename string) (int, error)

	// CountRows returns the number of rows stored for filename.
	CountRows(ctx context.Context, filename string) (int, error)

	// Search returns the k rows nearest to vec by cosine distance,
	// best first, ties broken by ID ascending.
	Search(ctx context.Context, vec []float32, k int) ([]domain.ScoredRow, error)

	// Close releases resources.
	Close() error
}

// TrackingStore persists what the indexer last did for each file.
type TrackingStore interface {
	// GetRecord returns the record for filename or domain.ErrNotFound.
	GetRecord(ctx context.Context, filename string) (*domain.TrackingRecord, error)

	// SaveRecord creates or replaces a record.
	SaveRecord(ctx context.Context, rec domain.TrackingRecord) error

	// DeleteRecord removes the record for filename. Missing is not an error.
	DeleteRecord(ctx context.Context, filename string) error

	// ListRecords returns every record ordered by filename.
	ListRecords(ctx context.Context) ([]domain.TrackingRecord, error)
}

// TransformCache memoises transform outputs keyed by transform, version
// and input.
type TransformCache interface {
	// GetCached returns the cached value for key, if present.
	GetCached(ctx context.Context, key string) ([]byte, bool, error)

	// PutCached stores an entry, replacing any previous value for its key.
	PutCached(ctx context.Context, entry domain.CacheEntry) error

	// Invalidate removes entries for transform whose version differs from
	// keepVersion and returns how many were removed. An empty keepVersion
	// removes every entry for transform.
	Invalidate(ctx context.Context, transform, keepVersion string) (int, error)
}
