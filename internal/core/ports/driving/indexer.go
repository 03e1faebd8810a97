package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/docindex/internal/core/domain"
)

// Indexer brings the export target up to date with the source.
type Indexer interface {
	// Run performs one incremental pass over the source.
	// Per-document failures are reported in RunStats and do not fail the run.
	Run(ctx context.Context) (*RunStats, error)

	// Watch runs once and then again after every batch of source changes
	// until ctx is cancelled.
	Watch(ctx context.Context) error

	// Status returns live counters for the current or last run.
	Status() IndexStatus

	// Documents returns the tracking record of every known file.
	Documents(ctx context.Context) ([]domain.TrackingRecord, error)

	// PruneCache drops cached extraction results from other extractor versions.
	PruneCache(ctx context.Context) (int, error)
}

// RunStats summarises one indexing pass.
type RunStats struct {
	// Scanned is the number of documents seen in the source.
	Scanned int

	// Skipped is the number of documents left untouched (cache hit).
	Skipped int

	// Processed is the number of documents re-exported.
	Processed int

	// Failed is the number of documents that could not be exported.
	Failed int

	// Deleted is the number of removed files whose rows were dropped.
	Deleted int

	// Rows aggregates row-level changes across all documents.
	Rows domain.UpsertStats

	// Failures holds one entry per failed document or dropped chunk.
	Failures []*domain.ItemError

	Duration time.Duration
}

// IndexStatus represents the current state of the indexer.
type IndexStatus struct {
	// Running indicates if a run is in progress.
	Running bool

	// DocumentsProcessed is the count of documents handled so far.
	DocumentsProcessed int

	// ErrorCount is the number of errors encountered.
	ErrorCount int

	// LastRun is when the last run finished.
	LastRun time.Time
}
