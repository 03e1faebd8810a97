package domain

import (
	"fmt"
	"time"
)

// DocumentStatus records the outcome of the last attempt to index a file.
type DocumentStatus string

// Document statuses.
const (
	StatusIndexed DocumentStatus = "indexed"
	StatusFailed  DocumentStatus = "failed"
)

// TrackingRecord is the indexer's memory of a file between runs.
// A file whose hash and fingerprint both match its record, and whose
// exported row count still equals RowCount, is skipped.
type TrackingRecord struct {
	Filename    string
	ContentHash string

	// Fingerprint identifies the pipeline logic that produced the rows.
	Fingerprint string

	RowCount  int
	Status    DocumentStatus
	Error     string
	UpdatedAt time.Time
}

// Fingerprint identifies every piece of pipeline logic whose change
// must invalidate previously exported rows.
type Fingerprint struct {
	Extractor string
	Chunker   string
	Embedding string
}

// String renders the fingerprint as a single comparable key.
func (f Fingerprint) String() string {
	return fmt.Sprintf("%s|%s|%s", f.Extractor, f.Chunker, f.Embedding)
}

// CacheEntry is a memoised transform output.
type CacheEntry struct {
	Key       string
	Transform string
	Version   string
	Value     []byte
	CreatedAt time.Time
}
