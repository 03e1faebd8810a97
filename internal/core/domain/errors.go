package domain

import (
	"errors"
	"fmt"
)

// Pipeline error kinds. Every error surfaced by the core wraps exactly
// one of these so callers can classify it with errors.Is.
var (
	// ErrConfiguration indicates missing or invalid settings. Fatal at startup.
	ErrConfiguration = errors.New("configuration error")

	// ErrExtraction indicates text could not be extracted from a document.
	ErrExtraction = errors.New("extraction failed")

	// ErrEmbedding indicates a chunk could not be embedded.
	ErrEmbedding = errors.New("embedding failed")

	// ErrStorage indicates the export target could not be read or written.
	ErrStorage = errors.New("storage error")

	// ErrInvalidArgument indicates a caller passed an unusable argument
	// (empty query, non-positive top_k).
	ErrInvalidArgument = errors.New("invalid argument")
)

// Causes. These are wrapped together with a kind above.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates no extractor handles the document's MIME type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrAuthInvalid indicates the credentials were rejected.
	ErrAuthInvalid = errors.New("authentication invalid")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrQuotaExceeded indicates a hard quota was exhausted.
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrTimeout indicates a call did not finish within its deadline.
	ErrTimeout = errors.New("timeout")

	// ErrInputTooLarge indicates the input exceeds the model's limit.
	ErrInputTooLarge = errors.New("input too large")

	// ErrDimensionMismatch indicates a vector has the wrong length for its target.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrEmbeddingMismatch indicates the export target was built with a
	// different embedding model than the one configured for queries.
	ErrEmbeddingMismatch = errors.New("embedding model mismatch")

	// ErrTransient indicates a failure that may succeed on retry.
	ErrTransient = errors.New("transient failure")

	// ErrConnectorClosed indicates the source has been closed.
	ErrConnectorClosed = errors.New("connector closed")

	// ErrRunInProgress indicates an indexing run is already active.
	ErrRunInProgress = errors.New("index run in progress")
)

// Stage names the pipeline step an ItemError occurred in.
type Stage string

// Pipeline stages.
const (
	StageScan    Stage = "scan"
	StageExtract Stage = "extract"
	StageChunk   Stage = "chunk"
	StageEmbed   Stage = "embed"
	StageExport  Stage = "export"
)

// ItemError carries the document (and, for chunk failures, the location)
// that a pipeline error belongs to.
type ItemError struct {
	Stage    Stage
	Filename string

	// Location is nil for document-level failures.
	Location *Location

	Err error
}

// Error implements error.
func (e *ItemError) Error() string {
	if e.Location != nil {
		return fmt.Sprintf("%s %s %s: %v", e.Stage, e.Filename, e.Location, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Filename, e.Err)
}

// Unwrap returns the underlying error.
func (e *ItemError) Unwrap() error {
	return e.Err
}
