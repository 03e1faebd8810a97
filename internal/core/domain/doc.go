// Package domain defines the core business entities for docindex.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: Raw bytes of a source file, keyed by filename
//   - ExtractedText: Plain text recovered from a Document
//   - Chunk: A located slice of extracted text
//   - IndexRow: A chunk with its embedding, as stored in the export target
//   - TrackingRecord: What the indexer last exported for a file
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
