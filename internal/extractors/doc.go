// Package extractors provides local Extractor implementations and the
// Registry that routes each document to the best extractor for its
// MIME type.
//
// Remote backends (Document AI) live under internal/adapters/driven/extraction
// and are registered alongside these at startup.
package extractors
