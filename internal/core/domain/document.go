package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Document is a raw source file as read from the source directory.
// Its identity is the filename; two documents with the same filename
// are the same document at different points in time.
type Document struct {
	// Filename is the path relative to the source root.
	Filename string

	// Content is the raw file bytes.
	Content []byte

	// MIMEType is the detected content type (e.g., "application/pdf").
	MIMEType string

	// ContentHash is the hex SHA-256 of Content.
	ContentHash string
}

// HashContent returns the hex SHA-256 of b.
func HashContent(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// NewDocument builds a Document and fills in its content hash.
func NewDocument(filename, mimeType string, content []byte) *Document {
	return &Document{
		Filename:    filename,
		Content:     content,
		MIMEType:    mimeType,
		ContentHash: HashContent(content),
	}
}

// ExtractedText is the plain text an extractor recovered from a document.
type ExtractedText struct {
	Filename string
	Text     string
}

// Location is a half-open byte range [Start, End) into a document's
// extracted text.
type Location struct {
	Start int
	End   int
}

// Len returns the number of bytes covered.
func (l Location) Len() int {
	return l.End - l.Start
}

// String renders the location as "[start, end)".
func (l Location) String() string {
	return fmt.Sprintf("[%d, %d)", l.Start, l.End)
}

// Chunk is a contiguous piece of a document's extracted text.
// Text is always equal to the extracted text sliced at Location.
type Chunk struct {
	Filename string
	Location Location
	Text     string
}

// IndexRow is one exported record: a chunk plus its embedding.
type IndexRow struct {
	// ID is a deterministic UUID derived from filename, location and text.
	ID string

	Filename  string
	Location  Location
	Text      string
	Embedding []float32
}

// Equal reports whether two rows carry the same data.
func (r IndexRow) Equal(other IndexRow) bool {
	if r.ID != other.ID || r.Filename != other.Filename || r.Location != other.Location ||
		r.Text != other.Text || len(r.Embedding) != len(other.Embedding) {
		return false
	}
	for i := range r.Embedding {
		if r.Embedding[i] != other.Embedding[i] {
			return false
		}
	}
	return true
}
