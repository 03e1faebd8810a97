// Package chunker provides a structure-aware recursive text chunking processor.
package chunker

import (
	"context"
	"fmt"

	"github.com/custodia-labs/docindex/internal/core/domain"
	"github.com/custodia-labs/docindex/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.PostProcessor = (*Processor)(nil)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 2000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 500

// algorithmVersion is bumped whenever Split can produce different output
// for the same input and parameters.
const algorithmVersion = "v1"

// Processor splits extracted text into overlapping chunks.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize int
	overlap   int
	minLevel  Level
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// WithMinLevel sets the finest boundary the chunker may cut at.
func WithMinLevel(level Level) Option {
	return func(p *Processor) {
		p.minLevel = level
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
		minLevel:  LevelCharacter,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Version encodes the algorithm revision and every parameter.
func (p *Processor) Version() string {
	return fmt.Sprintf("%s/%d/%d/%s", algorithmVersion, p.chunkSize, p.overlap, p.minLevel)
}

// Process splits the extracted text into chunks.
// Input chunks are ignored; this processor creates new chunks from the text.
func (p *Processor) Process(ctx context.Context, text *domain.ExtractedText, _ []domain.Chunk) ([]domain.Chunk, error) {
	if text == nil {
		return nil, domain.ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	segments := Splitter{MaxSize: p.chunkSize, Overlap: p.overlap, MinLevel: p.minLevel}.Split(text.Text)
	if len(segments) == 0 {
		return nil, nil
	}

	chunks := make([]domain.Chunk, 0, len(segments))
	for _, seg := range segments {
		chunks = append(chunks, domain.Chunk{
			Filename: text.Filename,
			Location: domain.Location{Start: seg.Start, End: seg.End},
			Text:     seg.Text,
		})
	}

	return chunks, nil
}
