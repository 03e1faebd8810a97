package driven

import (
	"context"

	"github.com/custodia-labs/docindex/internal/core/domain"
)

// PostProcessor processes extracted text to produce chunks.
// PostProcessors are chained in a pipeline.
type PostProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Version identifies the processor's logic and parameters. It is part
	// of the pipeline fingerprint, so changing it forces re-indexing.
	Version() string

	// Process takes extracted text and returns chunks.
	// If the processor modifies chunks, it receives and returns chunks.
	// If the processor creates chunks (e.g., chunker), it receives nil and returns new chunks.
	Process(ctx context.Context, text *domain.ExtractedText, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline chains multiple PostProcessors.
type PostProcessorPipeline interface {
	// Process runs the text through all processors in order.
	// Returns the final chunks after all processing.
	Process(ctx context.Context, text *domain.ExtractedText) ([]domain.Chunk, error)

	// Version combines the versions of every processor in order.
	Version() string
}
