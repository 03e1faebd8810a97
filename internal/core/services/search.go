package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/docindex/internal/core/domain"
	"github.com/custodia-labs/docindex/internal/core/ports/driven"
	"github.com/custodia-labs/docindex/internal/core/ports/driving"
	"github.com/custodia-labs/docindex/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// DefaultTopK is the number of results returned when callers do not choose.
const DefaultTopK = 10

// SearchService answers nearest-neighbour queries against the export target.
type SearchService struct {
	embedder driven.EmbeddingService
	exporter driven.Exporter
}

// NewSearchService creates a new search service. embedder must be the
// instance the index was built with.
func NewSearchService(embedder driven.EmbeddingService, exporter driven.Exporter) *SearchService {
	return &SearchService{
		embedder: embedder,
		exporter: exporter,
	}
}

// Search embeds query and returns up to topK rows ordered by decreasing
// cosine similarity. Ties are broken by row ID.
func (s *SearchService) Search(ctx context.Context, query string, topK int) ([]domain.SearchResult, error) {
	logger.Section("Search Execution")
	logger.Debug("Query: %q (top_k=%d)", query, topK)

	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive, got %d", domain.ErrInvalidArgument, topK)
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrInvalidArgument)
	}

	// The index must have been built with the embedder we query with
	target, err := s.exporter.Target(ctx)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		logger.Debug("No export target yet, returning no results")
		return []domain.SearchResult{}, nil
	case err != nil:
		return nil, fmt.Errorf("%w: read target: %w", domain.ErrStorage, err)
	}
	if target.EmbeddingIdentity != s.embedder.Identity() {
		return nil, fmt.Errorf("%w: index %s was built with %s, queries use %s",
			domain.ErrEmbeddingMismatch, target.Name, target.EmbeddingIdentity, s.embedder.Identity())
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		if !errors.Is(err, domain.ErrEmbedding) {
			err = fmt.Errorf("%w: %w", domain.ErrEmbedding, err)
		}
		return nil, fmt.Errorf("embed query: %w", err)
	}

	scored, err := s.exporter.Search(ctx, vec, topK)
	if err != nil {
		if !errors.Is(err, domain.ErrStorage) {
			err = fmt.Errorf("%w: %w", domain.ErrStorage, err)
		}
		return nil, fmt.Errorf("search %s: %w", target.Name, err)
	}

	scored = domain.RankScored(scored, topK)

	results := make([]domain.SearchResult, 0, len(scored))
	for _, sr := range scored {
		results = append(results, domain.SearchResult{
			ID:       sr.Row.ID,
			Filename: sr.Row.Filename,
			Location: sr.Row.Location,
			Text:     sr.Row.Text,
			Score:    sr.Score,
		})
	}
	logger.Debug("Returning %d results", len(results))
	return results, nil
}
