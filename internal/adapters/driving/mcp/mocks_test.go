package mcp

import (
	"context"

	"github.com/custodia-labs/docindex/internal/core/domain"
	"github.com/custodia-labs/docindex/internal/core/ports/driving"
)

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	results []domain.SearchResult
	err     error

	gotQuery string
	gotTopK  int
}

func (m *mockSearchService) Search(_ context.Context, query string, topK int) ([]domain.SearchResult, error) {
	m.gotQuery = query
	m.gotTopK = topK
	return m.results, m.err
}

// mockIndexer is a mock implementation of driving.Indexer.
type mockIndexer struct {
	records []domain.TrackingRecord
	err     error
}

func (m *mockIndexer) Run(context.Context) (*driving.RunStats, error) { return &driving.RunStats{}, m.err }

func (m *mockIndexer) Watch(context.Context) error { return m.err }

func (m *mockIndexer) Status() driving.IndexStatus { return driving.IndexStatus{} }

func (m *mockIndexer) Documents(context.Context) ([]domain.TrackingRecord, error) {
	return m.records, m.err
}

func (m *mockIndexer) PruneCache(context.Context) (int, error) { return 0, m.err }
