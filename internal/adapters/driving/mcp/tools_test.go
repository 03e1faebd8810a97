package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docindex/internal/core/domain"
)

func TestServer_handleSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("returns search results", func(t *testing.T) {
		mockSearch := &mockSearchService{
			results: []domain.SearchResult{{
				ID:       "8f7e",
				Filename: "reports/q1.pdf",
				Location: domain.Location{Start: 100, End: 250},
				Text:     "Revenue grew in the first quarter.",
				Score:    0.95,
			}},
		}
		server, err := NewServer(&Ports{Search: mockSearch})
		require.NoError(t, err)

		_, output, err := server.handleSearch(ctx, nil, SearchInput{Query: "revenue", TopK: 3})

		require.NoError(t, err)
		assert.Equal(t, "revenue", mockSearch.gotQuery)
		assert.Equal(t, 3, mockSearch.gotTopK)
		assert.Equal(t, 1, output.Count)
		require.Len(t, output.Results, 1)
		assert.Equal(t, SearchResultOutput{
			ID:       "8f7e",
			Filename: "reports/q1.pdf",
			Start:    100,
			End:      250,
			Text:     "Revenue grew in the first quarter.",
			Score:    0.95,
		}, output.Results[0])
	})

	t.Run("default top_k is 10", func(t *testing.T) {
		mockSearch := &mockSearchService{}
		server, err := NewServer(&Ports{Search: mockSearch})
		require.NoError(t, err)

		_, output, err := server.handleSearch(ctx, nil, SearchInput{Query: "test"})

		require.NoError(t, err)
		assert.Equal(t, 10, mockSearch.gotTopK)
		assert.Equal(t, 0, output.Count)
		assert.Empty(t, output.Results)
	})

	t.Run("negative top_k reaches the search service", func(t *testing.T) {
		mockSearch := &mockSearchService{err: domain.ErrInvalidArgument}
		server, err := NewServer(&Ports{Search: mockSearch})
		require.NoError(t, err)

		_, _, err = server.handleSearch(ctx, nil, SearchInput{Query: "test", TopK: -1})

		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
		assert.Equal(t, -1, mockSearch.gotTopK)
	})

	t.Run("search error is returned", func(t *testing.T) {
		mockSearch := &mockSearchService{err: domain.ErrInvalidArgument}
		server, err := NewServer(&Ports{Search: mockSearch})
		require.NoError(t, err)

		_, _, err = server.handleSearch(ctx, nil, SearchInput{Query: " "})
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})
}
