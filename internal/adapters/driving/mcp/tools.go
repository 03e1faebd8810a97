package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// defaultTopK applies when the caller omits top_k or sends zero.
const defaultTopK = 10

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"natural-language text to find similar passages for"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"maximum number of results to return (default 10)"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	ID       string  `json:"id"`
	Filename string  `json:"filename"`
	Start    int     `json:"start"`
	End      int     `json:"end"`
	Text     string  `json:"text"`
	Score    float64 `json:"score"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Find the document passages most similar in meaning to a query",
	}, s.handleSearch)
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	topK := input.TopK
	if topK == 0 {
		topK = defaultTopK
	}

	results, err := s.ports.Search.Search(ctx, input.Query, topK)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(results)),
		Count:   len(results),
	}
	for i := range results {
		output.Results[i] = SearchResultOutput{
			ID:       results[i].ID,
			Filename: results[i].Filename,
			Start:    results[i].Location.Start,
			End:      results[i].Location.End,
			Text:     results[i].Text,
			Score:    results[i].Score,
		}
	}

	return nil, output, nil
}
