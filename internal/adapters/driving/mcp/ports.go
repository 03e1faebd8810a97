package mcp

import (
	"github.com/custodia-labs/docindex/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
type Ports struct {
	// Search answers the search tool.
	Search driving.SearchService

	// Indexer backs the document resources. Optional.
	Indexer driving.Indexer
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Search == nil {
		return ErrMissingSearchService
	}
	return nil
}
