// Package tui provides an interactive terminal user interface for docindex.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/docindex/internal/core/ports/driving"
)

// Ports aggregates the driving ports the TUI uses.
type Ports struct {
	// Search answers queries.
	Search driving.SearchService

	// Indexer lists documents and runs indexing passes. Optional; the
	// documents view is read-only without it.
	Indexer driving.Indexer
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Search == nil {
		return ErrMissingSearchService
	}
	return nil
}
