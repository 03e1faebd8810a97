// Package messages defines Bubbletea message types for the TUI.
package messages

import (
	"github.com/custodia-labs/docindex/internal/core/domain"
	"github.com/custodia-labs/docindex/internal/core/ports/driving"
)

// SearchCompleted carries search results back to the model.
type SearchCompleted struct {
	Query   string
	Results []domain.SearchResult
	Err     error
}

// DocumentsLoaded carries the tracking records of every known file.
type DocumentsLoaded struct {
	Records []domain.TrackingRecord
	Err     error
}

// IndexStarted is sent when an indexing pass begins.
type IndexStarted struct{}

// IndexCompleted carries the outcome of an indexing pass.
type IndexCompleted struct {
	Stats *driving.RunStats
	Err   error
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewSearch is the query input and results view.
	ViewSearch ViewType = iota
	// ViewDocuments lists indexed files and their status.
	ViewDocuments
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewSearch:
		return "search"
	case ViewDocuments:
		return "documents"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}
