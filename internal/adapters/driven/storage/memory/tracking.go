package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/docindex/internal/core/domain"
	"github.com/custodia-labs/docindex/internal/core/ports/driven"
)

// Ensure TrackingStore implements the interface.
var _ driven.TrackingStore = (*TrackingStore)(nil)

// TrackingStore is an in-memory implementation of driven.TrackingStore.
type TrackingStore struct {
	mu      sync.RWMutex
	records map[string]domain.TrackingRecord
}

// NewTrackingStore creates a new in-memory tracking store.
func NewTrackingStore() *TrackingStore {
	return &TrackingStore{
		records: make(map[string]domain.TrackingRecord),
	}
}

// GetRecord retrieves the record for filename.
func (s *TrackingStore) GetRecord(_ context.Context, filename string) (*domain.TrackingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[filename]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

// SaveRecord stores or replaces a record.
func (s *TrackingStore) SaveRecord(_ context.Context, rec domain.TrackingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.Filename] = rec
	return nil
}

// DeleteRecord removes the record for filename.
func (s *TrackingStore) DeleteRecord(_ context.Context, filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, filename)
	return nil
}

// ListRecords returns all records ordered by filename.
func (s *TrackingStore) ListRecords(_ context.Context) ([]domain.TrackingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.TrackingRecord, 0, len(s.records))
	for _, rec := range s.records {
		result = append(result, rec)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Filename < result[j].Filename })
	return result, nil
}
