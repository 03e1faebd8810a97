package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/docindex/internal/core/domain"
	"github.com/custodia-labs/docindex/internal/core/ports/driven"
	"github.com/custodia-labs/docindex/internal/logger"
)

// Ensure Exporter implements the interface.
var _ driven.Exporter = (*Exporter)(nil)

// Exporter is an in-memory export target with exact cosine search.
type Exporter struct {
	mu     sync.RWMutex
	target *domain.TargetSpec
	rows   map[string]domain.IndexRow
	files  map[string]map[string]struct{}
}

// NewExporter creates an empty in-memory export target.
func NewExporter() *Exporter {
	return &Exporter{
		rows:  make(map[string]domain.IndexRow),
		files: make(map[string]map[string]struct{}),
	}
}

// EnsureTarget records spec. A target built with another dimension or
// embedding identity is emptied so every document is rebuilt.
func (e *Exporter) EnsureTarget(_ context.Context, spec domain.TargetSpec) error {
	if spec.Dimensions <= 0 {
		return fmt.Errorf("%w: %w: target %s has dimension %d",
			domain.ErrStorage, domain.ErrInvalidInput, spec.Name, spec.Dimensions)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.target != nil && (e.target.Dimensions != spec.Dimensions ||
		e.target.EmbeddingIdentity != spec.EmbeddingIdentity) {
		logger.Warn("Target %s was built with %s (%d dims); rebuilding for %s (%d dims)",
			spec.Name, e.target.EmbeddingIdentity, e.target.Dimensions, spec.EmbeddingIdentity, spec.Dimensions)
		e.rows = make(map[string]domain.IndexRow)
		e.files = make(map[string]map[string]struct{})
	}
	e.target = &spec
	return nil
}

// Target returns the recorded spec.
func (e *Exporter) Target(_ context.Context) (*domain.TargetSpec, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.target == nil {
		return nil, domain.ErrNotFound
	}
	spec := *e.target
	return &spec, nil
}

// ReplaceDocument upserts rows and deletes filename's other rows atomically.
func (e *Exporter) ReplaceDocument(
	_ context.Context, filename string, rows []domain.IndexRow,
) (domain.UpsertStats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var stats domain.UpsertStats
	if err := e.validate(filename, rows); err != nil {
		return stats, err
	}

	keep := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		keep[row.ID] = struct{}{}
		existing, ok := e.rows[row.ID]
		switch {
		case !ok:
			stats.Inserted++
		case existing.Equal(row):
			stats.Unchanged++
			continue
		default:
			stats.Updated++
		}
		row.Embedding = append([]float32(nil), row.Embedding...)
		e.rows[row.ID] = row
	}

	for id := range e.files[filename] {
		if _, ok := keep[id]; !ok {
			delete(e.rows, id)
			stats.Deleted++
		}
	}
	if len(keep) == 0 {
		delete(e.files, filename)
	} else {
		e.files[filename] = keep
	}
	return stats, nil
}

func (e *Exporter) validate(filename string, rows []domain.IndexRow) error {
	if e.target == nil {
		return fmt.Errorf("%w: target not created", domain.ErrStorage)
	}
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		if row.Filename != filename {
			return fmt.Errorf("%w: %w: row %s belongs to %s, not %s",
				domain.ErrStorage, domain.ErrInvalidInput, row.ID, row.Filename, filename)
		}
		if len(row.Embedding) != e.target.Dimensions {
			return fmt.Errorf("%w: %w: row %s has %d dimensions, target has %d",
				domain.ErrStorage, domain.ErrDimensionMismatch, row.ID, len(row.Embedding), e.target.Dimensions)
		}
		if _, dup := seen[row.ID]; dup {
			return fmt.Errorf("%w: %w: duplicate row %s", domain.ErrStorage, domain.ErrInvalidInput, row.ID)
		}
		seen[row.ID] = struct{}{}
	}
	return nil
}

// DeleteDocument removes every row of filename.
func (e *Exporter) DeleteDocument(_ context.Context, filename string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := e.files[filename]
	for id := range ids {
		delete(e.rows, id)
	}
	delete(e.files, filename)
	return len(ids), nil
}

// CountRows returns how many rows filename has.
func (e *Exporter) CountRows(_ context.Context, filename string) (int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.files[filename]), nil
}

// Search scores every row against vec and returns the k closest.
func (e *Exporter) Search(_ context.Context, vec []float32, k int) ([]domain.ScoredRow, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.target != nil && len(vec) != e.target.Dimensions {
		return nil, fmt.Errorf("%w: %w: query has %d dimensions, target has %d",
			domain.ErrStorage, domain.ErrDimensionMismatch, len(vec), e.target.Dimensions)
	}

	scored := make([]domain.ScoredRow, 0, len(e.rows))
	for _, row := range e.rows {
		scored = append(scored, domain.ScoredRow{Row: row, Score: domain.CosineSimilarity(vec, row.Embedding)})
	}
	return domain.RankScored(scored, k), nil
}

// Rows returns a snapshot of filename's rows ordered by location.
func (e *Exporter) Rows(filename string) []domain.IndexRow {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rows := make([]domain.IndexRow, 0, len(e.files[filename]))
	for id := range e.files[filename] {
		rows = append(rows, e.rows[id])
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Location.Start < rows[j].Location.Start })
	return rows
}

// Len returns the total number of rows.
func (e *Exporter) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.rows)
}

// Close is a no-op.
func (e *Exporter) Close() error {
	return nil
}
