package services

import (
	"sort"
	"sync"

	"github.com/custodia-labs/docindex/internal/core/domain"
)

// Collector accumulates the rows of one document. Rows may be added
// concurrently and in any order; Rows returns them sorted by location.
type Collector struct {
	filename string

	mu   sync.Mutex
	rows []domain.IndexRow
}

// NewCollector creates an empty collector for filename.
func NewCollector(filename string) *Collector {
	return &Collector{filename: filename}
}

// Add appends the row for an embedded chunk.
func (c *Collector) Add(chunk domain.Chunk, embedding []float32) {
	row := domain.IndexRow{
		ID:        RowID(c.filename, chunk.Location, chunk.Text),
		Filename:  c.filename,
		Location:  chunk.Location,
		Text:      chunk.Text,
		Embedding: embedding,
	}

	c.mu.Lock()
	c.rows = append(c.rows, row)
	c.mu.Unlock()
}

// Len returns the number of collected rows.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.rows)
}

// Rows returns a copy of the collected rows ordered by location start.
func (c *Collector) Rows() []domain.IndexRow {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]domain.IndexRow, len(c.rows))
	copy(out, c.rows)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Location.Start != out[j].Location.Start {
			return out[i].Location.Start < out[j].Location.Start
		}
		return out[i].Location.End < out[j].Location.End
	})
	return out
}
