package domain

import (
	"fmt"
	"regexp"
)

// Metric is the distance function a vector index is built for.
type Metric string

// Supported metrics.
const (
	MetricCosine Metric = "cosine"
)

// TargetSpec describes the export table the indexer writes to.
type TargetSpec struct {
	// Name is the table name.
	Name string

	// Dimensions is the declared embedding length.
	Dimensions int

	// Metric is the similarity function for the vector index.
	Metric Metric

	// EmbeddingIdentity names the model that produced the vectors.
	EmbeddingIdentity string
}

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// Validate checks the target can be created as a SQL table.
func (t TargetSpec) Validate() error {
	if !tableName.MatchString(t.Name) {
		return fmt.Errorf("%w: %w: invalid table name %q", ErrStorage, ErrInvalidInput, t.Name)
	}
	if t.Dimensions <= 0 {
		return fmt.Errorf("%w: %w: target %s has dimension %d", ErrStorage, ErrInvalidInput, t.Name, t.Dimensions)
	}
	if t.Metric != MetricCosine {
		return fmt.Errorf("%w: %w: unsupported metric %q", ErrStorage, ErrInvalidInput, t.Metric)
	}
	return nil
}

// UpsertStats summarises one ReplaceDocument call.
type UpsertStats struct {
	Inserted  int
	Updated   int
	Unchanged int
	Deleted   int
}

// Add accumulates other into s.
func (s *UpsertStats) Add(other UpsertStats) {
	s.Inserted += other.Inserted
	s.Updated += other.Updated
	s.Unchanged += other.Unchanged
	s.Deleted += other.Deleted
}
