package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/docindex/internal/core/domain"
	"github.com/custodia-labs/docindex/internal/core/ports/driven"
	"github.com/custodia-labs/docindex/internal/logger"
)

// Ensure Exporter implements the interface.
var _ driven.Exporter = (*Exporter)(nil)

// Exporter stores index rows in a SQLite table and answers queries by
// scanning every row. Suitable for corpora of up to a few hundred
// thousand chunks.
type Exporter struct {
	store *Store
	table string
}

// quoted returns the table name as a quoted identifier.
// The name has been checked by TargetSpec.Validate.
func (e *Exporter) quoted() string {
	return `"` + e.table + `"`
}

// EnsureTarget creates the export table and records spec. A table built
// for another dimension or embedding identity is dropped and recreated.
func (e *Exporter) EnsureTarget(ctx context.Context, spec domain.TargetSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	if spec.Name != e.table {
		return fmt.Errorf("%w: %w: exporter writes %s, not %s", domain.ErrStorage, domain.ErrInvalidInput, e.table, spec.Name)
	}

	tx, err := e.store.db.BeginTx(ctx, nil)
	if err != nil {
		return storageError("begin", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	existing, err := e.target(ctx, tx)
	switch {
	case errors.Is(err, domain.ErrNotFound):
	case err != nil:
		return err
	case existing.Dimensions != spec.Dimensions || existing.EmbeddingIdentity != spec.EmbeddingIdentity:
		logger.Warn("Target %s was built with %s (%d dims); rebuilding for %s (%d dims)",
			spec.Name, existing.EmbeddingIdentity, existing.Dimensions, spec.EmbeddingIdentity, spec.Dimensions)
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+e.quoted()); err != nil {
			return storageError("dropping target", err)
		}
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ` + e.quoted() + ` (
			id TEXT PRIMARY KEY,
			filename TEXT NOT NULL,
			start_offset INTEGER NOT NULL,
			end_offset INTEGER NOT NULL,
			text TEXT NOT NULL,
			embedding BLOB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS "idx_` + e.table + `_filename" ON ` + e.quoted() + `(filename)`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return storageError("creating target", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO targets (name, dimensions, metric, embedding_identity, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			dimensions = excluded.dimensions,
			metric = excluded.metric,
			embedding_identity = excluded.embedding_identity,
			updated_at = excluded.updated_at
	`, spec.Name, spec.Dimensions, string(spec.Metric), spec.EmbeddingIdentity, time.Now().UTC())
	if err != nil {
		return storageError("recording target", err)
	}

	if err := tx.Commit(); err != nil {
		return storageError("commit", err)
	}
	return nil
}

// Target returns the recorded spec for this exporter's table.
func (e *Exporter) Target(ctx context.Context) (*domain.TargetSpec, error) {
	return e.target(ctx, e.store.db)
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (e *Exporter) target(ctx context.Context, q queryer) (*domain.TargetSpec, error) {
	row := q.QueryRowContext(ctx, `
		SELECT name, dimensions, metric, embedding_identity FROM targets WHERE name = ?
	`, e.table)

	var spec domain.TargetSpec
	var metric string
	if err := row.Scan(&spec.Name, &spec.Dimensions, &metric, &spec.EmbeddingIdentity); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, storageError("reading target", err)
	}
	spec.Metric = domain.Metric(metric)
	return &spec, nil
}

// ReplaceDocument upserts rows and deletes filename's other rows in one
// transaction. Rows identical to the stored copy are not rewritten.
func (e *Exporter) ReplaceDocument(
	ctx context.Context, filename string, rows []domain.IndexRow,
) (domain.UpsertStats, error) {
	var stats domain.UpsertStats

	tx, err := e.store.db.BeginTx(ctx, nil)
	if err != nil {
		return stats, storageError("begin", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	spec, err := e.target(ctx, tx)
	if errors.Is(err, domain.ErrNotFound) {
		return stats, fmt.Errorf("%w: target %s not created", domain.ErrStorage, e.table)
	}
	if err != nil {
		return stats, err
	}
	if err := validateRows(spec, filename, rows); err != nil {
		return stats, err
	}

	existing, err := e.loadRows(ctx, tx, filename)
	if err != nil {
		return stats, err
	}

	upsert, err := tx.PrepareContext(ctx, `
		INSERT INTO `+e.quoted()+` (id, filename, start_offset, end_offset, text, embedding)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			filename = excluded.filename,
			start_offset = excluded.start_offset,
			end_offset = excluded.end_offset,
			text = excluded.text,
			embedding = excluded.embedding
	`)
	if err != nil {
		return stats, storageError("preparing upsert", err)
	}
	defer upsert.Close()

	keep := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		keep[row.ID] = struct{}{}
		old, ok := existing[row.ID]
		switch {
		case !ok:
			stats.Inserted++
		case old.Equal(row):
			stats.Unchanged++
			continue
		default:
			stats.Updated++
		}
		if _, err := upsert.ExecContext(ctx, row.ID, row.Filename, row.Location.Start, row.Location.End,
			row.Text, float32SliceToBytes(row.Embedding)); err != nil {
			return domain.UpsertStats{}, storageError("upserting row", err)
		}
	}

	for id := range existing {
		if _, ok := keep[id]; ok {
			continue
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+e.quoted()+" WHERE id = ?", id); err != nil {
			return domain.UpsertStats{}, storageError("deleting row", err)
		}
		stats.Deleted++
	}

	if err := tx.Commit(); err != nil {
		return domain.UpsertStats{}, storageError("commit", err)
	}
	return stats, nil
}

func validateRows(spec *domain.TargetSpec, filename string, rows []domain.IndexRow) error {
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		if row.Filename != filename {
			return fmt.Errorf("%w: %w: row %s belongs to %s, not %s",
				domain.ErrStorage, domain.ErrInvalidInput, row.ID, row.Filename, filename)
		}
		if len(row.Embedding) != spec.Dimensions {
			return fmt.Errorf("%w: %w: row %s has %d dimensions, target has %d",
				domain.ErrStorage, domain.ErrDimensionMismatch, row.ID, len(row.Embedding), spec.Dimensions)
		}
		if _, dup := seen[row.ID]; dup {
			return fmt.Errorf("%w: %w: duplicate row %s", domain.ErrStorage, domain.ErrInvalidInput, row.ID)
		}
		seen[row.ID] = struct{}{}
	}
	return nil
}

func (e *Exporter) loadRows(ctx context.Context, q queryer, filename string) (map[string]domain.IndexRow, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, filename, start_offset, end_offset, text, embedding
		FROM `+e.quoted()+` WHERE filename = ?
	`, filename)
	if err != nil {
		return nil, storageError("loading rows", err)
	}
	defer rows.Close()

	out := make(map[string]domain.IndexRow)
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out[row.ID] = row
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("iterating rows", err)
	}
	return out, nil
}

// DeleteDocument removes every row of filename.
func (e *Exporter) DeleteDocument(ctx context.Context, filename string) (int, error) {
	res, err := e.store.db.ExecContext(ctx, "DELETE FROM "+e.quoted()+" WHERE filename = ?", filename)
	if err != nil {
		return 0, storageError("deleting document", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storageError("deleting document", err)
	}
	return int(n), nil
}

// CountRows returns how many rows filename has.
func (e *Exporter) CountRows(ctx context.Context, filename string) (int, error) {
	var n int
	err := e.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+e.quoted()+" WHERE filename = ?", filename).Scan(&n)
	if err != nil {
		return 0, storageError("counting rows", err)
	}
	return n, nil
}

// Search scores every row against vec and returns the k closest.
func (e *Exporter) Search(ctx context.Context, vec []float32, k int) ([]domain.ScoredRow, error) {
	spec, err := e.Target(ctx)
	if err != nil {
		return nil, err
	}
	if len(vec) != spec.Dimensions {
		return nil, fmt.Errorf("%w: %w: query has %d dimensions, target has %d",
			domain.ErrStorage, domain.ErrDimensionMismatch, len(vec), spec.Dimensions)
	}

	rows, err := e.store.db.QueryContext(ctx, `
		SELECT id, filename, start_offset, end_offset, text, embedding FROM `+e.quoted())
	if err != nil {
		return nil, storageError("scanning rows", err)
	}
	defer rows.Close()

	var scored []domain.ScoredRow
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		scored = append(scored, domain.ScoredRow{Row: row, Score: domain.CosineSimilarity(vec, row.Embedding)})
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("iterating rows", err)
	}
	return domain.RankScored(scored, k), nil
}

// Close is a no-op; the owning Store holds the connection.
func (e *Exporter) Close() error {
	return nil
}

func scanRow(rows *sql.Rows) (domain.IndexRow, error) {
	var row domain.IndexRow
	var embedding []byte
	if err := rows.Scan(&row.ID, &row.Filename, &row.Location.Start, &row.Location.End, &row.Text, &embedding); err != nil {
		return row, storageError("scanning row", err)
	}
	row.Embedding = bytesToFloat32Slice(embedding)
	return row, nil
}
