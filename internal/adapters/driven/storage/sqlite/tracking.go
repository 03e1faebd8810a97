package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/custodia-labs/docindex/internal/core/domain"
	"github.com/custodia-labs/docindex/internal/core/ports/driven"
)

// trackingStore implements driven.TrackingStore.
type trackingStore struct {
	store *Store
}

var _ driven.TrackingStore = (*trackingStore)(nil)

// GetRecord retrieves the record for filename.
func (s *trackingStore) GetRecord(ctx context.Context, filename string) (*domain.TrackingRecord, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT filename, content_hash, fingerprint, row_count, status, error, updated_at
		FROM tracking WHERE filename = ?
	`, filename)

	var rec domain.TrackingRecord
	var status string
	var errMsg sql.NullString
	var updatedAt sql.NullTime
	if err := row.Scan(&rec.Filename, &rec.ContentHash, &rec.Fingerprint, &rec.RowCount,
		&status, &errMsg, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, storageError("scanning tracking record", err)
	}
	rec.Status = domain.DocumentStatus(status)
	rec.Error = errMsg.String
	if updatedAt.Valid {
		rec.UpdatedAt = updatedAt.Time
	}
	return &rec, nil
}

// SaveRecord creates or replaces the record for rec.Filename.
func (s *trackingStore) SaveRecord(ctx context.Context, rec domain.TrackingRecord) error {
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO tracking (filename, content_hash, fingerprint, row_count, status, error, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(filename) DO UPDATE SET
			content_hash = excluded.content_hash,
			fingerprint = excluded.fingerprint,
			row_count = excluded.row_count,
			status = excluded.status,
			error = excluded.error,
			updated_at = excluded.updated_at
	`, rec.Filename, rec.ContentHash, rec.Fingerprint, rec.RowCount, string(rec.Status),
		nullString(rec.Error), rec.UpdatedAt.UTC())
	if err != nil {
		return storageError("saving tracking record", err)
	}
	return nil
}

// DeleteRecord removes the record for filename.
func (s *trackingStore) DeleteRecord(ctx context.Context, filename string) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM tracking WHERE filename = ?", filename); err != nil {
		return storageError("deleting tracking record", err)
	}
	return nil
}

// ListRecords returns every record ordered by filename.
func (s *trackingStore) ListRecords(ctx context.Context) ([]domain.TrackingRecord, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT filename, content_hash, fingerprint, row_count, status, error, updated_at
		FROM tracking ORDER BY filename
	`)
	if err != nil {
		return nil, storageError("querying tracking records", err)
	}
	defer rows.Close()

	var records []domain.TrackingRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		var rec domain.TrackingRecord
		var status string
		var errMsg sql.NullString
		var updatedAt sql.NullTime
		if err := rows.Scan(&rec.Filename, &rec.ContentHash, &rec.Fingerprint, &rec.RowCount,
			&status, &errMsg, &updatedAt); err != nil {
			return nil, storageError("scanning tracking record", err)
		}
		rec.Status = domain.DocumentStatus(status)
		rec.Error = errMsg.String
		if updatedAt.Valid {
			rec.UpdatedAt = updatedAt.Time
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("iterating tracking records", err)
	}
	return records, nil
}
