package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/custodia-labs/docindex/internal/core/domain"
	"github.com/custodia-labs/docindex/internal/core/ports/driven"
)

// transformCache implements driven.TransformCache.
type transformCache struct {
	store *Store
}

var _ driven.TransformCache = (*transformCache)(nil)

// GetCached returns the value stored under key.
func (c *transformCache) GetCached(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := c.store.db.QueryRowContext(ctx, "SELECT value FROM transform_cache WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, storageError("reading cache", err)
	}
	if value == nil {
		value = []byte{}
	}
	return value, true, nil
}

// PutCached stores entry, replacing any previous value for its key.
func (c *transformCache) PutCached(ctx context.Context, entry domain.CacheEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	value := entry.Value
	if value == nil {
		value = []byte{}
	}
	_, err := c.store.db.ExecContext(ctx, `
		INSERT INTO transform_cache (key, transform, version, value, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			transform = excluded.transform,
			version = excluded.version,
			value = excluded.value,
			created_at = excluded.created_at
	`, entry.Key, entry.Transform, entry.Version, value, entry.CreatedAt.UTC())
	if err != nil {
		return storageError("writing cache", err)
	}
	return nil
}

// Invalidate drops entries of transform whose version is not keepVersion.
func (c *transformCache) Invalidate(ctx context.Context, transform, keepVersion string) (int, error) {
	res, err := c.store.db.ExecContext(ctx,
		"DELETE FROM transform_cache WHERE transform = ? AND version != ?", transform, keepVersion)
	if err != nil {
		return 0, storageError("invalidating cache", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storageError("invalidating cache", err)
	}
	return int(n), nil
}
