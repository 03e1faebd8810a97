package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docindex/internal/core/domain"
)

func TestTrackingStore(t *testing.T) {
	ctx := context.Background()
	s := NewTrackingStore()

	_, err := s.GetRecord(ctx, "a.pdf")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.SaveRecord(ctx, domain.TrackingRecord{Filename: "b.pdf", RowCount: 2, Status: domain.StatusIndexed}))
	require.NoError(t, s.SaveRecord(ctx, domain.TrackingRecord{Filename: "a.pdf", RowCount: 1, Status: domain.StatusFailed}))

	rec, err := s.GetRecord(ctx, "b.pdf")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.RowCount)

	all, err := s.ListRecords(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a.pdf", all[0].Filename)

	require.NoError(t, s.DeleteRecord(ctx, "a.pdf"))
	all, err = s.ListRecords(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestTransformCache(t *testing.T) {
	ctx := context.Background()
	c := NewTransformCache()

	_, ok, err := c.GetCached(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.PutCached(ctx, domain.CacheEntry{Key: "k1", Transform: "extract", Version: "v1", Value: []byte("old")}))
	require.NoError(t, c.PutCached(ctx, domain.CacheEntry{Key: "k2", Transform: "extract", Version: "v2", Value: []byte("new")}))
	require.NoError(t, c.PutCached(ctx, domain.CacheEntry{Key: "k3", Transform: "other", Version: "v1", Value: []byte("x")}))

	val, ok, err := c.GetCached(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("old"), val)

	n, err := c.Invalidate(ctx, "extract", "v2")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, c.Len())

	_, ok, _ = c.GetCached(ctx, "k1")
	assert.False(t, ok)
}
