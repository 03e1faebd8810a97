package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docindex/internal/core/domain"
)

// openTestExporter connects to DOCINDEX_TEST_DATABASE_URL, skipping the
// test when it is unset. Each test gets its own table.
func openTestExporter(t *testing.T) *Exporter {
	t.Helper()
	url := os.Getenv("DOCINDEX_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("DOCINDEX_TEST_DATABASE_URL not set")
	}

	table := fmt.Sprintf("test_%d", time.Now().UnixNano())
	e, err := Open(context.Background(), Config{URL: url, Table: table, MaxOpenConns: 4})
	require.NoError(t, err)
	t.Cleanup(func() {
		e.db.Exec("DROP TABLE IF EXISTS " + e.quoted())
		e.db.Where("name = ?", table).Delete(&targetRecord{})
		e.Close()
	})
	return e
}

func testRow(filename, text string, start int, emb ...float32) domain.IndexRow {
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("%s#%d", filename, start))).String()
	return domain.IndexRow{
		ID:        id,
		Filename:  filename,
		Location:  domain.Location{Start: start, End: start + len(text)},
		Text:      text,
		Embedding: emb,
	}
}

func TestExporter_Lifecycle(t *testing.T) {
	e := openTestExporter(t)
	ctx := context.Background()
	spec := domain.TargetSpec{Name: e.table, Dimensions: 3, Metric: domain.MetricCosine, EmbeddingIdentity: "test/m@3"}

	_, err := e.Target(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, e.EnsureTarget(ctx, spec))
	require.NoError(t, e.EnsureTarget(ctx, spec))

	got, err := e.Target(ctx)
	require.NoError(t, err)
	assert.Equal(t, spec, *got)

	a := testRow("a.txt", "alpha", 0, 1, 0, 0)
	b := testRow("a.txt", "beta", 5, 0, 1, 0)
	stats, err := e.ReplaceDocument(ctx, "a.txt", []domain.IndexRow{a, b})
	require.NoError(t, err)
	assert.Equal(t, domain.UpsertStats{Inserted: 2}, stats)

	b.Text = "beta2"
	stats, err = e.ReplaceDocument(ctx, "a.txt", []domain.IndexRow{a, b})
	require.NoError(t, err)
	assert.Equal(t, domain.UpsertStats{Updated: 1, Unchanged: 1}, stats)

	stats, err = e.ReplaceDocument(ctx, "a.txt", []domain.IndexRow{a})
	require.NoError(t, err)
	assert.Equal(t, domain.UpsertStats{Unchanged: 1, Deleted: 1}, stats)

	c := testRow("c.txt", "gamma", 0, 0, 0, 1)
	_, err = e.ReplaceDocument(ctx, "c.txt", []domain.IndexRow{c})
	require.NoError(t, err)

	hits, err := e.Search(ctx, []float32{0.9, 0.1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, a.ID, hits[0].Row.ID)
	assert.Equal(t, a, hits[0].Row)
	assert.Greater(t, hits[0].Score, hits[1].Score)

	_, err = e.Search(ctx, []float32{1, 0}, 2)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	n, err := e.DeleteDocument(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = e.CountRows(ctx, "a.txt")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestExporter_RebuildOnIdentityChange(t *testing.T) {
	e := openTestExporter(t)
	ctx := context.Background()
	spec := domain.TargetSpec{Name: e.table, Dimensions: 2, Metric: domain.MetricCosine, EmbeddingIdentity: "test/a@2"}

	require.NoError(t, e.EnsureTarget(ctx, spec))
	_, err := e.ReplaceDocument(ctx, "a.txt", []domain.IndexRow{testRow("a.txt", "x", 0, 1, 0)})
	require.NoError(t, err)

	spec.Dimensions = 4
	spec.EmbeddingIdentity = "test/b@4"
	require.NoError(t, e.EnsureTarget(ctx, spec))

	n, err := e.CountRows(ctx, "a.txt")
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = e.ReplaceDocument(ctx, "a.txt", []domain.IndexRow{testRow("a.txt", "x", 0, 1, 0, 0, 0)})
	assert.NoError(t, err)
}

func TestExporter_EnsureTargetRejectsOtherTable(t *testing.T) {
	e := openTestExporter(t)
	err := e.EnsureTarget(context.Background(), domain.TargetSpec{
		Name: "other", Dimensions: 2, Metric: domain.MetricCosine,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
