package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docindex/internal/core/domain"
	"github.com/custodia-labs/docindex/internal/core/ports/driving"
)

func TestIndexCmd_PrintsSummary(t *testing.T) {
	env := setupTest(t)
	env.indexer.stats = &driving.RunStats{
		Scanned:   4,
		Processed: 2,
		Skipped:   1,
		Failed:    1,
		Deleted:   1,
		Rows:      domain.UpsertStats{Inserted: 5, Updated: 1, Unchanged: 3, Deleted: 2},
		Failures: []*domain.ItemError{
			{Stage: domain.StageExtract, Filename: "scan.pdf", Err: domain.ErrUnsupportedType},
		},
		Duration: 1500 * time.Millisecond,
	}

	out, err := execute(t, "", "index")

	require.NoError(t, err)
	assert.Equal(t, 1, env.indexer.runs)
	assert.Contains(t, out, "Scanned 4 documents in 1.5s")
	assert.Contains(t, out, "processed: 2")
	assert.Contains(t, out, "unchanged: 1")
	assert.Contains(t, out, "Rows: 5 inserted, 1 updated, 3 unchanged, 2 deleted")
	assert.Contains(t, out, "Failures:\n  extract scan.pdf: unsupported type")
	requireOpenedAndClosed(t, env)
}

func TestIndexCmd_FatalErrorStillPrintsStats(t *testing.T) {
	env := setupTest(t)
	env.indexer.stats = &driving.RunStats{Scanned: 2, Processed: 1}
	env.indexer.runErr = domain.ErrStorage

	out, err := execute(t, "", "index")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.Contains(t, err.Error(), "index failed")
	assert.Contains(t, out, "Scanned 2 documents")
	assert.Equal(t, 1, env.closed)
}

func TestIndexCmd_Watch(t *testing.T) {
	env := setupTest(t)

	out, err := execute(t, "", "index", "--watch")

	require.NoError(t, err)
	assert.Equal(t, 1, env.indexer.watches)
	assert.Equal(t, 0, env.indexer.runs)
	assert.Contains(t, out, "Watching for changes")
}

func TestIndexCmd_RejectsArgs(t *testing.T) {
	setupTest(t)
	_, err := execute(t, "", "index", "extra")
	assert.Error(t, err)
}

func TestPrintRunStats_NoFailures(t *testing.T) {
	buf := new(bytes.Buffer)
	printRunStats(buf, &driving.RunStats{Scanned: 1, Skipped: 1})

	assert.NotContains(t, buf.String(), "Failures:")
}
