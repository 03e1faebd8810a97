package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunQueryLoop(t *testing.T) {
	search := &fakeSearch{
		results: sampleResults(),
		errs:    map[string]error{"bad": errors.New("embedding failed")},
	}
	out := new(bytes.Buffer)

	err := runQueryLoop(context.Background(), strings.NewReader("alpha\nbad\n\nignored\n"), out, search, 10)

	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "bad"}, search.queries, "an empty line ends the loop")
	assert.Equal(t, 10, search.topK)

	text := out.String()
	assert.Equal(t, 3, strings.Count(text, queryPrompt))
	assert.Contains(t, text, "Search results:\n[0.900] a.md\n    alpha\n    bravo\n---\n")
	assert.Contains(t, text, "error: embedding failed")
}

func TestRunQueryLoop_NoResults(t *testing.T) {
	out := new(bytes.Buffer)

	err := runQueryLoop(context.Background(), strings.NewReader("zzz\n\n"), out, &fakeSearch{}, 5)

	require.NoError(t, err)
	assert.Contains(t, out.String(), "No results.")
	assert.NotContains(t, out.String(), "error:")
}

func TestRunQueryLoop_EOFEnds(t *testing.T) {
	search := &fakeSearch{}

	err := runQueryLoop(context.Background(), strings.NewReader("one"), io.Discard, search, 10)

	require.NoError(t, err)
	assert.Equal(t, []string{"one"}, search.queries)
}

func TestRunQueryLoop_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A pipe that never delivers input.
	r, w := io.Pipe()
	defer w.Close()

	search := &fakeSearch{}
	err := runQueryLoop(ctx, r, io.Discard, search, 10)

	require.NoError(t, err)
	assert.Empty(t, search.queries)
}

func TestQueryCmd_UsesStdin(t *testing.T) {
	env := setupTest(t)
	env.search.results = sampleResults()

	out, err := execute(t, "alpha\n\n", "query", "--top-k", "2")

	require.NoError(t, err)
	assert.Equal(t, []string{"alpha"}, env.search.queries)
	assert.Equal(t, 2, env.search.topK)
	assert.Contains(t, out, queryPrompt)
	requireOpenedAndClosed(t, env)
}
