package list

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/docindex/internal/core/domain"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"héllo wörld", 8, "héllo..."},
		{"abcdef", 2, "ab"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Truncate(tt.in, tt.n))
	}
}

func TestFlatten(t *testing.T) {
	assert.Equal(t, "a b c", Flatten("  a\n\nb\t c  "))
	assert.Empty(t, Flatten(" \n "))
}

func TestResultList_Navigation(t *testing.T) {
	r := NewResultList(nil)
	assert.Nil(t, r.SelectedResult())
	assert.Contains(t, r.View(), "No results.")

	r.ToggleExpanded()
	assert.False(t, r.Expanded(), "cannot expand an empty list")

	r.SetResults([]domain.SearchResult{
		{ID: "1", Filename: "a.md", Text: "first", Score: 0.8},
		{ID: "2", Filename: "b.md", Text: "second", Score: 0.4},
	})
	r.MoveUp()
	assert.Equal(t, 0, r.Selected())
	r.MoveDown()
	r.MoveDown()
	assert.Equal(t, 1, r.Selected())
	assert.Equal(t, "b.md", r.SelectedResult().Filename)

	view := r.View()
	assert.Contains(t, view, "Results (2)")
	assert.Contains(t, view, "[0.800]")

	r.ToggleExpanded()
	assert.True(t, r.Expanded())
	assert.Contains(t, r.View(), "second")

	r.SetResults(nil)
	assert.False(t, r.Expanded())
	assert.Equal(t, 0, r.Selected())
}
