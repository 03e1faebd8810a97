package search

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docindex/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/docindex/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docindex/internal/core/domain"
)

type mockSearchService struct {
	results []domain.SearchResult
	err     error
	topK    int
}

func (m *mockSearchService) Search(_ context.Context, _ string, topK int) ([]domain.SearchResult, error) {
	m.topK = topK
	return m.results, m.err
}

func sampleResults() []domain.SearchResult {
	return []domain.SearchResult{
		{ID: "a", Filename: "a.md", Location: domain.Location{Start: 0, End: 5}, Text: "alpha", Score: 0.9},
		{ID: "b", Filename: "b.md", Location: domain.Location{Start: 5, End: 9}, Text: "beta", Score: 0.5},
	}
}

func newView(svc *mockSearchService) *View {
	v := NewView(nil, nil, svc)
	v.SetDimensions(100, 30)
	return v
}

func TestView_EmptyQueryDoesNothing(t *testing.T) {
	v := newView(&mockSearchService{})
	v.SetQuery("   ")

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, status.StateReady, v.StatusBar().State())
}

func TestView_SubmitUsesTopK(t *testing.T) {
	svc := &mockSearchService{results: sampleResults()}
	v := newView(svc).WithTopK(3)
	v.SetQuery("alpha")

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, status.StateSearching, v.StatusBar().State())

	msg := cmd()
	done, ok := msg.(messages.SearchCompleted)
	require.True(t, ok)
	assert.Equal(t, "alpha", done.Query)
	assert.Equal(t, 3, svc.topK)

	v.Update(msg)
	assert.False(t, v.InputFocused())
	assert.Len(t, v.ResultList().Results(), 2)
	assert.Equal(t, "2 results", v.StatusBar().Message())
}

func TestView_DefaultTopK(t *testing.T) {
	svc := &mockSearchService{}
	v := newView(svc).WithTopK(0)
	v.SetQuery("x")

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	cmd()
	assert.Equal(t, DefaultTopK, svc.topK)
}

func TestView_NoResultsKeepsInputFocus(t *testing.T) {
	v := newView(&mockSearchService{})

	v.Update(messages.SearchCompleted{Query: "x"})
	assert.True(t, v.InputFocused())
	assert.Equal(t, "No results.", v.StatusBar().Message())
	assert.Contains(t, v.View(), "No results.")
}

func TestView_ResultNavigation(t *testing.T) {
	v := newView(&mockSearchService{})
	v.Update(messages.SearchCompleted{Query: "x", Results: sampleResults()})

	v.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, v.ResultList().Selected())
	v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("k")})
	assert.Equal(t, 0, v.ResultList().Selected())

	v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, v.ResultList().Expanded())
	assert.Contains(t, v.View(), "alpha")

	v.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, v.ResultList().Expanded())

	v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	assert.True(t, v.InputFocused())
	assert.Empty(t, v.Query())
}

func TestView_SearchError(t *testing.T) {
	v := newView(&mockSearchService{})

	v.Update(messages.SearchCompleted{Query: "x", Err: errors.New("boom")})
	assert.EqualError(t, v.Err(), "boom")
	assert.Equal(t, status.StateError, v.StatusBar().State())
	assert.Contains(t, v.View(), "boom")
}

func TestView_NilService(t *testing.T) {
	v := NewView(nil, nil, nil)
	v.SetQuery("x")

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	msg := cmd()

	failed, ok := msg.(messages.ErrorOccurred)
	require.True(t, ok)
	assert.ErrorIs(t, failed.Err, ErrNoSearchService)
}
