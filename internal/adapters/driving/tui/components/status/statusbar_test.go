package status

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/docindex/internal/adapters/driving/tui/keymap"
)

func TestBar_States(t *testing.T) {
	b := NewBar(nil)
	assert.Equal(t, StateReady, b.State())
	assert.Contains(t, b.View(), "Ready")

	b.SetState(StateSearching)
	assert.Contains(t, b.View(), "Searching...")

	b.SetState(StateIndexing)
	assert.Contains(t, b.View(), "Indexing...")

	b.SetState(StateError)
	b.SetMessage("disk full")
	assert.Contains(t, b.View(), "error: disk full")

	b.SetState(StateResults)
	b.SetMessage("3 results")
	assert.Equal(t, "3 results", b.Message())
	assert.Contains(t, b.View(), "3 results")
}

func TestBar_Hints(t *testing.T) {
	b := NewBar(nil)
	b.SetWidth(120)
	b.SetHints(keymap.DefaultKeyMap().DocumentsHelp())

	view := b.View()
	assert.Contains(t, view, "i: index now")
	assert.Contains(t, view, "r: reload")
}
