// Package search provides the search view for the TUI.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docindex/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/docindex/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/docindex/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/docindex/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docindex/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docindex/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docindex/internal/core/ports/driving"
)

// DefaultTopK is how many results a query returns.
const DefaultTopK = 10

// ErrNoSearchService is reported when the view has no search service.
var ErrNoSearchService = errors.New("search service not available")

// View represents the search view with input, results list, and status bar.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.QueryInput
	list      *list.ResultList
	statusbar *status.Bar

	searchService driving.SearchService
	ctx           context.Context
	topK          int

	width      int
	height     int
	ready      bool
	err        error
	focusInput bool
}

// NewView creates a new search view.
func NewView(s *styles.Styles, km *keymap.KeyMap, searchService driving.SearchService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	v := &View{
		styles:        s,
		keymap:        km,
		input:         input.NewQueryInput(s),
		list:          list.NewResultList(s),
		statusbar:     status.NewBar(s),
		searchService: searchService,
		ctx:           context.Background(),
		topK:          DefaultTopK,
		width:         80,
		height:        24,
		focusInput:    true,
	}
	v.statusbar.SetHints(km.InputHelp())
	return v
}

// WithContext sets the context searches run under.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// WithTopK sets how many results a query returns.
func (v *View) WithTopK(k int) *View {
	if k > 0 {
		v.topK = k
	}
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the search view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.SearchCompleted:
		v.handleSearchCompleted(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.setError(msg.Err)
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if v.focusInput {
		switch msg.Type {
		case tea.KeyEnter:
			query := strings.TrimSpace(v.input.Value())
			if query == "" {
				return v, nil
			}
			v.statusbar.SetState(status.StateSearching)
			return v, v.performSearch(query)
		case tea.KeyEsc:
			if len(v.list.Results()) > 0 {
				v.focusResults()
			}
			return v, nil
		}
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return v, cmd
	}

	switch {
	case keymap.Matches(msg.String(), v.keymap.Up):
		v.list.MoveUp()
	case keymap.Matches(msg.String(), v.keymap.Down):
		v.list.MoveDown()
	case msg.Type == tea.KeyEnter:
		v.list.ToggleExpanded()
	case msg.Type == tea.KeyEsc:
		if v.list.Expanded() {
			v.list.ToggleExpanded()
		}
	case keymap.Matches(msg.String(), v.keymap.NewSearch):
		v.focusInput = true
		v.input.SetValue("")
		v.statusbar.SetHints(v.keymap.InputHelp())
		return v, v.input.Focus()
	}
	return v, nil
}

// performSearch returns a command running query against the service.
func (v *View) performSearch(query string) tea.Cmd {
	ctx, svc, k := v.ctx, v.searchService, v.topK
	return func() tea.Msg {
		if svc == nil {
			return messages.ErrorOccurred{Err: ErrNoSearchService}
		}
		results, err := svc.Search(ctx, query, k)
		return messages.SearchCompleted{Query: query, Results: results, Err: err}
	}
}

func (v *View) handleSearchCompleted(msg messages.SearchCompleted) {
	if msg.Err != nil {
		v.setError(msg.Err)
		return
	}

	v.err = nil
	v.list.SetResults(msg.Results)
	v.statusbar.SetState(status.StateResults)
	if len(msg.Results) == 0 {
		v.statusbar.SetMessage("No results.")
		return
	}
	v.statusbar.SetMessage(fmt.Sprintf("%d results", len(msg.Results)))
	v.focusResults()
}

func (v *View) focusResults() {
	v.focusInput = false
	v.input.Blur()
	v.statusbar.SetHints(v.keymap.ResultsHelp())
}

func (v *View) setError(err error) {
	v.err = err
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(err.Error())
}

// View renders the search view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := []string{v.input.View(), ""}
	if v.err != nil {
		sections = append(sections, v.styles.Error.Render("error: "+v.err.Error()), "")
	}
	sections = append(sections, v.list.View(), "", v.statusbar.View())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	v.list.SetDimensions(width, height-10)
	v.statusbar.SetWidth(width)
}

// InputFocused reports whether keystrokes go to the query input.
func (v *View) InputFocused() bool {
	return v.focusInput
}

// Query returns the current query text.
func (v *View) Query() string {
	return v.input.Value()
}

// SetQuery sets the query text.
func (v *View) SetQuery(query string) {
	v.input.SetValue(query)
}

// ResultList exposes the results component.
func (v *View) ResultList() *list.ResultList {
	return v.list
}

// StatusBar exposes the status bar component.
func (v *View) StatusBar() *status.Bar {
	return v.statusbar
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}
