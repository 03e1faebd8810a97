package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docindex/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docindex/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docindex/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docindex/internal/adapters/driving/tui/views/documents"
	"github.com/custodia-labs/docindex/internal/adapters/driving/tui/views/search"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	keymap *keymap.KeyMap

	searchView    *search.View
	documentsView *documents.View

	// currentView tracks which view is active.
	currentView messages.ViewType

	// err holds the last error that occurred.
	err error

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	return &App{
		ports:         ports,
		ctx:           context.Background(),
		styles:        s,
		keymap:        km,
		searchView:    search.NewView(s, km, ports.Search),
		documentsView: documents.NewView(s, km, ports.Indexer),
		currentView:   messages.ViewSearch,
	}, nil
}

// WithContext sets the context for the app and its views.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.searchView.WithContext(ctx)
	a.documentsView.WithContext(ctx)
	return a
}

// WithTopK sets how many results each search returns.
func (a *App) WithTopK(k int) *App {
	a.searchView.WithTopK(k)
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("docindex"),
		a.searchView.Init(),
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.handleKeyMsg(msg)

	case messages.ViewChanged:
		return a, a.switchTo(msg.View)

	case messages.SearchCompleted:
		a.searchView, cmd = a.searchView.Update(msg)
		a.err = a.searchView.Err()
		return a, cmd

	case messages.DocumentsLoaded, messages.IndexStarted, messages.IndexCompleted:
		a.documentsView, cmd = a.documentsView.Update(msg)
		a.err = a.documentsView.Err()
		return a, cmd

	case messages.ErrorOccurred:
		a.err = msg.Err
	}

	return a, a.forward(msg)
}

func (a *App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return a, tea.Quit
	}

	typing := a.currentView == messages.ViewSearch && a.searchView.InputFocused()

	switch {
	case keymap.Matches(msg.String(), a.keymap.SwitchView):
		next := messages.ViewDocuments
		if a.currentView == messages.ViewDocuments {
			next = messages.ViewSearch
		}
		return a, a.switchTo(next)
	case !typing && msg.String() == "q":
		return a, tea.Quit
	}

	return a, a.forward(msg)
}

// forward hands msg to the active view.
func (a *App) forward(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch a.currentView {
	case messages.ViewSearch:
		a.searchView, cmd = a.searchView.Update(msg)
	case messages.ViewDocuments:
		a.documentsView, cmd = a.documentsView.Update(msg)
	}
	return cmd
}

func (a *App) switchTo(view messages.ViewType) tea.Cmd {
	a.currentView = view
	if view == messages.ViewDocuments {
		return a.documentsView.Load()
	}
	return nil
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	var body string
	switch a.currentView {
	case messages.ViewDocuments:
		body = a.documentsView.View()
	default:
		body = a.searchView.View()
	}
	return lipgloss.JoinVertical(lipgloss.Left, a.renderTabs(), "", body)
}

func (a *App) renderTabs() string {
	tabs := make([]string, 0, 2)
	for _, v := range []messages.ViewType{messages.ViewSearch, messages.ViewDocuments} {
		style := a.styles.Tab
		if v == a.currentView {
			style = a.styles.ActiveTab
		}
		tabs = append(tabs, style.Render(v.String()))
	}
	title := a.styles.Title.Render("docindex")
	return lipgloss.JoinHorizontal(lipgloss.Center, append([]string{title, "  "}, tabs...)...)
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// SearchView exposes the search view.
func (a *App) SearchView() *search.View {
	return a.searchView
}

// DocumentsView exposes the documents view.
func (a *App) DocumentsView() *documents.View {
	return a.documentsView
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has received its dimensions.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions on the app and its views.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	// Tabs take two lines.
	a.searchView.SetDimensions(width, height-2)
	a.documentsView.SetDimensions(width, height-2)
}
