// Package documents provides the view listing indexed files.
package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docindex/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/docindex/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/docindex/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docindex/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docindex/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docindex/internal/core/domain"
	"github.com/custodia-labs/docindex/internal/core/ports/driving"
)

// ErrNoIndexer is reported when the view has no indexer.
var ErrNoIndexer = errors.New("indexer not available")

// View lists tracked files with their status and runs indexing passes.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	statusbar *status.Bar
	indexer   driving.Indexer
	ctx       context.Context

	records      []domain.TrackingRecord
	lastRun      *driving.RunStats
	selected     int
	scrollOffset int
	width        int
	height       int
	indexing     bool
	err          error
}

// NewView creates a new documents view.
func NewView(s *styles.Styles, km *keymap.KeyMap, indexer driving.Indexer) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	v := &View{
		styles:    s,
		keymap:    km,
		statusbar: status.NewBar(s),
		indexer:   indexer,
		ctx:       context.Background(),
		width:     80,
		height:    24,
	}
	v.statusbar.SetHints(km.DocumentsHelp())
	return v
}

// WithContext sets the context indexing runs under.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Load returns a command that reads the tracking records.
func (v *View) Load() tea.Cmd {
	ctx, idx := v.ctx, v.indexer
	return func() tea.Msg {
		if idx == nil {
			return messages.DocumentsLoaded{Err: ErrNoIndexer}
		}
		records, err := idx.Documents(ctx)
		return messages.DocumentsLoaded{Records: records, Err: err}
	}
}

// reindex returns a command that runs one indexing pass.
func (v *View) reindex() tea.Cmd {
	ctx, idx := v.ctx, v.indexer
	return func() tea.Msg {
		if idx == nil {
			return messages.IndexCompleted{Err: ErrNoIndexer}
		}
		stats, err := idx.Run(ctx)
		return messages.IndexCompleted{Stats: stats, Err: err}
	}
}

// Update handles messages for the documents view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.DocumentsLoaded:
		if msg.Err != nil {
			v.setError(msg.Err)
			return v, nil
		}
		v.err = nil
		v.records = msg.Records
		if v.selected >= len(v.records) {
			v.selected = max(len(v.records)-1, 0)
		}
		v.adjustScroll()
		if !v.indexing {
			v.statusbar.SetState(status.StateReady)
			v.statusbar.SetMessage(fmt.Sprintf("%d documents", len(v.records)))
		}
		return v, nil

	case messages.IndexCompleted:
		v.indexing = false
		if msg.Err != nil {
			v.setError(msg.Err)
			return v, v.Load()
		}
		v.lastRun = msg.Stats
		v.statusbar.SetState(status.StateReady)
		v.statusbar.SetMessage(Summary(msg.Stats))
		return v, v.Load()

	case messages.ErrorOccurred:
		v.setError(msg.Err)
	}
	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch {
	case keymap.Matches(msg.String(), v.keymap.Up):
		if v.selected > 0 {
			v.selected--
			v.adjustScroll()
		}
	case keymap.Matches(msg.String(), v.keymap.Down):
		if v.selected < len(v.records)-1 {
			v.selected++
			v.adjustScroll()
		}
	case keymap.Matches(msg.String(), v.keymap.Reload):
		return v, v.Load()
	case keymap.Matches(msg.String(), v.keymap.Reindex):
		if v.indexing {
			return v, nil
		}
		v.indexing = true
		v.err = nil
		v.statusbar.SetState(status.StateIndexing)
		return v, tea.Batch(func() tea.Msg { return messages.IndexStarted{} }, v.reindex())
	}
	return v, nil
}

func (v *View) setError(err error) {
	v.err = err
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(err.Error())
}

// Summary renders run stats on one line.
func Summary(s *driving.RunStats) string {
	if s == nil {
		return ""
	}
	return fmt.Sprintf("%d scanned, %d processed, %d skipped, %d failed, %d deleted",
		s.Scanned, s.Processed, s.Skipped, s.Failed, s.Deleted)
}

func (v *View) adjustScroll() {
	visible := v.visibleItemCount()
	if v.selected < v.scrollOffset {
		v.scrollOffset = v.selected
	} else if v.selected >= v.scrollOffset+visible {
		v.scrollOffset = v.selected - visible + 1
	}
}

func (v *View) visibleItemCount() int {
	// Title, column header, detail line, status bar and padding.
	return max(v.height-8, 1)
}

// View renders the documents view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Subtitle.Render(fmt.Sprintf("Documents (%d)", len(v.records))))
	b.WriteString("\n\n")

	if len(v.records) == 0 {
		b.WriteString(v.styles.Muted.Render("Nothing indexed yet. Press i to index."))
	} else {
		nameWidth := max(v.width-40, 16)
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  %-*s %-8s %6s  %s", nameWidth, "FILE", "STATUS", "ROWS", "UPDATED")))
		b.WriteString("\n")

		end := min(v.scrollOffset+v.visibleItemCount(), len(v.records))
		for i := v.scrollOffset; i < end; i++ {
			b.WriteString(v.renderRecord(i, &v.records[i], nameWidth))
			b.WriteString("\n")
		}

		if rec := v.SelectedRecord(); rec != nil && rec.Error != "" {
			b.WriteString("\n")
			b.WriteString(v.styles.Error.Render(list.Truncate("error: "+list.Flatten(rec.Error), max(v.width-2, 20))))
		}
	}

	b.WriteString("\n\n")
	b.WriteString(v.statusbar.View())
	return b.String()
}

func (v *View) renderRecord(index int, rec *domain.TrackingRecord, nameWidth int) string {
	indicator := "  "
	if index == v.selected {
		indicator = "> "
	}
	updated := "-"
	if !rec.UpdatedAt.IsZero() {
		updated = rec.UpdatedAt.Local().Format("2006-01-02 15:04")
	}
	line := fmt.Sprintf("%s%-*s %-8s %6d  %s",
		indicator, nameWidth, list.Truncate(rec.Filename, nameWidth), rec.Status, rec.RowCount, updated)

	switch {
	case index == v.selected:
		return v.styles.Selected.Render(line)
	case rec.Status == domain.StatusFailed:
		return v.styles.Error.Render(line)
	default:
		return v.styles.Normal.Render(line)
	}
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.statusbar.SetWidth(width)
	v.adjustScroll()
}

// Records returns the loaded tracking records.
func (v *View) Records() []domain.TrackingRecord {
	return v.records
}

// SelectedRecord returns the highlighted record, or nil.
func (v *View) SelectedRecord() *domain.TrackingRecord {
	if v.selected < 0 || v.selected >= len(v.records) {
		return nil
	}
	return &v.records[v.selected]
}

// Indexing reports whether a pass started from this view is running.
func (v *View) Indexing() bool {
	return v.indexing
}

// LastRun returns the stats of the last pass started from this view.
func (v *View) LastRun() *driving.RunStats {
	return v.lastRun
}

// StatusBar exposes the status bar component.
func (v *View) StatusBar() *status.Bar {
	return v.statusbar
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
