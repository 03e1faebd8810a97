// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/docindex/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docindex/internal/core/domain"
)

// ResultList displays search results in a navigable list.
type ResultList struct {
	results  []domain.SearchResult
	selected int
	expanded bool
	styles   *styles.Styles
	width    int
	height   int
}

// NewResultList creates a new result list component.
func NewResultList(s *styles.Styles) *ResultList {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &ResultList{styles: s, width: 80, height: 10}
}

// View renders the result list.
func (r *ResultList) View() string {
	if len(r.results) == 0 {
		return r.styles.Muted.Render("No results.")
	}

	if r.expanded {
		return r.renderExpanded(&r.results[r.selected])
	}

	lines := make([]string, 0, len(r.results)+2)
	lines = append(lines, r.styles.Subtitle.Render(fmt.Sprintf("Results (%d)", len(r.results))), "")

	// Each result takes two lines.
	visible := (r.height - 2) / 2
	if visible < 1 {
		visible = 1
	}
	start := 0
	if r.selected >= visible {
		start = r.selected - visible + 1
	}
	end := min(start+visible, len(r.results))

	for i := start; i < end; i++ {
		lines = append(lines, r.renderResult(i, &r.results[i]))
	}
	return strings.Join(lines, "\n")
}

func (r *ResultList) renderResult(index int, result *domain.SearchResult) string {
	indicator := "  "
	if index == r.selected {
		indicator = "> "
	}

	score := fmt.Sprintf("[%.3f]", result.Score)
	name := Truncate(result.Filename+" "+result.Location.String(), max(r.width-len(score)-6, 10))

	var title string
	if index == r.selected {
		title = r.styles.Selected.Render(indicator+name) + " " + r.styles.Score.Render(score)
	} else {
		title = r.styles.Normal.Render(indicator+name) + " " + r.styles.Score.Render(score)
	}

	preview := Truncate(Flatten(result.Text), max(r.width-6, 20))
	return title + "\n" + r.styles.Muted.Render("    "+preview)
}

func (r *ResultList) renderExpanded(result *domain.SearchResult) string {
	header := r.styles.Subtitle.Render(fmt.Sprintf("%s %s", result.Filename, result.Location)) +
		" " + r.styles.Score.Render(fmt.Sprintf("[%.3f]", result.Score))

	text := result.Text
	lines := strings.Split(text, "\n")
	if limit := r.height - 4; limit > 0 && len(lines) > limit {
		lines = append(lines[:limit], "...")
	}
	body := r.styles.Border.Width(max(r.width-4, 20)).Render(strings.Join(lines, "\n"))
	return header + "\n" + body
}

// Flatten collapses runs of whitespace into single spaces.
func Flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate shortens s to at most n runes, marking the cut with "...".
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

// SetResults replaces the results and resets the selection.
func (r *ResultList) SetResults(results []domain.SearchResult) {
	r.results = results
	r.selected = 0
	r.expanded = false
}

// Results returns the current results.
func (r *ResultList) Results() []domain.SearchResult {
	return r.results
}

// Selected returns the index of the selected result.
func (r *ResultList) Selected() int {
	return r.selected
}

// SelectedResult returns the currently selected result, or nil if none.
func (r *ResultList) SelectedResult() *domain.SearchResult {
	if r.selected < 0 || r.selected >= len(r.results) {
		return nil
	}
	return &r.results[r.selected]
}

// ToggleExpanded switches between the list and the selected result's full text.
func (r *ResultList) ToggleExpanded() {
	if len(r.results) > 0 {
		r.expanded = !r.expanded
	}
}

// Expanded reports whether the full text of the selection is shown.
func (r *ResultList) Expanded() bool {
	return r.expanded
}

// MoveUp moves selection up.
func (r *ResultList) MoveUp() {
	if r.selected > 0 {
		r.selected--
	}
}

// MoveDown moves selection down.
func (r *ResultList) MoveDown() {
	if r.selected < len(r.results)-1 {
		r.selected++
	}
}

// SetDimensions sets the component dimensions.
func (r *ResultList) SetDimensions(width, height int) {
	r.width = width
	r.height = height
}
