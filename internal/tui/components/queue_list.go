package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/mmcdole/haul/internal/domain"
	"github.com/mmcdole/haul/internal/queue"
	"github.com/mmcdole/haul/internal/tui/styles"
)

// Layout constants for the queue list
const (
	// Border adds 1 char on each side
	BorderWidth  = 2
	BorderHeight = 2

	// Title line plus "↑ more" and "↓ more"
	listChromeLines = 3
)

// QueueList is the scrollable download queue.
// The cursor follows the selected row's LocalID across refreshes.
type QueueList struct {
	rows   []queue.Row
	loaded bool
	err    error

	// Selection
	cursor     int
	offset     int
	maxVisible int

	// Dimensions
	width  int
	height int

	showService bool
	showIDs     bool

	// Filter state
	filterActive bool
	filterInput  textinput.Model
	filterQuery  string
	filteredIdx  []int // indices into rows
}

// NewQueueList creates an empty queue list
func NewQueueList(showService, showIDs bool) *QueueList {
	ti := textinput.New()
	ti.Placeholder = "type to filter..."
	ti.Prompt = "/ "
	ti.PromptStyle = styles.FilterPromptStyle
	ti.TextStyle = styles.FilterStyle

	return &QueueList{
		filterInput: ti,
		showService: showService,
		showIDs:     showIDs,
	}
}

// SetState replaces the rows with a newer view state, keeping the selection
func (l *QueueList) SetState(state queue.ViewState) {
	selectedID := ""
	if row := l.Selected(); row != nil {
		selectedID = row.LocalID
	}

	l.rows = state.Plan.Rows
	l.loaded = state.Loaded
	l.err = state.Err

	if l.filterActive && l.filterQuery != "" {
		l.filteredIdx = l.match(l.filterQuery)
	}

	l.cursor = l.positionOf(selectedID)
	l.ensureVisible()
}

// positionOf returns the visible position of localID, or the clamped cursor if it is gone
func (l *QueueList) positionOf(localID string) int {
	if localID != "" {
		for i := 0; i < l.ItemCount(); i++ {
			if l.rows[l.mapIndex(i)].LocalID == localID {
				return i
			}
		}
	}
	return clamp(l.cursor, 0, l.ItemCount()-1)
}

// Selected returns the row under the cursor
func (l *QueueList) Selected() *queue.Row {
	count := l.ItemCount()
	if count == 0 || l.cursor >= count {
		return nil
	}
	row := l.rows[l.mapIndex(l.cursor)]
	return &row
}

// ItemCount returns the number of visible rows
func (l *QueueList) ItemCount() int {
	if l.filteredIdx != nil {
		return len(l.filteredIdx)
	}
	return len(l.rows)
}

// TotalCount returns the number of rows before filtering
func (l *QueueList) TotalCount() int {
	return len(l.rows)
}

// ActiveCount returns the number of rows the server is still working on
func (l *QueueList) ActiveCount() int {
	n := 0
	for _, r := range l.rows {
		if r.Status.IsActive() {
			n++
		}
	}
	return n
}

// Err returns the error from the newest fetch, if it failed
func (l *QueueList) Err() error {
	return l.err
}

// SetSize updates the list dimensions
func (l *QueueList) SetSize(width, height int) {
	l.width = width
	l.height = height
	l.recalcMaxVisible()
	l.ensureVisible()
}

// ToggleFilter activates the filter input
func (l *QueueList) ToggleFilter() {
	l.filterActive = true
	l.filterInput.Focus()
	l.recalcMaxVisible()
}

// IsFilterTyping returns true if the filter input has focus
func (l *QueueList) IsFilterTyping() bool {
	return l.filterActive && l.filterInput.Focused()
}

// IsFiltering returns true if a filter is active
func (l *QueueList) IsFiltering() bool {
	return l.filterActive
}

// Update handles navigation and filter keys
func (l *QueueList) Update(msg tea.Msg) tea.Cmd {
	keyMsg, ok := msg.(tea.KeyMsg)

	// Typing into the filter
	if l.IsFilterTyping() {
		if ok {
			switch {
			case key.Matches(keyMsg, QueueListKeys.Escape):
				l.clearFilter()
				return nil
			case key.Matches(keyMsg, QueueListKeys.Enter):
				l.filterInput.Blur()
				return nil
			case keyMsg.String() == "backspace" && l.filterInput.Value() == "":
				l.clearFilter()
				return nil
			}
		}

		var cmd tea.Cmd
		l.filterInput, cmd = l.filterInput.Update(msg)
		l.applyFilter()
		return cmd
	}

	if !ok {
		return nil
	}

	if l.filterActive {
		switch {
		case key.Matches(keyMsg, QueueListKeys.Escape):
			l.clearFilter()
			return nil
		case key.Matches(keyMsg, QueueListKeys.Filter):
			l.filterInput.Focus()
			return nil
		}
	}

	count := l.ItemCount()
	if count == 0 {
		return nil
	}

	switch {
	case key.Matches(keyMsg, QueueListKeys.Down):
		if l.cursor < count-1 {
			l.cursor++
		}
	case key.Matches(keyMsg, QueueListKeys.Up):
		if l.cursor > 0 {
			l.cursor--
		}
	case key.Matches(keyMsg, QueueListKeys.Home):
		l.cursor = 0
	case key.Matches(keyMsg, QueueListKeys.End):
		l.cursor = count - 1
	case key.Matches(keyMsg, QueueListKeys.HalfDown):
		l.cursor = clamp(l.cursor+max(l.maxVisible/2, 1), 0, count-1)
	case key.Matches(keyMsg, QueueListKeys.HalfUp):
		l.cursor = clamp(l.cursor-max(l.maxVisible/2, 1), 0, count-1)
	}
	l.ensureVisible()
	return nil
}

// View renders the list inside a border
func (l *QueueList) View() string {
	style := styles.ActiveBorder
	frameW, frameH := style.GetFrameSize()

	return style.
		Width(max(l.width-frameW, 0)).
		Height(max(l.height-frameH, 0)).
		Render(l.renderContent())
}

// Internal methods

func (l *QueueList) recalcMaxVisible() {
	l.maxVisible = l.height - BorderHeight - listChromeLines
	if l.err != nil {
		l.maxVisible--
	}
	if l.filterActive {
		l.maxVisible--
	}
	if l.maxVisible < 1 {
		l.maxVisible = 1
	}
}

func (l *QueueList) ensureVisible() {
	l.recalcMaxVisible()
	if l.height == 0 {
		return
	}
	if l.cursor < l.offset {
		l.offset = l.cursor
	}
	if l.cursor >= l.offset+l.maxVisible {
		l.offset = l.cursor - l.maxVisible + 1
	}
	if l.offset > 0 && l.offset > l.ItemCount()-l.maxVisible {
		l.offset = max(l.ItemCount()-l.maxVisible, 0)
	}
}

func (l *QueueList) clearFilter() {
	selectedID := ""
	if row := l.Selected(); row != nil {
		selectedID = row.LocalID
	}

	l.filterActive = false
	l.filterQuery = ""
	l.filteredIdx = nil
	l.filterInput.SetValue("")
	l.filterInput.Blur()

	l.cursor = l.positionOf(selectedID)
	l.ensureVisible()
}

func (l *QueueList) applyFilter() {
	query := l.filterInput.Value()
	if query == l.filterQuery {
		return
	}
	l.filterQuery = query

	if query == "" {
		l.filteredIdx = nil
	} else {
		l.filteredIdx = l.match(query)
	}

	// Reset cursor to first match
	l.cursor = 0
	l.offset = 0
}

// match fuzzy-matches query against "name by" of every row
func (l *QueueList) match(query string) []int {
	targets := make([]string, len(l.rows))
	for i, r := range l.rows {
		targets[i] = strings.ToLower(r.Name + " " + r.By)
	}

	matches := fuzzy.Find(strings.ToLower(query), targets)
	idx := make([]int, len(matches))
	for i, m := range matches {
		idx[i] = m.Index
	}
	return idx
}

func (l *QueueList) mapIndex(i int) int {
	if l.filteredIdx != nil && i < len(l.filteredIdx) {
		return l.filteredIdx[i]
	}
	return i
}

// Rendering

func (l *QueueList) renderContent() string {
	itemWidth := max(l.width-BorderWidth, 10)

	title := "Download Queue"
	if len(l.rows) > 0 {
		title = fmt.Sprintf("Download Queue (%d)", len(l.rows))
		if active := l.ActiveCount(); active > 0 {
			title = fmt.Sprintf("Download Queue (%d, %d active)", len(l.rows), active)
		}
	}
	lines := []string{styles.AccentStyle.Render(styles.Truncate(title, itemWidth))}

	if l.err != nil {
		lines = append(lines, l.renderError(itemWidth))
	}

	count := l.ItemCount()
	if count == 0 {
		msg := queue.EmptyMessage
		switch {
		case !l.loaded:
			msg = "Loading queue..."
		case l.filterActive && l.filterQuery != "":
			msg = "No matches"
		}
		lines = append(lines, " ", styles.DimStyle.Render(msg), " ")
	} else {
		end := min(l.offset+l.maxVisible, count)

		// Always reserve the indicator lines to prevent layout shifts
		header := " "
		if l.offset > 0 {
			header = styles.DimStyle.Render("↑ more")
		}
		footer := " "
		if end < count {
			footer = styles.DimStyle.Render("↓ more")
		}

		lines = append(lines, header)
		for i := l.offset; i < end; i++ {
			lines = append(lines, l.renderRow(l.rows[l.mapIndex(i)], i == l.cursor, itemWidth))
		}
		lines = append(lines, footer)
	}

	if l.filterActive {
		lines = append(lines, l.renderFilterBar())
	}

	return strings.Join(lines, "\n")
}

func (l *QueueList) renderError(width int) string {
	msg := fmt.Sprintf("⚠ %s error: %v (showing last known queue)", domain.ErrorKind(l.err), l.err)
	return styles.ErrorStyle.Render(styles.Truncate(msg, width))
}

func (l *QueueList) renderRow(row queue.Row, selected bool, width int) string {
	glyph, glyphFg := styles.StatusGlyph(row.Status)
	statusFg := styles.StatusColor(row.Status)
	dim := styles.DimGray
	accent := styles.Teal

	status := styles.Pad(row.Status.String(), 14)
	hint := "[" + string(row.Primary()) + "]"

	var service string
	if l.showService && row.ServiceID != "" {
		service = " " + domain.ServiceLabel(row.ServiceID)
	}
	var id string
	if l.showIDs {
		id = " #" + row.LocalID
	}

	// Remaining space: margins(2) + glyph(1) + spaces
	fixed := 2 + 2 + lipgloss.Width(status) + 1 + lipgloss.Width(hint) + lipgloss.Width(service) + lipgloss.Width(id) + 1
	textWidth := max(width-fixed, 8)
	text := styles.Pad(styles.Truncate(row.Name+" · "+row.By, textWidth), textWidth)

	parts := []styles.RowPart{
		{Text: glyph, Foreground: &glyphFg},
		{Text: " " + status, Foreground: &statusFg},
		{Text: " " + text},
		{Text: service, Foreground: &dim},
		{Text: id, Foreground: &dim},
		{Text: " " + hint, Foreground: &accent},
	}

	return styles.RenderListRow(parts, selected, width)
}

func (l *QueueList) renderFilterBar() string {
	bar := l.filterInput.View()
	if l.filterQuery != "" {
		bar += styles.DimStyle.Render(fmt.Sprintf(" [%d/%d]", l.ItemCount(), len(l.rows)))
	}
	return bar
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return min(max(v, lo), hi)
}
