package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/haul/internal/domain"
	"github.com/mmcdole/haul/internal/tui/styles"
)

// NoResultsMessage is shown when a search returns nothing
const NoResultsMessage = "No results found."

// SearchActionKind is what the user asked the search modal to do
type SearchActionKind int

const (
	SearchActionNone SearchActionKind = iota
	SearchActionSearch
	SearchActionEnqueue
	SearchActionCopy
)

// SearchAction is returned from SearchModal.Update
type SearchAction struct {
	Kind   SearchActionKind
	Query  string
	Result domain.SearchResult
}

// SearchModal is the catalogue search dialog
type SearchModal struct {
	input       textinput.Model
	suggestions []string
	results     []domain.SearchResult
	searched    bool // a search has completed for the current results
	loading     bool
	err         error
	cursor      int
	onResults   bool // focus is on the result list instead of the input
	visible     bool
	width       int
	height      int
	prevQuery   string
}

// NewSearchModal creates a new search modal
func NewSearchModal() SearchModal {
	ti := textinput.New()
	ti.Placeholder = "Search songs, albums, artists..."
	ti.CharLimit = 200
	ti.Width = 50
	ti.Prompt = "› "
	ti.PromptStyle = styles.AccentStyle
	ti.TextStyle = lipgloss.NewStyle().Foreground(styles.White)
	ti.PlaceholderStyle = styles.DimStyle

	return SearchModal{input: ti}
}

// Show makes the modal visible and focuses the input
func (s *SearchModal) Show() {
	s.visible = true
	s.input.SetValue("")
	s.input.Focus()
	s.results = nil
	s.searched = false
	s.loading = false
	s.err = nil
	s.cursor = 0
	s.onResults = false
	s.prevQuery = ""
}

// Hide hides the modal
func (s *SearchModal) Hide() {
	s.visible = false
	s.input.Blur()
}

// IsVisible returns true if the modal is visible
func (s SearchModal) IsVisible() bool {
	return s.visible
}

// SetSize updates the modal dimensions
func (s *SearchModal) SetSize(width, height int) {
	s.width = width
	s.height = height
	s.input.Width = max(min(width-16, 70), 20)
}

// Query returns the current input value
func (s SearchModal) Query() string {
	return s.input.Value()
}

// QueryChanged reports whether the query changed since the last call
func (s *SearchModal) QueryChanged() bool {
	current := s.input.Value()
	if current != s.prevQuery {
		s.prevQuery = current
		return true
	}
	return false
}

// SetSuggestions sets the recent-query suggestions shown under the input
func (s *SearchModal) SetSuggestions(suggestions []string) {
	s.suggestions = suggestions
}

// SetLoading marks a search as in flight
func (s *SearchModal) SetLoading() {
	s.loading = true
	s.err = nil
}

// SetResults shows results for query. Results for a stale query are ignored.
func (s *SearchModal) SetResults(query string, results []domain.SearchResult, err error) {
	if strings.TrimSpace(query) != strings.TrimSpace(s.input.Value()) {
		return
	}
	s.loading = false
	s.searched = true
	s.results = results
	s.err = err
	s.cursor = 0
	if len(results) > 0 {
		s.onResults = true
		s.input.Blur()
	}
}

// Selected returns the highlighted result
func (s SearchModal) Selected() *domain.SearchResult {
	if !s.onResults || s.cursor >= len(s.results) {
		return nil
	}
	r := s.results[s.cursor]
	return &r
}

// Update handles key input. The returned action tells the caller what to run.
func (s SearchModal) Update(msg tea.Msg) (SearchModal, tea.Cmd, SearchAction) {
	if !s.visible {
		return s, nil, SearchAction{}
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		s.input, cmd = s.input.Update(msg)
		return s, cmd, SearchAction{}
	}

	if s.onResults {
		return s.updateResults(keyMsg)
	}

	switch {
	case key.Matches(keyMsg, SearchModalKeys.Escape):
		s.Hide()
		return s, nil, SearchAction{}

	case key.Matches(keyMsg, SearchModalKeys.Enter):
		query := strings.TrimSpace(s.input.Value())
		if query == "" {
			return s, nil, SearchAction{}
		}
		return s, nil, SearchAction{Kind: SearchActionSearch, Query: query}

	case key.Matches(keyMsg, SearchModalKeys.Suggest):
		if len(s.suggestions) > 0 {
			s.input.SetValue(s.suggestions[0])
			s.input.CursorEnd()
		}
		return s, nil, SearchAction{}

	case key.Matches(keyMsg, SearchModalKeys.Down):
		if len(s.results) > 0 {
			s.onResults = true
			s.input.Blur()
		}
		return s, nil, SearchAction{}
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd, SearchAction{}
}

func (s SearchModal) updateResults(keyMsg tea.KeyMsg) (SearchModal, tea.Cmd, SearchAction) {
	switch {
	case key.Matches(keyMsg, SearchModalKeys.Escape):
		s.focusInput()
	case key.Matches(keyMsg, SearchModalKeys.Up), keyMsg.String() == "k":
		if s.cursor == 0 {
			s.focusInput()
		} else {
			s.cursor--
		}
	case key.Matches(keyMsg, SearchModalKeys.Down), keyMsg.String() == "j":
		if s.cursor < len(s.results)-1 {
			s.cursor++
		}
	case key.Matches(keyMsg, SearchModalKeys.Enter):
		if r := s.Selected(); r != nil {
			return s, nil, SearchAction{Kind: SearchActionEnqueue, Result: *r}
		}
	case key.Matches(keyMsg, SearchModalKeys.Copy), keyMsg.String() == "y":
		if r := s.Selected(); r != nil {
			return s, nil, SearchAction{Kind: SearchActionCopy, Result: *r}
		}
	case keyMsg.String() == "/":
		s.focusInput()
	}
	return s, nil, SearchAction{}
}

func (s *SearchModal) focusInput() {
	s.onResults = false
	s.input.Focus()
}

// View renders the modal
func (s SearchModal) View() string {
	if !s.visible {
		return ""
	}

	width := max(min(s.width-8, 90), 40)
	innerWidth := width - 6

	lines := []string{
		styles.ModalTitleStyle.Render("Search"),
		s.input.View(),
	}

	switch {
	case s.loading:
		lines = append(lines, "", styles.DimStyle.Render("Searching..."))
	case s.err != nil:
		lines = append(lines, "", styles.ErrorStyle.Render(styles.Truncate(s.err.Error(), innerWidth)))
	case s.searched && len(s.results) == 0:
		lines = append(lines, "", styles.DimStyle.Render(NoResultsMessage))
	case len(s.results) > 0:
		lines = append(lines, "")
		lines = append(lines, s.renderResults(innerWidth)...)
	case len(s.suggestions) > 0:
		lines = append(lines, "", styles.DimStyle.Render("Recent"))
		for _, q := range s.suggestions {
			lines = append(lines, styles.SubtitleStyle.Render("  "+styles.Truncate(q, innerWidth-2)))
		}
	}

	lines = append(lines, "", s.renderHints())

	return styles.ModalStyle.Width(width).Render(strings.Join(lines, "\n"))
}

func (s SearchModal) renderResults(width int) []string {
	maxVisible := max(s.height-14, 3)
	start := 0
	if s.cursor >= maxVisible {
		start = s.cursor - maxVisible + 1
	}
	end := min(start+maxVisible, len(s.results))

	dim := styles.DimGray
	lines := make([]string, 0, end-start+1)
	for i := start; i < end; i++ {
		r := s.results[i]
		label := fmt.Sprintf("%s · %s", r.DisplayName(), r.DisplayBy())
		meta := strings.TrimSpace(strings.ToUpper(r.Type) + " " + domain.ServiceLabel(r.ServiceID))
		textWidth := max(width-lipgloss.Width(meta)-4, 8)

		parts := []styles.RowPart{
			{Text: styles.Pad(styles.Truncate(label, textWidth), textWidth)},
			{Text: " " + meta, Foreground: &dim},
		}
		lines = append(lines, styles.RenderListRow(parts, s.onResults && i == s.cursor, width))
	}
	if end < len(s.results) {
		lines = append(lines, styles.DimStyle.Render(fmt.Sprintf("  %d more", len(s.results)-end)))
	}
	return lines
}

func (s SearchModal) renderHints() string {
	hint := func(k, desc string) string {
		return styles.HelpKeyStyle.Render(k) + " " + styles.HelpDescStyle.Render(desc)
	}
	if s.onResults {
		return strings.Join([]string{hint("enter", "download"), hint("y", "copy url"), hint("/", "edit query"), hint("esc", "back")}, "  ")
	}
	return strings.Join([]string{hint("enter", "search"), hint("tab", "complete"), hint("esc", "close")}, "  ")
}
