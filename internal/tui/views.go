package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/haul/internal/tui/styles"
)

// View renders the application
func (m Model) View() string {
	if !m.Ready {
		return "Loading..."
	}

	if m.State == StateHelp {
		return m.renderHelp()
	}

	switch {
	case m.Login.IsVisible():
		return m.placeModal(m.Login.View())
	case m.Search.IsVisible():
		return m.placeModal(m.Search.View())
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.Queue.View(),
		m.renderFooter(),
	)
}

func (m Model) placeModal(modal string) string {
	return lipgloss.Place(m.Width, m.Height,
		lipgloss.Center, lipgloss.Center,
		modal)
}

// renderFooter renders a single-line footer: status or freshness on the left, key hints on the right
func (m Model) renderFooter() string {
	var left string
	switch {
	case m.StatusMsg != "" && m.StatusIsErr:
		left = styles.ErrorStyle.Render(m.StatusMsg)
	case m.StatusMsg != "":
		left = styles.DimStyle.Render(m.StatusMsg)
	default:
		left = styles.DimStyle.Render(m.freshness())
	}

	right := m.Help.ShortHelpView(Keys.ShortHelp())

	leftWidth := lipgloss.Width(left)
	rightWidth := lipgloss.Width(right)
	if leftWidth+rightWidth+1 > m.Width {
		// Not enough space for hints
		return styles.Truncate(left, m.Width)
	}

	gap := m.Width - leftWidth - rightWidth
	return left + strings.Repeat(" ", gap) + right
}

// freshness describes when the queue was last fetched successfully
func (m Model) freshness() string {
	prefix := ""
	if m.serverURL != "" {
		prefix = m.serverURL + " · "
	}
	if m.view.UpdatedAt.IsZero() {
		return prefix + "connecting..."
	}
	return prefix + "updated " + formatAgo(m.now().Sub(m.view.UpdatedAt))
}

// formatAgo formats an elapsed duration for the footer
func formatAgo(d time.Duration) string {
	switch {
	case d < time.Second:
		return "just now"
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}
}

// renderHelp renders the help screen
func (m Model) renderHelp() string {
	h := m.Help
	h.ShowAll = true

	content := lipgloss.JoinVertical(lipgloss.Left,
		styles.ModalTitleStyle.Render("Keys"),
		h.View(Keys),
		"",
		styles.DimStyle.Render("Press esc, ? or q to return"),
	)
	return m.placeModal(styles.ModalStyle.Render(content))
}
