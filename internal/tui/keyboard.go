package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmcdole/haul/internal/domain"
	"github.com/mmcdole/haul/internal/tui/components"
)

// handleKeyMsg handles keyboard input
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, Keys.Abort) {
		return m, tea.Quit
	}

	// Handle state-specific keys
	if m.State == StateHelp {
		if key.Matches(msg, Keys.Escape, Keys.Help, Keys.Quit) {
			m.State = StateBrowsing
		}
		return m, nil
	}

	// Route to active modal if any
	if m.Login.IsVisible() {
		return m.updateLogin(msg)
	}
	if m.Search.IsVisible() {
		return m.updateSearch(msg)
	}

	// Filter input swallows everything while typing
	if m.Queue.IsFilterTyping() {
		return m, m.Queue.Update(msg)
	}

	// Global keys
	switch {
	case key.Matches(msg, Keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, Keys.Help):
		m.State = StateHelp
		return m, nil

	case key.Matches(msg, Keys.Filter):
		if m.Queue.IsFiltering() {
			return m, m.Queue.Update(msg)
		}
		m.Queue.ToggleFilter()
		return m, nil

	case key.Matches(msg, Keys.Search):
		m.Search.Show()
		m.Search.SetSuggestions(m.SearchSvc.Suggest(""))
		m.State = StateSearching
		return m, nil

	case key.Matches(msg, Keys.Login):
		m.loginDismissed = false
		m.Login.Show("")
		m.State = StateAuthRequired
		return m, nil

	case key.Matches(msg, Keys.Refresh):
		return m, tea.Batch(m.setStatus("Refreshing...", false), RefreshCmd(m.Sync))

	case key.Matches(msg, Keys.Clear):
		return m, ClearFinishedCmd(m.Sync)

	case key.Matches(msg, Keys.Primary):
		if row := m.Queue.Selected(); row != nil {
			return m, DispatchCmd(m.Sync, row.Primary(), *row)
		}
		return m, nil

	case key.Matches(msg, Keys.Download):
		return m.dispatchSelected(domain.ActionDownload)
	case key.Matches(msg, Keys.Retry):
		return m.dispatchSelected(domain.ActionRetry)
	case key.Matches(msg, Keys.Cancel):
		return m.dispatchSelected(domain.ActionCancel)
	case key.Matches(msg, Keys.Open):
		return m.dispatchSelected(domain.ActionOpen)
	case key.Matches(msg, Keys.Delete):
		return m.dispatchSelected(domain.ActionDelete)
	}

	// Navigation and filter keys
	return m, m.Queue.Update(msg)
}

// dispatchSelected runs kind on the selected row if its status offers it
func (m Model) dispatchSelected(kind domain.ActionKind) (tea.Model, tea.Cmd) {
	row := m.Queue.Selected()
	if row == nil {
		return m, nil
	}
	if !row.Allows(kind) {
		text := fmt.Sprintf("Can't %s an item that is %s", kind, row.Status)
		return m, m.setStatus(text, true)
	}
	return m, DispatchCmd(m.Sync, kind, *row)
}

func (m Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var submitted bool
	m.Login, cmd, submitted = m.Login.Update(msg)

	if submitted {
		user, pass := m.Login.Credentials()
		return m, LoginCmd(m.SessionSvc, user, pass)
	}
	if !m.Login.IsVisible() {
		m.loginDismissed = true
		m.State = StateBrowsing
	}
	return m, cmd
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var action components.SearchAction
	m.Search, cmd, action = m.Search.Update(msg)

	if !m.Search.IsVisible() {
		m.State = StateBrowsing
		return m, cmd
	}

	if m.Search.QueryChanged() {
		m.Search.SetSuggestions(m.SearchSvc.Suggest(m.Search.Query()))
	}

	switch action.Kind {
	case components.SearchActionSearch:
		m.Search.SetLoading()
		return m, SearchCmd(m.SearchSvc, action.Query)
	case components.SearchActionEnqueue:
		return m, EnqueueCmd(m.SearchSvc, action.Result)
	case components.SearchActionCopy:
		return m, CopyURLCmd(action.Result.URL)
	}
	return m, cmd
}
