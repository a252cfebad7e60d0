package components

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/haul/internal/domain"
	"github.com/mmcdole/haul/internal/queue"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func stateOf(seq uint64, items ...domain.QueueItem) queue.ViewState {
	return queue.ViewState{Seq: seq, Plan: queue.Reconcile(items), Loaded: true}
}

func item(id, name, by string, status domain.Status) domain.QueueItem {
	return domain.QueueItem{LocalID: id, Name: name, By: by, Status: status}
}

func TestQueueListKeepsSelectionAcrossRefresh(t *testing.T) {
	l := NewQueueList(true, false)
	l.SetSize(80, 20)
	l.SetState(stateOf(1,
		item("a", "Alpha", "X", domain.StatusWaiting),
		item("b", "Beta", "Y", domain.StatusWaiting),
		item("c", "Gamma", "Z", domain.StatusWaiting),
	))

	l.Update(runes("j"))
	l.Update(runes("j"))
	require.Equal(t, "c", l.Selected().LocalID)

	// Server reorders and drops a row
	l.SetState(stateOf(2,
		item("c", "Gamma", "Z", domain.StatusDownloading),
		item("a", "Alpha", "X", domain.StatusWaiting),
	))

	row := l.Selected()
	require.NotNil(t, row)
	assert.Equal(t, "c", row.LocalID)
	assert.Equal(t, domain.StatusDownloading, row.Status)
}

func TestQueueListClampsWhenSelectionDisappears(t *testing.T) {
	l := NewQueueList(true, false)
	l.SetSize(80, 20)
	l.SetState(stateOf(1,
		item("a", "Alpha", "X", domain.StatusWaiting),
		item("b", "Beta", "Y", domain.StatusWaiting),
	))
	l.Update(runes("G"))

	l.SetState(stateOf(2, item("a", "Alpha", "X", domain.StatusWaiting)))
	assert.Equal(t, "a", l.Selected().LocalID)

	l.SetState(stateOf(3))
	assert.Nil(t, l.Selected())
	assert.Contains(t, l.View(), queue.EmptyMessage)
}

func TestQueueListShowsErrorAndKeepsRows(t *testing.T) {
	l := NewQueueList(true, false)
	l.SetSize(100, 20)
	l.SetState(stateOf(1, item("a", "Alpha", "X", domain.StatusFailed)))

	failed := l.View()
	assert.Contains(t, failed, "Alpha")
	assert.Contains(t, failed, "[retry]")

	state := stateOf(2, item("a", "Alpha", "X", domain.StatusFailed))
	state.Err = &domain.TransportError{Op: "fetch queue", Err: errors.New("connection refused")}
	l.SetState(state)

	out := l.View()
	assert.Contains(t, out, "Alpha")
	assert.Contains(t, out, "network error")
	assert.Error(t, l.Err())
}

func TestQueueListFilter(t *testing.T) {
	l := NewQueueList(true, false)
	l.SetSize(80, 20)
	l.SetState(stateOf(1,
		item("a", "Around the World", "Daft Punk", domain.StatusDownloaded),
		item("b", "Paranoid Android", "Radiohead", domain.StatusWaiting),
		item("c", "One More Time", "Daft Punk", domain.StatusFailed),
	))

	l.ToggleFilter()
	require.True(t, l.IsFilterTyping())
	for _, r := range "radio" {
		l.Update(runes(string(r)))
	}

	assert.Equal(t, 1, l.ItemCount())
	assert.Equal(t, 3, l.TotalCount())
	assert.Equal(t, "b", l.Selected().LocalID)

	// Refresh keeps the filter applied
	l.SetState(stateOf(2,
		item("b", "Paranoid Android", "Radiohead", domain.StatusDownloading),
		item("d", "Idioteque", "Radiohead", domain.StatusWaiting),
	))
	assert.Equal(t, 2, l.ItemCount())
	assert.Equal(t, "b", l.Selected().LocalID)

	l.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, l.IsFiltering())
	assert.Equal(t, 2, l.ItemCount())
	assert.Equal(t, "b", l.Selected().LocalID)
}

func TestQueueListTitleCountsActiveRows(t *testing.T) {
	l := NewQueueList(true, false)
	l.SetSize(80, 20)
	l.SetState(stateOf(1,
		item("a", "Alpha", "X", domain.StatusWaiting),
		item("b", "Beta", "Y", domain.StatusDownloading),
		item("c", "Gamma", "Z", domain.StatusDownloaded),
	))

	assert.Equal(t, 2, l.ActiveCount())
	assert.Contains(t, l.View(), "Download Queue (3, 2 active)")

	l.SetState(stateOf(2, item("c", "Gamma", "Z", domain.StatusDownloaded)))
	assert.Equal(t, 0, l.ActiveCount())
	assert.Contains(t, l.View(), "Download Queue (1)")
}

func TestQueueListLoadingBeforeFirstFetch(t *testing.T) {
	l := NewQueueList(true, false)
	l.SetSize(80, 10)
	assert.Contains(t, l.View(), "Loading queue...")
}

func TestSearchModalFlow(t *testing.T) {
	s := NewSearchModal()
	s.SetSize(100, 40)
	s.Show()

	var action SearchAction
	s, _, action = s.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, SearchActionNone, action.Kind, "blank query does nothing")

	for _, r := range "daft" {
		s, _, _ = s.Update(runes(string(r)))
	}
	s, _, action = s.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, SearchActionSearch, action.Kind)
	assert.Equal(t, "daft", action.Query)

	// Results for an older query are ignored
	s.SetResults("daf", []domain.SearchResult{{Name: "stale"}}, nil)
	assert.Nil(t, s.Selected())

	s.SetResults("daft", []domain.SearchResult{
		{Name: "One More Time", URL: "https://svc/1"},
		{Name: "Discovery", URL: "https://svc/2"},
	}, nil)

	s, _, _ = s.Update(runes("j"))
	require.NotNil(t, s.Selected())
	assert.Equal(t, "Discovery", s.Selected().Name)

	s, _, action = s.Update(runes("y"))
	assert.Equal(t, SearchActionCopy, action.Kind)
	assert.Equal(t, "https://svc/2", action.Result.URL)

	s, _, action = s.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, SearchActionEnqueue, action.Kind)
	assert.Equal(t, "Discovery", action.Result.Name)

	// esc goes back to the input, a second esc closes
	s, _, _ = s.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.True(t, s.IsVisible())
	s, _, _ = s.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, s.IsVisible())
}

func TestSearchModalNoResults(t *testing.T) {
	s := NewSearchModal()
	s.SetSize(100, 40)
	s.Show()
	for _, r := range "zzz" {
		s, _, _ = s.Update(runes(string(r)))
	}
	s.SetResults("zzz", nil, nil)

	assert.Contains(t, s.View(), NoResultsMessage)
}

func TestSearchModalCompletesSuggestion(t *testing.T) {
	s := NewSearchModal()
	s.Show()
	s.SetSuggestions([]string{"daft punk"})

	s, _, _ = s.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, "daft punk", s.Query())
}

func TestLoginModalRequiresBothFields(t *testing.T) {
	m := NewLoginModal()
	m.Show("Log in")

	var submitted bool
	m, _, submitted = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, submitted)

	for _, r := range "admin" {
		m, _, _ = m.Update(runes(string(r)))
	}
	m, _, submitted = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, submitted, "password still empty")

	for _, r := range "secret" {
		m, _, _ = m.Update(runes(string(r)))
	}
	m, _, submitted = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, submitted)

	user, pass := m.Credentials()
	assert.Equal(t, "admin", user)
	assert.Equal(t, "secret", pass)
	assert.NotContains(t, m.View(), "secret")

	m.SetResult("Invalid credentials")
	assert.Contains(t, m.View(), "Invalid credentials")
	_, pass = m.Credentials()
	assert.Empty(t, pass)
}
