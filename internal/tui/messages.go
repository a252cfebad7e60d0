package tui

import (
	"github.com/mmcdole/haul/internal/domain"
	"github.com/mmcdole/haul/internal/queue"
)

// Message types for the TUI

// ErrMsg represents an error
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// QueueUpdatedMsg carries a new view state from the queue synchronizer
type QueueUpdatedMsg struct {
	State queue.ViewState
}

// ActionDoneMsg reports the outcome of a row action
type ActionDoneMsg struct {
	Kind domain.ActionKind
	Name string
	Err  error
}

// RefreshDoneMsg reports a manual refresh
type RefreshDoneMsg struct {
	Err error
}

// ClearedMsg reports a clear-finished request
type ClearedMsg struct {
	Err error
}

// SearchResultsMsg signals that search results are ready
type SearchResultsMsg struct {
	Query   string
	Results []domain.SearchResult
	Err     error
}

// EnqueuedMsg reports a search result sent to the download queue
type EnqueuedMsg struct {
	Result domain.SearchResult
	Err    error
}

// CopiedMsg reports a clipboard copy
type CopiedMsg struct {
	Text string
	Err  error
}

// LoginResultMsg reports a login attempt
type LoginResultMsg struct {
	Result *domain.LoginResult
	Err    error
}

// TickMsg drives the "updated ... ago" footer
type TickMsg struct{}

// ClearStatusMsg clears the status bar message
type ClearStatusMsg struct {
	ID int
}
