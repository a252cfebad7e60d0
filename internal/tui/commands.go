package tui

import (
	"context"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmcdole/haul/internal/domain"
	"github.com/mmcdole/haul/internal/queue"
	"github.com/mmcdole/haul/internal/service"
)

// requestTimeout bounds user-triggered calls
const requestTimeout = 30 * time.Second

// Command factories for async operations

// WaitForQueueUpdateCmd blocks until the synchronizer publishes a new state
func WaitForQueueUpdateCmd(updates <-chan queue.ViewState) tea.Cmd {
	return func() tea.Msg {
		state, ok := <-updates
		if !ok {
			return nil
		}
		return QueueUpdatedMsg{State: state}
	}
}

// DispatchCmd runs a row action
func DispatchCmd(sync *queue.Sync, kind domain.ActionKind, row queue.Row) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		err := sync.Dispatch(ctx, kind, row.LocalID)
		return ActionDoneMsg{Kind: kind, Name: row.Name, Err: err}
	}
}

// RefreshCmd fetches the queue now instead of waiting for the next poll
func RefreshCmd(sync *queue.Sync) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		return RefreshDoneMsg{Err: sync.Refresh(ctx)}
	}
}

// ClearFinishedCmd removes finished items from the server queue
func ClearFinishedCmd(sync *queue.Sync) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		return ClearedMsg{Err: sync.ClearFinished(ctx)}
	}
}

// SearchCmd queries the server catalogue
func SearchCmd(svc *service.SearchService, query string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		results, err := svc.Search(ctx, query)
		return SearchResultsMsg{Query: query, Results: results, Err: err}
	}
}

// EnqueueCmd sends a search result to the download queue
func EnqueueCmd(svc *service.SearchService, result domain.SearchResult) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		return EnqueuedMsg{Result: result, Err: svc.Enqueue(ctx, result)}
	}
}

// CopyURLCmd copies text to the system clipboard
func CopyURLCmd(text string) tea.Cmd {
	return func() tea.Msg {
		return CopiedMsg{Text: text, Err: clipboard.WriteAll(text)}
	}
}

// LoginCmd authenticates against the server
func LoginCmd(svc *service.SessionService, username, password string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		result, err := svc.Login(ctx, username, password)
		return LoginResultMsg{Result: result, Err: err}
	}
}

// TickCmd returns a command that sends a tick after a delay
func TickCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(t time.Time) tea.Msg {
		return TickMsg{}
	})
}

// ClearStatusCmd returns a command that clears status id after a delay
func ClearStatusCmd(id int, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(t time.Time) tea.Msg {
		return ClearStatusMsg{ID: id}
	})
}
