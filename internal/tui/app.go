package tui

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmcdole/haul/internal/domain"
	"github.com/mmcdole/haul/internal/queue"
	"github.com/mmcdole/haul/internal/service"
	"github.com/mmcdole/haul/internal/tui/components"
)

// ApplicationState represents the current state of the application
type ApplicationState int

const (
	StateBrowsing ApplicationState = iota
	StateSearching
	StateAuthRequired
	StateHelp
)

// Layout
const (
	// Single footer line
	ChromeHeight = 1

	footerTick    = time.Second
	statusTimeout = 3 * time.Second
)

// Options holds display settings for the model
type Options struct {
	ServerURL   string
	ShowService bool
	ShowIDs     bool
}

// Model is the main Bubble Tea model for the application
type Model struct {
	// Application state
	State ApplicationState
	Ready bool

	// Services
	Sync       *queue.Sync
	SearchSvc  *service.SearchService
	SessionSvc *service.SessionService

	// UI Components
	Queue  *components.QueueList
	Search components.SearchModal
	Login  components.LoginModal
	Help   help.Model

	// Latest view state applied to the list
	view    queue.ViewState
	updates <-chan queue.ViewState

	// Dimensions
	Width  int
	Height int

	// UI state
	StatusMsg   string
	StatusIsErr bool
	statusID    int

	// Set when the user dismissed the login prompt; cleared by the next good fetch
	loginDismissed bool

	serverURL string
	now       func() time.Time
}

// NewModel creates a new application model
func NewModel(
	sync *queue.Sync,
	searchSvc *service.SearchService,
	sessionSvc *service.SessionService,
	updates <-chan queue.ViewState,
	opts Options,
) Model {
	m := Model{
		State:      StateBrowsing,
		Sync:       sync,
		SearchSvc:  searchSvc,
		SessionSvc: sessionSvc,
		Queue:      components.NewQueueList(opts.ShowService, opts.ShowIDs),
		Search:     components.NewSearchModal(),
		Login:      components.NewLoginModal(),
		Help:       help.New(),
		updates:    updates,
		serverURL:  opts.ServerURL,
		now:        time.Now,
	}

	// Show whatever the synchronizer already has
	m.applyState(sync.View())
	return m
}

// Init initializes the application
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		WaitForQueueUpdateCmd(m.updates),
		TickCmd(footerTick),
	)
}

// Update handles all messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Ready = true
		m.updateLayout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case QueueUpdatedMsg:
		m.applyState(msg.State)
		return m, WaitForQueueUpdateCmd(m.updates)

	case TickMsg:
		return m, TickCmd(footerTick)

	case ActionDoneMsg:
		if msg.Err != nil {
			return m.handleError(msg.Err, string(msg.Kind))
		}
		return m, m.setStatus(actionStatus(msg.Kind, msg.Name), false)

	case RefreshDoneMsg:
		if msg.Err != nil {
			return m.handleError(msg.Err, "refresh")
		}
		return m, m.setStatus("Queue refreshed", false)

	case ClearedMsg:
		if msg.Err != nil {
			return m.handleError(msg.Err, "clear finished")
		}
		return m, m.setStatus("Finished items cleared", false)

	case SearchResultsMsg:
		m.Search.SetResults(msg.Query, msg.Results, msg.Err)
		if msg.Err != nil && errors.Is(msg.Err, domain.ErrAuthRequired) {
			return m.handleError(msg.Err, "search")
		}
		return m, nil

	case EnqueuedMsg:
		if msg.Err != nil {
			return m.handleError(msg.Err, "download")
		}
		return m, tea.Batch(
			m.setStatus("Download queued: "+msg.Result.DisplayName(), false),
			RefreshCmd(m.Sync),
		)

	case CopiedMsg:
		if msg.Err != nil {
			return m, m.setStatus("Copy failed: "+msg.Err.Error(), true)
		}
		return m, m.setStatus("Copied "+msg.Text, false)

	case LoginResultMsg:
		if msg.Err != nil {
			reason := "Login failed"
			if msg.Result != nil && msg.Result.Message != "" {
				reason = msg.Result.Message
			} else if !errors.Is(msg.Err, domain.ErrRejected) {
				reason = fmt.Sprintf("Login failed: %v", msg.Err)
			}
			m.Login.SetResult(reason)
			return m, nil
		}
		m.Login.Hide()
		m.State = StateBrowsing
		m.loginDismissed = false
		return m, tea.Batch(m.setStatus("Logged in", false), RefreshCmd(m.Sync))

	case ClearStatusMsg:
		if msg.ID == m.statusID {
			m.StatusMsg = ""
			m.StatusIsErr = false
		}
		return m, nil

	case ErrMsg:
		return m, m.setStatus(msg.Error(), true)
	}

	// Cursor blink and other component messages
	if m.Search.IsVisible() {
		var cmd tea.Cmd
		m.Search, cmd, _ = m.Search.Update(msg)
		return m, cmd
	}
	if m.Login.IsVisible() {
		var cmd tea.Cmd
		m.Login, cmd, _ = m.Login.Update(msg)
		return m, cmd
	}
	return m, m.Queue.Update(msg)
}

// applyState shows state if it is newer than what is on screen
func (m *Model) applyState(state queue.ViewState) {
	if state.Seq < m.view.Seq {
		return
	}
	m.view = state
	m.Queue.SetState(state)

	if state.Err == nil {
		if state.Loaded {
			m.loginDismissed = false
		}
		return
	}
	if errors.Is(state.Err, domain.ErrAuthRequired) {
		m.promptLogin("Log in to see the download queue.")
	}
}

// handleError reports err on the status line and prompts for login on 401
func (m Model) handleError(err error, context string) (tea.Model, tea.Cmd) {
	if errors.Is(err, domain.ErrAuthRequired) {
		m.loginDismissed = false
		m.promptLogin("Session expired. Log in to continue.")
		return m, nil
	}
	return m, m.setStatus(ErrMsg{Err: err, Context: context}.Error(), true)
}

// promptLogin opens the login modal unless the user dismissed it
func (m *Model) promptLogin(message string) {
	if m.loginDismissed || m.Login.IsVisible() {
		return
	}
	m.Search.Hide()
	m.Login.Show(message)
	m.State = StateAuthRequired
}

// setStatus shows a status message that clears itself
func (m *Model) setStatus(text string, isErr bool) tea.Cmd {
	m.statusID++
	m.StatusMsg = text
	m.StatusIsErr = isErr
	return ClearStatusCmd(m.statusID, statusTimeout)
}

func (m *Model) updateLayout() {
	m.Queue.SetSize(m.Width, m.Height-ChromeHeight)
	m.Search.SetSize(m.Width, m.Height)
	m.Help.Width = m.Width
}

func actionStatus(kind domain.ActionKind, name string) string {
	switch kind {
	case domain.ActionDownload:
		return "Download started: " + name
	case domain.ActionRetry:
		return "Retrying: " + name
	case domain.ActionCancel:
		return "Cancelled: " + name
	case domain.ActionOpen:
		return "Opened: " + name
	case domain.ActionDelete:
		return "Deleted file: " + name
	default:
		return string(kind) + ": " + name
	}
}
