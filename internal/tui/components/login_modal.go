package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/haul/internal/tui/styles"
)

// LoginModal asks for the server's username and password
type LoginModal struct {
	username textinput.Model
	password textinput.Model
	focus    int // 0 = username, 1 = password
	visible  bool
	pending  bool
	message  string
}

// NewLoginModal creates a new login modal
func NewLoginModal() LoginModal {
	user := textinput.New()
	user.Placeholder = "username"
	user.CharLimit = 100
	user.Width = 30
	user.Prompt = "User  "
	user.PromptStyle = styles.DimStyle
	user.TextStyle = lipgloss.NewStyle().Foreground(styles.White)

	pass := textinput.New()
	pass.Placeholder = "password"
	pass.CharLimit = 200
	pass.Width = 30
	pass.Prompt = "Pass  "
	pass.PromptStyle = styles.DimStyle
	pass.EchoMode = textinput.EchoPassword
	pass.EchoCharacter = '•'

	return LoginModal{username: user, password: pass}
}

// Show displays the modal with an optional message, e.g. why login is needed
func (m *LoginModal) Show(message string) {
	m.visible = true
	m.pending = false
	m.message = message
	m.password.SetValue("")
	m.setFocus(0)
	if m.username.Value() != "" {
		m.setFocus(1)
	}
}

// Hide dismisses the modal
func (m *LoginModal) Hide() {
	m.visible = false
	m.username.Blur()
	m.password.Blur()
}

// IsVisible returns whether the modal is shown
func (m LoginModal) IsVisible() bool {
	return m.visible
}

// SetResult shows the outcome of a failed attempt
func (m *LoginModal) SetResult(message string) {
	m.pending = false
	m.message = message
	m.password.SetValue("")
	m.setFocus(1)
}

// Credentials returns the entered username and password
func (m LoginModal) Credentials() (string, string) {
	return strings.TrimSpace(m.username.Value()), m.password.Value()
}

func (m *LoginModal) setFocus(i int) {
	m.focus = i
	if i == 0 {
		m.username.Focus()
		m.password.Blur()
	} else {
		m.username.Blur()
		m.password.Focus()
	}
}

// Update handles input events, returns (modal, cmd, submitted)
func (m LoginModal) Update(msg tea.Msg) (LoginModal, tea.Cmd, bool) {
	if !m.visible || m.pending {
		return m, nil, false
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(keyMsg, LoginModalKeys.Escape):
			m.Hide()
			return m, nil, false
		case key.Matches(keyMsg, LoginModalKeys.Next):
			m.setFocus(1 - m.focus)
			return m, nil, false
		case key.Matches(keyMsg, LoginModalKeys.Prev):
			m.setFocus(1 - m.focus)
			return m, nil, false
		case key.Matches(keyMsg, LoginModalKeys.Submit):
			user, pass := m.Credentials()
			if user == "" {
				m.setFocus(0)
				return m, nil, false
			}
			if pass == "" {
				m.setFocus(1)
				return m, nil, false
			}
			m.pending = true
			m.message = "Logging in..."
			return m, nil, true
		}
	}

	var cmd tea.Cmd
	if m.focus == 0 {
		m.username, cmd = m.username.Update(msg)
	} else {
		m.password, cmd = m.password.Update(msg)
	}
	return m, cmd, false
}

// View renders the login modal
func (m LoginModal) View() string {
	if !m.visible {
		return ""
	}

	lines := []string{
		styles.ModalTitleStyle.Render("Log in to server"),
		m.username.View(),
		m.password.View(),
	}
	if m.message != "" {
		style := styles.ErrorStyle
		if m.pending {
			style = styles.DimStyle
		}
		lines = append(lines, "", style.Render(m.message))
	}
	lines = append(lines, "",
		styles.HelpKeyStyle.Render("enter")+" "+styles.HelpDescStyle.Render("log in")+"  "+
			styles.HelpKeyStyle.Render("tab")+" "+styles.HelpDescStyle.Render("next field")+"  "+
			styles.HelpKeyStyle.Render("esc")+" "+styles.HelpDescStyle.Render("cancel"))

	return styles.ModalStyle.Width(44).Render(strings.Join(lines, "\n"))
}
