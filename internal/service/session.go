package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mmcdole/haul/internal/domain"
)

// CookieJar exposes the client's session cookies
type CookieJar interface {
	Cookies() []*http.Cookie
	SetCookies(cookies []*http.Cookie)
	ClearCookies()
}

// SessionStore persists session cookies between runs
type SessionStore interface {
	SaveCookies(cookies []*http.Cookie) error
	LoadCookies() ([]*http.Cookie, bool)
	ClearCookies() error
}

// SessionService manages the server login session
type SessionService struct {
	auth   domain.AuthRepository
	jar    CookieJar
	store  SessionStore
	logger *slog.Logger
}

// NewSessionService creates a new SessionService
func NewSessionService(auth domain.AuthRepository, jar CookieJar, store SessionStore, logger *slog.Logger) *SessionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionService{auth: auth, jar: jar, store: store, logger: logger}
}

// Login authenticates and persists the resulting session
func (s *SessionService) Login(ctx context.Context, username, password string) (*domain.LoginResult, error) {
	result, err := s.auth.Login(ctx, username, password)
	if err != nil {
		return result, fmt.Errorf("login: %w", err)
	}

	if err := s.store.SaveCookies(s.jar.Cookies()); err != nil {
		// The in-memory session still works for this run
		s.logger.Warn("failed to persist session", "error", err)
	}
	return result, nil
}

// Restore loads a persisted session into the client.
// It reports whether any cookies were restored.
func (s *SessionService) Restore() bool {
	cookies, ok := s.store.LoadCookies()
	if !ok {
		return false
	}
	s.jar.SetCookies(cookies)
	s.logger.Debug("session restored", "cookies", len(cookies))
	return true
}

// Logout forgets the persisted session and clears the client's cookies
func (s *SessionService) Logout() error {
	s.jar.ClearCookies()
	if err := s.store.ClearCookies(); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	s.logger.Info("logged out")
	return nil
}
