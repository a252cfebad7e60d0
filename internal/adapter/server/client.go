package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmcdole/haul/internal/domain"
)

const (
	defaultTimeout  = 30 * time.Second
	requestIDHeader = "X-Request-ID"

	queuePath  = "/api/download_queue"
	searchPath = "/search_results"
	loginPath  = "/login"
	clearPath  = "/clear"
)

// Client talks to the download server's HTTP API.
// Requests are never retried; callers decide what a failure means.
type Client struct {
	baseURL    string
	base       *url.URL
	httpClient *http.Client
	jar        *sessionJar
	logger     *slog.Logger
}

// NewClient creates a client for the server at baseURL
func NewClient(baseURL string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	baseURL = strings.TrimRight(baseURL, "/")
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid server URL %q: scheme must be http or https", baseURL)
	}

	jar, err := newSessionJar()
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL: baseURL,
		base:    base,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
			Jar:     jar,
		},
		jar:    jar,
		logger: logger,
	}, nil
}

// BaseURL returns the normalized server URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Cookies returns the session cookies currently held for the server,
// with the attributes the server set (absolute expiry, path, domain)
func (c *Client) Cookies() []*http.Cookie {
	return c.jar.Session(c.base)
}

// SetCookies loads previously saved session cookies
func (c *Client) SetCookies(cookies []*http.Cookie) {
	c.jar.SetCookies(c.base, cookies)
}

// ClearCookies drops the session
func (c *Client) ClearCookies() {
	c.jar.Reset()
}

// sessionJar is a cookie jar that can be emptied while requests are in flight.
// It also remembers each cookie as the server sent it; cookiejar only hands
// back name and value.
type sessionJar struct {
	mu   sync.RWMutex
	jar  *cookiejar.Jar
	seen map[string]*http.Cookie // by name
	now  func() time.Time
}

func newSessionJar() (*sessionJar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return &sessionJar{jar: jar, seen: make(map[string]*http.Cookie), now: time.Now}, nil
}

func (j *sessionJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.jar.SetCookies(u, cookies)

	now := j.now()
	for _, c := range cookies {
		if c == nil || c.Name == "" {
			continue
		}
		kept := *c
		switch {
		case c.MaxAge < 0:
			delete(j.seen, c.Name)
			continue
		case c.MaxAge > 0:
			// Max-Age wins over Expires; pin it to an absolute time
			kept.Expires = now.Add(time.Duration(c.MaxAge) * time.Second)
			kept.MaxAge = 0
		}
		if !kept.Expires.IsZero() && !kept.Expires.After(now) {
			delete(j.seen, c.Name)
			continue
		}
		j.seen[c.Name] = &kept
	}
}

func (j *sessionJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.jar.Cookies(u)
}

// Session returns the remembered cookies still live in the jar for u
func (j *sessionJar) Session(u *url.URL) []*http.Cookie {
	j.mu.RLock()
	defer j.mu.RUnlock()

	live := j.jar.Cookies(u)
	out := make([]*http.Cookie, 0, len(live))
	for _, c := range live {
		full, ok := j.seen[c.Name]
		if !ok || full.Value != c.Value {
			out = append(out, c)
			continue
		}
		kept := *full
		out = append(out, &kept)
	}
	return out
}

// Reset replaces the jar with an empty one
func (j *sessionJar) Reset() {
	jar, _ := cookiejar.New(nil) // only fails for a non-nil PublicSuffixList
	j.mu.Lock()
	j.jar = jar
	j.seen = make(map[string]*http.Cookie)
	j.mu.Unlock()
}

// doRequest performs a request and returns the body of a 2xx response.
// Connection failures become TransportError; 401 and other non-2xx statuses
// become ApplicationError.
func (c *Client) doRequest(ctx context.Context, op, method, path string, query url.Values, body any) ([]byte, error) {
	reqURL := c.baseURL + path
	if query != nil {
		reqURL = fmt.Sprintf("%s?%s", reqURL, query.Encode())
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("server request", "op", op, "method", method, "url", reqURL, "requestID", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(ctxErr, context.Canceled) {
			return nil, ctxErr
		}
		c.logger.Error("server request failed", "op", op, "requestID", requestID, "error", err)
		return nil, &domain.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.TransportError{Op: op, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.logger.Warn("server requires login", "op", op, "requestID", requestID)
		return nil, &domain.ApplicationError{Op: op, StatusCode: resp.StatusCode}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("server request error",
			"op", op,
			"status", resp.StatusCode,
			"body", truncate(string(respBody), 200),
			"requestID", requestID,
		)
		return nil, &domain.ApplicationError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(respBody),
		}
	}

	return respBody, nil
}

// decodeEnvelope validates the {success, data} wrapper
func decodeEnvelope(op string, body []byte) (*envelope, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &domain.ProtocolError{Op: op, Err: err}
	}
	if env.Success == nil {
		return nil, &domain.ProtocolError{Op: op, Err: errors.New("missing success field")}
	}
	if !*env.Success {
		return &env, &domain.ApplicationError{Op: op, Message: env.Message}
	}
	return &env, nil
}

// checkAck accepts an empty body or a {success: true} envelope
func checkAck(op string, body []byte) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	_, err := decodeEnvelope(op, body)
	return err
}

// FetchQueue returns the current download queue in server order
func (c *Client) FetchQueue(ctx context.Context) (domain.Snapshot, error) {
	const op = "fetch queue"

	body, err := c.doRequest(ctx, op, http.MethodGet, queuePath, nil, nil)
	if err != nil {
		return nil, err
	}

	env, err := decodeEnvelope(op, body)
	if err != nil {
		return nil, err
	}

	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, &domain.ProtocolError{Op: op, Err: errors.New("missing data field")}
	}

	snapshot, err := decodeQueue(data)
	if err != nil {
		return nil, &domain.ProtocolError{Op: op, Err: err}
	}
	return snapshot, nil
}

// Download enqueues an item; identifier is a local ID or a media URL
func (c *Client) Download(ctx context.Context, identifier string) error {
	return c.postAction(ctx, "download", "/download/"+url.PathEscape(identifier))
}

// Retry re-triggers a failed item
func (c *Client) Retry(ctx context.Context, localID string) error {
	return c.postAction(ctx, "retry", "/retry/"+url.PathEscape(localID))
}

// Cancel stops a waiting or downloading item
func (c *Client) Cancel(ctx context.Context, localID string) error {
	return c.postAction(ctx, "cancel", "/cancel/"+url.PathEscape(localID))
}

// Delete removes the finished file; the server marks the row Deleted
func (c *Client) Delete(ctx context.Context, localID string) error {
	const op = "delete"

	body, err := c.doRequest(ctx, op, http.MethodDelete, "/delete/"+url.PathEscape(localID), nil, nil)
	if err != nil {
		return err
	}
	return checkAck(op, body)
}

// ClearFinished purges finished, cancelled and deleted items
func (c *Client) ClearFinished(ctx context.Context) error {
	return c.postAction(ctx, "clear finished", clearPath)
}

func (c *Client) postAction(ctx context.Context, op, path string) error {
	body, err := c.doRequest(ctx, op, http.MethodPost, path, nil, nil)
	if err != nil {
		return err
	}
	return checkAck(op, body)
}

// DownloadURL returns the URL that serves the finished file
func (c *Client) DownloadURL(localID string) string {
	return c.baseURL + "/download/" + url.PathEscape(localID)
}

// Search queries the server's catalogue; results keep the server's order
func (c *Client) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	const op = "search"

	q := url.Values{}
	q.Set("q", query)

	body, err := c.doRequest(ctx, op, http.MethodGet, searchPath, q, nil)
	if err != nil {
		return nil, err
	}

	var dtos []SearchResultDTO
	if err := json.Unmarshal(body, &dtos); err != nil {
		return nil, &domain.ProtocolError{Op: op, Err: err}
	}
	return MapSearchResults(dtos), nil
}

// Login authenticates and stores the session cookie in the jar
func (c *Client) Login(ctx context.Context, username, password string) (*domain.LoginResult, error) {
	const op = "login"

	body, err := c.doRequest(ctx, op, http.MethodPost, loginPath, nil, loginRequest{
		Username: username,
		Password: password,
	})
	if err != nil {
		return nil, err
	}

	env, err := decodeEnvelope(op, body)
	if env == nil {
		return nil, err
	}

	result := &domain.LoginResult{
		Success: *env.Success,
		Message: env.Message,
		Next:    env.Next,
	}
	if err != nil {
		c.logger.Warn("login rejected", "message", env.Message)
		return result, err
	}

	c.logger.Info("logged in", "username", username)
	return result, nil
}

// errorMessage pulls a "message" or "error" field out of an error body
func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
