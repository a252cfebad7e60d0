package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/haul/internal/adapter"
	"github.com/mmcdole/haul/internal/domain"
	"github.com/mmcdole/haul/internal/queue"
)

func newQueueServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, url string) *adapter.Config {
	t.Helper()
	cfg := adapter.DefaultConfig()
	cfg.Server.URL = url
	cfg.Cache.Dir = t.TempDir()
	return cfg
}

func TestPrintQueueRendersTable(t *testing.T) {
	srv := newQueueServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": true, "data": {
			"1": {"local_id": "1", "item_status": "Failed", "item_name": "One More Time", "item_by": "Daft Punk", "item_service": "spotify"},
			"2": {"local_id": "2", "item_status": "Downloaded", "item_name": "Idioteque"}
		}}`))
	})

	a, err := newApp(testConfig(t, srv.URL), adapter.NullLogger())
	require.NoError(t, err)
	defer a.Close()

	var out bytes.Buffer
	require.NoError(t, printQueue(context.Background(), a.sync, &out))

	text := out.String()
	assert.Contains(t, text, "STATUS")
	assert.Contains(t, text, "One More Time")
	assert.Contains(t, text, "Daft Punk")
	assert.Contains(t, text, "retry")
	assert.Contains(t, text, "Unknown")
	assert.Contains(t, text, "open")
}

func TestPrintQueueEmpty(t *testing.T) {
	srv := newQueueServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": true, "data": {}}`))
	})

	a, err := newApp(testConfig(t, srv.URL), adapter.NullLogger())
	require.NoError(t, err)
	defer a.Close()

	var out bytes.Buffer
	require.NoError(t, printQueue(context.Background(), a.sync, &out))
	assert.Contains(t, out.String(), queue.EmptyMessage)
}

func TestPrintQueueFailsOnFetchError(t *testing.T) {
	srv := newQueueServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	a, err := newApp(testConfig(t, srv.URL), adapter.NullLogger())
	require.NoError(t, err)
	defer a.Close()

	err = printQueue(context.Background(), a.sync, &bytes.Buffer{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAuthRequired)
}

func TestCheckServerAcceptsAuthChallenge(t *testing.T) {
	srv := newQueueServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	assert.NoError(t, checkServer(context.Background(), srv.URL, adapter.NullLogger()))

	broken := newQueueServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>not a queue</html>`))
	})
	assert.Error(t, checkServer(context.Background(), broken.URL, adapter.NullLogger()))
}

func TestPromptLoginPersistsSession(t *testing.T) {
	srv := newQueueServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
		w.Write([]byte(`{"success": true}`))
	})
	cfg := testConfig(t, srv.URL)

	input := filepath.Join(t.TempDir(), "stdin")
	require.NoError(t, os.WriteFile(input, []byte("admin\nsecret\n"), 0600))
	in, err := os.Open(input)
	require.NoError(t, err)
	defer in.Close()

	a, err := newApp(cfg, adapter.NullLogger())
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, promptLogin(context.Background(), a.session, in, &out))
	assert.Contains(t, out.String(), "Logged in")
	require.NoError(t, a.Close())

	// A fresh app restores the saved cookie
	b, err := newApp(cfg, adapter.NullLogger())
	require.NoError(t, err)
	defer b.Close()
	assert.NotEmpty(t, b.client.Cookies())

	require.NoError(t, logout(cfg, b))
	assert.Empty(t, b.client.Cookies())
	assert.NoDirExists(t, cfg.Cache.Dir)

	// Nothing is restored after logging out
	c, err := newApp(cfg, adapter.NullLogger())
	require.NoError(t, err)
	defer c.Close()
	assert.Empty(t, c.client.Cookies())
}

func TestExpiredSessionIsNotRestored(t *testing.T) {
	srv := newQueueServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/", MaxAge: 1})
		w.Write([]byte(`{"success": true}`))
	})
	cfg := testConfig(t, srv.URL)

	a, err := newApp(cfg, adapter.NullLogger())
	require.NoError(t, err)
	_, err = a.session.Login(context.Background(), "admin", "secret")
	require.NoError(t, err)
	require.Len(t, a.client.Cookies(), 1)
	assert.False(t, a.client.Cookies()[0].Expires.IsZero(), "expiry is saved with the cookie")
	require.NoError(t, a.Close())

	time.Sleep(1500 * time.Millisecond)

	b, err := newApp(cfg, adapter.NullLogger())
	require.NoError(t, err)
	defer b.Close()
	assert.False(t, b.session.Restore())
	assert.Empty(t, b.client.Cookies())
}

func TestPromptLoginRequiresCredentials(t *testing.T) {
	srv := newQueueServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	input := filepath.Join(t.TempDir(), "stdin")
	require.NoError(t, os.WriteFile(input, []byte("admin\n"), 0600))
	in, err := os.Open(input)
	require.NoError(t, err)
	defer in.Close()

	a, err := newApp(testConfig(t, srv.URL), adapter.NullLogger())
	require.NoError(t, err)
	defer a.Close()

	err = promptLogin(context.Background(), a.session, in, &bytes.Buffer{})
	assert.ErrorContains(t, err, "required")
}
