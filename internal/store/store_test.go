package store

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCookiesPersistAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	const server = "http://127.0.0.1:5000"

	s, err := NewSessionStore(dir, server)
	require.NoError(t, err)

	require.NoError(t, s.SaveCookies([]*http.Cookie{
		{Name: "session", Value: "abc", Path: "/"},
		{Name: "old", Value: "x", Expires: time.Now().Add(-time.Hour)},
		nil,
	}))
	require.NoError(t, s.Close())

	s, err = NewSessionStore(dir, server+"/")
	require.NoError(t, err)
	defer s.Close()

	cookies, ok := s.LoadCookies()
	require.True(t, ok)
	require.Len(t, cookies, 1, "expired cookies are dropped")
	assert.Equal(t, "session", cookies[0].Name)
	assert.Equal(t, "abc", cookies[0].Value)

	require.NoError(t, s.ClearCookies())
	_, ok = s.LoadCookies()
	assert.False(t, ok)
}

func TestStoresAreScopedPerServer(t *testing.T) {
	dir := t.TempDir()

	a, err := NewSessionStore(dir, "http://a:5000")
	require.NoError(t, err)
	defer a.Close()
	b, err := NewSessionStore(dir, "http://b:5000")
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, a.AddRecentSearch("daft punk"))
	assert.Empty(t, b.RecentSearches())
	assert.Equal(t, []string{"daft punk"}, a.RecentSearches())
}

func TestRecentSearchesNewestFirstDeduped(t *testing.T) {
	s, err := NewSessionStore("", "")
	require.NoError(t, err)

	for _, q := range []string{"one", "two", " ", "One", "three"} {
		require.NoError(t, s.AddRecentSearch(q))
	}

	assert.Equal(t, []string{"three", "One", "two"}, s.RecentSearches())
}

func TestRecentSearchesCapped(t *testing.T) {
	s, err := NewSessionStore(t.TempDir(), "http://x")
	require.NoError(t, err)
	defer s.Close()

	for i := 0; i < MaxRecentSearches+5; i++ {
		require.NoError(t, s.AddRecentSearch(fmt.Sprintf("q%d", i)))
	}

	recent := s.RecentSearches()
	require.Len(t, recent, MaxRecentSearches)
	assert.Equal(t, fmt.Sprintf("q%d", MaxRecentSearches+4), recent[0])
}

func TestMemoryModeHasNoCookies(t *testing.T) {
	s, err := NewSessionStore("", "http://x")
	require.NoError(t, err)

	_, ok := s.LoadCookies()
	assert.False(t, ok)
	assert.NoError(t, s.Close())
}
