package domain

import (
	"context"
)

// QueueRepository reads the download queue
type QueueRepository interface {
	// FetchQueue returns the current queue snapshot in server order
	FetchQueue(ctx context.Context) (Snapshot, error)
}

// ActionRepository triggers server-side work on queue items
type ActionRepository interface {
	// Download enqueues or starts the item identified by a local ID or a media URL
	Download(ctx context.Context, identifier string) error

	// Retry re-triggers a failed item
	Retry(ctx context.Context, localID string) error

	// Cancel stops a waiting or in-progress item
	Cancel(ctx context.Context, localID string) error

	// Delete removes the finished file of a downloaded item
	Delete(ctx context.Context, localID string) error

	// ClearFinished purges completed, cancelled and deleted items
	ClearFinished(ctx context.Context) error

	// DownloadURL returns the URL serving the finished file for an item
	DownloadURL(localID string) string
}

// SearchRepository queries the server's catalogue
type SearchRepository interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// AuthRepository handles the server's cookie session
type AuthRepository interface {
	Login(ctx context.Context, username, password string) (*LoginResult, error)
}
