package domain

import "strings"

// UnknownLabel is shown in place of missing display metadata
const UnknownLabel = "Unknown"

// Status is the server-reported state of a queue item.
// The set is open: values not listed here are displayed as-is.
type Status string

const (
	StatusWaiting       Status = "Waiting"
	StatusDownloading   Status = "Downloading"
	StatusDownloaded    Status = "Downloaded"
	StatusAlreadyExists Status = "Already Exists"
	StatusFailed        Status = "Failed"

	// Emitted by the server after a cancel or a file delete
	StatusCancelled Status = "Cancelled"
	StatusDeleted   Status = "Deleted"
)

// String returns the display form of the status
func (s Status) String() string {
	if s == "" {
		return "Unknown Status"
	}
	return string(s)
}

// IsActive reports whether the server is still working on the item
func (s Status) IsActive() bool {
	return s == StatusWaiting || s == StatusDownloading
}

// IsComplete reports whether a finished file exists for the item
func (s Status) IsComplete() bool {
	return s == StatusDownloaded || s == StatusAlreadyExists
}

// ActionKind identifies a user action on a queue row
type ActionKind string

const (
	ActionDownload ActionKind = "download"
	ActionOpen     ActionKind = "open"
	ActionRetry    ActionKind = "retry"
	ActionCancel   ActionKind = "cancel"

	// Removes the finished file on the server; never a row's primary action
	ActionDelete ActionKind = "delete"
)

// QueueItem is one row of the server's download queue
type QueueItem struct {
	LocalID      string // Server-assigned identifier, stable across polls
	URL          string // Source URL of the media (secondary dedup key)
	Name         string // Track/episode title
	By           string // Artist/creator
	ThumbnailURL string // Cover art URL
	ServiceID    string // Short service identifier, e.g. "spotify"
	Type         string // Item type, e.g. "track" or "episode"
	Status       Status
}

// DisplayName returns the name or the unknown placeholder
func (q QueueItem) DisplayName() string {
	return orUnknown(q.Name)
}

// DisplayBy returns the creator or the unknown placeholder
func (q QueueItem) DisplayBy() string {
	return orUnknown(q.By)
}

// Snapshot is the full queue as returned by one poll, in server order
type Snapshot []QueueItem

// SearchResult is one entry returned by the server's catalogue search
type SearchResult struct {
	ID           string
	Name         string
	By           string
	Type         string // "track", "album", "playlist", ...
	ServiceID    string
	URL          string // Passed back to the server to enqueue the item
	ThumbnailURL string
}

// DisplayName returns the name or the unknown placeholder
func (r SearchResult) DisplayName() string {
	return orUnknown(r.Name)
}

// DisplayBy returns the creator or the unknown placeholder
func (r SearchResult) DisplayBy() string {
	return orUnknown(r.By)
}

// ServiceLabel formats a service identifier for display ("apple_music" -> "APPLE MUSIC")
func ServiceLabel(serviceID string) string {
	return strings.ToUpper(strings.ReplaceAll(serviceID, "_", " "))
}

// LoginResult is the server's answer to a login attempt
type LoginResult struct {
	Success bool
	Message string
	Next    string // Path the web UI would redirect to
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return UnknownLabel
	}
	return s
}
