package queue

import (
	"github.com/mmcdole/haul/internal/domain"
)

// EmptyMessage is rendered instead of rows when the queue has no items
const EmptyMessage = "The download queue is empty."

// Row is one rendered queue entry
type Row struct {
	LocalID      string
	URL          string
	Name         string // Defaulted to "Unknown"
	By           string // Defaulted to "Unknown"
	ThumbnailURL string
	ServiceID    string
	Type         string
	Status       domain.Status
	Actions      []domain.ActionKind // Never empty; Actions[0] is the primary action
}

// Primary returns the action bound to enter/click on the row
func (r Row) Primary() domain.ActionKind {
	return r.Actions[0]
}

// Allows reports whether kind is one of the row's actions.
// Delete sits outside the action table and is offered for any finished file.
func (r Row) Allows(kind domain.ActionKind) bool {
	if kind == domain.ActionDelete {
		return r.Status.IsComplete()
	}
	for _, a := range r.Actions {
		if a == kind {
			return true
		}
	}
	return false
}

// RenderPlan is the ordered set of rows produced from one snapshot
type RenderPlan struct {
	Rows []Row
}

// Empty reports whether the plan should render the empty-queue message
func (p RenderPlan) Empty() bool {
	return len(p.Rows) == 0
}

// Index returns the position of a row by local ID, or -1
func (p RenderPlan) Index(localID string) int {
	for i, r := range p.Rows {
		if r.LocalID == localID {
			return i
		}
	}
	return -1
}

// ActionsFor maps a status to the actions a row offers.
// Total over all statuses: unknown values fall back to download.
func ActionsFor(status domain.Status) []domain.ActionKind {
	switch status {
	case domain.StatusWaiting, domain.StatusDownloading:
		return []domain.ActionKind{domain.ActionCancel}
	case domain.StatusDownloaded, domain.StatusAlreadyExists:
		return []domain.ActionKind{domain.ActionOpen}
	case domain.StatusFailed:
		return []domain.ActionKind{domain.ActionRetry}
	default:
		return []domain.ActionKind{domain.ActionDownload}
	}
}

// Reconcile turns a snapshot into a render plan.
// Items repeating an earlier local ID or URL are dropped; the first occurrence wins.
func Reconcile(snapshot domain.Snapshot) RenderPlan {
	rows := make([]Row, 0, len(snapshot))
	seenIDs := make(map[string]struct{}, len(snapshot))
	seenURLs := make(map[string]struct{}, len(snapshot))

	for _, item := range snapshot {
		if _, dup := seenIDs[item.LocalID]; dup {
			continue
		}
		if item.URL != "" {
			if _, dup := seenURLs[item.URL]; dup {
				continue
			}
			seenURLs[item.URL] = struct{}{}
		}
		seenIDs[item.LocalID] = struct{}{}

		rows = append(rows, Row{
			LocalID:      item.LocalID,
			URL:          item.URL,
			Name:         item.DisplayName(),
			By:           item.DisplayBy(),
			ThumbnailURL: item.ThumbnailURL,
			ServiceID:    item.ServiceID,
			Type:         item.Type,
			Status:       item.Status,
			Actions:      ActionsFor(item.Status),
		})
	}

	return RenderPlan{Rows: rows}
}
