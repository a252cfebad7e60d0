package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/mmcdole/haul/internal/domain"
)

// envelope is the wrapper used by the JSON API endpoints
type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message,omitempty"`
	Next    string          `json:"next,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// looseString accepts both JSON strings and numbers
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*s = looseString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return fmt.Errorf("expected string or number, got %s", string(b))
	}
	*s = looseString(num.String())
	return nil
}

// QueueItemDTO is one entry of the download queue object
type QueueItemDTO struct {
	LocalID   looseString `json:"local_id"`
	Service   string      `json:"item_service"`
	Type      string      `json:"item_type"`
	ID        looseString `json:"item_id"`
	Status    string      `json:"item_status"`
	Name      string      `json:"item_name"`
	By        string      `json:"item_by"`
	Thumbnail string      `json:"item_thumbnail"`
	URL       string      `json:"item_url"`
}

// SearchResultDTO is one entry of the search results array
type SearchResultDTO struct {
	Name         string      `json:"item_name"`
	By           string      `json:"item_by"`
	Type         string      `json:"item_type"`
	Service      string      `json:"item_service"`
	URL          string      `json:"item_url"`
	ID           looseString `json:"item_id"`
	ThumbnailURL string      `json:"item_thumbnail_url"`
}

// loginRequest is the body of POST /login
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

var errDataNotObject = errors.New("data is not an object")

// decodeQueue decodes the queue mapping while keeping the server's key order.
// The map key stands in for a missing local_id.
func decodeQueue(data json.RawMessage) (domain.Snapshot, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errDataNotObject
	}

	snapshot := domain.Snapshot{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected key %v", keyTok)
		}

		var dto QueueItemDTO
		if err := dec.Decode(&dto); err != nil {
			return nil, fmt.Errorf("item %s: %w", key, err)
		}
		snapshot = append(snapshot, MapQueueItem(key, dto))
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// MapQueueItem converts a queue DTO to the domain type
func MapQueueItem(key string, dto QueueItemDTO) domain.QueueItem {
	localID := string(dto.LocalID)
	if localID == "" {
		localID = key
	}
	return domain.QueueItem{
		LocalID:      localID,
		URL:          dto.URL,
		Name:         dto.Name,
		By:           dto.By,
		ThumbnailURL: dto.Thumbnail,
		ServiceID:    dto.Service,
		Type:         dto.Type,
		Status:       domain.Status(dto.Status),
	}
}

// MapSearchResults converts search DTOs to domain types, keeping order
func MapSearchResults(dtos []SearchResultDTO) []domain.SearchResult {
	results := make([]domain.SearchResult, len(dtos))
	for i, d := range dtos {
		id := string(d.ID)
		if id == "" {
			id = strconv.Itoa(i)
		}
		results[i] = domain.SearchResult{
			ID:           id,
			Name:         d.Name,
			By:           d.By,
			Type:         d.Type,
			ServiceID:    d.Service,
			URL:          d.URL,
			ThumbnailURL: d.ThumbnailURL,
		}
	}
	return results
}
