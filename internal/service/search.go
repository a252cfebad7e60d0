package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/mmcdole/haul/internal/domain"
)

// maxSuggestions bounds the suggestion list under the search prompt
const maxSuggestions = 5

// SearchHistory records submitted queries
type SearchHistory interface {
	RecentSearches() []string
	AddRecentSearch(query string) error
}

// Enqueuer starts a server download for a media URL
type Enqueuer interface {
	Download(ctx context.Context, identifier string) error
}

// SearchService runs catalogue searches and enqueues results
type SearchService struct {
	repo     domain.SearchRepository
	enqueuer Enqueuer
	history  SearchHistory
	logger   *slog.Logger
}

// NewSearchService creates a new SearchService
func NewSearchService(repo domain.SearchRepository, enqueuer Enqueuer, history SearchHistory, logger *slog.Logger) *SearchService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchService{
		repo:     repo,
		enqueuer: enqueuer,
		history:  history,
		logger:   logger,
	}
}

// Search queries the server. A blank query returns nothing without a request.
func (s *SearchService) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	if s.history != nil {
		if err := s.history.AddRecentSearch(query); err != nil {
			s.logger.Warn("failed to record search", "error", err)
		}
	}

	results, err := s.repo.Search(ctx, query)
	if err != nil {
		s.logger.Error("search failed", "query", query, "error", err)
		return nil, fmt.Errorf("searching %q: %w", query, err)
	}

	s.logger.Debug("search complete", "query", query, "results", len(results))
	return results, nil
}

// Suggest ranks recent queries against prefix. An empty prefix returns the
// most recent queries.
func (s *SearchService) Suggest(prefix string) []string {
	if s.history == nil {
		return nil
	}
	recent := s.history.RecentSearches()

	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return limit(recent, maxSuggestions)
	}

	ranks := fuzzy.RankFindFold(prefix, recent)
	sort.SliceStable(ranks, func(i, j int) bool {
		if ranks[i].Distance != ranks[j].Distance {
			return ranks[i].Distance < ranks[j].Distance
		}
		return ranks[i].OriginalIndex < ranks[j].OriginalIndex
	})

	out := make([]string, 0, len(ranks))
	for _, r := range ranks {
		if strings.EqualFold(r.Target, prefix) {
			continue
		}
		out = append(out, r.Target)
	}
	return limit(out, maxSuggestions)
}

// Enqueue asks the server to download result. The queue shows it on its next refresh.
func (s *SearchService) Enqueue(ctx context.Context, result domain.SearchResult) error {
	if result.URL == "" {
		return fmt.Errorf("enqueue %q: %w", result.DisplayName(), domain.ErrItemNotFound)
	}

	if err := s.enqueuer.Download(ctx, result.URL); err != nil {
		s.logger.Error("enqueue failed", "url", result.URL, "error", err)
		return fmt.Errorf("enqueue %q: %w", result.DisplayName(), err)
	}

	s.logger.Info("enqueued", "url", result.URL, "name", result.Name)
	return nil
}

func limit(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
