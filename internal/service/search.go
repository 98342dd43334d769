package service

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/finwatch/finwatch/internal/domain"
	"github.com/lithammer/fuzzysearch/fuzzy"
	sahilm "github.com/sahilm/fuzzy"
)

// FilterItem is an entry in the in-memory search index
type FilterItem struct {
	Item  domain.Item
	Title string
}

// FilterResult is a search hit with match metadata for highlighting
type FilterResult struct {
	FilterItem
	MatchedIndexes []int
	Score          int
}

// FilterIndex implements sahilm/fuzzy.Source so filtering runs without
// per-query allocations
type FilterIndex struct {
	items       []FilterItem
	lowerTitles []string
}

// String returns the lowercase title at index i (implements fuzzy.Source)
func (idx *FilterIndex) String(i int) string { return idx.lowerTitles[i] }

// Len returns the number of items (implements fuzzy.Source)
func (idx *FilterIndex) Len() int { return len(idx.items) }

// SearchService answers catalog searches. Repository search is preferred;
// when it fails the local index built from previously seen items takes over.
type SearchService struct {
	repo   domain.Repository
	logger *slog.Logger

	indexMu     sync.RWMutex
	filterIndex *FilterIndex
	indexedIDs  map[string]bool
}

// NewSearchService creates a new search service
func NewSearchService(repo domain.Repository, logger *slog.Logger) *SearchService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchService{
		repo:        repo,
		logger:      logger,
		filterIndex: &FilterIndex{},
		indexedIDs:  make(map[string]bool),
	}
}

// Search queries the repository, falling back to the local index when the
// repository cannot answer.
func (s *SearchService) Search(ctx context.Context, query string) ([]domain.Item, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	s.logger.Debug("searching", "query", query)

	results, err := s.repo.GetSearchItems(ctx, query)
	if err != nil {
		s.logger.Warn("repository search failed, falling back to local index", "error", err)
		return s.localSearch(query), nil
	}

	s.IndexItems(results)
	return results, nil
}

// Filter matches the query against the local index only, returning hits
// with match positions for highlighting. Lower scores rank last per
// sahilm/fuzzy ordering, so callers can range the slice directly.
func (s *SearchService) Filter(query string) []FilterResult {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	s.indexMu.RLock()
	defer s.indexMu.RUnlock()

	matches := sahilm.FindFrom(query, s.filterIndex)

	results := make([]FilterResult, 0, len(matches))
	for _, match := range matches {
		results = append(results, FilterResult{
			FilterItem:     s.filterIndex.items[match.Index],
			MatchedIndexes: match.MatchedIndexes,
			Score:          match.Score,
		})
	}
	return results
}

// IndexItems adds items to the local index, skipping ids already present
func (s *SearchService) IndexItems(items []domain.Item) {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	added := 0
	for _, item := range items {
		id := item.GetID().String()
		if s.indexedIDs[id] {
			continue
		}
		s.indexedIDs[id] = true
		s.filterIndex.items = append(s.filterIndex.items, FilterItem{Item: item, Title: item.GetName()})
		s.filterIndex.lowerTitles = append(s.filterIndex.lowerTitles, strings.ToLower(item.GetName()))
		added++
	}

	if added > 0 {
		s.logger.Debug("indexed items", "count", added, "total", len(s.filterIndex.items))
	}
}

// ClearIndex drops the local index
func (s *SearchService) ClearIndex() {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	s.filterIndex = &FilterIndex{}
	s.indexedIDs = make(map[string]bool)
	s.logger.Debug("cleared search index")
}

// localSearch runs a rank-sorted fuzzy match over the local index
func (s *SearchService) localSearch(query string) []domain.Item {
	s.indexMu.RLock()
	defer s.indexMu.RUnlock()

	if len(s.filterIndex.items) == 0 {
		return nil
	}

	ranks := fuzzy.RankFindNormalizedFold(query, s.filterIndex.lowerTitles)
	sort.Sort(ranks)

	results := make([]domain.Item, 0, len(ranks))
	for _, rank := range ranks {
		results = append(results, s.filterIndex.items[rank.OriginalIndex].Item)
	}
	return results
}
