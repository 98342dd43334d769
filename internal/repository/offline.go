package repository

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/finwatch/finwatch/internal/domain"
	"github.com/google/uuid"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Offline is the catalog repository backed entirely by the local cache
// store. Every query is scoped to the session's server identity. Items whose
// sources are not resident on device are never exposed; operations with no
// offline meaning return an empty result (listing queries) or
// domain.ErrNotSupported.
type Offline struct {
	store    domain.CacheStore
	session  domain.Session
	mediaDir string
	logger   *slog.Logger
}

// NewOffline creates the offline repository
func NewOffline(store domain.CacheStore, session domain.Session, mediaDir string, logger *slog.Logger) *Offline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Offline{
		store:    store,
		session:  session,
		mediaDir: mediaDir,
		logger:   logger,
	}
}

// visible reports whether a cached row may be exposed offline. Containers
// carry no sources and stay visible; playable items need a resident source.
func (r *Offline) visible(row domain.ItemRow, sources []domain.SourceRow) bool {
	if row.Kind == domain.KindShow || row.Kind == domain.KindSeason {
		return true
	}
	for _, src := range sources {
		if src.IsDownloaded() {
			return true
		}
	}
	return false
}

// visibleItems returns the server-scoped rows that pass the residency
// filter, materialized with their sources.
func (r *Offline) visibleItems(filter func(domain.ItemRow) bool) ([]domain.Item, error) {
	rows, err := r.store.GetItems(r.session.ServerID)
	if err != nil {
		return nil, err
	}

	var items []domain.Item
	for _, row := range rows {
		if filter != nil && !filter(row) {
			continue
		}
		sources, err := r.store.GetSources(row.ID)
		if err != nil {
			return nil, err
		}
		if !r.visible(row, sources) {
			continue
		}
		items = append(items, row.ToItem(sources))
	}
	return items, nil
}

func (r *Offline) GetUserViews(ctx context.Context) ([]domain.View, error) {
	return []domain.View{}, nil
}

func (r *Offline) GetItem(ctx context.Context, itemID uuid.UUID) (domain.Item, error) {
	row, ok := r.store.GetItem(r.session.ServerID, itemID)
	if !ok {
		return nil, domain.ErrNotFound
	}

	sources, err := r.store.GetSources(itemID)
	if err != nil {
		return nil, err
	}
	if !r.visible(row, sources) {
		return nil, domain.ErrNotFound
	}
	return row.ToItem(sources), nil
}

func (r *Offline) GetItems(ctx context.Context, q domain.ItemQuery) ([]domain.Item, int, error) {
	items, err := r.visibleItems(func(row domain.ItemRow) bool {
		if len(q.Kinds) > 0 && !kindMatches(row.Kind, q.Kinds) {
			return false
		}
		if q.ParentID != uuid.Nil && row.SeriesID != q.ParentID && row.SeasonID != q.ParentID {
			return false
		}
		return true
	})
	if err != nil {
		return nil, 0, err
	}

	sortItems(items, q.SortBy, q.SortOrder)

	total := len(items)
	if q.StartIndex > 0 {
		if q.StartIndex >= len(items) {
			return []domain.Item{}, total, nil
		}
		items = items[q.StartIndex:]
	}
	if q.Limit > 0 && q.Limit < len(items) {
		items = items[:q.Limit]
	}
	return items, total, nil
}

func (r *Offline) GetSeasons(ctx context.Context, seriesID uuid.UUID) ([]*domain.Season, error) {
	rows, err := r.store.GetItems(r.session.ServerID)
	if err != nil {
		return nil, err
	}

	var seasons []*domain.Season
	for _, row := range rows {
		if row.Kind != domain.KindSeason || row.SeriesID != seriesID {
			continue
		}
		seasons = append(seasons, row.ToItem(nil).(*domain.Season))
	}
	sort.Slice(seasons, func(i, j int) bool { return seasons[i].IndexNumber < seasons[j].IndexNumber })
	return seasons, nil
}

func (r *Offline) GetEpisodes(ctx context.Context, seriesID, seasonID uuid.UUID) ([]*domain.Episode, error) {
	items, err := r.visibleItems(func(row domain.ItemRow) bool {
		return row.Kind == domain.KindEpisode && row.SeriesID == seriesID && row.SeasonID == seasonID
	})
	if err != nil {
		return nil, err
	}

	episodes := make([]*domain.Episode, 0, len(items))
	for _, item := range items {
		episodes = append(episodes, item.(*domain.Episode))
	}
	sort.Slice(episodes, func(i, j int) bool { return episodes[i].IndexNumber < episodes[j].IndexNumber })
	return episodes, nil
}

func (r *Offline) GetResumeItems(ctx context.Context) ([]domain.Item, error) {
	rows, err := r.store.GetResumeItems(r.session.ServerID)
	if err != nil {
		return nil, err
	}

	var items []domain.Item
	for _, row := range rows {
		sources, err := r.store.GetSources(row.ID)
		if err != nil {
			return nil, err
		}
		if !r.visible(row, sources) {
			continue
		}
		items = append(items, row.ToItem(sources))
	}
	return items, nil
}

// GetLatestMedia has no offline meaning; browsing falls back to GetItems
func (r *Offline) GetLatestMedia(ctx context.Context, parentID uuid.UUID) ([]domain.Item, error) {
	return []domain.Item{}, nil
}

func (r *Offline) GetNextUp(ctx context.Context, seriesID uuid.UUID) ([]*domain.Episode, error) {
	return []*domain.Episode{}, nil
}

func (r *Offline) GetFavoriteItems(ctx context.Context) ([]domain.Item, error) {
	return r.visibleItems(func(row domain.ItemRow) bool { return row.Favorite })
}

// GetSearchItems fuzzy-matches the query against cached item names
func (r *Offline) GetSearchItems(ctx context.Context, query string) ([]domain.Item, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.Item{}, nil
	}

	items, err := r.visibleItems(nil)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(items))
	for i, item := range items {
		names[i] = item.GetName()
	}

	ranks := fuzzy.RankFindNormalizedFold(query, names)
	sort.Sort(ranks)

	results := make([]domain.Item, 0, len(ranks))
	for _, rank := range ranks {
		results = append(results, items[rank.OriginalIndex])
	}
	return results, nil
}

func (r *Offline) GetMediaSources(ctx context.Context, itemID uuid.UUID) ([]domain.Source, error) {
	rows, err := r.store.GetSources(itemID)
	if err != nil {
		return nil, err
	}

	sources := make([]domain.Source, 0, len(rows))
	for _, row := range rows {
		sources = append(sources, row.ToSource())
	}
	return sources, nil
}

// GetStreamURL resolves to the resident file path. A source that is not on
// device cannot be streamed offline.
func (r *Offline) GetStreamURL(ctx context.Context, itemID uuid.UUID, sourceID string) (string, error) {
	row, ok := r.store.GetSource(itemID, sourceID)
	if !ok || !row.IsDownloaded() {
		return "", domain.ErrNotFound
	}
	return row.ResidentPath, nil
}

func (r *Offline) GetIntroTimestamps(ctx context.Context, itemID uuid.UUID) (*domain.Intro, error) {
	return nil, nil
}

func (r *Offline) GetTrickPlayManifest(ctx context.Context, itemID uuid.UUID) (*domain.TrickPlayManifest, error) {
	row, ok := r.store.GetTrickPlayManifest(itemID)
	if !ok {
		return nil, nil
	}
	return &domain.TrickPlayManifest{ItemID: row.ItemID, WidthResolutions: row.WidthResolutions}, nil
}

func (r *Offline) GetTrickPlayData(ctx context.Context, itemID uuid.UUID, width int) ([]byte, error) {
	if _, ok := r.store.GetTrickPlayManifest(itemID); !ok {
		return nil, nil
	}

	data, err := os.ReadFile(filepath.Join(r.mediaDir, itemID.String()+".bif"))
	if err != nil {
		return nil, fmt.Errorf("failed to read trickplay data: %w", err)
	}
	return data, nil
}

func (r *Offline) GetDownloads(ctx context.Context, currentServerOnly bool) ([]domain.Item, error) {
	return downloadsFromStore(r.store, r.session, currentServerOnly)
}

func (r *Offline) PostCapabilities(ctx context.Context) error {
	return nil
}

func (r *Offline) PostPlaybackStart(ctx context.Context, itemID uuid.UUID) error {
	return nil
}

func (r *Offline) PostPlaybackProgress(ctx context.Context, itemID uuid.UUID, positionTicks int64, paused bool) error {
	return r.store.SetPlaybackPosition(r.session.ServerID, itemID, positionTicks)
}

// PostPlaybackStop applies the watched-threshold policy: below the lower
// cutoff the position resets and the item stays unwatched, above the upper
// cutoff the position resets and the item is watched, in between the
// position is persisted verbatim and the played flag is untouched.
func (r *Offline) PostPlaybackStop(ctx context.Context, itemID uuid.UUID, positionTicks int64, playedPercentage int) error {
	switch {
	case playedPercentage < domain.WatchedThresholdLower:
		if err := r.store.SetPlaybackPosition(r.session.ServerID, itemID, 0); err != nil {
			return err
		}
		return r.store.SetPlayed(r.session.ServerID, itemID, false)
	case playedPercentage > domain.WatchedThresholdUpper:
		if err := r.store.SetPlaybackPosition(r.session.ServerID, itemID, 0); err != nil {
			return err
		}
		return r.store.SetPlayed(r.session.ServerID, itemID, true)
	default:
		return r.store.SetPlaybackPosition(r.session.ServerID, itemID, positionTicks)
	}
}

// MarkAsPlayed clamps the position to the full runtime so the item counts
// as complete
func (r *Offline) MarkAsPlayed(ctx context.Context, itemID uuid.UUID) error {
	row, ok := r.store.GetItem(r.session.ServerID, itemID)
	if !ok {
		return domain.ErrNotFound
	}
	if err := r.store.SetPlaybackPosition(r.session.ServerID, itemID, row.RuntimeTicks); err != nil {
		return err
	}
	return r.store.SetPlayed(r.session.ServerID, itemID, true)
}

func (r *Offline) MarkAsUnplayed(ctx context.Context, itemID uuid.UUID) error {
	if err := r.store.SetPlaybackPosition(r.session.ServerID, itemID, 0); err != nil {
		return err
	}
	return r.store.SetPlayed(r.session.ServerID, itemID, false)
}

// Favorites live on the server; toggling them offline would silently
// diverge, so the operation is refused.
func (r *Offline) MarkAsFavorite(ctx context.Context, itemID uuid.UUID) error {
	return domain.ErrNotSupported
}

func (r *Offline) UnmarkAsFavorite(ctx context.Context, itemID uuid.UUID) error {
	return domain.ErrNotSupported
}

func (r *Offline) GetUserConfiguration(ctx context.Context) (*domain.UserConfiguration, error) {
	return nil, domain.ErrNotSupported
}

func (r *Offline) GetBaseURL() string {
	return ""
}

func kindMatches(kind domain.ItemKind, kinds []domain.ItemKind) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func sortItems(items []domain.Item, by domain.SortBy, order domain.SortOrder) {
	less := func(a, b domain.Item) bool {
		return strings.ToLower(a.GetName()) < strings.ToLower(b.GetName())
	}
	if by == domain.SortByDateAdded {
		less = func(a, b domain.Item) bool {
			return addedAt(a) < addedAt(b)
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		if order == domain.SortOrderDescending {
			return less(items[j], items[i])
		}
		return less(items[i], items[j])
	})
}

func addedAt(item domain.Item) int64 {
	switch v := item.(type) {
	case *domain.Movie:
		return v.AddedAt
	case *domain.Show:
		return v.AddedAt
	case *domain.Episode:
		return v.AddedAt
	default:
		return 0
	}
}
