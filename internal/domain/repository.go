package domain

import (
	"context"

	"github.com/google/uuid"
)

// SortBy selects the field used to order item listings
type SortBy string

const (
	SortByName      SortBy = "SortName"
	SortByDateAdded SortBy = "DateCreated"
	SortByPlayCount SortBy = "PlayCount"
	SortByRandom    SortBy = "Random"
)

// SortOrder selects the listing direction
type SortOrder string

const (
	SortOrderAscending  SortOrder = "Ascending"
	SortOrderDescending SortOrder = "Descending"
)

// ItemQuery describes a paged, filtered item listing request.
type ItemQuery struct {
	ParentID   uuid.UUID
	Kinds      []ItemKind
	Recursive  bool
	SortBy     SortBy
	SortOrder  SortOrder
	StartIndex int
	Limit      int
}

// Repository is the single catalog contract consumed by application logic.
// Both the online and the offline implementation satisfy every method;
// selection between them happens at the boundary via a mode flag, never via
// type inspection inside business logic. Offline methods with no meaning
// either return an empty result (listing queries) or ErrNotSupported.
type Repository interface {
	// === Browse ===
	GetUserViews(ctx context.Context) ([]View, error)
	GetItem(ctx context.Context, itemID uuid.UUID) (Item, error)
	GetItems(ctx context.Context, q ItemQuery) ([]Item, int, error)
	GetSeasons(ctx context.Context, seriesID uuid.UUID) ([]*Season, error)
	GetEpisodes(ctx context.Context, seriesID, seasonID uuid.UUID) ([]*Episode, error)
	GetResumeItems(ctx context.Context) ([]Item, error)
	GetLatestMedia(ctx context.Context, parentID uuid.UUID) ([]Item, error)
	GetNextUp(ctx context.Context, seriesID uuid.UUID) ([]*Episode, error)
	GetFavoriteItems(ctx context.Context) ([]Item, error)
	GetSearchItems(ctx context.Context, query string) ([]Item, error)

	// === Playback sources ===
	GetMediaSources(ctx context.Context, itemID uuid.UUID) ([]Source, error)
	GetStreamURL(ctx context.Context, itemID uuid.UUID, sourceID string) (string, error)
	GetIntroTimestamps(ctx context.Context, itemID uuid.UUID) (*Intro, error)
	GetTrickPlayManifest(ctx context.Context, itemID uuid.UUID) (*TrickPlayManifest, error)
	GetTrickPlayData(ctx context.Context, itemID uuid.UUID, width int) ([]byte, error)

	// === Downloads ===
	// GetDownloads returns cached items. When currentServerOnly is true the
	// result is scoped to the active server identity, otherwise rows across
	// every server are returned (global storage-management views).
	GetDownloads(ctx context.Context, currentServerOnly bool) ([]Item, error)

	// === Playback reporting ===
	PostCapabilities(ctx context.Context) error
	PostPlaybackStart(ctx context.Context, itemID uuid.UUID) error
	PostPlaybackProgress(ctx context.Context, itemID uuid.UUID, positionTicks int64, paused bool) error
	PostPlaybackStop(ctx context.Context, itemID uuid.UUID, positionTicks int64, playedPercentage int) error
	MarkAsPlayed(ctx context.Context, itemID uuid.UUID) error
	MarkAsUnplayed(ctx context.Context, itemID uuid.UUID) error
	MarkAsFavorite(ctx context.Context, itemID uuid.UUID) error
	UnmarkAsFavorite(ctx context.Context, itemID uuid.UUID) error

	// === User ===
	GetUserConfiguration(ctx context.Context) (*UserConfiguration, error)
	GetBaseURL() string
}

// GetMovie fetches an item and asserts the movie variant
func GetMovie(ctx context.Context, repo Repository, itemID uuid.UUID) (*Movie, error) {
	item, err := repo.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	movie, ok := item.(*Movie)
	if !ok {
		return nil, ErrNotFound
	}
	return movie, nil
}

// GetShow fetches an item and asserts the show variant
func GetShow(ctx context.Context, repo Repository, itemID uuid.UUID) (*Show, error) {
	item, err := repo.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	show, ok := item.(*Show)
	if !ok {
		return nil, ErrNotFound
	}
	return show, nil
}

// Watched-threshold policy constants for PostPlaybackStop. Below the lower
// cutoff the item is reset to unwatched; above the upper cutoff it is marked
// watched; in between the position is persisted verbatim.
const (
	WatchedThresholdLower = 10
	WatchedThresholdUpper = 90
)
