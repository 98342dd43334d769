package repository

import (
	"context"
	"log/slog"

	"github.com/finwatch/finwatch/internal/client/jellyfin"
	"github.com/finwatch/finwatch/internal/domain"
	"github.com/google/uuid"
)

// Online is the catalog repository backed by the remote server. It is the
// source of truth whenever connectivity exists. Downloads are the one
// exception: those are answered from the cache store, which is authoritative
// for resident content regardless of mode.
type Online struct {
	client  *jellyfin.Client
	store   domain.CacheStore
	session domain.Session
	logger  *slog.Logger
}

// NewOnline creates the online repository
func NewOnline(client *jellyfin.Client, store domain.CacheStore, session domain.Session, logger *slog.Logger) *Online {
	if logger == nil {
		logger = slog.Default()
	}
	return &Online{
		client:  client,
		store:   store,
		session: session,
		logger:  logger,
	}
}

func (r *Online) GetUserViews(ctx context.Context) ([]domain.View, error) {
	return r.client.GetUserViews(ctx)
}

func (r *Online) GetItem(ctx context.Context, itemID uuid.UUID) (domain.Item, error) {
	return r.client.GetItem(ctx, itemID)
}

func (r *Online) GetItems(ctx context.Context, q domain.ItemQuery) ([]domain.Item, int, error) {
	return r.client.GetItems(ctx, q)
}

func (r *Online) GetSeasons(ctx context.Context, seriesID uuid.UUID) ([]*domain.Season, error) {
	return r.client.GetSeasons(ctx, seriesID)
}

func (r *Online) GetEpisodes(ctx context.Context, seriesID, seasonID uuid.UUID) ([]*domain.Episode, error) {
	return r.client.GetEpisodes(ctx, seriesID, seasonID)
}

func (r *Online) GetResumeItems(ctx context.Context) ([]domain.Item, error) {
	return r.client.GetResumeItems(ctx)
}

func (r *Online) GetLatestMedia(ctx context.Context, parentID uuid.UUID) ([]domain.Item, error) {
	return r.client.GetLatestMedia(ctx, parentID)
}

func (r *Online) GetNextUp(ctx context.Context, seriesID uuid.UUID) ([]*domain.Episode, error) {
	return r.client.GetNextUp(ctx, seriesID)
}

func (r *Online) GetFavoriteItems(ctx context.Context) ([]domain.Item, error) {
	return r.client.GetFavoriteItems(ctx)
}

func (r *Online) GetSearchItems(ctx context.Context, query string) ([]domain.Item, error) {
	return r.client.GetSearchItems(ctx, query)
}

func (r *Online) GetMediaSources(ctx context.Context, itemID uuid.UUID) ([]domain.Source, error) {
	return r.client.GetMediaSources(ctx, itemID)
}

func (r *Online) GetStreamURL(ctx context.Context, itemID uuid.UUID, sourceID string) (string, error) {
	return r.client.GetStreamURL(ctx, itemID, sourceID)
}

func (r *Online) GetIntroTimestamps(ctx context.Context, itemID uuid.UUID) (*domain.Intro, error) {
	return r.client.GetIntroTimestamps(ctx, itemID)
}

func (r *Online) GetTrickPlayManifest(ctx context.Context, itemID uuid.UUID) (*domain.TrickPlayManifest, error) {
	return r.client.GetTrickPlayManifest(ctx, itemID)
}

func (r *Online) GetTrickPlayData(ctx context.Context, itemID uuid.UUID, width int) ([]byte, error) {
	return r.client.GetTrickPlayData(ctx, itemID, width)
}

func (r *Online) GetDownloads(ctx context.Context, currentServerOnly bool) ([]domain.Item, error) {
	return downloadsFromStore(r.store, r.session, currentServerOnly)
}

func (r *Online) PostCapabilities(ctx context.Context) error {
	return r.client.PostCapabilities(ctx)
}

func (r *Online) PostPlaybackStart(ctx context.Context, itemID uuid.UUID) error {
	return r.client.PostPlaybackStart(ctx, itemID)
}

func (r *Online) PostPlaybackProgress(ctx context.Context, itemID uuid.UUID, positionTicks int64, paused bool) error {
	return r.client.PostPlaybackProgress(ctx, itemID, positionTicks, paused)
}

// PostPlaybackStop applies the watched-threshold policy before reporting,
// so the outcome does not depend on which backend handles the stop.
func (r *Online) PostPlaybackStop(ctx context.Context, itemID uuid.UUID, positionTicks int64, playedPercentage int) error {
	switch {
	case playedPercentage < domain.WatchedThresholdLower:
		if err := r.client.PostPlaybackStop(ctx, itemID, 0); err != nil {
			return err
		}
		return r.client.MarkAsUnplayed(ctx, itemID)
	case playedPercentage > domain.WatchedThresholdUpper:
		if err := r.client.PostPlaybackStop(ctx, itemID, 0); err != nil {
			return err
		}
		return r.client.MarkAsPlayed(ctx, itemID)
	default:
		return r.client.PostPlaybackStop(ctx, itemID, positionTicks)
	}
}

func (r *Online) MarkAsPlayed(ctx context.Context, itemID uuid.UUID) error {
	return r.client.MarkAsPlayed(ctx, itemID)
}

func (r *Online) MarkAsUnplayed(ctx context.Context, itemID uuid.UUID) error {
	return r.client.MarkAsUnplayed(ctx, itemID)
}

func (r *Online) MarkAsFavorite(ctx context.Context, itemID uuid.UUID) error {
	return r.client.MarkAsFavorite(ctx, itemID)
}

func (r *Online) UnmarkAsFavorite(ctx context.Context, itemID uuid.UUID) error {
	return r.client.UnmarkAsFavorite(ctx, itemID)
}

func (r *Online) GetUserConfiguration(ctx context.Context) (*domain.UserConfiguration, error) {
	return r.client.GetUserConfiguration(ctx)
}

func (r *Online) GetBaseURL() string {
	return r.client.BaseURL()
}
