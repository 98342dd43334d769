package repository

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/finwatch/finwatch/internal/domain"
	"github.com/google/uuid"
)

// Mode selects which backend a Switch dispatches to.
type Mode int32

const (
	ModeOnline Mode = iota
	ModeOffline
)

func (m Mode) String() string {
	if m == ModeOffline {
		return "offline"
	}
	return "online"
}

// Switch is the mode-aware repository handed to callers. It holds one online
// and one offline backend and routes every call based on the current mode
// flag. The flag can flip at any time between calls; a call in flight keeps
// the backend it started with.
type Switch struct {
	online  domain.Repository
	offline domain.Repository
	mode    atomic.Int32
	logger  *slog.Logger
}

// NewSwitch creates a mode-switching repository starting in online mode
func NewSwitch(online, offline domain.Repository, logger *slog.Logger) *Switch {
	if logger == nil {
		logger = slog.Default()
	}
	return &Switch{
		online:  online,
		offline: offline,
		logger:  logger,
	}
}

// SetMode flips the active backend
func (s *Switch) SetMode(mode Mode) {
	prev := Mode(s.mode.Swap(int32(mode)))
	if prev != mode {
		s.logger.Info("repository mode changed", "from", prev.String(), "to", mode.String())
	}
}

// Mode returns the currently active mode
func (s *Switch) Mode() Mode {
	return Mode(s.mode.Load())
}

func (s *Switch) active() domain.Repository {
	if s.Mode() == ModeOffline {
		return s.offline
	}
	return s.online
}

func (s *Switch) GetUserViews(ctx context.Context) ([]domain.View, error) {
	return s.active().GetUserViews(ctx)
}

func (s *Switch) GetItem(ctx context.Context, itemID uuid.UUID) (domain.Item, error) {
	return s.active().GetItem(ctx, itemID)
}

func (s *Switch) GetItems(ctx context.Context, q domain.ItemQuery) ([]domain.Item, int, error) {
	return s.active().GetItems(ctx, q)
}

func (s *Switch) GetSeasons(ctx context.Context, seriesID uuid.UUID) ([]*domain.Season, error) {
	return s.active().GetSeasons(ctx, seriesID)
}

func (s *Switch) GetEpisodes(ctx context.Context, seriesID, seasonID uuid.UUID) ([]*domain.Episode, error) {
	return s.active().GetEpisodes(ctx, seriesID, seasonID)
}

func (s *Switch) GetResumeItems(ctx context.Context) ([]domain.Item, error) {
	return s.active().GetResumeItems(ctx)
}

func (s *Switch) GetLatestMedia(ctx context.Context, parentID uuid.UUID) ([]domain.Item, error) {
	return s.active().GetLatestMedia(ctx, parentID)
}

func (s *Switch) GetNextUp(ctx context.Context, seriesID uuid.UUID) ([]*domain.Episode, error) {
	return s.active().GetNextUp(ctx, seriesID)
}

func (s *Switch) GetFavoriteItems(ctx context.Context) ([]domain.Item, error) {
	return s.active().GetFavoriteItems(ctx)
}

func (s *Switch) GetSearchItems(ctx context.Context, query string) ([]domain.Item, error) {
	return s.active().GetSearchItems(ctx, query)
}

func (s *Switch) GetMediaSources(ctx context.Context, itemID uuid.UUID) ([]domain.Source, error) {
	return s.active().GetMediaSources(ctx, itemID)
}

func (s *Switch) GetStreamURL(ctx context.Context, itemID uuid.UUID, sourceID string) (string, error) {
	return s.active().GetStreamURL(ctx, itemID, sourceID)
}

func (s *Switch) GetIntroTimestamps(ctx context.Context, itemID uuid.UUID) (*domain.Intro, error) {
	return s.active().GetIntroTimestamps(ctx, itemID)
}

func (s *Switch) GetTrickPlayManifest(ctx context.Context, itemID uuid.UUID) (*domain.TrickPlayManifest, error) {
	return s.active().GetTrickPlayManifest(ctx, itemID)
}

func (s *Switch) GetTrickPlayData(ctx context.Context, itemID uuid.UUID, width int) ([]byte, error) {
	return s.active().GetTrickPlayData(ctx, itemID, width)
}

func (s *Switch) GetDownloads(ctx context.Context, currentServerOnly bool) ([]domain.Item, error) {
	return s.active().GetDownloads(ctx, currentServerOnly)
}

func (s *Switch) PostCapabilities(ctx context.Context) error {
	return s.active().PostCapabilities(ctx)
}

func (s *Switch) PostPlaybackStart(ctx context.Context, itemID uuid.UUID) error {
	return s.active().PostPlaybackStart(ctx, itemID)
}

func (s *Switch) PostPlaybackProgress(ctx context.Context, itemID uuid.UUID, positionTicks int64, paused bool) error {
	return s.active().PostPlaybackProgress(ctx, itemID, positionTicks, paused)
}

func (s *Switch) PostPlaybackStop(ctx context.Context, itemID uuid.UUID, positionTicks int64, playedPercentage int) error {
	return s.active().PostPlaybackStop(ctx, itemID, positionTicks, playedPercentage)
}

func (s *Switch) MarkAsPlayed(ctx context.Context, itemID uuid.UUID) error {
	return s.active().MarkAsPlayed(ctx, itemID)
}

func (s *Switch) MarkAsUnplayed(ctx context.Context, itemID uuid.UUID) error {
	return s.active().MarkAsUnplayed(ctx, itemID)
}

func (s *Switch) MarkAsFavorite(ctx context.Context, itemID uuid.UUID) error {
	return s.active().MarkAsFavorite(ctx, itemID)
}

func (s *Switch) UnmarkAsFavorite(ctx context.Context, itemID uuid.UUID) error {
	return s.active().UnmarkAsFavorite(ctx, itemID)
}

func (s *Switch) GetUserConfiguration(ctx context.Context) (*domain.UserConfiguration, error) {
	return s.active().GetUserConfiguration(ctx)
}

func (s *Switch) GetBaseURL() string {
	return s.active().GetBaseURL()
}
