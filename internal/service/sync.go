package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/finwatch/finwatch/internal/domain"
	"golang.org/x/sync/errgroup"
)

// how many items are refreshed against the server at once
const syncParallelism = 4

// SyncService reconciles the cache with the remote server once connectivity
// returns. Playback state accumulated offline is pushed first, then each
// cached item is refreshed from the server copy so played flags, positions,
// source metadata and trickplay assets converge.
type SyncService struct {
	repo     domain.Repository
	store    domain.CacheStore
	session  domain.Session
	mediaDir string
	logger   *slog.Logger
}

// NewSyncService creates a new sync service
func NewSyncService(repo domain.Repository, store domain.CacheStore, session domain.Session, mediaDir string, logger *slog.Logger) *SyncService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncService{
		repo:     repo,
		store:    store,
		session:  session,
		mediaDir: mediaDir,
		logger:   logger,
	}
}

// Sync pushes local playback state and pulls fresh item metadata
func (s *SyncService) Sync(ctx context.Context) error {
	if err := s.PushPlaybackState(ctx); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

// PushPlaybackState reports offline playback progress to the server. Items
// finished offline are marked played remotely, partially watched ones get
// their position reported.
func (s *SyncService) PushPlaybackState(ctx context.Context) error {
	rows, err := s.store.GetItems(s.session.ServerID)
	if err != nil {
		return err
	}

	for _, row := range rows {
		if row.Played {
			if err := s.repo.MarkAsPlayed(ctx, row.ID); err != nil {
				return err
			}
			continue
		}
		if row.PlaybackPositionTicks > 0 {
			if err := s.repo.PostPlaybackProgress(ctx, row.ID, row.PlaybackPositionTicks, true); err != nil {
				return err
			}
		}
	}

	s.logger.Info("playback state pushed", "items", len(rows))
	return nil
}

// Refresh replaces each cached row with the current server copy and pulls
// source metadata and trickplay assets alongside it. Items the server no
// longer knows keep their cached row; the resident file is still playable.
func (s *SyncService) Refresh(ctx context.Context) error {
	rows, err := s.store.GetItems(s.session.ServerID)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(syncParallelism)

	for _, row := range rows {
		row := row
		g.Go(func() error {
			item, err := s.repo.GetItem(ctx, row.ID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					s.logger.Warn("item gone from server, keeping cached copy", "item", row.ID.String())
					return nil
				}
				return err
			}
			if err := s.store.UpsertItem(domain.ItemRowFrom(item, s.session.ServerID)); err != nil {
				return err
			}
			if err := s.refreshSources(ctx, item); err != nil {
				return err
			}
			s.refreshTrickPlay(ctx, item)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	s.logger.Info("cache refreshed", "items", len(rows))
	return nil
}

// refreshSources updates cached source metadata from the server. Download
// state on existing rows (resident path, pre-assigned destination, transfer
// id) is local-only and must survive the refresh.
func (s *SyncService) refreshSources(ctx context.Context, item domain.Item) error {
	sources, err := s.repo.GetMediaSources(ctx, item.GetID())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrNotSupported) {
			return nil
		}
		return err
	}

	for _, src := range sources {
		existing, ok := s.store.GetSource(item.GetID(), src.ID)
		if ok {
			existing.Name = src.Name
			existing.Container = src.Container
			existing.Size = src.Size
			if err := s.store.UpsertSource(existing); err != nil {
				return err
			}
			continue
		}
		if err := s.store.UpsertSource(domain.SourceRowFrom(src, "")); err != nil {
			return err
		}
	}
	return nil
}

// refreshTrickPlay persists the trickplay manifest and image data for an
// item so the offline repository can serve them. Trickplay is cosmetic, so
// failures are logged and swallowed.
func (s *SyncService) refreshTrickPlay(ctx context.Context, item domain.Item) {
	itemID := item.GetID()

	manifest, err := s.repo.GetTrickPlayManifest(ctx, itemID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("trickplay manifest fetch failed", "item", itemID.String(), "error", err)
		}
		return
	}
	if manifest == nil || len(manifest.WidthResolutions) == 0 {
		return
	}

	if err := s.store.SaveTrickPlayManifest(domain.TrickPlayManifestRow{
		ItemID:           itemID,
		WidthResolutions: manifest.WidthResolutions,
	}); err != nil {
		s.logger.Warn("trickplay manifest save failed", "item", itemID.String(), "error", err)
		return
	}

	data, err := s.repo.GetTrickPlayData(ctx, itemID, manifest.WidthResolutions[0])
	if err != nil {
		s.logger.Warn("trickplay data fetch failed", "item", itemID.String(), "error", err)
		return
	}

	if err := os.MkdirAll(s.mediaDir, 0755); err != nil {
		s.logger.Warn("media dir create failed", "path", s.mediaDir, "error", err)
		return
	}
	path := filepath.Join(s.mediaDir, itemID.String()+".bif")
	if err := os.WriteFile(path, data, 0644); err != nil {
		s.logger.Warn("trickplay data write failed", "path", path, "error", err)
	}
}
