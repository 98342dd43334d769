package download

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/finwatch/finwatch/internal/domain"
	"github.com/google/uuid"
)

// Manager orchestrates downloads of catalog items. The flow for a download
// is: persist the item and source rows first, then hand the transfer to the
// engine, then record the transfer id on the source row. Ordering matters.
// If the process dies after enqueue the persisted rows let Reconcile pick
// the transfer back up; the reverse order would leak an untracked transfer.
type Manager struct {
	store    domain.CacheStore
	repo     domain.Repository
	engine   domain.TransferEngine
	session  domain.Session
	mediaDir string

	requireUnmetered bool
	logger           *slog.Logger

	mu        sync.RWMutex
	transfers map[string]string // sourceKey -> transferID
}

// Options configures a Manager.
type Options struct {
	MediaDir         string
	RequireUnmetered bool
	Logger           *slog.Logger
}

// NewManager creates a download manager
func NewManager(store domain.CacheStore, repo domain.Repository, engine domain.TransferEngine, session domain.Session, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:            store,
		repo:             repo,
		engine:           engine,
		session:          session,
		mediaDir:         opts.MediaDir,
		requireUnmetered: opts.RequireUnmetered,
		logger:           logger,
		transfers:        make(map[string]string),
	}
}

func sourceKey(itemID uuid.UUID, sourceID string) string {
	return itemID.String() + ":" + sourceID
}

// destination is the deterministic on-disk path for a download
func (m *Manager) destination(itemID uuid.UUID, sourceID string) string {
	return filepath.Join(m.mediaDir, fmt.Sprintf("%s.%s.download", itemID, sourceID))
}

// DownloadItem persists the item and source in the cache, then enqueues the
// file transfer for the given source.
func (m *Manager) DownloadItem(ctx context.Context, itemID uuid.UUID, sourceID string) error {
	item, err := m.repo.GetItem(ctx, itemID)
	if err != nil {
		return fmt.Errorf("failed to load item %s: %w", itemID, err)
	}

	var source *domain.Source
	for _, src := range item.GetSources() {
		if src.ID == sourceID {
			s := src
			source = &s
			break
		}
	}
	if source == nil {
		sources, err := m.repo.GetMediaSources(ctx, itemID)
		if err != nil {
			return fmt.Errorf("failed to load sources for %s: %w", itemID, err)
		}
		for _, src := range sources {
			if src.ID == sourceID {
				s := src
				source = &s
				break
			}
		}
	}
	if source == nil {
		return fmt.Errorf("source %s for item %s: %w", sourceID, itemID, domain.ErrNotFound)
	}

	dest := m.destination(itemID, sourceID)
	itemRow := domain.ItemRowFrom(item, m.session.ServerID)
	sourceRow := domain.SourceRowFrom(*source, dest)

	// Both rows land in one transaction before the engine sees the transfer
	if err := m.store.UpsertItemWithSource(itemRow, sourceRow); err != nil {
		return err
	}

	streamURL, err := m.repo.GetStreamURL(ctx, itemID, sourceID)
	if err != nil {
		return fmt.Errorf("failed to resolve stream url for %s: %w", itemID, err)
	}

	transferID, err := m.engine.Enqueue(ctx, domain.TransferRequest{
		URI:              streamURL,
		Destination:      dest,
		Title:            item.GetName(),
		RequireUnmetered: m.requireUnmetered,
	})
	if err != nil {
		return fmt.Errorf("failed to enqueue transfer for %s: %w: %v", itemID, domain.ErrTransferFailed, err)
	}

	if err := m.store.SetSourceTransferID(itemID, sourceID, transferID); err != nil {
		return err
	}

	m.mu.Lock()
	m.transfers[sourceKey(itemID, sourceID)] = transferID
	m.mu.Unlock()

	m.logger.Info("download enqueued",
		"item", itemID.String(),
		"source", sourceID,
		"transfer", transferID,
		"size", humanize.Bytes(uint64(source.Size)))
	return nil
}

// GetProgress reports the status and completion percentage of a transfer.
// A nil or empty id yields the none sentinel with percentage -1. A transfer
// whose total size is unknown also reports -1. A successful transfer always
// reports 100 even when the engine lost the byte counters.
func (m *Manager) GetProgress(ctx context.Context, transferID *string) (domain.TransferStatus, int, error) {
	if transferID == nil || *transferID == "" {
		return domain.TransferStatusNone, -1, nil
	}

	state, err := m.engine.Query(ctx, *transferID)
	if err != nil {
		return domain.TransferStatusUnknown, -1, err
	}

	if state.Status == domain.TransferStatusSuccessful {
		return state.Status, 100, nil
	}
	if state.BytesTotal <= 0 {
		return state.Status, -1, nil
	}
	percent := int(state.BytesDownloaded * 100 / state.BytesTotal)
	return state.Status, percent, nil
}

// TransferID returns the tracked transfer id for a source, if any
func (m *Manager) TransferID(itemID uuid.UUID, sourceID string) *string {
	m.mu.RLock()
	id, ok := m.transfers[sourceKey(itemID, sourceID)]
	m.mu.RUnlock()
	if ok {
		return &id
	}

	row, found := m.store.GetSource(itemID, sourceID)
	if !found || row.TransferID == "" {
		return nil
	}
	return &row.TransferID
}

// CancelDownload aborts an in-flight transfer and resets the source row to
// the not-downloaded state. The partial file is removed best effort.
func (m *Manager) CancelDownload(ctx context.Context, itemID uuid.UUID, sourceID string) error {
	row, ok := m.store.GetSource(itemID, sourceID)
	if !ok {
		return domain.ErrNotFound
	}

	if row.TransferID != "" {
		if err := m.engine.Cancel(ctx, row.TransferID); err != nil {
			m.logger.Warn("engine cancel failed", "transfer", row.TransferID, "error", err)
		}
	}

	m.forget(itemID, sourceID)
	if err := m.clearSource(row); err != nil {
		return err
	}
	removeFile(row.DownloadPath, m.logger)

	m.logger.Info("download cancelled", "item", itemID.String(), "source", sourceID)
	return nil
}

// DeleteItem removes the cached item, its source rows and any resident
// files. Row removal is unconditional; file removal is best effort.
func (m *Manager) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	sources, err := m.store.GetSources(itemID)
	if err != nil {
		return err
	}

	for _, src := range sources {
		if src.TransferID != "" {
			if err := m.engine.Cancel(ctx, src.TransferID); err != nil {
				m.logger.Warn("engine cancel failed", "transfer", src.TransferID, "error", err)
			}
		}
		m.forget(itemID, src.ID)
		if err := m.store.DeleteSource(itemID, src.ID); err != nil {
			return err
		}
		removeFile(src.ResidentPath, m.logger)
		if src.DownloadPath != src.ResidentPath {
			removeFile(src.DownloadPath, m.logger)
		}
	}

	if err := m.store.DeleteTrickPlayManifest(itemID); err != nil {
		return err
	}
	removeFile(filepath.Join(m.mediaDir, itemID.String()+".bif"), m.logger)

	if err := m.store.DeleteItem(m.session.ServerID, itemID); err != nil {
		return err
	}

	m.logger.Info("download deleted", "item", itemID.String())
	return nil
}

// SyncTransfers settles every source row that still carries a transfer id.
// Successful transfers get their resident path set, failed ones are reset
// to not-downloaded, running ones are left alone.
func (m *Manager) SyncTransfers(ctx context.Context) error {
	rows, err := m.store.GetActiveTransfers()
	if err != nil {
		return err
	}

	for _, row := range rows {
		state, err := m.engine.Query(ctx, row.TransferID)
		if err != nil {
			m.logger.Warn("transfer query failed", "transfer", row.TransferID, "error", err)
			continue
		}

		switch state.Status {
		case domain.TransferStatusSuccessful:
			if err := m.finalize(row); err != nil {
				return err
			}
		case domain.TransferStatusFailed:
			m.logger.Warn("transfer failed", "item", row.ItemID.String(), "source", row.ID)
			m.forget(row.ItemID, row.ID)
			if err := m.clearSource(row); err != nil {
				return err
			}
			removeFile(row.DownloadPath, m.logger)
		}
	}
	return nil
}

// Reconcile restores transfer tracking after a restart. Rows whose transfer
// the engine still knows are re-associated or finalized; rows pointing at a
// transfer the engine forgot are reset to not-downloaded.
func (m *Manager) Reconcile(ctx context.Context) error {
	rows, err := m.store.GetActiveTransfers()
	if err != nil {
		return err
	}

	for _, row := range rows {
		state, err := m.engine.Query(ctx, row.TransferID)
		if err != nil {
			return err
		}

		switch state.Status {
		case domain.TransferStatusSuccessful:
			if err := m.finalize(row); err != nil {
				return err
			}
		case domain.TransferStatusPending, domain.TransferStatusRunning, domain.TransferStatusPaused:
			m.mu.Lock()
			m.transfers[sourceKey(row.ItemID, row.ID)] = row.TransferID
			m.mu.Unlock()
			m.logger.Info("transfer restored", "item", row.ItemID.String(), "transfer", row.TransferID)
		default:
			// Unknown or failed: the download never completed and the engine
			// cannot resume it
			m.logger.Warn("stale transfer cleared", "item", row.ItemID.String(), "transfer", row.TransferID)
			if err := m.clearSource(row); err != nil {
				return err
			}
			removeFile(row.DownloadPath, m.logger)
		}
	}
	return nil
}

// Watch polls transfers until the context is cancelled
func (m *Manager) Watch(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := m.SyncTransfers(ctx); err != nil {
				m.logger.Error("transfer sync failed", "error", err)
			}
		}
	}
}

// finalize marks a completed transfer's file as resident
func (m *Manager) finalize(row domain.SourceRow) error {
	if err := m.store.SetSourceResidentPath(row.ItemID, row.ID, row.DownloadPath); err != nil {
		return err
	}
	if err := m.store.SetSourceTransferID(row.ItemID, row.ID, ""); err != nil {
		return err
	}
	m.forget(row.ItemID, row.ID)
	m.logger.Info("download complete", "item", row.ItemID.String(), "source", row.ID, "path", row.DownloadPath)
	return nil
}

// clearSource resets a source row to the not-downloaded state
func (m *Manager) clearSource(row domain.SourceRow) error {
	row.TransferID = ""
	row.ResidentPath = ""
	row.DownloadPath = ""
	return m.store.UpsertSource(row)
}

func (m *Manager) forget(itemID uuid.UUID, sourceID string) {
	m.mu.Lock()
	delete(m.transfers, sourceKey(itemID, sourceID))
	m.mu.Unlock()
}

func removeFile(path string, logger *slog.Logger) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to remove file", "path", path, "error", err)
	}
}
