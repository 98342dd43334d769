package domain

import "github.com/google/uuid"

// ItemRow is the persisted snapshot of a catalog item. Rows are created when
// a download is initiated or when online data is explicitly persisted for
// offline use, and are keyed by (serverID, itemID).
type ItemRow struct {
	ID                    uuid.UUID `json:"id"`
	ServerID              string    `json:"serverId"`
	Kind                  ItemKind  `json:"kind"`
	Name                  string    `json:"name"`
	OriginalTitle         string    `json:"originalTitle,omitempty"`
	Overview              string    `json:"overview"`
	Played                bool      `json:"played"`
	Favorite              bool      `json:"favorite"`
	RuntimeTicks          int64     `json:"runtimeTicks"`
	PlaybackPositionTicks int64     `json:"playbackPositionTicks"`
	UnplayedItemCount     int       `json:"unplayedItemCount,omitempty"`
	CommunityRating       float32   `json:"communityRating,omitempty"`
	OfficialRating        string    `json:"officialRating,omitempty"`
	Status                string    `json:"status,omitempty"`
	ProductionYear        int       `json:"productionYear,omitempty"`
	SeriesID              uuid.UUID `json:"seriesId,omitempty"`
	SeriesName            string    `json:"seriesName,omitempty"`
	SeasonID              uuid.UUID `json:"seasonId,omitempty"`
	ParentIndexNumber     int       `json:"parentIndexNumber,omitempty"`
	IndexNumber           int       `json:"indexNumber,omitempty"`
	AddedAt               int64     `json:"addedAt,omitempty"`
}

// SourceRow is the persisted record of a media source, keyed by
// (itemID, sourceID).
type SourceRow struct {
	ID        string    `json:"id"`
	ItemID    uuid.UUID `json:"itemId"`
	Name      string    `json:"name"`
	Container string    `json:"container,omitempty"`
	Size      int64     `json:"size,omitempty"`

	// DownloadPath is the pre-assigned destination, set when a download is
	// requested so the offline view can reflect "download requested" even
	// if the process dies before the transfer completes.
	DownloadPath string `json:"downloadPath,omitempty"`

	// ResidentPath is set only once the transfer completed. It is the
	// single authority for "is this source downloaded".
	ResidentPath string `json:"residentPath,omitempty"`

	// TransferID is the external transfer identifier while a transfer is
	// in flight, persisted for reconciliation after a restart.
	TransferID string `json:"transferId,omitempty"`
}

// IsDownloaded reports whether the row's content is resident on device
func (r SourceRow) IsDownloaded() bool {
	return r.ResidentPath != ""
}

// TrickPlayManifestRow is the persisted trickplay metadata for an item
type TrickPlayManifestRow struct {
	ItemID           uuid.UUID `json:"itemId"`
	WidthResolutions []int     `json:"widthResolutions"`
}

// CacheStore is the durable keyed storage behind the offline repository and
// the download manager. Implementations must serialize writes at least at
// row granularity; point reads return (row, ok), scans return an error.
type CacheStore interface {
	// === Items ===
	UpsertItem(row ItemRow) error
	GetItem(serverID string, itemID uuid.UUID) (ItemRow, bool)
	GetItems(serverID string) ([]ItemRow, error)
	GetAllItems() ([]ItemRow, error)
	GetResumeItems(serverID string) ([]ItemRow, error)
	DeleteItem(serverID string, itemID uuid.UUID) error

	// Playback bookkeeping (per-row atomic updates)
	SetPlaybackPosition(serverID string, itemID uuid.UUID, positionTicks int64) error
	SetPlayed(serverID string, itemID uuid.UUID, played bool) error

	// === Sources ===
	UpsertSource(row SourceRow) error
	GetSource(itemID uuid.UUID, sourceID string) (SourceRow, bool)
	GetSources(itemID uuid.UUID) ([]SourceRow, error)
	GetActiveTransfers() ([]SourceRow, error)
	SetSourceTransferID(itemID uuid.UUID, sourceID, transferID string) error
	SetSourceResidentPath(itemID uuid.UUID, sourceID, path string) error
	DeleteSource(itemID uuid.UUID, sourceID string) error

	// UpsertItemWithSource writes an item row and a source row in a single
	// transaction so a download request never leaves a half-written pair.
	UpsertItemWithSource(item ItemRow, source SourceRow) error

	// === Trickplay ===
	SaveTrickPlayManifest(row TrickPlayManifestRow) error
	GetTrickPlayManifest(itemID uuid.UUID) (TrickPlayManifestRow, bool)
	DeleteTrickPlayManifest(itemID uuid.UUID) error

	// === Lifecycle ===
	Close() error
}
