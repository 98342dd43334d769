package domain

import "github.com/google/uuid"

// Source is a specific playable media file or stream associated with an Item.
type Source struct {
	ID        string
	ItemID    uuid.UUID
	Name      string
	Container string
	Size      int64

	// Path is the resident file path on device. Empty until the source
	// content has actually been downloaded.
	Path string
}

// IsDownloaded reports whether the source content is resident on device.
// A source is downloaded iff it carries a non-empty resident path.
func (s Source) IsDownloaded() bool {
	return s.Path != ""
}

// TrickPlayManifest describes the scrubbing-preview thumbnail strips
// available for an item.
type TrickPlayManifest struct {
	ItemID uuid.UUID

	// WidthResolutions lists the available thumbnail strip widths in pixels
	WidthResolutions []int
}
