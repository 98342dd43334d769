package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// ItemKind distinguishes the catalog content types
type ItemKind string

const (
	KindMovie   ItemKind = "movie"
	KindShow    ItemKind = "show"
	KindSeason  ItemKind = "season"
	KindEpisode ItemKind = "episode"
)

// Item is the polymorphic interface over the closed catalog variant set
// (Movie, Show, Season, Episode). It provides a common API for display,
// playback bookkeeping and download decisions across all content types.
// Domain entities implement this interface directly.
type Item interface {
	// GetID returns the unique identifier for this item
	GetID() uuid.UUID

	// GetName returns the display name
	GetName() string

	// GetOverview returns the plot synopsis
	GetOverview() string

	// GetKind returns the variant tag: movie, show, season, episode
	GetKind() ItemKind

	// GetPlayed reports whether the item is marked as watched
	GetPlayed() bool

	// GetFavorite reports whether the item is marked as favorite
	GetFavorite() bool

	// GetCanPlay reports whether the current user may play this item
	GetCanPlay() bool

	// GetCanDownload reports whether the current user may download this item
	GetCanDownload() bool

	// GetRuntimeTicks returns the total runtime in playback ticks
	GetRuntimeTicks() int64

	// GetPlaybackPositionTicks returns the saved resume position in ticks
	GetPlaybackPositionTicks() int64

	// GetUnplayedItemCount returns the unplayed-descendant count
	// (0 for leaf items)
	GetUnplayedItemCount() int

	// GetSources returns the playable media sources for this item
	GetSources() []Source
}

// Movie is a standalone feature film
type Movie struct {
	ID                    uuid.UUID
	Name                  string
	OriginalTitle         string
	Overview              string
	Sources               []Source
	Played                bool
	Favorite              bool
	CanPlay               bool
	CanDownload           bool
	RuntimeTicks          int64
	PlaybackPositionTicks int64
	CommunityRating       float32
	OfficialRating        string
	Status                string
	ProductionYear        int
	AddedAt               int64
}

func (m *Movie) GetID() uuid.UUID               { return m.ID }
func (m *Movie) GetName() string                { return m.Name }
func (m *Movie) GetOverview() string            { return m.Overview }
func (m *Movie) GetKind() ItemKind              { return KindMovie }
func (m *Movie) GetPlayed() bool                { return m.Played }
func (m *Movie) GetFavorite() bool              { return m.Favorite }
func (m *Movie) GetCanPlay() bool               { return m.CanPlay }
func (m *Movie) GetCanDownload() bool           { return m.CanDownload }
func (m *Movie) GetRuntimeTicks() int64         { return m.RuntimeTicks }
func (m *Movie) GetPlaybackPositionTicks() int64 { return m.PlaybackPositionTicks }
func (m *Movie) GetUnplayedItemCount() int      { return 0 }
func (m *Movie) GetSources() []Source           { return m.Sources }

// Show is a TV series container
type Show struct {
	ID                uuid.UUID
	Name              string
	OriginalTitle     string
	Overview          string
	Played            bool
	Favorite          bool
	CanPlay           bool
	CanDownload       bool
	RuntimeTicks      int64
	UnplayedItemCount int
	CommunityRating   float32
	OfficialRating    string
	Status            string
	ProductionYear    int
	AddedAt           int64
}

func (s *Show) GetID() uuid.UUID                { return s.ID }
func (s *Show) GetName() string                 { return s.Name }
func (s *Show) GetOverview() string             { return s.Overview }
func (s *Show) GetKind() ItemKind               { return KindShow }
func (s *Show) GetPlayed() bool                 { return s.Played }
func (s *Show) GetFavorite() bool               { return s.Favorite }
func (s *Show) GetCanPlay() bool                { return s.CanPlay }
func (s *Show) GetCanDownload() bool            { return s.CanDownload }
func (s *Show) GetRuntimeTicks() int64          { return s.RuntimeTicks }
func (s *Show) GetPlaybackPositionTicks() int64 { return 0 }
func (s *Show) GetUnplayedItemCount() int       { return s.UnplayedItemCount }
func (s *Show) GetSources() []Source            { return nil }

// Season is a season container within a show
type Season struct {
	ID                uuid.UUID
	SeriesID          uuid.UUID
	SeriesName        string
	Name              string
	Overview          string
	IndexNumber       int
	Played            bool
	Favorite          bool
	UnplayedItemCount int
}

func (s *Season) GetID() uuid.UUID                { return s.ID }
func (s *Season) GetName() string                 { return s.Name }
func (s *Season) GetOverview() string             { return s.Overview }
func (s *Season) GetKind() ItemKind               { return KindSeason }
func (s *Season) GetPlayed() bool                 { return s.Played }
func (s *Season) GetFavorite() bool               { return s.Favorite }
func (s *Season) GetCanPlay() bool                { return false }
func (s *Season) GetCanDownload() bool            { return false }
func (s *Season) GetRuntimeTicks() int64          { return 0 }
func (s *Season) GetPlaybackPositionTicks() int64 { return 0 }
func (s *Season) GetUnplayedItemCount() int       { return s.UnplayedItemCount }
func (s *Season) GetSources() []Source            { return nil }

// DisplayTitle returns the display title for the season
func (s Season) DisplayTitle() string {
	if s.IndexNumber == 0 {
		return "Specials"
	}
	if s.Name != "" && s.Name != fmt.Sprintf("Season %d", s.IndexNumber) {
		return s.Name
	}
	return fmt.Sprintf("Season %d", s.IndexNumber)
}

// Episode is a single episode within a season
type Episode struct {
	ID                    uuid.UUID
	Name                  string
	Overview              string
	SeriesID              uuid.UUID
	SeriesName            string
	SeasonID              uuid.UUID
	IndexNumber           int
	ParentIndexNumber     int
	Sources               []Source
	Played                bool
	Favorite              bool
	CanPlay               bool
	CanDownload           bool
	RuntimeTicks          int64
	PlaybackPositionTicks int64
	CommunityRating       float32
	AddedAt               int64
}

func (e *Episode) GetID() uuid.UUID                { return e.ID }
func (e *Episode) GetName() string                 { return e.Name }
func (e *Episode) GetOverview() string             { return e.Overview }
func (e *Episode) GetKind() ItemKind               { return KindEpisode }
func (e *Episode) GetPlayed() bool                 { return e.Played }
func (e *Episode) GetFavorite() bool               { return e.Favorite }
func (e *Episode) GetCanPlay() bool                { return e.CanPlay }
func (e *Episode) GetCanDownload() bool            { return e.CanDownload }
func (e *Episode) GetRuntimeTicks() int64          { return e.RuntimeTicks }
func (e *Episode) GetPlaybackPositionTicks() int64 { return e.PlaybackPositionTicks }
func (e *Episode) GetUnplayedItemCount() int       { return 0 }
func (e *Episode) GetSources() []Source            { return e.Sources }

// EpisodeCode returns the formatted episode code (e.g., "S01E05")
func (e Episode) EpisodeCode() string {
	return fmt.Sprintf("S%02dE%02d", e.ParentIndexNumber, e.IndexNumber)
}

// IsDownloaded reports whether any source of the item is resident on device.
// Pure function over the variant tag plus attributes, no type inspection.
func IsDownloaded(item Item) bool {
	for _, s := range item.GetSources() {
		if s.IsDownloaded() {
			return true
		}
	}
	return false
}

// ShouldResume reports whether playback should resume from the saved position
func ShouldResume(item Item) bool {
	pos := item.GetPlaybackPositionTicks()
	return pos > 0 && pos < item.GetRuntimeTicks() && !item.GetPlayed()
}

// View is a top-level library view on the server (Movies, Shows, ...)
type View struct {
	ID             uuid.UUID
	Name           string
	CollectionType string
}

// Intro holds skip-intro timestamps for an item, in playback ticks
type Intro struct {
	Start int64
	End   int64
}

// UserConfiguration is the server-side user playback configuration
type UserConfiguration struct {
	PlayDefaultAudioTrack      bool
	SubtitleLanguagePreference string
	DisplayMissingEpisodes     bool
	RememberAudioSelections    bool
	RememberSubtitleSelections bool
}
