package jellyfin

import (
	"time"

	"github.com/finwatch/finwatch/internal/domain"
	"github.com/google/uuid"
)

// Jellyfin uses 100-nanosecond ticks
const ticksPerSecond = 10_000_000

// MapViews converts Jellyfin user views to domain views
func MapViews(items []Item) []domain.View {
	views := make([]domain.View, 0, len(items))
	for _, item := range items {
		switch item.CollectionType {
		case "movies", "tvshows", "mixed", "":
		default:
			// Skip music and other view types
			continue
		}
		views = append(views, domain.View{
			ID:             parseID(item.ID),
			Name:           item.Name,
			CollectionType: item.CollectionType,
		})
	}
	return views
}

// MapItem converts a single Jellyfin item to its domain variant
func MapItem(item Item) domain.Item {
	switch item.Type {
	case "Series":
		return mapShow(item)
	case "Season":
		return mapSeason(item)
	case "Episode":
		return mapEpisode(item)
	default:
		return mapMovie(item)
	}
}

// MapItems converts a Jellyfin item listing, dropping unsupported types
func MapItems(items []Item) []domain.Item {
	out := make([]domain.Item, 0, len(items))
	for _, item := range items {
		switch item.Type {
		case "Movie", "Series", "Season", "Episode":
			out = append(out, MapItem(item))
		}
	}
	return out
}

// MapSeasons converts Jellyfin items to domain seasons
func MapSeasons(items []Item) []*domain.Season {
	seasons := make([]*domain.Season, 0, len(items))
	for _, item := range items {
		if item.Type != "Season" {
			continue
		}
		seasons = append(seasons, mapSeason(item))
	}
	return seasons
}

// MapEpisodes converts Jellyfin items to domain episodes
func MapEpisodes(items []Item) []*domain.Episode {
	episodes := make([]*domain.Episode, 0, len(items))
	for _, item := range items {
		if item.Type != "Episode" {
			continue
		}
		episodes = append(episodes, mapEpisode(item))
	}
	return episodes
}

// MapSources converts Jellyfin media sources to domain sources
func MapSources(sources []MediaSource, itemID uuid.UUID) []domain.Source {
	out := make([]domain.Source, 0, len(sources))
	for _, src := range sources {
		out = append(out, domain.Source{
			ID:        src.ID,
			ItemID:    itemID,
			Name:      src.Name,
			Container: src.Container,
			Size:      src.Size,
		})
	}
	return out
}

// MapIntro converts intro-skipper seconds to tick-based timestamps
func MapIntro(resp IntroTimestamps) *domain.Intro {
	return &domain.Intro{
		Start: int64(resp.IntroStart * ticksPerSecond),
		End:   int64(resp.IntroEnd * ticksPerSecond),
	}
}

// MapUserConfiguration converts the server user configuration
func MapUserConfiguration(cfg UserConfiguration) *domain.UserConfiguration {
	return &domain.UserConfiguration{
		PlayDefaultAudioTrack:      cfg.PlayDefaultAudioTrack,
		SubtitleLanguagePreference: cfg.SubtitleLanguagePreference,
		DisplayMissingEpisodes:     cfg.DisplayMissingEpisodes,
		RememberAudioSelections:    cfg.RememberAudioSelections,
		RememberSubtitleSelections: cfg.RememberSubtitleSelections,
	}
}

func mapMovie(item Item) *domain.Movie {
	id := parseID(item.ID)
	m := &domain.Movie{
		ID:              id,
		Name:            item.Name,
		OriginalTitle:   item.OriginalTitle,
		Overview:        item.Overview,
		Sources:         MapSources(item.MediaSources, id),
		CanPlay:         item.PlayAccess != "None",
		CanDownload:     item.CanDownload,
		RuntimeTicks:    item.RunTimeTicks,
		CommunityRating: item.CommunityRating,
		OfficialRating:  item.OfficialRating,
		Status:          item.Status,
		ProductionYear:  item.ProductionYear,
		AddedAt:         parseDate(item.DateCreated),
	}
	applyUserData(item.UserData, &m.Played, &m.Favorite, &m.PlaybackPositionTicks, nil)
	return m
}

func mapShow(item Item) *domain.Show {
	s := &domain.Show{
		ID:              parseID(item.ID),
		Name:            item.Name,
		OriginalTitle:   item.OriginalTitle,
		Overview:        item.Overview,
		CanPlay:         item.PlayAccess != "None",
		CanDownload:     item.CanDownload,
		RuntimeTicks:    item.RunTimeTicks,
		CommunityRating: item.CommunityRating,
		OfficialRating:  item.OfficialRating,
		Status:          item.Status,
		ProductionYear:  item.ProductionYear,
		AddedAt:         parseDate(item.DateCreated),
	}
	applyUserData(item.UserData, &s.Played, &s.Favorite, nil, &s.UnplayedItemCount)
	return s
}

func mapSeason(item Item) *domain.Season {
	s := &domain.Season{
		ID:          parseID(item.ID),
		SeriesID:    parseID(item.SeriesID),
		SeriesName:  item.SeriesName,
		Name:        item.Name,
		Overview:    item.Overview,
		IndexNumber: item.IndexNumber,
	}
	applyUserData(item.UserData, &s.Played, &s.Favorite, nil, &s.UnplayedItemCount)
	return s
}

func mapEpisode(item Item) *domain.Episode {
	id := parseID(item.ID)
	e := &domain.Episode{
		ID:                id,
		Name:              item.Name,
		Overview:          item.Overview,
		SeriesID:          parseID(item.SeriesID),
		SeriesName:        item.SeriesName,
		SeasonID:          parseID(item.SeasonID),
		IndexNumber:       item.IndexNumber,
		ParentIndexNumber: item.ParentIndexNumber,
		Sources:           MapSources(item.MediaSources, id),
		CanPlay:           item.PlayAccess != "None",
		CanDownload:       item.CanDownload,
		RuntimeTicks:      item.RunTimeTicks,
		CommunityRating:   item.CommunityRating,
		AddedAt:           parseDate(item.DateCreated),
	}
	applyUserData(item.UserData, &e.Played, &e.Favorite, &e.PlaybackPositionTicks, nil)
	return e
}

func applyUserData(ud *UserData, played, favorite *bool, position *int64, unplayed *int) {
	if ud == nil {
		return
	}
	*played = ud.Played
	*favorite = ud.IsFavorite
	if position != nil {
		*position = ud.PlaybackPositionTicks
	}
	if unplayed != nil {
		*unplayed = ud.UnplayedItemCount
	}
}

func parseID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func parseDate(s string) int64 {
	if s == "" {
		return 0
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0
	}
	return t.Unix()
}
