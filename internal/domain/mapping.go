package domain

// Pure conversions between persisted rows and domain entities.

// ToItem materializes the row into its domain variant, attaching the given
// source rows.
func (r ItemRow) ToItem(sources []SourceRow) Item {
	switch r.Kind {
	case KindShow:
		return &Show{
			ID:                r.ID,
			Name:              r.Name,
			OriginalTitle:     r.OriginalTitle,
			Overview:          r.Overview,
			Played:            r.Played,
			Favorite:          r.Favorite,
			CanPlay:           true,
			CanDownload:       false,
			RuntimeTicks:      r.RuntimeTicks,
			UnplayedItemCount: r.UnplayedItemCount,
			CommunityRating:   r.CommunityRating,
			OfficialRating:    r.OfficialRating,
			Status:            r.Status,
			ProductionYear:    r.ProductionYear,
			AddedAt:           r.AddedAt,
		}
	case KindSeason:
		return &Season{
			ID:                r.ID,
			SeriesID:          r.SeriesID,
			SeriesName:        r.SeriesName,
			Name:              r.Name,
			Overview:          r.Overview,
			IndexNumber:       r.IndexNumber,
			Played:            r.Played,
			Favorite:          r.Favorite,
			UnplayedItemCount: r.UnplayedItemCount,
		}
	case KindEpisode:
		return &Episode{
			ID:                    r.ID,
			Name:                  r.Name,
			Overview:              r.Overview,
			SeriesID:              r.SeriesID,
			SeriesName:            r.SeriesName,
			SeasonID:              r.SeasonID,
			IndexNumber:           r.IndexNumber,
			ParentIndexNumber:     r.ParentIndexNumber,
			Sources:               toSources(sources),
			Played:                r.Played,
			Favorite:              r.Favorite,
			CanPlay:               true,
			CanDownload:           true,
			RuntimeTicks:          r.RuntimeTicks,
			PlaybackPositionTicks: r.PlaybackPositionTicks,
			CommunityRating:       r.CommunityRating,
			AddedAt:               r.AddedAt,
		}
	default:
		return &Movie{
			ID:                    r.ID,
			Name:                  r.Name,
			OriginalTitle:         r.OriginalTitle,
			Overview:              r.Overview,
			Sources:               toSources(sources),
			Played:                r.Played,
			Favorite:              r.Favorite,
			CanPlay:               true,
			CanDownload:           true,
			RuntimeTicks:          r.RuntimeTicks,
			PlaybackPositionTicks: r.PlaybackPositionTicks,
			CommunityRating:       r.CommunityRating,
			OfficialRating:        r.OfficialRating,
			Status:                r.Status,
			ProductionYear:        r.ProductionYear,
			AddedAt:               r.AddedAt,
		}
	}
}

// ToSource converts a persisted source row into a domain source. The domain
// path is the resident path: a row with only a pre-assigned download path is
// not downloaded yet.
func (r SourceRow) ToSource() Source {
	return Source{
		ID:        r.ID,
		ItemID:    r.ItemID,
		Name:      r.Name,
		Container: r.Container,
		Size:      r.Size,
		Path:      r.ResidentPath,
	}
}

func toSources(rows []SourceRow) []Source {
	if len(rows) == 0 {
		return nil
	}
	sources := make([]Source, 0, len(rows))
	for _, row := range rows {
		sources = append(sources, row.ToSource())
	}
	return sources
}

// ItemRowFrom flattens a domain item into its persisted row form.
func ItemRowFrom(item Item, serverID string) ItemRow {
	row := ItemRow{
		ID:                    item.GetID(),
		ServerID:              serverID,
		Kind:                  item.GetKind(),
		Name:                  item.GetName(),
		Overview:              item.GetOverview(),
		Played:                item.GetPlayed(),
		Favorite:              item.GetFavorite(),
		RuntimeTicks:          item.GetRuntimeTicks(),
		PlaybackPositionTicks: item.GetPlaybackPositionTicks(),
		UnplayedItemCount:     item.GetUnplayedItemCount(),
	}

	switch v := item.(type) {
	case *Movie:
		row.OriginalTitle = v.OriginalTitle
		row.CommunityRating = v.CommunityRating
		row.OfficialRating = v.OfficialRating
		row.Status = v.Status
		row.ProductionYear = v.ProductionYear
		row.AddedAt = v.AddedAt
	case *Show:
		row.OriginalTitle = v.OriginalTitle
		row.CommunityRating = v.CommunityRating
		row.OfficialRating = v.OfficialRating
		row.Status = v.Status
		row.ProductionYear = v.ProductionYear
		row.AddedAt = v.AddedAt
	case *Season:
		row.SeriesID = v.SeriesID
		row.SeriesName = v.SeriesName
		row.IndexNumber = v.IndexNumber
	case *Episode:
		row.SeriesID = v.SeriesID
		row.SeriesName = v.SeriesName
		row.SeasonID = v.SeasonID
		row.IndexNumber = v.IndexNumber
		row.ParentIndexNumber = v.ParentIndexNumber
		row.CommunityRating = v.CommunityRating
		row.AddedAt = v.AddedAt
	}

	return row
}

// SourceRowFrom builds the persisted row for a source with its pre-assigned
// download destination.
func SourceRowFrom(s Source, downloadPath string) SourceRow {
	return SourceRow{
		ID:           s.ID,
		ItemID:       s.ItemID,
		Name:         s.Name,
		Container:    s.Container,
		Size:         s.Size,
		DownloadPath: downloadPath,
		ResidentPath: s.Path,
	}
}
