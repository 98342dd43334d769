package jellyfin

// ItemsResponse represents a paginated list of items from Jellyfin
type ItemsResponse struct {
	Items            []Item `json:"Items"`
	TotalRecordCount int    `json:"TotalRecordCount"`
	StartIndex       int    `json:"StartIndex"`
}

// Item represents a media item from Jellyfin (movie, show, season, episode)
type Item struct {
	ID                string        `json:"Id"`
	Name              string        `json:"Name"`
	OriginalTitle     string        `json:"OriginalTitle,omitempty"`
	Overview          string        `json:"Overview"`
	Type              string        `json:"Type"`
	CollectionType    string        `json:"CollectionType,omitempty"` // For views: "movies", "tvshows"
	DateCreated       string        `json:"DateCreated,omitempty"`
	ProductionYear    int           `json:"ProductionYear,omitempty"`
	RunTimeTicks      int64         `json:"RunTimeTicks,omitempty"` // Duration in 100-nanosecond units
	CommunityRating   float32       `json:"CommunityRating,omitempty"`
	OfficialRating    string        `json:"OfficialRating,omitempty"`
	Status            string        `json:"Status,omitempty"`
	SeriesID          string        `json:"SeriesId,omitempty"`
	SeriesName        string        `json:"SeriesName,omitempty"`
	SeasonID          string        `json:"SeasonId,omitempty"`
	ParentIndexNumber int           `json:"ParentIndexNumber,omitempty"` // Season number
	IndexNumber       int           `json:"IndexNumber,omitempty"`       // Episode number
	PlayAccess        string        `json:"PlayAccess,omitempty"`
	CanDownload       bool          `json:"CanDownload,omitempty"`
	UserData          *UserData     `json:"UserData,omitempty"`
	MediaSources      []MediaSource `json:"MediaSources,omitempty"`
}

// UserData contains user-specific data for an item (watch status, progress)
type UserData struct {
	PlaybackPositionTicks int64 `json:"PlaybackPositionTicks"`
	PlayCount             int   `json:"PlayCount"`
	IsFavorite            bool  `json:"IsFavorite"`
	Played                bool  `json:"Played"`
	UnplayedItemCount     int   `json:"UnplayedItemCount,omitempty"`
}

// MediaSource represents a media source (file) for an item
type MediaSource struct {
	ID        string `json:"Id"`
	Name      string `json:"Name"`
	Container string `json:"Container"`
	Size      int64  `json:"Size"`
}

// PlaybackInfoResponse is the response from the PlaybackInfo endpoint
type PlaybackInfoResponse struct {
	MediaSources []MediaSource `json:"MediaSources"`
}

// UserResponse represents a Jellyfin user with configuration
type UserResponse struct {
	ID            string             `json:"Id"`
	Name          string             `json:"Name"`
	ServerID      string             `json:"ServerId"`
	Configuration *UserConfiguration `json:"Configuration,omitempty"`
}

// UserConfiguration is the server-side playback configuration of a user
type UserConfiguration struct {
	PlayDefaultAudioTrack      bool   `json:"PlayDefaultAudioTrack"`
	SubtitleLanguagePreference string `json:"SubtitleLanguagePreference"`
	DisplayMissingEpisodes     bool   `json:"DisplayMissingEpisodes"`
	RememberAudioSelections    bool   `json:"RememberAudioSelections"`
	RememberSubtitleSelections bool   `json:"RememberSubtitleSelections"`
}

// TrickplayManifest describes the available trickplay thumbnail widths
type TrickplayManifest struct {
	ItemID           string `json:"ItemId"`
	WidthResolutions []int  `json:"WidthResolutions"`
}

// IntroTimestamps is the response from the intro-skipper plugin
type IntroTimestamps struct {
	Valid           bool    `json:"Valid"`
	IntroStart      float64 `json:"IntroStart"` // seconds
	IntroEnd        float64 `json:"IntroEnd"`   // seconds
	ShowSkipPromptAt float64 `json:"ShowSkipPromptAt"`
	HideSkipPromptAt float64 `json:"HideSkipPromptAt"`
}

// PlaybackStartInfo is the body for playback start/progress reports
type PlaybackStartInfo struct {
	ItemID        string `json:"ItemId"`
	PositionTicks int64  `json:"PositionTicks"`
	IsPaused      bool   `json:"IsPaused"`
	PlayMethod    string `json:"PlayMethod"`
}

// PlaybackStopInfo is the body for playback stop reports
type PlaybackStopInfo struct {
	ItemID        string `json:"ItemId"`
	PositionTicks int64  `json:"PositionTicks"`
}

// ClientCapabilities is the body for the capabilities announcement
type ClientCapabilities struct {
	PlayableMediaTypes           []string `json:"PlayableMediaTypes"`
	SupportsMediaControl         bool     `json:"SupportsMediaControl"`
	SupportsPersistentIdentifier bool     `json:"SupportsPersistentIdentifier"`
}
