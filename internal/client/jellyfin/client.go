package jellyfin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/finwatch/finwatch/internal/domain"
	"github.com/google/uuid"
)

const (
	defaultTimeout = 60 * time.Second
	maxRetries     = 3
	baseRetryDelay = 500 * time.Millisecond
)

// Client is the remote catalog client for a Jellyfin server.
type Client struct {
	baseURL    string
	token      string
	userID     string
	deviceID   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new Jellyfin API client
func NewClient(baseURL, token, userID string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		token:    token,
		userID:   userID,
		deviceID: uuid.NewString(),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logger,
	}
}

// BaseURL returns the server base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) authHeader() string {
	return fmt.Sprintf(
		`MediaBrowser Client="finwatch", Device="finwatch", DeviceId="%s", Version="1.0", Token="%s"`,
		c.deviceID, c.token,
	)
}

// doRequest performs an authenticated HTTP request to the Jellyfin API.
// Includes retry logic with exponential backoff for 5xx server errors;
// every failure is mapped to a domain error kind before returning.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body interface{}) ([]byte, error) {
	reqURL := fmt.Sprintf("%s%s", c.baseURL, path)
	if query != nil {
		reqURL = fmt.Sprintf("%s?%s", reqURL, query.Encode())
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		// Wait before retry (exponential backoff)
		if attempt > 0 {
			delay := baseRetryDelay * time.Duration(1<<(attempt-1)) // 500ms, 1s, 2s
			c.logger.Debug("retrying request", "attempt", attempt, "delay", delay, "url", reqURL)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("Accept", "application/json")
		req.Header.Set("Authorization", c.authHeader())
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		c.logger.Debug("jellyfin request", "method", method, "url", reqURL, "attempt", attempt)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Error("jellyfin request failed", "error", err)
			return nil, fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			return nil, domain.ErrAuthFailed
		case resp.StatusCode == http.StatusNotFound:
			return nil, domain.ErrNotFound
		case resp.StatusCode >= 500 && resp.StatusCode < 600:
			lastErr = fmt.Errorf("%w: server error %d", domain.ErrRemoteUnavailable, resp.StatusCode)
			c.logger.Warn("jellyfin server error, will retry",
				"status", resp.StatusCode,
				"attempt", attempt,
				"maxRetries", maxRetries,
				"path", path,
			)
			continue
		case resp.StatusCode >= 300:
			c.logger.Error("jellyfin request error", "status", resp.StatusCode, "body", string(respBody))
			return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}

		return respBody, nil
	}

	c.logger.Error("jellyfin request failed after retries", "error", lastErr, "path", path)
	return nil, lastErr
}

func (c *Client) getItems(ctx context.Context, path string, query url.Values) (ItemsResponse, error) {
	var resp ItemsResponse

	body, err := c.doRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return resp, err
	}

	if err := json.Unmarshal(body, &resp); err != nil {
		return resp, fmt.Errorf("failed to parse response: %w", err)
	}
	return resp, nil
}

// GetUserViews returns the user's top-level library views
func (c *Client) GetUserViews(ctx context.Context) ([]domain.View, error) {
	resp, err := c.getItems(ctx, fmt.Sprintf("/Users/%s/Views", c.userID), nil)
	if err != nil {
		return nil, err
	}
	return MapViews(resp.Items), nil
}

// GetItem returns a single item with full detail fields
func (c *Client) GetItem(ctx context.Context, itemID uuid.UUID) (domain.Item, error) {
	path := fmt.Sprintf("/Users/%s/Items/%s", c.userID, itemID)
	body, err := c.doRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}

	var item Item
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return MapItem(item), nil
}

// GetItems returns a filtered, sorted, paged item listing
func (c *Client) GetItems(ctx context.Context, q domain.ItemQuery) ([]domain.Item, int, error) {
	query := url.Values{}
	if q.ParentID != uuid.Nil {
		query.Set("ParentId", q.ParentID.String())
	}
	if len(q.Kinds) > 0 {
		query.Set("IncludeItemTypes", joinKinds(q.Kinds))
	}
	query.Set("Recursive", strconv.FormatBool(q.Recursive))
	query.Set("Fields", "Overview,DateCreated,MediaSources")
	if q.SortBy != "" {
		query.Set("SortBy", string(q.SortBy))
	}
	if q.SortOrder != "" {
		query.Set("SortOrder", string(q.SortOrder))
	}
	query.Set("StartIndex", strconv.Itoa(q.StartIndex))
	if q.Limit > 0 {
		query.Set("Limit", strconv.Itoa(q.Limit))
	}

	resp, err := c.getItems(ctx, fmt.Sprintf("/Users/%s/Items", c.userID), query)
	if err != nil {
		return nil, 0, err
	}
	return MapItems(resp.Items), resp.TotalRecordCount, nil
}

// GetSeasons returns the seasons of a series
func (c *Client) GetSeasons(ctx context.Context, seriesID uuid.UUID) ([]*domain.Season, error) {
	query := url.Values{}
	query.Set("userId", c.userID)

	resp, err := c.getItems(ctx, fmt.Sprintf("/Shows/%s/Seasons", seriesID), query)
	if err != nil {
		return nil, err
	}
	return MapSeasons(resp.Items), nil
}

// GetEpisodes returns the episodes of a season
func (c *Client) GetEpisodes(ctx context.Context, seriesID, seasonID uuid.UUID) ([]*domain.Episode, error) {
	query := url.Values{}
	query.Set("userId", c.userID)
	query.Set("seasonId", seasonID.String())
	query.Set("Fields", "Overview,MediaSources")

	resp, err := c.getItems(ctx, fmt.Sprintf("/Shows/%s/Episodes", seriesID), query)
	if err != nil {
		return nil, err
	}
	return MapEpisodes(resp.Items), nil
}

// GetResumeItems returns items with in-progress playback
func (c *Client) GetResumeItems(ctx context.Context) ([]domain.Item, error) {
	query := url.Values{}
	query.Set("Fields", "Overview,MediaSources")

	resp, err := c.getItems(ctx, fmt.Sprintf("/Users/%s/Items/Resume", c.userID), query)
	if err != nil {
		return nil, err
	}
	return MapItems(resp.Items), nil
}

// GetLatestMedia returns the latest additions under a parent
func (c *Client) GetLatestMedia(ctx context.Context, parentID uuid.UUID) ([]domain.Item, error) {
	query := url.Values{}
	if parentID != uuid.Nil {
		query.Set("ParentId", parentID.String())
	}

	// The Latest endpoint returns a bare array, not an ItemsResponse
	body, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/Users/%s/Items/Latest", c.userID), query, nil)
	if err != nil {
		return nil, err
	}

	var items []Item
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return MapItems(items), nil
}

// GetNextUp returns the next episodes to watch
func (c *Client) GetNextUp(ctx context.Context, seriesID uuid.UUID) ([]*domain.Episode, error) {
	query := url.Values{}
	query.Set("userId", c.userID)
	if seriesID != uuid.Nil {
		query.Set("seriesId", seriesID.String())
	}

	resp, err := c.getItems(ctx, "/Shows/NextUp", query)
	if err != nil {
		return nil, err
	}
	return MapEpisodes(resp.Items), nil
}

// GetFavoriteItems returns the user's favorites
func (c *Client) GetFavoriteItems(ctx context.Context) ([]domain.Item, error) {
	query := url.Values{}
	query.Set("Filters", "IsFavorite")
	query.Set("Recursive", "true")
	query.Set("IncludeItemTypes", "Movie,Series,Episode")

	resp, err := c.getItems(ctx, fmt.Sprintf("/Users/%s/Items", c.userID), query)
	if err != nil {
		return nil, err
	}
	return MapItems(resp.Items), nil
}

// GetSearchItems performs a server-side search
func (c *Client) GetSearchItems(ctx context.Context, searchQuery string) ([]domain.Item, error) {
	query := url.Values{}
	query.Set("searchTerm", searchQuery)
	query.Set("Recursive", "true")
	query.Set("IncludeItemTypes", "Movie,Series")

	resp, err := c.getItems(ctx, fmt.Sprintf("/Users/%s/Items", c.userID), query)
	if err != nil {
		return nil, err
	}
	return MapItems(resp.Items), nil
}

// GetMediaSources returns the playable sources of an item
func (c *Client) GetMediaSources(ctx context.Context, itemID uuid.UUID) ([]domain.Source, error) {
	query := url.Values{}
	query.Set("userId", c.userID)

	body, err := c.doRequest(ctx, http.MethodPost, fmt.Sprintf("/Items/%s/PlaybackInfo", itemID), query, nil)
	if err != nil {
		return nil, err
	}

	var resp PlaybackInfoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return MapSources(resp.MediaSources, itemID), nil
}

// GetStreamURL resolves the authoritative direct-stream URL for a source.
// The URL carries the access token, so it must be resolved fresh rather than
// cached by callers.
func (c *Client) GetStreamURL(ctx context.Context, itemID uuid.UUID, sourceID string) (string, error) {
	query := url.Values{}
	query.Set("static", "true")
	query.Set("mediaSourceId", sourceID)
	query.Set("deviceId", c.deviceID)
	query.Set("api_key", c.token)

	return fmt.Sprintf("%s/Videos/%s/stream?%s", c.baseURL, itemID, query.Encode()), nil
}

// GetIntroTimestamps returns skip-intro timestamps when the server plugin
// provides them
func (c *Client) GetIntroTimestamps(ctx context.Context, itemID uuid.UUID) (*domain.Intro, error) {
	body, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/Episode/%s/IntroTimestamps/v1", itemID), nil, nil)
	if err != nil {
		return nil, err
	}

	var resp IntroTimestamps
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if !resp.Valid {
		return nil, nil
	}
	return MapIntro(resp), nil
}

// GetTrickPlayManifest returns the trickplay manifest for an item
func (c *Client) GetTrickPlayManifest(ctx context.Context, itemID uuid.UUID) (*domain.TrickPlayManifest, error) {
	body, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/Trickplay/%s/GetManifest", itemID), nil, nil)
	if err != nil {
		return nil, err
	}

	var resp TrickplayManifest
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &domain.TrickPlayManifest{ItemID: itemID, WidthResolutions: resp.WidthResolutions}, nil
}

// GetTrickPlayData returns the raw thumbnail-strip data for the given width
func (c *Client) GetTrickPlayData(ctx context.Context, itemID uuid.UUID, width int) ([]byte, error) {
	return c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/Trickplay/%s/%d/GetBIF", itemID, width), nil, nil)
}

// PostCapabilities announces client capabilities to the server
func (c *Client) PostCapabilities(ctx context.Context) error {
	caps := ClientCapabilities{
		PlayableMediaTypes:           []string{"Video"},
		SupportsMediaControl:         false,
		SupportsPersistentIdentifier: true,
	}
	_, err := c.doRequest(ctx, http.MethodPost, "/Sessions/Capabilities/Full", nil, caps)
	return err
}

// PostPlaybackStart reports the start of a playback session
func (c *Client) PostPlaybackStart(ctx context.Context, itemID uuid.UUID) error {
	info := PlaybackStartInfo{ItemID: itemID.String(), PlayMethod: "DirectPlay"}
	_, err := c.doRequest(ctx, http.MethodPost, "/Sessions/Playing", nil, info)
	return err
}

// PostPlaybackProgress reports in-session playback progress
func (c *Client) PostPlaybackProgress(ctx context.Context, itemID uuid.UUID, positionTicks int64, paused bool) error {
	info := PlaybackStartInfo{
		ItemID:        itemID.String(),
		PositionTicks: positionTicks,
		IsPaused:      paused,
		PlayMethod:    "DirectPlay",
	}
	_, err := c.doRequest(ctx, http.MethodPost, "/Sessions/Playing/Progress", nil, info)
	return err
}

// PostPlaybackStop reports the end of a playback session
func (c *Client) PostPlaybackStop(ctx context.Context, itemID uuid.UUID, positionTicks int64) error {
	info := PlaybackStopInfo{ItemID: itemID.String(), PositionTicks: positionTicks}
	_, err := c.doRequest(ctx, http.MethodPost, "/Sessions/Playing/Stopped", nil, info)
	return err
}

// MarkAsPlayed marks an item watched on the server
func (c *Client) MarkAsPlayed(ctx context.Context, itemID uuid.UUID) error {
	_, err := c.doRequest(ctx, http.MethodPost, fmt.Sprintf("/Users/%s/PlayedItems/%s", c.userID, itemID), nil, nil)
	return err
}

// MarkAsUnplayed marks an item unwatched on the server
func (c *Client) MarkAsUnplayed(ctx context.Context, itemID uuid.UUID) error {
	_, err := c.doRequest(ctx, http.MethodDelete, fmt.Sprintf("/Users/%s/PlayedItems/%s", c.userID, itemID), nil, nil)
	return err
}

// MarkAsFavorite adds an item to the user's favorites
func (c *Client) MarkAsFavorite(ctx context.Context, itemID uuid.UUID) error {
	_, err := c.doRequest(ctx, http.MethodPost, fmt.Sprintf("/Users/%s/FavoriteItems/%s", c.userID, itemID), nil, nil)
	return err
}

// UnmarkAsFavorite removes an item from the user's favorites
func (c *Client) UnmarkAsFavorite(ctx context.Context, itemID uuid.UUID) error {
	_, err := c.doRequest(ctx, http.MethodDelete, fmt.Sprintf("/Users/%s/FavoriteItems/%s", c.userID, itemID), nil, nil)
	return err
}

// GetUserConfiguration fetches the user's server-side configuration
func (c *Client) GetUserConfiguration(ctx context.Context) (*domain.UserConfiguration, error) {
	body, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/Users/%s", c.userID), nil, nil)
	if err != nil {
		return nil, err
	}

	var resp UserResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Configuration == nil {
		return &domain.UserConfiguration{}, nil
	}
	return MapUserConfiguration(*resp.Configuration), nil
}

func joinKinds(kinds []domain.ItemKind) string {
	names := make([]string, 0, len(kinds))
	for _, k := range kinds {
		switch k {
		case domain.KindMovie:
			names = append(names, "Movie")
		case domain.KindShow:
			names = append(names, "Series")
		case domain.KindSeason:
			names = append(names, "Season")
		case domain.KindEpisode:
			names = append(names, "Episode")
		}
	}
	return strings.Join(names, ",")
}
