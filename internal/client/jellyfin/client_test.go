package jellyfin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/finwatch/finwatch/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoRequestErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, wantErr: domain.ErrAuthFailed},
		{name: "not found", status: http.StatusNotFound, wantErr: domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			client := NewClient(srv.URL, "token", "user", nil)
			_, err := client.GetUserViews(context.Background())
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDoRequestUnreachableServer(t *testing.T) {
	// Port 1 is never listening
	client := NewClient("http://127.0.0.1:1", "token", "user", nil)
	_, err := client.GetUserViews(context.Background())
	assert.ErrorIs(t, err, domain.ErrRemoteUnavailable)
}

func TestGetItemsParsesResponse(t *testing.T) {
	itemID := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Users/user/Items", r.URL.Path)
		assert.Equal(t, "Movie", r.URL.Query().Get("IncludeItemTypes"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"Items": [{
				"Id": "` + itemID.String() + `",
				"Name": "Blade Runner",
				"Type": "Movie",
				"RunTimeTicks": 70000000000,
				"UserData": {"Played": true, "PlaybackPositionTicks": 0}
			}],
			"TotalRecordCount": 57
		}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "token", "user", nil)
	items, total, err := client.GetItems(context.Background(), domain.ItemQuery{
		Kinds:     []domain.ItemKind{domain.KindMovie},
		Recursive: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 57, total)
	require.Len(t, items, 1)

	movie, ok := items[0].(*domain.Movie)
	require.True(t, ok)
	assert.Equal(t, itemID, movie.ID)
	assert.Equal(t, "Blade Runner", movie.Name)
	assert.True(t, movie.Played)
}

func TestGetStreamURLCarriesSourceAndToken(t *testing.T) {
	client := NewClient("http://media.local/", "secret", "user", nil)
	itemID := uuid.New()

	url, err := client.GetStreamURL(context.Background(), itemID, "src-9")
	require.NoError(t, err)
	assert.Contains(t, url, "http://media.local/Videos/"+itemID.String()+"/stream")
	assert.Contains(t, url, "mediaSourceId=src-9")
	assert.Contains(t, url, "api_key=secret")
	assert.Contains(t, url, "static=true")
}

func TestMapItemVariants(t *testing.T) {
	showID := uuid.New()
	seasonID := uuid.New()
	epID := uuid.New()

	ep := Item{
		ID:                epID.String(),
		Name:              "Pilot",
		Type:              "Episode",
		SeriesID:          showID.String(),
		SeasonID:          seasonID.String(),
		ParentIndexNumber: 1,
		IndexNumber:       3,
		UserData:          &UserData{PlaybackPositionTicks: 42},
	}

	mapped := MapItem(ep)
	episode, ok := mapped.(*domain.Episode)
	require.True(t, ok)
	assert.Equal(t, domain.KindEpisode, episode.GetKind())
	assert.Equal(t, showID, episode.SeriesID)
	assert.Equal(t, "S01E03", episode.EpisodeCode())
	assert.Equal(t, int64(42), episode.GetPlaybackPositionTicks())

	show := MapItem(Item{
		ID:       showID.String(),
		Name:     "Some Show",
		Type:     "Series",
		UserData: &UserData{UnplayedItemCount: 7},
	})
	assert.Equal(t, domain.KindShow, show.GetKind())
	assert.Equal(t, 7, show.GetUnplayedItemCount())
}

func TestMapViewsSkipsUnsupportedCollections(t *testing.T) {
	views := MapViews([]Item{
		{ID: uuid.NewString(), Name: "Movies", CollectionType: "movies"},
		{ID: uuid.NewString(), Name: "Music", CollectionType: "music"},
		{ID: uuid.NewString(), Name: "Shows", CollectionType: "tvshows"},
	})
	require.Len(t, views, 2)
	assert.Equal(t, "Movies", views[0].Name)
	assert.Equal(t, "Shows", views[1].Name)
}

func TestMapIntroConvertsSecondsToTicks(t *testing.T) {
	intro := MapIntro(IntroTimestamps{Valid: true, IntroStart: 1.5, IntroEnd: 30})
	assert.Equal(t, int64(15_000_000), intro.Start)
	assert.Equal(t, int64(300_000_000), intro.End)
}
