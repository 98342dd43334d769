package repository

import (
	"context"
	"testing"

	"github.com/finwatch/finwatch/internal/domain"
	"github.com/finwatch/finwatch/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testServerID = "server-a"

func newOfflineFixture(t *testing.T) (*Offline, *store.CacheStore) {
	t.Helper()

	st, err := store.NewCacheStore("")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	session := domain.Session{ServerID: testServerID, UserID: "user-1"}
	return NewOffline(st, session, t.TempDir(), nil), st
}

func seedMovie(t *testing.T, st *store.CacheStore, serverID, name string, downloaded bool) uuid.UUID {
	t.Helper()

	id := uuid.New()
	require.NoError(t, st.UpsertItem(domain.ItemRow{
		ID:           id,
		ServerID:     serverID,
		Kind:         domain.KindMovie,
		Name:         name,
		RuntimeTicks: 72_000_000_000,
	}))

	row := domain.SourceRow{
		ID:        "src-1",
		ItemID:    id,
		Name:      name,
		Container: "mkv",
		Size:      1 << 30,
	}
	if downloaded {
		row.DownloadPath = "/media/" + id.String() + ".src-1.download"
		row.ResidentPath = row.DownloadPath
	}
	require.NoError(t, st.UpsertSource(row))
	return id
}

func TestOfflineHidesItemsWithoutResidentSource(t *testing.T) {
	repo, st := newOfflineFixture(t)
	ctx := context.Background()

	downloadedID := seedMovie(t, st, testServerID, "Alien", true)
	pendingID := seedMovie(t, st, testServerID, "Brazil", false)

	items, total, err := repo.GetItems(ctx, domain.ItemQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, downloadedID, items[0].GetID())

	_, err = repo.GetItem(ctx, pendingID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	item, err := repo.GetItem(ctx, downloadedID)
	require.NoError(t, err)
	assert.True(t, domain.IsDownloaded(item))
}

func TestOfflineScopesQueriesToSession(t *testing.T) {
	repo, st := newOfflineFixture(t)
	ctx := context.Background()

	seedMovie(t, st, testServerID, "Alien", true)
	otherID := seedMovie(t, st, "server-b", "Dune", true)

	items, _, err := repo.GetItems(ctx, domain.ItemQuery{})
	require.NoError(t, err)
	require.Len(t, items, 1)

	_, err = repo.GetItem(ctx, otherID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOfflinePlaybackStopThresholds(t *testing.T) {
	tests := []struct {
		name         string
		percentage   int
		ticks        int64
		wantPosition int64
		wantPlayed   bool
	}{
		{name: "below lower resets unwatched", percentage: 5, ticks: 12345, wantPosition: 0, wantPlayed: false},
		{name: "above upper resets watched", percentage: 95, ticks: 999, wantPosition: 0, wantPlayed: true},
		{name: "in between persists verbatim", percentage: 50, ticks: 5000, wantPosition: 5000, wantPlayed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, st := newOfflineFixture(t)
			id := seedMovie(t, st, testServerID, "Alien", true)

			err := repo.PostPlaybackStop(context.Background(), id, tt.ticks, tt.percentage)
			require.NoError(t, err)

			row, ok := st.GetItem(testServerID, id)
			require.True(t, ok)
			assert.Equal(t, tt.wantPosition, row.PlaybackPositionTicks)
			assert.Equal(t, tt.wantPlayed, row.Played)
		})
	}
}

func TestOfflineBoundaryPercentagesPersistVerbatim(t *testing.T) {
	// Exactly 10 and exactly 90 fall in the persist band
	for _, pct := range []int{10, 90} {
		repo, st := newOfflineFixture(t)
		id := seedMovie(t, st, testServerID, "Alien", true)

		require.NoError(t, repo.PostPlaybackStop(context.Background(), id, 4242, pct))

		row, ok := st.GetItem(testServerID, id)
		require.True(t, ok)
		assert.Equal(t, int64(4242), row.PlaybackPositionTicks)
		assert.False(t, row.Played)
	}
}

func TestOfflineMarkPlayedClampsPosition(t *testing.T) {
	repo, st := newOfflineFixture(t)
	ctx := context.Background()
	id := seedMovie(t, st, testServerID, "Alien", true)

	require.NoError(t, repo.MarkAsPlayed(ctx, id))
	row, _ := st.GetItem(testServerID, id)
	assert.True(t, row.Played)
	assert.Equal(t, row.RuntimeTicks, row.PlaybackPositionTicks)

	require.NoError(t, repo.MarkAsUnplayed(ctx, id))
	row, _ = st.GetItem(testServerID, id)
	assert.False(t, row.Played)
	assert.Zero(t, row.PlaybackPositionTicks)
}

func TestOfflineUnsupportedOperations(t *testing.T) {
	repo, _ := newOfflineFixture(t)
	ctx := context.Background()
	id := uuid.New()

	assert.ErrorIs(t, repo.MarkAsFavorite(ctx, id), domain.ErrNotSupported)
	assert.ErrorIs(t, repo.UnmarkAsFavorite(ctx, id), domain.ErrNotSupported)

	_, err := repo.GetUserConfiguration(ctx)
	assert.ErrorIs(t, err, domain.ErrNotSupported)
}

func TestOfflineEmptyResultOperations(t *testing.T) {
	repo, _ := newOfflineFixture(t)
	ctx := context.Background()

	views, err := repo.GetUserViews(ctx)
	require.NoError(t, err)
	assert.Empty(t, views)

	latest, err := repo.GetLatestMedia(ctx, uuid.Nil)
	require.NoError(t, err)
	assert.Empty(t, latest)

	next, err := repo.GetNextUp(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, next)

	intro, err := repo.GetIntroTimestamps(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, intro)
}

func TestOfflineStreamURLIsResidentPath(t *testing.T) {
	repo, st := newOfflineFixture(t)
	ctx := context.Background()

	id := seedMovie(t, st, testServerID, "Alien", true)
	url, err := repo.GetStreamURL(ctx, id, "src-1")
	require.NoError(t, err)
	assert.Equal(t, "/media/"+id.String()+".src-1.download", url)

	pending := seedMovie(t, st, testServerID, "Brazil", false)
	_, err = repo.GetStreamURL(ctx, pending, "src-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetDownloadsScoping(t *testing.T) {
	repo, st := newOfflineFixture(t)
	ctx := context.Background()

	seedMovie(t, st, testServerID, "Alien", true)
	seedMovie(t, st, "server-b", "Dune", true)
	seedMovie(t, st, testServerID, "Brazil", false)

	scoped, err := repo.GetDownloads(ctx, true)
	require.NoError(t, err)
	assert.Len(t, scoped, 1)

	all, err := repo.GetDownloads(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestGetDownloadsIncludesRunningTransfers(t *testing.T) {
	repo, st := newOfflineFixture(t)
	ctx := context.Background()

	id := seedMovie(t, st, testServerID, "Alien", false)
	require.NoError(t, st.SetSourceTransferID(id, "src-1", "transfer-42"))

	items, err := repo.GetDownloads(ctx, true)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, id, items[0].GetID())
}

func TestOfflineSearchRanksFuzzyMatches(t *testing.T) {
	repo, st := newOfflineFixture(t)
	ctx := context.Background()

	seedMovie(t, st, testServerID, "Blade Runner", true)
	seedMovie(t, st, testServerID, "The Thing", true)
	seedMovie(t, st, testServerID, "Blade Runner 2049", false)

	results, err := repo.GetSearchItems(ctx, "blade")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Blade Runner", results[0].GetName())

	empty, err := repo.GetSearchItems(ctx, "   ")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestOfflineGetItemsSortingAndPaging(t *testing.T) {
	repo, st := newOfflineFixture(t)
	ctx := context.Background()

	seedMovie(t, st, testServerID, "Citizen Kane", true)
	seedMovie(t, st, testServerID, "Alien", true)
	seedMovie(t, st, testServerID, "Brazil", true)

	items, total, err := repo.GetItems(ctx, domain.ItemQuery{SortBy: domain.SortByName})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, "Alien", items[0].GetName())
	assert.Equal(t, "Citizen Kane", items[2].GetName())

	page, total, err := repo.GetItems(ctx, domain.ItemQuery{SortBy: domain.SortByName, StartIndex: 1, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 1)
	assert.Equal(t, "Brazil", page[0].GetName())

	desc, _, err := repo.GetItems(ctx, domain.ItemQuery{SortBy: domain.SortByName, SortOrder: domain.SortOrderDescending})
	require.NoError(t, err)
	assert.Equal(t, "Citizen Kane", desc[0].GetName())
}

func TestOfflineEpisodesOrderedByIndex(t *testing.T) {
	repo, st := newOfflineFixture(t)
	ctx := context.Background()

	seriesID := uuid.New()
	seasonID := uuid.New()

	for _, idx := range []int{3, 1, 2} {
		epID := uuid.New()
		require.NoError(t, st.UpsertItem(domain.ItemRow{
			ID:                epID,
			ServerID:          testServerID,
			Kind:              domain.KindEpisode,
			Name:              "Episode",
			SeriesID:          seriesID,
			SeasonID:          seasonID,
			ParentIndexNumber: 1,
			IndexNumber:       idx,
		}))
		require.NoError(t, st.UpsertSource(domain.SourceRow{
			ID:           "src-1",
			ItemID:       epID,
			ResidentPath: "/media/" + epID.String(),
		}))
	}

	episodes, err := repo.GetEpisodes(ctx, seriesID, seasonID)
	require.NoError(t, err)
	require.Len(t, episodes, 3)
	assert.Equal(t, 1, episodes[0].IndexNumber)
	assert.Equal(t, 3, episodes[2].IndexNumber)
}

func TestTypedItemGetters(t *testing.T) {
	repo, st := newOfflineFixture(t)
	ctx := context.Background()

	id := seedMovie(t, st, testServerID, "Alien", true)

	movie, err := domain.GetMovie(ctx, repo, id)
	require.NoError(t, err)
	assert.Equal(t, "Alien", movie.Name)

	// Asking for the wrong variant is a not-found, not a panic
	_, err = domain.GetShow(ctx, repo, id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSwitchDispatchesByMode(t *testing.T) {
	offline, st := newOfflineFixture(t)
	seedMovie(t, st, testServerID, "Alien", true)

	// Offline stands in for both backends; the mode flag is what is under test
	sw := NewSwitch(offline, offline, nil)
	assert.Equal(t, ModeOnline, sw.Mode())

	sw.SetMode(ModeOffline)
	assert.Equal(t, ModeOffline, sw.Mode())
	assert.Equal(t, "", sw.GetBaseURL())

	items, _, err := sw.GetItems(context.Background(), domain.ItemQuery{})
	require.NoError(t, err)
	assert.Len(t, items, 1)

	sw.SetMode(ModeOnline)
	assert.Equal(t, ModeOnline, sw.Mode())
}
