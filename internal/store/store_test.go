package store

import (
	"sync"
	"testing"

	"github.com/finwatch/finwatch/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *CacheStore {
	t.Helper()

	s, err := NewCacheStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

func movieRow(serverID string) domain.ItemRow {
	return domain.ItemRow{
		ID:           uuid.New(),
		ServerID:     serverID,
		Kind:         domain.KindMovie,
		Name:         "Some Movie",
		RuntimeTicks: 36_000_000_000,
	}
}

func TestItemRoundTrip(t *testing.T) {
	s := newTestStore(t)

	row := movieRow("server-1")
	require.NoError(t, s.UpsertItem(row))

	got, ok := s.GetItem("server-1", row.ID)
	require.True(t, ok)
	assert.Equal(t, row, got)

	_, ok = s.GetItem("server-2", row.ID)
	assert.False(t, ok, "item must not be visible under another server id")
}

func TestGetItemsScopedByServer(t *testing.T) {
	s := newTestStore(t)

	a := movieRow("server-a")
	b := movieRow("server-b")
	require.NoError(t, s.UpsertItem(a))
	require.NoError(t, s.UpsertItem(b))

	scoped, err := s.GetItems("server-a")
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, a.ID, scoped[0].ID)

	all, err := s.GetAllItems()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestResumeItems(t *testing.T) {
	s := newTestStore(t)

	fresh := movieRow("srv")
	started := movieRow("srv")
	started.PlaybackPositionTicks = 5000
	finished := movieRow("srv")
	finished.PlaybackPositionTicks = 5000
	finished.Played = true

	for _, row := range []domain.ItemRow{fresh, started, finished} {
		require.NoError(t, s.UpsertItem(row))
	}

	resume, err := s.GetResumeItems("srv")
	require.NoError(t, err)
	require.Len(t, resume, 1)
	assert.Equal(t, started.ID, resume[0].ID)
}

func TestPlaybackUpdates(t *testing.T) {
	s := newTestStore(t)

	row := movieRow("srv")
	require.NoError(t, s.UpsertItem(row))

	require.NoError(t, s.SetPlaybackPosition("srv", row.ID, 777))
	require.NoError(t, s.SetPlayed("srv", row.ID, true))

	got, ok := s.GetItem("srv", row.ID)
	require.True(t, ok)
	assert.Equal(t, int64(777), got.PlaybackPositionTicks)
	assert.True(t, got.Played)

	err := s.SetPlayed("srv", uuid.New(), true)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSourceRoundTrip(t *testing.T) {
	s := newTestStore(t)

	itemID := uuid.New()
	row := domain.SourceRow{
		ID:           "src-1",
		ItemID:       itemID,
		Name:         "1080p",
		DownloadPath: "/media/" + itemID.String() + ".src-1.download",
	}
	require.NoError(t, s.UpsertSource(row))

	got, ok := s.GetSource(itemID, "src-1")
	require.True(t, ok)
	assert.Equal(t, row, got)
	assert.False(t, got.IsDownloaded())

	require.NoError(t, s.SetSourceResidentPath(itemID, "src-1", row.DownloadPath))
	got, _ = s.GetSource(itemID, "src-1")
	assert.True(t, got.IsDownloaded())

	require.NoError(t, s.DeleteSource(itemID, "src-1"))
	_, ok = s.GetSource(itemID, "src-1")
	assert.False(t, ok)
}

func TestActiveTransfers(t *testing.T) {
	s := newTestStore(t)

	idle := domain.SourceRow{ID: "a", ItemID: uuid.New()}
	inFlight := domain.SourceRow{ID: "b", ItemID: uuid.New(), TransferID: "t-42"}
	require.NoError(t, s.UpsertSource(idle))
	require.NoError(t, s.UpsertSource(inFlight))

	active, err := s.GetActiveTransfers()
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "b", active[0].ID)

	require.NoError(t, s.SetSourceTransferID(inFlight.ItemID, "b", ""))
	active, err = s.GetActiveTransfers()
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestUpsertItemWithSource(t *testing.T) {
	s := newTestStore(t)

	item := movieRow("srv")
	source := domain.SourceRow{ID: "src", ItemID: item.ID, DownloadPath: "/media/x"}

	require.NoError(t, s.UpsertItemWithSource(item, source))

	_, ok := s.GetItem("srv", item.ID)
	assert.True(t, ok)
	_, ok = s.GetSource(item.ID, "src")
	assert.True(t, ok)
}

func TestTrickPlayManifest(t *testing.T) {
	s := newTestStore(t)

	itemID := uuid.New()
	row := domain.TrickPlayManifestRow{ItemID: itemID, WidthResolutions: []int{320}}
	require.NoError(t, s.SaveTrickPlayManifest(row))

	got, ok := s.GetTrickPlayManifest(itemID)
	require.True(t, ok)
	assert.Equal(t, []int{320}, got.WidthResolutions)

	require.NoError(t, s.DeleteTrickPlayManifest(itemID))
	_, ok = s.GetTrickPlayManifest(itemID)
	assert.False(t, ok)
}

func TestMemoryOnlyMode(t *testing.T) {
	s, err := NewCacheStore("")
	require.NoError(t, err)
	defer s.Close()

	row := movieRow("srv")
	require.NoError(t, s.UpsertItem(row))

	got, ok := s.GetItem("srv", row.ID)
	require.True(t, ok)
	assert.Equal(t, row.Name, got.Name)

	rows, err := s.GetItems("srv")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestConcurrentSourceFieldUpdates(t *testing.T) {
	s := newTestStore(t)

	itemID := uuid.New()
	require.NoError(t, s.UpsertSource(domain.SourceRow{ID: "src-1", ItemID: itemID}))

	// Writers touching different fields of the same row must not clobber
	// each other's update
	const iterations = 200
	for i := 0; i < iterations; i++ {
		transferID := uuid.NewString()
		residentPath := "/media/" + uuid.NewString()

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.SetSourceTransferID(itemID, "src-1", transferID))
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, s.SetSourceResidentPath(itemID, "src-1", residentPath))
		}()
		wg.Wait()

		row, ok := s.GetSource(itemID, "src-1")
		require.True(t, ok)
		assert.Equal(t, transferID, row.TransferID)
		assert.Equal(t, residentPath, row.ResidentPath)
	}
}
