package service

import (
	"context"
	"testing"

	"github.com/finwatch/finwatch/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func movieNamed(name string) domain.Item {
	return &domain.Movie{ID: uuid.New(), Name: name}
}

func TestSearchPrefersRepository(t *testing.T) {
	repo := newRecordingRepo()
	repo.searchResults = []domain.Item{movieNamed("Blade Runner")}

	svc := NewSearchService(repo, nil)
	results, err := svc.Search(context.Background(), "blade")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Blade Runner", results[0].GetName())
}

func TestSearchFallsBackToLocalIndex(t *testing.T) {
	repo := newRecordingRepo()
	repo.searchErr = domain.ErrRemoteUnavailable

	svc := NewSearchService(repo, nil)
	svc.IndexItems([]domain.Item{
		movieNamed("Blade Runner"),
		movieNamed("The Thing"),
	})

	results, err := svc.Search(context.Background(), "blade")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Blade Runner", results[0].GetName())
}

func TestSearchBlankQuery(t *testing.T) {
	svc := NewSearchService(newRecordingRepo(), nil)

	results, err := svc.Search(context.Background(), "   ")
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestIndexItemsDeduplicates(t *testing.T) {
	svc := NewSearchService(newRecordingRepo(), nil)

	item := movieNamed("Stalker")
	svc.IndexItems([]domain.Item{item})
	svc.IndexItems([]domain.Item{item})

	assert.Equal(t, 1, svc.filterIndex.Len())
}

func TestFilterReturnsMatchPositions(t *testing.T) {
	svc := NewSearchService(newRecordingRepo(), nil)
	svc.IndexItems([]domain.Item{
		movieNamed("Blade Runner"),
		movieNamed("Brazil"),
	})

	results := svc.Filter("blade")
	require.Len(t, results, 1)
	assert.Equal(t, "Blade Runner", results[0].Title)
	assert.NotEmpty(t, results[0].MatchedIndexes)
}

func TestClearIndex(t *testing.T) {
	svc := NewSearchService(newRecordingRepo(), nil)
	svc.IndexItems([]domain.Item{movieNamed("Stalker")})

	svc.ClearIndex()
	assert.Empty(t, svc.Filter("stalker"))
}
