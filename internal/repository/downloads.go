package repository

import (
	"github.com/finwatch/finwatch/internal/domain"
)

// downloadsFromStore materializes the download list from the cache store.
// Included are items with at least one resident source, plus items whose
// source still has a transfer in flight, so storage-management views can
// show running downloads. Cancelled or failed downloads carry neither a
// resident path nor a transfer id and drop out.
func downloadsFromStore(store domain.CacheStore, session domain.Session, currentServerOnly bool) ([]domain.Item, error) {
	var (
		rows []domain.ItemRow
		err  error
	)

	if currentServerOnly {
		rows, err = store.GetItems(session.ServerID)
	} else {
		rows, err = store.GetAllItems()
	}
	if err != nil {
		return nil, err
	}

	var items []domain.Item
	for _, row := range rows {
		sources, err := store.GetSources(row.ID)
		if err != nil {
			return nil, err
		}

		keep := false
		for _, src := range sources {
			if src.IsDownloaded() || src.TransferID != "" {
				keep = true
				break
			}
		}
		if keep {
			items = append(items, row.ToItem(sources))
		}
	}
	return items, nil
}
