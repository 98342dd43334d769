package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/finwatch/finwatch/internal/domain"
	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketItems     = []byte("items")
	bucketSources   = []byte("sources")
	bucketTrickplay = []byte("trickplay")
)

// CacheStore implements domain.CacheStore using BoltDB.
//
// Item rows are keyed "serverID:itemID" so server-scoped queries are prefix
// scans; source rows are keyed "itemID:sourceID". Every mutation runs in its
// own bolt transaction, which gives the per-row write serialization the
// download manager and the playback-progress path rely on.
type CacheStore struct {
	db *bolt.DB
	mu sync.RWMutex // Protects memory cache

	// In-memory cache for hot-path point reads (promoted on access)
	cache map[string][]byte
}

// NewCacheStore opens (or creates) the cache database under dataDir.
// An empty dataDir yields a memory-only store with no persistence.
func NewCacheStore(dataDir string) (*CacheStore, error) {
	if dataDir == "" {
		return &CacheStore{cache: make(map[string][]byte)}, nil
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dataDir, "finwatch.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketItems, bucketSources, bucketTrickplay} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &CacheStore{db: db, cache: make(map[string][]byte)}, nil
}

func (s *CacheStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func itemKey(serverID string, itemID uuid.UUID) string {
	return serverID + ":" + itemID.String()
}

func sourceKey(itemID uuid.UUID, sourceID string) string {
	return itemID.String() + ":" + sourceID
}

// storeErr maps persistence failures to the domain error kind
func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", domain.ErrStoreFailure, op, err)
}

// === Generic helpers ===

func (s *CacheStore) get(bucket []byte, key string, dest interface{}) bool {
	cacheKey := string(bucket) + ":" + key

	s.mu.RLock()
	if data, ok := s.cache[cacheKey]; ok {
		s.mu.RUnlock()
		return json.Unmarshal(data, dest) == nil
	}
	s.mu.RUnlock()

	if s.db == nil {
		return false
	}

	var data []byte
	s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})

	if data == nil {
		return false
	}

	// Promote to memory cache
	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	return json.Unmarshal(data, dest) == nil
}

func (s *CacheStore) set(bucket []byte, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return storeErr("encode row", err)
	}

	cacheKey := string(bucket) + ":" + key

	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	if s.db == nil {
		return nil // Memory-only mode
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), data)
	})
	if err != nil {
		return storeErr("put row", err)
	}
	return nil
}

func (s *CacheStore) delete(bucket []byte, key string) error {
	cacheKey := string(bucket) + ":" + key

	s.mu.Lock()
	delete(s.cache, cacheKey)
	s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b != nil {
			return b.Delete([]byte(key))
		}
		return nil
	})
	if err != nil {
		return storeErr("delete row", err)
	}
	return nil
}

// scanPrefix collects raw values whose key starts with prefix. An empty
// prefix scans the whole bucket.
func (s *CacheStore) scanPrefix(bucket []byte, prefix string) ([][]byte, error) {
	if s.db == nil {
		// Memory-only mode scans the cache map
		s.mu.RLock()
		defer s.mu.RUnlock()

		cachePrefix := string(bucket) + ":" + prefix
		var out [][]byte
		for k, v := range s.cache {
			if strings.HasPrefix(k, cachePrefix) {
				out = append(out, v)
			}
		}
		return out, nil
	}

	var out [][]byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		prefixBytes := []byte(prefix)
		for k, v := c.Seek(prefixBytes); k != nil && strings.HasPrefix(string(k), prefix); k, v = c.Next() {
			data := make([]byte, len(v))
			copy(data, v)
			out = append(out, data)
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("scan", err)
	}
	return out, nil
}

// === Items ===

func (s *CacheStore) UpsertItem(row domain.ItemRow) error {
	return s.set(bucketItems, itemKey(row.ServerID, row.ID), row)
}

func (s *CacheStore) GetItem(serverID string, itemID uuid.UUID) (domain.ItemRow, bool) {
	var row domain.ItemRow
	ok := s.get(bucketItems, itemKey(serverID, itemID), &row)
	return row, ok
}

func (s *CacheStore) GetItems(serverID string) ([]domain.ItemRow, error) {
	return s.decodeItems(s.scanPrefix(bucketItems, serverID+":"))
}

func (s *CacheStore) GetAllItems() ([]domain.ItemRow, error) {
	return s.decodeItems(s.scanPrefix(bucketItems, ""))
}

func (s *CacheStore) GetResumeItems(serverID string) ([]domain.ItemRow, error) {
	rows, err := s.GetItems(serverID)
	if err != nil {
		return nil, err
	}

	var resume []domain.ItemRow
	for _, row := range rows {
		if row.PlaybackPositionTicks > 0 && !row.Played {
			resume = append(resume, row)
		}
	}
	return resume, nil
}

func (s *CacheStore) decodeItems(raw [][]byte, err error) ([]domain.ItemRow, error) {
	if err != nil {
		return nil, err
	}
	rows := make([]domain.ItemRow, 0, len(raw))
	for _, data := range raw {
		var row domain.ItemRow
		if err := json.Unmarshal(data, &row); err != nil {
			return nil, storeErr("decode item row", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *CacheStore) DeleteItem(serverID string, itemID uuid.UUID) error {
	return s.delete(bucketItems, itemKey(serverID, itemID))
}

// updateItem applies fn to an existing item row inside a single transaction.
func (s *CacheStore) updateItem(serverID string, itemID uuid.UUID, fn func(*domain.ItemRow)) error {
	key := itemKey(serverID, itemID)

	if s.db == nil {
		s.mu.Lock()
		defer s.mu.Unlock()

		cacheKey := string(bucketItems) + ":" + key
		data, ok := s.cache[cacheKey]
		if !ok {
			return domain.ErrNotFound
		}
		var row domain.ItemRow
		if err := json.Unmarshal(data, &row); err != nil {
			return storeErr("decode item row", err)
		}
		fn(&row)
		updated, err := json.Marshal(row)
		if err != nil {
			return storeErr("encode item row", err)
		}
		s.cache[cacheKey] = updated
		return nil
	}

	var updated []byte
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketItems)
		data := b.Get([]byte(key))
		if data == nil {
			return domain.ErrNotFound
		}
		var row domain.ItemRow
		if err := json.Unmarshal(data, &row); err != nil {
			return storeErr("decode item row", err)
		}
		fn(&row)
		var err error
		updated, err = json.Marshal(row)
		if err != nil {
			return storeErr("encode item row", err)
		}
		return b.Put([]byte(key), updated)
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.cache[string(bucketItems)+":"+key] = updated
	s.mu.Unlock()

	return nil
}

func (s *CacheStore) SetPlaybackPosition(serverID string, itemID uuid.UUID, positionTicks int64) error {
	return s.updateItem(serverID, itemID, func(row *domain.ItemRow) {
		row.PlaybackPositionTicks = positionTicks
	})
}

func (s *CacheStore) SetPlayed(serverID string, itemID uuid.UUID, played bool) error {
	return s.updateItem(serverID, itemID, func(row *domain.ItemRow) {
		row.Played = played
	})
}

// === Sources ===

func (s *CacheStore) UpsertSource(row domain.SourceRow) error {
	return s.set(bucketSources, sourceKey(row.ItemID, row.ID), row)
}

func (s *CacheStore) GetSource(itemID uuid.UUID, sourceID string) (domain.SourceRow, bool) {
	var row domain.SourceRow
	ok := s.get(bucketSources, sourceKey(itemID, sourceID), &row)
	return row, ok
}

func (s *CacheStore) GetSources(itemID uuid.UUID) ([]domain.SourceRow, error) {
	return s.decodeSources(s.scanPrefix(bucketSources, itemID.String()+":"))
}

func (s *CacheStore) GetActiveTransfers() ([]domain.SourceRow, error) {
	rows, err := s.decodeSources(s.scanPrefix(bucketSources, ""))
	if err != nil {
		return nil, err
	}

	var active []domain.SourceRow
	for _, row := range rows {
		if row.TransferID != "" {
			active = append(active, row)
		}
	}
	return active, nil
}

func (s *CacheStore) decodeSources(raw [][]byte, err error) ([]domain.SourceRow, error) {
	if err != nil {
		return nil, err
	}
	rows := make([]domain.SourceRow, 0, len(raw))
	for _, data := range raw {
		var row domain.SourceRow
		if err := json.Unmarshal(data, &row); err != nil {
			return nil, storeErr("decode source row", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// updateSource applies fn to an existing source row inside a single
// transaction, mirroring updateItem.
func (s *CacheStore) updateSource(itemID uuid.UUID, sourceID string, fn func(*domain.SourceRow)) error {
	key := sourceKey(itemID, sourceID)

	if s.db == nil {
		s.mu.Lock()
		defer s.mu.Unlock()

		cacheKey := string(bucketSources) + ":" + key
		data, ok := s.cache[cacheKey]
		if !ok {
			return domain.ErrNotFound
		}
		var row domain.SourceRow
		if err := json.Unmarshal(data, &row); err != nil {
			return storeErr("decode source row", err)
		}
		fn(&row)
		updated, err := json.Marshal(row)
		if err != nil {
			return storeErr("encode source row", err)
		}
		s.cache[cacheKey] = updated
		return nil
	}

	var updated []byte
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSources)
		data := b.Get([]byte(key))
		if data == nil {
			return domain.ErrNotFound
		}
		var row domain.SourceRow
		if err := json.Unmarshal(data, &row); err != nil {
			return storeErr("decode source row", err)
		}
		fn(&row)
		var err error
		updated, err = json.Marshal(row)
		if err != nil {
			return storeErr("encode source row", err)
		}
		return b.Put([]byte(key), updated)
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.cache[string(bucketSources)+":"+key] = updated
	s.mu.Unlock()

	return nil
}

func (s *CacheStore) SetSourceTransferID(itemID uuid.UUID, sourceID, transferID string) error {
	return s.updateSource(itemID, sourceID, func(row *domain.SourceRow) {
		row.TransferID = transferID
	})
}

func (s *CacheStore) SetSourceResidentPath(itemID uuid.UUID, sourceID, path string) error {
	return s.updateSource(itemID, sourceID, func(row *domain.SourceRow) {
		row.ResidentPath = path
	})
}

func (s *CacheStore) DeleteSource(itemID uuid.UUID, sourceID string) error {
	return s.delete(bucketSources, sourceKey(itemID, sourceID))
}

// UpsertItemWithSource writes both rows in one transaction so a crashed
// download request never leaves a half-written item/source pair.
func (s *CacheStore) UpsertItemWithSource(item domain.ItemRow, source domain.SourceRow) error {
	itemData, err := json.Marshal(item)
	if err != nil {
		return storeErr("encode item row", err)
	}
	sourceData, err := json.Marshal(source)
	if err != nil {
		return storeErr("encode source row", err)
	}

	ik := itemKey(item.ServerID, item.ID)
	sk := sourceKey(source.ItemID, source.ID)

	if s.db != nil {
		err = s.db.Update(func(tx *bolt.Tx) error {
			if err := tx.Bucket(bucketItems).Put([]byte(ik), itemData); err != nil {
				return err
			}
			return tx.Bucket(bucketSources).Put([]byte(sk), sourceData)
		})
		if err != nil {
			return storeErr("put item/source pair", err)
		}
	}

	s.mu.Lock()
	s.cache[string(bucketItems)+":"+ik] = itemData
	s.cache[string(bucketSources)+":"+sk] = sourceData
	s.mu.Unlock()

	return nil
}

// === Trickplay ===

func (s *CacheStore) SaveTrickPlayManifest(row domain.TrickPlayManifestRow) error {
	return s.set(bucketTrickplay, row.ItemID.String(), row)
}

func (s *CacheStore) GetTrickPlayManifest(itemID uuid.UUID) (domain.TrickPlayManifestRow, bool) {
	var row domain.TrickPlayManifestRow
	ok := s.get(bucketTrickplay, itemID.String(), &row)
	return row, ok
}

func (s *CacheStore) DeleteTrickPlayManifest(itemID uuid.UUID) error {
	return s.delete(bucketTrickplay, itemID.String())
}
