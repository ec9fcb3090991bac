package store

import (
	"database/sql"
	"fmt"
	"math"
	"sync"

	_ "github.com/asg017/sqlite-vec-go-bindings/ncruces"
	_ "github.com/ncruces/go-sqlite3/driver"
)

const (
	// DefaultQuotaBytes bounds the fallback cache. Browsers grant far
	// more to OPFS, but the cache is a survival copy, not an archive.
	DefaultQuotaBytes = 5 << 20

	// DefaultMaxIndexEntries caps the recency index.
	DefaultMaxIndexEntries = 30
)

// CacheStore is the quota-limited local blob store for conversation
// profiles, plus the recency index over them. Backed by SQLite through
// ncruces/go-sqlite3/driver, which works both natively and in WASM.
// Thread-safe for concurrent WASM callbacks.
type CacheStore struct {
	mu         sync.RWMutex
	db         *sql.DB
	quotaBytes int64
	maxEntries int
}

const cacheSchema = `
-- Profile blobs, one row per conversation key.
-- The record is stored as opaque JSON; decoding belongs to the coordinator.
CREATE TABLE IF NOT EXISTS profiles (
    key TEXT PRIMARY KEY,
    data BLOB NOT NULL,
    size INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

-- Recency index for cross-conversation listing and eviction.
-- Every key here has a backing row in profiles until both are evicted.
CREATE TABLE IF NOT EXISTS profile_index (
    key TEXT PRIMARY KEY,
    participant_id TEXT NOT NULL,
    participant_name TEXT,
    last_active INTEGER NOT NULL,
    plot_history_count INTEGER DEFAULT 0,
    chat_length INTEGER DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_profile_index_active ON profile_index(last_active);
`

// NewCacheStore creates an in-memory cache store with default limits.
func NewCacheStore() (*CacheStore, error) {
	return NewCacheStoreWithDSN(":memory:", DefaultQuotaBytes, DefaultMaxIndexEntries)
}

// NewCacheStoreWithDSN creates a cache store with a specific data source
// name and limits. Use ":memory:" for in-memory or a file path for
// persistent storage. Zero limits select the defaults.
func NewCacheStoreWithDSN(dsn string, quotaBytes int64, maxEntries int) (*CacheStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: failed to open database: %w", err)
	}

	if _, err := db.Exec(cacheSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: failed to create schema: %w", err)
	}

	if quotaBytes <= 0 {
		quotaBytes = DefaultQuotaBytes
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxIndexEntries
	}

	return &CacheStore{db: db, quotaBytes: quotaBytes, maxEntries: maxEntries}, nil
}

// Close closes the database connection.
func (s *CacheStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// =============================================================================
// Profile blobs
// =============================================================================

// PutProfile writes the full profile record for a key. The write is
// all-or-nothing: a single upsert of the fully merged record. Returns
// ErrQuotaExceeded without writing when the record would push the cache
// over its byte quota.
func (s *CacheStore) PutProfile(key string, data []byte, updatedAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var used, existing int64
	if err := s.db.QueryRow(`SELECT COALESCE(SUM(size), 0) FROM profiles`).Scan(&used); err != nil {
		return fmt.Errorf("store: quota check: %w", err)
	}
	err := s.db.QueryRow(`SELECT size FROM profiles WHERE key = ?`, key).Scan(&existing)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("store: quota check: %w", err)
	}

	if used-existing+int64(len(data)) > s.quotaBytes {
		return fmt.Errorf("store: write of %d bytes for %s: %w", len(data), key, ErrQuotaExceeded)
	}

	_, err = s.db.Exec(`
		INSERT INTO profiles (key, data, size, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			data = excluded.data,
			size = excluded.size,
			updated_at = excluded.updated_at
	`, key, data, len(data), updatedAt)
	return err
}

// GetProfile retrieves the raw record for a key.
// Returns nil if not found.
func (s *CacheStore) GetProfile(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var data []byte
	err := s.db.QueryRow(`SELECT data FROM profiles WHERE key = ?`, key).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// DeleteProfile removes a record and its index entry.
func (s *CacheStore) DeleteProfile(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM profile_index WHERE key = ?", key); err != nil {
		return err
	}
	_, err := s.db.Exec("DELETE FROM profiles WHERE key = ?", key)
	return err
}

// CountProfiles returns the number of cached records.
func (s *CacheStore) CountProfiles() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM profiles").Scan(&count)
	return count, err
}

// UsedBytes reports the summed size of all cached records.
func (s *CacheStore) UsedBytes() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var used int64
	err := s.db.QueryRow(`SELECT COALESCE(SUM(size), 0) FROM profiles`).Scan(&used)
	return used, err
}

// =============================================================================
// Recency index
// =============================================================================

// UpsertIndexEntry inserts or updates one index entry, then enforces the
// entry cap: the newest maxEntries by last_active survive, everything
// else is deleted together with its backing profile record.
func (s *CacheStore) UpsertIndexEntry(e *IndexEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO profile_index (key, participant_id, participant_name, last_active, plot_history_count, chat_length)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			participant_id = excluded.participant_id,
			participant_name = excluded.participant_name,
			last_active = excluded.last_active,
			plot_history_count = excluded.plot_history_count,
			chat_length = excluded.chat_length
	`, e.Key, e.ParticipantID, e.ParticipantName, e.LastActive, e.PlotHistoryCount, e.ChatLength)
	if err != nil {
		return err
	}

	return s.pruneLocked()
}

// pruneLocked drops index entries beyond the cap, oldest first, and
// their backing records. Caller holds the write lock.
func (s *CacheStore) pruneLocked() error {
	_, err := s.db.Exec(`
		DELETE FROM profiles WHERE key IN (
			SELECT key FROM profile_index
			ORDER BY last_active DESC
			LIMIT -1 OFFSET ?
		)
	`, s.maxEntries)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		DELETE FROM profile_index WHERE key IN (
			SELECT key FROM profile_index
			ORDER BY last_active DESC
			LIMIT -1 OFFSET ?
		)
	`, s.maxEntries)
	return err
}

// EvictOldest removes the oldest fraction of indexed conversations
// (rounded up, minimum 1) along with their cached records. Single pass,
// no recursion: callers get exactly one pressure-relief cycle per save.
// Returns the number of conversations evicted.
func (s *CacheStore) EvictOldest(fraction float64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM profile_index").Scan(&total); err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}

	n := int(math.Ceil(float64(total) * fraction))
	if n < 1 {
		n = 1
	}

	rows, err := s.db.Query(`
		SELECT key FROM profile_index ORDER BY last_active ASC LIMIT ?
	`, n)
	if err != nil {
		return 0, err
	}
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			rows.Close()
			return 0, err
		}
		keys = append(keys, k)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, k := range keys {
		if _, err := s.db.Exec("DELETE FROM profiles WHERE key = ?", k); err != nil {
			return 0, err
		}
		if _, err := s.db.Exec("DELETE FROM profile_index WHERE key = ?", k); err != nil {
			return 0, err
		}
	}

	return len(keys), nil
}

// GetIndexEntry retrieves one index entry by key.
// Returns nil if not found.
func (s *CacheStore) GetIndexEntry(key string) (*IndexEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var e IndexEntry
	var name sql.NullString
	err := s.db.QueryRow(`
		SELECT key, participant_id, participant_name, last_active, plot_history_count, chat_length
		FROM profile_index WHERE key = ?
	`, key).Scan(&e.Key, &e.ParticipantID, &name, &e.LastActive, &e.PlotHistoryCount, &e.ChatLength)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if name.Valid {
		e.ParticipantName = name.String
	}
	return &e, nil
}

// ListIndex returns all index entries, most recently active first.
func (s *CacheStore) ListIndex() ([]*IndexEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT key, participant_id, participant_name, last_active, plot_history_count, chat_length
		FROM profile_index ORDER BY last_active DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*IndexEntry
	for rows.Next() {
		var e IndexEntry
		var name sql.NullString
		if err := rows.Scan(&e.Key, &e.ParticipantID, &name, &e.LastActive,
			&e.PlotHistoryCount, &e.ChatLength); err != nil {
			return nil, err
		}
		if name.Valid {
			e.ParticipantName = name.String
		}
		entries = append(entries, &e)
	}

	return entries, rows.Err()
}

// CountIndex returns the number of index entries.
func (s *CacheStore) CountIndex() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM profile_index").Scan(&count)
	return count, err
}
