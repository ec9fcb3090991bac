// Package profile implements the dual-source persistence coordinator for
// conversation profiles. It merges partial updates into the stored
// record, writes the authoritative sync store first and the local
// fallback cache second, and keeps the recency index consistent with
// both.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kittclouds/plotweave/internal/store"
)

// ErrNotFound reports that neither backend holds a record for the key.
var ErrNotFound = errors.New("profile: not found")

// Source identifies which backend supplied a loaded record.
type Source string

const (
	SourcePrimary  Source = "primary"
	SourceFallback Source = "fallback"
)

const (
	// DefaultHistoryLimit bounds the persisted plot history.
	DefaultHistoryLimit = 20

	// maxRecentDirections is the fixed cap on stored direction hints.
	maxRecentDirections = 10

	// evictFraction is freed per quota-pressure cycle.
	evictFraction = 0.2
)

// Key addresses one conversation profile. The authoritative store is
// keyed by conversation id alone (it is already scoped to the account);
// the cache key folds in the participant.
type Key struct {
	ParticipantID  string
	ConversationID string
}

// CacheKey returns the deterministic local-cache key.
func (k Key) CacheKey() string {
	return k.ParticipantID + "::" + k.ConversationID
}

// Update is the partial payload of one save call. PlotText, Status, and
// the implicit UpdatedAt always overwrite; everything else follows
// preserve-unless-overwritten.
type Update struct {
	PlotText        string
	Status          string
	ParticipantName string

	// PlotHistory replaces the stored history only when non-empty.
	PlotHistory []store.PlotEntry

	// PushDirections are new direction hints, most recent first. They
	// are merged ahead of the stored ones, de-duplicated, capped.
	PushDirections []string

	// ArcSnapshot replaces the structural arc state when non-nil; its
	// analysis sub-fields merge individually and placeholder strings
	// never overwrite real prior data.
	ArcSnapshot *store.ArcSnapshot

	// SidebarCollapsed is a pass-through UI preference; nil means the
	// caller did not touch it.
	SidebarCollapsed *bool

	// Denormalized host state at save time; zero values are treated as
	// not-provided.
	ChatLength      int
	LastMessageTime int64
}

// SaveResult reports how a save degraded, if at all. A save only fails
// outright on programmer error; storage trouble is folded into flags.
type SaveResult struct {
	Profile     *store.ConversationProfile
	SyncFailed  bool
	StorageFull bool
	Evicted     int
}

// Config tunes the coordinator.
type Config struct {
	HistoryLimit int
}

// Coordinator owns all read/write access to both backends. The arc
// machine never touches storage; its snapshots pass through here.
type Coordinator struct {
	sync  store.SyncStore
	cache *store.CacheStore
	cfg   Config

	// Per-key serialization: concurrent saves/loads for the same
	// conversation would interleave the merge-base-then-overwrite
	// sequence and lose updates.
	keysMu sync.Mutex
	keys   map[string]*sync.Mutex
}

// NewCoordinator creates a coordinator over the two backends.
func NewCoordinator(syncStore store.SyncStore, cache *store.CacheStore, cfg Config) *Coordinator {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	return &Coordinator{
		sync:  syncStore,
		cache: cache,
		cfg:   cfg,
		keys:  make(map[string]*sync.Mutex),
	}
}

func (c *Coordinator) keyLock(k Key) *sync.Mutex {
	c.keysMu.Lock()
	defer c.keysMu.Unlock()

	mu, ok := c.keys[k.CacheKey()]
	if !ok {
		mu = &sync.Mutex{}
		c.keys[k.CacheKey()] = mu
	}
	return mu
}

// Save merges the update over the existing record and writes both
// backends: authoritative first (best effort), then the local cache with
// one eviction-and-retry cycle on quota pressure. The index entry is
// updated regardless of the cache outcome so recency stays consistent
// with the authoritative copy.
func (c *Coordinator) Save(ctx context.Context, k Key, u Update) (*SaveResult, error) {
	mu := c.keyLock(k)
	mu.Lock()
	defer mu.Unlock()

	base, _, err := c.load(ctx, k)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if base == nil {
		base = &store.ConversationProfile{}
	}

	merged := mergeProfile(base, u, c.cfg.HistoryLimit)
	merged.ParticipantID = k.ParticipantID
	merged.UpdatedAt = time.Now().UnixMilli()

	data, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("profile: marshal: %w", err)
	}

	res := &SaveResult{Profile: merged}

	if err := c.sync.Put(ctx, k.ConversationID, data); err != nil {
		fmt.Printf("[ProfileStore] sync put failed for %s: %v\n", k.ConversationID, err)
		res.SyncFailed = true
	}

	if err := c.writeCache(k, data, merged.UpdatedAt, res); err != nil {
		return nil, err
	}

	entry := &store.IndexEntry{
		Key:              k.CacheKey(),
		ParticipantID:    k.ParticipantID,
		ParticipantName:  merged.ParticipantName,
		LastActive:       merged.UpdatedAt,
		PlotHistoryCount: len(merged.PlotHistory),
		ChatLength:       merged.ChatLength,
	}
	if err := c.cache.UpsertIndexEntry(entry); err != nil {
		fmt.Printf("[ProfileStore] index upsert failed for %s: %v\n", k.CacheKey(), err)
	}

	return res, nil
}

// writeCache performs the local write with at most one eviction cycle.
func (c *Coordinator) writeCache(k Key, data []byte, updatedAt int64, res *SaveResult) error {
	err := c.cache.PutProfile(k.CacheKey(), data, updatedAt)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrQuotaExceeded) {
		return fmt.Errorf("profile: cache write: %w", err)
	}

	evicted, evErr := c.cache.EvictOldest(evictFraction)
	if evErr != nil {
		fmt.Printf("[ProfileStore] eviction failed: %v\n", evErr)
	}
	res.Evicted = evicted

	if err := c.cache.PutProfile(k.CacheKey(), data, updatedAt); err != nil {
		if errors.Is(err, store.ErrQuotaExceeded) {
			// Degrade: the authoritative copy is the durable one.
			fmt.Printf("[ProfileStore] cache still full after eviction, continuing without local copy for %s\n", k.CacheKey())
			res.StorageFull = true
			return nil
		}
		return fmt.Errorf("profile: cache retry: %w", err)
	}
	return nil
}

// Load returns the profile for the key, preferring the authoritative
// store; the fallback cache is consulted only when the authoritative
// store is unreachable or holds nothing. Malformed stored JSON counts as
// absence, never as a crash.
func (c *Coordinator) Load(ctx context.Context, k Key) (*store.ConversationProfile, Source, error) {
	mu := c.keyLock(k)
	mu.Lock()
	defer mu.Unlock()

	return c.load(ctx, k)
}

// load is Load without the key lock; Save reuses it for the merge base.
func (c *Coordinator) load(ctx context.Context, k Key) (*store.ConversationProfile, Source, error) {
	data, err := c.sync.Get(ctx, k.ConversationID)
	switch {
	case err == nil:
		if p := decodeProfile(data, k.ConversationID); p != nil {
			return p, SourcePrimary, nil
		}
	case errors.Is(err, store.ErrAbsent):
		// Fall through to the cache.
	default:
		fmt.Printf("[ProfileStore] sync get failed for %s: %v\n", k.ConversationID, err)
	}

	data, err = c.cache.GetProfile(k.CacheKey())
	if err != nil {
		return nil, "", fmt.Errorf("profile: cache read: %w", err)
	}
	if data == nil {
		return nil, "", ErrNotFound
	}
	p := decodeProfile(data, k.CacheKey())
	if p == nil {
		return nil, "", ErrNotFound
	}
	return p, SourceFallback, nil
}

func decodeProfile(data []byte, key string) *store.ConversationProfile {
	if len(data) == 0 {
		return nil
	}
	var p store.ConversationProfile
	if err := json.Unmarshal(data, &p); err != nil {
		fmt.Printf("[ProfileStore] malformed record for %s, treating as absent: %v\n", key, err)
		return nil
	}
	return &p
}

// List returns the cross-conversation index, most recently active first.
func (c *Coordinator) List() ([]*store.IndexEntry, error) {
	return c.cache.ListIndex()
}

// Delete removes the local copy and index entry for a key. The
// authoritative copy is host-owned and untouched.
func (c *Coordinator) Delete(k Key) error {
	mu := c.keyLock(k)
	mu.Lock()
	defer mu.Unlock()

	return c.cache.DeleteProfile(k.CacheKey())
}
